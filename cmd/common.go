/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/valpere/perevoice/internal/config"
	"github.com/valpere/perevoice/internal/detector"
	"github.com/valpere/perevoice/internal/gateway"
	"github.com/valpere/perevoice/internal/orchestrator"
	"github.com/valpere/perevoice/internal/speech"
	"github.com/valpere/perevoice/internal/store"
	"github.com/valpere/perevoice/internal/translator"
	"github.com/valpere/perevoice/internal/validator"
)

// buildServices constructs the translation backends named in the config,
// in order.
func buildServices(tc config.TranslationConfig) ([]translator.TranslationService, error) {
	var list []translator.TranslationService

	for _, name := range tc.Services {
		switch name {
		case "googleweb":
			list = append(list, translator.NewGoogleWebService(tc.GoogleWeb.BaseURL))
		case "google":
			list = append(list, translator.NewGoogleService(tc.Google.Credentials))
		case "systran":
			list = append(list, translator.NewSystranService(tc.Systran.APIKey, tc.Systran.BaseURL))
		case "mymemory":
			list = append(list, translator.NewMyMemoryService(tc.MyMemory.Email, tc.MyMemory.BaseURL))
		case "ollama":
			list = append(list, translator.NewOllamaTranslator(tc.Ollama.BaseURL, tc.Ollama.Models))
		case "openrouter":
			list = append(list, translator.NewOpenRouterService(tc.OpenRouter.APIKey, tc.OpenRouter.BaseURL, tc.OpenRouter.Models))
		default:
			return nil, fmt.Errorf("unknown translation service: %s", name)
		}
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("no valid services configured")
	}
	return list, nil
}

// buildOrchestrator wires services together. det is shared with the
// validator and may be nil when validation is off.
func buildOrchestrator(tc config.TranslationConfig, services []translator.TranslationService, det *detector.Detector) *orchestrator.Orchestrator {
	var val *validator.Validator
	if tc.Validate {
		val = validator.New(det)
	}

	return orchestrator.New(services, orchestrator.OrchestratorConfig{
		Timeout:     tc.Timeout,
		MaxAttempts: tc.MaxAttempts,
		RetryDelay:  tc.RetryDelay,
	}, val)
}

// needsDetector reports whether anything in the process reads a locally
// detected language. At most one detector is built per process.
func needsDetector(c *config.Config, services []translator.TranslationService) bool {
	if c.Translation.Validate || c.Cache.Enabled {
		return true
	}
	for _, svc := range services {
		if translator.RequiresSourceLang(svc) {
			return true
		}
	}
	return false
}

func buildSynthesizer(sc config.SpeechConfig) (speech.Synthesizer, error) {
	switch sc.Provider {
	case "googleweb":
		return speech.NewGoogleWebSynthesizer(speech.GoogleWebOptions{
			TLD:       sc.TLD,
			ChunkSize: sc.ChunkSize,
			Slow:      sc.Slow,
			Timeout:   sc.Timeout,
		}), nil
	case "openai":
		return speech.NewOpenAISynthesizer(voiceOptions(sc.OpenAI, sc)), nil
	case "elevenlabs":
		return speech.NewElevenLabsSynthesizer(voiceOptions(sc.ElevenLabs, sc)), nil
	case "google":
		return speech.NewGoogleCloudSynthesizer(sc.Google.Credentials), nil
	default:
		return nil, fmt.Errorf("unknown speech provider: %s", sc.Provider)
	}
}

func voiceOptions(vc config.VoiceConfig, sc config.SpeechConfig) speech.VoiceOptions {
	return speech.VoiceOptions{
		APIKey:  vc.APIKey,
		BaseURL: vc.BaseURL,
		Model:   vc.Model,
		Voice:   vc.Voice,
		Timeout: sc.Timeout,
	}
}

// openStore opens the cache database, creating its directory.
func openStore(path string) (*store.Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// runtime is everything a request needs, built once per process.
type runtime struct {
	service *gateway.Service
	closers []io.Closer
}

func (r *runtime) Close() error {
	var err error
	for _, c := range r.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}

func buildRuntime(c *config.Config, log *zap.Logger) (*runtime, error) {
	rt := &runtime{}

	services, err := buildServices(c.Translation)
	if err != nil {
		return nil, err
	}
	for _, svc := range services {
		if closer, ok := svc.(io.Closer); ok {
			rt.closers = append(rt.closers, closer)
		}
	}

	var det *detector.Detector
	if needsDetector(c, services) {
		det = detector.New()
	}
	orch := buildOrchestrator(c.Translation, services, det)

	syn, err := buildSynthesizer(c.Speech)
	if err != nil {
		return nil, err
	}
	if closer, ok := syn.(io.Closer); ok {
		rt.closers = append(rt.closers, closer)
	}

	opts := gateway.Options{
		ServiceConfig: translator.ServiceConfig{
			Credentials: c.Translation.Google.Credentials,
			ProjectID:   c.Translation.Google.ProjectID,
			Timeout:     c.Translation.Timeout,
		},
		SourceLang:     c.Translation.SourceLang,
		FuzzyThreshold: c.Cache.FuzzyThreshold,
		SpeechMaxBytes: c.Cache.SpeechMaxBytes,
		Detector:       det,
	}

	if c.Cache.Enabled {
		db, err := openStore(c.Cache.DBPath)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, db)
		opts.Cache = db
	}

	rt.service = gateway.New(orch, syn, log, opts)
	return rt, nil
}
