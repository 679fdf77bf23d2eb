package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type VoiceOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	Voice   string
	Timeout time.Duration
}

// OpenAISynthesizer calls the /audio/speech endpoint of OpenAI or any
// compatible server. The voice is multilingual, so lang is not sent.
type OpenAISynthesizer struct {
	model  openai.SpeechModel
	voice  openai.SpeechVoice
	client *openai.Client
}

func NewOpenAISynthesizer(opts VoiceOptions) *OpenAISynthesizer {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	cfg.HTTPClient = newHTTPClient(opts.Timeout)

	model := openai.SpeechModel(opts.Model)
	if model == "" {
		model = openai.TTSModel1
	}
	voice := openai.SpeechVoice(opts.Voice)
	if voice == "" {
		voice = openai.VoiceAlloy
	}

	return &OpenAISynthesizer{
		model:  model,
		voice:  voice,
		client: openai.NewClientWithConfig(cfg),
	}
}

func (s *OpenAISynthesizer) Name() string {
	return "openai"
}

func (s *OpenAISynthesizer) VoiceKey() string {
	return string(s.model) + "/" + string(s.voice)
}

func (s *OpenAISynthesizer) Languages() map[string]string {
	return nil
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoText
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("API returned status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	return audio, nil
}
