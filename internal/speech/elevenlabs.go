package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultElevenLabsURL   = "https://api.elevenlabs.io"
	defaultElevenLabsVoice = "EXAVITQu4vr4xnSDxMaL"
	defaultElevenLabsModel = "eleven_multilingual_v2"
)

type ElevenLabsSynthesizer struct {
	apiKey  string
	baseURL string
	model   string
	voice   string
	client  *http.Client
}

func NewElevenLabsSynthesizer(opts VoiceOptions) *ElevenLabsSynthesizer {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultElevenLabsURL
	}
	model := opts.Model
	if model == "" {
		model = defaultElevenLabsModel
	}
	voice := opts.Voice
	if voice == "" {
		voice = defaultElevenLabsVoice
	}
	return &ElevenLabsSynthesizer{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		voice:   voice,
		client:  newHTTPClient(opts.Timeout),
	}
}

func (s *ElevenLabsSynthesizer) Name() string {
	return "elevenlabs"
}

func (s *ElevenLabsSynthesizer) VoiceKey() string {
	return s.model + "/" + s.voice
}

func (s *ElevenLabsSynthesizer) Languages() map[string]string {
	return nil
}

type elevenLabsRequest struct {
	Text         string `json:"text"`
	ModelID      string `json:"model_id"`
	LanguageCode string `json:"language_code,omitempty"`
}

func (s *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoText
	}

	payload, err := json.Marshal(elevenLabsRequest{
		Text:         text,
		ModelID:      s.model,
		LanguageCode: strings.ToLower(strings.TrimSpace(lang)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", s.baseURL, s.voice)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	return audio, nil
}
