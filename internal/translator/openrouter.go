package translator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/valpere/perevoice/internal/placeholder"
	"github.com/valpere/perevoice/internal/postprocess"
)

const defaultOpenRouterURL = "https://openrouter.ai/api/v1"

var DefaultOpenRouterModels = []string{
	"google/gemini-2.0-flash-exp:free",
	"qwen/qwen2.5-72b-instruct:free",
	"mistralai/mistral-nemo:free",
	"meta-llama/llama-3.1-8b-instruct:free",
}

// OpenRouterService uses any OpenAI-compatible chat completions endpoint,
// OpenRouter by default.
type OpenRouterService struct {
	apiKey string
	models []string
	client *openai.Client
}

// refererTransport adds the attribution headers OpenRouter asks clients to send.
type refererTransport struct {
	base http.RoundTripper
}

func (t *refererTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("HTTP-Referer", "https://perevoice.local")
	req.Header.Set("X-Title", "PereVoice")
	return t.base.RoundTrip(req)
}

func NewOpenRouterService(apiKey string, baseURL string, models []string) *OpenRouterService {
	if baseURL == "" {
		baseURL = defaultOpenRouterURL
	}
	if len(models) == 0 {
		models = DefaultOpenRouterModels
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = &http.Client{
		Timeout:   120 * time.Second,
		Transport: &refererTransport{base: http.DefaultTransport},
	}

	return &OpenRouterService{
		apiKey: apiKey,
		models: models,
		client: openai.NewClientWithConfig(cfg),
	}
}

func (s *OpenRouterService) Name() string {
	return "openrouter"
}

func (s *OpenRouterService) pickModel() string {
	if len(s.models) == 0 {
		return DefaultOpenRouterModels[0]
	}
	return s.models[rand.Intn(len(s.models))]
}

func (s *OpenRouterService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if s.apiKey == "" {
		result.Error = "OpenRouter API key required"
		return result, fmt.Errorf("OpenRouter API key required")
	}

	model := cfg.Model
	if model == "" {
		model = s.pickModel()
	}

	protected, markers := placeholder.Protect(req.Text)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(req.SourceLang, req.TargetLang, req.GlossaryTerms, len(markers) > 0)},
			{Role: openai.ChatMessageRoleUser, Content: protected},
		},
		MaxTokens: 4096,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			result.Error = fmt.Sprintf("API returned status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
			return result, fmt.Errorf("API returned status %d: %w", apiErr.HTTPStatusCode, err)
		}
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result, fmt.Errorf("request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		result.Error = "empty response from API"
		return result, fmt.Errorf("empty response from API")
	}

	text := postprocess.Clean(resp.Choices[0].Message.Content)
	if text == "" {
		result.Error = "empty response from model"
		return result, fmt.Errorf("empty response from model")
	}

	result.TranslatedText = placeholder.Restore(text, markers)
	result.Confidence = 0.7
	result.Metadata = map[string]string{
		"model":             model,
		"prompt_tokens":     fmt.Sprintf("%d", resp.Usage.PromptTokens),
		"completion_tokens": fmt.Sprintf("%d", resp.Usage.CompletionTokens),
	}

	return result, nil
}

func (s *OpenRouterService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("OpenRouter API key not configured")
	}
	return nil
}

func (s *OpenRouterService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (s *OpenRouterService) Models() []string {
	return s.models
}
