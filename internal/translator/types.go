package translator

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrUnsupportedLanguage is wrapped by backends when the upstream rejects a
// language code.
var ErrUnsupportedLanguage = errors.New("unsupported language")

type ServiceConfig struct {
	Credentials string        `mapstructure:"credentials" json:"credentials"`
	APIKey      string        `mapstructure:"api_key" json:"api_key"`
	Model       string        `mapstructure:"model" json:"model"`
	BaseURL     string        `mapstructure:"base_url" json:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	ProjectID   string        `mapstructure:"project_id" json:"project_id"`
}

type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	// SourceHint is the language guessed locally when SourceLang is "auto".
	// Services that cannot detect the source themselves use it.
	SourceHint string `json:"source_hint,omitempty"`
	// GlossaryTerms maps source terms to required target terms. Only
	// LLM-backed services honour it.
	GlossaryTerms map[string]string `json:"glossary_terms,omitempty"`
}

type ServiceResult struct {
	ServiceName    string            `json:"service_name"`
	TranslatedText string            `json:"translated_text"`
	Confidence     float64           `json:"confidence"`
	Metadata       map[string]string `json:"metadata"`
	Latency        time.Duration     `json:"latency"`
	Error          string            `json:"error,omitempty"`
}

type TranslationService interface {
	Name() string
	Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error)
	IsAvailable(ctx context.Context) error
	SupportedLanguages(ctx context.Context) ([]string, error)
}

// sourceRequirer is implemented by services without source autodetection.
type sourceRequirer interface {
	RequiresSourceLang() bool
}

// RequiresSourceLang reports whether svc needs a concrete source language,
// either in SourceLang or in SourceHint, to translate correctly.
func RequiresSourceLang(svc TranslationService) bool {
	r, ok := svc.(sourceRequirer)
	return ok && r.RequiresSourceLang()
}

// newHTTPClient is shared by the HTTP-based backends. Per-request deadlines
// come from the caller's context; the client timeout is only a backstop.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func isAuto(lang string) bool {
	return lang == "" || lang == "auto"
}
