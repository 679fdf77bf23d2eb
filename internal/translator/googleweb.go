package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valpere/perevoice/internal/chunker"
)

const (
	defaultGoogleWebURL = "https://translate.googleapis.com"

	// googleWebMaxChars keeps each query under the endpoint's URL limit.
	googleWebMaxChars = 4500
)

// GoogleWebLanguages lists the target codes accepted by the public Google
// web endpoint.
var GoogleWebLanguages = []string{
	"af", "sq", "am", "ar", "hy", "az", "eu", "be", "bn", "bs", "bg", "ca",
	"ceb", "ny", "zh", "zh-cn", "zh-tw", "co", "hr", "cs", "da", "nl", "en",
	"eo", "et", "tl", "fi", "fr", "fy", "gl", "ka", "de", "el", "gu", "ht",
	"ha", "haw", "iw", "he", "hi", "hmn", "hu", "is", "ig", "id", "ga", "it",
	"ja", "jw", "kn", "kk", "km", "ko", "ku", "ky", "lo", "la", "lv", "lt",
	"lb", "mk", "mg", "ms", "ml", "mt", "mi", "mr", "mn", "my", "ne", "no",
	"or", "ps", "fa", "pl", "pt", "pa", "ro", "ru", "sm", "gd", "sr", "st",
	"sn", "sd", "si", "sk", "sl", "so", "es", "su", "sw", "sv", "tg", "ta",
	"te", "th", "tr", "uk", "ur", "ug", "uz", "vi", "cy", "xh", "yi", "yo",
	"zu",
}

// GoogleWebService talks to the keyless translate_a endpoint used by the
// Google Translate web widgets.
type GoogleWebService struct {
	baseURL string
	client  *http.Client
}

func NewGoogleWebService(baseURL string) *GoogleWebService {
	if baseURL == "" {
		baseURL = defaultGoogleWebURL
	}
	return &GoogleWebService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(30 * time.Second),
	}
}

func (s *GoogleWebService) Name() string {
	return "googleweb"
}

func (s *GoogleWebService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if strings.TrimSpace(req.Text) == "" {
		result.Error = "empty text"
		return result, fmt.Errorf("empty text")
	}

	if !containsLang(GoogleWebLanguages, req.TargetLang) {
		result.Error = fmt.Sprintf("invalid destination language: %s", req.TargetLang)
		return result, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, req.TargetLang)
	}

	sourceLang := req.SourceLang
	if isAuto(sourceLang) {
		sourceLang = "auto"
	}

	// Long texts are sent in pieces; the line breaks between pieces are
	// put back so paragraphs survive.
	var sb strings.Builder
	for _, piece := range chunker.Split(req.Text, googleWebMaxChars) {
		translated, detected, err := s.query(ctx, piece.Text, sourceLang, req.TargetLang)
		if err != nil {
			result.Error = err.Error()
			return result, err
		}
		if result.Metadata == nil && detected != "" {
			result.Metadata = map[string]string{"detected_lang": detected}
		}
		sb.WriteString(translated)
		sb.WriteString(piece.Sep)
	}

	result.TranslatedText = sb.String()
	if strings.TrimSpace(result.TranslatedText) == "" {
		result.Error = "empty translation response"
		return result, fmt.Errorf("empty translation response")
	}
	result.Confidence = 0.9

	return result, nil
}

// query performs one request and returns the joined sentence segments and
// the language the endpoint detected for the source.
func (s *GoogleWebService) query(ctx context.Context, text, sourceLang, targetLang string) (string, string, error) {
	params := url.Values{
		"client": {"gtx"},
		"sl":     {sourceLang},
		"tl":     {targetLang},
		"dt":     {"t"},
		"q":      {text},
	}

	httpReq, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/translate_a/single?"+params.Encode(), nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, targetLang)
	case resp.StatusCode != http.StatusOK:
		return "", "", fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	// The payload is a positional array: [segments, _, detectedLang, ...]
	// where each segment is [translated, original, ...].
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		return "", "", fmt.Errorf("failed to decode response: unexpected payload")
	}

	var segments [][]interface{}
	if err := json.Unmarshal(raw[0], &segments); err != nil {
		return "", "", fmt.Errorf("failed to decode segments: %w", err)
	}

	var sb strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			sb.WriteString(s)
		}
	}

	var detected string
	if len(raw) > 2 {
		_ = json.Unmarshal(raw[2], &detected)
	}

	return sb.String(), detected, nil
}

func (s *GoogleWebService) IsAvailable(ctx context.Context) error {
	return nil
}

func (s *GoogleWebService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return GoogleWebLanguages, nil
}

func containsLang(langs []string, lang string) bool {
	for _, l := range langs {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}
