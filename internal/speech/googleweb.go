package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valpere/perevoice/internal/chunker"
)

const (
	defaultTTSChunk = 100
	defaultTLD      = "com"
	webUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

type GoogleWebOptions struct {
	// BaseURL overrides https://translate.google.<TLD>.
	BaseURL string
	TLD     string
	// ChunkSize is the maximum number of runes sent per request.
	ChunkSize int
	Slow      bool
	Timeout   time.Duration
}

// GoogleWebSynthesizer uses the keyless voice endpoint behind the Google
// Translate "listen" button. Long text is sent in chunks and the returned
// MP3 streams are concatenated, which players handle as one stream.
type GoogleWebSynthesizer struct {
	baseURL   string
	chunkSize int
	speed     string
	client    *http.Client
}

func NewGoogleWebSynthesizer(opts GoogleWebOptions) *GoogleWebSynthesizer {
	tld := opts.TLD
	if tld == "" {
		tld = defaultTLD
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://translate.google." + tld
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultTTSChunk
	}
	speed := "1"
	if opts.Slow {
		speed = "0.3"
	}
	return &GoogleWebSynthesizer{
		baseURL:   strings.TrimRight(baseURL, "/"),
		chunkSize: chunkSize,
		speed:     speed,
		client:    newHTTPClient(opts.Timeout),
	}
}

func (s *GoogleWebSynthesizer) Name() string {
	return "googleweb"
}

// VoiceKey covers the host, whose TLD picks the accent, and the speed.
func (s *GoogleWebSynthesizer) VoiceKey() string {
	host := s.baseURL
	if u, err := url.Parse(s.baseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return host + "/" + s.speed
}

func (s *GoogleWebSynthesizer) Languages() map[string]string {
	return Languages
}

func (s *GoogleWebSynthesizer) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	code, err := lookupLanguage(Languages, lang)
	if err != nil {
		return nil, err
	}

	var parts []string
	for _, c := range chunker.Chunk(strings.Join(strings.Fields(text), " "), s.chunkSize) {
		if chunker.Speakable(c) {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return nil, ErrNoText
	}

	var buf bytes.Buffer
	for i, part := range parts {
		if err := s.fetch(ctx, &buf, part, code, i, len(parts)); err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(parts), err)
		}
	}
	return buf.Bytes(), nil
}

func (s *GoogleWebSynthesizer) fetch(ctx context.Context, w io.Writer, text, lang string, idx, total int) error {
	params := url.Values{
		"ie":       {"UTF-8"},
		"client":   {"tw-ob"},
		"tl":       {lang},
		"q":        {text},
		"ttsspeed": {s.speed},
		"total":    {strconv.Itoa(total)},
		"idx":      {strconv.Itoa(idx)},
		"textlen":  {strconv.Itoa(len([]rune(text)))},
	}

	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/translate_tts?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", webUserAgent)
	req.Header.Set("Referer", s.baseURL+"/")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to read audio: %w", err)
	}
	return nil
}
