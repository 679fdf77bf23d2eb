package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// GoogleCloudSynthesizer uses the Cloud Text-to-Speech API. Like the
// Cloud translation backend it builds its client once, on first use.
type GoogleCloudSynthesizer struct {
	credentials string

	mu     sync.Mutex
	client *texttospeech.Client
}

func NewGoogleCloudSynthesizer(credentials string) *GoogleCloudSynthesizer {
	return &GoogleCloudSynthesizer{credentials: credentials}
}

func (s *GoogleCloudSynthesizer) Name() string {
	return "google"
}

func (s *GoogleCloudSynthesizer) Languages() map[string]string {
	return nil
}

func (s *GoogleCloudSynthesizer) getClient(ctx context.Context) (*texttospeech.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	var opts []option.ClientOption
	if s.credentials != "" {
		opts = append(opts, option.WithCredentialsFile(s.credentials))
	}

	client, err := texttospeech.NewClient(context.WithoutCancel(ctx), opts...)
	if err != nil {
		return nil, err
	}
	s.client = client
	return client, nil
}

func (s *GoogleCloudSynthesizer) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoText
	}

	code, err := voiceLocale(lang)
	if err != nil {
		return nil, err
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	resp, err := client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: code,
			SsmlGender:   texttospeechpb.SsmlVoiceGender_NEUTRAL,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}
	return resp.GetAudioContent(), nil
}

// Close releases the shared client.
func (s *GoogleCloudSynthesizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

// voiceLocale expands a bare language code to the locale voices are
// registered under, e.g. "uk" becomes "uk-UA".
func voiceLocale(lang string) (string, error) {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	base, _ := tag.Base()
	region, _ := tag.Region()
	if region.String() == "ZZ" {
		return base.String(), nil
	}
	return base.String() + "-" + region.String(), nil
}
