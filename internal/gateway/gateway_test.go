package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/valpere/perevoice/internal/detector"
	"github.com/valpere/perevoice/internal/orchestrator"
	"github.com/valpere/perevoice/internal/speech"
	"github.com/valpere/perevoice/internal/store"
	"github.com/valpere/perevoice/internal/translator"
)

type fakeBackend struct {
	name  string
	langs []string
}

func (f *fakeBackend) Name() string { return f.name }
func (f *fakeBackend) Translate(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
	return nil, errors.New("not used")
}
func (f *fakeBackend) IsAvailable(ctx context.Context) error { return nil }
func (f *fakeBackend) SupportedLanguages(ctx context.Context) ([]string, error) {
	return f.langs, nil
}

type fakeTranslator struct {
	services []translator.TranslationService
	calls    atomic.Int32
	lastReq  translator.TranslateRequest
	fn       func(req translator.TranslateRequest) (*translator.ServiceResult, error)
}

func (f *fakeTranslator) Translate(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
	f.calls.Add(1)
	f.lastReq = req
	return f.fn(req)
}

func (f *fakeTranslator) Services() []translator.TranslationService { return f.services }

func echoTranslator(langs []string) *fakeTranslator {
	return &fakeTranslator{
		services: []translator.TranslationService{&fakeBackend{name: "fake", langs: langs}},
		fn: func(req translator.TranslateRequest) (*translator.ServiceResult, error) {
			return &translator.ServiceResult{
				ServiceName:    "fake",
				TranslatedText: "[" + req.TargetLang + "] " + req.Text,
				Confidence:     0.9,
			}, nil
		},
	}
}

type fakeSynth struct {
	audio []byte
	err   error
	calls atomic.Int32
	langs map[string]string
	last  string
	voice string
}

func (f *fakeSynth) Name() string                  { return "fake" }
func (f *fakeSynth) VoiceKey() string              { return f.voice }
func (f *fakeSynth) Languages() map[string]string { return f.langs }
func (f *fakeSynth) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	f.calls.Add(1)
	f.last = text
	return f.audio, f.err
}

func fixtureMP3(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "speech", "testdata", "hello.mp3"))
	require.NoError(t, err)
	return data
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTranslate_Success(t *testing.T) {
	tr := echoTranslator([]string{"en", "uk"})
	svc := New(tr, &fakeSynth{}, nil, Options{})

	out, err := svc.Translate(context.Background(), TranslateInput{Text: "Привіт"})
	require.NoError(t, err)
	assert.Equal(t, "[en] Привіт", out.TranslatedText)
	assert.Equal(t, "fake", out.Service)
	assert.Equal(t, "auto", tr.lastReq.SourceLang)
	assert.Empty(t, tr.lastReq.SourceHint)
	assert.Equal(t, "en", tr.lastReq.TargetLang)
}

func TestTranslate_ForwardsTextVerbatim(t *testing.T) {
	tr := echoTranslator(nil)
	svc := New(tr, &fakeSynth{}, nil, Options{})

	text := "  Перший рядок.\n\n  Другий рядок.\n"
	_, err := svc.Translate(context.Background(), TranslateInput{Text: text, TargetLang: "en"})
	require.NoError(t, err)
	assert.Equal(t, text, tr.lastReq.Text)
}

func TestTranslate_SourceHint(t *testing.T) {
	det := detector.New("en", "es", "fr")
	spanish := "¿Dónde está la biblioteca? Necesito encontrar un libro para mi clase de historia."

	tests := []struct {
		name       string
		in         TranslateInput
		wantSource string
		wantHint   string
	}{
		{name: "detected for auto", in: TranslateInput{Text: spanish, TargetLang: "fr"}, wantSource: "auto", wantHint: "es"},
		{name: "explicit source", in: TranslateInput{Text: spanish, TargetLang: "fr", SourceLang: "es"}, wantSource: "es"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := echoTranslator(nil)
			svc := New(tr, &fakeSynth{}, nil, Options{Detector: det})

			_, err := svc.Translate(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, tr.lastReq.SourceLang)
			assert.Equal(t, tt.wantHint, tr.lastReq.SourceHint)
		})
	}
}

func TestTranslate_SourceHintReachesMyMemory(t *testing.T) {
	var langpair string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		langpair = r.URL.Query().Get("langpair")
		w.Write([]byte(`{"responseData":{"translatedText":"Où est la bibliothèque ?","match":0.9},"responseStatus":200,"responseDetails":""}`))
	}))
	defer upstream.Close()

	mm := translator.NewMyMemoryService("", upstream.URL)
	orch := orchestrator.New([]translator.TranslationService{mm}, orchestrator.OrchestratorConfig{MaxAttempts: 1}, nil)
	svc := New(orch, &fakeSynth{}, nil, Options{Detector: detector.New("en", "es", "fr")})

	out, err := svc.Translate(context.Background(), TranslateInput{
		Text:       "¿Dónde está la biblioteca? Necesito encontrar un libro para mi clase de historia.",
		TargetLang: "fr",
	})
	require.NoError(t, err)
	assert.Equal(t, "Où est la bibliothèque ?", out.TranslatedText)
	assert.Equal(t, "es|fr", langpair)
}

func TestTranslate_InputErrors(t *testing.T) {
	tr := echoTranslator([]string{"en", "uk"})
	svc := New(tr, &fakeSynth{}, nil, Options{})

	tests := []struct {
		name   string
		in     TranslateInput
		class  error
		status int
	}{
		{name: "empty text", in: TranslateInput{Text: "   "}, class: ErrInvalidInput, status: http.StatusBadRequest},
		{name: "malformed target", in: TranslateInput{Text: "hi", TargetLang: "not a code"}, class: ErrInvalidInput, status: http.StatusBadRequest},
		{name: "unknown target", in: TranslateInput{Text: "hi", TargetLang: "zz"}, class: ErrUnsupportedLanguage, status: http.StatusBadRequest},
		{name: "unlisted target", in: TranslateInput{Text: "hi", TargetLang: "de"}, class: ErrUnsupportedLanguage, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := svc.Translate(context.Background(), tt.in)
			assert.Nil(t, out)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.class)
			assert.Equal(t, tt.status, StatusFor(err))
		})
	}
	assert.Zero(t, tr.calls.Load(), "upstream must not be called for rejected input")
}

func TestTranslate_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "rejected language", err: fmt.Errorf("googleweb: %w", translator.ErrUnsupportedLanguage), status: http.StatusBadRequest},
		{name: "deadline", err: fmt.Errorf("googleweb: %w", context.DeadlineExceeded), status: http.StatusGatewayTimeout},
		{name: "server error", err: errors.New("googleweb: API returned status 503"), status: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			tr := &fakeTranslator{fn: func(translator.TranslateRequest) (*translator.ServiceResult, error) {
				return nil, tt.err
			}}
			svc := New(tr, &fakeSynth{}, zap.New(core), Options{})

			_, err := svc.Translate(context.Background(), TranslateInput{Text: "hello", TargetLang: "uk"})
			require.Error(t, err)
			assert.Equal(t, tt.status, StatusFor(err))
			assert.Equal(t, 1, logs.FilterMessage("translation failed").Len())
		})
	}
}

func TestTranslate_UnsupportedMessage(t *testing.T) {
	svc := New(echoTranslator([]string{"en"}), &fakeSynth{}, nil, Options{})

	_, err := svc.Translate(context.Background(), TranslateInput{Text: "hello", TargetLang: "zz"})
	assert.EqualError(t, err, "invalid destination language: zz")
}

func TestTranslate_EmptyResult(t *testing.T) {
	tr := &fakeTranslator{fn: func(translator.TranslateRequest) (*translator.ServiceResult, error) {
		return &translator.ServiceResult{ServiceName: "fake", TranslatedText: "  "}, nil
	}}
	svc := New(tr, &fakeSynth{}, nil, Options{})

	_, err := svc.Translate(context.Background(), TranslateInput{Text: "hello"})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestTranslate_Cache(t *testing.T) {
	cache := newStore(t)
	tr := echoTranslator(nil)
	svc := New(tr, &fakeSynth{}, nil, Options{Cache: cache})

	first, err := svc.Translate(context.Background(), TranslateInput{Text: "hello", SourceLang: "en", TargetLang: "uk"})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Translate(context.Background(), TranslateInput{Text: "hello", SourceLang: "en", TargetLang: "uk"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.TranslatedText, second.TranslatedText)
	assert.Equal(t, int32(1), tr.calls.Load())
}

func TestTranslate_CacheUsesDetectedLanguage(t *testing.T) {
	cache := newStore(t)
	tr := &fakeTranslator{fn: func(req translator.TranslateRequest) (*translator.ServiceResult, error) {
		return &translator.ServiceResult{
			ServiceName:    "fake",
			TranslatedText: "Hallo",
			Metadata:       map[string]string{"detected_lang": "EN"},
		}, nil
	}}
	svc := New(tr, &fakeSynth{}, nil, Options{Cache: cache})

	out, err := svc.Translate(context.Background(), TranslateInput{Text: "hello", TargetLang: "de"})
	require.NoError(t, err)
	assert.Equal(t, "en", out.SourceLang)

	text, found, err := cache.GetCachedTranslation(context.Background(), "hello", "en", "de")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Hallo", text)
}

func TestTranslate_Glossary(t *testing.T) {
	cache := newStore(t)
	require.NoError(t, cache.AddGlossaryTerm(context.Background(), "en", "uk", "gateway", "шлюз"))

	tr := echoTranslator(nil)
	svc := New(tr, &fakeSynth{}, nil, Options{Cache: cache})

	_, err := svc.Translate(context.Background(), TranslateInput{Text: "the gateway", SourceLang: "en", TargetLang: "uk"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"gateway": "шлюз"}, tr.lastReq.GlossaryTerms)
}

func TestSpeak_Success(t *testing.T) {
	mp3 := fixtureMP3(t)
	syn := &fakeSynth{audio: mp3}
	svc := New(echoTranslator(nil), syn, nil, Options{})

	out, err := svc.Speak(context.Background(), SpeakInput{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, mp3, out.Audio)
	assert.Greater(t, out.Duration.Seconds(), 0.5)
	assert.False(t, out.Cached)
}

func TestSpeak_Markdown(t *testing.T) {
	syn := &fakeSynth{audio: fixtureMP3(t)}
	svc := New(echoTranslator(nil), syn, nil, Options{})

	_, err := svc.Speak(context.Background(), SpeakInput{Text: "# Title\n\nSome **bold** text.", Format: "markdown"})
	require.NoError(t, err)
	assert.NotContains(t, syn.last, "#")
	assert.NotContains(t, syn.last, "*")
	assert.Contains(t, syn.last, "Some bold text.")
}

func TestSpeak_Errors(t *testing.T) {
	tests := []struct {
		name  string
		in    SpeakInput
		synth *fakeSynth
		class error
		msg   string
	}{
		{name: "empty text", in: SpeakInput{Text: " "}, synth: &fakeSynth{}, class: ErrInvalidInput, msg: "no text to speak"},
		{name: "empty markdown", in: SpeakInput{Text: "<br>", Format: "markdown"}, synth: &fakeSynth{}, class: ErrInvalidInput},
		{name: "bad format", in: SpeakInput{Text: "hi", Format: "ssml"}, synth: &fakeSynth{}, class: ErrInvalidInput},
		{name: "unsupported language", in: SpeakInput{Text: "hi", Lang: "zz"}, synth: &fakeSynth{err: fmt.Errorf("%w: zz", speech.ErrUnsupportedLanguage)}, class: ErrUnsupportedLanguage, msg: "language not supported: zz"},
		{name: "provider down", in: SpeakInput{Text: "hi"}, synth: &fakeSynth{err: errors.New("API returned status 500")}, class: ErrUpstream},
		{name: "not audio", in: SpeakInput{Text: "hi"}, synth: &fakeSynth{audio: []byte("<html>")}, class: ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(echoTranslator(nil), tt.synth, nil, Options{})
			out, err := svc.Speak(context.Background(), tt.in)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, tt.class)
			if tt.msg != "" {
				assert.EqualError(t, err, tt.msg)
			}
		})
	}
}

func TestSpeak_Cache(t *testing.T) {
	cache := newStore(t)
	syn := &fakeSynth{audio: fixtureMP3(t)}
	svc := New(echoTranslator(nil), syn, nil, Options{Cache: cache, SpeechMaxBytes: 1 << 20})

	_, err := svc.Speak(context.Background(), SpeakInput{Text: "hello", Lang: "en"})
	require.NoError(t, err)

	out, err := svc.Speak(context.Background(), SpeakInput{Text: "hello", Lang: "EN"})
	require.NoError(t, err)
	assert.True(t, out.Cached)
	assert.Equal(t, int32(1), syn.calls.Load())
	assert.Greater(t, out.Duration.Seconds(), 0.5)
}

func TestSpeak_CacheKeyedByVoice(t *testing.T) {
	cache := newStore(t)
	mp3 := fixtureMP3(t)
	opts := Options{Cache: cache, SpeechMaxBytes: 1 << 20}

	alloy := &fakeSynth{audio: mp3, voice: "alloy"}
	_, err := New(echoTranslator(nil), alloy, nil, opts).Speak(context.Background(), SpeakInput{Text: "hello", Lang: "en"})
	require.NoError(t, err)

	nova := &fakeSynth{audio: mp3, voice: "nova"}
	svc := New(echoTranslator(nil), nova, nil, opts)
	out, err := svc.Speak(context.Background(), SpeakInput{Text: "hello", Lang: "en"})
	require.NoError(t, err)
	assert.False(t, out.Cached)
	assert.Equal(t, int32(1), nova.calls.Load())

	out, err = svc.Speak(context.Background(), SpeakInput{Text: "hello", Lang: "en"})
	require.NoError(t, err)
	assert.True(t, out.Cached)
	assert.Equal(t, int32(1), nova.calls.Load())
}

func TestLanguages(t *testing.T) {
	tr := &fakeTranslator{services: []translator.TranslationService{
		&fakeBackend{name: "a", langs: []string{"uk", "EN"}},
		&fakeBackend{name: "b", langs: []string{"de", "en"}},
	}}
	svc := New(tr, &fakeSynth{langs: map[string]string{"uk": "Ukrainian", "en": "English"}}, nil, Options{})

	out := svc.Languages(context.Background())
	assert.Equal(t, []string{"de", "en", "uk"}, out.Translation)
	assert.Equal(t, []string{"en", "uk"}, out.Speech)

	tr.services = append(tr.services, &fakeBackend{name: "open"})
	out = New(tr, &fakeSynth{}, nil, Options{}).Languages(context.Background())
	assert.Nil(t, out.Translation)
	assert.Nil(t, out.Speech)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusFor(nil))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("other")))
	assert.Equal(t, http.StatusBadGateway, StatusFor(withClass(ErrUpstream, errors.New("x"))))
	assert.Equal(t, http.StatusBadRequest, StatusFor(invalid("bad %s", "thing")))
}
