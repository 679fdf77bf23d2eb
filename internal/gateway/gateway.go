// Package gateway implements the translate and speak operations behind the
// HTTP API: input checks, caching, language handling and error classes.
package gateway

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/valpere/perevoice/internal/detector"
	"github.com/valpere/perevoice/internal/markdown"
	"github.com/valpere/perevoice/internal/speech"
	"github.com/valpere/perevoice/internal/translator"
)

const (
	DefaultTargetLang = "en"
	DefaultSpeechLang = "en"

	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// Translator is satisfied by *orchestrator.Orchestrator.
type Translator interface {
	Translate(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error)
	Services() []translator.TranslationService
}

// Cache is satisfied by *store.Store. Cache errors never fail a request.
type Cache interface {
	GetCachedTranslation(ctx context.Context, sourceText, sourceLang, targetLang string) (string, bool, error)
	FuzzyGetCachedTranslation(ctx context.Context, sourceText, sourceLang, targetLang string, threshold float64) (string, bool, error)
	SaveToMemory(ctx context.Context, sourceText, sourceLang, targetLang, translatedText, serviceUsed string) error
	GetGlossaryTerms(ctx context.Context, sourceLang, targetLang string) (map[string]string, error)
	GetSpeech(ctx context.Context, provider, lang, text string) ([]byte, bool, error)
	SaveSpeech(ctx context.Context, provider, lang, text string, audio []byte, maxBytes int) (bool, error)
}

type Options struct {
	// ServiceConfig is passed to every translation backend.
	ServiceConfig translator.ServiceConfig
	// SourceLang is used when a request names none. Empty means "auto".
	SourceLang string
	// Cache is optional.
	Cache          Cache
	FuzzyThreshold float64
	SpeechMaxBytes int
	// Detector resolves "auto" source languages for cache and glossary
	// keys and for services that cannot detect the source. Optional.
	Detector *detector.Detector
}

// Service holds one shared translator and one shared synthesizer for the
// life of the process.
type Service struct {
	translator Translator
	speech     speech.Synthesizer
	logger     *zap.Logger
	opts       Options
}

func New(tr Translator, syn speech.Synthesizer, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		translator: tr,
		speech:     syn,
		logger:     logger,
		opts:       opts,
	}
}

type TranslateInput struct {
	Text       string
	TargetLang string
	SourceLang string
}

type TranslateOutput struct {
	TranslatedText string
	// SourceLang is the detected or requested source language, "auto" when
	// neither is known.
	SourceLang string
	Service    string
	Cached     bool
}

// Translate translates in.Text into in.TargetLang (default "en"). The
// text is sent upstream as given; surrounding whitespace is ignored only
// for the emptiness check and cache keys. The result either carries a
// translation or the error is non-nil, never both.
func (s *Service) Translate(ctx context.Context, in TranslateInput) (*TranslateOutput, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, invalid("text must not be empty")
	}

	target := strings.TrimSpace(in.TargetLang)
	if target == "" {
		target = DefaultTargetLang
	}
	if err := s.checkTarget(ctx, target); err != nil {
		return nil, err
	}

	source := strings.TrimSpace(in.SourceLang)
	if source == "" {
		source = s.opts.SourceLang
	}
	if source == "" {
		source = "auto"
	}
	keyLang := s.resolveSource(text, source)

	log := s.logger.With(zap.String("source_lang", keyLang), zap.String("target_lang", target), zap.Int("text_len", len(text)))

	if cached, ok := s.lookupTranslation(ctx, log, text, keyLang, target); ok {
		return &TranslateOutput{TranslatedText: cached, SourceLang: keyLang, Service: "cache", Cached: true}, nil
	}

	req := translator.TranslateRequest{
		Text:          in.Text,
		SourceLang:    source,
		TargetLang:    target,
		GlossaryTerms: s.glossary(ctx, log, keyLang, target),
	}
	if source == "auto" && keyLang != "auto" {
		req.SourceHint = keyLang
	}

	res, err := s.translator.Translate(ctx, s.opts.ServiceConfig, req)
	if err != nil {
		err = classify(err, target)
		log.Warn("translation failed", zap.Error(err))
		return nil, err
	}
	if res == nil || strings.TrimSpace(res.TranslatedText) == "" {
		return nil, withClass(ErrUpstream, errors.New("empty translation returned"))
	}

	if keyLang == "auto" && res.Metadata["detected_lang"] != "" {
		keyLang = strings.ToLower(res.Metadata["detected_lang"])
	}
	if note := res.Metadata["validation"]; note != "" {
		log.Warn("translation may be in the wrong language", zap.String("service", res.ServiceName), zap.String("validation", note))
	}

	if s.opts.Cache != nil && keyLang != "auto" {
		if err := s.opts.Cache.SaveToMemory(ctx, text, keyLang, target, res.TranslatedText, res.ServiceName); err != nil {
			log.Warn("cache write failed", zap.Error(err))
		}
	}

	log.Debug("translated", zap.String("service", res.ServiceName), zap.Duration("latency", res.Latency))

	return &TranslateOutput{
		TranslatedText: res.TranslatedText,
		SourceLang:     keyLang,
		Service:        res.ServiceName,
	}, nil
}

// checkTarget rejects malformed codes as invalid input and codes that no
// configured service accepts as unsupported. Services that publish no list
// accept anything well-formed.
func (s *Service) checkTarget(ctx context.Context, target string) error {
	if _, err := language.Parse(target); err != nil {
		var unknown language.ValueError
		if !errors.As(err, &unknown) {
			return invalid("malformed target_lang: %q", target)
		}
	}

	langs, open := s.translationLanguages(ctx)
	if open {
		return nil
	}
	want := strings.ToLower(target)
	for _, l := range langs {
		if strings.ToLower(l) == want {
			return nil
		}
	}
	return unsupported(target)
}

// resolveSource returns the language used for cache and glossary keys.
func (s *Service) resolveSource(text, source string) string {
	if source != "auto" {
		return strings.ToLower(source)
	}
	if s.opts.Detector == nil {
		return source
	}
	if code, ok := s.opts.Detector.DetectISO(text); ok {
		return code
	}
	return source
}

func (s *Service) lookupTranslation(ctx context.Context, log *zap.Logger, text, source, target string) (string, bool) {
	if s.opts.Cache == nil || source == "auto" {
		return "", false
	}

	cached, ok, err := s.opts.Cache.GetCachedTranslation(ctx, text, source, target)
	if err != nil {
		log.Warn("cache read failed", zap.Error(err))
		return "", false
	}
	if ok {
		return cached, true
	}

	cached, ok, err = s.opts.Cache.FuzzyGetCachedTranslation(ctx, text, source, target, s.opts.FuzzyThreshold)
	if err != nil {
		log.Warn("fuzzy cache read failed", zap.Error(err))
		return "", false
	}
	return cached, ok
}

func (s *Service) glossary(ctx context.Context, log *zap.Logger, source, target string) map[string]string {
	if s.opts.Cache == nil || source == "auto" {
		return nil
	}
	terms, err := s.opts.Cache.GetGlossaryTerms(ctx, source, target)
	if err != nil {
		log.Warn("glossary lookup failed", zap.Error(err))
		return nil
	}
	if len(terms) == 0 {
		return nil
	}
	return terms
}

type SpeakInput struct {
	Text string
	Lang string
	// Format is "text" (default) or "markdown".
	Format string
}

type SpeakOutput struct {
	Audio []byte
	// Duration is zero when the audio could not be measured.
	Duration time.Duration
	Cached   bool
}

// Speak synthesizes in.Text in in.Lang (default "en") as MP3.
func (s *Service) Speak(ctx context.Context, in SpeakInput) (*SpeakOutput, error) {
	lang := strings.TrimSpace(in.Lang)
	if lang == "" {
		lang = DefaultSpeechLang
	}

	text := in.Text
	switch strings.ToLower(strings.TrimSpace(in.Format)) {
	case "", FormatText:
	case FormatMarkdown:
		text = markdown.ToSpeechText([]byte(text))
	default:
		return nil, invalid("unknown format: %q", in.Format)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, withClass(ErrInvalidInput, speech.ErrNoText)
	}

	provider := speech.CacheKey(s.speech)

	if s.opts.Cache != nil {
		audio, ok, err := s.opts.Cache.GetSpeech(ctx, provider, lang, text)
		if err != nil {
			s.logger.Warn("speech cache read failed", zap.Error(err))
		} else if ok {
			return s.speakOutput(audio, true), nil
		}
	}

	audio, err := s.speech.Synthesize(ctx, text, lang)
	if err != nil {
		switch {
		case errors.Is(err, speech.ErrNoText):
			return nil, withClass(ErrInvalidInput, err)
		case errors.Is(err, speech.ErrUnsupportedLanguage):
			return nil, withClass(ErrUnsupportedLanguage, err)
		case errors.Is(err, context.DeadlineExceeded):
			return nil, withClass(ErrTimeout, err)
		default:
			return nil, withClass(ErrUpstream, err)
		}
	}
	if !speech.IsMP3(audio) {
		return nil, withClass(ErrUpstream, errors.New("speech provider returned no MP3 audio"))
	}

	if s.opts.Cache != nil {
		if _, err := s.opts.Cache.SaveSpeech(ctx, provider, lang, text, audio, s.opts.SpeechMaxBytes); err != nil {
			s.logger.Warn("speech cache write failed", zap.Error(err))
		}
	}

	return s.speakOutput(audio, false), nil
}

func (s *Service) speakOutput(audio []byte, cached bool) *SpeakOutput {
	out := &SpeakOutput{Audio: audio, Cached: cached}
	info, err := speech.Probe(audio)
	if err != nil {
		s.logger.Debug("audio not measurable", zap.Error(err))
		return out
	}
	out.Duration = info.Duration
	return out
}

type LanguagesOutput struct {
	Translation []string `json:"translation"`
	Speech      []string `json:"speech"`
}

// Languages lists the codes accepted by the configured services. A nil
// list means at least one service accepts any code.
func (s *Service) Languages(ctx context.Context) LanguagesOutput {
	var out LanguagesOutput
	if langs, open := s.translationLanguages(ctx); !open {
		out.Translation = langs
	}
	if langs := s.speech.Languages(); langs != nil {
		out.Speech = speech.LanguageCodes(langs)
	}
	return out
}

// translationLanguages returns the sorted union of published language
// lists; open is true when some service publishes none.
func (s *Service) translationLanguages(ctx context.Context) (langs []string, open bool) {
	services := s.translator.Services()
	if len(services) == 0 {
		return nil, true
	}

	seen := make(map[string]bool)
	for _, svc := range services {
		list, err := svc.SupportedLanguages(ctx)
		if err != nil || list == nil {
			return nil, true
		}
		for _, l := range list {
			if key := strings.ToLower(l); !seen[key] {
				seen[key] = true
				langs = append(langs, key)
			}
		}
	}
	sort.Strings(langs)
	return langs, false
}
