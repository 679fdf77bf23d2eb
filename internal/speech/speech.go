// Package speech turns text into MP3 audio through one of several
// text-to-speech providers.
package speech

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNoText is returned when nothing speakable remains after cleanup.
	ErrNoText = errors.New("no text to speak")

	// ErrUnsupportedLanguage is wrapped with the offending code.
	ErrUnsupportedLanguage = errors.New("language not supported")
)

// Synthesizer produces MP3 audio for text in the given language.
// Implementations are safe for concurrent use.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
	// Languages maps accepted codes to display names. A nil map means the
	// provider does not publish a list and accepts any code.
	Languages() map[string]string
}

// voiceKeyer is implemented by synthesizers whose audio depends on settings
// other than the text and language, such as the voice or the speed.
type voiceKeyer interface {
	VoiceKey() string
}

// CacheKey names the audio s produces: its name, followed by its voice
// settings when it has any. Audio cached under one key is never served
// after those settings change.
func CacheKey(s Synthesizer) string {
	if k, ok := s.(voiceKeyer); ok {
		if key := k.VoiceKey(); key != "" {
			return s.Name() + "/" + key
		}
	}
	return s.Name()
}

// Languages lists what the Google translate voice accepts.
var Languages = map[string]string{
	"af": "Afrikaans", "am": "Amharic", "ar": "Arabic", "bg": "Bulgarian",
	"bn": "Bengali", "bs": "Bosnian", "ca": "Catalan", "cs": "Czech",
	"cy": "Welsh", "da": "Danish", "de": "German", "el": "Greek",
	"en": "English", "es": "Spanish", "et": "Estonian", "eu": "Basque",
	"fi": "Finnish", "fr": "French", "fr-CA": "French (Canada)",
	"gl": "Galician", "gu": "Gujarati", "ha": "Hausa", "hi": "Hindi",
	"hr": "Croatian", "hu": "Hungarian", "id": "Indonesian", "is": "Icelandic",
	"it": "Italian", "iw": "Hebrew", "ja": "Japanese", "jw": "Javanese",
	"km": "Khmer", "kn": "Kannada", "ko": "Korean", "la": "Latin",
	"lt": "Lithuanian", "lv": "Latvian", "ml": "Malayalam", "mr": "Marathi",
	"ms": "Malay", "my": "Myanmar (Burmese)", "ne": "Nepali", "nl": "Dutch",
	"no": "Norwegian", "pa": "Punjabi (Gurmukhi)", "pl": "Polish",
	"pt": "Portuguese (Brazil)", "pt-PT": "Portuguese (Portugal)",
	"ro": "Romanian", "ru": "Russian", "si": "Sinhala", "sk": "Slovak",
	"sq": "Albanian", "sr": "Serbian", "su": "Sundanese", "sv": "Swedish",
	"sw": "Swahili", "ta": "Tamil", "te": "Telugu", "th": "Thai",
	"tl": "Filipino", "tr": "Turkish", "uk": "Ukrainian", "ur": "Urdu",
	"vi": "Vietnamese", "yue": "Cantonese", "zh": "Chinese (Mandarin)",
	"zh-CN": "Chinese (Simplified)", "zh-TW": "Chinese (Mandarin/Taiwan)",
}

// LanguageCodes returns the keys of langs in sorted order.
func LanguageCodes(langs map[string]string) []string {
	codes := make([]string, 0, len(langs))
	for code := range langs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// lookupLanguage resolves lang case-insensitively against langs and
// returns the canonical spelling.
func lookupLanguage(langs map[string]string, lang string) (string, error) {
	lang = strings.TrimSpace(lang)
	if _, ok := langs[lang]; ok {
		return lang, nil
	}
	for code := range langs {
		if strings.EqualFold(code, lang) {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
