// Package detector guesses the language of a text offline with lingua-go.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
	"golang.org/x/text/language"
)

// legacyCodes maps codes still accepted by Google endpoints to the ISO
// 639-1 code lingua reports.
var legacyCodes = map[string]string{
	"iw": "he",
	"jw": "jv",
	"in": "id",
}

// Detector is safe for concurrent use. Building one loads language models
// lazily, so share a single instance.
type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over the given ISO 639-1 codes, or over every
// language lingua knows when fewer than two usable codes are given.
func New(codes ...string) *Detector {
	var langs []lingua.Language
	for _, code := range codes {
		iso := lingua.GetIsoCode639_1FromValue(BaseCode(code))
		if lang := lingua.GetLanguageFromIsoCode639_1(iso); lang != lingua.Unknown {
			langs = append(langs, lang)
		}
	}

	builder := lingua.NewLanguageDetectorBuilder()
	if len(langs) >= 2 {
		return &Detector{detector: builder.FromLanguages(langs...).Build()}
	}
	return &Detector{detector: builder.FromAllLanguages().Build()}
}

// Detect returns the lingua language for text.
func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if strings.TrimSpace(text) == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the lower-case ISO 639-1 code for text.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// BaseCode reduces a BCP 47 tag such as "zh-CN" or "pt_BR" to its
// lower-case primary language subtag. Unparsable input is returned
// lower-cased.
func BaseCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(code, "_", "-")))
	if primary, _, found := strings.Cut(code, "-"); found {
		code = primary
	}
	if alias, ok := legacyCodes[code]; ok {
		return alias
	}
	if tag, err := language.Parse(code); err == nil {
		base, _ := tag.Base()
		return base.String()
	}
	return code
}
