// Package validator checks that a translation came back in the requested
// language.
package validator

import (
	"fmt"
	"strings"

	"github.com/valpere/perevoice/internal/detector"
)

// minValidationLength is the rune count below which detection is too
// unreliable to act on.
const minValidationLength = 20

type Validator struct {
	det *detector.Detector
}

func New(det *detector.Detector) *Validator {
	if det == nil {
		det = detector.New()
	}
	return &Validator{det: det}
}

// IsValid reports whether translatedText appears to be in targetLang.
// Region subtags are ignored, so "zh-CN" accepts Chinese. Short texts and
// texts whose language cannot be determined pass.
func (v *Validator) IsValid(translatedText, targetLang string) (bool, error) {
	if targetLang == "" {
		return true, nil
	}

	text := strings.TrimSpace(translatedText)
	if text == "" {
		return false, fmt.Errorf("translation is empty")
	}

	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		return true, nil
	}

	if want := detector.BaseCode(targetLang); detected != want {
		return false, fmt.Errorf("expected %s but detected %s", want, detected)
	}

	return true, nil
}
