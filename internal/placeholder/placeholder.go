// Package placeholder shields spans that must survive translation
// untouched (code, markup, URLs, e-mail addresses) behind numbered [PHn]
// markers, and puts them back afterwards.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// protectedRe lists the protected span kinds in priority order: the
// leftmost alternative wins when two could start at the same offset.
// They are fenced code, inline code, HTML/XML tags, URLs (minus trailing
// punctuation) and e-mail addresses.
var protectedRe = regexp.MustCompile(strings.Join([]string{
	"(?s)```.*?```",
	"`[^`\n]+`",
	`</?[A-Za-z][^<>]*>`,
	`https?://[^\s<>"'\x60]*[^\s<>"'\x60.,;:!?)]`,
	`[\w.+-]+@[\w-]+(?:\.[\w-]+)+`,
}, "|"))

var markerRe = regexp.MustCompile(`\[PH(\d+)\]`)

// Protect replaces protected spans with [PH0], [PH1], ... in order of
// appearance. It returns the rewritten text and the captured originals.
func Protect(text string) (string, []string) {
	var markers []string
	out := protectedRe.ReplaceAllStringFunc(text, func(match string) string {
		markers = append(markers, match)
		return marker(len(markers) - 1)
	})
	return out, markers
}

// Restore puts the originals back. Markers with an unknown index are left
// as they are.
func Restore(text string, markers []string) string {
	if len(markers) == 0 {
		return text
	}
	return markerRe.ReplaceAllStringFunc(text, func(match string) string {
		idx, err := strconv.Atoi(markerRe.FindStringSubmatch(match)[1])
		if err != nil || idx >= len(markers) {
			return match
		}
		return markers[idx]
	})
}

// InstructionHint is appended to LLM prompts when markers are present.
func InstructionHint() string {
	return "Keep every [PHn] marker exactly as written; do not translate, move or drop them."
}

// Validate returns the indices of markers missing from text.
func Validate(text string, markers []string) []int {
	var missing []int
	for i := range markers {
		if !strings.Contains(text, marker(i)) {
			missing = append(missing, i)
		}
	}
	return missing
}

func marker(i int) string {
	return fmt.Sprintf("[PH%d]", i)
}
