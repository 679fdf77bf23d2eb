// Package postprocess strips the wrapping that chat models put around an
// otherwise plain translation.
package postprocess

import (
	"regexp"
	"strings"
)

var (
	// Closed reasoning blocks. RE2 has no backreferences, so each tag is
	// spelled out.
	reasoningRe = regexp.MustCompile(`(?is)<(?:think|thinking|reasoning|reflection)>.*?</(?:think|thinking|reasoning|reflection)>`)

	// A reasoning block the model never closed swallows the rest.
	openReasoningRe = regexp.MustCompile(`(?is)<(?:think|thinking|reasoning|reflection)>.*$`)

	// A reply wrapped whole in a code fence, optionally tagged (```text).
	fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*?)\\n?```$")

	// Lead-ins such as "Here is the translation:", "Sure, here's the
	// French translation:" or "Translated text:". The colon is mandatory.
	leadInRe = regexp.MustCompile(`(?i)^(?:(?:sure|certainly|of course)[,.!]?\s+)?(?:here(?:'s| is)\s+)?(?:the\s+)?(?:[a-z]+\s+)?(?:translation|translated text)(?:\s+(?:into|to)\s+[a-z]+)?\s*:\s*`)
)

// quotePairs are the opening/closing characters treated as wrapping.
var quotePairs = map[rune]rune{
	'"':  '"',
	'\'': '\'',
	'«':  '»',
	'“':  '”',
	'‘':  '’',
	'„':  '“',
}

// Clean removes reasoning blocks, a whole-reply code fence, a lead-in
// phrase and one level of wrapping quotes, then trims the result.
func Clean(text string) string {
	text = reasoningRe.ReplaceAllString(text, "")
	text = openReasoningRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	if loc := leadInRe.FindStringIndex(text); loc != nil {
		text = strings.TrimSpace(text[loc[1]:])
	}

	return strings.TrimSpace(unquote(text))
}

func unquote(text string) string {
	runes := []rune(text)
	if len(runes) < 2 {
		return text
	}
	closing, ok := quotePairs[runes[0]]
	if !ok || runes[len(runes)-1] != closing {
		return text
	}
	inner := runes[1 : len(runes)-1]
	// "a" and "b" is two quoted spans, not one wrapped reply.
	for _, r := range inner {
		if r == runes[0] && r == closing {
			return text
		}
	}
	return string(inner)
}
