package postprocess

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty string", input: "", expected: ""},
		{name: "plain text", input: "Bonjour le monde.", expected: "Bonjour le monde."},
		{name: "surrounding whitespace", input: "  \n Hola \t", expected: "Hola"},

		// reasoning blocks
		{name: "think block", input: "<think>the user wants French</think>Bonjour", expected: "Bonjour"},
		{name: "reasoning block mid text", input: "Guten<reasoning>grammar</reasoning> Tag", expected: "Guten Tag"},
		{name: "uppercase tags", input: "<THINKING>x</THINKING>Ciao", expected: "Ciao"},
		{name: "multiline block", input: "<thinking>\nline one\nline two\n</thinking>\nOlá", expected: "Olá"},
		{name: "unclosed block", input: "Привіт<thinking>still going", expected: "Привіт"},
		{name: "only unclosed block", input: "<reflection>cut off", expected: ""},

		// code fences
		{name: "fenced reply", input: "```\nBonjour\n```", expected: "Bonjour"},
		{name: "tagged fence", input: "```text\nHallo Welt\n```", expected: "Hallo Welt"},
		{name: "inner fence untouched", input: "Voir:\n```go\nx := 1\n```", expected: "Voir:\n```go\nx := 1\n```"},

		// lead-ins
		{name: "here is the translation", input: "Here is the translation: Bonjour", expected: "Bonjour"},
		{name: "here's with language", input: "Here's the French translation:\nBonjour", expected: "Bonjour"},
		{name: "sure prefix", input: "Sure, here is the translation: Hola", expected: "Hola"},
		{name: "translation into", input: "Translation into German: Hallo", expected: "Hallo"},
		{name: "translated text", input: "Translated text: Ciao", expected: "Ciao"},
		{name: "no colon kept", input: "Translation is an art", expected: "Translation is an art"},
		{name: "lead-in not at start", input: "Il a dit: Here is the translation: x", expected: "Il a dit: Here is the translation: x"},

		// quotes
		{name: "double quotes", input: `"Bonjour"`, expected: "Bonjour"},
		{name: "single quotes", input: "'Hola'", expected: "Hola"},
		{name: "guillemets", input: "«Привіт»", expected: "Привіт"},
		{name: "curly quotes", input: "“Hallo”", expected: "Hallo"},
		{name: "german low quote", input: "„Hallo“", expected: "Hallo"},
		{name: "two quoted spans kept", input: `"a" and "b"`, expected: `"a" and "b"`},
		{name: "mismatched quotes kept", input: `"Hola'`, expected: `"Hola'`},
		{name: "single quote char", input: `"`, expected: `"`},

		// combined
		{name: "all artifacts", input: "<think>hmm</think>\nHere is the translation: \"Bonjour\"", expected: "Bonjour"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.input); got != tt.expected {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestUnquote_Short(t *testing.T) {
	if got := unquote(""); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
	if got := unquote(`""`); got != "" {
		t.Errorf("expected empty inner, got %q", got)
	}
}
