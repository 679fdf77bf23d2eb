package translator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/valpere/perevoice/internal/placeholder"
)

// buildSystemPrompt is shared by the LLM-backed services. Glossary terms
// are listed in sorted order so identical requests produce identical
// prompts.
func buildSystemPrompt(sourceLang, targetLang string, glossary map[string]string, hasMarkers bool) string {
	if isAuto(sourceLang) {
		sourceLang = "the detected language"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a professional translator. Translate the following text from %s to %s.\n", sourceLang, targetLang)
	sb.WriteString("Only respond with the translation, nothing else. No explanations, no quotes, just the translation.")

	if hasMarkers {
		sb.WriteString(" ")
		sb.WriteString(placeholder.InstructionHint())
	}

	if len(glossary) > 0 {
		terms := make([]string, 0, len(glossary))
		for src := range glossary {
			terms = append(terms, src)
		}
		sort.Strings(terms)

		sb.WriteString("\n\nTERMINOLOGY (use these exact translations):\n")
		for _, src := range terms {
			fmt.Fprintf(&sb, "  %s -> %s\n", src, glossary[src])
		}
	}

	return sb.String()
}
