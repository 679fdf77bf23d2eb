// Package markdown turns Markdown into plain text suitable for a speech
// engine, so that markup characters are not read aloud.
package markdown

import (
	stdhtml "html"
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

var (
	tagRe = regexp.MustCompile(`<[^>]*>`)

	// Block-level closing tags end a spoken sentence.
	blockEndRe = regexp.MustCompile(`(?i)</(?:p|h[1-6]|li|blockquote|pre|tr|div)>|<br\s*/?>`)

	spaceRe = regexp.MustCompile(`[ \t]+`)
	lineRe  = regexp.MustCompile(`\s*\n\s*`)
)

// ToHTML renders Markdown with the common extensions and no typographic
// substitutions.
func ToHTML(md []byte) string {
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.FlagsNone})
	p := parser.NewWithExtensions(parser.CommonExtensions)
	return string(markdown.Render(p.Parse(md), renderer))
}

// ToSpeechText renders md and drops all markup. Each block element ends on
// its own line; entities are decoded and runs of blanks collapsed.
func ToSpeechText(md []byte) string {
	out := ToHTML(md)
	out = blockEndRe.ReplaceAllString(out, "\n")
	out = tagRe.ReplaceAllString(out, "")
	out = stdhtml.UnescapeString(out)
	out = spaceRe.ReplaceAllString(out, " ")
	out = lineRe.ReplaceAllString(out, "\n")
	return strings.TrimSpace(out)
}
