// Package chunker cuts text into pieces small enough for upstream APIs
// with per-request length limits, breaking at sentence or clause ends
// where it can and at word boundaries where it must.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// boundaryPunct ends a segment when followed by whitespace or end of text.
const boundaryPunct = ".!?;:,…¡¿"

// fullWidthPunct ends a segment unconditionally (CJK text has no spaces).
const fullWidthPunct = "。！？；：，、"

// Chunk splits text into pieces of at most maxChars runes. Neighbouring
// sentences and clauses are packed together while they fit; a single
// segment longer than maxChars is split at the last space before the limit,
// or cut hard when it has none. Pieces are trimmed and empty ones dropped.
// maxChars <= 0 means no limit.
func Chunk(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}

	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
		curLen = 0
	}

	for _, seg := range Segments(text) {
		n := utf8.RuneCountInString(seg)
		if n > maxChars {
			flush()
			chunks = append(chunks, splitWords(seg, maxChars)...)
			continue
		}

		sep := 0
		if curLen > 0 {
			sep = 1
		}
		if curLen+sep+n > maxChars {
			flush()
			sep = 0
		}
		if sep == 1 {
			cur.WriteByte(' ')
		}
		cur.WriteString(seg)
		curLen += sep + n
	}
	flush()

	return chunks
}

// Piece is one chunk of a Split text together with the whitespace that
// followed it in the source. Joining Text+Sep over all pieces rebuilds the
// layout of the trimmed input.
type Piece struct {
	Text string
	Sep  string
}

// Split is Chunk for text whose layout has to survive a round trip. Whole
// lines are packed together with their original line breaks while they fit;
// a line longer than maxChars is cut with Chunk and its pieces are separated
// by a single space. maxChars <= 0 means no limit.
func Split(text string, maxChars int) []Piece {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return []Piece{{Text: text}}
	}

	var (
		pieces  []Piece
		cur     strings.Builder
		curLen  int
		pending string // break after the last line in cur
	)
	flush := func() {
		if cur.Len() > 0 {
			pieces = append(pieces, Piece{Text: cur.String(), Sep: pending})
		}
		cur.Reset()
		curLen = 0
		pending = ""
	}

	for _, ln := range splitLines(text) {
		n := utf8.RuneCountInString(ln.text)

		if curLen > 0 && curLen+utf8.RuneCountInString(pending)+n <= maxChars {
			cur.WriteString(pending)
			cur.WriteString(ln.text)
			curLen += utf8.RuneCountInString(pending) + n
			pending = ln.brk
			continue
		}
		flush()

		if n > maxChars {
			parts := Chunk(ln.text, maxChars)
			for i, part := range parts {
				sep := " "
				if i == len(parts)-1 {
					sep = ln.brk
				}
				pieces = append(pieces, Piece{Text: part, Sep: sep})
			}
			continue
		}

		cur.WriteString(ln.text)
		curLen = n
		pending = ln.brk
	}
	flush()

	return pieces
}

type line struct {
	text string
	brk  string
}

// splitLines cuts text at line breaks. A break is the whole run of
// whitespace around one or more newlines, so blank lines and indentation
// stay with it.
func splitLines(text string) []line {
	var lines []line
	for text != "" {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			lines = append(lines, line{text: text})
			break
		}
		start := len(strings.TrimRightFunc(text[:i], unicode.IsSpace))
		rest := strings.TrimLeftFunc(text[i:], unicode.IsSpace)
		end := len(text) - len(rest)
		lines = append(lines, line{text: text[:start], brk: text[start:end]})
		text = rest
	}
	return lines
}

// Segments splits text after sentence and clause punctuation and at line
// breaks. The punctuation stays with the segment it ends.
func Segments(text string) []string {
	runes := []rune(text)

	var segs []string
	start := 0
	emit := func(end int) {
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			segs = append(segs, s)
		}
		start = end
	}

	for i, r := range runes {
		switch {
		case r == '\n':
			emit(i + 1)
		case strings.ContainsRune(fullWidthPunct, r):
			emit(i + 1)
		case strings.ContainsRune(boundaryPunct, r):
			if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
				emit(i + 1)
			}
		}
	}
	emit(len(runes))

	return segs
}

// splitWords breaks one over-long segment at word boundaries.
func splitWords(seg string, maxChars int) []string {
	var pieces []string
	runes := []rune(seg)

	for len(runes) > maxChars {
		cut := -1
		for i := maxChars; i > 0; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
		if cut <= 0 {
			cut = maxChars
		}

		if s := strings.TrimSpace(string(runes[:cut])); s != "" {
			pieces = append(pieces, s)
		}
		runes = []rune(strings.TrimSpace(string(runes[cut:])))
	}
	if s := strings.TrimSpace(string(runes)); s != "" {
		pieces = append(pieces, s)
	}

	return pieces
}

// Speakable reports whether s contains at least one letter or digit.
// Pure punctuation makes speech endpoints fail.
func Speakable(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}
