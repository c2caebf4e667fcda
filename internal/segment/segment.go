// Package segment splits long-form text into bounded units that a
// speech synthesizer will accept. Splitting is pure and deterministic:
// unit boundaries fall on sentence boundaries, and only a sentence
// that itself exceeds the budget is subdivided further.
package segment

import (
	"strings"
	"unicode/utf8"
)

// Unit is one synthesizer-safe piece of text. Indices are assigned in
// document order, exactly 0..N-1 for one input.
type Unit struct {
	Index int
	Text  string
}

// Split cuts text into units of at most maxChars characters, grouping
// consecutive sentences greedily. A single sentence longer than the
// budget is subdivided at a comma, then a space, then hard at the
// limit, with a period closing every inserted cut so each unit remains
// speakable on its own.
func Split(text string, maxChars int) []Unit {
	if maxChars <= 0 || strings.TrimSpace(text) == "" {
		return nil
	}

	var units []Unit
	var run strings.Builder
	flush := func() {
		s := strings.TrimSpace(run.String())
		run.Reset()
		if s != "" {
			units = append(units, Unit{Index: len(units), Text: s})
		}
	}

	for _, sentence := range sentences(text) {
		parts := []string{sentence}
		if len(sentence) > maxChars {
			parts = splitLong(sentence, maxChars)
		}
		for _, part := range parts {
			if run.Len() > 0 && run.Len()+1+len(part) > maxChars {
				flush()
			}
			if run.Len() > 0 {
				run.WriteByte(' ')
			}
			run.WriteString(part)
		}
	}
	flush()
	return units
}

// InsertPeriods normalizes text ahead of extraction-time storage:
// every sentence ends with a period and no sentence exceeds maxLen.
// Paragraph breaks (newlines) are preserved.
func InsertPeriods(text string, maxLen int) string {
	paragraphs := strings.Split(text, "\n")
	out := make([]string, 0, len(paragraphs))
	for _, para := range paragraphs {
		var fixed []string
		for _, sentence := range sentences(para) {
			if maxLen > 0 && len(sentence) > maxLen {
				fixed = append(fixed, splitLong(sentence, maxLen)...)
				continue
			}
			if !strings.HasSuffix(sentence, ".") {
				sentence += "."
			}
			fixed = append(fixed, sentence)
		}
		out = append(out, strings.Join(fixed, " "))
	}
	return strings.Join(out, "\n")
}

// sentences performs the coarse split: terminal punctuation followed
// by whitespace ends a sentence. Trailing text without punctuation is
// kept as a final sentence.
func sentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			j := i + 1
			for j < len(text) && isSpace(text[j]) {
				j++
			}
			if j == i+1 && j < len(text) {
				continue
			}
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				out = append(out, s)
			}
			start = j
			i = j - 1
		}
	}
	if start < len(text) {
		if s := strings.TrimSpace(text[start:]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// splitLong subdivides one over-budget sentence. The cut point is the
// last comma under the limit, else the last space, else the limit
// itself. Every emitted fragment except an empty trailing remainder is
// closed with a period (replacing the comma when the cut hit one).
// Iterative rather than recursive so pathological unpunctuated input
// cannot exhaust the stack.
func splitLong(sentence string, maxLen int) []string {
	var parts []string
	rest := strings.TrimSpace(sentence)
	for len(rest) > maxLen {
		cut := strings.LastIndexByte(rest[:maxLen], ',')
		atComma := cut > 0
		if cut <= 0 {
			cut = strings.LastIndexByte(rest[:maxLen], ' ')
		}
		if cut <= 0 {
			// Hard cut. Byte offsets may land inside a multi-byte
			// rune, so back off to the nearest rune boundary.
			cut = maxLen
			for cut > 0 && !utf8.RuneStart(rest[cut]) {
				cut--
			}
			if cut == 0 {
				_, cut = utf8.DecodeRuneInString(rest)
			}
			atComma = false
		}
		head := strings.TrimSpace(rest[:cut])
		if atComma {
			rest = strings.TrimSpace(rest[cut+1:])
		} else {
			rest = strings.TrimSpace(rest[cut:])
		}
		head = strings.TrimSuffix(head, ",")
		if head != "" {
			parts = append(parts, head+".")
		}
	}
	if rest != "" {
		if !strings.HasSuffix(rest, ".") {
			rest += "."
		}
		if rest != "." {
			parts = append(parts, rest)
		}
	}
	return parts
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
