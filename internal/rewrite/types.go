package rewrite

import (
	"context"
	"fmt"
	"strings"

	"github.com/quillcast/quillcast/internal/config"
)

// Rewriter transforms raw document text (formulas, tables, markup)
// into a rendition that reads naturally when spoken.
type Rewriter interface {
	Rewrite(ctx context.Context, text string) (string, error)
}

const (
	startTag = "<TTS_START>"
	endTag   = "<TTS_END>"
)

const systemPrompt = `Convert text to a format optimized for Text-to-Speech (TTS) systems. Follow these instructions:

- Use clear language and natural speech patterns.
- Describe mathematical formulas in spoken words.
- Summarize tables, highlighting key points and trends.
- Omit or briefly describe non-verbal elements (LaTeX commands, HTML tags, code comments, markup syntax).
- Replace URL links with "link" or a brief description if relevant.
- Spell out acronyms and abbreviations on first use.
- Use punctuation to guide pauses and intonation.
- Stay as close as possible to the original text while adhering to the guidelines.

Enclose the converted text between ` + startTag + ` and ` + endTag + ` tags.`

// extractEnvelope returns the text between the start and end tags. A
// missing tag means the model did not finish the conversion; the
// caller gets an error rather than half-converted text.
func extractEnvelope(raw string) (string, error) {
	start := strings.Index(raw, startTag)
	if start == -1 {
		return "", fmt.Errorf("rewrite: response missing %s tag", startTag)
	}
	end := strings.Index(raw, endTag)
	if end == -1 {
		return "", fmt.Errorf("rewrite: response missing %s tag", endTag)
	}
	if end < start {
		return "", fmt.Errorf("rewrite: malformed response envelope")
	}
	return strings.TrimSpace(raw[start+len(startTag) : end]), nil
}

// FromConfig selects a rewriter by mode.
func FromConfig(cfg config.RewriteConfig) (Rewriter, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockRewriter(), nil
	case "ollama":
		return NewOllamaRewriter(cfg), nil
	default:
		return nil, fmt.Errorf("unknown rewrite mode %q", cfg.Mode)
	}
}
