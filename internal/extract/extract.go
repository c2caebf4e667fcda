// Package extract reads plain-text and markdown manuscripts into
// books ready for narration.
package extract

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/quillcast/quillcast/internal/book"
	"github.com/quillcast/quillcast/internal/segment"
)

// Options controls how a manuscript is turned into chapters.
type Options struct {
	// Title overrides the book title derived from the file name.
	Title string
	// Author is recorded on the book; it is not narrated.
	Author string
	// MaxSentenceLength bounds sentence length during normalization.
	// Zero uses the segmenter as-is without forcing a bound.
	MaxSentenceLength int
}

// FromFile reads a manuscript from disk. Markdown level-one headings
// start new chapters; text before the first heading becomes a
// "Preface" chapter. A file with no headings yields a single chapter
// named after the book.
func FromFile(path string, opts Options) (*book.Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manuscript: %w", err)
	}
	defer f.Close()

	if opts.Title == "" {
		base := filepath.Base(path)
		opts.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return FromReader(f, opts)
}

// FromReader parses a manuscript from r.
func FromReader(r io.Reader, opts Options) (*book.Book, error) {
	if opts.Title == "" {
		opts.Title = "untitled"
	}

	b := &book.Book{Title: opts.Title, Author: opts.Author}
	var (
		current strings.Builder
		title   string
		sawAny  bool
	)
	flush := func() {
		body := normalize(current.String(), opts.MaxSentenceLength)
		current.Reset()
		if body == "" {
			return
		}
		name := title
		if name == "" {
			if sawAny {
				name = "Preface"
			} else {
				name = opts.Title
			}
		}
		b.Chapters = append(b.Chapters, book.Chapter{Title: name, Body: body})
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if heading, ok := headingTitle(line); ok {
			// Mark the heading before flushing so text ahead of it
			// becomes a Preface rather than a book-titled chapter.
			sawAny = true
			flush()
			title = heading
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read manuscript: %w", err)
	}
	flush()

	if len(b.Chapters) == 0 {
		return nil, errors.New("extract: manuscript has no readable text")
	}
	return b, nil
}

// headingTitle reports whether line is a markdown level-one heading
// and returns its text. Deeper headings stay in the chapter body so
// section titles are narrated in place.
func headingTitle(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "# ") {
		return "", false
	}
	title := strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
	if title == "" {
		return "", false
	}
	return title, true
}

// normalize collapses markdown noise the narrator should not read and
// bounds sentence length for the synthesis backend.
func normalize(text string, maxSentence int) string {
	var out strings.Builder
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		trimmed = strings.TrimLeft(trimmed, "#")
		trimmed = strings.TrimSpace(trimmed)
		trimmed = strings.ReplaceAll(trimmed, "*", "")
		trimmed = strings.ReplaceAll(trimmed, "`", "")
		out.WriteString(trimmed)
		out.WriteByte('\n')
	}
	cleaned := strings.TrimSpace(out.String())
	if cleaned == "" {
		return ""
	}
	if maxSentence > 0 {
		cleaned = segment.InsertPeriods(cleaned, maxSentence)
	}
	return cleaned
}
