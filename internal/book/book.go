package book

import "strings"

// Chapter is one narration unit of a book or paper. AudioPath is empty
// until synthesis has produced an artifact for the chapter.
type Chapter struct {
	Title     string
	Body      string
	AudioPath string
}

// Book holds the ordered chapters produced by text extraction.
type Book struct {
	Title    string
	Author   string
	Chapters []Chapter
}

// Remaining returns the indices of chapters that have no audio yet.
func (b *Book) Remaining() []int {
	var idx []int
	for i := range b.Chapters {
		if b.Chapters[i].AudioPath == "" {
			idx = append(idx, i)
		}
	}
	return idx
}

// FileTitle maps a title onto a name usable as a single path element.
// Artifacts are matched back to chapters by this name, so the mapping
// must be stable across runs.
func FileTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "untitled"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, title)
}
