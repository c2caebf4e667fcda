package protocol

import "time"

// ChapterEvent reports progress for one chapter of a batch run.
type ChapterEvent struct {
	Book      string    `json:"book"`
	Chapter   string    `json:"chapter"`
	Index     int       `json:"index"`
	AudioPath string    `json:"audio_path,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// BookEvent reports completion of a whole book.
type BookEvent struct {
	Book      string    `json:"book"`
	Chapters  int       `json:"chapters"`
	Skipped   int       `json:"skipped"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectChapterStarted = "audiobook.chapter.started"
	SubjectChapterDone    = "audiobook.chapter.done"
	SubjectChapterSkipped = "audiobook.chapter.skipped"
	SubjectChapterFailed  = "audiobook.chapter.failed"
	SubjectBookDone       = "audiobook.book.done"
)
