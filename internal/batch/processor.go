// Package batch orchestrates synthesis across the chapters of one
// book, skipping chapters whose audio already exists in the output
// directory.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/quillcast/quillcast/internal/book"
	"github.com/quillcast/quillcast/internal/bus"
	"github.com/quillcast/quillcast/internal/library"
	"github.com/quillcast/quillcast/internal/protocol"
	"github.com/quillcast/quillcast/internal/rewrite"
)

// Narrator produces one audio artifact from one text. Satisfied by
// synth.Engine.
type Narrator interface {
	SynthesizeToFile(ctx context.Context, text, dest string) (string, error)
}

// Options carries the optional collaborators of a Processor.
type Options struct {
	Rewriter rewrite.Rewriter
	Bus      *bus.Client
	Library  *library.Store
}

// Processor walks a book's chapters in order and narrates each one
// into <output>/<book title>/<chapter title>.wav.
type Processor struct {
	book     *book.Book
	dir      string
	narrator Narrator
	rewriter rewrite.Rewriter
	bus      *bus.Client
	store    *library.Store
	log      *slog.Logger
}

func New(b *book.Book, outputDir string, narrator Narrator, opts Options, log *slog.Logger) *Processor {
	return &Processor{
		book:     b,
		dir:      filepath.Join(outputDir, book.FileTitle(b.Title)),
		narrator: narrator,
		rewriter: opts.Rewriter,
		bus:      opts.Bus,
		store:    opts.Library,
		log:      log.With(slog.String("component", "batch"), slog.String("book", b.Title)),
	}
}

// Dir returns the book's artifact directory.
func (p *Processor) Dir() string { return p.dir }

// AttachExisting lists the book directory and attaches artifacts to
// chapters whose title matches the file stem. Matching is by title
// equality only: a chapter whose body changed since a prior run is not
// detected as stale and must be re-synthesized explicitly.
func (p *Processor) AttachExisting() error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("create book dir: %w", err)
	}
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return fmt.Errorf("list existing audio: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".wav") {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), ".wav")
		for i := range p.book.Chapters {
			ch := &p.book.Chapters[i]
			if book.FileTitle(ch.Title) == stem {
				ch.AudioPath = filepath.Join(p.dir, entry.Name())
				p.log.Info("found existing audio", slog.String("chapter", ch.Title))
				break
			}
		}
	}
	return nil
}

// Chapter narrates one chapter unconditionally, overwriting any prior
// artifact. This is the explicit re-synthesis path.
func (p *Processor) Chapter(ctx context.Context, index int) (string, error) {
	if index < 0 || index >= len(p.book.Chapters) {
		return "", fmt.Errorf("chapter index %d out of range (book has %d)", index, len(p.book.Chapters))
	}
	ch := &p.book.Chapters[index]
	p.publish(protocol.SubjectChapterStarted, p.chapterEvent(index, "", ""))

	body := ch.Body
	if p.rewriter != nil {
		rewritten, err := p.rewriter.Rewrite(ctx, body)
		if err != nil {
			p.finishChapter(ctx, index, "", "error", err)
			return "", fmt.Errorf("rewrite chapter %q: %w", ch.Title, err)
		}
		body = rewritten
	}

	dest := filepath.Join(p.dir, book.FileTitle(ch.Title)+".wav")
	path, err := p.narrator.SynthesizeToFile(ctx, body, dest)
	if err != nil {
		p.finishChapter(ctx, index, "", "error", err)
		return "", fmt.Errorf("chapter %q: %w", ch.Title, err)
	}
	ch.AudioPath = path
	p.finishChapter(ctx, index, path, "ok", nil)
	return path, nil
}

// All narrates every chapter that does not already have audio, in
// original order, stopping at the first failure.
func (p *Processor) All(ctx context.Context) error {
	if err := p.AttachExisting(); err != nil {
		return err
	}
	p.log.Info("resuming book",
		slog.Int("chapters", len(p.book.Chapters)),
		slog.Int("remaining", len(p.book.Remaining())))
	skipped := 0
	for i := range p.book.Chapters {
		ch := &p.book.Chapters[i]
		if ch.AudioPath != "" {
			skipped++
			p.log.Info("skipping chapter with existing audio", slog.String("chapter", ch.Title))
			p.record(ctx, i, ch.AudioPath, "skipped", "")
			p.publish(protocol.SubjectChapterSkipped, p.chapterEvent(i, ch.AudioPath, ""))
			continue
		}
		if _, err := p.Chapter(ctx, i); err != nil {
			return err
		}
	}
	p.publish(protocol.SubjectBookDone, protocol.BookEvent{
		Book:      p.book.Title,
		Chapters:  len(p.book.Chapters),
		Skipped:   skipped,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (p *Processor) finishChapter(ctx context.Context, index int, path, status string, err error) {
	detail := ""
	subject := protocol.SubjectChapterDone
	if err != nil {
		detail = err.Error()
		subject = protocol.SubjectChapterFailed
	}
	p.record(ctx, index, path, status, detail)
	p.publish(subject, p.chapterEvent(index, path, detail))
}

func (p *Processor) chapterEvent(index int, path, detail string) protocol.ChapterEvent {
	return protocol.ChapterEvent{
		Book:      p.book.Title,
		Chapter:   p.book.Chapters[index].Title,
		Index:     index,
		AudioPath: path,
		Error:     detail,
		Timestamp: time.Now().UTC(),
	}
}

func (p *Processor) record(ctx context.Context, index int, path, status, detail string) {
	if p.store == nil {
		return
	}
	run := library.Run{
		Book:         p.book.Title,
		Chapter:      p.book.Chapters[index].Title,
		ChapterIndex: index,
		AudioPath:    path,
		Status:       status,
		Detail:       detail,
	}
	if err := p.store.RecordRun(ctx, run); err != nil {
		p.log.Warn("failed to record run", slog.String("error", err.Error()))
	}
}

func (p *Processor) publish(subject string, payload any) {
	if p.bus == nil {
		return
	}
	if !p.bus.Healthy() {
		p.log.Debug("bus unavailable, dropping event", slog.String("subject", subject))
		return
	}
	if err := p.bus.PublishJSON(subject, payload); err != nil {
		p.log.Warn("failed to publish event",
			slog.String("subject", subject),
			slog.String("error", err.Error()))
	}
}
