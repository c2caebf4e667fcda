package library

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/quillcast/quillcast/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenDisabled(t *testing.T) {
	s, err := Open(context.Background(), config.LibraryConfig{Enabled: false}, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.RecordRun(context.Background(), Run{Book: "b", Chapter: "c"}); err != nil {
		t.Fatalf("disabled store must accept writes as no-ops: %v", err)
	}
	runs, err := s.ListRuns(context.Background(), "b", 10)
	if err != nil || runs != nil {
		t.Fatalf("disabled store must return nothing, got %v, %v", runs, err)
	}
}

func TestRecordAndList(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.LibraryConfig{Enabled: true, Path: filepath.Join(tmp, "library.db")}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open library: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	run := Run{Book: "Dune", Chapter: "Chapter 1", ChapterIndex: 0, AudioPath: "/out/Chapter 1.wav", Status: "ok"}
	if err := s.RecordRun(context.Background(), run); err != nil {
		t.Fatalf("record run: %v", err)
	}
	runs, err := s.ListRuns(context.Background(), "Dune", 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].ID == "" {
		t.Fatal("expected generated run id")
	}
	if runs[0].Chapter != "Chapter 1" || runs[0].Status != "ok" {
		t.Fatalf("unexpected run: %+v", runs[0])
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.LibraryConfig{Enabled: true, Path: filepath.Join(tmp, "library.db"), MaxRuns: 2}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open library: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		s.clock = func() time.Time { return ts }
		if err := s.RecordRun(context.Background(), Run{Book: "b", Chapter: "c", ChapterIndex: i, Status: "ok"}); err != nil {
			t.Fatalf("record run %d: %v", i, err)
		}
	}
	if err := s.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}
	runs, err := s.ListRuns(context.Background(), "b", 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs after prune, got %d", len(runs))
	}
	if runs[0].ChapterIndex != 2 || runs[1].ChapterIndex != 3 {
		t.Fatalf("prune kept wrong runs: %+v", runs)
	}
}
