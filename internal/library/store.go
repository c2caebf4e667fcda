package library

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/quillcast/quillcast/internal/config"
)

// Run is one recorded synthesis outcome for a chapter.
type Run struct {
	ID           string
	Book         string
	Chapter      string
	ChapterIndex int
	AudioPath    string
	Status       string // ok, skipped, error
	Detail       string
	CreatedAt    time.Time
}

// Store keeps a SQLite-backed ledger of synthesis runs, so prior work
// is inspectable across batch invocations.
type Store struct {
	db    *sql.DB
	cfg   config.LibraryConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the run ledger according to config. With the
// library disabled the returned store is a no-op.
func Open(ctx context.Context, cfg config.LibraryConfig, log *slog.Logger) (*Store, error) {
	if !cfg.Enabled {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
			log.Warn("library vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("library prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    book TEXT NOT NULL,
    chapter TEXT NOT NULL,
    chapter_index INTEGER NOT NULL,
    audio_path TEXT,
    status TEXT NOT NULL,
    detail TEXT,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_book_created ON runs(book, created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun writes one run into the ledger. Missing IDs and timestamps
// are filled in.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	if s == nil || s.db == nil {
		return nil
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(id, book, chapter, chapter_index, audio_path, status, detail, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Book, run.Chapter, run.ChapterIndex, run.AudioPath, run.Status, run.Detail, run.CreatedAt)
	return err
}

// ListRuns retrieves up to limit runs for a book, oldest first.
func (s *Store) ListRuns(ctx context.Context, book string, limit int) ([]Run, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, book, chapter, chapter_index, audio_path, status, detail, created_at
		 FROM runs WHERE book = ? ORDER BY created_at ASC LIMIT ?`, book, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var created string
		if err := rows.Scan(&r.ID, &r.Book, &r.Chapter, &r.ChapterIndex, &r.AudioPath, &r.Status, &r.Detail, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			r.CreatedAt = ts
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Prune keeps the ledger bounded at the configured number of runs,
// dropping the oldest first.
func (s *Store) Prune(ctx context.Context) error {
	if s == nil || s.db == nil || s.cfg.MaxRuns <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id IN (
		SELECT id FROM runs ORDER BY created_at DESC LIMIT -1 OFFSET ?
	)`, s.cfg.MaxRuns)
	return err
}
