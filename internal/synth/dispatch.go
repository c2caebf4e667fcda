package synth

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/quillcast/quillcast/internal/segment"
	"github.com/quillcast/quillcast/internal/tts"
)

// Result locates one unit's transient audio. Whoever consumes a Result
// owns removing the file.
type Result struct {
	Index int
	Path  string
}

// UnitError identifies the pipeline stage and unit index behind a
// failed synthesis operation.
type UnitError struct {
	Stage string
	Index int
	Err   error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("%s: unit %d: %v", e.Stage, e.Index, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

// dispatch synthesizes every unit with bounded concurrency, writing
// each unit's audio to dir keyed by index. The returned slice is in
// unit order regardless of completion order. The first failure is
// reported after in-flight siblings have drained; queued units that
// have not started yet are skipped.
func (e *Engine) dispatch(ctx context.Context, units []segment.Unit, dir string) ([]Result, error) {
	results := make([]Result, len(units))
	sema := make(chan struct{}, e.opts.Concurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, u := range units {
		wg.Add(1)
		go func(u segment.Unit) {
			defer wg.Done()
			sema <- struct{}{}
			defer func() { <-sema }()

			mu.Lock()
			failed := firstErr != nil
			mu.Unlock()
			if failed {
				return
			}

			path := filepath.Join(dir, fmt.Sprintf("unit_%04d.wav", u.Index))
			err := e.synthesizeUnit(ctx, u, path)

			mu.Lock()
			if err != nil && firstErr == nil {
				firstErr = &UnitError{Stage: "dispatch", Index: u.Index, Err: err}
			}
			mu.Unlock()
			if err == nil {
				results[u.Index] = Result{Index: u.Index, Path: path}
			}
		}(u)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// synthesizeUnit performs one backend call per attempt, bounded by the
// per-call timeout. Only temporary failures are retried; the parent
// context cancelling ends the unit immediately.
func (e *Engine) synthesizeUnit(ctx context.Context, u segment.Unit, path string) error {
	backoff := 500 * time.Millisecond
	var err error
	for attempt := 0; attempt <= e.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			e.log.Warn("retrying unit",
				slog.Int("unit", u.Index),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		callCtx, cancel := context.WithTimeout(ctx, e.opts.RequestTimeout)
		start := time.Now()
		var audio []byte
		audio, err = e.synth.Synthesize(callCtx, u.Text)
		elapsed := time.Since(start)
		cancel()

		if err == nil {
			e.recordUnit(ctx, "ok", elapsed)
			if werr := os.WriteFile(path, audio, 0o644); werr != nil {
				return fmt.Errorf("write unit audio: %w", werr)
			}
			return nil
		}
		e.recordUnit(ctx, "error", elapsed)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !tts.IsTemporary(err) {
			return err
		}
	}
	return err
}
