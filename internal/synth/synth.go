// Package synth turns one body of text into one finished audio file:
// segmentation into synthesizer-safe units, concurrent dispatch against
// the backend, and order-preserving reassembly of the per-unit audio.
package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/quillcast/quillcast/internal/segment"
	"github.com/quillcast/quillcast/internal/tts"
)

const instrumentationName = "github.com/quillcast/quillcast/internal/synth"

// Options bound the resources one synthesis operation may use.
type Options struct {
	// MaxChunkChars is the per-unit character budget handed to the
	// segmenter ahead of the backend.
	MaxChunkChars int
	// Concurrency caps simultaneous outstanding backend calls.
	Concurrency int
	// RequestTimeout bounds each backend call.
	RequestTimeout time.Duration
	// MaxRetries is the per-unit retry count for temporary failures.
	MaxRetries int
	// TempDir hosts per-unit transient audio. Empty means the system
	// temp directory.
	TempDir string
}

func (o *Options) fillDefaults() {
	if o.MaxChunkChars <= 0 {
		o.MaxChunkChars = 4000
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 45 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
}

// Engine drives the segment → dispatch → stitch pipeline for a single
// text. The backend is injected; the engine holds no global state.
type Engine struct {
	synth        tts.Synthesizer
	opts         Options
	log          *slog.Logger
	unitsTotal   metric.Int64Counter
	unitDuration metric.Float64Histogram
}

func NewEngine(synth tts.Synthesizer, opts Options, log *slog.Logger) *Engine {
	opts.fillDefaults()
	e := &Engine{
		synth: synth,
		opts:  opts,
		log:   log.With(slog.String("component", "synth")),
	}
	meter := otel.Meter(instrumentationName)
	if c, err := meter.Int64Counter("quillcast.synth.units",
		metric.WithDescription("Units synthesized, by outcome")); err == nil {
		e.unitsTotal = c
	}
	if h, err := meter.Float64Histogram("quillcast.synth.unit_duration_seconds",
		metric.WithDescription("Wall time of one backend synthesis call")); err == nil {
		e.unitDuration = h
	}
	return e
}

// SynthesizeToFile converts text into a single WAV at dest, creating
// the destination's parent directory and overwriting any prior
// artifact. The call blocks until the artifact is complete; on any
// failure no destination file is left behind.
func (e *Engine) SynthesizeToFile(ctx context.Context, text, dest string) (string, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "synth.synthesize_to_file")
	defer span.End()

	units := segment.Split(text, e.opts.MaxChunkChars)
	if len(units) == 0 {
		return "", errors.New("synth: no speakable text")
	}
	span.SetAttributes(attribute.Int("synth.units", len(units)))

	if dir := filepath.Dir(dest); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create destination dir: %w", err)
		}
	}

	workDir, err := os.MkdirTemp(e.opts.TempDir, "quillcast_units_")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}

	results, err := e.dispatch(ctx, units, workDir)
	if err != nil {
		os.RemoveAll(workDir)
		return "", err
	}

	if err := stitch(results, dest); err != nil {
		os.RemoveAll(workDir)
		return "", err
	}
	os.RemoveAll(workDir)

	e.log.Info("synthesized audio",
		slog.String("dest", dest),
		slog.Int("units", len(units)))
	return dest, nil
}

func (e *Engine) recordUnit(ctx context.Context, outcome string, elapsed time.Duration) {
	if e.unitsTotal != nil {
		e.unitsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	if e.unitDuration != nil {
		e.unitDuration.Record(ctx, elapsed.Seconds())
	}
}
