package tts

import (
	"context"
	"errors"
	"fmt"

	"github.com/quillcast/quillcast/internal/config"
)

// Synthesizer turns one bounded piece of text into a complete WAV
// artifact. Implementations may be slow (seconds per call) and may be
// rate limited; callers bound each call with a context.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Func adapts a plain function to the Synthesizer interface.
type Func func(ctx context.Context, text string) ([]byte, error)

func (f Func) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return f(ctx, text)
}

// BackendError reports a synthesis failure. Temporary failures
// (network, rate limit) are eligible for retry; everything else fails
// the unit immediately.
type BackendError struct {
	Temporary bool
	Err       error
}

func (e *BackendError) Error() string {
	if e.Temporary {
		return fmt.Sprintf("tts backend (temporary): %v", e.Err)
	}
	return fmt.Sprintf("tts backend: %v", e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsTemporary reports whether a failed call may be retried.
func IsTemporary(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Temporary
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// ErrEmptyText is returned when a backend is handed nothing to speak.
var ErrEmptyText = errors.New("tts: empty text")

// FromConfig selects a backend by mode.
func FromConfig(cfg config.TTSConfig) (Synthesizer, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockSynth(cfg.SampleRate, cfg.Channels), nil
	case "exec":
		return NewExecSynth(cfg)
	case "elevenlabs":
		return NewElevenLabsSynth(cfg)
	default:
		return nil, fmt.Errorf("unknown tts mode %q", cfg.Mode)
	}
}
