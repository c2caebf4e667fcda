package tts

import (
	"context"
	"strings"
	"time"
)

type mockSynth struct {
	sampleRate int
	channels   int
}

// NewMockSynth returns a backend producing silence, sized to the text
// it is given (one tenth of a second per word). Used in tests and dry
// runs.
func NewMockSynth(sampleRate, channels int) Synthesizer {
	return &mockSynth{sampleRate: sampleRate, channels: channels}
}

func (m *mockSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &BackendError{Err: ErrEmptyText}
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Millisecond):
	}
	words := len(strings.Fields(text))
	duration := time.Duration(words) * 100 * time.Millisecond
	n := int(float64(m.sampleRate) * duration.Seconds())
	if n == 0 {
		n = m.sampleRate / 10
	}
	samples := make([]int, n*m.channels)
	return encodePCM16(samples, m.sampleRate, m.channels)
}
