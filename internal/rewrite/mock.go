package rewrite

import (
	"context"
	"time"
)

type mockRewriter struct{}

// NewMockRewriter passes text through unchanged.
func NewMockRewriter() Rewriter { return &mockRewriter{} }

func (m *mockRewriter) Rewrite(ctx context.Context, text string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(5 * time.Millisecond):
	}
	return text, nil
}
