package runtime

import (
	"context"
	"log/slog"
	"testing"

	"github.com/quillcast/quillcast/internal/config"
)

func TestNewLoggerLevels(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		level   string
		debugOn bool
		infoOn  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"WARN", false, false},
		{"error", false, false},
		{"", false, true},
		{"bogus", false, true},
	}
	for _, tt := range tests {
		l := NewLogger(tt.level)
		if got := l.Enabled(ctx, slog.LevelDebug); got != tt.debugOn {
			t.Errorf("NewLogger(%q) debug enabled = %v, want %v", tt.level, got, tt.debugOn)
		}
		if got := l.Enabled(ctx, slog.LevelInfo); got != tt.infoOn {
			t.Errorf("NewLogger(%q) info enabled = %v, want %v", tt.level, got, tt.infoOn)
		}
	}
}

func TestSetupWithoutMetricsEndpoint(t *testing.T) {
	cfg := config.Default()
	cfg.Telemetry.PrometheusBind = ""

	tel, err := Setup(cfg, NewLogger("error"))
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if tel.httpServer != nil {
		t.Fatal("no metrics server expected without a bind address")
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
