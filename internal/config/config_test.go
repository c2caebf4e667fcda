package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TTS.Mode != "mock" {
		t.Fatalf("expected default tts mode mock, got %q", cfg.TTS.Mode)
	}
	if cfg.Segment.MaxSentenceLength != 300 || cfg.Segment.MaxChunkChars != 4000 {
		t.Fatalf("unexpected segment defaults: %+v", cfg.Segment)
	}
	if cfg.Output.Dir != "./audiobooks" {
		t.Fatalf("unexpected output dir: %q", cfg.Output.Dir)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QUILLCAST_TTS_MODE", "elevenlabs")
	t.Setenv("QUILLCAST_TTS_API_KEY", "secret")
	t.Setenv("QUILLCAST_TTS_VOICE", "rachel")
	t.Setenv("QUILLCAST_TTS_SAMPLE_RATE", "16000")
	t.Setenv("QUILLCAST_TTS_CONCURRENCY", "8")
	t.Setenv("QUILLCAST_TTS_MAX_RETRIES", "5")
	t.Setenv("QUILLCAST_OUTPUT_DIR", "/tmp/books")
	t.Setenv("QUILLCAST_SEGMENT_MAX_CHUNK_CHARS", "2000")
	t.Setenv("QUILLCAST_BUS_ENABLED", "true")
	t.Setenv("QUILLCAST_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("QUILLCAST_LIBRARY_PATH", "./tmp.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TTS.Mode != "elevenlabs" || cfg.TTS.APIKey != "secret" || cfg.TTS.Voice != "rachel" {
		t.Fatalf("expected tts overrides, got %+v", cfg.TTS)
	}
	if cfg.TTS.SampleRate != 16000 || cfg.TTS.Concurrency != 8 || cfg.TTS.MaxRetries != 5 {
		t.Fatalf("expected numeric tts overrides, got %+v", cfg.TTS)
	}
	if cfg.Output.Dir != "/tmp/books" {
		t.Fatalf("expected output dir override, got %q", cfg.Output.Dir)
	}
	if cfg.Segment.MaxChunkChars != 2000 {
		t.Fatalf("expected chunk chars override, got %d", cfg.Segment.MaxChunkChars)
	}
	if !cfg.Bus.Enabled || len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected bus overrides, got %+v", cfg.Bus)
	}
	if cfg.Library.Path != "./tmp.db" {
		t.Fatalf("expected library path override, got %q", cfg.Library.Path)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quillcast.yaml")
	body := []byte("tts:\n  mode: exec\n  command: \"piper --model en\"\noutput:\n  dir: ./out\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TTS.Mode != "exec" || cfg.TTS.Command != "piper --model en" {
		t.Fatalf("expected file values, got %+v", cfg.TTS)
	}
	if cfg.Output.Dir != "./out" {
		t.Fatalf("expected output dir from file, got %q", cfg.Output.Dir)
	}
	// untouched sections keep defaults
	if cfg.Segment.MaxSentenceLength != 300 {
		t.Fatalf("expected default segment config, got %+v", cfg.Segment)
	}
}

func TestValidateRejectsBadMode(t *testing.T) {
	t.Setenv("QUILLCAST_TTS_MODE", "shout")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for unknown tts mode")
	}
}

func TestValidateExecNeedsCommand(t *testing.T) {
	t.Setenv("QUILLCAST_TTS_MODE", "exec")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for exec mode without command")
	}
}
