package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"

	"github.com/quillcast/quillcast/internal/config"
)

// execSynth shells out to a local voice model (an XTTS-style CLI). The
// command receives the text on stdin and writes a WAV file to the path
// given by --out. Invocations are serialized: local models hold the
// GPU or a large working set, so one process at a time.
type execSynth struct {
	cmd      []string
	voice    string
	language string
	mu       sync.Mutex
}

func NewExecSynth(cfg config.TTSConfig) (Synthesizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("tts command empty")
	}
	return &execSynth{cmd: args, voice: cfg.Voice, language: cfg.Language}, nil
}

func (e *execSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &BackendError{Err: ErrEmptyText}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	out, err := os.CreateTemp("", "quillcast_tts_*.wav")
	if err != nil {
		return nil, fmt.Errorf("temp file: %w", err)
	}
	outPath := out.Name()
	out.Close()
	defer os.Remove(outPath)

	args := append([]string{}, e.cmd[1:]...)
	args = append(args, "--out", outPath)
	if e.voice != "" {
		args = append(args, "--voice", e.voice)
	}
	if e.language != "" {
		args = append(args, "--language", e.language)
	}

	cmd := exec.CommandContext(ctx, e.cmd[0], args...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &BackendError{Err: fmt.Errorf("tts command failed: %w: %s", err, stderr.String())}
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, &BackendError{Err: fmt.Errorf("read tts output: %w", err)}
	}
	if len(data) == 0 {
		return nil, &BackendError{Err: errors.New("tts command produced no audio")}
	}
	return data, nil
}
