package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/quillcast/quillcast/internal/config"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

// elevenLabsSynth calls the ElevenLabs text-to-speech API. The API
// returns raw PCM (16-bit mono little-endian) which is wrapped into a
// WAV container before handing it back.
type elevenLabsSynth struct {
	client     *http.Client
	apiKey     string
	baseURL    string
	voiceID    string
	language   string
	sampleRate int
}

type elevenLabsRequest struct {
	Text         string `json:"text"`
	ModelID      string `json:"model_id,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

func NewElevenLabsSynth(cfg config.TTSConfig) (Synthesizer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("elevenlabs: api key not configured")
	}
	if cfg.Voice == "" {
		return nil, errors.New("elevenlabs: voice id not configured")
	}
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}
	return &elevenLabsSynth{
		client:     &http.Client{},
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		voiceID:    cfg.Voice,
		language:   cfg.Language,
		sampleRate: cfg.SampleRate,
	}, nil
}

func (s *elevenLabsSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &BackendError{Err: ErrEmptyText}
	}

	url := fmt.Sprintf("%s/text-to-speech/%s/stream?output_format=pcm_%d", s.baseURL, s.voiceID, s.sampleRate)
	body, err := json.Marshal(elevenLabsRequest{Text: text, LanguageCode: s.language})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &BackendError{Temporary: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		cause := fmt.Errorf("elevenlabs: status %d: %s", resp.StatusCode, string(errBody))
		temporary := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, &BackendError{Temporary: temporary, Err: cause}
	}

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &BackendError{Temporary: true, Err: fmt.Errorf("elevenlabs: read body: %w", err)}
	}
	return pcmToWAV(pcm, s.sampleRate, 1)
}
