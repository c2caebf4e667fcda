package rewrite

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/quillcast/quillcast/internal/config"
)

type ollamaRewriter struct {
	endpoint    string
	model       string
	maxTokens   int
	temperature float64
}

// NewOllamaRewriter talks to a local Ollama instance. The streamed
// response is accumulated and the TTS envelope extracted at the end.
func NewOllamaRewriter(cfg config.RewriteConfig) Rewriter {
	return &ollamaRewriter{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaStreamResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (r *ollamaRewriter) Rewrite(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf("```\n%s\n```\n\nConvert the above text for Text-to-Speech (TTS) systems. Begin the converted text with %s and end with %s. Produce only the converted text without additional commentary.", text, startTag, endTag)

	payload := ollamaRequest{
		Model:  r.model,
		Prompt: prompt,
		System: systemPrompt,
		Stream: true,
		Options: ollamaOptions{
			Temperature: r.temperature,
			NumPredict:  r.maxTokens,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("ollama returned status %s", resp.Status)
	}

	var accumulated strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var chunk ollamaStreamResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", err
		}
		accumulated.WriteString(chunk.Response)
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}

	return extractEnvelope(accumulated.String())
}
