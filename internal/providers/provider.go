// Package providers implements the conversational responder on top of an
// OpenAI-compatible chat-completions endpoint.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wezaxy/dmagent/internal/compose"
)

// Config holds the responder backend settings.
type Config struct {
	APIKey      string
	APIBase     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Provider calls an OpenAI-compatible endpoint and satisfies
// compose.Responder.
type Provider struct {
	cfg  Config
	http *http.Client

	// now and mood are injectable so prompt construction is testable.
	now  func() time.Time
	mood func() Mood
}

// NewProvider creates a Provider with given config.
func NewProvider(cfg Config) *Provider {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.MaxTokens < 1 {
		cfg.MaxTokens = 512
	}
	return &Provider{
		cfg:  cfg,
		http: &http.Client{Timeout: 120 * time.Second},
		now:  time.Now,
		mood: randomMood,
	}
}

// GenerateReply builds the persona prompt, calls the chat endpoint and
// returns the sanitized reply text. An empty reply is returned as "" with a
// nil error; the composer owns retry policy.
func (p *Provider) GenerateReply(ctx context.Context, req compose.ReplyRequest) (string, error) {
	system := p.buildPrompt(req)

	var userContent any = req.Prompt
	if req.ImageB64 != "" {
		// OpenAI vision content parts; the image rides along as a data URL.
		parts := []map[string]any{
			{"type": "image_url", "image_url": map[string]any{
				"url": "data:image/jpeg;base64," + req.ImageB64,
			}},
		}
		if req.Prompt != "" {
			parts = append([]map[string]any{{"type": "text", "text": req.Prompt}}, parts...)
		}
		userContent = parts
	}

	body := map[string]any{
		"model": p.cfg.Model,
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": userContent},
		},
		"max_tokens":  p.cfg.MaxTokens,
		"temperature": p.cfg.Temperature,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("providers: marshal request: %w", err)
	}

	endpoint := strings.TrimRight(p.cfg.APIBase, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("providers: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("providers: chat: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("providers: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("providers: chat status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("providers: parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return Sanitize(parsed.Choices[0].Message.Content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
