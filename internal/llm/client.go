// Package llm provides the Claude Haiku API client used to pick resident
// commands.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	defaultURL   = "https://api.anthropic.com/v1/messages"
	apiVersion   = "2023-06-01"
	DefaultModel = "claude-haiku-4-5-20251001"
)

var (
	ErrDisabled    = errors.New("LLM client not configured")
	ErrRateLimited = errors.New("LLM rate limit exceeded")
)

// Client wraps the Anthropic Messages API for Haiku calls.
type Client struct {
	apiKey     string
	model      string
	url        string
	httpClient *http.Client

	// Rate limiting: max calls per minute.
	mu        sync.Mutex
	callCount int
	resetAt   time.Time
	maxPerMin int
}

// Options tune a Client. Zero values select the defaults.
type Options struct {
	Model     string
	BaseURL   string // Messages endpoint; tests point this at an httptest server
	Timeout   time.Duration
	MaxPerMin int
}

// NewClient creates a new Haiku API client.
// Returns nil if apiKey is empty (LLM features disabled).
func NewClient(apiKey string, opts Options) *Client {
	if apiKey == "" {
		return nil
	}
	c := &Client{
		apiKey:     apiKey,
		model:      opts.Model,
		url:        opts.BaseURL,
		httpClient: &http.Client{Timeout: opts.Timeout},
		maxPerMin:  opts.MaxPerMin,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.url == "" {
		c.url = defaultURL
	}
	if c.httpClient.Timeout == 0 {
		c.httpClient.Timeout = 30 * time.Second
	}
	if c.maxPerMin == 0 {
		c.maxPerMin = 30
	}
	return c
}

// Enabled returns true if the client has a valid API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

type response struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *Client) allow() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if now.After(c.resetAt) {
		c.callCount = 0
		c.resetAt = now.Add(time.Minute)
	}
	if c.callCount >= c.maxPerMin {
		return fmt.Errorf("%w (%d calls/min)", ErrRateLimited, c.maxPerMin)
	}
	c.callCount++
	return nil
}

// Complete sends a prompt to Haiku and returns the response text.
func (c *Client) Complete(ctx context.Context, system, userPrompt string, maxTokens int) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	if err := c.allow(); err != nil {
		return "", err
	}

	body, err := json.Marshal(request{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []Message{{Role: "user", Content: userPrompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("API call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response")
	}

	slog.Debug("haiku call",
		"input_tokens", apiResp.Usage.InputTokens,
		"output_tokens", apiResp.Usage.OutputTokens,
	)
	return apiResp.Content[0].Text, nil
}
