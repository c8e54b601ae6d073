package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const maxResponseBytes = 64 << 10

// HTTPSource posts requests to a remote decision service.
type HTTPSource struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSource creates a source for endpoint. A zero timeout leaves
// deadlines to the caller's context.
func NewHTTPSource(endpoint string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Decide posts req and decodes the command. Every failure wraps ErrTransport.
func (s *HTTPSource) Decide(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: marshal request: %w", ErrTransport, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("%w: create request: %w", ErrTransport, err)
	}
	reqID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", reqID)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("%w: post: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, fmt.Errorf("%w: read response: %w", ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, fmt.Errorf("%w: status %d: %s", ErrTransport, resp.StatusCode, bytes.TrimSpace(respBody))
	}

	var wire struct {
		Command *string `json:"command"`
	}
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return Response{}, fmt.Errorf("%w: malformed body: %w", ErrTransport, err)
	}
	if wire.Command == nil {
		return Response{}, fmt.Errorf("%w: response has no command", ErrTransport)
	}

	slog.Debug("decision received",
		"resident", req.ResidentID,
		"request_id", reqID,
		"command", *wire.Command,
	)
	return Response{Command: *wire.Command}, nil
}
