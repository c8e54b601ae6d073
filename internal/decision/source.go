// Package decision connects idle residents to whatever chooses their next
// command: a remote service over HTTP, the built-in daily schedule, or Haiku.
package decision

import (
	"context"
	"errors"

	"github.com/talgya/mini-town/internal/agents"
)

// ErrTransport marks every retryable failure to obtain a command: network
// errors, non-success status, malformed bodies, missing command field.
var ErrTransport = errors.New("decision transport failure")

// Request asks for the next command of one resident.
type Request struct {
	ResidentID   string       `json:"residentId"`
	CurrentState agents.State `json:"currentState"`
	Timestamp    int64        `json:"timestamp"` // Game clock, Unix milliseconds
}

// Response carries the command string, decoded by agents.ParseCommand.
type Response struct {
	Command string `json:"command"`
}

// Source produces the next command for an idle resident. Implementations
// must be safe for concurrent use.
type Source interface {
	Decide(ctx context.Context, req Request) (Response, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, req Request) (Response, error)

func (f SourceFunc) Decide(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
