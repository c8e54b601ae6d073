package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/talgya/mini-town/internal/llm"
)

// LLMSource asks Haiku for each command.
type LLMSource struct {
	client *llm.Client
	areas  []string
}

// NewLLMSource creates a source backed by client. areaIDs are offered to
// the model as move_to destinations.
func NewLLMSource(client *llm.Client, areaIDs []string) *LLMSource {
	return &LLMSource{client: client, areas: append([]string(nil), areaIDs...)}
}

// Decide fails with ErrTransport when Haiku is unavailable or its reply
// holds no command, so the caller retries. A command outside the
// vocabulary is returned as is.
func (s *LLMSource) Decide(ctx context.Context, req Request) (Response, error) {
	now := time.UnixMilli(req.Timestamp).UTC()
	st := req.CurrentState
	cell := st.Position.Cell()

	name := st.Name
	if name == "" {
		name = req.ResidentID
	}
	d, err := llm.DecideCommand(ctx, s.client, llm.ResidentContext{
		ID:        req.ResidentID,
		Name:      name,
		Home:      st.Home,
		Workplace: st.Workplace,
		AreaID:    st.AreaID,
		IsHome:    st.IsHome,
		X:         cell.X,
		Y:         cell.Y,
		Clock:     now.Format("Mon 15:04"),
		IsNight:   now.Hour() >= NightStart || now.Hour() < NightEnd,
		Areas:     s.areas,
	})
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return Response{Command: d.Command}, nil
}
