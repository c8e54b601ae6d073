package decision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-town/internal/agents"
	"github.com/talgya/mini-town/internal/world"
)

func at(hour int) int64 {
	return time.Date(2024, 1, 1, hour, 15, 0, 0, time.UTC).UnixMilli()
}

func TestScheduleSource_Routine(t *testing.T) {
	src := NewScheduleSource(1, []string{"street"}, 10, 10)

	for _, tc := range []struct {
		name  string
		hour  int
		state agents.State
		want  string
	}{
		{"night away", 22, agents.State{Workplace: "office", AreaID: "street"}, "move_home"},
		{"night at home", 2, agents.State{Workplace: "office", IsHome: true}, "idle"},
		{"morning commute", 9, agents.State{Workplace: "office", IsHome: true}, "move_work"},
		{"at the office", 14, agents.State{Workplace: "office", AreaID: "office"}, "start_work"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := src.Decide(context.Background(), Request{ResidentID: "w", CurrentState: tc.state, Timestamp: at(tc.hour)})
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.Command)
		})
	}
}

func TestScheduleSource_FreeTime(t *testing.T) {
	src := NewScheduleSource(5, []string{"street", "park"}, 6, 6)
	from := world.Cell{X: 0, Y: 5}
	st := agents.State{Position: agents.PositionOf(from), AreaID: "street"}

	seen := map[agents.CommandKind]bool{}
	for i := 0; i < 200; i++ {
		resp, err := src.Decide(context.Background(), Request{ResidentID: "w", CurrentState: st, Timestamp: at(18)})
		require.NoError(t, err)

		cmd, err := agents.ParseCommand(resp.Command)
		require.NoError(t, err, resp.Command)
		seen[cmd.Kind] = true

		switch cmd.Kind {
		case agents.CommandMoveArea:
			assert.Contains(t, []string{"street", "park"}, cmd.AreaID)
		case agents.CommandMoveTo:
			assert.LessOrEqual(t, world.Manhattan(from, cmd.Target), 2)
			assert.True(t, cmd.Target.X >= 0 && cmd.Target.X < 6 && cmd.Target.Y >= 0 && cmd.Target.Y < 6, cmd.Target)
		case agents.CommandIdle, agents.CommandMoveHome:
		default:
			t.Fatalf("unexpected free-time command %q", resp.Command)
		}
	}
	assert.Len(t, seen, 4)
}

func TestScheduleSource_Deterministic(t *testing.T) {
	a := NewScheduleSource(9, []string{"street"}, 8, 8)
	b := NewScheduleSource(9, []string{"street"}, 8, 8)
	req := Request{ResidentID: "w", CurrentState: agents.State{Position: agents.Position{X: 4, Y: 4}}, Timestamp: at(7)}

	for i := 0; i < 20; i++ {
		ra, _ := a.Decide(context.Background(), req)
		rb, _ := b.Decide(context.Background(), req)
		assert.Equal(t, ra.Command, rb.Command)
	}
}
