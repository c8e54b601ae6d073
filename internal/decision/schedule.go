package decision

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/talgya/mini-town/internal/agents"
	"github.com/talgya/mini-town/internal/world"
)

// Schedule hours, in game time.
const (
	WorkStartHour = 9
	WorkEndHour   = 17
	NightStart    = 20
	NightEnd      = 6
)

// ScheduleSource is the built-in daily routine: home at night, at work
// during office hours, and free time otherwise.
type ScheduleSource struct {
	wander        []string // Area ids visited in free time
	width, height int      // Bounds for short strolls

	mu  sync.Mutex
	rng *rand.Rand
}

// NewScheduleSource creates a routine. Free-time choices are drawn from a
// generator seeded with seed.
func NewScheduleSource(seed int64, wander []string, width, height int) *ScheduleSource {
	return &ScheduleSource{
		wander: append([]string(nil), wander...),
		width:  width,
		height: height,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Decide never fails.
func (s *ScheduleSource) Decide(_ context.Context, req Request) (Response, error) {
	hour := time.UnixMilli(req.Timestamp).UTC().Hour()
	return Response{Command: s.next(hour, req.CurrentState).String()}, nil
}

func (s *ScheduleSource) next(hour int, st agents.State) agents.Command {
	switch {
	case hour >= NightStart || hour < NightEnd:
		if st.IsHome {
			return agents.Command{Kind: agents.CommandIdle}
		}
		return agents.Command{Kind: agents.CommandMoveHome}

	case hour >= WorkStartHour && hour < WorkEndHour && st.Workplace != "":
		if st.AreaID == st.Workplace {
			return agents.Command{Kind: agents.CommandStartWork}
		}
		return agents.Command{Kind: agents.CommandMoveWork}
	}
	return s.freeTime(st)
}

func (s *ScheduleSource) freeTime(st agents.State) agents.Command {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch roll := s.rng.Intn(4); {
	case roll == 0 && len(s.wander) > 0:
		return agents.Command{Kind: agents.CommandMoveArea, AreaID: s.wander[s.rng.Intn(len(s.wander))]}
	case roll == 1 && !st.IsHome:
		return agents.Command{Kind: agents.CommandMoveHome}
	case roll == 2 && s.width > 0 && s.height > 0:
		return agents.Command{Kind: agents.CommandMoveTo, Target: s.stroll(st.Position.Cell())}
	}
	return agents.Command{Kind: agents.CommandIdle}
}

// stroll picks a cell at most one step away on each axis, clamped to the
// world. The target may be a wall, in which case the resident stays put.
func (s *ScheduleSource) stroll(from world.Cell) world.Cell {
	to := world.Cell{X: from.X + s.rng.Intn(3) - 1, Y: from.Y + s.rng.Intn(3) - 1}
	to.X = min(max(to.X, 0), s.width-1)
	to.Y = min(max(to.Y, 0), s.height-1)
	return to
}
