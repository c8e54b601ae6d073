package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-town/internal/agents"
	"github.com/talgya/mini-town/internal/clock"
	"github.com/talgya/mini-town/internal/decision"
)

type memJournal struct {
	mu     sync.Mutex
	events []Event
}

func (j *memJournal) SaveEvents(events []Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, events...)
	return nil
}

func newTestSimulation(t *testing.T, src decision.Source, journal Journal) *Simulation {
	t.Helper()
	gt, err := clock.NewGameTime(clock.DefaultStart, 1)
	require.NoError(t, err)
	sim, err := NewSimulation(Setup{
		Gen:   townGen(),
		Areas: townAreas(),
		Residents: []ResidentSpec{
			{ID: "ada", Name: "Ada", Work: "office"},
			{ID: "ben", Name: "Ben", Work: "office"},
		},
		Tuning:  agents.DefaultTuning(),
		Manager: ManagerConfig{MaxAttempts: 1},
		Source:  src,
		Clock:   gt,
		Journal: journal,
	})
	require.NoError(t, err)
	t.Cleanup(sim.Close)
	return sim
}

func TestNewSimulation_RequiresCollaborators(t *testing.T) {
	_, err := NewSimulation(Setup{Gen: townGen()})
	assert.Error(t, err)

	_, err = NewSimulation(Setup{Gen: townGen(), Source: fixedCommand("idle")})
	assert.Error(t, err)
}

func TestSimulation_TickAppliesDecisions(t *testing.T) {
	sim := newTestSimulation(t, fixedCommand("move_work"), nil)

	f := sim.Frame()
	require.NotNil(t, f)
	require.Len(t, f.Residents, 2)
	assert.Equal(t, "Standing", f.Residents[0].Bubble)

	sim.Tick(1, 16*time.Millisecond)
	sim.Residents.Wait()
	sim.Tick(2, 16*time.Millisecond)

	f = sim.Frame()
	assert.Equal(t, uint64(2), f.Tick)
	assert.Equal(t, uint64(2), sim.CurrentTick())
	ada, ok := f.Resident("ada")
	require.True(t, ok)
	assert.Equal(t, agents.ActionMoving, ada.State.CurrentAction)
	assert.Equal(t, "Walking...", ada.Bubble)
	assert.Equal(t, clock.DefaultStart.Add(32*time.Millisecond), f.Time)

	var commands int
	for _, e := range sim.RecentEvents(0) {
		if e.Category == "command" {
			commands++
			assert.Equal(t, "move_work", e.Meta["command"])
		}
	}
	assert.Equal(t, 2, commands)
}

func TestSimulation_WalksToWork(t *testing.T) {
	sim := newTestSimulation(t, fixedCommand("move_work"), nil)

	for tick := uint64(1); tick <= 400; tick++ {
		sim.Tick(tick, 50*time.Millisecond)
		sim.Residents.Wait()
	}
	ada, _ := sim.Frame().Resident("ada")
	assert.Equal(t, "office", ada.State.AreaID)
	assert.False(t, ada.State.IsHome)

	var arrived bool
	for _, e := range sim.RecentEvents(0) {
		if e.Resident == "ada" && e.Category == "action" && e.Description == "ada: moving -> idle" {
			arrived = true
		}
	}
	assert.True(t, arrived)
}

func TestSimulation_SetCommand(t *testing.T) {
	block := make(chan struct{})
	src := decision.SourceFunc(func(ctx context.Context, _ decision.Request) (decision.Response, error) {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return decision.Response{}, ctx.Err()
	})
	defer close(block)
	sim := newTestSimulation(t, src, nil)

	assert.ErrorIs(t, sim.SetCommand("zed", "idle"), ErrUnknownResident)
	assert.ErrorIs(t, sim.SetCommand("ada", "fly"), agents.ErrUnknownCommand)

	require.NoError(t, sim.SetCommand("ada", "start_work"))
	sim.Tick(1, 16*time.Millisecond)

	ada, _ := sim.Frame().Resident("ada")
	assert.Equal(t, agents.ActionWorking, ada.State.CurrentAction)
	assert.Equal(t, "Working", ada.Bubble)

	events := sim.RecentEvents(1)
	require.Len(t, events, 1)
	assert.Equal(t, "admin", events[0].Category)
	assert.Equal(t, "start_work", events[0].Meta["command"])
}

func TestSimulation_InboxFull(t *testing.T) {
	sim := newTestSimulation(t, fixedCommand("idle"), nil)
	var err error
	for i := 0; i <= inboxSize; i++ {
		err = sim.SetCommand("ben", "idle")
	}
	assert.ErrorIs(t, err, ErrInboxFull)
}

func TestSimulation_Subscribe(t *testing.T) {
	sim := newTestSimulation(t, fixedCommand("idle"), nil)
	frames, unsubscribe := sim.Subscribe()

	sim.Tick(1, 16*time.Millisecond)
	sim.Tick(2, 16*time.Millisecond)
	f := <-frames
	assert.Equal(t, uint64(2), f.Tick, "slow subscribers see the newest frame")

	unsubscribe()
	unsubscribe()
	sim.Tick(3, 16*time.Millisecond)
	select {
	case f := <-frames:
		t.Fatalf("frame %d after unsubscribe", f.Tick)
	default:
	}
}

func TestSimulation_JournalFlush(t *testing.T) {
	j := &memJournal{}
	sim := newTestSimulation(t, fixedCommand("start_work"), j)

	sim.Tick(1, 16*time.Millisecond)
	sim.Residents.Wait()
	sim.Tick(2, 16*time.Millisecond)
	sim.TickMinute(2)

	j.mu.Lock()
	saved := len(j.events)
	j.mu.Unlock()
	assert.Equal(t, len(sim.RecentEvents(0)), saved)
	assert.Positive(t, saved)

	sim.Flush()
	j.mu.Lock()
	assert.Equal(t, saved, len(j.events), "flush is idempotent")
	j.mu.Unlock()
}

func TestSimulation_AdjustClock(t *testing.T) {
	sim := newTestSimulation(t, fixedCommand("idle"), nil)

	pause, speed := true, 120.0
	_, err := sim.AdjustClock(ClockChange{Pause: &pause, Speed: &speed, SetTime: &TimeOfDay{Hour: 21}})
	require.NoError(t, err)
	assert.True(t, sim.Clock.Paused())
	assert.Equal(t, 120.0, sim.Clock.Speed())
	assert.True(t, sim.Clock.IsNight())

	_, err = sim.AdjustClock(ClockChange{SetTime: &TimeOfDay{Hour: 25}})
	assert.Error(t, err)

	negative := -1.0
	_, err = sim.AdjustClock(ClockChange{Speed: &negative})
	assert.ErrorIs(t, err, clock.ErrNegativeSpeed)
}

func TestSimulation_FailureEventsInResidentOrder(t *testing.T) {
	failing := decision.SourceFunc(func(context.Context, decision.Request) (decision.Response, error) {
		return decision.Response{}, decision.ErrTransport
	})
	journal := &memJournal{}
	sim := newTestSimulation(t, failing, journal)

	sim.Tick(1, 16*time.Millisecond)
	for tick := uint64(2); tick <= 21; tick++ {
		sim.Residents.Wait()
		sim.Tick(tick, 16*time.Millisecond)
	}
	sim.Flush()

	journal.mu.Lock()
	defer journal.mu.Unlock()
	var order []string
	for _, e := range journal.events {
		if e.Category == "decision" {
			order = append(order, e.Resident)
		}
	}
	require.Len(t, order, 40)
	for i := 0; i < len(order); i += 2 {
		assert.Equal(t, []string{"ada", "ben"}, order[i:i+2], "tick %d", i/2+2)
	}
}
