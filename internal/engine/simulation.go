// Simulation ties together all town systems and runs them each tick.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/talgya/mini-town/internal/agents"
	"github.com/talgya/mini-town/internal/areas"
	"github.com/talgya/mini-town/internal/clock"
	"github.com/talgya/mini-town/internal/decision"
	"github.com/talgya/mini-town/internal/world"
)

const (
	maxEvents = 500 // In-memory event ring
	inboxSize = 64  // Pending operator commands
)

var ErrInboxFull = errors.New("command inbox full")

// Event is a notable occurrence in the town.
type Event struct {
	Tick        uint64         `json:"tick"`
	Time        time.Time      `json:"time"` // Game time
	Resident    string         `json:"resident,omitempty"`
	Category    string         `json:"category"` // "action", "command", "decision", "error", "admin"
	Description string         `json:"description"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// Journal stores events outside the process. Optional.
type Journal interface {
	SaveEvents(events []Event) error
}

// Setup is everything NewSimulation needs.
type Setup struct {
	Gen       world.GenConfig
	Areas     []AreaSpec
	Residents []ResidentSpec
	Tuning    agents.Tuning
	Manager   ManagerConfig
	Source    decision.Source
	Clock     *clock.GameTime
	Journal   Journal
}

type operatorCommand struct {
	resident string
	cmd      agents.Command
}

// Simulation holds the complete town state and wires systems together.
// Tick runs on the engine goroutine; the exported readers are safe to call
// from any goroutine.
type Simulation struct {
	Map       *world.TileMap
	Areas     *areas.Registry
	Residents *Manager
	Clock     *clock.GameTime

	scene     *Scene
	journal   Journal
	startedAt time.Time
	lastTick  atomic.Uint64
	frame     atomic.Pointer[Frame]
	inbox     chan operatorCommand
	bubbles   map[string]string // Tick goroutine only

	mu      sync.Mutex
	events  []Event // Ring, oldest first
	unsaved []Event

	subMu   sync.Mutex
	subs    map[int]chan *Frame
	nextSub int
}

// NewSimulation builds the town from setup. Invalid areas and residents are
// logged and skipped.
func NewSimulation(setup Setup) (*Simulation, error) {
	if setup.Source == nil {
		return nil, fmt.Errorf("new simulation: no decision source")
	}
	if setup.Clock == nil {
		return nil, fmt.Errorf("new simulation: no clock")
	}

	tm, reg := BuildTown(setup.Gen, setup.Areas)
	residents := SpawnResidents(setup.Residents, reg, tm, setup.Tuning)
	if len(residents) == 0 {
		slog.Warn("town has no residents")
	}

	gt := setup.Clock
	s := &Simulation{
		Map:       tm,
		Areas:     reg,
		Residents: NewManager(residents, setup.Source, setup.Manager, func() int64 { return gt.Now().UnixMilli() }),
		Clock:     gt,
		scene:     buildScene(tm, reg),
		journal:   setup.Journal,
		startedAt: time.Now(),
		inbox:     make(chan operatorCommand, inboxSize),
		bubbles:   make(map[string]string, len(residents)),
		subs:      make(map[int]chan *Frame),
	}
	for _, r := range residents {
		s.bubbles[r.ID] = bubbleText(r.Action())
	}
	s.publish(0)

	slog.Info("town ready",
		"width", tm.Width,
		"height", tm.Height,
		"walkable", tm.WalkableCount(),
		"areas", reg.Len(),
		"residents", len(residents),
		"clock", gt.String(),
	)
	return s, nil
}

// Attach registers the simulation's callbacks on an engine.
func (s *Simulation) Attach(e *Engine) {
	e.OnTick = s.Tick
	e.OnMinute = s.TickMinute
}

// Tick advances the town by dt of simulated time.
func (s *Simulation) Tick(tick uint64, dt time.Duration) {
	s.lastTick.Store(tick)
	s.applyOperatorCommands(tick)
	s.Clock.Advance(dt)

	report := s.Residents.Update(float64(dt) / float64(time.Millisecond))
	s.record(tick, report)
	s.publish(tick)
}

// TickMinute flushes the journal and logs a short report.
func (s *Simulation) TickMinute(tick uint64) {
	s.Flush()

	counts := make(map[agents.Action]int)
	for _, r := range s.Residents.Residents() {
		counts[r.Action()]++
	}
	slog.Info("town report",
		"tick", tick,
		"clock", s.Clock.String(),
		"idle", counts[agents.ActionIdle],
		"moving", counts[agents.ActionMoving],
		"working", counts[agents.ActionWorking],
	)
}

// Flush writes unsaved events to the journal.
func (s *Simulation) Flush() {
	if s.journal == nil {
		return
	}
	s.mu.Lock()
	batch := s.unsaved
	s.unsaved = nil
	s.mu.Unlock()
	if len(batch) == 0 {
		return
	}
	if err := s.journal.SaveEvents(batch); err != nil {
		slog.Error("journal write failed", "events", len(batch), "error", err)
	}
}

// Close stops decision requests and flushes the journal.
func (s *Simulation) Close() {
	s.Residents.Close()
	s.Flush()
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	return s.lastTick.Load()
}

// StartedAt returns when the simulation was created.
func (s *Simulation) StartedAt() time.Time {
	return s.startedAt
}

// Scene returns the static town description.
func (s *Simulation) Scene() *Scene {
	return s.scene
}

// Frame returns the latest published frame.
func (s *Simulation) Frame() *Frame {
	return s.frame.Load()
}

// HasResident reports whether id names a resident.
func (s *Simulation) HasResident(id string) bool {
	_, ok := s.Residents.Get(id)
	return ok
}

// EmitEvent records an event in memory and queues it for the journal.
func (s *Simulation) EmitEvent(e Event) {
	if e.Time.IsZero() {
		e.Time = s.Clock.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	if len(s.events) > maxEvents {
		s.events = s.events[len(s.events)-maxEvents:]
	}
	if s.journal != nil {
		s.unsaved = append(s.unsaved, e)
	}
}

// RecentEvents returns up to limit events, newest last.
func (s *Simulation) RecentEvents(limit int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if limit > 0 && len(s.events) > limit {
		start = len(s.events) - limit
	}
	out := make([]Event, len(s.events)-start)
	copy(out, s.events[start:])
	return out
}

// Subscribe returns a channel receiving every published frame. A slow
// subscriber misses frames rather than blocking the tick. Call the returned
// function to unsubscribe.
func (s *Simulation) Subscribe() (<-chan *Frame, func()) {
	ch := make(chan *Frame, 1)
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Simulation) record(tick uint64, report UpdateReport) {
	now := s.Clock.Now()
	for _, t := range report.Transitions {
		s.bubbles[t.Resident] = bubbleText(t.To)
		s.EmitEvent(Event{
			Tick:        tick,
			Time:        now,
			Resident:    t.Resident,
			Category:    "action",
			Description: fmt.Sprintf("%s: %s -> %s", t.Resident, t.From, t.To),
		})
	}
	for _, a := range report.Applied {
		e := Event{
			Tick:        tick,
			Time:        now,
			Resident:    a.Resident,
			Category:    "command",
			Description: fmt.Sprintf("%s: %s", a.Resident, a.Command),
			Meta:        map[string]any{"command": a.Command.String()},
		}
		if a.Err != nil {
			e.Meta["error"] = a.Err.Error()
		}
		if r, ok := s.Residents.Get(a.Resident); ok {
			s.bubbles[a.Resident] = bubbleText(r.Action())
		}
		s.EmitEvent(e)
	}
	// Map order is random; ids are sorted so the log is stable.
	for _, id := range slices.Sorted(maps.Keys(report.Failed)) {
		err := report.Failed[id]
		s.EmitEvent(Event{
			Tick:        tick,
			Time:        now,
			Resident:    id,
			Category:    "decision",
			Description: fmt.Sprintf("%s: no decision: %v", id, err),
		})
	}
	for _, id := range slices.Sorted(maps.Keys(report.Errors)) {
		err := report.Errors[id]
		s.EmitEvent(Event{
			Tick:        tick,
			Time:        now,
			Resident:    id,
			Category:    "error",
			Description: fmt.Sprintf("%s: update failed: %v", id, err),
		})
	}
}

func (s *Simulation) publish(tick uint64) {
	residents := s.Residents.Residents()
	f := &Frame{
		Tick:      tick,
		Time:      s.Clock.Now(),
		Clock:     s.Clock.String(),
		IsNight:   s.Clock.IsNight(),
		Residents: make([]ResidentView, len(residents)),
	}
	for i, r := range residents {
		f.Residents[i] = ResidentView{
			ID:     r.ID,
			Name:   r.Name,
			Bubble: s.bubbles[r.ID],
			State:  r.State(),
		}
	}
	s.frame.Store(f)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- f:
		default:
			// Replace the unread frame with the newer one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- f:
			default:
			}
		}
	}
}
