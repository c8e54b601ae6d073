package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/mini-town/internal/agents"
	"github.com/talgya/mini-town/internal/decision"
)

var ErrUnknownResident = errors.New("unknown resident")

// ManagerConfig holds the decision retry policy.
type ManagerConfig struct {
	MaxAttempts int           // Decision attempts per request
	RetryDelay  time.Duration // Fixed delay between attempts
	Timeout     time.Duration // Per-attempt deadline; zero means none
	IdleRest    time.Duration // Simulated time an explicit idle command holds before the next request
}

// DefaultManagerConfig returns the standard retry policy.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxAttempts: 3,
		RetryDelay:  time.Second,
		Timeout:     10 * time.Second,
		IdleRest:    3 * time.Second,
	}
}

// Transition is a change of action during one update.
type Transition struct {
	Resident string
	From, To agents.Action
}

// Applied is a decision that reached its resident.
type Applied struct {
	Resident string
	Command  agents.Command
	Err      error // Execution failure; the resident is idle
}

// UpdateReport collects the per-resident outcomes of one Manager.Update.
// Failures of one resident never stop the others.
type UpdateReport struct {
	Updated     int
	Requested   []string         // Residents a decision was requested for
	Applied     []Applied        // Decisions applied this update
	Stale       []string         // Decisions discarded because the resident was busy
	Failed      map[string]error // Decision requests that exhausted every attempt
	Errors      map[string]error // Update errors, including recovered panics
	Transitions []Transition
}

func addErr(m map[string]error, id string, err error) map[string]error {
	if m == nil {
		m = make(map[string]error)
	}
	m[id] = err
	return m
}

type decisionResult struct {
	idx int
	cmd agents.Command
	err error
}

// slot is the manager's bookkeeping for one resident.
type slot struct {
	pending bool    // A decision request is in flight
	rest    float64 // Seconds before the next request
}

// Manager owns the residents, updates them each tick, and brokers idle
// residents' requests for their next command. Update and Apply must be
// called from a single goroutine; decision requests run on their own
// goroutines and hand results back through a channel drained by Update.
type Manager struct {
	residents []*agents.Resident
	index     map[string]int
	slots     []slot

	source decision.Source
	cfg    ManagerConfig
	now    func() int64 // Request timestamp, Unix ms

	results chan decisionResult
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a manager for residents. now supplies request
// timestamps; nil uses the wall clock.
func NewManager(residents []*agents.Resident, source decision.Source, cfg ManagerConfig, now func() int64) *Manager {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		residents: residents,
		index:     make(map[string]int, len(residents)),
		slots:     make([]slot, len(residents)),
		source:    source,
		cfg:       cfg,
		now:       now,
		// One request per resident at most, so sends never block.
		results: make(chan decisionResult, len(residents)),
		ctx:     ctx,
		cancel:  cancel,
	}
	for i, r := range residents {
		m.index[r.ID] = i
	}
	return m
}

// Residents returns the residents in update order.
func (m *Manager) Residents() []*agents.Resident {
	return m.residents
}

// Get returns a resident by id.
func (m *Manager) Get(id string) (*agents.Resident, bool) {
	i, ok := m.index[id]
	if !ok {
		return nil, false
	}
	return m.residents[i], true
}

// Pending reports whether a decision request is in flight for id.
func (m *Manager) Pending(id string) bool {
	i, ok := m.index[id]
	return ok && m.slots[i].pending
}

// Update applies finished decisions, advances every resident by dtMs, and
// requests a command for each idle resident without one in flight.
func (m *Manager) Update(dtMs float64) UpdateReport {
	var report UpdateReport
	m.drain(&report)

	for i, r := range m.residents {
		before := r.Action()
		if err := safeUpdate(r, dtMs); err != nil {
			slog.Warn("resident update skipped", "resident", r.ID, "error", err)
			report.Errors = addErr(report.Errors, r.ID, err)
			continue
		}
		report.Updated++
		if after := r.Action(); after != before {
			report.Transitions = append(report.Transitions, Transition{Resident: r.ID, From: before, To: after})
		}
		if m.slots[i].rest > 0 {
			m.slots[i].rest -= dtMs / 1000
		}
	}

	for i, r := range m.residents {
		s := &m.slots[i]
		if r.Action() != agents.ActionIdle || s.pending || s.rest > 0 {
			continue
		}
		s.pending = true
		report.Requested = append(report.Requested, r.ID)
		req := decision.Request{ResidentID: r.ID, CurrentState: r.State(), Timestamp: m.now()}
		m.wg.Add(1)
		go m.request(i, req)
	}
	return report
}

// Apply executes cmd on a resident immediately, bypassing the decision
// source. Used for operator commands.
func (m *Manager) Apply(id string, cmd agents.Command) error {
	i, ok := m.index[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownResident, id)
	}
	m.slots[i].rest = 0
	return safeExecute(m.residents[i], cmd)
}

// Wait blocks until every in-flight decision request has finished. Their
// results are applied by the next Update.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close cancels in-flight requests and waits for them to return.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) drain(report *UpdateReport) {
	for {
		select {
		case res := <-m.results:
			m.apply(res, report)
		default:
			return
		}
	}
}

func (m *Manager) apply(res decisionResult, report *UpdateReport) {
	r := m.residents[res.idx]
	s := &m.slots[res.idx]
	s.pending = false

	if res.err != nil {
		slog.Warn("decision failed, resident stays idle", "resident", r.ID, "error", res.err)
		report.Failed = addErr(report.Failed, r.ID, res.err)
		return
	}
	if r.Action() != agents.ActionIdle {
		slog.Debug("stale decision discarded", "resident", r.ID, "command", res.cmd, "action", r.Action())
		report.Stale = append(report.Stale, r.ID)
		return
	}

	err := safeExecute(r, res.cmd)
	if err != nil {
		slog.Warn("command failed", "resident", r.ID, "command", res.cmd, "error", err)
	}
	// An idle command, or a move that could not start, leaves the resident
	// idle; rest before asking again.
	if r.Action() == agents.ActionIdle {
		s.rest = m.cfg.IdleRest.Seconds()
	}
	report.Applied = append(report.Applied, Applied{Resident: r.ID, Command: res.cmd, Err: err})
}

// request asks the source for a command, retrying with a fixed delay, and
// hands the outcome to the tick goroutine.
func (m *Manager) request(idx int, req decision.Request) {
	defer m.wg.Done()

	var lastErr error
	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-m.ctx.Done():
				m.results <- decisionResult{idx: idx, err: fmt.Errorf("cancelled after %d attempts: %w", attempt-1, lastErr)}
				return
			case <-time.After(m.cfg.RetryDelay):
			}
		}

		resp, err := m.decide(req)
		if err == nil {
			cmd, perr := agents.ParseCommand(resp.Command)
			if perr != nil {
				slog.Warn("unrecognized command, idling", "resident", req.ResidentID, "error", perr)
				cmd = agents.Command{Kind: agents.CommandIdle}
			}
			m.results <- decisionResult{idx: idx, cmd: cmd}
			return
		}

		lastErr = err
		slog.Warn("decision attempt failed",
			"resident", req.ResidentID,
			"attempt", attempt,
			"max_attempts", m.cfg.MaxAttempts,
			"error", err,
		)
	}
	m.results <- decisionResult{idx: idx, err: fmt.Errorf("%d attempts failed: %w", m.cfg.MaxAttempts, lastErr)}
}

func (m *Manager) decide(req decision.Request) (resp decision.Response, err error) {
	ctx := m.ctx
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: source panicked: %v", decision.ErrTransport, p)
		}
	}()
	return m.source.Decide(ctx, req)
}

func safeUpdate(r *agents.Resident, dtMs float64) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("update panicked: %v", p)
		}
	}()
	return r.Update(dtMs)
}

func safeExecute(r *agents.Resident, cmd agents.Command) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.Idle()
			err = fmt.Errorf("execute panicked: %v", p)
		}
	}()
	return r.Execute(cmd)
}
