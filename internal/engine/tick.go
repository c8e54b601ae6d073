// Package engine provides the fixed-cadence tick loop, the resident manager,
// and the Simulation that wires the town together.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultRateHz is the target tick cadence.
const DefaultRateHz = 60

// MaxFrame caps the elapsed time of one tick, so a stalled process does not
// move residents across the map in one step.
const MaxFrame = 250 * time.Millisecond

// Engine drives the simulation forward. Ticks are throttled to the cadence:
// a tick fires only once Interval has elapsed since the previous one, and a
// slow frame produces one longer tick rather than several catch-up ticks.
type Engine struct {
	Tick     uint64        // Current tick counter (monotonic, never resets)
	Interval time.Duration // Minimum real time between ticks

	// Callbacks for each tick layer, populated during setup.
	OnTick   func(tick uint64, dt time.Duration) // Every tick, dt already scaled by speed
	OnMinute func(tick uint64)                   // Every simulated minute

	mu        sync.Mutex
	speed     float64 // Multiplier: 1.0 = real-time, 0 = paused
	last      time.Time
	minuteAcc time.Duration
}

// NewEngine creates a simulation engine ticking at rateHz.
func NewEngine(rateHz int) *Engine {
	if rateHz <= 0 {
		rateHz = DefaultRateHz
	}
	return &Engine{
		Interval: time.Second / time.Duration(rateHz),
		speed:    1.0,
	}
}

// Speed returns the speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Zero or less pauses the engine.
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	e.speed = max(speed, 0)
	e.mu.Unlock()
	slog.Info("engine speed changed", "speed", speed)
}

// Run ticks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("simulation engine started", "tick", e.Tick, "interval", e.Interval, "speed", e.Speed())

	ticker := time.NewTicker(e.Interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation engine stopped", "tick", e.Tick)
			return
		case now := <-ticker.C:
			e.Advance(now)
		}
	}
}

// Advance runs one tick if the cadence interval has elapsed since the last
// one. It reports whether a tick ran.
func (e *Engine) Advance(now time.Time) bool {
	e.mu.Lock()
	if e.last.IsZero() {
		e.last = now
		e.mu.Unlock()
		return false
	}
	elapsed := now.Sub(e.last)
	if elapsed < e.Interval {
		e.mu.Unlock()
		return false
	}
	e.last = now
	speed := e.speed
	e.mu.Unlock()

	if speed <= 0 {
		return false
	}
	elapsed = min(elapsed, MaxFrame)
	e.step(time.Duration(float64(elapsed) * speed))
	return true
}

// step advances the simulation by one tick of dt simulated time.
func (e *Engine) step(dt time.Duration) {
	e.Tick++

	if e.OnTick != nil {
		e.OnTick(e.Tick, dt)
	}

	e.minuteAcc += dt
	for e.minuteAcc >= time.Minute {
		e.minuteAcc -= time.Minute
		if e.OnMinute != nil {
			e.OnMinute(e.Tick)
		}
	}
}
