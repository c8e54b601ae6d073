// Package clock keeps the in-game calendar that drives the day/night cycle
// and the resident schedule.
package clock

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNegativeSpeed is returned by SetSpeed for speeds below zero.
var ErrNegativeSpeed = errors.New("game speed cannot be negative")

// DefaultStart is the first in-game morning.
var DefaultStart = time.Date(2024, time.January, 1, 7, 0, 0, 0, time.UTC)

// GameTime is the in-game clock. Real elapsed time is scaled by the speed
// multiplier. All methods are safe for concurrent use.
type GameTime struct {
	mu     sync.RWMutex
	now    time.Time
	speed  float64 // Game seconds per real second
	paused bool
}

// NewGameTime creates a running clock at start. The clock runs in UTC so
// that the hour read from a Unix timestamp matches the hour shown here.
func NewGameTime(start time.Time, speed float64) (*GameTime, error) {
	if speed < 0 {
		return nil, fmt.Errorf("new game time: %w", ErrNegativeSpeed)
	}
	return &GameTime{now: start.UTC(), speed: speed}, nil
}

// Advance moves the clock forward by real elapsed time scaled by speed.
// A paused clock does not move.
func (g *GameTime) Advance(real time.Duration) {
	if real <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		return
	}
	g.now = g.now.Add(time.Duration(float64(real) * g.speed))
}

func (g *GameTime) Pause() {
	g.mu.Lock()
	g.paused = true
	g.mu.Unlock()
}

func (g *GameTime) Resume() {
	g.mu.Lock()
	g.paused = false
	g.mu.Unlock()
}

// Paused reports whether the clock is paused.
func (g *GameTime) Paused() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.paused
}

// SetSpeed changes the speed multiplier.
func (g *GameTime) SetSpeed(speed float64) error {
	if speed < 0 {
		return fmt.Errorf("set speed %v: %w", speed, ErrNegativeSpeed)
	}
	g.mu.Lock()
	g.speed = speed
	g.mu.Unlock()
	return nil
}

// Speed returns the speed multiplier.
func (g *GameTime) Speed() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.speed
}

func (g *GameTime) AddHours(hours int) {
	g.mu.Lock()
	g.now = g.now.Add(time.Duration(hours) * time.Hour)
	g.mu.Unlock()
}

func (g *GameTime) AddDays(days int) {
	g.mu.Lock()
	g.now = g.now.AddDate(0, 0, days)
	g.mu.Unlock()
}

// SetTime sets the time of day, keeping the date. Out-of-range values
// normalize the way time.Date does.
func (g *GameTime) SetTime(hour, minute, second int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	y, m, d := g.now.Date()
	g.now = time.Date(y, m, d, hour, minute, second, 0, g.now.Location())
}

// Now returns the current in-game time.
func (g *GameTime) Now() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.now
}

// IsNight reports whether the hour is 20:00 or later, or before 06:00.
func (g *GameTime) IsNight() bool {
	h := g.Now().Hour()
	return h >= 20 || h < 6
}

// IsBetweenHours reports whether start <= hour < end.
func (g *GameTime) IsBetweenHours(start, end int) bool {
	h := g.Now().Hour()
	return h >= start && h < end
}

func (g *GameTime) String() string {
	return g.Now().Format("Mon Jan 2 2006 15:04:05")
}
