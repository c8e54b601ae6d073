// Package agents provides the resident data model, command vocabulary, and
// the per-resident state machine (path following, work, animation).
package agents

import (
	"math"

	"github.com/talgya/mini-town/internal/world"
)

// Position is a point in grid coordinates. Fractional parts are sub-cell
// interpolation.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PositionOf returns the position of a cell's origin.
func PositionOf(c world.Cell) Position {
	return Position{X: float64(c.X), Y: float64(c.Y)}
}

// Cell floors the position to its integer cell.
func (p Position) Cell() world.Cell {
	return world.Cell{X: int(math.Floor(p.X)), Y: int(math.Floor(p.Y))}
}

// DistanceTo returns the straight-line distance between two positions.
func (p Position) DistanceTo(o Position) float64 {
	return math.Hypot(o.X-p.X, o.Y-p.Y)
}

// Direction is the facing of a resident, one of four cardinal directions.
type Direction string

const (
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
	DirectionUp    Direction = "up"
)

// facing returns the direction of a displacement. The horizontal axis wins
// ties. A zero displacement keeps the current facing.
func facing(current Direction, dx, dy float64) Direction {
	switch {
	case dx == 0 && dy == 0:
		return current
	case math.Abs(dx) >= math.Abs(dy):
		if dx > 0 {
			return DirectionRight
		}
		return DirectionLeft
	case dy > 0:
		return DirectionDown
	default:
		return DirectionUp
	}
}

// Action is what a resident is currently doing. Exactly one is active.
type Action string

const (
	ActionIdle    Action = "idle"
	ActionMoving  Action = "moving"
	ActionWorking Action = "working"
)

// Animation is the sprite animation phase.
type Animation struct {
	Frame   int     `json:"frame"`
	Elapsed float64 `json:"elapsed"` // Seconds accumulated toward the next frame
}

// State is a snapshot of a resident, safe to hand to other goroutines.
type State struct {
	Name string `json:"name"`

	Position        Position  `json:"position"`        // Last committed waypoint
	DisplayPosition Position  `json:"displayPosition"` // Interpolated toward NextPathPosition
	Direction       Direction `json:"direction"`
	CurrentAction   Action    `json:"currentAction"`

	TargetPosition   *Position  `json:"targetPosition,omitempty"`
	NextPathPosition *Position  `json:"nextPathPosition,omitempty"`
	CurrentPath      []Position `json:"currentPath,omitempty"` // Waypoints after NextPathPosition

	MovementSpeed         float64   `json:"movementSpeed"` // Cells per second
	WorkProgress          float64   `json:"workProgress"`  // Seconds
	Animation             Animation `json:"animation"`
	HasReachedDestination bool      `json:"hasReachedDestination"`

	IsHome    bool   `json:"isHome"`
	AreaID    string `json:"areaId,omitempty"`
	Home      string `json:"home"`
	Workplace string `json:"workplace,omitempty"`
}

// Tuning holds the movement, animation, and work constants.
type Tuning struct {
	Speed         float64 // Cells per second
	FrameCount    int     // Sprite frames per walk cycle
	FrameDuration float64 // Seconds per frame
	WorkDuration  float64 // Seconds of work before returning to idle
}

// DefaultTuning returns the standard resident constants.
func DefaultTuning() Tuning {
	return Tuning{
		Speed:         2.0,
		FrameCount:    4,
		FrameDuration: 0.15,
		WorkDuration:  10,
	}
}

// HomeAreaFor returns the area id of a resident's home.
func HomeAreaFor(residentID string) string {
	return "house_" + residentID
}
