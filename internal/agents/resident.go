package agents

import (
	"errors"
	"fmt"

	"github.com/talgya/mini-town/internal/areas"
	"github.com/talgya/mini-town/internal/world"
)

var (
	ErrInvalidElapsed = errors.New("invalid elapsed time")
	ErrNoSuchArea     = errors.New("area not found")
)

// AreaLookup is the area registry as seen by a resident.
type AreaLookup interface {
	AreaAt(x, y float64) (*areas.Area, bool)
	Anchor(id string) (world.Cell, bool)
}

// Resident is one autonomous townsperson.
type Resident struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	HomeAreaID string `json:"home"`
	WorkAreaID string `json:"workplace,omitempty"`

	state  State
	path   []world.Cell // Waypoints queued after state.NextPathPosition
	tuning Tuning

	areas AreaLookup
	grid  world.Walkable
}

// NewResident creates an idle resident standing on start.
func NewResident(id, name, workAreaID string, start world.Cell, tuning Tuning, lookup AreaLookup, grid world.Walkable) *Resident {
	pos := PositionOf(start)
	r := &Resident{
		ID:         id,
		Name:       name,
		HomeAreaID: HomeAreaFor(id),
		WorkAreaID: workAreaID,
		tuning:     tuning,
		areas:      lookup,
		grid:       grid,
		state: State{
			Name:            name,
			Position:        pos,
			DisplayPosition: pos,
			Direction:       DirectionDown,
			CurrentAction:   ActionIdle,
			MovementSpeed:   tuning.Speed,
			Home:            HomeAreaFor(id),
			Workplace:       workAreaID,
		},
	}
	r.UpdateAreaStatus()
	return r
}

// State returns a snapshot of the resident.
func (r *Resident) State() State {
	s := r.state
	if s.TargetPosition != nil {
		t := *s.TargetPosition
		s.TargetPosition = &t
	}
	if s.NextPathPosition != nil {
		n := *s.NextPathPosition
		s.NextPathPosition = &n
	}
	if len(r.path) > 0 {
		s.CurrentPath = make([]Position, len(r.path))
		for i, c := range r.path {
			s.CurrentPath[i] = PositionOf(c)
		}
	}
	return s
}

// Action returns the current action.
func (r *Resident) Action() Action {
	return r.state.CurrentAction
}

// Position returns the last committed waypoint.
func (r *Resident) Position() Position {
	return r.state.Position
}

// DisplayPosition returns the interpolated drawing position.
func (r *Resident) DisplayPosition() Position {
	return r.state.DisplayPosition
}

// SetMovementSpeed changes the walking speed. Non-positive speeds are ignored.
func (r *Resident) SetMovementSpeed(speed float64) {
	if speed > 0 {
		r.state.MovementSpeed = speed
	}
}

// UpdateAreaStatus recomputes the current area and whether the resident is
// inside their own house.
func (r *Resident) UpdateAreaStatus() {
	a, ok := r.areas.AreaAt(r.state.Position.X, r.state.Position.Y)
	if !ok {
		r.state.AreaID = ""
		r.state.IsHome = false
		return
	}
	r.state.AreaID = a.ID
	r.state.IsHome = a.ID == r.HomeAreaID
}

func (r *Resident) String() string {
	return fmt.Sprintf("%s(%s %s @%v)", r.Name, r.ID, r.state.CurrentAction, r.state.Position.Cell())
}
