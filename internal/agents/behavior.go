// Resident behavior: the idle/moving/working state machine.
// Each tick advances the active behavior, the walk animation, and area status.
package agents

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/mini-town/internal/pathfind"
)

// Update advances the resident by dtMs milliseconds. A negative or
// non-finite elapsed time is rejected without touching any state.
func (r *Resident) Update(dtMs float64) error {
	if math.IsNaN(dtMs) || math.IsInf(dtMs, 0) || dtMs < 0 {
		return fmt.Errorf("%w: %v ms", ErrInvalidElapsed, dtMs)
	}
	dt := dtMs / 1000

	switch r.state.CurrentAction {
	case ActionMoving:
		r.updateMovement(dt)
	case ActionWorking:
		r.updateWork(dt)
	case ActionIdle:
		// Waiting for the next command.
	}

	r.updateAnimation(dt)
	r.UpdateAreaStatus()
	return nil
}

// Execute starts the behavior a command names. Commands that cannot be
// carried out leave the resident idle and return an error.
func (r *Resident) Execute(cmd Command) error {
	switch cmd.Kind {
	case CommandIdle:
		r.Idle()
	case CommandStartWork:
		r.StartWork()
	case CommandMoveHome:
		return r.moveToArea(r.HomeAreaID)
	case CommandMoveWork:
		if r.WorkAreaID == "" {
			r.Idle()
			return fmt.Errorf("%s has no workplace: %w", r.ID, ErrNoSuchArea)
		}
		return r.moveToArea(r.WorkAreaID)
	case CommandMoveArea:
		return r.moveToArea(cmd.AreaID)
	case CommandMoveTo:
		r.MoveTo(PositionOf(cmd.Target))
	default:
		slog.Warn("unknown command kind, idling", "resident", r.ID, "kind", cmd.Kind)
		r.Idle()
		return fmt.Errorf("%w: kind %d", ErrUnknownCommand, cmd.Kind)
	}
	return nil
}

func (r *Resident) moveToArea(areaID string) error {
	anchor, ok := r.areas.Anchor(areaID)
	if !ok {
		r.Idle()
		return fmt.Errorf("move to %q: %w", areaID, ErrNoSuchArea)
	}
	r.MoveTo(PositionOf(anchor))
	return nil
}

// MoveTo plans a route to target and starts walking it. When no route
// exists the resident stays idle and MoveTo returns false.
func (r *Resident) MoveTo(target Position) bool {
	// Restart from the committed cell.
	r.state.DisplayPosition = r.state.Position
	r.state.HasReachedDestination = false
	r.state.WorkProgress = 0

	path := pathfind.FindPath(r.grid, r.state.Position.Cell(), target.Cell())
	if len(path) == 0 {
		slog.Info("no route, staying idle",
			"resident", r.ID,
			"from", r.state.Position.Cell(),
			"to", target.Cell(),
		)
		r.finishMove(false)
		return false
	}

	t := target
	next := PositionOf(path[0])
	r.state.TargetPosition = &t
	r.state.NextPathPosition = &next
	r.path = path[1:]
	r.state.CurrentAction = ActionMoving
	return true
}

// StartWork begins working in place.
func (r *Resident) StartWork() {
	r.clearMove()
	r.state.CurrentAction = ActionWorking
	r.state.WorkProgress = 0
}

// Idle stops whatever the resident is doing.
func (r *Resident) Idle() {
	r.clearMove()
	r.state.CurrentAction = ActionIdle
	r.state.WorkProgress = 0
}

// updateMovement walks along the path. Distance left over after reaching a
// waypoint carries on toward the following one within the same tick.
func (r *Resident) updateMovement(dt float64) {
	if r.state.TargetPosition == nil || r.state.NextPathPosition == nil {
		r.finishMove(false)
		return
	}

	step := r.state.MovementSpeed * dt
	for {
		next := *r.state.NextPathPosition
		cur := r.state.DisplayPosition
		dist := cur.DistanceTo(next)

		if dist > step {
			ratio := step / dist
			r.state.Direction = facing(r.state.Direction, next.X-cur.X, next.Y-cur.Y)
			r.state.DisplayPosition = Position{
				X: cur.X + (next.X-cur.X)*ratio,
				Y: cur.Y + (next.Y-cur.Y)*ratio,
			}
			return
		}

		r.state.Direction = facing(r.state.Direction, next.X-cur.X, next.Y-cur.Y)
		r.state.DisplayPosition = next
		r.state.Position = next
		step -= dist

		if len(r.path) == 0 {
			reached := next.Cell() == r.state.TargetPosition.Cell()
			r.finishMove(reached)
			return
		}
		n := PositionOf(r.path[0])
		r.path = r.path[1:]
		r.state.NextPathPosition = &n
	}
}

func (r *Resident) updateWork(dt float64) {
	r.state.WorkProgress += dt
	if r.state.WorkProgress >= r.tuning.WorkDuration {
		r.state.WorkProgress = 0
		r.state.CurrentAction = ActionIdle
	}
}

// updateAnimation cycles walk frames while moving and rests on frame 0
// otherwise.
func (r *Resident) updateAnimation(dt float64) {
	anim := &r.state.Animation
	if r.state.CurrentAction != ActionMoving || r.tuning.FrameCount <= 0 || r.tuning.FrameDuration <= 0 {
		anim.Frame = 0
		anim.Elapsed = 0
		return
	}
	anim.Elapsed += dt
	for anim.Elapsed >= r.tuning.FrameDuration {
		anim.Elapsed -= r.tuning.FrameDuration
		anim.Frame = (anim.Frame + 1) % r.tuning.FrameCount
	}
}

func (r *Resident) finishMove(reached bool) {
	r.clearMove()
	r.state.CurrentAction = ActionIdle
	r.state.HasReachedDestination = reached
}

func (r *Resident) clearMove() {
	r.state.TargetPosition = nil
	r.state.NextPathPosition = nil
	r.path = nil
	r.state.DisplayPosition = r.state.Position
}
