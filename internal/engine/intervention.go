package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/mini-town/internal/agents"
)

// SetCommand queues an operator command for a resident. It is applied on
// the next tick, overriding whatever the resident is doing.
func (s *Simulation) SetCommand(residentID, command string) error {
	if !s.HasResident(residentID) {
		return fmt.Errorf("%w: %q", ErrUnknownResident, residentID)
	}
	cmd, err := agents.ParseCommand(command)
	if err != nil {
		return err
	}
	select {
	case s.inbox <- operatorCommand{resident: residentID, cmd: cmd}:
		return nil
	default:
		return ErrInboxFull
	}
}

func (s *Simulation) applyOperatorCommands(tick uint64) {
	for {
		select {
		case oc := <-s.inbox:
			err := s.Residents.Apply(oc.resident, oc.cmd)
			if r, ok := s.Residents.Get(oc.resident); ok {
				s.bubbles[oc.resident] = bubbleText(r.Action())
			}
			meta := map[string]any{"command": oc.cmd.String()}
			if err != nil {
				meta["error"] = err.Error()
			}
			s.EmitEvent(Event{
				Tick:        tick,
				Resident:    oc.resident,
				Category:    "admin",
				Description: fmt.Sprintf("operator: %s %s", oc.resident, oc.cmd),
				Meta:        meta,
			})
			slog.Info("operator command", "resident", oc.resident, "command", oc.cmd, "error", err)
		default:
			return
		}
	}
}

// ClockChange is an operator adjustment of the game clock. Zero fields are
// left alone.
type ClockChange struct {
	Pause    *bool      `json:"pause,omitempty"`
	Speed    *float64   `json:"speed,omitempty"`
	AddHours int        `json:"addHours,omitempty"`
	AddDays  int        `json:"addDays,omitempty"`
	SetTime  *TimeOfDay `json:"setTime,omitempty"`
}

// TimeOfDay is an hour and minute on the game clock.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// AdjustClock applies a clock change and records it.
func (s *Simulation) AdjustClock(c ClockChange) (string, error) {
	if t := c.SetTime; t != nil && (t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59) {
		return "", fmt.Errorf("invalid time %02d:%02d", t.Hour, t.Minute)
	}
	if c.Speed != nil {
		if err := s.Clock.SetSpeed(*c.Speed); err != nil {
			return "", err
		}
	}
	if c.Pause != nil {
		if *c.Pause {
			s.Clock.Pause()
		} else {
			s.Clock.Resume()
		}
	}
	if c.AddDays != 0 {
		s.Clock.AddDays(c.AddDays)
	}
	if c.AddHours != 0 {
		s.Clock.AddHours(c.AddHours)
	}
	if c.SetTime != nil {
		s.Clock.SetTime(c.SetTime.Hour, c.SetTime.Minute, 0)
	}

	desc := fmt.Sprintf("The town clock now reads %s", s.Clock.String())
	s.EmitEvent(Event{
		Tick:        s.CurrentTick(),
		Category:    "admin",
		Description: desc,
		Meta: map[string]any{
			"paused": s.Clock.Paused(),
			"speed":  s.Clock.Speed(),
		},
	})
	slog.Info("clock intervention", "clock", s.Clock.String(), "speed", s.Clock.Speed(), "paused", s.Clock.Paused())
	return desc, nil
}
