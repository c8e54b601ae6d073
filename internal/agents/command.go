package agents

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/talgya/mini-town/internal/world"
)

// ErrUnknownCommand is returned for command strings outside the vocabulary.
var ErrUnknownCommand = errors.New("unknown command")

// CommandKind enumerates the behaviors a resident can be told to start.
type CommandKind uint8

const (
	CommandIdle      CommandKind = iota
	CommandMoveHome              // Walk to the home area
	CommandMoveWork              // Walk to the workplace area
	CommandStartWork             // Work in place
	CommandMoveTo                // Walk to a cell
	CommandMoveArea              // Walk to a named area
)

// Command is a decoded next-behavior instruction.
type Command struct {
	Kind   CommandKind
	Target world.Cell // CommandMoveTo
	AreaID string     // CommandMoveArea
}

// String renders the command in its wire form.
func (c Command) String() string {
	switch c.Kind {
	case CommandMoveHome:
		return "move_home"
	case CommandMoveWork:
		return "move_work"
	case CommandStartWork:
		return "start_work"
	case CommandMoveTo:
		return fmt.Sprintf("move %d %d", c.Target.X, c.Target.Y)
	case CommandMoveArea:
		return "move_to " + c.AreaID
	default:
		return "idle"
	}
}

// ParseCommand decodes a command string. Accepted forms:
//
//	idle | move_home | move_work | start_work | move <x> <y> | move_to <area_id>
func ParseCommand(s string) (Command, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty", ErrUnknownCommand)
	}

	switch strings.ToLower(fields[0]) {
	case "idle":
		if len(fields) == 1 {
			return Command{Kind: CommandIdle}, nil
		}
	case "move_home":
		if len(fields) == 1 {
			return Command{Kind: CommandMoveHome}, nil
		}
	case "move_work":
		if len(fields) == 1 {
			return Command{Kind: CommandMoveWork}, nil
		}
	case "start_work":
		if len(fields) == 1 {
			return Command{Kind: CommandStartWork}, nil
		}
	case "move":
		if len(fields) == 3 {
			x, errX := strconv.Atoi(fields[1])
			y, errY := strconv.Atoi(fields[2])
			if errX == nil && errY == nil {
				return Command{Kind: CommandMoveTo, Target: world.Cell{X: x, Y: y}}, nil
			}
		}
	case "move_to":
		if len(fields) == 2 {
			return Command{Kind: CommandMoveArea, AreaID: fields[1]}, nil
		}
	}

	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}
