// Resident cognition: Haiku picks the next command for an idle resident.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/talgya/mini-town/internal/agents"
)

// ResidentContext is the situation an idle resident decides from.
type ResidentContext struct {
	ID        string
	Name      string
	Home      string
	Workplace string
	AreaID    string // Empty when outside every area
	IsHome    bool
	X, Y      int
	Clock     string
	IsNight   bool
	Areas     []string // Known area ids
}

// CommandDecision is Haiku's answer.
type CommandDecision struct {
	Command   string `json:"command"`
	Reasoning string `json:"reasoning"`
}

// DecideCommand asks Haiku for one command in the resident vocabulary.
// Recognized commands come back in canonical form, anything else verbatim.
// Only a reply without a usable JSON object is an error.
func DecideCommand(ctx context.Context, client *Client, rc ResidentContext) (CommandDecision, error) {
	if !client.Enabled() {
		return CommandDecision{}, ErrDisabled
	}

	text, err := client.Complete(ctx, buildCommandSystemPrompt(rc), buildCommandUserPrompt(rc), 200)
	if err != nil {
		return CommandDecision{}, fmt.Errorf("decide command for %s: %w", rc.ID, err)
	}
	return parseCommandResponse(text)
}

func buildCommandSystemPrompt(rc ResidentContext) string {
	work := rc.Workplace
	if work == "" {
		work = "nowhere (you have no job)"
	}
	return fmt.Sprintf(
		`You are %s, a resident of a small tile-based town. Your home is the area %q and you work at %s.
Choose what to do next. Keep a believable daily rhythm: sleep at home at night, work during office hours, stroll otherwise.

Respond ONLY with a JSON object:
{"command": "<command>", "reasoning": "<one sentence>"}

Valid commands:
- idle: stand still for a while
- move_home: walk home
- move_work: walk to your workplace
- start_work: work where you stand
- move_to <area_id>: walk to a named area
- move <x> <y>: walk to a grid cell`,
		rc.Name, rc.Home, work,
	)
}

func buildCommandUserPrompt(rc ResidentContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "It is %s", rc.Clock)
	if rc.IsNight {
		b.WriteString(" (night)")
	}
	b.WriteString(".\n")
	switch {
	case rc.IsHome:
		b.WriteString("You are at home")
	case rc.AreaID != "":
		fmt.Fprintf(&b, "You are in %s", rc.AreaID)
	default:
		b.WriteString("You are outdoors")
	}
	fmt.Fprintf(&b, " at cell (%d, %d).\n", rc.X, rc.Y)
	if len(rc.Areas) > 0 {
		fmt.Fprintf(&b, "Areas in town: %s.\n", strings.Join(rc.Areas, ", "))
	}
	b.WriteString("What do you do next?")
	return b.String()
}

func parseCommandResponse(response string) (CommandDecision, error) {
	// The model may wrap the object in prose.
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		return CommandDecision{}, errors.New("no JSON object found in response")
	}

	var d CommandDecision
	if err := json.Unmarshal([]byte(response[start:end+1]), &d); err != nil {
		return CommandDecision{}, fmt.Errorf("parse decision: %w", err)
	}
	d.Command = strings.TrimSpace(d.Command)
	if d.Command == "" {
		return CommandDecision{}, errors.New("decision has no command")
	}
	// Commands outside the vocabulary pass through verbatim; the resident
	// manager turns them into idle.
	if cmd, err := agents.ParseCommand(d.Command); err == nil {
		d.Command = cmd.String()
	}
	return d, nil
}
