package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-town/internal/world"
)

func TestParseCommand(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Command
	}{
		{"idle", Command{Kind: CommandIdle}},
		{"  IDLE ", Command{Kind: CommandIdle}},
		{"move_home", Command{Kind: CommandMoveHome}},
		{"move_work", Command{Kind: CommandMoveWork}},
		{"start_work", Command{Kind: CommandStartWork}},
		{"move 3 -2", Command{Kind: CommandMoveTo, Target: world.Cell{X: 3, Y: -2}}},
		{"move_to House_William", Command{Kind: CommandMoveArea, AreaID: "House_William"}},
	} {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseCommand(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseCommand_Rejects(t *testing.T) {
	for _, in := range []string{"", "   ", "dance", "move 1", "move a b", "move_to", "idle now", "move_to a b"} {
		_, err := ParseCommand(in)
		assert.ErrorIs(t, err, ErrUnknownCommand, in)
	}
}

func TestCommand_StringParses(t *testing.T) {
	for _, c := range []Command{
		{Kind: CommandIdle},
		{Kind: CommandMoveTo, Target: world.Cell{X: 7, Y: 1}},
		{Kind: CommandMoveArea, AreaID: "office"},
	} {
		got, err := ParseCommand(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}
