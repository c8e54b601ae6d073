package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-town/internal/agents"
	"github.com/talgya/mini-town/internal/areas"
	"github.com/talgya/mini-town/internal/world"
)

type openGrid struct{ w, h int }

func (g openGrid) IsWalkable(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.w && y < g.h
}

// switchableLookup panics on AreaAt once armed.
type switchableLookup struct {
	*areas.Registry
	armed bool
}

func (l *switchableLookup) AreaAt(x, y float64) (*areas.Area, bool) {
	if l.armed {
		panic("lookup exploded")
	}
	return l.Registry.AreaAt(x, y)
}

func testRegistry(t *testing.T) *areas.Registry {
	t.Helper()
	reg := areas.NewRegistry()
	require.NoError(t, reg.AddArea("house_william", "William's House", areas.Rect(0, 0, 2, 2), ""))
	require.NoError(t, reg.AddArea("house_olivia", "Olivia's House", areas.Rect(8, 0, 2, 2), ""))
	require.NoError(t, reg.AddArea("office", "Office", areas.Rect(4, 6, 2, 2), ""))
	return reg
}

func testResident(t *testing.T, id string, start world.Cell) *agents.Resident {
	t.Helper()
	return agents.NewResident(id, id, "office", start, agents.DefaultTuning(), testRegistry(t), openGrid{10, 10})
}
