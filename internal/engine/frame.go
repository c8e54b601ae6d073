package engine

import (
	"time"

	"github.com/talgya/mini-town/internal/agents"
	"github.com/talgya/mini-town/internal/areas"
	"github.com/talgya/mini-town/internal/world"
)

// Scene is the static part of the town: tiles and areas. It never changes
// after setup.
type Scene struct {
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	TileTypes []world.TileType `json:"tileTypes"`
	Tiles     [][]int          `json:"tiles"` // [y][x] topmost tile type ID, -1 for none
	Areas     []AreaView       `json:"areas"`
}

// AreaView is what a renderer needs to draw an area.
type AreaView struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Color  string       `json:"color"`
	Tiles  []world.Cell `json:"tiles"`
	Bounds areas.Bounds `json:"bounds"`
	Center world.Cell   `json:"center"`
}

// Frame is the dynamic state published after every tick. Frames are
// immutable once published.
type Frame struct {
	Tick      uint64         `json:"tick"`
	Time      time.Time      `json:"time"`
	Clock     string         `json:"clock"`
	IsNight   bool           `json:"isNight"`
	Residents []ResidentView `json:"residents"`
}

// ResidentView is one resident as drawn.
type ResidentView struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Bubble string       `json:"bubble"`
	State  agents.State `json:"state"`
}

// Resident returns the view of a resident by id.
func (f *Frame) Resident(id string) (ResidentView, bool) {
	for _, r := range f.Residents {
		if r.ID == id {
			return r, true
		}
	}
	return ResidentView{}, false
}

func buildScene(tm *world.TileMap, reg *areas.Registry) *Scene {
	sc := &Scene{
		Width:     tm.Width,
		Height:    tm.Height,
		TileTypes: tm.TileTypes(),
		Tiles:     make([][]int, tm.Height),
	}
	for y := 0; y < tm.Height; y++ {
		row := make([]int, tm.Width)
		for x := 0; x < tm.Width; x++ {
			row[x] = -1
			if t, ok := tm.TileAt(x, y); ok {
				row[x] = t.ID
			}
		}
		sc.Tiles[y] = row
	}
	for _, a := range reg.Areas() {
		sc.Areas = append(sc.Areas, AreaView{
			ID:     a.ID,
			Name:   a.Name,
			Color:  a.Color,
			Tiles:  a.Tiles,
			Bounds: a.Bounds,
			Center: a.Center,
		})
	}
	return sc
}

// bubbleText is the speech bubble shown over a resident for an action.
func bubbleText(a agents.Action) string {
	switch a {
	case agents.ActionMoving:
		return "Walking..."
	case agents.ActionWorking:
		return "Working"
	case agents.ActionIdle:
		return "Standing"
	default:
		return string(a)
	}
}
