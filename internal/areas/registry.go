// Package areas provides named regions of grid cells (homes, workplaces,
// streets) with derived bounds and centers.
package areas

import (
	"errors"
	"fmt"
	"math"

	"github.com/talgya/mini-town/internal/world"
)

var (
	ErrEmptyArea     = errors.New("area has no tiles")
	ErrDuplicateArea = errors.New("area already registered")
)

// Bounds is an inclusive axis-aligned bounding box in cells.
type Bounds struct {
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
}

// Area is a named set of cells. Areas are immutable once registered.
type Area struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Color  string       `json:"color"`
	Tiles  []world.Cell `json:"tiles"`
	Center world.Cell   `json:"center"` // Not necessarily one of Tiles
	Bounds Bounds       `json:"bounds"`

	set map[world.Cell]struct{}
}

// Contains reports whether the cell is one of the area's tiles.
func (a *Area) Contains(c world.Cell) bool {
	_, ok := a.set[c]
	return ok
}

// palette is used for areas registered without a color.
var palette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1",
	"#D4A5A5", "#9B59B6", "#3498DB",
	"#F39C12", "#F9BF3B", "#F9690E",
}

// Registry stores areas densely in registration order with an id index.
type Registry struct {
	areas []*Area
	index map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// AddArea registers an area. The center is the floored midpoint of the
// bounding box. An empty color picks one from the default palette.
func (r *Registry) AddArea(id, name string, tiles []world.Cell, color string) error {
	if len(tiles) == 0 {
		return fmt.Errorf("add area %q: %w", id, ErrEmptyArea)
	}
	if _, ok := r.index[id]; ok {
		return fmt.Errorf("add area %q: %w", id, ErrDuplicateArea)
	}

	b := Bounds{MinX: tiles[0].X, MinY: tiles[0].Y, MaxX: tiles[0].X, MaxY: tiles[0].Y}
	set := make(map[world.Cell]struct{}, len(tiles))
	for _, t := range tiles {
		b.MinX = min(b.MinX, t.X)
		b.MinY = min(b.MinY, t.Y)
		b.MaxX = max(b.MaxX, t.X)
		b.MaxY = max(b.MaxY, t.Y)
		set[t] = struct{}{}
	}

	if color == "" {
		color = palette[len(r.areas)%len(palette)]
	}

	own := make([]world.Cell, len(tiles))
	copy(own, tiles)

	r.index[id] = len(r.areas)
	r.areas = append(r.areas, &Area{
		ID:     id,
		Name:   name,
		Color:  color,
		Tiles:  own,
		Center: world.Cell{X: floorDiv2(b.MinX + b.MaxX), Y: floorDiv2(b.MinY + b.MaxY)},
		Bounds: b,
		set:    set,
	})
	return nil
}

// HasArea reports whether an area with this id is registered.
func (r *Registry) HasArea(id string) bool {
	_, ok := r.index[id]
	return ok
}

// Get returns an area by id.
func (r *Registry) Get(id string) (*Area, bool) {
	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return r.areas[i], true
}

// AreaAt returns the first area, in registration order, containing the cell
// (floor(x), floor(y)).
func (r *Registry) AreaAt(x, y float64) (*Area, bool) {
	c := world.Cell{X: int(math.Floor(x)), Y: int(math.Floor(y))}
	for _, a := range r.areas {
		if a.Contains(c) {
			return a, true
		}
	}
	return nil, false
}

// Center returns the derived center of an area.
func (r *Registry) Center(id string) (world.Cell, bool) {
	a, ok := r.Get(id)
	if !ok {
		return world.Cell{}, false
	}
	return a.Center, true
}

// Anchor returns the cell residents walk to when heading for an area: the
// center when it is one of the area's tiles, otherwise the member tile
// nearest to it (earlier tiles win ties).
func (r *Registry) Anchor(id string) (world.Cell, bool) {
	a, ok := r.Get(id)
	if !ok {
		return world.Cell{}, false
	}
	if a.Contains(a.Center) {
		return a.Center, true
	}
	best := a.Tiles[0]
	bestDist := world.Manhattan(best, a.Center)
	for _, t := range a.Tiles[1:] {
		if d := world.Manhattan(t, a.Center); d < bestDist {
			best, bestDist = t, d
		}
	}
	return best, true
}

// Areas returns all areas in registration order.
func (r *Registry) Areas() []*Area {
	out := make([]*Area, len(r.areas))
	copy(out, r.areas)
	return out
}

// Len returns the number of registered areas.
func (r *Registry) Len() int {
	return len(r.areas)
}

// Covers reports whether any area contains the cell.
func (r *Registry) Covers(c world.Cell) bool {
	_, ok := r.AreaAt(float64(c.X), float64(c.Y))
	return ok
}

// Rect returns the cells of a w×h rectangle with its top-left corner at (x, y).
func Rect(x, y, w, h int) []world.Cell {
	cells := make([]world.Cell, 0, w*h)
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			cells = append(cells, world.Cell{X: x + dx, Y: y + dy})
		}
	}
	return cells
}

func floorDiv2(n int) int {
	if n < 0 {
		return -((-n + 1) / 2)
	}
	return n / 2
}
