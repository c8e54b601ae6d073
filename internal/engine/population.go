// Town setup: areas are registered, the map is generated around them, and
// residents are spawned at their homes. Bad entries are logged and skipped.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/mini-town/internal/agents"
	"github.com/talgya/mini-town/internal/areas"
	"github.com/talgya/mini-town/internal/world"
)

// AreaSpec declares one named area.
type AreaSpec struct {
	ID    string
	Name  string
	Color string
	Tiles []world.Cell
}

// ResidentSpec declares one resident. The home area is always house_<id>.
type ResidentSpec struct {
	ID    string
	Name  string
	Work  string  // Area id; empty for no workplace
	Speed float64 // Cells per second; zero keeps the tuning speed
}

// BuildTown registers the areas and generates a map that keeps every area
// tile clear of interior walls.
func BuildTown(gen world.GenConfig, specs []AreaSpec) (*world.TileMap, *areas.Registry) {
	reg := areas.NewRegistry()
	for _, a := range specs {
		if err := reg.AddArea(a.ID, a.Name, a.Tiles, a.Color); err != nil {
			slog.Error("area skipped", "area", a.ID, "error", err)
		}
	}
	tm := world.Generate(gen, reg.Covers)

	for _, a := range reg.Areas() {
		blocked := 0
		for _, c := range a.Tiles {
			if !tm.IsWalkable(c.X, c.Y) {
				blocked++
			}
		}
		if blocked > 0 {
			slog.Warn("area overlaps walls or leaves the map", "area", a.ID, "blocked_tiles", blocked)
		}
	}
	return tm, reg
}

// SpawnResidents creates residents standing on their home anchor.
func SpawnResidents(specs []ResidentSpec, reg *areas.Registry, grid world.Walkable, tuning agents.Tuning) []*agents.Resident {
	out := make([]*agents.Resident, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		home, err := spawnPoint(spec, reg, grid, seen)
		if err != nil {
			slog.Error("resident skipped", "resident", spec.ID, "error", err)
			continue
		}
		seen[spec.ID] = true

		name := spec.Name
		if name == "" {
			name = spec.ID
		}
		r := agents.NewResident(spec.ID, name, spec.Work, home, tuning, reg, grid)
		r.SetMovementSpeed(spec.Speed)
		out = append(out, r)
		slog.Info("resident spawned", "resident", spec.ID, "home", r.HomeAreaID, "cell", home, "work", spec.Work)
	}
	return out
}

func spawnPoint(spec ResidentSpec, reg *areas.Registry, grid world.Walkable, seen map[string]bool) (world.Cell, error) {
	if spec.ID == "" {
		return world.Cell{}, fmt.Errorf("empty resident id")
	}
	if seen[spec.ID] {
		return world.Cell{}, fmt.Errorf("duplicate resident id")
	}
	if spec.Work != "" && !reg.HasArea(spec.Work) {
		return world.Cell{}, fmt.Errorf("workplace %q: %w", spec.Work, agents.ErrNoSuchArea)
	}
	homeID := agents.HomeAreaFor(spec.ID)
	home, ok := reg.Anchor(homeID)
	if !ok {
		return world.Cell{}, fmt.Errorf("home %q: %w", homeID, agents.ErrNoSuchArea)
	}
	if !grid.IsWalkable(home.X, home.Y) {
		return world.Cell{}, fmt.Errorf("home %q anchor %v is not walkable", homeID, home)
	}
	return home, nil
}
