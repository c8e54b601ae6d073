// World generation using layered simplex noise.
// The ground layer picks a grass variant per cell and the wall layer rings the
// map with walls and scatters a few more where the wall noise peaks.
package world

import (
	"math/rand"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Tile type IDs registered by Generate.
const (
	GroundBase     = 0   // 0..GroundVariants-1
	WallBase       = 100 // WallBase..WallBase+WallVariants-1
	GroundVariants = 9
	WallVariants   = 5
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Width     int   // Cells
	Height    int   // Cells
	Seed      int64 // Random seed (0 = random)
	WallCount int   // Interior walls scattered after the border ring
}

// DefaultGenConfig returns the standard town layout size.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:     25,
		Height:    19,
		Seed:      0,
		WallCount: 20,
	}
}

// SmallTestConfig returns a tiny world for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:     8,
		Height:    6,
		Seed:      42,
		WallCount: 3,
	}
}

var groundGlyphs = [GroundVariants]rune{'.', '.', '.', ',', ',', '\'', '`', '.', ','}
var groundColors = [GroundVariants]string{
	"#4F8A3C", "#4A8237", "#569441", "#5E9C48", "#467A33",
	"#62A34C", "#3F7330", "#4C863A", "#5A9845",
}

// RegisterDefaultTiles registers the ground and wall tile types.
func RegisterDefaultTiles(m *TileMap) {
	for i := 0; i < GroundVariants; i++ {
		m.RegisterTileType(TileType{
			ID:       GroundBase + i,
			Name:     "grass",
			Walkable: true,
			Glyph:    groundGlyphs[i],
			Color:    groundColors[i],
		})
	}
	for i := 0; i < WallVariants; i++ {
		m.RegisterTileType(TileType{
			ID:       WallBase + i,
			Name:     "wall",
			Walkable: false,
			Glyph:    '#',
			Color:    "#8A8A8A",
		})
	}
}

// Generate creates a tile map with a ground layer and a wall layer.
// keepClear, when non-nil, protects cells from interior walls (area tiles).
func Generate(cfg GenConfig, keepClear func(Cell) bool) *TileMap {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	groundNoise := opensimplex.NewNormalized(seed)
	wallNoise := opensimplex.NewNormalized(seed + 1)

	m := NewTileMap(cfg.Width, cfg.Height)
	RegisterDefaultTiles(m)
	ground := m.AddLayer()
	walls := m.AddLayer()

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			n := octaveNoise(groundNoise, float64(x), float64(y), 3, 0.15, 0.5)
			variant := int(n * GroundVariants)
			if variant >= GroundVariants {
				variant = GroundVariants - 1
			}
			if variant < 0 {
				variant = 0
			}
			m.PlaceTile(x, y, ground, GroundBase+variant)
		}
	}

	// Border ring.
	for x := 0; x < cfg.Width; x++ {
		m.PlaceTile(x, 0, walls, WallBase)
		m.PlaceTile(x, cfg.Height-1, walls, WallBase)
	}
	for y := 0; y < cfg.Height; y++ {
		m.PlaceTile(0, y, walls, WallBase)
		m.PlaceTile(cfg.Width-1, y, walls, WallBase)
	}

	// Interior walls where the wall noise peaks.
	type candidate struct {
		cell  Cell
		score float64
	}
	var candidates []candidate
	for y := 1; y < cfg.Height-1; y++ {
		for x := 1; x < cfg.Width-1; x++ {
			c := Cell{X: x, Y: y}
			if keepClear != nil && keepClear(c) {
				continue
			}
			candidates = append(candidates, candidate{
				cell:  c,
				score: octaveNoise(wallNoise, float64(x), float64(y), 2, 0.35, 0.5),
			})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	count := cfg.WallCount
	if count > len(candidates) {
		count = len(candidates)
	}
	for i := 0; i < count; i++ {
		c := candidates[i].cell
		m.PlaceTile(c.X, c.Y, walls, WallBase+(c.X+c.Y)%WallVariants)
	}

	return m
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
