package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTileMap_IsWalkable(t *testing.T) {
	m := NewTileMap(4, 3)
	RegisterDefaultTiles(m)
	ground := m.AddLayer()
	walls := m.AddLayer()
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			require.True(t, m.PlaceTile(x, y, ground, GroundBase))
		}
	}
	require.True(t, m.PlaceTile(2, 1, walls, WallBase))

	assert.True(t, m.IsWalkable(0, 0))
	assert.False(t, m.IsWalkable(2, 1), "wall blocks")
	assert.False(t, m.IsWalkable(-1, 0), "out of range is blocked")
	assert.False(t, m.IsWalkable(4, 0), "out of range is blocked")
	assert.False(t, m.IsWalkable(0, 3), "out of range is blocked")

	obstacles := m.ObstacleData()
	require.Len(t, obstacles, 3)
	require.Len(t, obstacles[0], 4)
	assert.True(t, obstacles[1][2])
	assert.False(t, obstacles[0][0])
	assert.Equal(t, 11, m.WalkableCount())
}

func TestTileMap_PlaceTileRejectsInvalid(t *testing.T) {
	m := NewTileMap(2, 2)
	RegisterDefaultTiles(m)
	layer := m.AddLayer()

	assert.False(t, m.PlaceTile(5, 0, layer, GroundBase), "out of range")
	assert.False(t, m.PlaceTile(0, 0, layer+1, GroundBase), "unknown layer")
	assert.False(t, m.PlaceTile(0, 0, layer, 999), "unregistered type")
	assert.True(t, m.PlaceTile(0, 0, layer, GroundBase))
}

func TestTileMap_TileAtReturnsTopmost(t *testing.T) {
	m := NewTileMap(2, 1)
	RegisterDefaultTiles(m)
	ground := m.AddLayer()
	walls := m.AddLayer()
	m.PlaceTile(0, 0, ground, GroundBase+3)
	m.PlaceTile(1, 0, ground, GroundBase)
	m.PlaceTile(1, 0, walls, WallBase)

	tile, ok := m.TileAt(0, 0)
	require.True(t, ok)
	assert.Equal(t, GroundBase+3, tile.ID)

	tile, ok = m.TileAt(1, 0)
	require.True(t, ok)
	assert.Equal(t, "wall", tile.Name)

	_, ok = m.TileAt(3, 3)
	assert.False(t, ok)
}

func TestGenerate_BorderAndKeepClear(t *testing.T) {
	cfg := GenConfig{Width: 12, Height: 9, Seed: 7, WallCount: 200}
	protected := Cell{X: 5, Y: 4}
	m := Generate(cfg, func(c Cell) bool { return c == protected })

	for x := 0; x < cfg.Width; x++ {
		assert.False(t, m.IsWalkable(x, 0))
		assert.False(t, m.IsWalkable(x, cfg.Height-1))
	}
	for y := 0; y < cfg.Height; y++ {
		assert.False(t, m.IsWalkable(0, y))
		assert.False(t, m.IsWalkable(cfg.Width-1, y))
	}
	assert.True(t, m.IsWalkable(protected.X, protected.Y), "protected cell never walled")
}

func TestGenerate_DeterministicFromSeed(t *testing.T) {
	cfg := SmallTestConfig()
	a := Generate(cfg, nil)
	b := Generate(cfg, nil)
	assert.Equal(t, a.ObstacleData(), b.ObstacleData())

	interior := (cfg.Width - 2) * (cfg.Height - 2)
	assert.Equal(t, interior-cfg.WallCount, a.WalkableCount())
}

func TestCell_Neighbors4AndManhattan(t *testing.T) {
	c := Cell{X: 2, Y: 2}
	assert.Equal(t, [4]Cell{{3, 2}, {2, 1}, {1, 2}, {2, 3}}, c.Neighbors4())
	assert.Equal(t, 5, Manhattan(Cell{0, 0}, Cell{2, -3}))
	assert.Equal(t, "(2,2)", c.String())
}
