package world

import (
	"fmt"
	"sort"
)

// TileType is a registered kind of tile.
type TileType struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Walkable bool   `json:"walkable"`
	Glyph    rune   `json:"glyph"`
	Color    string `json:"color"` // "#RRGGBB"
}

// Layer is one plane of placed tiles. Cells hold a tile type ID or noTile.
type Layer struct {
	Tiles   []int `json:"-"`
	Visible bool  `json:"visible"`
}

const noTile = -1

// TileMap holds the layered tile grid for one world. It is owned by the
// composition root and passed to everything that needs walkability.
type TileMap struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	types  map[int]TileType
	layers []*Layer
}

// NewTileMap creates an empty map of the given size in cells.
func NewTileMap(width, height int) *TileMap {
	return &TileMap{
		Width:  width,
		Height: height,
		types:  make(map[int]TileType),
	}
}

// RegisterTileType adds or replaces a tile type.
func (m *TileMap) RegisterTileType(t TileType) {
	m.types[t.ID] = t
}

// TileType returns a registered tile type by ID.
func (m *TileMap) TileType(id int) (TileType, bool) {
	t, ok := m.types[id]
	return t, ok
}

// TileTypes returns the registered tile types ordered by ID.
func (m *TileMap) TileTypes() []TileType {
	out := make([]TileType, 0, len(m.types))
	for _, t := range m.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddLayer appends an empty visible layer and returns its index.
func (m *TileMap) AddLayer() int {
	tiles := make([]int, m.Width*m.Height)
	for i := range tiles {
		tiles[i] = noTile
	}
	m.layers = append(m.layers, &Layer{Tiles: tiles, Visible: true})
	return len(m.layers) - 1
}

// LayerCount returns the number of layers.
func (m *TileMap) LayerCount() int {
	return len(m.layers)
}

// PlaceTile puts a tile type on a layer. Returns false for an out-of-range
// cell, an unknown layer, or an unregistered tile type.
func (m *TileMap) PlaceTile(x, y, layer, typeID int) bool {
	if !m.InBounds(x, y) || layer < 0 || layer >= len(m.layers) {
		return false
	}
	if _, ok := m.types[typeID]; !ok {
		return false
	}
	m.layers[layer].Tiles[y*m.Width+x] = typeID
	return true
}

// TileAt returns the topmost visible tile at a cell.
func (m *TileMap) TileAt(x, y int) (TileType, bool) {
	if !m.InBounds(x, y) {
		return TileType{}, false
	}
	for i := len(m.layers) - 1; i >= 0; i-- {
		l := m.layers[i]
		if !l.Visible {
			continue
		}
		if id := l.Tiles[y*m.Width+x]; id != noTile {
			return m.types[id], true
		}
	}
	return TileType{}, false
}

// InBounds returns true if the cell lies inside the map.
func (m *TileMap) InBounds(x, y int) bool {
	return x >= 0 && x < m.Width && y >= 0 && y < m.Height
}

// IsWalkable reports whether a cell can be entered. Cells outside the map
// are never walkable; a non-walkable tile on any layer blocks the cell.
func (m *TileMap) IsWalkable(x, y int) bool {
	if !m.InBounds(x, y) {
		return false
	}
	idx := y*m.Width + x
	for _, l := range m.layers {
		id := l.Tiles[idx]
		if id == noTile {
			continue
		}
		if !m.types[id].Walkable {
			return false
		}
	}
	return true
}

// ObstacleData returns a [y][x] grid where true marks a blocked cell.
func (m *TileMap) ObstacleData() [][]bool {
	out := make([][]bool, m.Height)
	for y := range out {
		out[y] = make([]bool, m.Width)
		for x := range out[y] {
			out[y][x] = !m.IsWalkable(x, y)
		}
	}
	return out
}

// WalkableCount returns the number of walkable cells.
func (m *TileMap) WalkableCount() int {
	n := 0
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.IsWalkable(x, y) {
				n++
			}
		}
	}
	return n
}

// String returns a summary of the map.
func (m *TileMap) String() string {
	return fmt.Sprintf("TileMap(%dx%d, layers=%d, types=%d)", m.Width, m.Height, len(m.layers), len(m.types))
}
