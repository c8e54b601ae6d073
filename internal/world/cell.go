// Package world provides the tile grid, walkability, and world generation.
// Coordinates are integer cells; x grows right and y grows down.
package world

import "fmt"

// Cell is one integer grid coordinate.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// CardinalDirections defines the four neighbor offsets, in the order
// neighbors are generated: right, up, left, down.
var CardinalDirections = [4]Cell{
	{X: 1, Y: 0},
	{X: 0, Y: -1},
	{X: -1, Y: 0},
	{X: 0, Y: 1},
}

// Neighbors4 returns the four axis-aligned adjacent cells.
func (c Cell) Neighbors4() [4]Cell {
	var result [4]Cell
	for i, dir := range CardinalDirections {
		result[i] = c.Add(dir)
	}
	return result
}

// Add returns the componentwise sum of two cells.
func (c Cell) Add(o Cell) Cell {
	return Cell{X: c.X + o.X, Y: c.Y + o.Y}
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Manhattan returns the 4-connected grid distance between two cells.
func Manhattan(a, b Cell) int {
	dx := a.X - b.X
	dy := a.Y - b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// Walkable is the obstacle lookup consumed by pathfinding and the area
// registry. Out-of-range cells must report false.
type Walkable interface {
	IsWalkable(x, y int) bool
}
