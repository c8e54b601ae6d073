// Package render draws the town on a terminal with tcell: the tile map, the
// area overlay, residents with their bubbles, and a status line.
package render

import (
	"math"

	"github.com/talgya/mini-town/internal/world"
)

// Zoom limits. At zoom z one world cell covers 2z columns and z rows, which
// keeps cells roughly square on a terminal.
const (
	MinZoom = 1
	MaxZoom = 3
)

// Camera is the viewport over the world, measured in world cells. X and Y
// are the world coordinates of the top-left screen cell.
type Camera struct {
	X, Y float64
	Zoom int

	worldW, worldH int
	viewW, viewH   int // Screen cells
}

// NewCamera centers a camera on the world.
func NewCamera(worldW, worldH, viewW, viewH int) *Camera {
	c := &Camera{Zoom: MinZoom, worldW: worldW, worldH: worldH, viewW: viewW, viewH: viewH}
	c.X = (float64(worldW) - c.visibleW()) / 2
	c.Y = (float64(worldH) - c.visibleH()) / 2
	c.clamp()
	return c
}

func (c *Camera) cellW() int { return 2 * c.Zoom }
func (c *Camera) cellH() int { return c.Zoom }

// visibleW is the number of world cells across the viewport.
func (c *Camera) visibleW() float64 { return float64(c.viewW) / float64(c.cellW()) }
func (c *Camera) visibleH() float64 { return float64(c.viewH) / float64(c.cellH()) }

// Resize updates the viewport size after a terminal resize.
func (c *Camera) Resize(viewW, viewH int) {
	c.viewW, c.viewH = viewW, viewH
	c.clamp()
}

// Pan moves the camera by whole world cells.
func (c *Camera) Pan(dx, dy int) {
	c.X += float64(dx)
	c.Y += float64(dy)
	c.clamp()
}

// SetZoom changes the zoom level, keeping the viewport center fixed.
func (c *Camera) SetZoom(z int) {
	z = max(MinZoom, min(MaxZoom, z))
	if z == c.Zoom {
		return
	}
	cx := c.X + c.visibleW()/2
	cy := c.Y + c.visibleH()/2
	c.Zoom = z
	c.X = cx - c.visibleW()/2
	c.Y = cy - c.visibleH()/2
	c.clamp()
}

// clamp keeps the viewport inside the world. A world smaller than the
// viewport is centered instead.
func (c *Camera) clamp() {
	c.X = clampAxis(c.X, float64(c.worldW), c.visibleW())
	c.Y = clampAxis(c.Y, float64(c.worldH), c.visibleH())
}

func clampAxis(pos, world, visible float64) float64 {
	if world <= visible {
		return (world - visible) / 2
	}
	return math.Max(0, math.Min(pos, world-visible))
}

// WorldToScreen returns the screen cell of a world position.
func (c *Camera) WorldToScreen(x, y float64) (int, int) {
	sx := int(math.Floor((x - c.X) * float64(c.cellW())))
	sy := int(math.Floor((y - c.Y) * float64(c.cellH())))
	return sx, sy
}

// ScreenToWorld returns the world position under a screen cell.
func (c *Camera) ScreenToWorld(sx, sy int) (float64, float64) {
	return c.X + float64(sx)/float64(c.cellW()), c.Y + float64(sy)/float64(c.cellH())
}

// Visible reports whether any part of a world cell is on screen.
func (c *Camera) Visible(cell world.Cell) bool {
	sx, sy := c.WorldToScreen(float64(cell.X), float64(cell.Y))
	return sx+c.cellW() > 0 && sy+c.cellH() > 0 && sx < c.viewW && sy < c.viewH
}
