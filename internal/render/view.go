package render

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/talgya/mini-town/internal/agents"
	"github.com/talgya/mini-town/internal/engine"
	"github.com/talgya/mini-town/internal/world"
)

// hudRows is the number of screen rows reserved below the map.
const hudRows = 1

var (
	styleBase    = tcell.StyleDefault.Background(tcell.NewRGBColor(20, 24, 20)).Foreground(tcell.ColorWhite)
	styleNight   = tcell.StyleDefault.Background(tcell.NewRGBColor(10, 12, 28)).Foreground(tcell.ColorSilver)
	styleHUD     = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
	styleLabel   = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
	styleBubble  = tcell.StyleDefault.Background(tcell.ColorWhite).Foreground(tcell.ColorBlack)
	colorHome    = tcell.NewRGBColor(129, 178, 154)
	colorWorking = tcell.NewRGBColor(242, 204, 143)
	colorAway    = tcell.ColorWhite
)

// directionGlyphs are the resident markers per facing.
var directionGlyphs = map[agents.Direction]rune{
	agents.DirectionDown:  'v',
	agents.DirectionUp:    '^',
	agents.DirectionLeft:  '<',
	agents.DirectionRight: '>',
}

// Draw paints one frame: tiles, the optional area overlay, residents, and
// the status line. It does not call Show.
func Draw(s tcell.Screen, scene *engine.Scene, frame *engine.Frame, cam *Camera, showAreas bool) {
	s.Clear()
	if scene == nil {
		return
	}
	base := styleBase
	if frame != nil && frame.IsNight {
		base = styleNight
	}

	types := make(map[int]world.TileType, len(scene.TileTypes))
	for _, t := range scene.TileTypes {
		types[t.ID] = t
	}
	var overlay map[world.Cell]tcell.Color
	if showAreas {
		overlay = areaOverlay(scene)
	}

	for y := 0; y < scene.Height; y++ {
		for x := 0; x < scene.Width; x++ {
			c := world.Cell{X: x, Y: y}
			if !cam.Visible(c) {
				continue
			}
			glyph, style := ' ', base
			if t, ok := types[scene.Tiles[y][x]]; ok {
				glyph = t.Glyph
				if fg := tcell.GetColor(t.Color); fg != tcell.ColorDefault {
					style = style.Foreground(fg)
				}
			}
			if bg, ok := overlay[c]; ok {
				style = style.Background(bg)
			}
			fillCell(s, cam, c, glyph, style)
		}
	}

	if showAreas {
		for _, a := range scene.Areas {
			sx, sy := cam.WorldToScreen(float64(a.Bounds.MinX), float64(a.Bounds.MinY))
			drawText(s, sx, sy, cam.viewW, a.Name, styleLabel)
		}
	}

	if frame != nil {
		for _, rv := range frame.Residents {
			drawResident(s, cam, rv)
		}
	}
	drawHUD(s, frame, cam, showAreas)
}

// areaOverlay maps each area tile to its tint. The first registered area
// wins where areas overlap.
func areaOverlay(scene *engine.Scene) map[world.Cell]tcell.Color {
	out := make(map[world.Cell]tcell.Color)
	for _, a := range scene.Areas {
		color := tcell.GetColor(a.Color)
		if color == tcell.ColorDefault {
			color = tcell.ColorDarkSlateGray
		}
		for _, c := range a.Tiles {
			if _, taken := out[c]; !taken {
				out[c] = color
			}
		}
	}
	return out
}

// fillCell paints the screen block covering one world cell, with the glyph
// in its top-left corner.
func fillCell(s tcell.Screen, cam *Camera, c world.Cell, glyph rune, style tcell.Style) {
	sx, sy := cam.WorldToScreen(float64(c.X), float64(c.Y))
	for dy := 0; dy < cam.cellH(); dy++ {
		for dx := 0; dx < cam.cellW(); dx++ {
			r := ' '
			if dx == 0 && dy == 0 {
				r = glyph
			}
			setCell(s, cam, sx+dx, sy+dy, r, style)
		}
	}
}

func setCell(s tcell.Screen, cam *Camera, x, y int, r rune, style tcell.Style) {
	if x < 0 || y < 0 || x >= cam.viewW || y >= cam.viewH {
		return
	}
	s.SetContent(x, y, r, nil, style)
}

func drawResident(s tcell.Screen, cam *Camera, rv engine.ResidentView) {
	st := rv.State
	if !cam.Visible(st.DisplayPosition.Cell()) {
		return
	}
	sx, sy := cam.WorldToScreen(st.DisplayPosition.X, st.DisplayPosition.Y)

	fg := colorAway
	switch {
	case st.CurrentAction == agents.ActionWorking:
		fg = colorWorking
	case st.IsHome:
		fg = colorHome
	}
	style := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(fg)
	// Walk cycle: odd frames are drawn bold.
	if st.CurrentAction == agents.ActionMoving && st.Animation.Frame%2 == 1 {
		style = style.Bold(true)
	}

	glyph, ok := directionGlyphs[st.Direction]
	if !ok {
		glyph = '@'
	}
	setCell(s, cam, sx, sy, glyph, style)

	label := rv.Name
	if rv.Bubble != "" {
		drawText(s, sx+runewidth.StringWidth(label)+1, sy-1, cam.viewW, rv.Bubble, styleBubble)
	}
	drawText(s, sx, sy-1, cam.viewW, label, styleLabel)
}

// drawText writes str from (x, y), clipped at maxX. Wide runes take two
// columns.
func drawText(s tcell.Screen, x, y, maxX int, str string, style tcell.Style) int {
	if y < 0 {
		return x
	}
	for _, r := range str {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if x+w > maxX {
			break
		}
		if x >= 0 {
			s.SetContent(x, y, r, nil, style)
		}
		x += w
	}
	return x
}

func drawHUD(s tcell.Screen, frame *engine.Frame, cam *Camera, showAreas bool) {
	w, h := s.Size()
	y := h - hudRows
	for x := 0; x < w; x++ {
		s.SetContent(x, y, ' ', nil, styleHUD)
	}
	if frame == nil {
		return
	}

	period := "day"
	if frame.IsNight {
		period = "night"
	}
	counts := make(map[agents.Action]int)
	for _, rv := range frame.Residents {
		counts[rv.State.CurrentAction]++
	}
	line := fmt.Sprintf(" %s (%s)  tick %d  idle %d  moving %d  working %d  zoom %dx",
		frame.Clock, period, frame.Tick,
		counts[agents.ActionIdle], counts[agents.ActionMoving], counts[agents.ActionWorking],
		cam.Zoom)
	if showAreas {
		line += "  [areas]"
	}
	drawText(s, 0, y, w, line, styleHUD)
}
