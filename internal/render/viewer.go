package render

import (
	"context"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/talgya/mini-town/internal/engine"
)

// DefaultFPS is the redraw rate of the terminal viewer.
const DefaultFPS = 30

// Source supplies what the viewer draws. *engine.Simulation satisfies it.
type Source interface {
	Scene() *engine.Scene
	Frame() *engine.Frame
}

// Viewer is the interactive terminal front end.
//
// Keys: arrows or hjkl pan, + and - zoom, a toggles the area overlay,
// space calls OnPause, q or Esc quits.
type Viewer struct {
	Screen    tcell.Screen // Must already be initialized; Run finalizes it
	Source    Source
	Camera    *Camera
	ShowAreas bool
	FPS       int
	OnPause   func() // Optional
}

// Run draws frames and handles input until ctx is cancelled or the user
// quits.
func (v *Viewer) Run(ctx context.Context) error {
	defer v.Screen.Fini()

	if v.Camera == nil {
		w, h := v.Screen.Size()
		sc := v.Source.Scene()
		v.Camera = NewCamera(sc.Width, sc.Height, w, h-hudRows)
	}
	fps := v.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}

	events := make(chan tcell.Event, 16)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := v.Screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	v.draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if !v.handle(ev) {
				slog.Info("viewer closed by user")
				return nil
			}
			v.draw()
		case <-ticker.C:
			v.draw()
		}
	}
}

func (v *Viewer) draw() {
	Draw(v.Screen, v.Source.Scene(), v.Source.Frame(), v.Camera, v.ShowAreas)
	v.Screen.Show()
}

// handle applies one input event. It returns false when the viewer should
// exit.
func (v *Viewer) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		w, h := ev.Size()
		v.Camera.Resize(w, h-hudRows)
		v.Screen.Sync()
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyUp:
			v.Camera.Pan(0, -1)
		case tcell.KeyDown:
			v.Camera.Pan(0, 1)
		case tcell.KeyLeft:
			v.Camera.Pan(-1, 0)
		case tcell.KeyRight:
			v.Camera.Pan(1, 0)
		case tcell.KeyRune:
			return v.handleRune(ev.Rune())
		}
	}
	return true
}

func (v *Viewer) handleRune(r rune) bool {
	switch r {
	case 'q':
		return false
	case 'k':
		v.Camera.Pan(0, -1)
	case 'j':
		v.Camera.Pan(0, 1)
	case 'h':
		v.Camera.Pan(-1, 0)
	case 'l':
		v.Camera.Pan(1, 0)
	case '+', '=':
		v.Camera.SetZoom(v.Camera.Zoom + 1)
	case '-', '_':
		v.Camera.SetZoom(v.Camera.Zoom - 1)
	case 'a':
		v.ShowAreas = !v.ShowAreas
	case ' ':
		if v.OnPause != nil {
			v.OnPause()
		}
	}
	return true
}
