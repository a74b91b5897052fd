package video

import "fmt"

type WindowFlag uint32

const (
	WindowFullscreen WindowFlag = 1 << iota
	WindowHidden
	WindowMinimized
	WindowMaximized
	WindowInputFocus
	WindowMouseFocus
)

type Window struct {
	ID    uint32
	Title string
	X     int32
	Y     int32
	W     int32
	H     int32
	Flags WindowFlag

	// Surface is set between CreateWindowSurface and DestroyWindowSurface.
	Surface *Surface
}

func (w *Window) Has(f WindowFlag) bool { return w.Flags&f != 0 }

func (w *Window) String() string {
	return fmt.Sprintf("Window(id=%d %q %dx%d at %d,%d flags=%x)", w.ID, w.Title, w.W, w.H, w.X, w.Y, uint32(w.Flags))
}

type DisplayMode struct {
	Format  PixelFormat
	W       int32
	H       int32
	Refresh int32
}

func (m DisplayMode) String() string {
	return fmt.Sprintf("%dx%d@%dHz %s", m.W, m.H, m.Refresh, m.Format.String())
}

// Display is one output with its registered modes.
type Display struct {
	Name    string
	Modes   []DisplayMode
	Current DisplayMode
}

// AddMode registers a mode unless an equal one is already known.
func (d *Display) AddMode(m DisplayMode) {
	for _, known := range d.Modes {
		if known == m {
			return
		}
	}
	d.Modes = append(d.Modes, m)
}
