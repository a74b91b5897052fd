// Package term renders windows into a terminal via tcell, one cell per
// surface pixel. Development and CI backend: anything with a tty gets a
// working display, and the simulation screen makes the whole driver
// testable without one.
package term

import (
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/juju/errors"
	"github.com/mattn/go-isatty"

	"github.com/halpix/viewport/event"
	"github.com/halpix/viewport/log2"
	"github.com/halpix/viewport/render"
	"github.com/halpix/viewport/video"
)

const DriverName = "term"

func init() {
	video.Register(video.Bootstrap{
		Name: DriverName,
		Desc: "terminal cells via tcell",
		// an X session owns the terminal, the probe must leave it to x11
		Available: func() bool {
			return isatty.IsTerminal(os.Stdout.Fd()) && os.Getenv("DISPLAY") == ""
		},
		New: New,
	})
}

var _ video.Driver = new(Driver)

type Driver struct {
	host    *video.Device
	log     *log2.Log
	screen  tcell.Screen
	display *video.Display
	// terminals have no window manager, the last created window owns
	// all input
	focus    *video.Window
	surfaces map[uint32]*video.Surface
	buttons  tcell.ButtonMask
}

func New(dev *video.Device) (video.Driver, error) {
	return &Driver{
		host:     dev,
		log:      dev.Log(),
		surfaces: make(map[uint32]*video.Surface, 1),
	}, nil
}

func (self *Driver) Name() string { return DriverName }

func (self *Driver) Init() error {
	if self.screen == nil {
		s, err := tcell.NewScreen()
		if err != nil {
			err = errors.Annotate(err, "term screen")
			self.log.Error(err)
			return err
		}
		self.screen = s
	}
	if err := self.screen.Init(); err != nil {
		self.screen = nil
		err = errors.Annotate(err, "term screen init")
		self.log.Error(err)
		return err
	}
	self.screen.EnableMouse()
	self.screen.HideCursor()

	w, h := self.screen.Size()
	self.display = self.host.AddDisplay("terminal", video.DisplayMode{
		Format: video.FormatARGB8888,
		W:      int32(w),
		H:      int32(h),
	})
	return nil
}

func (self *Driver) Quit() {
	if self.screen == nil {
		return
	}
	self.screen.Fini()
	self.screen = nil
}

// SetDisplayMode only restates the current mode, the terminal emulator
// decides its own size.
func (self *Driver) SetDisplayMode(d *video.Display, m video.DisplayMode) error {
	if m == d.Current {
		return nil
	}
	return errors.NotSupportedf("term mode switch")
}

func (self *Driver) CreateWindow(w *video.Window) error {
	self.focus = w
	self.host.SendWindowEvent(w, event.WindowShown, 0, 0)
	self.host.SetMouseFocus(w)
	self.host.SetKeyboardFocus(w)
	return nil
}

func (self *Driver) DestroyWindow(w *video.Window) {
	if self.focus == w {
		self.focus = nil
	}
	delete(self.surfaces, w.ID)
}

func (self *Driver) CreateWindowFramebuffer(w *video.Window) (*video.Surface, error) {
	pitch := int(w.W) * video.FormatARGB8888.BytesPerPixel()
	s := &video.Surface{
		Format: video.FormatARGB8888,
		W:      w.W,
		H:      w.H,
		Pitch:  pitch,
		Pix:    make([]byte, pitch*int(w.H)),
	}
	self.surfaces[w.ID] = s
	return s, nil
}

func (self *Driver) UpdateWindowFramebuffer(w *video.Window, rects []video.Rect) error {
	if self.screen == nil {
		err := errors.Errorf("term window=%d update after quit", w.ID)
		self.log.Error(err)
		return err
	}
	surf := self.surfaces[w.ID]
	if surf == nil {
		err := errors.Errorf("term window=%d has no framebuffer", w.ID)
		self.log.Error(err)
		return err
	}

	if rects == nil {
		rects = []video.Rect{{W: w.W, H: w.H}}
	}
	cv := render.New(surf)
	for _, r := range rects {
		c, ok := r.Clip(w.W, w.H)
		if !ok {
			continue
		}
		self.paint(cv, c)
	}
	self.screen.Show()
	return nil
}

func (self *Driver) DestroyWindowFramebuffer(w *video.Window) {
	delete(self.surfaces, w.ID)
}

// paint redraws one clipped rectangle as colored space cells.
func (self *Driver) paint(cv *render.Canvas, r video.Rect) {
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			c := cv.Get(x, y)
			st := tcell.StyleDefault.Background(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
			self.screen.SetContent(int(x), int(y), ' ', nil, st)
		}
	}
}
