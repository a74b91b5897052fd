// Package dummy is the no-op backend: an in-memory surface, no input, no
// output. Keeps headless runs and host tests honest. Never picked by the
// probe, only by naming it in VIEWPORT_VIDEODRIVER or config.
package dummy

import (
	"os"

	"github.com/halpix/viewport/event"
	"github.com/halpix/viewport/log2"
	"github.com/halpix/viewport/video"
)

const DriverName = "dummy"

func init() {
	video.Register(video.Bootstrap{
		Name:      DriverName,
		Desc:      "no-op video driver with in-memory surfaces",
		Available: func() bool { return os.Getenv(video.EnvDriver) == DriverName },
		New:       New,
	})
}

type Driver struct {
	host     *video.Device
	log      *log2.Log
	surfaces map[uint32]*video.Surface
	commits  int
}

var _ video.Driver = new(Driver)

func New(dev *video.Device) (video.Driver, error) {
	return &Driver{
		host:     dev,
		log:      dev.Log(),
		surfaces: make(map[uint32]*video.Surface, 1),
	}, nil
}

func (self *Driver) Name() string { return DriverName }

func (self *Driver) Init() error {
	self.host.AddDisplay("dummy", video.DisplayMode{
		Format:  video.FormatABGR8888,
		W:       1024,
		H:       768,
		Refresh: 60,
	})
	return nil
}

func (self *Driver) Quit() {}

func (self *Driver) SetDisplayMode(d *video.Display, m video.DisplayMode) error { return nil }

func (self *Driver) PumpEvents() {}

func (self *Driver) CreateWindow(w *video.Window) error {
	self.host.SendWindowEvent(w, event.WindowShown, 0, 0)
	return nil
}

func (self *Driver) DestroyWindow(w *video.Window) {
	delete(self.surfaces, w.ID)
}

func (self *Driver) CreateWindowFramebuffer(w *video.Window) (*video.Surface, error) {
	pitch := int(w.W) * video.FormatABGR8888.BytesPerPixel()
	s := &video.Surface{
		Format: video.FormatABGR8888,
		W:      w.W,
		H:      w.H,
		Pitch:  pitch,
		Pix:    make([]byte, pitch*int(w.H)),
	}
	self.surfaces[w.ID] = s
	return s, nil
}

func (self *Driver) UpdateWindowFramebuffer(w *video.Window, rects []video.Rect) error {
	for _, r := range rects {
		if _, ok := r.Clip(w.W, w.H); !ok {
			continue
		}
	}
	self.commits++
	return nil
}

func (self *Driver) DestroyWindowFramebuffer(w *video.Window) {
	delete(self.surfaces, w.ID)
}

// Commits reports how many updates reached the fake hardware.
func (self *Driver) Commits() int { return self.commits }
