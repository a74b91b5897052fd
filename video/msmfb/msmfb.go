// Package msmfb drives Qualcomm MSM/MDP framebuffer panels through the
// Linux fbdev interface plus the vendor display-commit ioctl. The panel
// has no input of its own, so PumpEvents is a no-op; pair it with an
// evtouch device for touch input.
package msmfb

import (
	"bytes"
	"os"

	"github.com/juju/errors"

	"github.com/halpix/viewport/event"
	"github.com/halpix/viewport/hardware/fbdev"
	"github.com/halpix/viewport/log2"
	"github.com/halpix/viewport/video"
)

const DriverName = "msmfb"

// EnvFBDevice overrides the framebuffer device path from config.
const EnvFBDevice = "VIEWPORT_MSMFB_FBDEVICE"

const DefaultDevice = "/dev/fb0"

func init() {
	video.Register(video.Bootstrap{
		Name: DriverName,
		Desc: "MSM framebuffer",
		// the panel cannot be probed safely, explicit selection only
		Available: func() bool { return os.Getenv(video.EnvDriver) == DriverName },
		New:       New,
	})
}

var _ video.Driver = new(Driver) // compile-time interface check

type Driver struct { //nolint:maligned
	host *video.Device
	log  *log2.Log
	open func(path string) (fbdev.Conn, error)

	conn      fbdev.Conn
	varInfo   fbdev.VarScreenInfo
	varOrig   fbdev.VarScreenInfo
	mem       []byte
	memOffset int
}

func New(dev *video.Device) (video.Driver, error) {
	self := &Driver{
		host: dev,
		log:  dev.Log(),
		open: func(path string) (fbdev.Conn, error) { return fbdev.Open(path) },
	}
	return self, nil
}

func (self *Driver) Name() string { return DriverName }

func (self *Driver) Init() error {
	path := DefaultDevice
	if d := self.host.Opt().MSMFB.Device; d != "" {
		path = d
	}
	if d := os.Getenv(EnvFBDevice); d != "" {
		path = d
	}

	conn, err := self.open(path)
	if err != nil {
		err = errors.Annotate(err, "msmfb init")
		self.log.Error(err)
		return err
	}
	self.conn = conn
	self.varInfo = conn.Var()
	self.varOrig = self.varInfo

	fix := conn.Fix()
	self.log.Debugf("msmfb init: id=%s line_length=%d smem_len=%d", cstring(fix.ID[:]), fix.LineLength, fix.SmemLen)

	// validation failures leave the device open so Quit can restore it
	if fix.Type != fbdev.FB_TYPE_PACKED_PIXELS {
		err = errors.NotValidf("msmfb %s: framebuffer type=%d, only packed pixels are supported", conn.Name(), fix.Type)
		self.log.Error(err)
		return err
	}
	if fix.Visual != fbdev.FB_VISUAL_TRUECOLOR {
		err = errors.NotValidf("msmfb %s: framebuffer visual=%d, only truecolor is supported", conn.Name(), fix.Visual)
		self.log.Error(err)
		return err
	}

	mode := video.DisplayMode{
		Format:  video.FormatABGR8888,
		W:       int32(self.varInfo.Xres),
		H:       int32(self.varInfo.Yres),
		Refresh: 60,
	}
	self.host.AddDisplay(conn.Name(), mode)
	self.log.Infof("msmfb init done: %s mode=%s", conn.Name(), mode.String())
	return nil
}

// SetDisplayMode accepts only the panel's native mode.
func (self *Driver) SetDisplayMode(d *video.Display, mode video.DisplayMode) error {
	if len(d.Modes) > 0 && mode == d.Modes[0] {
		return nil
	}
	return errors.NotValidf("msmfb mode=%s", mode.String())
}

// PumpEvents is a no-op, the panel produces no input.
func (self *Driver) PumpEvents() {}

func (self *Driver) CreateWindow(w *video.Window) error {
	// the panel is always lit, windows are visible from birth
	self.host.SendWindowEvent(w, event.WindowShown, 0, 0)
	return nil
}

func (self *Driver) DestroyWindow(w *video.Window) {}

func (self *Driver) CreateWindowFramebuffer(w *video.Window) (*video.Surface, error) {
	fix := self.conn.Fix()
	self.memOffset = int(fix.SmemStart) & (os.Getpagesize() - 1)
	self.log.Debugf("msmfb framebuffer: mem_offset=%#x", self.memOffset)
	if fix.SmemStart < 1 || fix.SmemLen < 1 {
		self.log.Warningf("msmfb framebuffer: mapping looks bogus smem_start=%#x smem_len=%d, expect errors", fix.SmemStart, fix.SmemLen)
	}

	mem, err := self.conn.Map(int(fix.SmemLen) + self.memOffset)
	if err != nil {
		err = errors.Annotate(err, "msmfb framebuffer map")
		self.log.Error(err)
		return nil, err
	}
	self.mem = mem

	// move the viewport to the upper left corner
	if self.varInfo.Xoffset != 0 || self.varInfo.Yoffset != 0 {
		self.varInfo.Xoffset = 0
		self.varInfo.Yoffset = 0
		if err = self.conn.Pan(&self.varInfo); err != nil {
			err = errors.Annotate(err, "msmfb framebuffer pan")
			self.log.Error(err)
			return nil, err
		}
	}

	self.varInfo.Activate = fbdev.FB_ACTIVATE_NOW | fbdev.FB_ACTIVATE_ALL | fbdev.FB_ACTIVATE_FORCE
	if err = self.conn.PutVar(&self.varInfo); err != nil {
		// some kernels reject reactivation of the current mode, not fatal
		self.log.Warningf("msmfb framebuffer activate: %v", err)
	}

	return &video.Surface{
		Format: video.FormatABGR8888,
		W:      w.W,
		H:      w.H,
		Pitch:  int(fix.LineLength),
		Pix:    mem[self.memOffset:],
	}, nil
}

func (self *Driver) UpdateWindowFramebuffer(w *video.Window, rects []video.Rect) error {
	// the surface is the mapped panel memory, there is nothing to copy
	// per rectangle; clipping only filters what callers report as dirty
	visible := 0
	for _, r := range rects {
		if _, ok := r.Clip(w.W, w.H); ok {
			visible++
		}
	}
	self.log.Debugf("msmfb update: rects=%d visible=%d", len(rects), visible)

	commit := fbdev.MdpDisplayCommit{Flags: fbdev.MDP_DISPLAY_COMMIT_OVERLAY}
	if self.host.Opt().MSMFB.WaitFinish {
		commit.WaitForFinish = 1
	}
	if err := self.conn.Commit(&commit); err != nil {
		// losing one frame is not worth tearing the render loop down
		self.log.Warningf("msmfb display commit: %v", err)
	}
	return nil
}

func (self *Driver) DestroyWindowFramebuffer(w *video.Window) {
	if self.mem == nil {
		return
	}
	self.mem = nil
	if err := self.conn.Unmap(); err != nil {
		self.log.Errorf("msmfb framebuffer unmap: %v", err)
	}
}

// Quit restores the original screen mode and closes the device. It runs
// even after a failed Init so partial bring-up never leaves the panel in
// a modified state.
func (self *Driver) Quit() {
	if self.conn == nil {
		return
	}
	if err := self.conn.PutVar(&self.varOrig); err != nil {
		self.log.Errorf("msmfb quit restore: %v", err)
	}
	if err := self.conn.Close(); err != nil {
		self.log.Errorf("msmfb quit close: %v", err)
	}
	self.conn = nil
	self.mem = nil
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
