// Package x11 renders windows on an X server over the raw wire protocol
// (jezek/xgb), no Xlib involved. The pump translates core X events into host
// events with the quirks clients learned to expect: synthesized wheel ticks,
// key repeat suppression, debounced focus changes. Touch input arrives via
// XInput2 where the server is new enough, else the raw evdev reader.
package x11

import (
	"os"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xinput"
	"github.com/jezek/xgb/xproto"
	"github.com/juju/errors"

	"github.com/halpix/viewport/hardware/evtouch"
	"github.com/halpix/viewport/helpers"
	"github.com/halpix/viewport/log2"
	"github.com/halpix/viewport/video"
)

const (
	DriverName = "x11"
	EnvDisplay = "DISPLAY"

	defaultFocusDebounce = 200 * time.Millisecond
	screensaverInterval  = 30 * time.Second
	selectionTimeout     = 1 * time.Second

	// PutImage payload cap per request, comfortably under the smallest
	// maximum-request-length any server advertises
	maxPutBytes = 128 * 1024
)

func init() {
	video.Register(video.Bootstrap{
		Name:      DriverName,
		Desc:      "X11 windows over the wire protocol",
		Available: func() bool { return os.Getenv(EnvDisplay) != "" },
		New:       New,
	})
}

var _ video.Driver = new(Driver)
var _ video.Clipboarder = new(Driver)

type pendingFocus uint8

const (
	pendingNone pendingFocus = iota
	pendingFocusIn
	pendingFocusOut
)

// xwindow pairs a host window with its X id and per-window pump state.
type xwindow struct {
	xw  xproto.Window
	gc  xproto.Gcontext
	win *video.Window

	pending   pendingFocus
	pendingAt time.Time
}

type atoms struct {
	wmProtocols          xproto.Atom
	wmDeleteWindow       xproto.Atom
	netWMPing            xproto.Atom
	netWMName            xproto.Atom
	utf8String           xproto.Atom
	netWMState           xproto.Atom
	netWMStateHidden     xproto.Atom
	netWMStateFullscreen xproto.Atom
	netWMStateMaxHorz    xproto.Atom
	netWMStateMaxVert    xproto.Atom
	selection            xproto.Atom
}

type Driver struct {
	host *video.Device
	log  *log2.Log

	conn   *xgb.Conn
	wire   wire
	screen *xproto.ScreenInfo
	root   xproto.Window
	atoms  atoms
	keymap keymap

	// event dispatch scans this list linearly, window counts are tiny
	windows []*xwindow
	stash   xgb.Event

	debounce   time.Duration
	multitouch bool
	touch      *evtouch.Tracker
	randrOK    bool

	selectionWaiting bool
	lastTickle       time.Time
	now              func() time.Time
}

func New(dev *video.Device) (video.Driver, error) {
	return &Driver{
		host: dev,
		log:  dev.Log(),
		now:  time.Now,
	}, nil
}

func (self *Driver) Name() string { return DriverName }

func (self *Driver) Init() error {
	opt := self.host.Opt().X11
	self.debounce = defaultFocusDebounce
	if opt.FocusDebounce > 0 {
		self.debounce = opt.FocusDebounce
	}

	conn, err := xgb.NewConnDisplay(opt.Display)
	if err != nil {
		err = errors.Annotatef(err, "x11 connect display=%q", opt.Display)
		self.log.Error(err)
		return err
	}
	self.conn = conn
	self.wire = &connWire{conn: conn}
	self.screen = xproto.Setup(conn).DefaultScreen(conn)
	self.root = self.screen.Root

	if err = self.internAtoms(); err != nil {
		err = errors.Annotate(err, "x11 intern atoms")
		self.log.Error(err)
		return err
	}
	if err = self.loadKeymap(); err != nil {
		self.log.Error(err)
		return err
	}
	self.initDisplay()
	self.initTouch()
	return nil
}

func (self *Driver) internAtoms() error {
	batch := []struct {
		name string
		dst  *xproto.Atom
	}{
		{"WM_PROTOCOLS", &self.atoms.wmProtocols},
		{"WM_DELETE_WINDOW", &self.atoms.wmDeleteWindow},
		{"_NET_WM_PING", &self.atoms.netWMPing},
		{"_NET_WM_NAME", &self.atoms.netWMName},
		{"UTF8_STRING", &self.atoms.utf8String},
		{"_NET_WM_STATE", &self.atoms.netWMState},
		{"_NET_WM_STATE_HIDDEN", &self.atoms.netWMStateHidden},
		{"_NET_WM_STATE_FULLSCREEN", &self.atoms.netWMStateFullscreen},
		{"_NET_WM_STATE_MAXIMIZED_HORZ", &self.atoms.netWMStateMaxHorz},
		{"_NET_WM_STATE_MAXIMIZED_VERT", &self.atoms.netWMStateMaxVert},
		{selectionProperty, &self.atoms.selection},
	}
	// fire the whole batch, then collect replies: one round trip
	cookies := make([]xproto.InternAtomCookie, len(batch))
	for i, a := range batch {
		cookies[i] = xproto.InternAtom(self.conn, false, uint16(len(a.name)), a.name)
	}
	errs := make([]error, 0, len(batch))
	for i, ck := range cookies {
		r, err := ck.Reply()
		if err != nil {
			errs = append(errs, errors.Annotatef(err, "intern %s", batch[i].name))
			continue
		}
		*batch[i].dst = r.Atom
	}
	return helpers.FoldErrors(errs)
}

func (self *Driver) loadKeymap() error {
	r, err := self.wire.keyboardMapping()
	if err != nil {
		return errors.Annotate(err, "x11 keyboard mapping")
	}
	return errors.Trace(self.keymap.load(r))
}

// initDisplay registers the root screen. RANDR, when the server has it,
// supplies the real refresh rate and the switchable mode list.
func (self *Driver) initDisplay() {
	mode := video.DisplayMode{
		Format:  video.FormatARGB8888,
		W:       int32(self.screen.WidthInPixels),
		H:       int32(self.screen.HeightInPixels),
		Refresh: 60,
	}
	r := self.screenInfo()
	if r != nil {
		mode.Refresh = int32(r.Rate)
		if int(r.SizeID) < len(r.Sizes) {
			mode.W = int32(r.Sizes[r.SizeID].Width)
			mode.H = int32(r.Sizes[r.SizeID].Height)
		}
	}
	d := self.host.AddDisplay(DriverName, mode)
	if r == nil {
		return
	}
	for i, size := range r.Sizes {
		m := video.DisplayMode{
			Format:  video.FormatARGB8888,
			W:       int32(size.Width),
			H:       int32(size.Height),
			Refresh: int32(r.Rate),
		}
		if i < len(r.Rates) && len(r.Rates[i].Rates) > 0 {
			for _, rate := range r.Rates[i].Rates {
				m.Refresh = int32(rate)
				d.AddMode(m)
			}
			continue
		}
		d.AddMode(m)
	}
}

func (self *Driver) screenInfo() *randr.GetScreenInfoReply {
	if !self.randrOK {
		if err := randr.Init(self.conn); err != nil {
			self.log.Debugf("x11 randr extension: %v", err)
			return nil
		}
		self.randrOK = true
	}
	r, err := randr.GetScreenInfo(self.conn, self.root).Reply()
	if err != nil {
		self.log.Debugf("x11 randr screen info: %v", err)
		return nil
	}
	return r
}

// initTouch prefers XInput2 multitouch; panels driven without a touch-aware
// server fall back to the raw evdev reader when configured.
func (self *Driver) initTouch() {
	if self.queryXI2() {
		self.multitouch = true
		return
	}
	opt := self.host.Opt().Touch
	if !opt.Enable {
		return
	}
	t, err := evtouch.Open(self.log, 0, opt.Device, self.host)
	if err != nil {
		self.log.Warningf("x11 touch device=%s: %v", opt.Device, err)
		return
	}
	self.touch = t
}

func (self *Driver) queryXI2() bool {
	if err := xinput.Init(self.conn); err != nil {
		self.log.Debugf("x11 xinput extension: %v", err)
		return false
	}
	r, err := xinput.XIQueryVersion(self.conn, 2, 2).Reply()
	if err != nil {
		self.log.Debugf("x11 xinput version: %v", err)
		return false
	}
	// touch events need XI 2.2
	return r.MajorVersion > 2 || (r.MajorVersion == 2 && r.MinorVersion >= 2)
}

// selectTouch subscribes one window to XI2 touch. Device 1 is
// XIAllMasterDevices, mask bits 18..20 are TouchBegin/Update/End.
func (self *Driver) selectTouch(xw xproto.Window) {
	const touchMask = 1<<18 | 1<<19 | 1<<20
	err := xinput.XISelectEventsChecked(self.conn, xw, 1, []xinput.EventMask{{
		Deviceid: 1,
		MaskLen:  1,
		Mask:     []uint32{touchMask},
	}}).Check()
	if err != nil {
		self.log.Warningf("x11 xinput2 select window=%d: %v", xw, err)
	}
}

// SetDisplayMode switches the root screen through RANDR 1.0 screen configs.
// Timestamps are refetched every call, other clients may have reconfigured
// since init.
func (self *Driver) SetDisplayMode(d *video.Display, m video.DisplayMode) error {
	if m.Format != video.FormatARGB8888 {
		err := errors.NotValidf("x11 mode format=%s", m.Format.String())
		self.log.Error(err)
		return err
	}
	if m.W == d.Current.W && m.H == d.Current.H && m.Refresh == d.Current.Refresh {
		return nil
	}
	r := self.screenInfo()
	if r == nil {
		err := errors.NotSupportedf("x11 mode switch without randr")
		self.log.Error(err)
		return err
	}
	sizeID := -1
	for i, size := range r.Sizes {
		if int32(size.Width) == m.W && int32(size.Height) == m.H {
			sizeID = i
			break
		}
	}
	if sizeID < 0 {
		err := errors.NotFoundf("x11 mode %dx%d", m.W, m.H)
		self.log.Error(err)
		return err
	}
	sc, err := randr.SetScreenConfig(self.conn, self.root, r.Timestamp, r.ConfigTimestamp,
		uint16(sizeID), r.Rotation, uint16(m.Refresh)).Reply()
	if err != nil {
		err = errors.Annotatef(err, "x11 randr set config %s", m.String())
		self.log.Error(err)
		return err
	}
	if sc.Status != 0 { // 0 = RRSetConfigSuccess
		err = errors.Errorf("x11 randr set config %s status=%d", m.String(), sc.Status)
		self.log.Error(err)
		return err
	}
	return nil
}

func (self *Driver) CreateWindow(w *video.Window) error {
	xw, err := xproto.NewWindowId(self.conn)
	if err != nil {
		err = errors.Annotate(err, "x11 window id")
		self.log.Error(err)
		return err
	}
	gc, err := xproto.NewGcontextId(self.conn)
	if err != nil {
		err = errors.Annotate(err, "x11 gc id")
		self.log.Error(err)
		return err
	}

	const eventMask = xproto.EventMaskKeyPress | xproto.EventMaskKeyRelease |
		xproto.EventMaskButtonPress | xproto.EventMaskButtonRelease |
		xproto.EventMaskPointerMotion | xproto.EventMaskEnterWindow |
		xproto.EventMaskLeaveWindow | xproto.EventMaskFocusChange |
		xproto.EventMaskStructureNotify | xproto.EventMaskPropertyChange |
		xproto.EventMaskExposure | xproto.EventMaskKeymapState
	err = xproto.CreateWindowChecked(self.conn, self.screen.RootDepth, xw, self.root,
		int16(w.X), int16(w.Y), uint16(w.W), uint16(w.H), 0,
		xproto.WindowClassInputOutput, self.screen.RootVisual,
		xproto.CwEventMask, []uint32{eventMask}).Check()
	if err != nil {
		err = errors.Annotatef(err, "x11 create window %s", w.String())
		self.log.Error(err)
		return err
	}
	if err = xproto.CreateGCChecked(self.conn, gc, xproto.Drawable(xw), 0, nil).Check(); err != nil {
		xproto.DestroyWindow(self.conn, xw)
		err = errors.Annotatef(err, "x11 create gc window=%d", xw)
		self.log.Error(err)
		return err
	}

	// announce delete+ping so the WM talks instead of killing
	protocols := make([]byte, 8)
	xgb.Put32(protocols[0:], uint32(self.atoms.wmDeleteWindow))
	xgb.Put32(protocols[4:], uint32(self.atoms.netWMPing))
	if err = self.wire.changeProperty(xw, self.atoms.wmProtocols, xproto.AtomAtom, 32, protocols); err != nil {
		self.log.Warningf("x11 WM_PROTOCOLS window=%d: %v", xw, err)
	}
	if err = self.wire.changeProperty(xw, self.atoms.netWMName, self.atoms.utf8String, 8, []byte(w.Title)); err != nil {
		self.log.Debugf("x11 title window=%d: %v", xw, err)
	}
	if w.Has(video.WindowFullscreen) {
		fs := make([]byte, 4)
		xgb.Put32(fs, uint32(self.atoms.netWMStateFullscreen))
		if err = self.wire.changeProperty(xw, self.atoms.netWMState, xproto.AtomAtom, 32, fs); err != nil {
			self.log.Debugf("x11 fullscreen hint window=%d: %v", xw, err)
		}
	}
	if self.multitouch {
		self.selectTouch(xw)
	}

	if err = xproto.MapWindowChecked(self.conn, xw).Check(); err != nil {
		xproto.FreeGC(self.conn, gc)
		xproto.DestroyWindow(self.conn, xw)
		err = errors.Annotatef(err, "x11 map window=%d", xw)
		self.log.Error(err)
		return err
	}
	// WindowShown arrives through the pump once the server maps us
	self.windows = append(self.windows, &xwindow{xw: xw, gc: gc, win: w})
	return nil
}

func (self *Driver) DestroyWindow(w *video.Window) {
	for i, rec := range self.windows {
		if rec.win == w {
			xproto.FreeGC(self.conn, rec.gc)
			xproto.DestroyWindow(self.conn, rec.xw)
			self.windows = append(self.windows[:i], self.windows[i+1:]...)
			return
		}
	}
}

func (self *Driver) CreateWindowFramebuffer(w *video.Window) (*video.Surface, error) {
	pitch := int(w.W) * 4
	return &video.Surface{
		Format: video.FormatARGB8888,
		W:      w.W,
		H:      w.H,
		Pitch:  pitch,
		Pix:    make([]byte, pitch*int(w.H)),
	}, nil
}

// UpdateWindowFramebuffer uploads the dirty rectangles with PutImage and
// syncs once. Upload errors come back asynchronously through the pump where
// they are dropped like any other runtime error.
func (self *Driver) UpdateWindowFramebuffer(w *video.Window, rects []video.Rect) error {
	rec := self.lookupWin(w)
	if rec == nil {
		err := errors.NotFoundf("x11 window=%d", w.ID)
		self.log.Error(err)
		return err
	}
	s := w.Surface
	if s == nil {
		err := errors.Errorf("x11 window=%d update without surface", w.ID)
		self.log.Error(err)
		return err
	}
	if rects == nil {
		rects = []video.Rect{{X: 0, Y: 0, W: w.W, H: w.H}}
	}
	for _, r := range rects {
		c, ok := r.Clip(w.W, w.H)
		if !ok {
			continue
		}
		self.putRect(rec, s, c)
	}
	self.conn.Sync()
	return nil
}

// putRect uploads one clipped rectangle in row bands, each PutImage payload
// staying under maxPutBytes.
func (self *Driver) putRect(rec *xwindow, s *video.Surface, r video.Rect) {
	rowBytes := int(r.W) * 4
	if rowBytes == 0 {
		return
	}
	band := maxPutBytes / rowBytes
	if band < 1 {
		band = 1
	}
	buf := make([]byte, 0, band*rowBytes)
	for y := int(r.Y); y < int(r.Y+r.H); y += band {
		n := band
		if rest := int(r.Y+r.H) - y; rest < n {
			n = rest
		}
		buf = buf[:0]
		for row := 0; row < n; row++ {
			off := (y+row)*s.Pitch + int(r.X)*4
			buf = append(buf, s.Pix[off:off+rowBytes]...)
		}
		xproto.PutImage(self.conn, xproto.ImageFormatZPixmap, xproto.Drawable(rec.xw), rec.gc,
			uint16(r.W), uint16(n), int16(r.X), int16(y), 0, self.screen.RootDepth, buf)
	}
}

func (self *Driver) DestroyWindowFramebuffer(w *video.Window) {
	// plain memory surface, the GC goes away with the window
}

func (self *Driver) Quit() {
	if self.touch != nil {
		if err := self.touch.Close(); err != nil {
			self.log.Errorf("x11 touch close: %v", err)
		}
		self.touch = nil
	}
	if self.conn == nil {
		return
	}
	for _, rec := range self.windows {
		xproto.FreeGC(self.conn, rec.gc)
		xproto.DestroyWindow(self.conn, rec.xw)
	}
	self.windows = nil
	self.conn.Close()
	self.conn = nil
	self.wire = nil
}

func (self *Driver) lookup(xw xproto.Window) *xwindow {
	for _, rec := range self.windows {
		if rec.xw == xw {
			return rec
		}
	}
	return nil
}

func (self *Driver) lookupWin(w *video.Window) *xwindow {
	for _, rec := range self.windows {
		if rec.win == w {
			return rec
		}
	}
	return nil
}
