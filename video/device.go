package video

import (
	"github.com/juju/errors"
	"github.com/temoto/atomic_clock"

	"github.com/halpix/viewport/event"
	"github.com/halpix/viewport/hardware/evtouch"
	"github.com/halpix/viewport/log2"
)

// Device is the host side of the driver contract: it owns displays, windows,
// keyboard/mouse/touch state and the outbound event queue. All methods are
// meant for the single goroutine that pumps events; the queue and the pump
// clock are safe to read from elsewhere.
type Device struct {
	log *log2.Log
	opt Options

	driver   Driver
	queue    *event.Queue
	displays []*Display
	windows  []*Window
	lastWID  uint32

	keyboardFocus *Window
	keyState      [event.ScancodeMax]bool

	mouseFocus *Window
	mouseX     int32
	mouseY     int32
	buttons    uint8

	enableSysWM bool
	quitDone    bool
	lastPump    atomic_clock.Clock
}

// Device feeds assembled touch input straight into the queue.
var _ evtouch.Handler = new(Device)

func NewDevice(log *log2.Log, opt Options) *Device {
	return &Device{
		log:   log,
		opt:   opt,
		queue: event.NewQueue(log, event.DefaultQueueCap),
	}
}

func (self *Device) Log() *log2.Log { return self.log }
func (self *Device) Opt() Options   { return self.opt }

func (self *Device) DriverName() string {
	if self.driver == nil {
		return ""
	}
	return self.driver.Name()
}

// AddDisplay registers one output with its native mode, returns the display
// so the driver can add more modes.
func (self *Device) AddDisplay(name string, mode DisplayMode) *Display {
	d := &Display{Name: name, Current: mode}
	d.AddMode(mode)
	self.displays = append(self.displays, d)
	return d
}

func (self *Device) Displays() []*Display {
	out := make([]*Display, len(self.displays))
	copy(out, self.displays)
	return out
}

func (self *Device) SetDisplayMode(d *Display, m DisplayMode) error {
	if err := self.driver.SetDisplayMode(d, m); err != nil {
		return errors.Annotatef(err, "video driver=%s SetDisplayMode %s", self.driver.Name(), m.String())
	}
	d.Current = m
	return nil
}

// PumpEvents asks the driver for everything queued right now and stamps the
// pump clock, observable from other goroutines for health checks.
func (self *Device) PumpEvents() {
	self.driver.PumpEvents()
	self.lastPump.SetNow()
}

func (self *Device) LastPump() *atomic_clock.Clock { return &self.lastPump }

func (self *Device) PollEvent() (event.Event, bool) { return self.queue.Poll() }
func (self *Device) DrainEvents() []event.Event     { return self.queue.PopAll() }
func (self *Device) QueueLen() int                  { return self.queue.Len() }
func (self *Device) DroppedEvents() uint32          { return self.queue.Dropped() }

// CreateWindow hands a new window to the driver. Windows start hidden;
// drivers emit WindowShown once the platform actually maps them.
func (self *Device) CreateWindow(title string, w, h int32) (*Window, error) {
	self.lastWID++
	win := &Window{
		ID:    self.lastWID,
		Title: title,
		W:     w,
		H:     h,
		Flags: WindowHidden,
	}
	if err := self.driver.CreateWindow(win); err != nil {
		return nil, errors.Annotatef(err, "video driver=%s CreateWindow %s", self.driver.Name(), title)
	}
	self.windows = append(self.windows, win)
	return win, nil
}

func (self *Device) DestroyWindow(win *Window) {
	if win == nil {
		return
	}
	if win.Surface != nil {
		self.driver.DestroyWindowFramebuffer(win)
		win.Surface = nil
	}
	self.driver.DestroyWindow(win)
	for i, w := range self.windows {
		if w == win {
			self.windows = append(self.windows[:i], self.windows[i+1:]...)
			break
		}
	}
	if self.keyboardFocus == win {
		self.keyboardFocus = nil
	}
	if self.mouseFocus == win {
		self.mouseFocus = nil
	}
}

func (self *Device) Windows() []*Window {
	out := make([]*Window, len(self.windows))
	copy(out, self.windows)
	return out
}

func (self *Device) WindowByID(id uint32) *Window {
	for _, w := range self.windows {
		if w.ID == id {
			return w
		}
	}
	return nil
}

func (self *Device) CreateWindowSurface(win *Window) (*Surface, error) {
	if win.Surface != nil {
		return win.Surface, nil
	}
	s, err := self.driver.CreateWindowFramebuffer(win)
	if err != nil {
		return nil, errors.Annotatef(err, "video driver=%s CreateWindowFramebuffer", self.driver.Name())
	}
	win.Surface = s
	return s, nil
}

func (self *Device) UpdateWindowSurface(win *Window, rects []Rect) error {
	if win.Surface == nil {
		return errors.Errorf("video window=%d has no surface", win.ID)
	}
	return self.driver.UpdateWindowFramebuffer(win, rects)
}

func (self *Device) DestroyWindowSurface(win *Window) {
	if win.Surface == nil {
		return
	}
	self.driver.DestroyWindowFramebuffer(win)
	win.Surface = nil
}

// Quit tears down remaining windows and the driver. Idempotent; drivers must
// still restore platform state after partial bring-up failures.
func (self *Device) Quit() {
	if self.quitDone {
		return
	}
	self.quitDone = true
	for _, win := range self.Windows() {
		self.DestroyWindow(win)
	}
	if self.driver != nil {
		self.driver.Quit()
	}
}

// SendWindowEvent updates window state and queues the event. State-derived
// kinds (shown/hidden, moved/resized, minimized...) deduplicate against the
// current window state and report false when nothing changed.
func (self *Device) SendWindowEvent(win *Window, kind event.Kind, data1, data2 int32) bool {
	if win == nil {
		return false
	}
	switch kind {
	case event.WindowShown:
		if !win.Has(WindowHidden) {
			return false
		}
		win.Flags &^= WindowHidden
	case event.WindowHidden:
		if win.Has(WindowHidden) {
			return false
		}
		win.Flags |= WindowHidden
	case event.WindowMoved:
		if win.X == data1 && win.Y == data2 {
			return false
		}
		win.X, win.Y = data1, data2
	case event.WindowResized:
		if win.W == data1 && win.H == data2 {
			return false
		}
		win.W, win.H = data1, data2
	case event.WindowMinimized:
		if win.Has(WindowMinimized) {
			return false
		}
		win.Flags |= WindowMinimized
		win.Flags &^= WindowMaximized
	case event.WindowMaximized:
		if win.Has(WindowMaximized) {
			return false
		}
		win.Flags |= WindowMaximized
		win.Flags &^= WindowMinimized
	case event.WindowRestored:
		if !win.Has(WindowMinimized) && !win.Has(WindowMaximized) {
			return false
		}
		win.Flags &^= WindowMinimized | WindowMaximized
	case event.WindowEnter:
		win.Flags |= WindowMouseFocus
	case event.WindowLeave:
		win.Flags &^= WindowMouseFocus
	case event.WindowFocusGained:
		win.Flags |= WindowInputFocus
	case event.WindowFocusLost:
		win.Flags &^= WindowInputFocus
	}
	return self.push(event.Event{Kind: kind, WindowID: win.ID, X: data1, Y: data2})
}

func (self *Device) KeyboardFocus() *Window { return self.keyboardFocus }

// SetKeyboardFocus moves input focus: FocusLost on the old window, then
// FocusGained on the new one. nil just drops focus.
func (self *Device) SetKeyboardFocus(win *Window) {
	if self.keyboardFocus == win {
		return
	}
	if self.keyboardFocus != nil {
		self.SendWindowEvent(self.keyboardFocus, event.WindowFocusLost, 0, 0)
	}
	self.keyboardFocus = win
	if win != nil {
		self.SendWindowEvent(win, event.WindowFocusGained, 0, 0)
	}
}

// ResetKeyboard releases every key currently held, used when focus churn
// may have eaten the matching release events.
func (self *Device) ResetKeyboard() {
	for sc := event.Scancode(0); sc < event.ScancodeMax; sc++ {
		if self.keyState[sc] {
			self.SendKeyboardKey(false, sc)
		}
	}
}

// SendKeyboardKey tracks per-key state: a press of a held key is flagged as
// repeat, a release of an idle key is dropped.
func (self *Device) SendKeyboardKey(pressed bool, sc event.Scancode) bool {
	if sc == event.ScancodeUnknown || sc >= event.ScancodeMax {
		return false
	}
	repeat := false
	if pressed == self.keyState[sc] {
		if !pressed {
			return false
		}
		repeat = true
	}
	self.keyState[sc] = pressed
	kind := event.KeyUp
	if pressed {
		kind = event.KeyDown
	}
	e := event.Event{Kind: kind, Scancode: sc, Repeat: repeat}
	if self.keyboardFocus != nil {
		e.WindowID = self.keyboardFocus.ID
	}
	return self.push(e)
}

func (self *Device) KeyDown(sc event.Scancode) bool {
	if sc >= event.ScancodeMax {
		return false
	}
	return self.keyState[sc]
}

func (self *Device) SendKeyboardText(text string) bool {
	if text == "" {
		return false
	}
	e := event.Event{Kind: event.TextInput, Text: text}
	if self.keyboardFocus != nil {
		e.WindowID = self.keyboardFocus.ID
	}
	return self.push(e)
}

func (self *Device) MouseFocus() *Window { return self.mouseFocus }

func (self *Device) SetMouseFocus(win *Window) {
	if self.mouseFocus == win {
		return
	}
	if self.mouseFocus != nil {
		self.SendWindowEvent(self.mouseFocus, event.WindowLeave, 0, 0)
	}
	self.mouseFocus = win
	if win != nil {
		self.SendWindowEvent(win, event.WindowEnter, 0, 0)
	}
}

func (self *Device) MousePosition() (int32, int32) { return self.mouseX, self.mouseY }
func (self *Device) MouseButtons() uint8           { return self.buttons }

func (self *Device) SendMouseMotion(win *Window, x, y int32) bool {
	if x == self.mouseX && y == self.mouseY {
		return false
	}
	self.mouseX, self.mouseY = x, y
	e := event.Event{Kind: event.MouseMotion, X: x, Y: y}
	if win != nil {
		e.WindowID = win.ID
	}
	return self.push(e)
}

func (self *Device) SendMouseButton(win *Window, pressed bool, button uint8) bool {
	if button < 1 || button > 8 {
		return false
	}
	bit := uint8(1) << (button - 1)
	if pressed {
		if self.buttons&bit != 0 {
			return false
		}
		self.buttons |= bit
	} else {
		if self.buttons&bit == 0 {
			return false
		}
		self.buttons &^= bit
	}
	e := event.Event{Kind: event.MouseButton, Button: button, Pressed: pressed, X: self.mouseX, Y: self.mouseY}
	if win != nil {
		e.WindowID = win.ID
	}
	return self.push(e)
}

func (self *Device) SendMouseWheel(win *Window, ticks int32) bool {
	if ticks == 0 {
		return false
	}
	e := event.Event{Kind: event.MouseWheel, Y: ticks}
	if win != nil {
		e.WindowID = win.ID
	}
	return self.push(e)
}

func (self *Device) SendTouch(win *Window, kind event.Kind, device uint32, finger int64, x, y, pressure int32) bool {
	e := event.Event{Kind: kind, Device: device, Finger: finger, X: x, Y: y, Pressure: pressure}
	if win != nil {
		e.WindowID = win.ID
	}
	return self.push(e)
}

// evtouch.Handler; raw panel contacts are not bound to a window.
func (self *Device) TouchDown(device uint32, finger int64, x, y, pressure int32) {
	self.SendTouch(nil, event.TouchDown, device, finger, x, y, pressure)
}
func (self *Device) TouchMotion(device uint32, finger int64, x, y, pressure int32) {
	self.SendTouch(nil, event.TouchMotion, device, finger, x, y, pressure)
}
func (self *Device) TouchUp(device uint32, finger int64, x, y, pressure int32) {
	self.SendTouch(nil, event.TouchUp, device, finger, x, y, pressure)
}

// SetClipboardText hands text to the platform clipboard on drivers that
// have one.
func (self *Device) SetClipboardText(text string) error {
	if c, ok := self.driver.(Clipboarder); ok {
		return c.SetClipboardText(text)
	}
	return errors.NotSupportedf("video driver=%s clipboard", self.driver.Name())
}

func (self *Device) GetClipboardText() (string, error) {
	if c, ok := self.driver.(Clipboarder); ok {
		return c.GetClipboardText()
	}
	return "", errors.NotSupportedf("video driver=%s clipboard", self.driver.Name())
}

// EnableSysWM opts into raw platform event passthrough.
func (self *Device) EnableSysWM(enable bool) { self.enableSysWM = enable }

func (self *Device) SendSysWM(driver string, payload interface{}) bool {
	if !self.enableSysWM {
		return false
	}
	return self.push(event.Event{Kind: event.SysWM, Text: driver, Payload: payload})
}

func (self *Device) push(e event.Event) bool {
	if self.log.Enabled(log2.LDebug) {
		self.log.Debugf("video %s", e.String())
	}
	return self.queue.Push(e)
}
