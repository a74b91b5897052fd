package x11

import (
	"testing"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xinput"
	"github.com/jezek/xgb/xproto"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halpix/viewport/event"
	"github.com/halpix/viewport/log2"
	"github.com/halpix/viewport/video"
)

const testXWindow xproto.Window = 100

type polled struct {
	ev  xgb.Event
	err error
}

type sentEvent struct {
	dst  xproto.Window
	mask uint32
	raw  []byte
}

type propKey struct {
	w    xproto.Window
	prop xproto.Atom
}

type propVal struct {
	data []byte
	typ  xproto.Atom
}

// fakeWire scripts the X side of the pump: a queue of events to poll and
// recorders for everything the driver sends back.
type fakeWire struct {
	queue      []polled
	sentEvents []sentEvent
	changed    map[propKey]propVal
	props      map[propKey]propVal
	atomProps  map[propKey][]xproto.Atom
	owner      xproto.Window
	converted  int
	resets     int
	syncs      int
}

var _ wire = new(fakeWire)

func newFakeWire(evs ...xgb.Event) *fakeWire {
	self := &fakeWire{
		changed:   make(map[propKey]propVal),
		props:     make(map[propKey]propVal),
		atomProps: make(map[propKey][]xproto.Atom),
	}
	self.push(evs...)
	return self
}

func (self *fakeWire) push(evs ...xgb.Event) {
	for _, ev := range evs {
		self.queue = append(self.queue, polled{ev: ev})
	}
}

func (self *fakeWire) pushErr(err error) {
	self.queue = append(self.queue, polled{err: err})
}

func (self *fakeWire) poll() (xgb.Event, error) {
	if len(self.queue) == 0 {
		return nil, nil
	}
	p := self.queue[0]
	self.queue = self.queue[1:]
	return p.ev, p.err
}

func (self *fakeWire) send(dst xproto.Window, mask uint32, raw []byte) error {
	self.sentEvents = append(self.sentEvents, sentEvent{dst: dst, mask: mask, raw: raw})
	return nil
}

func (self *fakeWire) changeProperty(w xproto.Window, prop, typ xproto.Atom, format byte, data []byte) error {
	self.changed[propKey{w, prop}] = propVal{data: data, typ: typ}
	return nil
}

func (self *fakeWire) atomsProperty(w xproto.Window, prop xproto.Atom) ([]xproto.Atom, error) {
	return self.atomProps[propKey{w, prop}], nil
}

func (self *fakeWire) bytesProperty(w xproto.Window, prop, typ xproto.Atom) ([]byte, xproto.Atom, error) {
	v, ok := self.props[propKey{w, prop}]
	if !ok {
		return nil, 0, nil
	}
	return v.data, v.typ, nil
}

func (self *fakeWire) keyboardMapping() (*xproto.GetKeyboardMappingReply, error) {
	return &xproto.GetKeyboardMappingReply{
		KeysymsPerKeycode: 1,
		Keysyms:           make([]xproto.Keysym, keycodeHi-keycodeLo+1),
	}, nil
}

func (self *fakeWire) selectionOwner(sel xproto.Atom) (xproto.Window, error) {
	return self.owner, nil
}

func (self *fakeWire) convertSelection(req xproto.Window, sel, target, prop xproto.Atom) error {
	self.converted++
	return nil
}

func (self *fakeWire) setSelectionOwner(owner xproto.Window, sel xproto.Atom) error {
	self.owner = owner
	return nil
}

func (self *fakeWire) screensaverReset() error { self.resets++; return nil }
func (self *fakeWire) sync() error             { self.syncs++; return nil }

type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (self *fakeClock) Now() time.Time {
	self.t = self.t.Add(self.step)
	return self.t
}

func (self *fakeClock) Advance(d time.Duration) { self.t = self.t.Add(d) }

func testDriver(t testing.TB, opt video.Options, fw *fakeWire) (*video.Device, *Driver, *video.Window, *fakeClock) {
	log := log2.NewTest(t, log2.LDebug)
	dev := video.NewDevice(log, opt)
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	win := &video.Window{ID: 7, W: 320, H: 240}
	drv := &Driver{
		host:     dev,
		log:      log,
		wire:     fw,
		root:     1,
		debounce: defaultFocusDebounce,
		now:      clk.Now,
		atoms: atoms{
			wmProtocols:          201,
			wmDeleteWindow:       202,
			netWMPing:            203,
			netWMName:            204,
			utf8String:           205,
			netWMState:           206,
			netWMStateHidden:     207,
			netWMStateFullscreen: 208,
			netWMStateMaxHorz:    209,
			netWMStateMaxVert:    210,
			selection:            211,
		},
		windows: []*xwindow{{xw: testXWindow, win: win}},
	}
	drv.keymap.syms[38] = [2]uint32{'a', 'A'}
	return dev, drv, win, clk
}

func drainKinds(dev *video.Device) []event.Kind {
	events := dev.DrainEvents()
	out := make([]event.Kind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func TestWheelSynthesis(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		button xproto.Button
		ticks  int32
	}{
		{"button4-up", 4, 1},
		{"button5-down", 5, -1},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			fw := newFakeWire(
				xproto.ButtonPressEvent{Detail: c.button, Time: 1000, Event: testXWindow},
				xproto.ButtonReleaseEvent{Detail: c.button, Time: 1000, Event: testXWindow},
			)
			dev, drv, _, _ := testDriver(t, video.Options{}, fw)
			drv.PumpEvents()
			events := dev.DrainEvents()
			require.Len(t, events, 1)
			assert.Equal(t, event.MouseWheel, events[0].Kind)
			assert.Equal(t, c.ticks, events[0].Y)
		})
	}
}

func TestWheelHorizontalConsumedSilently(t *testing.T) {
	t.Parallel()
	fw := newFakeWire(
		xproto.ButtonPressEvent{Detail: 6, Time: 1000, Event: testXWindow},
		xproto.ButtonReleaseEvent{Detail: 6, Time: 1000, Event: testXWindow},
	)
	dev, drv, _, _ := testDriver(t, video.Options{}, fw)
	drv.PumpEvents()
	assert.Empty(t, dev.DrainEvents())
}

func TestWheelNeedsEqualTimestamp(t *testing.T) {
	t.Parallel()
	fw := newFakeWire(
		xproto.ButtonPressEvent{Detail: 4, Time: 1000, Event: testXWindow},
		xproto.ButtonReleaseEvent{Detail: 4, Time: 1010, Event: testXWindow},
	)
	dev, drv, _, _ := testDriver(t, video.Options{}, fw)
	drv.PumpEvents()
	events := dev.DrainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, event.MouseButton, events[0].Kind)
	assert.True(t, events[0].Pressed)
	assert.Equal(t, uint8(4), events[0].Button)
	assert.Equal(t, event.MouseButton, events[1].Kind)
	assert.False(t, events[1].Pressed)
}

func TestSideButtonsRemapped(t *testing.T) {
	t.Parallel()
	fw := newFakeWire(
		xproto.ButtonPressEvent{Detail: 8, Time: 1000, Event: testXWindow},
		xproto.ButtonPressEvent{Detail: 9, Time: 2000, Event: testXWindow},
	)
	dev, drv, _, _ := testDriver(t, video.Options{}, fw)
	drv.PumpEvents()
	events := dev.DrainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, uint8(4), events[0].Button)
	assert.Equal(t, uint8(5), events[1].Button)
}

func TestKeyRepeatSwallowsRelease(t *testing.T) {
	t.Parallel()
	fw := newFakeWire(
		xproto.KeyPressEvent{Detail: 38, Time: 1000, Event: testXWindow},
		xproto.KeyReleaseEvent{Detail: 38, Time: 1500, Event: testXWindow},
		xproto.KeyPressEvent{Detail: 38, Time: 1501, Event: testXWindow},
	)
	dev, drv, _, _ := testDriver(t, video.Options{}, fw)
	drv.PumpEvents()
	events := dev.DrainEvents()
	require.Len(t, events, 4)
	assert.Equal(t, event.KeyDown, events[0].Kind)
	assert.False(t, events[0].Repeat)
	assert.Equal(t, event.TextInput, events[1].Kind)
	assert.Equal(t, "a", events[1].Text)
	assert.Equal(t, event.KeyDown, events[2].Kind)
	assert.True(t, events[2].Repeat)
	assert.Equal(t, event.TextInput, events[3].Kind)
}

func TestKeyReleaseDelivered(t *testing.T) {
	t.Parallel()
	fw := newFakeWire(
		xproto.KeyPressEvent{Detail: 38, Time: 1000, Event: testXWindow},
		xproto.KeyReleaseEvent{Detail: 38, Time: 1500, Event: testXWindow},
	)
	dev, drv, _, _ := testDriver(t, video.Options{}, fw)
	drv.PumpEvents()
	assert.Equal(t, []event.Kind{event.KeyDown, event.TextInput, event.KeyUp}, drainKinds(dev))
}

func TestKeyShiftedText(t *testing.T) {
	t.Parallel()
	fw := newFakeWire(
		xproto.KeyPressEvent{Detail: 38, Time: 1000, Event: testXWindow, State: xproto.KeyButMaskShift},
	)
	dev, drv, _, _ := testDriver(t, video.Options{}, fw)
	drv.PumpEvents()
	events := dev.DrainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, "A", events[1].Text)
}

func TestUnknownKeycodeDropped(t *testing.T) {
	t.Parallel()
	fw := newFakeWire(xproto.KeyPressEvent{Detail: 99, Time: 1000, Event: testXWindow})
	dev, drv, _, _ := testDriver(t, video.Options{}, fw)
	drv.PumpEvents()
	assert.Empty(t, dev.DrainEvents())
}

func TestFocusDebounceCollapsesChurn(t *testing.T) {
	t.Parallel()
	fw := newFakeWire(xproto.FocusOutEvent{Event: testXWindow})
	dev, drv, win, clk := testDriver(t, video.Options{}, fw)

	drv.PumpEvents()
	assert.Empty(t, dev.DrainEvents())

	clk.Advance(50 * time.Millisecond)
	fw.push(xproto.FocusInEvent{Event: testXWindow})
	drv.PumpEvents()
	assert.Empty(t, dev.DrainEvents())

	clk.Advance(defaultFocusDebounce + time.Millisecond)
	drv.PumpEvents()
	assert.Equal(t, []event.Kind{event.WindowFocusGained}, drainKinds(dev))
	assert.Same(t, win, dev.KeyboardFocus())
}

func TestFocusOutPromotesAfterDeadline(t *testing.T) {
	t.Parallel()
	fw := newFakeWire(xproto.FocusOutEvent{Event: testXWindow})
	dev, drv, win, clk := testDriver(t, video.Options{}, fw)
	dev.SetKeyboardFocus(win)
	dev.DrainEvents()

	drv.PumpEvents()
	assert.Empty(t, dev.DrainEvents())

	clk.Advance(defaultFocusDebounce + time.Millisecond)
	drv.PumpEvents()
	assert.Equal(t, []event.Kind{event.WindowFocusLost}, drainKinds(dev))
	assert.Nil(t, dev.KeyboardFocus())
}

func TestFocusBounceResetsKeyboard(t *testing.T) {
	t.Parallel()
	fw := newFakeWire(
		xproto.FocusOutEvent{Event: testXWindow},
		xproto.FocusInEvent{Event: testXWindow},
	)
	dev, drv, win, _ := testDriver(t, video.Options{}, fw)
	dev.SetKeyboardFocus(win)
	dev.SendKeyboardKey(true, event.ScancodeA)
	dev.DrainEvents()

	drv.PumpEvents()
	events := dev.DrainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, event.KeyUp, events[0].Kind)
	assert.Equal(t, event.ScancodeA, events[0].Scancode)
	assert.Same(t, win, dev.KeyboardFocus())
}

func TestFocusInferiorIgnored(t *testing.T) {
	t.Parallel()
	fw := newFakeWire(
		xproto.FocusOutEvent{Event: testXWindow, Detail: xproto.NotifyDetailInferior},
	)
	dev, drv, win, clk := testDriver(t, video.Options{}, fw)
	dev.SetKeyboardFocus(win)
	dev.DrainEvents()

	drv.PumpEvents()
	clk.Advance(defaultFocusDebounce + time.Millisecond)
	drv.PumpEvents()
	assert.Empty(t, dev.DrainEvents())
	assert.Same(t, win, dev.KeyboardFocus())
}

func TestConfigureNotifyDedup(t *testing.T) {
	t.Parallel()
	cfg := xproto.ConfigureNotifyEvent{Window: testXWindow, X: 10, Y: 20, Width: 300, Height: 200}
	fw := newFakeWire(cfg, cfg)
	dev, drv, _, _ := testDriver(t, video.Options{}, fw)
	drv.PumpEvents()
	assert.Equal(t, []event.Kind{event.WindowMoved, event.WindowResized}, drainKinds(dev))
}

func TestUnknownWindowDropped(t *testing.T) {
	t.Parallel()
	fw := newFakeWire(xproto.KeyPressEvent{Detail: 38, Time: 1000, Event: 999})
	dev, drv, _, _ := testDriver(t, video.Options{}, fw)
	drv.PumpEvents()
	assert.Empty(t, dev.DrainEvents())
}

func TestPumpSurvivesEventErrors(t *testing.T) {
	t.Parallel()
	fw := newFakeWire()
	fw.pushErr(errors.New("BadWindow"))
	fw.push(xproto.KeyPressEvent{Detail: 38, Time: 1000, Event: testXWindow})
	dev, drv, _, _ := testDriver(t, video.Options{}, fw)
	drv.PumpEvents()
	assert.Equal(t, []event.Kind{event.KeyDown, event.TextInput}, drainKinds(dev))
}

func TestMapUnmapLifecycle(t *testing.T) {
	t.Parallel()
	fw := newFakeWire(
		xproto.UnmapNotifyEvent{Window: testXWindow},
		xproto.MapNotifyEvent{Window: testXWindow},
	)
	dev, drv, _, _ := testDriver(t, video.Options{}, fw)
	drv.PumpEvents()
	assert.Equal(t, []event.Kind{
		event.WindowHidden, event.WindowMinimized,
		event.WindowShown, event.WindowRestored,
	}, drainKinds(dev))
}

func TestDeleteWindowMessage(t *testing.T) {
	t.Parallel()
	fw := newFakeWire()
	dev, drv, _, _ := testDriver(t, video.Options{}, fw)
	fw.push(xproto.ClientMessageEvent{
		Format: 32,
		Window: testXWindow,
		Type:   drv.atoms.wmProtocols,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{uint32(drv.atoms.wmDeleteWindow), 0, 0, 0, 0}),
	})
	drv.PumpEvents()
	assert.Equal(t, []event.Kind{event.WindowClosed}, drainKinds(dev))
}

func TestPingRepliesToRoot(t *testing.T) {
	t.Parallel()
	fw := newFakeWire()
	dev, drv, _, _ := testDriver(t, video.Options{}, fw)
	fw.push(xproto.ClientMessageEvent{
		Format: 32,
		Window: testXWindow,
		Type:   drv.atoms.wmProtocols,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{uint32(drv.atoms.netWMPing), 12345, 0, 0, 0}),
	})
	drv.PumpEvents()
	assert.Empty(t, dev.DrainEvents())
	require.Len(t, fw.sentEvents, 1)
	msg := fw.sentEvents[0]
	assert.Equal(t, drv.root, msg.dst)
	assert.Equal(t, uint32(xproto.EventMaskSubstructureNotify|xproto.EventMaskSubstructureRedirect), msg.mask)
	// the bounced message must address the root window
	assert.Equal(t, uint32(drv.root), xgb.Get32(msg.raw[4:]))
}

func TestExposeForwarded(t *testing.T) {
	t.Parallel()
	fw := newFakeWire(
		xproto.ExposeEvent{Window: testXWindow},
		xproto.ExposeEvent{Window: testXWindow},
	)
	dev, drv, _, _ := testDriver(t, video.Options{}, fw)
	drv.PumpEvents()
	// exposure is not state, every one goes through
	assert.Equal(t, []event.Kind{event.WindowExposed, event.WindowExposed}, drainKinds(dev))
}

func TestSysWMPassthrough(t *testing.T) {
	t.Parallel()
	fw := newFakeWire(xproto.ExposeEvent{Window: testXWindow})
	dev, drv, _, _ := testDriver(t, video.Options{}, fw)
	dev.EnableSysWM(true)
	drv.PumpEvents()
	events := dev.DrainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, event.SysWM, events[0].Kind)
	assert.Equal(t, DriverName, events[0].Text)
	_, ok := events[0].Payload.(xproto.ExposeEvent)
	assert.True(t, ok)
	assert.Equal(t, event.WindowExposed, events[1].Kind)
}

func TestNetWMStateSynthesizesVisibility(t *testing.T) {
	t.Parallel()
	fw := newFakeWire()
	dev, drv, win, _ := testDriver(t, video.Options{}, fw)
	fw.atomProps[propKey{testXWindow, drv.atoms.netWMState}] = []xproto.Atom{drv.atoms.netWMStateHidden}
	fw.push(xproto.PropertyNotifyEvent{Window: testXWindow, Atom: drv.atoms.netWMState})
	drv.PumpEvents()
	assert.Equal(t, []event.Kind{event.WindowHidden, event.WindowMinimized}, drainKinds(dev))
	assert.True(t, win.Has(video.WindowHidden))

	// state cleared: the window comes back without any MapNotify
	fw.atomProps[propKey{testXWindow, drv.atoms.netWMState}] = nil
	fw.push(xproto.PropertyNotifyEvent{Window: testXWindow, Atom: drv.atoms.netWMState})
	drv.PumpEvents()
	assert.Equal(t, []event.Kind{event.WindowShown, event.WindowRestored}, drainKinds(dev))
}

func TestNetWMStateMaximized(t *testing.T) {
	t.Parallel()
	fw := newFakeWire()
	dev, drv, win, _ := testDriver(t, video.Options{}, fw)
	fw.atomProps[propKey{testXWindow, drv.atoms.netWMState}] = []xproto.Atom{
		drv.atoms.netWMStateMaxHorz, drv.atoms.netWMStateMaxVert,
	}
	fw.push(xproto.PropertyNotifyEvent{Window: testXWindow, Atom: drv.atoms.netWMState})
	drv.PumpEvents()
	assert.Equal(t, []event.Kind{event.WindowMaximized}, drainKinds(dev))
	assert.True(t, win.Has(video.WindowMaximized))
}

func TestEnterLeaveMouseFocus(t *testing.T) {
	t.Parallel()
	fw := newFakeWire(
		xproto.EnterNotifyEvent{Event: testXWindow, EventX: 5, EventY: 6},
		xproto.LeaveNotifyEvent{Event: testXWindow, Mode: xproto.NotifyModeGrab},
		xproto.LeaveNotifyEvent{Event: testXWindow},
	)
	dev, drv, _, _ := testDriver(t, video.Options{}, fw)
	drv.PumpEvents()
	assert.Equal(t, []event.Kind{event.WindowEnter, event.MouseMotion, event.WindowLeave}, drainKinds(dev))
	assert.Nil(t, dev.MouseFocus())
}

func TestMappingNotifyReloadsKeymap(t *testing.T) {
	t.Parallel()
	fw := newFakeWire(xproto.MappingNotifyEvent{Request: xproto.MappingKeyboard})
	_, drv, _, _ := testDriver(t, video.Options{}, fw)
	assert.EqualValues(t, 'a', drv.keymap.syms[38][0])
	drv.PumpEvents()
	// the scripted mapping reply is all zeroes, the old map is replaced
	assert.EqualValues(t, 0, drv.keymap.syms[38][0])
}

func TestScreensaverTickleInterval(t *testing.T) {
	t.Parallel()
	fw := newFakeWire()
	opt := video.Options{X11: video.X11Options{ScreensaverTickle: true}}
	_, drv, _, clk := testDriver(t, opt, fw)

	drv.PumpEvents()
	drv.PumpEvents()
	assert.Equal(t, 1, fw.resets)

	clk.Advance(screensaverInterval + time.Second)
	drv.PumpEvents()
	assert.Equal(t, 2, fw.resets)
}

func TestTouchDispatch(t *testing.T) {
	t.Parallel()
	fw := newFakeWire(
		xinput.TouchBeginEvent{Deviceid: 2, Detail: 9, Event: testXWindow, EventX: 50 << 16, EventY: 60 << 16},
		xinput.TouchUpdateEvent{Deviceid: 2, Detail: 9, Event: testXWindow, EventX: 55 << 16, EventY: 66 << 16},
		xinput.TouchEndEvent{Deviceid: 2, Detail: 9, Event: testXWindow, EventX: 55 << 16, EventY: 66 << 16},
	)
	dev, drv, _, _ := testDriver(t, video.Options{}, fw)
	drv.PumpEvents()
	events := dev.DrainEvents()
	require.Len(t, events, 3)
	assert.Equal(t, event.TouchDown, events[0].Kind)
	assert.Equal(t, uint32(7), events[0].WindowID)
	assert.Equal(t, uint32(2), events[0].Device)
	assert.Equal(t, int64(9), events[0].Finger)
	assert.Equal(t, int32(50), events[0].X)
	assert.Equal(t, int32(60), events[0].Y)
	assert.Equal(t, int32(1), events[0].Pressure)
	assert.Equal(t, event.TouchMotion, events[1].Kind)
	assert.Equal(t, int32(55), events[1].X)
	assert.Equal(t, event.TouchUp, events[2].Kind)
	assert.Equal(t, int32(0), events[2].Pressure)
}
