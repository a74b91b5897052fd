package term

import (
	"github.com/gdamore/tcell/v2"

	"github.com/halpix/viewport/event"
)

// PumpEvents translates everything tcell has queued. HasPendingEvent keeps
// PollEvent from blocking an idle loop.
func (self *Driver) PumpEvents() {
	if self.screen == nil {
		return
	}
	for self.screen.HasPendingEvent() {
		ev := self.screen.PollEvent()
		if ev == nil {
			return
		}
		self.dispatch(ev)
	}
}

func (self *Driver) dispatch(ev tcell.Event) {
	switch e := ev.(type) {
	case *tcell.EventResize:
		w, h := e.Size()
		self.resize(int32(w), int32(h))
	case *tcell.EventKey:
		self.key(e)
	case *tcell.EventMouse:
		self.mouse(e)
	}
}

func (self *Driver) resize(w, h int32) {
	m := self.display.Current
	m.W, m.H = w, h
	self.display.Current = m
	self.display.AddMode(m)
	self.host.SendWindowEvent(self.focus, event.WindowResized, w, h)
}

func (self *Driver) key(e *tcell.EventKey) {
	switch {
	case e.Key() == tcell.KeyCtrlC:
		// terminal convention for "stop that", treat as a close request
		self.host.SendWindowEvent(self.focus, event.WindowClosed, 0, 0)
	case e.Key() == tcell.KeyRune:
		r := e.Rune()
		sc := scancodeFromRune(r)
		self.host.SendKeyboardKey(true, sc)
		self.host.SendKeyboardText(string(r))
		self.host.SendKeyboardKey(false, sc)
	default:
		sc := scancodeFromKey(e.Key())
		if sc == event.ScancodeUnknown {
			self.log.Debugf("term key=%d unmapped", e.Key())
			return
		}
		// terminals report keystrokes, not transitions, so a stroke is
		// delivered as an immediate press+release pair
		self.host.SendKeyboardKey(true, sc)
		self.host.SendKeyboardKey(false, sc)
	}
}

const heldButtons = tcell.ButtonPrimary | tcell.ButtonMiddle | tcell.ButtonSecondary |
	tcell.Button4 | tcell.Button5

// tcell counts the secondary button before the middle one, the host follows
// the left=1 middle=2 right=3 convention.
var termButtons = [...]struct {
	mask tcell.ButtonMask
	num  uint8
}{
	{tcell.ButtonPrimary, 1},
	{tcell.ButtonMiddle, 2},
	{tcell.ButtonSecondary, 3},
	{tcell.Button4, 4},
	{tcell.Button5, 5},
}

func (self *Driver) mouse(e *tcell.EventMouse) {
	win := self.focus
	x, y := e.Position()
	self.host.SendMouseMotion(win, int32(x), int32(y))

	b := e.Buttons()
	if b&tcell.WheelUp != 0 {
		self.host.SendMouseWheel(win, 1)
	}
	if b&tcell.WheelDown != 0 {
		self.host.SendMouseWheel(win, -1)
	}

	held := b & heldButtons
	for _, tb := range termButtons {
		now := held&tb.mask != 0
		if now == (self.buttons&tb.mask != 0) {
			continue
		}
		self.host.SendMouseButton(win, now, tb.num)
	}
	self.buttons = held
}

func scancodeFromKey(k tcell.Key) event.Scancode {
	if k >= tcell.KeyF1 && k <= tcell.KeyF12 {
		return event.ScancodeF1 + event.Scancode(k-tcell.KeyF1)
	}
	switch k {
	case tcell.KeyEnter:
		return event.ScancodeReturn
	case tcell.KeyEscape:
		return event.ScancodeEscape
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return event.ScancodeBackspace
	case tcell.KeyTab:
		return event.ScancodeTab
	case tcell.KeyUp:
		return event.ScancodeUp
	case tcell.KeyDown:
		return event.ScancodeDown
	case tcell.KeyLeft:
		return event.ScancodeLeft
	case tcell.KeyRight:
		return event.ScancodeRight
	case tcell.KeyHome:
		return event.ScancodeHome
	case tcell.KeyEnd:
		return event.ScancodeEnd
	case tcell.KeyPgUp:
		return event.ScancodePageUp
	case tcell.KeyPgDn:
		return event.ScancodePageDown
	case tcell.KeyInsert:
		return event.ScancodeInsert
	case tcell.KeyDelete:
		return event.ScancodeDelete
	}
	return event.ScancodeUnknown
}

func scancodeFromRune(r rune) event.Scancode {
	switch {
	case r >= 'a' && r <= 'z':
		return event.ScancodeA + event.Scancode(r-'a')
	case r >= 'A' && r <= 'Z':
		return event.ScancodeA + event.Scancode(r-'A')
	case r >= '1' && r <= '9':
		return event.Scancode1 + event.Scancode(r-'1')
	case r == '0':
		return event.Scancode0
	case r == ' ':
		return event.ScancodeSpace
	}
	return runeScancodes[r]
}

var runeScancodes = map[rune]event.Scancode{
	'-':  event.ScancodeMinus,
	'=':  event.ScancodeEquals,
	'[':  event.ScancodeLeftBracket,
	']':  event.ScancodeRightBracket,
	'\\': event.ScancodeBackslash,
	';':  event.ScancodeSemicolon,
	'\'': event.ScancodeApostrophe,
	'`':  event.ScancodeGrave,
	',':  event.ScancodeComma,
	'.':  event.ScancodePeriod,
	'/':  event.ScancodeSlash,
}
