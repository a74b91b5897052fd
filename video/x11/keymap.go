package x11

import (
	"unicode"

	"github.com/jezek/xgb/xproto"
	"github.com/juju/errors"

	"github.com/halpix/viewport/event"
)

// X keysym values, keysymdef.h subset.
const (
	xkBackSpace  = 0xff08
	xkTab        = 0xff09
	xkReturn     = 0xff0d
	xkPause      = 0xff13
	xkScrollLock = 0xff14
	xkEscape     = 0xff1b
	xkHome       = 0xff50
	xkLeft       = 0xff51
	xkUp         = 0xff52
	xkRight      = 0xff53
	xkDown       = 0xff54
	xkPageUp     = 0xff55
	xkPageDown   = 0xff56
	xkEnd        = 0xff57
	xkPrint      = 0xff61
	xkInsert     = 0xff63
	xkNumLock    = 0xff7f
	xkKPEnter    = 0xff8d
	xkKPMultiply = 0xffaa
	xkKPAdd      = 0xffab
	xkKPSubtract = 0xffad
	xkKPDecimal  = 0xffae
	xkKPDivide   = 0xffaf
	xkKP0        = 0xffb0
	xkKP9        = 0xffb9
	xkF1         = 0xffbe
	xkF12        = 0xffc9
	xkShiftL     = 0xffe1
	xkShiftR     = 0xffe2
	xkControlL   = 0xffe3
	xkControlR   = 0xffe4
	xkCapsLock   = 0xffe5
	xkAltL       = 0xffe9
	xkAltR       = 0xffea
	xkSuperL     = 0xffeb
	xkSuperR     = 0xffec
	xkDelete     = 0xffff

	// keysyms above this carry a unicode codepoint in the low bits
	xkUnicodeBase = 0x01000000
)

const keycodeLo, keycodeHi = 8, 255

// keymap caches the server's keycode to keysym mapping, first two
// columns (plain, shifted).
type keymap struct {
	syms [256][2]uint32
}

func (self *keymap) load(r *xproto.GetKeyboardMappingReply) error {
	n := int(r.KeysymsPerKeycode)
	if n < 1 {
		return errors.NotValidf("x11 keyboard mapping: %d keysyms per keycode", n)
	}
	for kc := keycodeLo; kc <= keycodeHi; kc++ {
		base := (kc - keycodeLo) * n
		if base >= len(r.Keysyms) {
			break
		}
		self.syms[kc][0] = uint32(r.Keysyms[base])
		self.syms[kc][1] = 0
		if n > 1 && base+1 < len(r.Keysyms) {
			self.syms[kc][1] = uint32(r.Keysyms[base+1])
		}
	}
	return nil
}

func (self *keymap) keysym(kc xproto.Keycode) uint32 {
	return self.syms[kc][0]
}

func (self *keymap) scancode(kc xproto.Keycode) event.Scancode {
	return scancodeFromKeysym(self.syms[kc][0])
}

// text returns the character the key produces under the given modifier
// state, empty for control keys.
func (self *keymap) text(kc xproto.Keycode, state uint16) string {
	col := 0
	if state&xproto.KeyButMaskShift != 0 {
		col = 1
	}
	sym := self.syms[kc][col]
	if sym == 0 {
		sym = self.syms[kc][0]
	}
	r := keysymRune(sym)
	if r == 0 {
		return ""
	}
	return string(r)
}

func keysymRune(sym uint32) rune {
	switch {
	case sym >= 0x20 && sym <= 0x7e, sym >= 0xa0 && sym <= 0xff:
		// latin-1 keysyms are their own codepoints
		return rune(sym)
	case sym&0xff000000 == xkUnicodeBase:
		r := rune(sym &^ xkUnicodeBase)
		if unicode.IsPrint(r) {
			return r
		}
	}
	return 0
}

func scancodeFromKeysym(sym uint32) event.Scancode {
	switch {
	case sym >= 'a' && sym <= 'z':
		return event.ScancodeA + event.Scancode(sym-'a')
	case sym >= 'A' && sym <= 'Z':
		return event.ScancodeA + event.Scancode(sym-'A')
	case sym >= '1' && sym <= '9':
		return event.Scancode1 + event.Scancode(sym-'1')
	case sym == '0':
		return event.Scancode0
	case sym >= xkF1 && sym <= xkF12:
		return event.ScancodeF1 + event.Scancode(sym-xkF1)
	case sym == xkKP0:
		return event.ScancodeKP0
	case sym > xkKP0 && sym <= xkKP9:
		return event.ScancodeKP1 + event.Scancode(sym-xkKP0-1)
	}
	return keysymScancodes[sym]
}

var keysymScancodes = map[uint32]event.Scancode{
	' ':          event.ScancodeSpace,
	'\'':         event.ScancodeApostrophe,
	',':          event.ScancodeComma,
	'-':          event.ScancodeMinus,
	'.':          event.ScancodePeriod,
	'/':          event.ScancodeSlash,
	';':          event.ScancodeSemicolon,
	'=':          event.ScancodeEquals,
	'[':          event.ScancodeLeftBracket,
	'\\':         event.ScancodeBackslash,
	']':          event.ScancodeRightBracket,
	'`':          event.ScancodeGrave,
	xkBackSpace:  event.ScancodeBackspace,
	xkTab:        event.ScancodeTab,
	xkReturn:     event.ScancodeReturn,
	xkPause:      event.ScancodePause,
	xkScrollLock: event.ScancodeScrollLock,
	xkEscape:     event.ScancodeEscape,
	xkHome:       event.ScancodeHome,
	xkLeft:       event.ScancodeLeft,
	xkUp:         event.ScancodeUp,
	xkRight:      event.ScancodeRight,
	xkDown:       event.ScancodeDown,
	xkPageUp:     event.ScancodePageUp,
	xkPageDown:   event.ScancodePageDown,
	xkEnd:        event.ScancodeEnd,
	xkPrint:      event.ScancodePrintScreen,
	xkInsert:     event.ScancodeInsert,
	xkNumLock:    event.ScancodeNumLock,
	xkKPEnter:    event.ScancodeKPEnter,
	xkKPMultiply: event.ScancodeKPTimes,
	xkKPAdd:      event.ScancodeKPPlus,
	xkKPSubtract: event.ScancodeKPMinus,
	xkKPDecimal:  event.ScancodeKPPeriod,
	xkKPDivide:   event.ScancodeKPDivide,
	xkShiftL:     event.ScancodeLShift,
	xkShiftR:     event.ScancodeRShift,
	xkControlL:   event.ScancodeLCtrl,
	xkControlR:   event.ScancodeRCtrl,
	xkCapsLock:   event.ScancodeCapsLock,
	xkAltL:       event.ScancodeLAlt,
	xkAltR:       event.ScancodeRAlt,
	xkSuperL:     event.ScancodeLGUI,
	xkSuperR:     event.ScancodeRGUI,
	xkDelete:     event.ScancodeDelete,
}
