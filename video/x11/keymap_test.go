package x11

import (
	"testing"

	"github.com/jezek/xgb/xproto"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halpix/viewport/event"
)

func TestKeymapLoad(t *testing.T) {
	t.Parallel()
	syms := make([]xproto.Keysym, (keycodeHi-keycodeLo+1)*2)
	set := func(kc int, plain, shifted uint32) {
		syms[(kc-keycodeLo)*2] = xproto.Keysym(plain)
		syms[(kc-keycodeLo)*2+1] = xproto.Keysym(shifted)
	}
	set(38, 'a', 'A')
	set(36, xkReturn, xkReturn)
	set(50, xkShiftL, 0)

	var km keymap
	require.NoError(t, km.load(&xproto.GetKeyboardMappingReply{KeysymsPerKeycode: 2, Keysyms: syms}))

	assert.Equal(t, event.ScancodeA, km.scancode(38))
	assert.Equal(t, event.ScancodeReturn, km.scancode(36))
	assert.Equal(t, event.ScancodeLShift, km.scancode(50))
	assert.Equal(t, event.ScancodeUnknown, km.scancode(99))

	assert.Equal(t, "a", km.text(38, 0))
	assert.Equal(t, "A", km.text(38, xproto.KeyButMaskShift))
	assert.Equal(t, "", km.text(36, 0)) // Return is not text
	assert.Equal(t, "", km.text(50, 0))
}

func TestKeymapRejectsEmptyMapping(t *testing.T) {
	t.Parallel()
	var km keymap
	err := km.load(&xproto.GetKeyboardMappingReply{KeysymsPerKeycode: 0})
	require.Error(t, err)
	assert.True(t, errors.IsNotValid(err))
}

func TestScancodeFromKeysym(t *testing.T) {
	t.Parallel()
	cases := []struct {
		sym  uint32
		want event.Scancode
	}{
		{'a', event.ScancodeA},
		{'Z', event.ScancodeZ},
		{'0', event.Scancode0},
		{'7', event.Scancode7},
		{' ', event.ScancodeSpace},
		{'/', event.ScancodeSlash},
		{xkF1, event.ScancodeF1},
		{xkF12, event.ScancodeF12},
		{xkKP0, event.ScancodeKP0},
		{xkKP0 + 7, event.ScancodeKP7},
		{xkEscape, event.ScancodeEscape},
		{xkKPEnter, event.ScancodeKPEnter},
		{xkSuperL, event.ScancodeLGUI},
		{xkDelete, event.ScancodeDelete},
		{0x1234567, event.ScancodeUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, scancodeFromKeysym(c.sym), "sym=0x%x", c.sym)
	}
}

func TestKeysymRune(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 'q', keysymRune('q'))
	assert.Equal(t, 'ÿ', keysymRune(0xff))
	assert.Equal(t, 'я', keysymRune(xkUnicodeBase|0x044f))
	assert.Equal(t, rune(0), keysymRune(xkReturn))
	assert.Equal(t, rune(0), keysymRune(xkUnicodeBase|0x0007)) // unprintable
}
