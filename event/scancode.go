package event

import "fmt"

// Scancode identifies a key by physical position, values follow the USB HID
// usage tables (keyboard page) so they are stable across layouts.
type Scancode uint16

const (
	ScancodeUnknown Scancode = 0

	ScancodeA Scancode = 4
	ScancodeB Scancode = 5
	ScancodeC Scancode = 6
	ScancodeD Scancode = 7
	ScancodeE Scancode = 8
	ScancodeF Scancode = 9
	ScancodeG Scancode = 10
	ScancodeH Scancode = 11
	ScancodeI Scancode = 12
	ScancodeJ Scancode = 13
	ScancodeK Scancode = 14
	ScancodeL Scancode = 15
	ScancodeM Scancode = 16
	ScancodeN Scancode = 17
	ScancodeO Scancode = 18
	ScancodeP Scancode = 19
	ScancodeQ Scancode = 20
	ScancodeR Scancode = 21
	ScancodeS Scancode = 22
	ScancodeT Scancode = 23
	ScancodeU Scancode = 24
	ScancodeV Scancode = 25
	ScancodeW Scancode = 26
	ScancodeX Scancode = 27
	ScancodeY Scancode = 28
	ScancodeZ Scancode = 29

	Scancode1 Scancode = 30
	Scancode2 Scancode = 31
	Scancode3 Scancode = 32
	Scancode4 Scancode = 33
	Scancode5 Scancode = 34
	Scancode6 Scancode = 35
	Scancode7 Scancode = 36
	Scancode8 Scancode = 37
	Scancode9 Scancode = 38
	Scancode0 Scancode = 39

	ScancodeReturn       Scancode = 40
	ScancodeEscape       Scancode = 41
	ScancodeBackspace    Scancode = 42
	ScancodeTab          Scancode = 43
	ScancodeSpace        Scancode = 44
	ScancodeMinus        Scancode = 45
	ScancodeEquals       Scancode = 46
	ScancodeLeftBracket  Scancode = 47
	ScancodeRightBracket Scancode = 48
	ScancodeBackslash    Scancode = 49
	ScancodeSemicolon    Scancode = 51
	ScancodeApostrophe   Scancode = 52
	ScancodeGrave        Scancode = 53
	ScancodeComma        Scancode = 54
	ScancodePeriod       Scancode = 55
	ScancodeSlash        Scancode = 56
	ScancodeCapsLock     Scancode = 57

	ScancodeF1  Scancode = 58
	ScancodeF2  Scancode = 59
	ScancodeF3  Scancode = 60
	ScancodeF4  Scancode = 61
	ScancodeF5  Scancode = 62
	ScancodeF6  Scancode = 63
	ScancodeF7  Scancode = 64
	ScancodeF8  Scancode = 65
	ScancodeF9  Scancode = 66
	ScancodeF10 Scancode = 67
	ScancodeF11 Scancode = 68
	ScancodeF12 Scancode = 69

	ScancodePrintScreen Scancode = 70
	ScancodeScrollLock  Scancode = 71
	ScancodePause       Scancode = 72
	ScancodeInsert      Scancode = 73
	ScancodeHome        Scancode = 74
	ScancodePageUp      Scancode = 75
	ScancodeDelete      Scancode = 76
	ScancodeEnd         Scancode = 77
	ScancodePageDown    Scancode = 78
	ScancodeRight       Scancode = 79
	ScancodeLeft        Scancode = 80
	ScancodeDown        Scancode = 81
	ScancodeUp          Scancode = 82

	ScancodeNumLock  Scancode = 83
	ScancodeKPDivide Scancode = 84
	ScancodeKPTimes  Scancode = 85
	ScancodeKPMinus  Scancode = 86
	ScancodeKPPlus   Scancode = 87
	ScancodeKPEnter  Scancode = 88
	ScancodeKP1      Scancode = 89
	ScancodeKP2      Scancode = 90
	ScancodeKP3      Scancode = 91
	ScancodeKP4      Scancode = 92
	ScancodeKP5      Scancode = 93
	ScancodeKP6      Scancode = 94
	ScancodeKP7      Scancode = 95
	ScancodeKP8      Scancode = 96
	ScancodeKP9      Scancode = 97
	ScancodeKP0      Scancode = 98
	ScancodeKPPeriod Scancode = 99

	ScancodeLCtrl  Scancode = 224
	ScancodeLShift Scancode = 225
	ScancodeLAlt   Scancode = 226
	ScancodeLGUI   Scancode = 227
	ScancodeRCtrl  Scancode = 228
	ScancodeRShift Scancode = 229
	ScancodeRAlt   Scancode = 230
	ScancodeRGUI   Scancode = 231

	ScancodeMax Scancode = 512
)

var scancodeNames = map[Scancode]string{
	ScancodeReturn:       "Return",
	ScancodeEscape:       "Escape",
	ScancodeBackspace:    "Backspace",
	ScancodeTab:          "Tab",
	ScancodeSpace:        "Space",
	ScancodeMinus:        "-",
	ScancodeEquals:       "=",
	ScancodeLeftBracket:  "[",
	ScancodeRightBracket: "]",
	ScancodeBackslash:    "\\",
	ScancodeSemicolon:    ";",
	ScancodeApostrophe:   "'",
	ScancodeGrave:        "`",
	ScancodeComma:        ",",
	ScancodePeriod:       ".",
	ScancodeSlash:        "/",
	ScancodeCapsLock:     "CapsLock",
	ScancodePrintScreen:  "PrintScreen",
	ScancodeScrollLock:   "ScrollLock",
	ScancodePause:        "Pause",
	ScancodeInsert:       "Insert",
	ScancodeHome:         "Home",
	ScancodePageUp:       "PageUp",
	ScancodeDelete:       "Delete",
	ScancodeEnd:          "End",
	ScancodePageDown:     "PageDown",
	ScancodeRight:        "Right",
	ScancodeLeft:         "Left",
	ScancodeDown:         "Down",
	ScancodeUp:           "Up",
	ScancodeNumLock:      "NumLock",
	ScancodeLCtrl:        "LCtrl",
	ScancodeLShift:       "LShift",
	ScancodeLAlt:         "LAlt",
	ScancodeLGUI:         "LGUI",
	ScancodeRCtrl:        "RCtrl",
	ScancodeRShift:       "RShift",
	ScancodeRAlt:         "RAlt",
	ScancodeRGUI:         "RGUI",
}

func (sc Scancode) String() string {
	switch {
	case sc == ScancodeUnknown:
		return "Unknown"
	case sc >= ScancodeA && sc <= ScancodeZ:
		return string(rune('A' + (sc - ScancodeA)))
	case sc >= Scancode1 && sc <= Scancode9:
		return string(rune('1' + (sc - Scancode1)))
	case sc == Scancode0:
		return "0"
	case sc >= ScancodeF1 && sc <= ScancodeF12:
		return fmt.Sprintf("F%d", sc-ScancodeF1+1)
	case sc >= ScancodeKP1 && sc <= ScancodeKP9:
		return fmt.Sprintf("KP%d", sc-ScancodeKP1+1)
	case sc == ScancodeKP0:
		return "KP0"
	}
	if name, ok := scancodeNames[sc]; ok {
		return name
	}
	return fmt.Sprintf("Scancode(%d)", uint16(sc))
}
