// Package event is the vocabulary shared by video drivers and their consumers:
// window state changes, keyboard, mouse and touch input, plus a bounded queue.
package event

import "fmt"

type Kind uint8

const (
	Invalid Kind = iota

	WindowShown
	WindowHidden
	WindowExposed
	WindowMoved
	WindowResized
	WindowMinimized
	WindowMaximized
	WindowRestored
	WindowEnter
	WindowLeave
	WindowFocusGained
	WindowFocusLost
	WindowClosed

	KeyDown
	KeyUp
	TextInput

	MouseMotion
	MouseButton
	MouseWheel

	TouchDown
	TouchMotion
	TouchUp

	SysWM
)

var kindNames = [...]string{
	Invalid:           "Invalid",
	WindowShown:       "WindowShown",
	WindowHidden:      "WindowHidden",
	WindowExposed:     "WindowExposed",
	WindowMoved:       "WindowMoved",
	WindowResized:     "WindowResized",
	WindowMinimized:   "WindowMinimized",
	WindowMaximized:   "WindowMaximized",
	WindowRestored:    "WindowRestored",
	WindowEnter:       "WindowEnter",
	WindowLeave:       "WindowLeave",
	WindowFocusGained: "WindowFocusGained",
	WindowFocusLost:   "WindowFocusLost",
	WindowClosed:      "WindowClosed",
	KeyDown:           "KeyDown",
	KeyUp:             "KeyUp",
	TextInput:         "TextInput",
	MouseMotion:       "MouseMotion",
	MouseButton:       "MouseButton",
	MouseWheel:        "MouseWheel",
	TouchDown:         "TouchDown",
	TouchMotion:       "TouchMotion",
	TouchUp:           "TouchUp",
	SysWM:             "SysWM",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Mouse buttons, X11 core numbering.
const (
	ButtonLeft   uint8 = 1
	ButtonMiddle uint8 = 2
	ButtonRight  uint8 = 3
)

// Event is a flat union, fields are meaningful per Kind.
type Event struct {
	Kind     Kind
	WindowID uint32

	// KeyDown, KeyUp
	Scancode Scancode
	Repeat   bool

	// MouseButton
	Pressed bool
	Button  uint8

	// MouseMotion, MouseWheel (Y=ticks), Touch*,
	// WindowMoved (position), WindowResized (size)
	X, Y int32

	// Touch*
	Device   uint32
	Finger   int64
	Pressure int32

	// TextInput
	Text string

	// SysWM
	Payload interface{}
}

func (e *Event) String() string {
	inner := ""
	switch e.Kind {
	case KeyDown, KeyUp:
		inner = fmt.Sprintf(" scancode=%s repeat=%t", e.Scancode.String(), e.Repeat)
	case TextInput:
		inner = fmt.Sprintf(" text=%q", e.Text)
	case MouseMotion, WindowMoved, WindowResized, MouseWheel:
		inner = fmt.Sprintf(" x=%d y=%d", e.X, e.Y)
	case MouseButton:
		inner = fmt.Sprintf(" button=%d pressed=%t", e.Button, e.Pressed)
	case TouchDown, TouchMotion, TouchUp:
		inner = fmt.Sprintf(" device=%d finger=%d x=%d y=%d pressure=%d", e.Device, e.Finger, e.X, e.Y, e.Pressure)
	}
	return fmt.Sprintf("Event(%s window=%d%s)", e.Kind.String(), e.WindowID, inner)
}
