// Package evtouch assembles raw Linux input events from a touch panel into
// down/motion/up transitions. It is the fallback path for panels whose X
// server offers no multitouch extension; the pump polls it once per frame.
package evtouch

import (
	"bytes"

	"github.com/juju/errors"
	"github.com/temoto/inputevent-go"
	"golang.org/x/sys/unix"

	"github.com/halpix/viewport/log2"
)

// linux/input-event-codes.h, the subset touch panels emit.
const (
	evSyn uint16 = 0x00
	evAbs uint16 = 0x03
	evMsc uint16 = 0x04

	absX        uint16 = 0x00
	absY        uint16 = 0x01
	absPressure uint16 = 0x18
	absMisc     uint16 = 0x28

	mscSerial uint16 = 0x00
	btnTouch  uint16 = 0x14a
)

// Handler receives assembled touch transitions.
type Handler interface {
	TouchDown(device uint32, finger int64, x, y, pressure int32)
	TouchMotion(device uint32, finger int64, x, y, pressure int32)
	TouchUp(device uint32, finger int64, x, y, pressure int32)
}

// Running state between EV_SYN boundaries.
type state struct {
	x        int32
	y        int32
	pressure int32
	finger   int64
	down     bool
	up       bool
}

type Tracker struct {
	log     *log2.Log
	device  uint32
	handler Handler
	fd      int
	st      state
}

// NewTracker builds a tracker without a device, feed it bytes directly.
func NewTracker(log *log2.Log, device uint32, h Handler) *Tracker {
	self := &Tracker{log: log, device: device, handler: h, fd: -1}
	self.reset()
	return self
}

// Open attaches a tracker to an event device, non-blocking so Poll never
// stalls the caller's loop.
func Open(log *log2.Log, device uint32, path string, h Handler) (*Tracker, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Annotatef(err, "evtouch open %s", path)
	}
	self := NewTracker(log, device, h)
	self.fd = fd
	return self, nil
}

func (self *Tracker) Close() error {
	if self.fd < 0 {
		return nil
	}
	err := unix.Close(self.fd)
	self.fd = -1
	return errors.Annotate(err, "evtouch close")
}

// Poll drains everything the kernel has buffered. EAGAIN means drained;
// any other error ends this round quietly, the loop must survive.
func (self *Tracker) Poll() {
	if self.fd < 0 {
		return
	}
	buf := make([]byte, 64*inputevent.EventSizeof)
	for {
		n, err := unix.Read(self.fd, buf)
		if err == unix.EAGAIN {
			return
		}
		if err != nil {
			self.log.Debugf("evtouch device=%d read err=%v", self.device, err)
			return
		}
		if n < inputevent.EventSizeof {
			return
		}
		self.Feed(buf[:n])
	}
}

// Feed parses packed input_event records and advances the state machine.
func (self *Tracker) Feed(b []byte) {
	r := bytes.NewReader(b)
	for {
		ie, err := inputevent.ReadOne(r)
		if err != nil {
			return
		}
		self.event(ie)
	}
}

func (self *Tracker) event(ie inputevent.InputEvent) {
	switch ie.Type {
	case evAbs:
		switch ie.Code {
		case absX:
			self.st.x = ie.Value
		case absY:
			self.st.y = ie.Value
		case absPressure:
			self.st.pressure = ie.Value
			if self.st.pressure < 0 {
				self.st.pressure = 0
			}
		case absMisc:
			if ie.Value == 0 {
				self.st.up = true
			}
		}

	case evMsc:
		if ie.Code == mscSerial {
			self.st.finger = int64(ie.Value)
		}

	case inputevent.EV_KEY:
		if ie.Code == btnTouch && ie.Value == int32(inputevent.KeyStateUp) {
			self.st.up = true
		}

	case evSyn:
		switch {
		case !self.st.down:
			self.st.down = true
			self.handler.TouchDown(self.device, self.st.finger, self.st.x, self.st.y, self.st.pressure)
		case !self.st.up:
			self.handler.TouchMotion(self.device, self.st.finger, self.st.x, self.st.y, self.st.pressure)
		default:
			self.handler.TouchUp(self.device, self.st.finger, self.st.x, self.st.y, self.st.pressure)
			self.reset()
		}
	}
}

func (self *Tracker) reset() {
	self.st = state{x: -1, y: -1, pressure: -1}
}
