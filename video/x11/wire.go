package x11

import (
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// wire is the slice of the X protocol the pump and the clipboard speak.
// Tests script it; the real implementation wraps the connection.
type wire interface {
	poll() (xgb.Event, error)
	send(dst xproto.Window, mask uint32, raw []byte) error
	changeProperty(w xproto.Window, prop, typ xproto.Atom, format byte, data []byte) error
	atomsProperty(w xproto.Window, prop xproto.Atom) ([]xproto.Atom, error)
	bytesProperty(w xproto.Window, prop, typ xproto.Atom) ([]byte, xproto.Atom, error)
	keyboardMapping() (*xproto.GetKeyboardMappingReply, error)
	selectionOwner(sel xproto.Atom) (xproto.Window, error)
	convertSelection(req xproto.Window, sel, target, prop xproto.Atom) error
	setSelectionOwner(owner xproto.Window, sel xproto.Atom) error
	screensaverReset() error
	sync() error
}

var _ wire = new(connWire)

type connWire struct {
	conn *xgb.Conn
}

func (self *connWire) poll() (xgb.Event, error) {
	ev, xerr := self.conn.PollForEvent()
	if xerr != nil {
		return nil, xerr
	}
	return ev, nil
}

func (self *connWire) send(dst xproto.Window, mask uint32, raw []byte) error {
	return xproto.SendEventChecked(self.conn, false, dst, mask, string(raw)).Check()
}

func (self *connWire) changeProperty(w xproto.Window, prop, typ xproto.Atom, format byte, data []byte) error {
	units := uint32(len(data))
	if format == 16 || format == 32 {
		units = uint32(len(data) / (int(format) / 8))
	}
	return xproto.ChangePropertyChecked(self.conn, xproto.PropModeReplace, w, prop, typ, format, units, data).Check()
}

func (self *connWire) atomsProperty(w xproto.Window, prop xproto.Atom) ([]xproto.Atom, error) {
	r, err := xproto.GetProperty(self.conn, false, w, prop, xproto.AtomAtom, 0, 1024).Reply()
	if err != nil {
		return nil, err
	}
	if r.Format != 32 {
		return nil, nil
	}
	out := make([]xproto.Atom, 0, len(r.Value)/4)
	for i := 0; i+4 <= len(r.Value); i += 4 {
		out = append(out, xproto.Atom(xgb.Get32(r.Value[i:])))
	}
	return out, nil
}

func (self *connWire) bytesProperty(w xproto.Window, prop, typ xproto.Atom) ([]byte, xproto.Atom, error) {
	r, err := xproto.GetProperty(self.conn, false, w, prop, typ, 0, 1<<20).Reply()
	if err != nil {
		return nil, 0, err
	}
	return r.Value, r.Type, nil
}

func (self *connWire) keyboardMapping() (*xproto.GetKeyboardMappingReply, error) {
	return xproto.GetKeyboardMapping(self.conn, keycodeLo, keycodeHi-keycodeLo+1).Reply()
}

func (self *connWire) selectionOwner(sel xproto.Atom) (xproto.Window, error) {
	r, err := xproto.GetSelectionOwner(self.conn, sel).Reply()
	if err != nil {
		return 0, err
	}
	return r.Owner, nil
}

func (self *connWire) convertSelection(req xproto.Window, sel, target, prop xproto.Atom) error {
	return xproto.ConvertSelectionChecked(self.conn, req, sel, target, prop, xproto.TimeCurrentTime).Check()
}

func (self *connWire) setSelectionOwner(owner xproto.Window, sel xproto.Atom) error {
	return xproto.SetSelectionOwnerChecked(self.conn, owner, sel, xproto.TimeCurrentTime).Check()
}

func (self *connWire) screensaverReset() error {
	return xproto.ForceScreenSaverChecked(self.conn, xproto.ScreenSaverReset).Check()
}

func (self *connWire) sync() error {
	self.conn.Sync()
	return nil
}
