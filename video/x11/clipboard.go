package x11

import (
	"github.com/jezek/xgb/xproto"
	"github.com/juju/errors"
	"github.com/paulrosania/go-charset/charset"
	_ "github.com/paulrosania/go-charset/data"
)

// destination property for inbound selection transfers
const selectionProperty = "VIEWPORT_SELECTION"

// SetClipboardText publishes text the way ancient toolkits expect: the root
// window's CUT_BUFFER0 holds the bytes, and we own PRIMARY so modern clients
// come asking.
func (self *Driver) SetClipboardText(text string) error {
	if err := self.wire.changeProperty(self.root, xproto.AtomCutBuffer0, xproto.AtomString, 8, []byte(text)); err != nil {
		err = errors.Annotate(err, "x11 clipboard store")
		self.log.Error(err)
		return err
	}
	if len(self.windows) == 0 {
		// nobody to own the selection yet, the cut buffer alone will do
		return nil
	}
	if err := self.wire.setSelectionOwner(self.windows[0].xw, xproto.AtomPrimary); err != nil {
		err = errors.Annotate(err, "x11 clipboard own PRIMARY")
		self.log.Error(err)
		return err
	}
	return nil
}

// GetClipboardText reads PRIMARY. A foreign owner is asked to convert into
// our window and the answer is awaited with a bounded pump loop; otherwise
// (no owner, or we own it) the root cut buffer is read directly.
func (self *Driver) GetClipboardText() (string, error) {
	src := self.root
	prop := xproto.AtomCutBuffer0

	owner, err := self.wire.selectionOwner(xproto.AtomPrimary)
	if err != nil {
		err = errors.Annotate(err, "x11 selection owner")
		self.log.Error(err)
		return "", err
	}
	if owner != 0 && !self.ownsWindow(owner) && len(self.windows) > 0 {
		req := self.windows[0].xw
		if err = self.wire.convertSelection(req, xproto.AtomPrimary, xproto.AtomString, self.atoms.selection); err != nil {
			err = errors.Annotate(err, "x11 convert selection")
			self.log.Error(err)
			return "", err
		}
		self.selectionWaiting = true
		deadline := self.now().Add(selectionTimeout)
		for self.selectionWaiting && self.now().Before(deadline) {
			self.PumpEvents()
		}
		if self.selectionWaiting {
			self.selectionWaiting = false
			self.log.Warningf("x11 selection owner=%d did not answer, falling back to cut buffer", owner)
		} else {
			src = req
			prop = self.atoms.selection
		}
	}

	raw, typ, err := self.wire.bytesProperty(src, prop, xproto.AtomString)
	if err != nil {
		err = errors.Annotate(err, "x11 clipboard read")
		self.log.Error(err)
		return "", err
	}
	if typ != xproto.AtomString || len(raw) == 0 {
		return "", nil
	}
	return latin1String(raw)
}

// answerSelection serves PRIMARY paste requests from the root cut buffer,
// the counterpart of SetClipboardText. Unservable targets are answered with
// property None as the protocol demands.
func (self *Driver) answerSelection(e xproto.SelectionRequestEvent) {
	notify := xproto.SelectionNotifyEvent{
		Time:      e.Time,
		Requestor: e.Requestor,
		Selection: e.Selection,
		Target:    e.Target,
		Property:  xproto.AtomNone,
	}
	raw, typ, err := self.wire.bytesProperty(self.root, xproto.AtomCutBuffer0, e.Target)
	if err == nil && typ == e.Target {
		if err = self.wire.changeProperty(e.Requestor, e.Property, typ, 8, raw); err == nil {
			notify.Property = e.Property
		}
	}
	if err != nil {
		self.log.Debugf("x11 selection request target=%d: %v", e.Target, err)
	}
	if err = self.wire.send(e.Requestor, 0, notify.Bytes()); err != nil {
		self.log.Debugf("x11 selection notify: %v", err)
		return
	}
	_ = self.wire.sync()
}

func (self *Driver) ownsWindow(xw xproto.Window) bool {
	return self.lookup(xw) != nil
}

// cut buffer text is Latin-1 by protocol, callers get UTF-8
func latin1String(raw []byte) (string, error) {
	tr, err := charset.TranslatorFrom("latin1")
	if err != nil {
		return "", errors.Trace(err)
	}
	_, out, err := tr.Translate(raw, true)
	if err != nil {
		return "", errors.Trace(err)
	}
	return string(out), nil
}
