package x11

import (
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xinput"
	"github.com/jezek/xgb/xproto"

	"github.com/halpix/viewport/event"
	"github.com/halpix/viewport/video"
)

// PumpEvents drains the X queue, then promotes focus changes whose debounce
// deadline elapsed, then polls the evdev fallback. Never blocks.
func (self *Driver) PumpEvents() {
	if self.wire == nil {
		return
	}
	self.tickleScreensaver()
	for {
		ev := self.next()
		if ev == nil {
			break
		}
		self.dispatch(ev)
	}
	self.promoteFocus()
	if self.touch != nil {
		self.touch.Poll()
	}
}

// next pops the lookahead stash first, then the connection queue.
func (self *Driver) next() xgb.Event {
	if self.stash != nil {
		ev := self.stash
		self.stash = nil
		return ev
	}
	return self.poll()
}

// peek fills the one-event lookahead without consuming it.
func (self *Driver) peek() xgb.Event {
	if self.stash == nil {
		self.stash = self.poll()
	}
	return self.stash
}

// poll skips protocol errors, the loop must survive whatever the server
// sends back.
func (self *Driver) poll() xgb.Event {
	for {
		ev, err := self.wire.poll()
		if err != nil {
			self.log.Debugf("x11 event error: %v", err)
			continue
		}
		return ev
	}
}

func (self *Driver) dispatch(ev xgb.Event) {
	self.host.SendSysWM(DriverName, ev)

	// events that carry no usable window id
	switch e := ev.(type) {
	case xinput.TouchBeginEvent:
		self.dispatchTouch(event.TouchDown, uint32(e.Deviceid), e.Detail, e.Event, e.EventX, e.EventY)
		return
	case xinput.TouchUpdateEvent:
		self.dispatchTouch(event.TouchMotion, uint32(e.Deviceid), e.Detail, e.Event, e.EventX, e.EventY)
		return
	case xinput.TouchEndEvent:
		self.dispatchTouch(event.TouchUp, uint32(e.Deviceid), e.Detail, e.Event, e.EventX, e.EventY)
		return
	case xproto.KeymapNotifyEvent:
		// held-key reconciliation is covered by ResetKeyboard on focus churn
		return
	case xproto.MappingNotifyEvent:
		if e.Request == xproto.MappingKeyboard || e.Request == xproto.MappingModifier {
			if err := self.loadKeymap(); err != nil {
				self.log.Debugf("x11 keymap refresh: %v", err)
			}
		}
		return
	}

	xw := self.lookup(eventWindow(ev))
	if xw == nil {
		return
	}

	switch e := ev.(type) {
	case xproto.KeyPressEvent:
		sc := self.keymap.scancode(e.Detail)
		self.host.SendKeyboardKey(true, sc)
		if sc == event.ScancodeUnknown {
			self.log.Infof("x11 keycode=%d keysym=0x%04x has no mapping yet, please report it", e.Detail, self.keymap.keysym(e.Detail))
		}
		if text := self.keymap.text(e.Detail, e.State); text != "" {
			self.host.SendKeyboardText(text)
		}

	case xproto.KeyReleaseEvent:
		if self.repeatedKey(e) {
			// the paired press follows in the queue, the host flags it as repeat
			return
		}
		self.host.SendKeyboardKey(false, self.keymap.scancode(e.Detail))

	case xproto.ButtonPressEvent:
		if ticks, ok := self.wheelTicks(e); ok {
			self.host.SendMouseWheel(xw.win, ticks)
			return
		}
		self.host.SendMouseButton(xw.win, true, mapButton(e.Detail))

	case xproto.ButtonReleaseEvent:
		self.host.SendMouseButton(xw.win, false, mapButton(e.Detail))

	case xproto.MotionNotifyEvent:
		self.host.SendMouseMotion(xw.win, int32(e.EventX), int32(e.EventY))

	case xproto.EnterNotifyEvent:
		self.host.SetMouseFocus(xw.win)
		self.host.SendMouseMotion(xw.win, int32(e.EventX), int32(e.EventY))

	case xproto.LeaveNotifyEvent:
		if e.Mode == xproto.NotifyModeGrab || e.Mode == xproto.NotifyModeUngrab ||
			e.Detail == xproto.NotifyDetailInferior {
			return
		}
		self.host.SetMouseFocus(nil)

	case xproto.FocusInEvent:
		if e.Detail == xproto.NotifyDetailInferior {
			return
		}
		if xw.pending == pendingFocusOut && self.host.KeyboardFocus() == xw.win {
			// the bounce may have eaten key releases in between
			self.host.ResetKeyboard()
		}
		xw.pending = pendingFocusIn
		xw.pendingAt = self.now().Add(self.debounce)

	case xproto.FocusOutEvent:
		if e.Detail == xproto.NotifyDetailInferior {
			// focus went to a child, not really gone
			return
		}
		xw.pending = pendingFocusOut
		xw.pendingAt = self.now().Add(self.debounce)

	case xproto.MapNotifyEvent:
		self.dispatchMap(xw)

	case xproto.UnmapNotifyEvent:
		self.dispatchUnmap(xw)

	case xproto.ConfigureNotifyEvent:
		self.host.SendWindowEvent(xw.win, event.WindowMoved, int32(e.X), int32(e.Y))
		self.host.SendWindowEvent(xw.win, event.WindowResized, int32(e.Width), int32(e.Height))

	case xproto.ClientMessageEvent:
		if e.Format != 32 || e.Type != self.atoms.wmProtocols {
			return
		}
		switch xproto.Atom(e.Data.Data32[0]) {
		case self.atoms.netWMPing:
			self.pingReply(e)
		case self.atoms.wmDeleteWindow:
			self.host.SendWindowEvent(xw.win, event.WindowClosed, 0, 0)
		}

	case xproto.ExposeEvent:
		self.host.SendWindowEvent(xw.win, event.WindowExposed, 0, 0)

	case xproto.PropertyNotifyEvent:
		if e.Atom == self.atoms.netWMState {
			self.refreshNetWMState(xw)
		}

	case xproto.SelectionRequestEvent:
		self.answerSelection(e)

	case xproto.SelectionNotifyEvent:
		self.selectionWaiting = false
	}
}

// eventWindow extracts the destination window id, the xany.window
// equivalent.
func eventWindow(ev xgb.Event) xproto.Window {
	switch e := ev.(type) {
	case xproto.KeyPressEvent:
		return e.Event
	case xproto.KeyReleaseEvent:
		return e.Event
	case xproto.ButtonPressEvent:
		return e.Event
	case xproto.ButtonReleaseEvent:
		return e.Event
	case xproto.MotionNotifyEvent:
		return e.Event
	case xproto.EnterNotifyEvent:
		return e.Event
	case xproto.LeaveNotifyEvent:
		return e.Event
	case xproto.FocusInEvent:
		return e.Event
	case xproto.FocusOutEvent:
		return e.Event
	case xproto.MapNotifyEvent:
		return e.Window
	case xproto.UnmapNotifyEvent:
		return e.Window
	case xproto.ConfigureNotifyEvent:
		return e.Window
	case xproto.ClientMessageEvent:
		return e.Window
	case xproto.ExposeEvent:
		return e.Window
	case xproto.PropertyNotifyEvent:
		return e.Window
	case xproto.SelectionRequestEvent:
		return e.Owner
	case xproto.SelectionNotifyEvent:
		return e.Requestor
	}
	return 0
}

// wheelTicks detects the press half of a wheel pair. X reports wheel motion
// as an instant press+release of the same button with equal timestamps:
// consume the release, translate buttons 4/5 to vertical ticks.
func (self *Driver) wheelTicks(e xproto.ButtonPressEvent) (int32, bool) {
	np, ok := self.peek().(xproto.ButtonReleaseEvent)
	if !ok || np.Detail != e.Detail || np.Time != e.Time {
		return 0, false
	}
	self.next() // the release half is part of the wheel event, not a click
	switch e.Detail {
	case 4:
		return 1, true
	case 5:
		return -1, true
	}
	return 0, true
}

// repeatedKey reports whether this release is the front half of an OS key
// repeat: the matching press is already queued with a near-equal timestamp.
func (self *Driver) repeatedKey(e xproto.KeyReleaseEvent) bool {
	np, ok := self.peek().(xproto.KeyPressEvent)
	return ok && np.Detail == e.Detail && np.Time-e.Time < 2
}

// mapButton folds X's extended button range onto the host's: 8 and 9 are
// the side buttons, squeezed in right after the physical three.
func mapButton(b xproto.Button) uint8 {
	if b > 7 {
		return uint8(b) - 4
	}
	return uint8(b)
}

// pingReply bounces _NET_WM_PING back to the root window so the WM knows we
// are alive.
func (self *Driver) pingReply(e xproto.ClientMessageEvent) {
	e.Window = self.root
	err := self.wire.send(self.root,
		xproto.EventMaskSubstructureNotify|xproto.EventMaskSubstructureRedirect, e.Bytes())
	if err != nil {
		self.log.Debugf("x11 ping reply: %v", err)
	}
}

func (self *Driver) dispatchMap(xw *xwindow) {
	self.host.SendWindowEvent(xw.win, event.WindowShown, 0, 0)
	self.host.SendWindowEvent(xw.win, event.WindowRestored, 0, 0)
}

func (self *Driver) dispatchUnmap(xw *xwindow) {
	self.host.SendWindowEvent(xw.win, event.WindowHidden, 0, 0)
	self.host.SendWindowEvent(xw.win, event.WindowMinimized, 0, 0)
}

// refreshNetWMState syncs visibility with compositing window managers that
// flip _NET_WM_STATE without ever mapping or unmapping.
func (self *Driver) refreshNetWMState(xw *xwindow) {
	states, err := self.wire.atomsProperty(xw.xw, self.atoms.netWMState)
	if err != nil {
		self.log.Debugf("x11 _NET_WM_STATE window=%d: %v", xw.xw, err)
		return
	}
	hidden, maxH, maxV := false, false, false
	for _, a := range states {
		switch a {
		case self.atoms.netWMStateHidden:
			hidden = true
		case self.atoms.netWMStateMaxHorz:
			maxH = true
		case self.atoms.netWMStateMaxVert:
			maxV = true
		}
	}
	if hidden != xw.win.Has(video.WindowHidden) {
		if hidden {
			self.dispatchUnmap(xw)
		} else {
			self.dispatchMap(xw)
		}
	}
	if maximized := maxH && maxV; maximized != xw.win.Has(video.WindowMaximized) {
		kind := event.WindowRestored
		if maximized {
			kind = event.WindowMaximized
		}
		self.host.SendWindowEvent(xw.win, kind, 0, 0)
	}
}

// promoteFocus dispatches pending focus changes whose debounce deadline has
// elapsed. An in overwriting a pending out collapses the churn into a single
// transition.
func (self *Driver) promoteFocus() {
	now := self.now()
	for _, xw := range self.windows {
		if xw.pending == pendingNone || now.Before(xw.pendingAt) {
			continue
		}
		switch xw.pending {
		case pendingFocusIn:
			self.host.SetKeyboardFocus(xw.win)
		case pendingFocusOut:
			if self.host.KeyboardFocus() == xw.win {
				self.host.SetKeyboardFocus(nil)
			}
		}
		xw.pending = pendingNone
	}
}

func (self *Driver) tickleScreensaver() {
	if !self.host.Opt().X11.ScreensaverTickle {
		return
	}
	now := self.now()
	if !self.lastTickle.IsZero() && now.Sub(self.lastTickle) < screensaverInterval {
		return
	}
	self.lastTickle = now
	if err := self.wire.screensaverReset(); err != nil {
		self.log.Debugf("x11 screensaver reset: %v", err)
	}
}

func (self *Driver) dispatchTouch(kind event.Kind, device uint32, finger uint32, win xproto.Window, fx, fy xinput.Fp1616) {
	xw := self.lookup(win)
	if xw == nil {
		return
	}
	pressure := int32(1)
	if kind == event.TouchUp {
		pressure = 0
	}
	self.host.SendTouch(xw.win, kind, device, int64(finger), int32(fx>>16), int32(fy>>16), pressure)
}
