// Package x11 wraps the X protocol calls the window manager needs.
package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xprop"
)

// ErrOtherWM is returned by BecomeWM when another client already owns
// substructure redirection on the root window.
var ErrOtherWM = errors.New("another window manager is already running")

// RootEventMask is selected on the root window by the window manager.
const RootEventMask = xproto.EventMaskSubstructureRedirect |
	xproto.EventMaskSubstructureNotify |
	xproto.EventMaskPropertyChange |
	xproto.EventMaskStructureNotify

// ClientEventMask is selected on every managed client window.
const ClientEventMask = xproto.EventMaskEnterWindow |
	xproto.EventMaskPropertyChange |
	xproto.EventMaskStructureNotify

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window
}

// NewConnection connects to display, or $DISPLAY when display is empty,
// and initializes key binding support.
func NewConnection(display string) (*Connection, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, err
	}

	keybind.Initialize(xu)

	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}, nil
}

// BecomeWM selects substructure redirection on the root window. Only one
// client may hold it at a time.
func (c *Connection) BecomeWM() error {
	err := xproto.ChangeWindowAttributesChecked(c.XUtil.Conn(), c.Root,
		xproto.CwEventMask, []uint32{uint32(RootEventMask)}).Check()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOtherWM, err)
	}
	return nil
}

// Atom interns name, using xgbutil's atom cache.
func (c *Connection) Atom(name string) (xproto.Atom, error) {
	return xprop.Atm(c.XUtil, name)
}

// AtomName returns the name of an interned atom.
func (c *Connection) AtomName(atom xproto.Atom) (string, error) {
	return xprop.AtomName(c.XUtil, atom)
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
