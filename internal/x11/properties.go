package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xevent"
)

// GetProperty reads the raw value of prop on win. ok is false when the
// window does not carry the property.
func (c *Connection) GetProperty(win xproto.Window, prop xproto.Atom) (data []byte, ok bool, err error) {
	reply, err := xproto.GetProperty(c.XUtil.Conn(), false, win, prop,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return nil, false, fmt.Errorf("get property %d of %d: %w", prop, win, err)
	}
	if reply.Format == 0 {
		return nil, false, nil
	}
	return reply.Value, true, nil
}

// ChangeProperty replaces prop on win. data must hold whole format-sized
// items.
func (c *Connection) ChangeProperty(win xproto.Window, prop, typ xproto.Atom, format byte, data []byte) error {
	if format != 8 && format != 16 && format != 32 {
		return fmt.Errorf("change property %d: invalid format %d", prop, format)
	}
	n := uint32(len(data) / int(format/8))
	return xproto.ChangePropertyChecked(c.XUtil.Conn(), xproto.PropModeReplace,
		win, prop, typ, format, n, data).Check()
}

// SendClientMessage delivers a 32-bit client message to win itself, as
// used for WM_PROTOCOLS.
func (c *Connection) SendClientMessage(win xproto.Window, typ xproto.Atom, data [5]uint32) error {
	cm, err := xevent.NewClientMessage(32, win, typ,
		int(data[0]), int(data[1]), int(data[2]), int(data[3]), int(data[4]))
	if err != nil {
		return err
	}
	return xproto.SendEventChecked(c.XUtil.Conn(), false, win,
		xproto.EventMaskNoEvent, string(cm.Bytes())).Check()
}
