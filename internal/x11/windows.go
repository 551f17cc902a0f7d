package x11

import (
	"slices"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// WindowState is what the window manager reads from a top-level window.
type WindowState struct {
	Name             string
	X, Y             int
	Width, Height    int
	Border           int
	NormalHints      *icccm.NormalHints
	Urgent           bool
	SupportsDelete   bool
	TransientFor     xproto.Window
	OverrideRedirect bool
	Mapped           bool
}

// TopLevelWindows returns the children of the root window, bottom to top.
func (c *Connection) TopLevelWindows() ([]xproto.Window, error) {
	tree, err := xproto.QueryTree(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, err
	}
	return tree.Children, nil
}

// ReadWindow collects the attributes, geometry and ICCCM/EWMH hints of a
// window. Only the attribute and geometry requests can fail it.
func (c *Connection) ReadWindow(win xproto.Window) (WindowState, error) {
	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), win).Reply()
	if err != nil {
		return WindowState{}, err
	}
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return WindowState{}, err
	}

	st := WindowState{
		Name:             c.windowTitle(win),
		X:                int(geom.X),
		Y:                int(geom.Y),
		Width:            int(geom.Width),
		Height:           int(geom.Height),
		Border:           int(geom.BorderWidth),
		OverrideRedirect: attrs.OverrideRedirect,
		Mapped:           attrs.MapState == xproto.MapStateViewable,
	}
	if nh, err := icccm.WmNormalHintsGet(c.XUtil, win); err == nil {
		st.NormalHints = nh
	}
	if h, err := icccm.WmHintsGet(c.XUtil, win); err == nil {
		st.Urgent = h.Flags&icccm.HintUrgency != 0
	}
	if protos, err := icccm.WmProtocolsGet(c.XUtil, win); err == nil {
		st.SupportsDelete = slices.Contains(protos, "WM_DELETE_WINDOW")
	}
	if parent, err := icccm.WmTransientForGet(c.XUtil, win); err == nil && parent != c.Root {
		st.TransientFor = parent
	}
	return st, nil
}

// SelectClientInput subscribes to the events the manager needs from a
// client window.
func (c *Connection) SelectClientInput(win xproto.Window) error {
	return xwindow.New(c.XUtil, win).Listen(ClientEventMask)
}

// Configure sets position, size and border width in one request.
func (c *Connection) Configure(win xproto.Window, x, y, width, height, border int) error {
	mask := uint16(xproto.ConfigWindowX | xproto.ConfigWindowY |
		xproto.ConfigWindowWidth | xproto.ConfigWindowHeight |
		xproto.ConfigWindowBorderWidth)
	vals := []uint32{uint32(int32(x)), uint32(int32(y)), uint32(width), uint32(height), uint32(border)}
	return xproto.ConfigureWindowChecked(c.XUtil.Conn(), win, mask, vals).Check()
}

// Restack orders windows top to bottom as given.
func (c *Connection) Restack(windows []xproto.Window) error {
	if len(windows) == 0 {
		return nil
	}
	xwindow.New(c.XUtil, windows[0]).Stack(xproto.StackModeAbove)
	for i := 1; i < len(windows); i++ {
		xwindow.New(c.XUtil, windows[i]).StackSibling(windows[i-1], xproto.StackModeBelow)
	}
	return nil
}

// Map shows a window.
func (c *Connection) Map(win xproto.Window) {
	xwindow.New(c.XUtil, win).Map()
}

// Unmap hides a window.
func (c *Connection) Unmap(win xproto.Window) {
	xwindow.New(c.XUtil, win).Unmap()
}

// Focus gives win the input focus. Focusing the root window reverts to
// pointer-root focus.
func (c *Connection) Focus(win xproto.Window) error {
	if win == c.Root || win == 0 {
		return xproto.SetInputFocusChecked(c.XUtil.Conn(), xproto.InputFocusPointerRoot,
			xproto.InputFocusPointerRoot, xproto.TimeCurrentTime).Check()
	}
	xwindow.New(c.XUtil, win).Focus()
	return nil
}

// Kill closes the client connection that owns win.
func (c *Connection) Kill(win xproto.Window) {
	xwindow.New(c.XUtil, win).Kill()
}

func (c *Connection) windowTitle(windowID xproto.Window) string {
	title, err := ewmh.WmNameGet(c.XUtil, windowID)
	if err == nil {
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	title, err = icccm.WmNameGet(c.XUtil, windowID)
	if err == nil {
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	return ""
}
