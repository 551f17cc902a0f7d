//go:build linux

package platform

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/tagwm/internal/x11"
)

// LinuxBackend wraps an existing X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn *x11.Connection
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn}
}

// NewLinuxBackendFromDisplay opens a connection to display ($DISPLAY when
// empty) and wraps it.
func NewLinuxBackendFromDisplay(display string) (*LinuxBackend, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn}, nil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// BecomeWM claims window management on the root window.
func (b *LinuxBackend) BecomeWM() error {
	return b.conn.BecomeWM()
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

// Displays returns all active displays. Every display lives on the
// connection's default X screen.
func (b *LinuxBackend) Displays() ([]Display, error) {
	monitors, err := b.conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	displays := make([]Display, 0, len(monitors))
	for _, m := range monitors {
		displays = append(displays, Display{
			ID:     m.ID,
			Name:   m.Name,
			Bounds: Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height},
		})
	}

	sort.Slice(displays, func(i, j int) bool {
		return displays[i].ID < displays[j].ID
	})

	return displays, nil
}

func (b *LinuxBackend) Root(int) WindowID {
	return WindowID(b.conn.Root)
}

func (b *LinuxBackend) TopLevelWindows() ([]WindowID, error) {
	children, err := b.conn.TopLevelWindows()
	if err != nil {
		return nil, err
	}
	out := make([]WindowID, len(children))
	for i, w := range children {
		out[i] = WindowID(w)
	}
	return out, nil
}

func (b *LinuxBackend) InternAtoms(names []string) ([]Atom, error) {
	out := make([]Atom, len(names))
	for i, name := range names {
		a, err := b.conn.Atom(name)
		if err != nil {
			return nil, fmt.Errorf("intern %s: %w", name, err)
		}
		out[i] = Atom(a)
	}
	return out, nil
}

func (b *LinuxBackend) GetProperty(win WindowID, prop Atom) ([]byte, error) {
	data, ok, err := b.conn.GetProperty(xproto.Window(win), xproto.Atom(prop))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPropertyNotFound
	}
	return data, nil
}

func (b *LinuxBackend) ChangeProperty(win WindowID, prop, typ Atom, format byte, data []byte) error {
	return b.conn.ChangeProperty(xproto.Window(win), xproto.Atom(prop), xproto.Atom(typ), format, data)
}

func (b *LinuxBackend) SendEvent(win WindowID, msgType Atom, data [5]uint32) error {
	return b.conn.SendClientMessage(xproto.Window(win), xproto.Atom(msgType), data)
}

func (b *LinuxBackend) WindowInfo(win WindowID) (WindowInfo, error) {
	st, err := b.conn.ReadWindow(xproto.Window(win))
	if err != nil {
		return WindowInfo{}, err
	}
	return WindowInfo{
		Name:             st.Name,
		Geometry:         Rect{X: st.X, Y: st.Y, Width: st.Width, Height: st.Height},
		Border:           st.Border,
		Hints:            sizeHints(st.NormalHints),
		Urgent:           st.Urgent,
		SupportsDelete:   st.SupportsDelete,
		TransientFor:     WindowID(st.TransientFor),
		OverrideRedirect: st.OverrideRedirect,
		Mapped:           st.Mapped,
	}, nil
}

func (b *LinuxBackend) Select(win WindowID) error {
	return b.conn.SelectClientInput(xproto.Window(win))
}

func (b *LinuxBackend) Configure(win WindowID, geom Rect, border int) error {
	return b.conn.Configure(xproto.Window(win), geom.X, geom.Y, geom.Width, geom.Height, border)
}

func (b *LinuxBackend) Restack(windows []WindowID) error {
	wins := make([]xproto.Window, len(windows))
	for i, w := range windows {
		wins[i] = xproto.Window(w)
	}
	return b.conn.Restack(wins)
}

func (b *LinuxBackend) Map(win WindowID) error {
	b.conn.Map(xproto.Window(win))
	return nil
}

func (b *LinuxBackend) Unmap(win WindowID) error {
	b.conn.Unmap(xproto.Window(win))
	return nil
}

func (b *LinuxBackend) Focus(win WindowID) error {
	return b.conn.Focus(xproto.Window(win))
}

func (b *LinuxBackend) KillClient(win WindowID) error {
	b.conn.Kill(xproto.Window(win))
	return nil
}

// Events delivers translated window manager events to fn. fn runs on the
// xevent loop goroutine; pair it with xevent.MainPing so it never runs
// concurrently with the consumer.
func (b *LinuxBackend) Events(fn func(Event)) {
	xevent.HookFun(func(xu *xgbutil.XUtil, ev interface{}) bool {
		if e := b.translate(ev); e != nil {
			fn(e)
		}
		return true
	}).Connect(b.conn.XUtil)
}

func (b *LinuxBackend) translate(ev interface{}) Event {
	switch e := ev.(type) {
	case xproto.MapRequestEvent:
		return MapRequestEvent{Window: WindowID(e.Window)}
	case xproto.UnmapNotifyEvent:
		return UnmapNotifyEvent{Window: WindowID(e.Window), Event: WindowID(e.Event)}
	case xproto.DestroyNotifyEvent:
		return DestroyNotifyEvent{Window: WindowID(e.Window)}
	case xproto.ConfigureRequestEvent:
		return ConfigureRequestEvent{
			Window:   WindowID(e.Window),
			Geometry: Rect{X: int(e.X), Y: int(e.Y), Width: int(e.Width), Height: int(e.Height)},
			Border:   int(e.BorderWidth),
			Mask:     e.ValueMask,
		}
	case xproto.ClientMessageEvent:
		if e.Format != 32 {
			return nil
		}
		msg := ClientMessageEvent{Window: WindowID(e.Window), Type: Atom(e.Type)}
		copy(msg.Data[:], e.Data.Data32)
		return msg
	case xproto.PropertyNotifyEvent:
		name, err := b.conn.AtomName(e.Atom)
		if err != nil {
			return nil
		}
		return PropertyNotifyEvent{Window: WindowID(e.Window), Atom: Atom(e.Atom), Name: name}
	case xproto.EnterNotifyEvent:
		if e.Mode != xproto.NotifyModeNormal || e.Detail == xproto.NotifyDetailInferior {
			return nil
		}
		return EnterNotifyEvent{Window: WindowID(e.Event)}
	}
	return nil
}

// sizeHints keeps only the WM_NORMAL_HINTS fields whose flags are set.
// A missing base size falls back to the minimum size and vice versa.
func sizeHints(nh *icccm.NormalHints) SizeHints {
	var h SizeHints
	if nh == nil {
		return h
	}
	if nh.Flags&icccm.SizeHintPBaseSize != 0 {
		h.BaseWidth, h.BaseHeight = int(nh.BaseWidth), int(nh.BaseHeight)
	} else if nh.Flags&icccm.SizeHintPMinSize != 0 {
		h.BaseWidth, h.BaseHeight = int(nh.MinWidth), int(nh.MinHeight)
	}
	if nh.Flags&icccm.SizeHintPMinSize != 0 {
		h.MinWidth, h.MinHeight = int(nh.MinWidth), int(nh.MinHeight)
	} else if nh.Flags&icccm.SizeHintPBaseSize != 0 {
		h.MinWidth, h.MinHeight = int(nh.BaseWidth), int(nh.BaseHeight)
	}
	if nh.Flags&icccm.SizeHintPMaxSize != 0 {
		h.MaxWidth, h.MaxHeight = int(nh.MaxWidth), int(nh.MaxHeight)
	}
	if nh.Flags&icccm.SizeHintPResizeInc != 0 {
		h.IncWidth, h.IncHeight = int(nh.WidthInc), int(nh.HeightInc)
	}
	if nh.Flags&icccm.SizeHintPAspect != 0 {
		h.MinAspectNum, h.MinAspectDen = int(nh.MinAspectNum), int(nh.MinAspectDen)
		h.MaxAspectNum, h.MaxAspectDen = int(nh.MaxAspectNum), int(nh.MaxAspectDen)
	}
	return h
}
