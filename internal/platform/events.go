package platform

// Event is a windowing-layer event delivered to the window manager core.
type Event interface {
	Target() WindowID
}

// MapRequestEvent is sent when a top-level window asks to be shown.
type MapRequestEvent struct {
	Window WindowID
}

// UnmapNotifyEvent is sent when a window was unmapped.
type UnmapNotifyEvent struct {
	Window WindowID
	// Event is the window the notification was reported on: the parent
	// for SubstructureNotify, Window itself for StructureNotify.
	Event WindowID
	// Synthetic is set for client-initiated withdrawals (ICCCM 4.1.4).
	Synthetic bool
}

// DestroyNotifyEvent is sent when a window was destroyed.
type DestroyNotifyEvent struct {
	Window WindowID
}

// ConfigureRequestEvent carries a client's geometry request. Mask uses the
// X11 ConfigWindow bit layout.
type ConfigureRequestEvent struct {
	Window   WindowID
	Geometry Rect
	Border   int
	Mask     uint16
}

// ClientMessageEvent carries a 32-bit format client message.
type ClientMessageEvent struct {
	Window WindowID
	Type   Atom
	Data   [5]uint32
}

// PropertyNotifyEvent signals a property change on a window.
type PropertyNotifyEvent struct {
	Window WindowID
	Atom   Atom
	Name   string
}

// EnterNotifyEvent signals the pointer entering a window.
type EnterNotifyEvent struct {
	Window WindowID
}

func (e MapRequestEvent) Target() WindowID       { return e.Window }
func (e UnmapNotifyEvent) Target() WindowID      { return e.Window }
func (e DestroyNotifyEvent) Target() WindowID    { return e.Window }
func (e ConfigureRequestEvent) Target() WindowID { return e.Window }
func (e ClientMessageEvent) Target() WindowID    { return e.Window }
func (e PropertyNotifyEvent) Target() WindowID   { return e.Window }
func (e EnterNotifyEvent) Target() WindowID      { return e.Window }

// ConfigWindow mask bits, matching the X11 core protocol.
const (
	ConfigX      uint16 = 1 << 0
	ConfigY      uint16 = 1 << 1
	ConfigWidth  uint16 = 1 << 2
	ConfigHeight uint16 = 1 << 3
	ConfigBorder uint16 = 1 << 4
)
