package platform

import "errors"

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// None is the window identity exported when nothing is focused.
const None WindowID = 0

// Atom is a resolved protocol property identifier.
type Atom uint32

// ErrPropertyNotFound is returned by GetProperty when the window does not
// carry the requested property.
var ErrPropertyNotFound = errors.New("property not found")

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Display describes a physical display.
type Display struct {
	ID     int
	Name   string
	Phys   int
	Bounds Rect
}

// SizeHints mirrors the ICCCM WM_NORMAL_HINTS fields the layout engine
// honors. Zero values mean "not set".
type SizeHints struct {
	BaseWidth  int
	BaseHeight int
	IncWidth   int
	IncHeight  int
	MinWidth   int
	MinHeight  int
	MaxWidth   int
	MaxHeight  int
	// Aspect bounds as num/den fractions (width/height).
	MinAspectNum int
	MinAspectDen int
	MaxAspectNum int
	MaxAspectDen int
}

// Fixed reports whether the hints pin the window to a single size.
func (h SizeHints) Fixed() bool {
	return h.MaxWidth > 0 && h.MaxHeight > 0 &&
		h.MaxWidth == h.MinWidth && h.MaxHeight == h.MinHeight
}

// WindowInfo is everything the lifecycle controller reads from a window
// when deciding whether and how to manage it.
type WindowInfo struct {
	Name             string
	Geometry         Rect
	Border           int
	Hints            SizeHints
	Urgent           bool
	SupportsDelete   bool
	TransientFor     WindowID
	OverrideRedirect bool
	Mapped           bool
}

// Backend abstracts the windowing layer. Property reads are synchronous;
// writes are fire-and-forget from the caller's point of view.
type Backend interface {
	Displays() ([]Display, error)
	Root(phys int) WindowID
	TopLevelWindows() ([]WindowID, error)

	InternAtoms(names []string) ([]Atom, error)
	GetProperty(win WindowID, prop Atom) ([]byte, error)
	ChangeProperty(win WindowID, prop, typ Atom, format byte, data []byte) error
	SendEvent(win WindowID, msgType Atom, data [5]uint32) error

	WindowInfo(win WindowID) (WindowInfo, error)
	Select(win WindowID) error
	Configure(win WindowID, geom Rect, border int) error
	Restack(windows []WindowID) error
	Map(win WindowID) error
	Unmap(win WindowID) error
	Focus(win WindowID) error
	KillClient(win WindowID) error
}
