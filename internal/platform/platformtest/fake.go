// Package platformtest provides an in-memory windowing backend for tests.
package platformtest

import (
	"fmt"

	"github.com/1broseidon/tagwm/internal/platform"
)

// Property is a stored window property.
type Property struct {
	Type   platform.Atom
	Format byte
	Data   []byte
}

// SentEvent is a recorded client message.
type SentEvent struct {
	Window platform.WindowID
	Type   platform.Atom
	Data   [5]uint32
}

// Backend is a fake platform.Backend. Atoms are interned sequentially
// starting at 100 so they never collide with predefined X11 atoms.
type Backend struct {
	DisplayList []platform.Display
	Windows     map[platform.WindowID]platform.WindowInfo
	Props       map[platform.WindowID]map[platform.Atom]Property
	Sent        []SentEvent
	Configured  map[platform.WindowID]platform.Rect
	Stacking    []platform.WindowID
	Mapped      map[platform.WindowID]bool
	Selected    map[platform.WindowID]bool
	Killed      []platform.WindowID
	Focused     platform.WindowID

	// FailIntern makes InternAtoms fail, simulating a broken connection.
	FailIntern bool
	// FocusErr, when set, is returned by Focus.
	FocusErr error

	atoms    map[string]platform.Atom
	nextAtom platform.Atom
}

var _ platform.Backend = (*Backend)(nil)

// New returns a fake backend with a single 1000x800 display on root 1.
func New() *Backend {
	return &Backend{
		DisplayList: []platform.Display{{
			ID:     0,
			Name:   "fake0",
			Bounds: platform.Rect{X: 0, Y: 0, Width: 1000, Height: 800},
		}},
		Windows:    make(map[platform.WindowID]platform.WindowInfo),
		Props:      make(map[platform.WindowID]map[platform.Atom]Property),
		Configured: make(map[platform.WindowID]platform.Rect),
		Mapped:     make(map[platform.WindowID]bool),
		Selected:   make(map[platform.WindowID]bool),
		atoms:      make(map[string]platform.Atom),
		nextAtom:   100,
	}
}

// AddWindow registers a window the fake server knows about.
func (b *Backend) AddWindow(win platform.WindowID, info platform.WindowInfo) {
	b.Windows[win] = info
}

// Atom returns the identifier interned for name, interning it if needed.
func (b *Backend) Atom(name string) platform.Atom {
	if a, ok := b.atoms[name]; ok {
		return a
	}
	a := b.nextAtom
	b.nextAtom++
	b.atoms[name] = a
	return a
}

// Prop returns a stored property, or ok=false.
func (b *Backend) Prop(win platform.WindowID, name string) (Property, bool) {
	props, ok := b.Props[win]
	if !ok {
		return Property{}, false
	}
	p, ok := props[b.Atom(name)]
	return p, ok
}

func (b *Backend) Displays() ([]platform.Display, error) {
	return b.DisplayList, nil
}

func (b *Backend) Root(phys int) platform.WindowID {
	return platform.WindowID(1 + phys)
}

func (b *Backend) TopLevelWindows() ([]platform.WindowID, error) {
	wins := make([]platform.WindowID, 0, len(b.Windows))
	for w := range b.Windows {
		wins = append(wins, w)
	}
	return wins, nil
}

func (b *Backend) InternAtoms(names []string) ([]platform.Atom, error) {
	if b.FailIntern {
		return nil, fmt.Errorf("intern atoms: connection closed")
	}
	out := make([]platform.Atom, len(names))
	for i, n := range names {
		out[i] = b.Atom(n)
	}
	return out, nil
}

func (b *Backend) GetProperty(win platform.WindowID, prop platform.Atom) ([]byte, error) {
	props, ok := b.Props[win]
	if !ok {
		return nil, platform.ErrPropertyNotFound
	}
	p, ok := props[prop]
	if !ok {
		return nil, platform.ErrPropertyNotFound
	}
	return p.Data, nil
}

func (b *Backend) ChangeProperty(win platform.WindowID, prop, typ platform.Atom, format byte, data []byte) error {
	props, ok := b.Props[win]
	if !ok {
		props = make(map[platform.Atom]Property)
		b.Props[win] = props
	}
	props[prop] = Property{Type: typ, Format: format, Data: append([]byte(nil), data...)}
	return nil
}

func (b *Backend) SendEvent(win platform.WindowID, msgType platform.Atom, data [5]uint32) error {
	b.Sent = append(b.Sent, SentEvent{Window: win, Type: msgType, Data: data})
	return nil
}

func (b *Backend) WindowInfo(win platform.WindowID) (platform.WindowInfo, error) {
	info, ok := b.Windows[win]
	if !ok {
		return platform.WindowInfo{}, fmt.Errorf("window %d: bad window", win)
	}
	return info, nil
}

func (b *Backend) Select(win platform.WindowID) error {
	b.Selected[win] = true
	return nil
}

func (b *Backend) Configure(win platform.WindowID, geom platform.Rect, border int) error {
	b.Configured[win] = geom
	return nil
}

func (b *Backend) Restack(windows []platform.WindowID) error {
	b.Stacking = append([]platform.WindowID(nil), windows...)
	return nil
}

func (b *Backend) Map(win platform.WindowID) error {
	b.Mapped[win] = true
	return nil
}

func (b *Backend) Unmap(win platform.WindowID) error {
	b.Mapped[win] = false
	return nil
}

func (b *Backend) Focus(win platform.WindowID) error {
	if b.FocusErr != nil {
		return b.FocusErr
	}
	b.Focused = win
	return nil
}

func (b *Backend) KillClient(win platform.WindowID) error {
	b.Killed = append(b.Killed, win)
	delete(b.Windows, win)
	return nil
}
