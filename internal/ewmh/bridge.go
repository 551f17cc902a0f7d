package ewmh

import (
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/1broseidon/tagwm/internal/platform"
	"github.com/1broseidon/tagwm/internal/registry"
)

// DefaultDesktopNamesLimit bounds the _NET_DESKTOP_NAMES payload in bytes.
const DefaultDesktopNamesLimit = 4096

// PropertyStore reads and writes window properties.
type PropertyStore interface {
	Root(phys int) platform.WindowID
	GetProperty(win platform.WindowID, prop platform.Atom) ([]byte, error)
	ChangeProperty(win platform.WindowID, prop, typ platform.Atom, format byte, data []byte) error
}

// FocusSource reports the focused client of a screen.
type FocusSource interface {
	Selected(screen int) *registry.Client
}

// Controller carries out client actions requested over EWMH.
type Controller interface {
	Kill(c *registry.Client) error
	SetFullscreen(c *registry.Client, on bool) error
}

// Config wires a Bridge.
type Config struct {
	Atoms             *Atoms
	Store             PropertyStore
	Registry          *registry.Registry
	Focus             FocusSource
	Controller        Controller
	DesktopNamesLimit int
	Logger            *slog.Logger
}

// Bridge synchronizes registry state with EWMH properties.
type Bridge struct {
	atoms      *Atoms
	store      PropertyStore
	reg        *registry.Registry
	focus      FocusSource
	ctl        Controller
	namesLimit int
	logger     *slog.Logger
}

// New creates a bridge.
func New(cfg Config) *Bridge {
	limit := cfg.DesktopNamesLimit
	if limit <= 0 {
		limit = DefaultDesktopNamesLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		atoms:      cfg.Atoms,
		store:      cfg.Store,
		reg:        cfg.Registry,
		focus:      cfg.Focus,
		ctl:        cfg.Controller,
		namesLimit: limit,
		logger:     logger.With("component", "ewmh"),
	}
}

// Atoms returns the resolved atom cache.
func (b *Bridge) Atoms() *Atoms {
	return b.atoms
}

// SetSupportedHints advertises the supported protocol atoms on a root.
func (b *Bridge) SetSupportedHints(phys int) error {
	return b.setRoot(phys, b.atoms.Supported, typeAtom, 32, encode32(b.atoms.SupportedList()))
}

// UpdateClientList publishes every client of a physical screen, in
// management order.
func (b *Bridge) UpdateClientList(phys int) error {
	clients := b.reg.ClientsOnPhys(phys)
	wins := make([]platform.WindowID, len(clients))
	for i, c := range clients {
		wins[i] = c.Window
	}
	return b.setRoot(phys, b.atoms.ClientList, typeWindow, 32, encode32(wins))
}

// UpdateNumberOfDesktops publishes the tag count of a screen.
func (b *Bridge) UpdateNumberOfDesktops(screen int) error {
	s, ok := b.exporting(screen)
	if !ok {
		return nil
	}
	return b.setRoot(s.Phys, b.atoms.NumberOfDesktops, typeCardinal, 32, encode32([]uint32{uint32(len(s.Tags))}))
}

// CurrentDesktop returns the index of the first selected tag, 0 if none.
func (b *Bridge) CurrentDesktop(screen int) uint32 {
	s, err := b.reg.Screen(screen)
	if err != nil {
		return 0
	}
	for i, t := range s.Tags {
		if t.Selected {
			return uint32(i)
		}
	}
	return 0
}

// UpdateCurrentDesktop publishes the current tag index of a screen.
func (b *Bridge) UpdateCurrentDesktop(screen int) error {
	s, ok := b.exporting(screen)
	if !ok {
		return nil
	}
	return b.setRoot(s.Phys, b.atoms.CurrentDesktop, typeCardinal, 32, encode32([]uint32{b.CurrentDesktop(screen)}))
}

// DesktopNames encodes tag names as consecutive NUL-terminated UTF-8
// strings of at most limit bytes. A name that does not fit is cut at a
// rune boundary and the following names are dropped.
func DesktopNames(tags []*registry.Tag, limit int) (buf []byte, truncated bool) {
	for _, t := range tags {
		room := limit - len(buf) - 1
		if room < 0 {
			return buf, true
		}
		name := t.Name
		if len(name) > room {
			name = truncateUTF8(name, room)
			truncated = true
		}
		buf = append(buf, name...)
		buf = append(buf, 0)
		if truncated {
			return buf, true
		}
	}
	return buf, false
}

func truncateUTF8(s string, n int) string {
	if n <= 0 {
		return ""
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// UpdateDesktopNames publishes the tag names of a screen.
func (b *Bridge) UpdateDesktopNames(screen int) error {
	s, ok := b.exporting(screen)
	if !ok {
		return nil
	}
	buf, truncated := DesktopNames(s.Tags, b.namesLimit)
	if truncated {
		b.logger.Debug("desktop names truncated", "screen", screen, "limit", b.namesLimit)
	}
	return b.setRoot(s.Phys, b.atoms.DesktopNames, b.atoms.UTF8String, 8, buf)
}

// UpdateActiveWindow publishes the focused client of a screen, or None.
func (b *Bridge) UpdateActiveWindow(screen int) error {
	s, err := b.reg.Screen(screen)
	if err != nil {
		return err
	}
	win := platform.None
	if c := b.focus.Selected(screen); c != nil {
		win = c.Window
	}
	return b.setRoot(s.Phys, b.atoms.ActiveWindow, typeWindow, 32, encode32([]platform.WindowID{win}))
}

// UpdateDesktops republishes every desktop property of a screen.
func (b *Bridge) UpdateDesktops(screen int) error {
	return errors.Join(
		b.UpdateNumberOfDesktops(screen),
		b.UpdateCurrentDesktop(screen),
		b.UpdateDesktopNames(screen),
	)
}

// UpdateClientState writes the client's own _NET_WM_STATE list.
func (b *Bridge) UpdateClientState(c *registry.Client) error {
	var states []platform.Atom
	if c.Sticky {
		states = append(states, b.atoms.WMStateSticky)
	}
	if c.Fullscreen {
		states = append(states, b.atoms.WMStateFullscreen)
	}
	if err := b.store.ChangeProperty(c.Window, b.atoms.WMState, typeAtom, 32, encode32(states)); err != nil {
		return fmt.Errorf("set _NET_WM_STATE on %d: %w", c.Window, err)
	}
	return nil
}

// exporting returns the screen if it is the one that owns the desktop
// properties of its root: the lowest-index logical screen per root.
func (b *Bridge) exporting(screen int) (*registry.Screen, bool) {
	s, err := b.reg.Screen(screen)
	if err != nil {
		return nil, false
	}
	for _, other := range b.reg.Screens() {
		if other.Phys == s.Phys {
			return s, other == s
		}
	}
	return s, false
}

func (b *Bridge) setRoot(phys int, prop, typ platform.Atom, format byte, data []byte) error {
	root := b.store.Root(phys)
	if err := b.store.ChangeProperty(root, prop, typ, format, data); err != nil {
		return fmt.Errorf("set root property %d on %d: %w", prop, root, err)
	}
	return nil
}
