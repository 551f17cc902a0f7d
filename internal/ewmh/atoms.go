// Package ewmh keeps the Extended Window Manager Hints root and client
// properties in sync with the registry and applies client requests made
// through EWMH client messages.
package ewmh

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/tagwm/internal/platform"
)

// ErrProtocolInit is returned when the protocol atoms cannot be resolved.
// The window manager cannot run without them.
var ErrProtocolInit = errors.New("ewmh: cannot resolve protocol atoms")

// Predefined X11 property types.
const (
	typeAtom     = platform.Atom(xproto.AtomAtom)
	typeCardinal = platform.Atom(xproto.AtomCardinal)
	typeWindow   = platform.Atom(xproto.AtomWindow)
)

// State change actions carried in Data[0] of a _NET_WM_STATE message.
const (
	StateRemove = 0
	StateAdd    = 1
	StateToggle = 2
)

// AtomResolver interns atom names on a display connection.
type AtomResolver interface {
	InternAtoms(names []string) ([]platform.Atom, error)
}

// Atoms is the resolved atom cache. It is filled once per connection and
// read-only afterwards.
type Atoms struct {
	Supported         platform.Atom
	ClientList        platform.Atom
	NumberOfDesktops  platform.Atom
	CurrentDesktop    platform.Atom
	DesktopNames      platform.Atom
	ActiveWindow      platform.Atom
	CloseWindow       platform.Atom
	WMName            platform.Atom
	WMIcon            platform.Atom
	WMState           platform.Atom
	WMStateSticky     platform.Atom
	WMStateFullscreen platform.Atom
	UTF8String        platform.Atom
}

func (a *Atoms) targets() []struct {
	name string
	dst  *platform.Atom
} {
	return []struct {
		name string
		dst  *platform.Atom
	}{
		{"_NET_SUPPORTED", &a.Supported},
		{"_NET_CLIENT_LIST", &a.ClientList},
		{"_NET_NUMBER_OF_DESKTOPS", &a.NumberOfDesktops},
		{"_NET_CURRENT_DESKTOP", &a.CurrentDesktop},
		{"_NET_DESKTOP_NAMES", &a.DesktopNames},
		{"_NET_ACTIVE_WINDOW", &a.ActiveWindow},
		{"_NET_CLOSE_WINDOW", &a.CloseWindow},
		{"_NET_WM_NAME", &a.WMName},
		{"_NET_WM_ICON", &a.WMIcon},
		{"_NET_WM_STATE", &a.WMState},
		{"_NET_WM_STATE_STICKY", &a.WMStateSticky},
		{"_NET_WM_STATE_FULLSCREEN", &a.WMStateFullscreen},
		{"UTF8_STRING", &a.UTF8String},
	}
}

// ResolveAtoms interns every protocol atom in one round trip.
func ResolveAtoms(r AtomResolver) (*Atoms, error) {
	a := &Atoms{}
	targets := a.targets()
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.name
	}

	ids, err := r.InternAtoms(names)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocolInit, err)
	}
	if len(ids) != len(names) {
		return nil, fmt.Errorf("%w: got %d atoms for %d names", ErrProtocolInit, len(ids), len(names))
	}
	for i, t := range targets {
		if ids[i] == 0 {
			return nil, fmt.Errorf("%w: %s resolved to None", ErrProtocolInit, t.name)
		}
		*t.dst = ids[i]
	}
	return a, nil
}

// SupportedList is the value advertised in _NET_SUPPORTED.
func (a *Atoms) SupportedList() []platform.Atom {
	return []platform.Atom{
		a.Supported,
		a.ClientList,
		a.NumberOfDesktops,
		a.CurrentDesktop,
		a.DesktopNames,
		a.ActiveWindow,
		a.CloseWindow,
		a.WMName,
		a.WMIcon,
		a.WMState,
		a.WMStateSticky,
		a.WMStateFullscreen,
	}
}

// encode32 packs values as a format-32 property payload.
func encode32[T ~uint32](vals []T) []byte {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		xgb.Put32(buf[i*4:], uint32(v))
	}
	return buf
}

// decode32 unpacks a format-32 property payload, ignoring a trailing
// partial value.
func decode32(buf []byte) []uint32 {
	out := make([]uint32, 0, len(buf)/4)
	for i := 0; i+4 <= len(buf); i += 4 {
		out = append(out, xgb.Get32(buf[i:]))
	}
	return out
}
