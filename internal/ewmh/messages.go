package ewmh

import (
	"errors"
	"fmt"

	"github.com/1broseidon/tagwm/internal/platform"
	"github.com/1broseidon/tagwm/internal/registry"
)

// ProcessClientMessage applies a _NET_CLOSE_WINDOW or _NET_WM_STATE
// request. Messages for unmanaged windows and unknown types are ignored.
func (b *Bridge) ProcessClientMessage(msg platform.ClientMessageEvent) error {
	switch msg.Type {
	case b.atoms.CloseWindow:
		c, err := b.reg.Lookup(msg.Window)
		if err != nil {
			return ignoreNotFound(err)
		}
		return b.ctl.Kill(c)

	case b.atoms.WMState:
		c, err := b.reg.Lookup(msg.Window)
		if err != nil {
			return ignoreNotFound(err)
		}
		action := int(msg.Data[0])
		err = b.processState(c, platform.Atom(msg.Data[1]), action)
		if msg.Data[2] != 0 {
			err = errors.Join(err, b.processState(c, platform.Atom(msg.Data[2]), action))
		}
		return errors.Join(err, b.UpdateClientState(c))
	}
	return nil
}

// CheckClientHints applies the _NET_WM_STATE a window carried before it
// was managed and writes back the states that took effect.
func (b *Bridge) CheckClientHints(c *registry.Client) error {
	data, err := b.store.GetProperty(c.Window, b.atoms.WMState)
	if errors.Is(err, platform.ErrPropertyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read _NET_WM_STATE of %d: %w", c.Window, err)
	}
	var errs []error
	for _, a := range decode32(data) {
		errs = append(errs, b.processState(c, platform.Atom(a), StateAdd))
	}
	errs = append(errs, b.UpdateClientState(c))
	return errors.Join(errs...)
}

func (b *Bridge) processState(c *registry.Client, state platform.Atom, action int) error {
	switch state {
	case b.atoms.WMStateSticky:
		on, ok := resolveAction(action, c.Sticky)
		if !ok {
			return nil
		}
		b.setSticky(c, on)
		return nil

	case b.atoms.WMStateFullscreen:
		on, ok := resolveAction(action, c.Fullscreen)
		if !ok {
			return nil
		}
		return b.ctl.SetFullscreen(c, on)
	}
	return nil
}

// setSticky tags c on every tag its screen has right now, whichever way
// the request goes. Tags created later are not linked. on only decides
// what _NET_WM_STATE reports.
func (b *Bridge) setSticky(c *registry.Client, on bool) {
	s, err := b.reg.Screen(c.Screen)
	if err != nil {
		return
	}
	c.Sticky = on
	for _, t := range s.Tags {
		b.reg.TagClient(c, t)
	}
}

func resolveAction(action int, current bool) (on bool, ok bool) {
	switch action {
	case StateRemove:
		return false, true
	case StateAdd:
		return true, true
	case StateToggle:
		return !current, true
	}
	return false, false
}

func ignoreNotFound(err error) error {
	if errors.Is(err, registry.ErrNotFound) {
		return nil
	}
	return err
}
