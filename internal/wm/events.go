package wm

import (
	"errors"
	"fmt"

	"github.com/1broseidon/tagwm/internal/hooks"
	"github.com/1broseidon/tagwm/internal/platform"
	"github.com/1broseidon/tagwm/internal/registry"
)

// Dispatch applies one windowing event to the model. Failures are logged
// and never returned: a misbehaving client must not stop the loop.
func (m *Manager) Dispatch(ev platform.Event) {
	var err error
	switch e := ev.(type) {
	case platform.MapRequestEvent:
		m.onMapRequest(e)
	case platform.UnmapNotifyEvent:
		m.onUnmap(e)
	case platform.DestroyNotifyEvent:
		if c, lerr := m.reg.Lookup(e.Window); lerr == nil {
			m.unmanage(c)
		}
	case platform.ConfigureRequestEvent:
		err = m.onConfigureRequest(e)
	case platform.ClientMessageEvent:
		err = m.bridge.ProcessClientMessage(e)
	case platform.PropertyNotifyEvent:
		err = m.onPropertyNotify(e)
	case platform.EnterNotifyEvent:
		m.onEnter(e)
	default:
		m.logger.Debug("ignoring event", "type", fmt.Sprintf("%T", ev))
		return
	}

	if err == nil {
		return
	}
	if errors.Is(err, registry.ErrNotFound) {
		m.logger.Debug("event for unknown window", "window", ev.Target(), "error", err)
		return
	}
	m.logger.Warn("event handling failed", "type", fmt.Sprintf("%T", ev), "window", ev.Target(), "error", err)
}

func (m *Manager) onMapRequest(e platform.MapRequestEvent) {
	if c, err := m.reg.Lookup(e.Window); err == nil {
		if c.Hidden {
			m.ctl.SetHidden(c, false)
		}
		m.Focus(c)
		return
	}
	m.manage(e.Window)
}

// onUnmap acts on the copy reported to the parent. Clients also select
// StructureNotify, so every unmap arrives a second time on the window itself.
func (m *Manager) onUnmap(e platform.UnmapNotifyEvent) {
	if e.Event != platform.None && e.Event == e.Window {
		return
	}
	c, err := m.reg.Lookup(e.Window)
	if err != nil {
		return
	}
	if n := m.ignoreUnmap[e.Window]; n > 0 && !e.Synthetic {
		m.ignoreUnmap[e.Window] = n - 1
		return
	}
	m.unmanage(c)
}

// onConfigureRequest grants unmanaged windows what they ask for and lets
// the lifecycle controller answer for managed ones.
func (m *Manager) onConfigureRequest(e platform.ConfigureRequestEvent) error {
	if c, err := m.reg.Lookup(e.Window); err == nil {
		return m.ctl.Configure(c, e)
	}

	info, err := m.backend.WindowInfo(e.Window)
	if err != nil {
		return fmt.Errorf("configure unmanaged %d: %w", e.Window, err)
	}
	geom := info.Geometry
	if e.Mask&platform.ConfigX != 0 {
		geom.X = e.Geometry.X
	}
	if e.Mask&platform.ConfigY != 0 {
		geom.Y = e.Geometry.Y
	}
	if e.Mask&platform.ConfigWidth != 0 {
		geom.Width = e.Geometry.Width
	}
	if e.Mask&platform.ConfigHeight != 0 {
		geom.Height = e.Geometry.Height
	}
	border := info.Border
	if e.Mask&platform.ConfigBorder != 0 {
		border = e.Border
	}
	return m.backend.Configure(e.Window, geom, border)
}

func (m *Manager) onPropertyNotify(e platform.PropertyNotifyEvent) error {
	switch e.Name {
	case "WM_NAME", "_NET_WM_NAME", "WM_HINTS", "WM_NORMAL_HINTS", "WM_TRANSIENT_FOR", "WM_PROTOCOLS":
	default:
		return nil
	}
	c, err := m.reg.Lookup(e.Window)
	if err != nil {
		return err
	}
	info, err := m.backend.WindowInfo(e.Window)
	if err != nil {
		return fmt.Errorf("read %s of %d: %w", e.Name, e.Window, err)
	}

	switch e.Name {
	case "WM_NAME", "_NET_WM_NAME":
		m.ctl.SetName(c, info.Name)
	case "WM_HINTS":
		m.ctl.SetUrgent(c, info.Urgent)
	case "WM_NORMAL_HINTS":
		c.Hints = info.Hints
		c.Fixed = info.Hints.Fixed()
		if c.Fixed && !c.Floating {
			return m.ctl.SetFloating(c, true, registry.LayerFloat)
		}
		m.reg.MarkArrange(c.Screen)
	case "WM_TRANSIENT_FOR":
		c.TransientFor = info.TransientFor
		if c.TransientFor != platform.None && !c.Floating {
			return m.ctl.SetFloating(c, true, registry.LayerFloat)
		}
	case "WM_PROTOCOLS":
		c.SupportsDelete = info.SupportsDelete
	}
	return nil
}

func (m *Manager) onEnter(e platform.EnterNotifyEvent) {
	c, err := m.reg.Lookup(e.Window)
	if err != nil {
		return
	}
	m.emit(hooks.MouseOver, c)
	if m.cfg.FocusFollowsMouse && m.focus.Selected(c.Screen) != c {
		m.Focus(c)
	}
}
