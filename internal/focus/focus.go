// Package focus keeps the focus history, the per-screen focused client and
// the stacking order of managed clients.
package focus

import (
	"slices"

	"github.com/1broseidon/tagwm/internal/registry"
)

// Visibility answers which clients are currently shown on a screen.
// *registry.Registry implements it.
type Visibility interface {
	IsVisible(c *registry.Client) bool
	VisibleClients(screen int) []*registry.Client
}

// Manager tracks most-recently-focused and most-recently-raised order.
// Histories never hold clients that left the registry: wire Remove as a
// registry removal observer.
type Manager struct {
	vis     Visibility
	history []*registry.Client
	stack   []*registry.Client
	current map[int]*registry.Client
}

// New creates an empty manager.
func New(vis Visibility) *Manager {
	return &Manager{
		vis:     vis,
		current: make(map[int]*registry.Client),
	}
}

// Track adds c to both histories without focusing it. New clients enter
// at the tail of the focus history and the top of the stack.
func (m *Manager) Track(c *registry.Client) {
	if !slices.Contains(m.history, c) {
		m.history = append(m.history, c)
	}
	if !slices.Contains(m.stack, c) {
		m.stack = append([]*registry.Client{c}, m.stack...)
	}
}

// Focus makes c the focused client of its screen and raises it unless it
// sits in the desktop layer.
func (m *Manager) Focus(c *registry.Client) {
	m.history = moveToFront(m.history, c)
	m.current[c.Screen] = c
	if c.Layer != registry.LayerDesktop {
		m.Raise(c)
	} else if !slices.Contains(m.stack, c) {
		m.stack = append(m.stack, c)
	}
}

// UnfocusIfCurrent drops c as its screen's focused client and promotes the
// next visible client from the focus history. It returns the promoted
// client, or nil when c was not focused or nothing is left to promote.
func (m *Manager) UnfocusIfCurrent(c *registry.Client) *registry.Client {
	if m.current[c.Screen] != c {
		return nil
	}
	delete(m.current, c.Screen)
	next := m.nextInHistory(c.Screen, c)
	if next != nil {
		m.Focus(next)
	}
	return next
}

// Remove purges c from every history. If c was focused, the next visible
// client on its screen is promoted and returned.
func (m *Manager) Remove(c *registry.Client) *registry.Client {
	m.history = remove(m.history, c)
	m.stack = remove(m.stack, c)
	if m.current[c.Screen] != c {
		return nil
	}
	delete(m.current, c.Screen)
	next := m.nextInHistory(c.Screen, c)
	if next != nil {
		m.Focus(next)
	}
	return next
}

// Raise moves c to the top of the stack history.
func (m *Manager) Raise(c *registry.Client) {
	m.stack = moveToFront(m.stack, c)
}

// Lower moves c to the bottom of the stack history.
func (m *Manager) Lower(c *registry.Client) {
	m.stack = append(remove(m.stack, c), c)
}

// Selected returns the focused client of a screen, or nil.
func (m *Manager) Selected(screen int) *registry.Client {
	return m.current[screen]
}

// History returns the focus history, most recent first.
func (m *Manager) History() []*registry.Client {
	return slices.Clone(m.history)
}

// StackOrder returns clients top to bottom: higher layers first, then by
// raise recency within a layer.
func (m *Manager) StackOrder() []*registry.Client {
	out := slices.Clone(m.stack)
	slices.SortStableFunc(out, func(a, b *registry.Client) int {
		return int(b.Layer) - int(a.Layer)
	})
	return out
}

// Next returns the visible client dir steps away from the focused one on
// screen, wrapping around. With nothing focused it returns the first
// visible client.
func (m *Manager) Next(screen, dir int) *registry.Client {
	clients := m.vis.VisibleClients(screen)
	if len(clients) == 0 {
		return nil
	}
	idx := slices.Index(clients, m.current[screen])
	if idx < 0 {
		return clients[0]
	}
	n := len(clients)
	return clients[((idx+dir)%n+n)%n]
}

func (m *Manager) nextInHistory(screen int, skip *registry.Client) *registry.Client {
	for _, c := range m.history {
		if c != skip && c.Screen == screen && m.vis.IsVisible(c) {
			return c
		}
	}
	return nil
}

func moveToFront(list []*registry.Client, c *registry.Client) []*registry.Client {
	list = remove(list, c)
	return append([]*registry.Client{c}, list...)
}

func remove(list []*registry.Client, c *registry.Client) []*registry.Client {
	return slices.DeleteFunc(list, func(x *registry.Client) bool { return x == c })
}
