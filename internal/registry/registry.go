package registry

import (
	"errors"
	"fmt"

	"github.com/1broseidon/tagwm/internal/platform"
)

var (
	// ErrNotFound is returned when a window identity is not managed.
	ErrNotFound = errors.New("client not found")
	// ErrLastTag is returned when removing a screen's only tag.
	ErrLastTag = errors.New("screen must keep at least one tag")
	// ErrDuplicateTag is returned when a tag name already exists on the screen.
	ErrDuplicateTag = errors.New("tag name already in use on screen")
	// ErrNoScreen is returned for an out-of-range screen index.
	ErrNoScreen = errors.New("no such screen")
)

type link struct {
	tag    *Tag
	client *Client
}

// Registry owns the canonical lists of screens, clients, tags and the
// tag/client associations. Other components hold pointers into it but
// never own entities.
type Registry struct {
	screens  []*Screen
	clients  []*Client
	byWindow map[platform.WindowID]*Client
	links    []link
	onRemove []func(*Client)
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byWindow: make(map[platform.WindowID]*Client),
	}
}

// OnRemove registers fn to run during RemoveClient, before it returns.
func (r *Registry) OnRemove(fn func(*Client)) {
	r.onRemove = append(r.onRemove, fn)
}

// AddScreen appends a screen; its Index is assigned from its position.
func (r *Registry) AddScreen(s *Screen) *Screen {
	s.Index = len(r.screens)
	for _, t := range s.Tags {
		t.Screen = s.Index
	}
	r.screens = append(r.screens, s)
	return s
}

// Screens returns all screens in index order.
func (r *Registry) Screens() []*Screen {
	return r.screens
}

// Screen returns the screen at index i.
func (r *Registry) Screen(i int) (*Screen, error) {
	if i < 0 || i >= len(r.screens) {
		return nil, fmt.Errorf("screen %d: %w", i, ErrNoScreen)
	}
	return r.screens[i], nil
}

// MarkArrange flags screen i for re-arrangement at the next flush.
func (r *Registry) MarkArrange(i int) {
	if i >= 0 && i < len(r.screens) {
		r.screens[i].NeedArrange = true
	}
}

// ScreenAt returns the screen whose geometry contains the point, falling
// back to screen 0.
func (r *Registry) ScreenAt(x, y int) int {
	for _, s := range r.screens {
		if s.Geometry.Contains(x, y) {
			return s.Index
		}
	}
	return 0
}

// AddClient registers c. Adding an already-managed window is a no-op that
// returns the existing client.
func (r *Registry) AddClient(c *Client) *Client {
	if existing, ok := r.byWindow[c.Window]; ok {
		return existing
	}
	r.clients = append(r.clients, c)
	r.byWindow[c.Window] = c
	r.MarkArrange(c.Screen)
	return c
}

// RemoveClient unregisters c, dropping all of its tag links and notifying
// removal observers before returning.
func (r *Registry) RemoveClient(c *Client) {
	if _, ok := r.byWindow[c.Window]; !ok {
		return
	}
	delete(r.byWindow, c.Window)
	for i, cc := range r.clients {
		if cc == c {
			r.clients = append(r.clients[:i], r.clients[i+1:]...)
			break
		}
	}
	r.removeLinks(func(l link) bool { return l.client == c })
	for _, fn := range r.onRemove {
		fn(c)
	}
	r.MarkArrange(c.Screen)
}

// Lookup resolves a window identity to its managed client.
func (r *Registry) Lookup(win platform.WindowID) (*Client, error) {
	c, ok := r.byWindow[win]
	if !ok {
		return nil, fmt.Errorf("window %d: %w", win, ErrNotFound)
	}
	return c, nil
}

// Contains reports whether c is currently registered.
func (r *Registry) Contains(c *Client) bool {
	if c == nil {
		return false
	}
	cc, ok := r.byWindow[c.Window]
	return ok && cc == c
}

// Clients returns every managed client in management order.
func (r *Registry) Clients() []*Client {
	return r.clients
}

// ClientsOnScreen returns the clients of a logical screen.
func (r *Registry) ClientsOnScreen(screen int) []*Client {
	var out []*Client
	for _, c := range r.clients {
		if c.Screen == screen {
			out = append(out, c)
		}
	}
	return out
}

// ClientsOnPhys returns the clients living on a physical screen.
func (r *Registry) ClientsOnPhys(phys int) []*Client {
	var out []*Client
	for _, c := range r.clients {
		if c.Phys == phys {
			out = append(out, c)
		}
	}
	return out
}

// AddTag appends t to the screen's tag list.
func (r *Registry) AddTag(screen int, t *Tag) error {
	s, err := r.Screen(screen)
	if err != nil {
		return err
	}
	for _, existing := range s.Tags {
		if existing.Name == t.Name {
			return fmt.Errorf("tag %q: %w", t.Name, ErrDuplicateTag)
		}
	}
	t.Screen = screen
	s.Tags = append(s.Tags, t)
	s.NeedArrange = true
	return nil
}

// RemoveTag destroys t after detaching all of its clients. A screen always
// keeps at least one tag and, if t was the only selected tag, the first
// remaining tag becomes selected.
func (r *Registry) RemoveTag(t *Tag) error {
	s, err := r.Screen(t.Screen)
	if err != nil {
		return err
	}
	idx := -1
	for i, tt := range s.Tags {
		if tt == t {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("tag %q not on screen %d", t.Name, t.Screen)
	}
	if len(s.Tags) == 1 {
		return fmt.Errorf("tag %q: %w", t.Name, ErrLastTag)
	}

	r.removeLinks(func(l link) bool { return l.tag == t })
	s.Tags = append(s.Tags[:idx], s.Tags[idx+1:]...)

	if t.Selected {
		t.Selected = false
		if len(r.SelectedTags(s.Index)) == 0 {
			s.Tags[0].Selected = true
		}
	}
	s.NeedArrange = true
	return nil
}

// FindTag returns the tag named name on screen, or nil.
func (r *Registry) FindTag(screen int, name string) *Tag {
	s, err := r.Screen(screen)
	if err != nil {
		return nil
	}
	for _, t := range s.Tags {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// TagIndex returns the position of t in its screen's tag order, or -1.
func (r *Registry) TagIndex(t *Tag) int {
	s, err := r.Screen(t.Screen)
	if err != nil {
		return -1
	}
	for i, tt := range s.Tags {
		if tt == t {
			return i
		}
	}
	return -1
}

// TagClient associates c with t. Re-tagging is a no-op.
func (r *Registry) TagClient(c *Client, t *Tag) {
	if r.IsTagged(c, t) {
		return
	}
	r.links = append(r.links, link{tag: t, client: c})
	r.MarkArrange(t.Screen)
}

// UntagClient dissociates c from t.
func (r *Registry) UntagClient(c *Client, t *Tag) {
	r.removeLinks(func(l link) bool { return l.tag == t && l.client == c })
	r.MarkArrange(t.Screen)
}

// IsTagged reports whether c is associated with t.
func (r *Registry) IsTagged(c *Client, t *Tag) bool {
	for _, l := range r.links {
		if l.tag == t && l.client == c {
			return true
		}
	}
	return false
}

// TagsOfClient returns c's tags in association order.
func (r *Registry) TagsOfClient(c *Client) []*Tag {
	var out []*Tag
	for _, l := range r.links {
		if l.client == c {
			out = append(out, l.tag)
		}
	}
	return out
}

// ClientsOfTag returns t's clients in management order.
func (r *Registry) ClientsOfTag(t *Tag) []*Client {
	var out []*Client
	for _, c := range r.clients {
		if r.IsTagged(c, t) {
			out = append(out, c)
		}
	}
	return out
}

// SelectedTags returns the selected tags of a screen in display order.
func (r *Registry) SelectedTags(screen int) []*Tag {
	s, err := r.Screen(screen)
	if err != nil {
		return nil
	}
	var out []*Tag
	for _, t := range s.Tags {
		if t.Selected {
			out = append(out, t)
		}
	}
	return out
}

// CurrentTag returns the first selected tag of a screen, or nil.
func (r *Registry) CurrentTag(screen int) *Tag {
	tags := r.SelectedTags(screen)
	if len(tags) == 0 {
		return nil
	}
	return tags[0]
}

// ViewOnly selects t and deselects every other tag on its screen.
func (r *Registry) ViewOnly(t *Tag) {
	s, err := r.Screen(t.Screen)
	if err != nil {
		return
	}
	for _, tt := range s.Tags {
		tt.Selected = tt == t
	}
	s.NeedArrange = true
}

// ToggleView flips t's selection. The last selected tag of a screen cannot
// be deselected.
func (r *Registry) ToggleView(t *Tag) {
	if t.Selected && len(r.SelectedTags(t.Screen)) == 1 {
		return
	}
	t.Selected = !t.Selected
	r.MarkArrange(t.Screen)
}

// IsVisible reports whether c is shown by some selected tag of its screen.
func (r *Registry) IsVisible(c *Client) bool {
	if c.Hidden {
		return false
	}
	for _, l := range r.links {
		if l.client == c && l.tag.Selected && l.tag.Screen == c.Screen {
			return true
		}
	}
	return false
}

// VisibleClients returns the visible clients of a screen in management order.
func (r *Registry) VisibleClients(screen int) []*Client {
	var out []*Client
	for _, c := range r.clients {
		if c.Screen == screen && r.IsVisible(c) {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) removeLinks(match func(link) bool) {
	kept := r.links[:0]
	for _, l := range r.links {
		if !match(l) {
			kept = append(kept, l)
		}
	}
	r.links = kept
}
