package focus

import (
	"testing"

	"github.com/1broseidon/tagwm/internal/platform"
	"github.com/1broseidon/tagwm/internal/registry"
)

type fixture struct {
	reg *registry.Registry
	fm  *Manager
	tag *registry.Tag
}

func newFixture() *fixture {
	reg := registry.New()
	s := reg.AddScreen(&registry.Screen{Tags: []*registry.Tag{
		{Name: "1", Selected: true},
		{Name: "2"},
	}})
	fm := New(reg)
	reg.OnRemove(func(c *registry.Client) { fm.Remove(c) })
	return &fixture{reg: reg, fm: fm, tag: s.Tags[0]}
}

func (f *fixture) client(win uint32) *registry.Client {
	c := f.reg.AddClient(&registry.Client{Window: platform.WindowID(win), Layer: registry.LayerTile})
	f.reg.TagClient(c, f.tag)
	f.fm.Track(c)
	return c
}

func TestRemove_PurgesHistories(t *testing.T) {
	f := newFixture()
	a := f.client(1)
	b := f.client(2)
	f.fm.Focus(a)
	f.fm.Focus(b)

	f.reg.RemoveClient(a)

	for _, c := range f.fm.History() {
		if c == a {
			t.Fatalf("removed client still in focus history")
		}
	}
	for _, c := range f.fm.StackOrder() {
		if c == a {
			t.Fatalf("removed client still in stack history")
		}
	}
}

func TestRemove_PromotesNextVisibleClient(t *testing.T) {
	f := newFixture()
	a := f.client(1)
	b := f.client(2)
	f.fm.Focus(a)
	f.fm.Focus(b)

	f.reg.RemoveClient(b)

	if got := f.fm.Selected(0); got != a {
		t.Fatalf("expected a to be promoted, got %v", got)
	}
}

func TestUnfocusIfCurrent_SkipsInvisibleClients(t *testing.T) {
	f := newFixture()
	a := f.client(1)
	hidden := f.client(2)
	b := f.client(3)
	f.fm.Focus(a)
	f.fm.Focus(hidden)
	f.fm.Focus(b)
	hidden.Hidden = true

	next := f.fm.UnfocusIfCurrent(b)
	if next != a {
		t.Fatalf("expected a, got %v", next)
	}
	if f.fm.Selected(0) != a {
		t.Fatalf("expected a to be focused")
	}
}

func TestUnfocusIfCurrent_NotCurrentIsNoop(t *testing.T) {
	f := newFixture()
	a := f.client(1)
	b := f.client(2)
	f.fm.Focus(a)

	if next := f.fm.UnfocusIfCurrent(b); next != nil {
		t.Fatalf("expected nil, got %v", next)
	}
	if f.fm.Selected(0) != a {
		t.Fatalf("focus must not change")
	}
}

func TestFocus_DesktopLayerIsNotRaised(t *testing.T) {
	f := newFixture()
	a := f.client(1)
	desk := f.client(2)
	desk.Layer = registry.LayerDesktop
	f.fm.Focus(a)
	f.fm.Lower(desk)
	f.fm.Focus(desk)

	order := f.fm.StackOrder()
	if order[len(order)-1] != desk {
		t.Fatalf("desktop client should stay at the bottom")
	}
	if f.fm.History()[0] != desk {
		t.Fatalf("desktop client should still head the focus history")
	}
}

func TestStackOrder_LayerBeforeRecency(t *testing.T) {
	f := newFixture()
	floater := f.client(1)
	floater.Layer = registry.LayerFloat
	tiled := f.client(2)
	f.fm.Raise(tiled)

	order := f.fm.StackOrder()
	if order[0] != floater || order[1] != tiled {
		t.Fatalf("expected float layer above tile layer")
	}
}

func TestNext_WrapsAround(t *testing.T) {
	f := newFixture()
	a := f.client(1)
	b := f.client(2)
	f.fm.Focus(b)

	if got := f.fm.Next(0, 1); got != a {
		t.Fatalf("expected wrap to a, got %v", got)
	}
	if got := f.fm.Next(0, -1); got != a {
		t.Fatalf("expected a backwards, got %v", got)
	}
}
