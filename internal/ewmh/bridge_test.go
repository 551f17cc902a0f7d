package ewmh

import (
	"bytes"
	"errors"
	"testing"

	"github.com/BurntSushi/xgb"

	"github.com/1broseidon/tagwm/internal/focus"
	"github.com/1broseidon/tagwm/internal/platform"
	"github.com/1broseidon/tagwm/internal/platform/platformtest"
	"github.com/1broseidon/tagwm/internal/registry"
)

type fakeController struct {
	killed     []*registry.Client
	fullscreen []bool
}

func (f *fakeController) Kill(c *registry.Client) error {
	f.killed = append(f.killed, c)
	return nil
}

func (f *fakeController) SetFullscreen(c *registry.Client, on bool) error {
	f.fullscreen = append(f.fullscreen, on)
	c.Fullscreen = on
	return nil
}

type fixture struct {
	backend *platformtest.Backend
	reg     *registry.Registry
	focus   *focus.Manager
	ctl     *fakeController
	bridge  *Bridge
}

func newFixture(t *testing.T, tags ...string) *fixture {
	t.Helper()
	backend := platformtest.New()
	atoms, err := ResolveAtoms(backend)
	if err != nil {
		t.Fatalf("resolve atoms: %v", err)
	}
	reg := registry.New()
	s := &registry.Screen{Geometry: platform.Rect{Width: 1000, Height: 800}}
	for i, name := range tags {
		s.Tags = append(s.Tags, &registry.Tag{Name: name, Selected: i == 0, Layout: "tile"})
	}
	reg.AddScreen(s)
	fm := focus.New(reg)
	ctl := &fakeController{}
	b := New(Config{Atoms: atoms, Store: backend, Registry: reg, Focus: fm, Controller: ctl})
	return &fixture{backend: backend, reg: reg, focus: fm, ctl: ctl, bridge: b}
}

func (f *fixture) manage(win platform.WindowID, tag *registry.Tag) *registry.Client {
	c := f.reg.AddClient(&registry.Client{Window: win})
	f.reg.TagClient(c, tag)
	return c
}

func root32(t *testing.T, f *fixture, name string) []uint32 {
	t.Helper()
	p, ok := f.backend.Prop(f.backend.Root(0), name)
	if !ok {
		t.Fatalf("%s not set on root", name)
	}
	return decode32(p.Data)
}

func TestResolveAtoms_FailureIsProtocolInit(t *testing.T) {
	backend := platformtest.New()
	backend.FailIntern = true
	if _, err := ResolveAtoms(backend); !errors.Is(err, ErrProtocolInit) {
		t.Fatalf("expected ErrProtocolInit, got %v", err)
	}
}

func TestSetSupportedHints_ListsProtocolAtoms(t *testing.T) {
	f := newFixture(t, "1")
	if err := f.bridge.SetSupportedHints(0); err != nil {
		t.Fatalf("set supported: %v", err)
	}
	got := root32(t, f, "_NET_SUPPORTED")
	if len(got) != 12 {
		t.Fatalf("expected 12 supported atoms, got %d", len(got))
	}
	if platform.Atom(got[0]) != f.backend.Atom("_NET_SUPPORTED") {
		t.Fatalf("expected _NET_SUPPORTED first")
	}
}

func TestDesktopProperties_ThreeTagsSecondSelected(t *testing.T) {
	f := newFixture(t, "1", "2", "3")
	s, _ := f.reg.Screen(0)
	f.reg.ViewOnly(s.Tags[1])

	if err := f.bridge.UpdateDesktops(0); err != nil {
		t.Fatalf("update desktops: %v", err)
	}

	names, ok := f.backend.Prop(f.backend.Root(0), "_NET_DESKTOP_NAMES")
	if !ok {
		t.Fatalf("desktop names not set")
	}
	if !bytes.Equal(names.Data, []byte("1\x002\x003\x00")) {
		t.Fatalf("unexpected names %q", names.Data)
	}
	if names.Type != f.backend.Atom("UTF8_STRING") || names.Format != 8 {
		t.Fatalf("unexpected names type %d format %d", names.Type, names.Format)
	}
	if got := root32(t, f, "_NET_CURRENT_DESKTOP"); len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected current desktop 1, got %v", got)
	}
	if got := root32(t, f, "_NET_NUMBER_OF_DESKTOPS"); len(got) != 1 || got[0] != 3 {
		t.Fatalf("expected 3 desktops, got %v", got)
	}
}

func TestDesktopNames_TruncatesAtRuneBoundary(t *testing.T) {
	tags := []*registry.Tag{{Name: "ab"}, {Name: "cé"}, {Name: "zz"}}
	buf, truncated := DesktopNames(tags, 5)
	if !truncated {
		t.Fatalf("expected truncation")
	}
	// "ab\x00" then room for 1 byte of "cé": 'c' only, then NUL.
	if !bytes.Equal(buf, []byte("ab\x00c\x00")) {
		t.Fatalf("unexpected buffer %q", buf)
	}

	buf, truncated = DesktopNames(tags, 64)
	if truncated || !bytes.Equal(buf, []byte("ab\x00cé\x00zz\x00")) {
		t.Fatalf("unexpected untruncated buffer %q (truncated=%v)", buf, truncated)
	}
}

func TestUpdateClientList_RegistryOrder(t *testing.T) {
	f := newFixture(t, "1")
	s, _ := f.reg.Screen(0)
	f.manage(30, s.Tags[0])
	f.manage(10, s.Tags[0])
	f.manage(20, s.Tags[0])

	if err := f.bridge.UpdateClientList(0); err != nil {
		t.Fatalf("client list: %v", err)
	}
	got := root32(t, f, "_NET_CLIENT_LIST")
	want := []uint32{30, 10, 20}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestUpdateActiveWindow_NoneWhenNothingFocused(t *testing.T) {
	f := newFixture(t, "1")
	if err := f.bridge.UpdateActiveWindow(0); err != nil {
		t.Fatalf("active window: %v", err)
	}
	if got := root32(t, f, "_NET_ACTIVE_WINDOW"); len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected None, got %v", got)
	}

	s, _ := f.reg.Screen(0)
	c := f.manage(42, s.Tags[0])
	f.focus.Focus(c)
	_ = f.bridge.UpdateActiveWindow(0)
	if got := root32(t, f, "_NET_ACTIVE_WINDOW"); got[0] != 42 {
		t.Fatalf("expected 42, got %v", got)
	}
}

func TestCloseWindow_UnmanagedWindowIsIgnored(t *testing.T) {
	f := newFixture(t, "1")
	msg := platform.ClientMessageEvent{Window: 999, Type: f.bridge.Atoms().CloseWindow}
	if err := f.bridge.ProcessClientMessage(msg); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(f.ctl.killed) != 0 {
		t.Fatalf("nothing should be killed")
	}
	if len(f.reg.Clients()) != 0 {
		t.Fatalf("registry must stay unchanged")
	}
}

func TestCloseWindow_KillsManagedClient(t *testing.T) {
	f := newFixture(t, "1")
	s, _ := f.reg.Screen(0)
	c := f.manage(5, s.Tags[0])
	msg := platform.ClientMessageEvent{Window: 5, Type: f.bridge.Atoms().CloseWindow}
	if err := f.bridge.ProcessClientMessage(msg); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(f.ctl.killed) != 1 || f.ctl.killed[0] != c {
		t.Fatalf("expected client to be killed")
	}
}

func TestStickyAdd_DoesNotLinkLaterTags(t *testing.T) {
	f := newFixture(t, "1", "2")
	s, _ := f.reg.Screen(0)
	c := f.manage(7, s.Tags[0])
	atoms := f.bridge.Atoms()

	msg := platform.ClientMessageEvent{Window: 7, Type: atoms.WMState, Data: [5]uint32{StateAdd, uint32(atoms.WMStateSticky)}}
	if err := f.bridge.ProcessClientMessage(msg); err != nil {
		t.Fatalf("sticky: %v", err)
	}
	if len(f.reg.TagsOfClient(c)) != 2 {
		t.Fatalf("expected client on both tags")
	}

	late := &registry.Tag{Name: "3", Layout: "tile"}
	if err := f.reg.AddTag(0, late); err != nil {
		t.Fatalf("add tag: %v", err)
	}
	if f.reg.IsTagged(c, late) {
		t.Fatalf("sticky must not be retroactive")
	}

	state, ok := f.backend.Prop(7, "_NET_WM_STATE")
	if !ok || len(decode32(state.Data)) != 1 {
		t.Fatalf("expected client state to list sticky")
	}
}

func TestStickyRemove_KeepsEveryTag(t *testing.T) {
	f := newFixture(t, "1", "2", "3")
	s, _ := f.reg.Screen(0)
	f.reg.ViewOnly(s.Tags[1])
	c := f.manage(7, s.Tags[0])
	atoms := f.bridge.Atoms()

	add := platform.ClientMessageEvent{Window: 7, Type: atoms.WMState, Data: [5]uint32{StateAdd, uint32(atoms.WMStateSticky)}}
	remove := platform.ClientMessageEvent{Window: 7, Type: atoms.WMState, Data: [5]uint32{StateRemove, uint32(atoms.WMStateSticky)}}
	_ = f.bridge.ProcessClientMessage(add)
	_ = f.bridge.ProcessClientMessage(remove)

	if got := len(f.reg.TagsOfClient(c)); got != 3 {
		t.Fatalf("expected client on all 3 tags, got %d", got)
	}
	if c.Sticky {
		t.Fatalf("expected sticky flag cleared")
	}
	state, ok := f.backend.Prop(7, "_NET_WM_STATE")
	if !ok || len(state.Data) != 0 {
		t.Fatalf("expected empty client state, got %v", state.Data)
	}
}

func TestStickyRemove_OnPlainClientTagsEverywhere(t *testing.T) {
	f := newFixture(t, "1", "2")
	s, _ := f.reg.Screen(0)
	c := f.manage(7, s.Tags[0])
	atoms := f.bridge.Atoms()

	remove := platform.ClientMessageEvent{Window: 7, Type: atoms.WMState, Data: [5]uint32{StateRemove, uint32(atoms.WMStateSticky)}}
	if err := f.bridge.ProcessClientMessage(remove); err != nil {
		t.Fatalf("remove sticky: %v", err)
	}
	if !f.reg.IsTagged(c, s.Tags[1]) {
		t.Fatalf("expected client linked to tag 2")
	}
	if c.Sticky {
		t.Fatalf("remove must not set the sticky flag")
	}
}

func TestFullscreen_AddThenRemove(t *testing.T) {
	f := newFixture(t, "1")
	s, _ := f.reg.Screen(0)
	c := f.manage(8, s.Tags[0])
	atoms := f.bridge.Atoms()

	add := platform.ClientMessageEvent{Window: 8, Type: atoms.WMState, Data: [5]uint32{StateAdd, uint32(atoms.WMStateFullscreen)}}
	remove := platform.ClientMessageEvent{Window: 8, Type: atoms.WMState, Data: [5]uint32{StateRemove, uint32(atoms.WMStateFullscreen)}}

	_ = f.bridge.ProcessClientMessage(add)
	if !c.Fullscreen {
		t.Fatalf("expected fullscreen after add")
	}
	_ = f.bridge.ProcessClientMessage(remove)
	if c.Fullscreen {
		t.Fatalf("expected fullscreen cleared after remove")
	}
	if len(f.ctl.fullscreen) != 2 || !f.ctl.fullscreen[0] || f.ctl.fullscreen[1] {
		t.Fatalf("unexpected controller calls %v", f.ctl.fullscreen)
	}
}

func TestWMState_SecondPropertyAndUnknownAtom(t *testing.T) {
	f := newFixture(t, "1", "2")
	s, _ := f.reg.Screen(0)
	c := f.manage(9, s.Tags[0])
	atoms := f.bridge.Atoms()

	msg := platform.ClientMessageEvent{Window: 9, Type: atoms.WMState, Data: [5]uint32{
		StateToggle, uint32(f.backend.Atom("_NET_WM_STATE_SHADED")), uint32(atoms.WMStateFullscreen),
	}}
	if err := f.bridge.ProcessClientMessage(msg); err != nil {
		t.Fatalf("state: %v", err)
	}
	if !c.Fullscreen {
		t.Fatalf("expected toggle of the second property")
	}
}

func TestCheckClientHints_AppliesInitialState(t *testing.T) {
	f := newFixture(t, "1", "2")
	s, _ := f.reg.Screen(0)
	c := f.manage(11, s.Tags[0])

	data := make([]byte, 8)
	xgb.Put32(data, uint32(f.bridge.Atoms().WMStateSticky))
	xgb.Put32(data[4:], uint32(f.bridge.Atoms().WMStateFullscreen))
	_ = f.backend.ChangeProperty(11, f.bridge.Atoms().WMState, typeAtom, 32, data)

	if err := f.bridge.CheckClientHints(c); err != nil {
		t.Fatalf("check hints: %v", err)
	}
	if !c.Sticky || !c.Fullscreen {
		t.Fatalf("expected sticky and fullscreen, got sticky=%v fullscreen=%v", c.Sticky, c.Fullscreen)
	}
	if len(f.reg.TagsOfClient(c)) != 2 {
		t.Fatalf("sticky client should be on every tag")
	}
}

func TestCheckClientHints_WritesBackAppliedStates(t *testing.T) {
	f := newFixture(t, "1")
	s, _ := f.reg.Screen(0)
	c := f.manage(13, s.Tags[0])
	atoms := f.bridge.Atoms()

	data := make([]byte, 8)
	xgb.Put32(data, 999)
	xgb.Put32(data[4:], uint32(atoms.WMStateFullscreen))
	_ = f.backend.ChangeProperty(13, atoms.WMState, typeAtom, 32, data)

	if err := f.bridge.CheckClientHints(c); err != nil {
		t.Fatalf("check hints: %v", err)
	}
	state, _ := f.backend.Prop(13, "_NET_WM_STATE")
	got := decode32(state.Data)
	if len(got) != 1 || platform.Atom(got[0]) != atoms.WMStateFullscreen {
		t.Fatalf("expected state normalized to fullscreen only, got %v", got)
	}
}

func TestCheckClientHints_MissingPropertyIsFine(t *testing.T) {
	f := newFixture(t, "1")
	s, _ := f.reg.Screen(0)
	c := f.manage(12, s.Tags[0])
	if err := f.bridge.CheckClientHints(c); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestDesktopProperties_OnlyFirstScreenPerRootExports(t *testing.T) {
	f := newFixture(t, "a")
	second := &registry.Screen{Phys: 0, Tags: []*registry.Tag{{Name: "x", Selected: true}, {Name: "y"}}}
	f.reg.AddScreen(second)

	_ = f.bridge.UpdateDesktops(0)
	_ = f.bridge.UpdateDesktops(1)

	if got := root32(t, f, "_NET_NUMBER_OF_DESKTOPS"); got[0] != 1 {
		t.Fatalf("expected screen 0 to own the root properties, got %v", got)
	}
}
