package wm

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/1broseidon/tagwm/internal/config"
	"github.com/1broseidon/tagwm/internal/ewmh"
	"github.com/1broseidon/tagwm/internal/hooks"
	"github.com/1broseidon/tagwm/internal/platform"
	"github.com/1broseidon/tagwm/internal/platform/platformtest"
	"github.com/1broseidon/tagwm/internal/registry"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newManager(t *testing.T, b *platformtest.Backend) *Manager {
	t.Helper()
	m, err := New(config.DefaultConfig(), b, quietLogger())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	return m
}

func mapWindow(m *Manager, b *platformtest.Backend, win platform.WindowID) {
	b.AddWindow(win, platform.WindowInfo{Geometry: platform.Rect{X: 10, Y: 10, Width: 200, Height: 100}})
	m.Dispatch(platform.MapRequestEvent{Window: win})
	m.Flush()
}

func mustRun(t *testing.T, m *Manager, line string) {
	t.Helper()
	a, err := ParseAction(line)
	if err != nil {
		t.Fatalf("parse %q: %v", line, err)
	}
	if err := m.Run(a); err != nil {
		t.Fatalf("run %q: %v", line, err)
	}
	m.Flush()
}

func TestNew_FailsWithoutAtoms(t *testing.T) {
	b := platformtest.New()
	b.FailIntern = true
	if _, err := New(nil, b, quietLogger()); !errors.Is(err, ewmh.ErrProtocolInit) {
		t.Fatalf("expected ErrProtocolInit, got %v", err)
	}
}

func TestStart_BuildsTagsAndExportsDesktops(t *testing.T) {
	b := platformtest.New()
	m := newManager(t, b)

	s, err := m.Registry().Screen(0)
	if err != nil {
		t.Fatalf("screen: %v", err)
	}
	if len(s.Tags) != config.DefaultTagCount || !s.Tags[0].Selected || s.Tags[1].Selected {
		t.Fatalf("unexpected tags on start")
	}
	p, ok := b.Prop(b.Root(0), "_NET_NUMBER_OF_DESKTOPS")
	if !ok || len(p.Data) != 4 || p.Data[0] != byte(config.DefaultTagCount) {
		t.Fatalf("expected desktop count exported, got %+v", p)
	}
	if _, ok := b.Prop(b.Root(0), "_NET_SUPPORTED"); !ok {
		t.Fatalf("expected _NET_SUPPORTED on the root window")
	}
}

func TestStart_AdoptsMappedWindows(t *testing.T) {
	b := platformtest.New()
	b.AddWindow(10, platform.WindowInfo{Mapped: true, Geometry: platform.Rect{Width: 100, Height: 100}})
	b.AddWindow(11, platform.WindowInfo{Mapped: false})
	b.AddWindow(12, platform.WindowInfo{Mapped: true, OverrideRedirect: true})
	m := newManager(t, b)

	if len(m.Registry().Clients()) != 1 {
		t.Fatalf("expected only the mapped managed window, got %d clients", len(m.Registry().Clients()))
	}
	if b.Focused != 10 {
		t.Fatalf("expected adopted window focused, got %d", b.Focused)
	}
}

func TestMapRequest_TilesAndFocuses(t *testing.T) {
	b := platformtest.New()
	m := newManager(t, b)
	mapWindow(m, b, 10)

	want := platform.Rect{X: 0, Y: 0, Width: 998, Height: 798}
	if got := b.Configured[10]; got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if b.Focused != 10 {
		t.Fatalf("expected focus on 10, got %d", b.Focused)
	}

	mapWindow(m, b, 11)
	if got := b.Configured[10]; got != (platform.Rect{X: 0, Y: 0, Width: 498, Height: 798}) {
		t.Fatalf("unexpected master geometry %+v", got)
	}
	if got := b.Configured[11]; got != (platform.Rect{X: 500, Y: 0, Width: 498, Height: 798}) {
		t.Fatalf("unexpected stack geometry %+v", got)
	}
	if b.Focused != 11 || b.Stacking[0] != 11 {
		t.Fatalf("expected newest window focused and on top, focus=%d stack=%v", b.Focused, b.Stacking)
	}
}

func TestView_BansAndIgnoresOwnUnmap(t *testing.T) {
	b := platformtest.New()
	m := newManager(t, b)
	mapWindow(m, b, 10)

	mustRun(t, m, "view 2")
	if b.Mapped[10] {
		t.Fatalf("expected window unmapped while its tag is hidden")
	}
	if b.Focused != platform.None {
		t.Fatalf("expected focus dropped, got %d", b.Focused)
	}

	root := b.Root(0)
	m.Dispatch(platform.UnmapNotifyEvent{Window: 10, Event: root})
	m.Dispatch(platform.UnmapNotifyEvent{Window: 10, Event: 10})
	m.Flush()
	if _, err := m.Registry().Lookup(10); err != nil {
		t.Fatalf("own unmap must not unmanage: %v", err)
	}

	mustRun(t, m, "view 1")
	if !b.Mapped[10] || b.Focused != 10 {
		t.Fatalf("expected window back and focused, mapped=%v focus=%d", b.Mapped[10], b.Focused)
	}
}

func TestUnmap_UnmanagesAndPromotesFocus(t *testing.T) {
	b := platformtest.New()
	m := newManager(t, b)
	mapWindow(m, b, 10)
	mapWindow(m, b, 11)

	m.Dispatch(platform.UnmapNotifyEvent{Window: 11})
	m.Flush()

	if _, err := m.Registry().Lookup(11); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected 11 unmanaged, got %v", err)
	}
	if b.Focused != 10 {
		t.Fatalf("expected focus promoted to 10, got %d", b.Focused)
	}
	if got := b.Configured[10]; got.Width != 998 {
		t.Fatalf("expected remaining client to fill the screen, got %+v", got)
	}
}

func TestUnmap_ClientCopyIsIgnored(t *testing.T) {
	b := platformtest.New()
	m := newManager(t, b)
	mapWindow(m, b, 10)

	m.Dispatch(platform.UnmapNotifyEvent{Window: 10, Event: 10})
	if _, err := m.Registry().Lookup(10); err != nil {
		t.Fatalf("copy on the client window must not unmanage: %v", err)
	}
	m.Dispatch(platform.UnmapNotifyEvent{Window: 10, Event: b.Root(0)})
	if _, err := m.Registry().Lookup(10); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected 10 unmanaged, got %v", err)
	}
}

func TestDestroy_UpdatesClientList(t *testing.T) {
	b := platformtest.New()
	m := newManager(t, b)
	mapWindow(m, b, 10)
	mapWindow(m, b, 11)

	m.Dispatch(platform.DestroyNotifyEvent{Window: 10})
	m.Flush()

	p, _ := b.Prop(b.Root(0), "_NET_CLIENT_LIST")
	if len(p.Data) != 4 || p.Data[0] != 11 {
		t.Fatalf("expected client list [11], got %v", p.Data)
	}
}

func TestConfigureRequest_UnmanagedGetsRequest(t *testing.T) {
	b := platformtest.New()
	m := newManager(t, b)
	b.AddWindow(20, platform.WindowInfo{Geometry: platform.Rect{X: 1, Y: 2, Width: 30, Height: 40}})

	m.Dispatch(platform.ConfigureRequestEvent{
		Window:   20,
		Geometry: platform.Rect{X: 100, Width: 300},
		Mask:     platform.ConfigX | platform.ConfigWidth,
	})
	want := platform.Rect{X: 100, Y: 2, Width: 300, Height: 40}
	if got := b.Configured[20]; got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestConfigureRequest_TiledClientKeepsGeometry(t *testing.T) {
	b := platformtest.New()
	m := newManager(t, b)
	mapWindow(m, b, 10)

	m.Dispatch(platform.ConfigureRequestEvent{
		Window:   10,
		Geometry: platform.Rect{X: 5, Y: 5, Width: 50, Height: 50},
		Mask:     platform.ConfigX | platform.ConfigY | platform.ConfigWidth | platform.ConfigHeight,
	})
	if got := b.Configured[10]; got.Width != 998 {
		t.Fatalf("tiled client must be told its tiled geometry, got %+v", got)
	}
}

func TestPropertyNotify_TitleAndUrgency(t *testing.T) {
	b := platformtest.New()
	m := newManager(t, b)
	mapWindow(m, b, 10)

	var fired []string
	m.Hooks().On(hooks.TitleUpdate, func(ev hooks.Event) { fired = append(fired, ev.Hook) })
	m.Hooks().On(hooks.Urgent, func(ev hooks.Event) { fired = append(fired, ev.Hook) })

	info := b.Windows[10]
	info.Name = "editor"
	info.Urgent = true
	b.Windows[10] = info

	m.Dispatch(platform.PropertyNotifyEvent{Window: 10, Name: "_NET_WM_NAME"})
	m.Dispatch(platform.PropertyNotifyEvent{Window: 10, Name: "WM_HINTS"})
	m.Dispatch(platform.PropertyNotifyEvent{Window: 10, Name: "_MOTIF_WM_HINTS"})

	c, _ := m.Registry().Lookup(10)
	if c.Name != "editor" || !c.Urgent {
		t.Fatalf("expected name and urgency updated, got %q %v", c.Name, c.Urgent)
	}
	if len(fired) != 2 || fired[0] != hooks.TitleUpdate || fired[1] != hooks.Urgent {
		t.Fatalf("unexpected hooks %v", fired)
	}
}

func TestPropertyNotify_FixedSizeFloats(t *testing.T) {
	b := platformtest.New()
	m := newManager(t, b)
	mapWindow(m, b, 10)

	info := b.Windows[10]
	info.Hints = platform.SizeHints{MinWidth: 300, MinHeight: 200, MaxWidth: 300, MaxHeight: 200}
	b.Windows[10] = info
	m.Dispatch(platform.PropertyNotifyEvent{Window: 10, Name: "WM_NORMAL_HINTS"})

	c, _ := m.Registry().Lookup(10)
	if !c.Fixed || !c.Floating {
		t.Fatalf("expected fixed-size client to float")
	}
}

func TestEnterNotify_FocusFollowsMouse(t *testing.T) {
	b := platformtest.New()
	m := newManager(t, b)
	mapWindow(m, b, 10)
	mapWindow(m, b, 11)

	var over []uint32
	m.Hooks().On(hooks.MouseOver, func(ev hooks.Event) { over = append(over, ev.Window) })

	m.Dispatch(platform.EnterNotifyEvent{Window: 10})
	m.Flush()
	if b.Focused != 10 {
		t.Fatalf("expected focus to follow the pointer, got %d", b.Focused)
	}
	if len(over) != 1 || over[0] != 10 {
		t.Fatalf("expected one mouseover for 10, got %v", over)
	}

	m.Config().FocusFollowsMouse = false
	m.Dispatch(platform.EnterNotifyEvent{Window: 11})
	m.Flush()
	if b.Focused != 10 {
		t.Fatalf("focus must stay without focus-follows-mouse, got %d", b.Focused)
	}
}

func TestClientMessage_CloseWindowKills(t *testing.T) {
	b := platformtest.New()
	m := newManager(t, b)
	mapWindow(m, b, 10)

	m.Dispatch(platform.ClientMessageEvent{Window: 10, Type: b.Atom("_NET_CLOSE_WINDOW")})
	m.Dispatch(platform.ClientMessageEvent{Window: 99, Type: b.Atom("_NET_CLOSE_WINDOW")})
	if len(b.Killed) != 1 || b.Killed[0] != 10 {
		t.Fatalf("expected only 10 killed, got %v", b.Killed)
	}
}

func TestFlush_EmitsArrangeOncePerScreen(t *testing.T) {
	b := platformtest.New()
	m := newManager(t, b)

	arranged := 0
	m.Hooks().On(hooks.Arrange, func(hooks.Event) { arranged++ })

	mapWindow(m, b, 10)
	m.Flush()
	if arranged != 1 {
		t.Fatalf("expected a single arrange, got %d", arranged)
	}
}

func TestFocus_InvisibleClientViewsItsTag(t *testing.T) {
	b := platformtest.New()
	m := newManager(t, b)
	mapWindow(m, b, 10)
	mustRun(t, m, "tag 3")

	c, _ := m.Registry().Lookup(10)
	if m.Registry().IsVisible(c) {
		t.Fatalf("expected client hidden after moving to tag 3")
	}

	m.Focus(c)
	m.Flush()
	if cur := m.Registry().CurrentTag(0); cur == nil || cur.Name != "3" {
		t.Fatalf("expected tag 3 viewed, got %+v", cur)
	}
	if b.Focused != 10 || !b.Mapped[10] {
		t.Fatalf("expected client shown and focused")
	}
}

func TestPrune_DropsVanishedClients(t *testing.T) {
	b := platformtest.New()
	m := newManager(t, b)
	mapWindow(m, b, 10)
	mapWindow(m, b, 11)

	if n := m.Prune([]platform.WindowID{10}); n != 1 {
		t.Fatalf("expected one pruned client, got %d", n)
	}
	if _, err := m.Registry().Lookup(11); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected 11 gone, got %v", err)
	}
	if _, err := m.Registry().Lookup(10); err != nil {
		t.Fatalf("expected 10 kept: %v", err)
	}
}

func TestRelease_MapsHiddenWindows(t *testing.T) {
	b := platformtest.New()
	m := newManager(t, b)
	mapWindow(m, b, 10)
	mustRun(t, m, "view 2")
	if b.Mapped[10] {
		t.Fatalf("expected 10 banned")
	}

	m.Release()
	if !b.Mapped[10] {
		t.Fatalf("expected 10 mapped on release")
	}
	if b.Focused != platform.None {
		t.Fatalf("expected focus dropped, got %d", b.Focused)
	}
}

func TestRelease_LogsFocusFailure(t *testing.T) {
	b := platformtest.New()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m, err := New(config.DefaultConfig(), b, logger)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	b.FocusErr = errors.New("connection lost")
	m.Release()
	if !strings.Contains(buf.String(), "drop focus on release failed") || !strings.Contains(buf.String(), "connection lost") {
		t.Fatalf("expected focus failure logged, got %q", buf.String())
	}
}

func twoScreenBackend() *platformtest.Backend {
	b := platformtest.New()
	b.DisplayList = []platform.Display{
		{ID: 0, Name: "left", Bounds: platform.Rect{X: 0, Y: 0, Width: 1000, Height: 800}},
		{ID: 1, Name: "right", Bounds: platform.Rect{X: 1000, Y: 0, Width: 1000, Height: 800}},
	}
	return b
}

func mapOnRight(m *Manager, b *platformtest.Backend, win platform.WindowID) {
	b.AddWindow(win, platform.WindowInfo{Geometry: platform.Rect{X: 1100, Y: 10, Width: 200, Height: 100}})
	m.Dispatch(platform.MapRequestEvent{Window: win})
	m.Flush()
}

func activeWindow(t *testing.T, b *platformtest.Backend) byte {
	t.Helper()
	p, ok := b.Prop(b.Root(0), "_NET_ACTIVE_WINDOW")
	if !ok || len(p.Data) != 4 {
		t.Fatalf("expected _NET_ACTIVE_WINDOW, got %v", p.Data)
	}
	return p.Data[0]
}

func TestActiveWindow_OnlyActiveScreenExports(t *testing.T) {
	b := twoScreenBackend()
	m := newManager(t, b)
	mapOnRight(m, b, 20)
	mapOnRight(m, b, 21)
	mapWindow(m, b, 10)
	if m.ActiveScreen() != 0 || b.Focused != 10 {
		t.Fatalf("expected 10 focused on screen 0, screen=%d focus=%d", m.ActiveScreen(), b.Focused)
	}

	m.Dispatch(platform.DestroyNotifyEvent{Window: 21})
	m.Flush()
	if b.Focused != 10 {
		t.Fatalf("expected input focus to stay on 10, got %d", b.Focused)
	}
	if got := activeWindow(t, b); got != 10 {
		t.Fatalf("inactive screen overwrote active window with %d", got)
	}

	c, err := m.Registry().Lookup(20)
	if err != nil {
		t.Fatalf("lookup 20: %v", err)
	}
	m.Focus(c)
	if m.ActiveScreen() != 1 || b.Focused != 20 {
		t.Fatalf("expected 20 focused on screen 1, screen=%d focus=%d", m.ActiveScreen(), b.Focused)
	}
	if got := activeWindow(t, b); got != 20 {
		t.Fatalf("expected active window 20, got %d", got)
	}
}
