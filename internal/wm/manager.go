// Package wm is the window manager's application context. It owns the
// registry and every component operating on it, translates windowing
// events into state changes and pushes the resulting state back to the
// windowing layer once per loop iteration.
package wm

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/1broseidon/tagwm/internal/config"
	"github.com/1broseidon/tagwm/internal/ewmh"
	"github.com/1broseidon/tagwm/internal/focus"
	"github.com/1broseidon/tagwm/internal/hooks"
	"github.com/1broseidon/tagwm/internal/lifecycle"
	"github.com/1broseidon/tagwm/internal/platform"
	"github.com/1broseidon/tagwm/internal/registry"
	"github.com/1broseidon/tagwm/internal/tiling"
)

// Manager is the explicitly passed application context. It is not safe
// for concurrent use: every method must run on the event loop goroutine.
type Manager struct {
	cfg     *config.Config
	backend platform.Backend
	logger  *slog.Logger

	reg    *registry.Registry
	focus  *focus.Manager
	engine *tiling.Engine
	bridge *ewmh.Bridge
	ctl    *lifecycle.Controller
	hooks  *hooks.Runner

	// banned windows were unmapped because none of their tags is shown.
	banned map[platform.WindowID]bool
	// ignoreUnmap counts UnmapNotify events caused by banning.
	ignoreUnmap map[platform.WindowID]int
	// applied is the client whose focus was last pushed to the backend.
	applied map[int]*registry.Client

	activeScreen int
	needRestack  bool
	started      time.Time
}

// New wires a manager over backend. It fails with ewmh.ErrProtocolInit
// when the protocol atoms cannot be resolved.
func New(cfg *config.Config, backend platform.Backend, logger *slog.Logger) (*Manager, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	atoms, err := ewmh.ResolveAtoms(backend)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	fm := focus.New(reg)
	runner := hooks.NewRunner(cfg.Hooks, logger)
	engine := tiling.NewEngine(tiling.EngineConfig{
		Layouts:    tiling.DefaultLayouts(),
		HonorHints: cfg.HonorSizeHints,
		Logger:     logger,
	})
	ctl := lifecycle.New(lifecycle.Config{
		Registry:    reg,
		Focus:       fm,
		Backend:     backend,
		Hooks:       runner,
		BorderWidth: cfg.BorderWidth,
		HonorHints:  cfg.HonorSizeHints,
		Logger:      logger,
	})
	bridge := ewmh.New(ewmh.Config{
		Atoms:             atoms,
		Store:             backend,
		Registry:          reg,
		Focus:             fm,
		Controller:        ctl,
		DesktopNamesLimit: cfg.DesktopNamesLimit,
		Logger:            logger,
	})

	m := &Manager{
		cfg:         cfg,
		backend:     backend,
		logger:      logger.With("component", "wm"),
		reg:         reg,
		focus:       fm,
		engine:      engine,
		bridge:      bridge,
		ctl:         ctl,
		hooks:       runner,
		banned:      make(map[platform.WindowID]bool),
		ignoreUnmap: make(map[platform.WindowID]int),
		applied:     make(map[int]*registry.Client),
		started:     time.Now(),
	}
	reg.OnRemove(m.forget)
	return m, nil
}

// Registry exposes the entity registry.
func (m *Manager) Registry() *registry.Registry { return m.reg }

// Hooks exposes the hook runner so callers can register callbacks.
func (m *Manager) Hooks() *hooks.Runner { return m.hooks }

// Config returns the active configuration.
func (m *Manager) Config() *config.Config { return m.cfg }

// ActiveScreen returns the screen actions apply to.
func (m *Manager) ActiveScreen() int { return m.activeScreen }

// Start builds the screens and their tags, advertises protocol support,
// adopts already mapped windows and exports the desktop state.
func (m *Manager) Start() error {
	displays, err := m.backend.Displays()
	if err != nil {
		return fmt.Errorf("enumerate displays: %w", err)
	}
	if len(displays) == 0 {
		return errors.New("no displays found")
	}

	phys := make(map[int]bool)
	for i, d := range displays {
		m.reg.AddScreen(m.buildScreen(i, d))
		if phys[d.Phys] {
			continue
		}
		phys[d.Phys] = true
		if err := m.bridge.SetSupportedHints(d.Phys); err != nil {
			return fmt.Errorf("set supported hints on screen %d: %w", d.Phys, err)
		}
	}

	if err := m.adopt(); err != nil {
		m.logger.Warn("adopting existing windows failed", "error", err)
	}

	for _, s := range m.reg.Screens() {
		if err := m.bridge.UpdateDesktops(s.Index); err != nil {
			m.logger.Warn("export desktops failed", "screen", s.Index, "error", err)
		}
		s.NeedArrange = true
	}
	for p := range phys {
		m.updateClientList(p)
	}
	m.Flush()

	m.logger.Info("window manager started", "screens", len(displays), "clients", len(m.reg.Clients()))
	return nil
}

func (m *Manager) buildScreen(i int, d platform.Display) *registry.Screen {
	sc := m.cfg.ScreenConfig(i)
	s := &registry.Screen{
		Phys:     d.Phys,
		Name:     d.Name,
		Geometry: d.Bounds,
		Padding:  registry.Padding(sc.Padding),
	}
	if pos := sc.Statusbar.Position; pos != "" && pos != string(registry.BarOff) && sc.Statusbar.Size > 0 {
		s.Statusbar = &registry.Statusbar{
			Name:     sc.Statusbar.Name,
			Position: registry.BarPosition(pos),
			Size:     sc.Statusbar.Size,
		}
	}
	for j, t := range sc.Tags {
		s.Tags = append(s.Tags, newTag(t, j == 0))
	}
	return s
}

func newTag(t config.Tag, selected bool) *registry.Tag {
	return &registry.Tag{
		Name:     t.Name,
		Selected: selected,
		Layout:   t.Layout,
		MWFact:   t.MWFact,
		NMaster:  t.NMaster,
		NCol:     t.NCol,
	}
}

// adopt manages windows that were mapped before the manager started.
// Transient windows go last so their parents are already known.
func (m *Manager) adopt() error {
	wins, err := m.backend.TopLevelWindows()
	if err != nil {
		return fmt.Errorf("list top-level windows: %w", err)
	}
	var transients []platform.WindowID
	for _, win := range wins {
		info, err := m.backend.WindowInfo(win)
		if err != nil {
			m.logger.Debug("skipping unreadable window", "window", win, "error", err)
			continue
		}
		if info.OverrideRedirect || !info.Mapped {
			continue
		}
		if info.TransientFor != platform.None {
			transients = append(transients, win)
			continue
		}
		m.manage(win)
	}
	for _, win := range transients {
		m.manage(win)
	}
	return nil
}

// manage brings win under management and focuses it when it is shown.
func (m *Manager) manage(win platform.WindowID) *registry.Client {
	c, err := m.ctl.Manage(win)
	if err != nil {
		m.logger.Warn("manage failed", "window", win, "error", err)
		return nil
	}
	if c == nil {
		return nil
	}
	if err := m.bridge.CheckClientHints(c); err != nil {
		m.logger.Debug("initial window state not applied", "window", win, "error", err)
	}
	m.updateClientList(c.Phys)
	if m.reg.IsVisible(c) {
		m.Focus(c)
	}
	m.reg.MarkArrange(c.Screen)
	return c
}

func (m *Manager) unmanage(c *registry.Client) {
	m.ctl.Unmanage(c)
	m.updateClientList(c.Phys)
}

// forget drops per-window bookkeeping once a client leaves the registry.
func (m *Manager) forget(c *registry.Client) {
	m.focus.Remove(c)
	delete(m.banned, c.Window)
	delete(m.ignoreUnmap, c.Window)
	if m.applied[c.Screen] == c {
		delete(m.applied, c.Screen)
	}
	m.needRestack = true
}

func (m *Manager) updateClientList(phys int) {
	if err := m.bridge.UpdateClientList(phys); err != nil {
		m.logger.Warn("export client list failed", "phys", phys, "error", err)
	}
}

// Focus gives c the input focus. A client hidden by the current tag
// selection brings its first tag into view.
func (m *Manager) Focus(c *registry.Client) {
	if c == nil || !m.reg.Contains(c) {
		return
	}
	if !m.reg.IsVisible(c) && !c.Hidden {
		if tags := m.reg.TagsOfClient(c); len(tags) > 0 {
			m.reg.ViewOnly(tags[0])
		}
	}
	switched := m.activeScreen != c.Screen
	m.activeScreen = c.Screen
	m.focus.Focus(c)
	m.needRestack = true
	if switched && m.applied[c.Screen] == c {
		m.pushFocus(c.Screen)
		return
	}
	m.applyFocus(c.Screen)
}

// applyFocus records the focused client of screen and emits unfocus and
// focus hooks on change. Only the active screen gets the input focus.
func (m *Manager) applyFocus(screen int) {
	sel := m.focus.Selected(screen)
	prev := m.applied[screen]
	if sel == prev {
		return
	}
	if prev != nil && m.reg.Contains(prev) {
		m.emit(hooks.Unfocus, prev)
	}

	if sel != nil {
		m.applied[screen] = sel
	} else {
		delete(m.applied, screen)
	}
	if screen == m.activeScreen {
		m.pushFocus(screen)
	}
	if sel != nil {
		m.emit(hooks.Focus, sel)
	}
}

// pushFocus gives the input focus to the selection of screen and publishes
// it as the active window. Screens share a root, so only the active one
// may write it.
func (m *Manager) pushFocus(screen int) {
	target := platform.None
	if sel := m.focus.Selected(screen); sel != nil {
		target = sel.Window
	}
	if err := m.backend.Focus(target); err != nil {
		m.logger.Warn("focus failed", "window", target, "error", err)
	}
	if err := m.bridge.UpdateActiveWindow(screen); err != nil {
		m.logger.Warn("export active window failed", "screen", screen, "error", err)
	}
}

// Flush pushes pending model changes to the windowing layer: each screen
// flagged for arrangement is arranged exactly once, then stacking and
// focus are brought up to date.
func (m *Manager) Flush() {
	for _, s := range m.reg.Screens() {
		if !s.NeedArrange {
			continue
		}
		s.NeedArrange = false
		m.arrange(s)
	}
	for _, s := range m.reg.Screens() {
		m.syncFocus(s.Index)
	}
	if m.needRestack {
		m.restack()
	}
}

func (m *Manager) arrange(s *registry.Screen) {
	for _, c := range m.reg.ClientsOnScreen(s.Index) {
		if m.reg.IsVisible(c) {
			m.unban(c)
		} else {
			m.ban(c)
		}
	}

	for _, p := range m.engine.Arrange(s, m.reg.VisibleClients(s.Index)) {
		if err := m.ctl.Resize(p.Client, p.Geometry, false); err != nil {
			m.logger.Warn("apply geometry failed", "window", p.Client.Window, "error", err)
		}
	}

	if err := m.bridge.UpdateDesktops(s.Index); err != nil {
		m.logger.Warn("export desktops failed", "screen", s.Index, "error", err)
	}
	ev := hooks.Event{Screen: s.Index}
	if t := m.reg.CurrentTag(s.Index); t != nil {
		ev.Tag = t.Name
	}
	m.hooks.Emit(hooks.Arrange, ev)
	m.needRestack = true
}

func (m *Manager) ban(c *registry.Client) {
	if m.banned[c.Window] {
		return
	}
	m.banned[c.Window] = true
	m.ignoreUnmap[c.Window]++
	if err := m.backend.Unmap(c.Window); err != nil {
		m.ignoreUnmap[c.Window]--
		m.logger.Warn("unmap failed", "window", c.Window, "error", err)
	}
}

func (m *Manager) unban(c *registry.Client) {
	if !m.banned[c.Window] {
		return
	}
	delete(m.banned, c.Window)
	if err := m.backend.Map(c.Window); err != nil {
		m.logger.Warn("map failed", "window", c.Window, "error", err)
	}
}

func (m *Manager) restack() {
	m.needRestack = false
	order := m.focus.StackOrder()
	wins := make([]platform.WindowID, 0, len(order))
	for _, c := range order {
		if !m.banned[c.Window] && !c.Hidden {
			wins = append(wins, c.Window)
		}
	}
	if err := m.backend.Restack(wins); err != nil {
		m.logger.Warn("restack failed", "error", err)
	}
}

// syncFocus moves focus off a client that is no longer shown and pushes
// promotions made by the focus manager.
func (m *Manager) syncFocus(screen int) {
	sel := m.focus.Selected(screen)
	if sel != nil && !m.reg.IsVisible(sel) {
		sel = m.focus.UnfocusIfCurrent(sel)
	}
	if sel == nil {
		if c := m.focus.Next(screen, 0); c != nil {
			m.focus.Focus(c)
		}
	}
	m.applyFocus(screen)
}

// Reload swaps in a new configuration. Screens and tags already built are
// kept; hook commands, borders and focus behavior change immediately.
func (m *Manager) Reload(cfg *config.Config) {
	m.cfg = cfg
	m.hooks.SetCommands(cfg.Hooks)
	m.ctl.SetBorderWidth(cfg.BorderWidth)
	m.ctl.SetHonorHints(cfg.HonorSizeHints)
	m.engine.SetHonorHints(cfg.HonorSizeHints)
	for _, s := range m.reg.Screens() {
		s.NeedArrange = true
	}
	m.logger.Info("configuration reloaded")
}

// Tick emits the timer hook.
func (m *Manager) Tick() {
	m.hooks.Emit(hooks.Timer, hooks.Event{Screen: -1})
}

func (m *Manager) emit(name string, c *registry.Client) {
	ev := hooks.Event{Window: uint32(c.Window), Screen: c.Screen}
	if t := m.reg.CurrentTag(c.Screen); t != nil {
		ev.Tag = t.Name
	}
	m.hooks.Emit(name, ev)
}

// Prune unmanages clients whose windows are absent from existing. It
// catches windows destroyed while their events were lost.
func (m *Manager) Prune(existing []platform.WindowID) int {
	alive := make(map[platform.WindowID]bool, len(existing))
	for _, w := range existing {
		alive[w] = true
	}
	n := 0
	for _, c := range slices.Clone(m.reg.Clients()) {
		if alive[c.Window] {
			continue
		}
		m.logger.Debug("pruning vanished client", "window", c.Window)
		m.unmanage(c)
		n++
	}
	return n
}

// Release maps every window the manager hid and drops the input focus, so
// clients stay usable after the manager exits.
func (m *Manager) Release() {
	for _, c := range m.reg.Clients() {
		if m.banned[c.Window] || c.Hidden {
			if err := m.backend.Map(c.Window); err != nil {
				m.logger.Debug("map on release failed", "window", c.Window, "error", err)
			}
		}
	}
	if err := m.backend.Focus(platform.None); err != nil {
		m.logger.Debug("drop focus on release failed", "error", err)
	}
}
