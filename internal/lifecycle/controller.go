// Package lifecycle manages, unmanages and changes the state of client
// windows.
package lifecycle

import (
	"fmt"
	"log/slog"

	"github.com/1broseidon/tagwm/internal/focus"
	"github.com/1broseidon/tagwm/internal/hooks"
	"github.com/1broseidon/tagwm/internal/platform"
	"github.com/1broseidon/tagwm/internal/registry"
	"github.com/1broseidon/tagwm/internal/tiling"
)

// Config wires a Controller.
type Config struct {
	Registry    *registry.Registry
	Focus       *focus.Manager
	Backend     platform.Backend
	Hooks       *hooks.Runner
	BorderWidth int
	HonorHints  bool
	Logger      *slog.Logger
}

// Controller owns client state transitions.
type Controller struct {
	reg        *registry.Registry
	focus      *focus.Manager
	backend    platform.Backend
	hooks      *hooks.Runner
	border     int
	honorHints bool
	logger     *slog.Logger

	wmProtocols platform.Atom
	wmDelete    platform.Atom
}

// New creates a controller.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runner := cfg.Hooks
	if runner == nil {
		runner = hooks.NewRunner(nil, logger)
	}
	return &Controller{
		reg:        cfg.Registry,
		focus:      cfg.Focus,
		backend:    cfg.Backend,
		hooks:      runner,
		border:     cfg.BorderWidth,
		honorHints: cfg.HonorHints,
		logger:     logger.With("component", "lifecycle"),
	}
}

// SetBorderWidth changes the border given to newly managed clients.
func (ctl *Controller) SetBorderWidth(w int) {
	ctl.border = w
}

// SetHonorHints toggles size-hint clamping on client-driven resizes.
func (ctl *Controller) SetHonorHints(on bool) {
	ctl.honorHints = on
}

// Manage starts managing win. Override-redirect windows are not managed
// and yield a nil client. Managing an already managed window returns it.
func (ctl *Controller) Manage(win platform.WindowID) (*registry.Client, error) {
	if c, err := ctl.reg.Lookup(win); err == nil {
		return c, nil
	}

	info, err := ctl.backend.WindowInfo(win)
	if err != nil {
		return nil, fmt.Errorf("manage %d: %w", win, err)
	}
	if info.OverrideRedirect {
		ctl.logger.Debug("not managing override-redirect window", "window", win)
		return nil, nil
	}

	c := &registry.Client{
		Window:         win,
		Name:           info.Name,
		Geometry:       info.Geometry,
		FloatGeometry:  info.Geometry,
		Hints:          info.Hints,
		Border:         ctl.border,
		OldBorder:      info.Border,
		Urgent:         info.Urgent,
		TransientFor:   info.TransientFor,
		SupportsDelete: info.SupportsDelete,
		Layer:          registry.LayerTile,
	}
	if len(ctl.reg.Screens()) == 0 {
		return nil, fmt.Errorf("manage %d: no screens", win)
	}

	var parent *registry.Client
	if info.TransientFor != platform.None {
		parent, _ = ctl.reg.Lookup(info.TransientFor)
	}
	if parent != nil {
		c.Screen = parent.Screen
	} else {
		cx, cy := info.Geometry.Center()
		c.Screen = ctl.reg.ScreenAt(cx, cy)
	}
	screen, err := ctl.reg.Screen(c.Screen)
	if err != nil {
		return nil, fmt.Errorf("manage %d: %w", win, err)
	}
	c.Phys = screen.Phys

	c.Fixed = info.Hints.Fixed()
	if c.Fixed || info.TransientFor != platform.None {
		c.Floating = true
		c.Layer = registry.LayerFloat
	}

	ctl.reg.AddClient(c)
	if parent != nil {
		for _, t := range ctl.reg.TagsOfClient(parent) {
			ctl.reg.TagClient(c, t)
		}
	} else {
		for _, t := range ctl.reg.SelectedTags(c.Screen) {
			ctl.reg.TagClient(c, t)
		}
	}
	ctl.focus.Track(c)

	if err := ctl.backend.Select(win); err != nil {
		ctl.logger.Warn("select input failed", "window", win, "error", err)
	}
	if err := ctl.backend.Configure(win, c.Geometry, c.Border); err != nil {
		ctl.logger.Warn("initial configure failed", "window", win, "error", err)
	}
	if err := ctl.backend.Map(win); err != nil {
		ctl.logger.Warn("map failed", "window", win, "error", err)
	}

	ctl.logger.Debug("managed window", "window", win, "name", c.Name, "screen", c.Screen, "floating", c.Floating)
	ctl.emit(hooks.Manage, c)
	return c, nil
}

// Unmanage stops managing c. Focus moves to the next visible client of
// its screen through the registry removal observers.
func (ctl *Controller) Unmanage(c *registry.Client) {
	if !ctl.reg.Contains(c) {
		return
	}
	ctl.emit(hooks.Unmanage, c)
	ctl.reg.RemoveClient(c)
	ctl.logger.Debug("unmanaged window", "window", c.Window)
}

// Kill asks c to close through WM_DELETE_WINDOW when it supports the
// protocol and otherwise kills its connection.
func (ctl *Controller) Kill(c *registry.Client) error {
	if !c.SupportsDelete {
		if err := ctl.backend.KillClient(c.Window); err != nil {
			return fmt.Errorf("kill %d: %w", c.Window, err)
		}
		return nil
	}
	if ctl.wmDelete == 0 {
		atoms, err := ctl.backend.InternAtoms([]string{"WM_PROTOCOLS", "WM_DELETE_WINDOW"})
		if err != nil {
			return fmt.Errorf("kill %d: %w", c.Window, err)
		}
		ctl.wmProtocols, ctl.wmDelete = atoms[0], atoms[1]
	}
	if err := ctl.backend.SendEvent(c.Window, ctl.wmProtocols, [5]uint32{uint32(ctl.wmDelete)}); err != nil {
		return fmt.Errorf("send WM_DELETE_WINDOW to %d: %w", c.Window, err)
	}
	return nil
}

// Resize moves and resizes c, clamping to its size hints when honor is
// set. Floating clients remember the result as their floating geometry.
func (ctl *Controller) Resize(c *registry.Client, geom platform.Rect, honor bool) error {
	if honor {
		geom = tiling.ApplySizeHints(geom, c.Hints)
	}
	if geom.Width < 1 || geom.Height < 1 {
		return nil
	}
	if c.Floating && !c.Maximized && !c.Fullscreen {
		c.FloatGeometry = geom
	}
	if geom == c.Geometry {
		return nil
	}
	c.Geometry = geom
	if err := ctl.backend.Configure(c.Window, geom, c.Border); err != nil {
		return fmt.Errorf("configure %d: %w", c.Window, err)
	}
	return nil
}

// SetFloating changes the floating state. Floating clients move to layer
// and get their floating geometry back; fixed-size clients always float.
func (ctl *Controller) SetFloating(c *registry.Client, on bool, layer registry.Layer) error {
	if c.Fixed {
		on = true
	}
	if c.Floating == on {
		return nil
	}
	c.Floating = on
	ctl.reg.MarkArrange(c.Screen)
	if !on {
		c.Layer = registry.LayerTile
		return nil
	}
	if layer == 0 {
		layer = registry.LayerFloat
	}
	c.Layer = layer
	return ctl.Resize(c, c.FloatGeometry, false)
}

// ToggleFloating flips the floating state.
func (ctl *Controller) ToggleFloating(c *registry.Client) error {
	return ctl.SetFloating(c, !c.Floating, registry.LayerFloat)
}

// Maximize makes c cover area, or restores its saved geometry. Setting
// the current state again is a no-op.
func (ctl *Controller) Maximize(c *registry.Client, area platform.Rect, on bool) error {
	if c.Maximized == on {
		return nil
	}
	if on {
		ctl.saveState(c)
		c.Maximized = true
		c.Layer = registry.LayerFullscreen
		ctl.focus.Raise(c)
		ctl.reg.MarkArrange(c.Screen)
		return ctl.place(c, area)
	}
	c.Maximized = false
	ctl.reg.MarkArrange(c.Screen)
	return ctl.restoreState(c)
}

// ToggleMaximize maximizes c to its screen's usable area or restores it.
func (ctl *Controller) ToggleMaximize(c *registry.Client) error {
	screen, err := ctl.reg.Screen(c.Screen)
	if err != nil {
		return err
	}
	return ctl.Maximize(c, tiling.UsableArea(screen, true), !c.Maximized)
}

// SetFullscreen makes c cover its whole screen without a border, or
// restores it.
func (ctl *Controller) SetFullscreen(c *registry.Client, on bool) error {
	if c.Fullscreen == on {
		return nil
	}
	screen, err := ctl.reg.Screen(c.Screen)
	if err != nil {
		return err
	}
	ctl.reg.MarkArrange(c.Screen)
	if on {
		ctl.saveState(c)
		c.Fullscreen = true
		c.Border = 0
		c.Layer = registry.LayerFullscreen
		ctl.focus.Raise(c)
		return ctl.place(c, screen.Geometry)
	}
	c.Fullscreen = false
	if !c.NoBorder {
		c.Border = ctl.border
	}
	return ctl.restoreState(c)
}

// saveState records the geometry and stacking state an override replaces.
// Only the first of nested overrides saves.
func (ctl *Controller) saveState(c *registry.Client) {
	if c.HasMaxGeometry {
		return
	}
	c.MaxGeometry = c.Geometry
	c.HasMaxGeometry = true
	c.WasFloating = c.Floating
	c.OldLayer = c.Layer
}

// restoreState undoes saveState once no override remains active.
func (ctl *Controller) restoreState(c *registry.Client) error {
	if c.Maximized || c.Fullscreen {
		return nil
	}
	if !c.HasMaxGeometry {
		return nil
	}
	c.HasMaxGeometry = false
	c.Floating = c.WasFloating
	c.Layer = c.OldLayer
	c.Geometry = c.MaxGeometry
	if err := ctl.backend.Configure(c.Window, c.Geometry, c.Border); err != nil {
		return fmt.Errorf("configure %d: %w", c.Window, err)
	}
	return nil
}

// place applies an override rectangle given as outer bounds.
func (ctl *Controller) place(c *registry.Client, outer platform.Rect) error {
	geom := outer
	geom.Width = max(geom.Width-2*c.Border, 1)
	geom.Height = max(geom.Height-2*c.Border, 1)
	c.Geometry = geom
	if err := ctl.backend.Configure(c.Window, geom, c.Border); err != nil {
		return fmt.Errorf("configure %d: %w", c.Window, err)
	}
	return nil
}

// SetUrgent updates the urgency flag and emits urgent when it changes.
func (ctl *Controller) SetUrgent(c *registry.Client, on bool) {
	if c.Urgent == on {
		return
	}
	c.Urgent = on
	ctl.emit(hooks.Urgent, c)
}

// SetHidden minimizes or restores c. Hiding the focused client passes
// focus on.
func (ctl *Controller) SetHidden(c *registry.Client, on bool) {
	if c.Hidden == on {
		return
	}
	c.Hidden = on
	if on {
		ctl.focus.UnfocusIfCurrent(c)
	}
	ctl.reg.MarkArrange(c.Screen)
}

// SetName records a new title and emits titleupdate when it changes.
func (ctl *Controller) SetName(c *registry.Client, name string) {
	if c.Name == name {
		return
	}
	c.Name = name
	ctl.emit(hooks.TitleUpdate, c)
}

// Configure answers a client's ConfigureRequest. Floating clients get the
// requested geometry; everyone else is told their current one.
func (ctl *Controller) Configure(c *registry.Client, req platform.ConfigureRequestEvent) error {
	if !c.Floating || c.Maximized || c.Fullscreen {
		if err := ctl.backend.Configure(c.Window, c.Geometry, c.Border); err != nil {
			return fmt.Errorf("configure %d: %w", c.Window, err)
		}
		return nil
	}

	geom := c.Geometry
	if req.Mask&platform.ConfigX != 0 {
		geom.X = req.Geometry.X
	}
	if req.Mask&platform.ConfigY != 0 {
		geom.Y = req.Geometry.Y
	}
	if req.Mask&platform.ConfigWidth != 0 {
		geom.Width = req.Geometry.Width
	}
	if req.Mask&platform.ConfigHeight != 0 {
		geom.Height = req.Geometry.Height
	}
	return ctl.Resize(c, geom, ctl.honorHints)
}

func (ctl *Controller) emit(name string, c *registry.Client) {
	ev := hooks.Event{Window: uint32(c.Window), Screen: c.Screen}
	if t := ctl.reg.CurrentTag(c.Screen); t != nil {
		ev.Tag = t.Name
	}
	ctl.hooks.Emit(name, ev)
}
