package tiling

import (
	"log/slog"

	"github.com/1broseidon/tagwm/internal/platform"
	"github.com/1broseidon/tagwm/internal/registry"
)

// Placement is a computed client geometry. Geometry excludes the border.
type Placement struct {
	Client   *registry.Client
	Geometry platform.Rect
}

// Engine computes client geometries for a screen. It never talks to the
// windowing backend; callers apply the placements.
type Engine struct {
	layouts    *Layouts
	honorHints bool
	logger     *slog.Logger
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	Layouts    *Layouts
	HonorHints bool
	Logger     *slog.Logger
}

// NewEngine creates an engine. A nil layout set falls back to the defaults.
func NewEngine(cfg EngineConfig) *Engine {
	layouts := cfg.Layouts
	if layouts == nil {
		layouts = DefaultLayouts()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		layouts:    layouts,
		honorHints: cfg.HonorHints,
		logger:     logger.With("component", "tiling"),
	}
}

// Layouts returns the engine's layout set.
func (e *Engine) Layouts() *Layouts {
	return e.layouts
}

// SetHonorHints toggles size-hint clamping for tiled clients.
func (e *Engine) SetHonorHints(on bool) {
	e.honorHints = on
}

// Arrange places the visible clients of screen using the layout of its
// first selected tag. Floating clients keep their geometry and are not
// returned; maximized clients get the padded usable area and fullscreen
// clients the whole screen.
func (e *Engine) Arrange(screen *registry.Screen, clients []*registry.Client) []Placement {
	var tag *registry.Tag
	for _, t := range screen.Tags {
		if t.Selected {
			tag = t
			break
		}
	}

	var tiled []*registry.Client
	var out []Placement
	for _, c := range clients {
		switch {
		case c.Hidden:
		case c.Fullscreen:
			out = append(out, Placement{Client: c, Geometry: content(screen.Geometry, c.Border)})
		case c.Maximized:
			out = append(out, Placement{Client: c, Geometry: content(UsableArea(screen, true), c.Border)})
		case c.Floating:
		default:
			tiled = append(tiled, c)
		}
	}

	if tag == nil || len(tiled) == 0 {
		return out
	}

	layout, ok := e.layouts.Get(tag.Layout)
	if !ok {
		e.logger.Debug("unknown layout, skipping arrange", "layout", tag.Layout, "tag", tag.Name)
		return out
	}

	cells := layout.Arrange(UsableArea(screen, true), tag, tiled)
	for _, c := range tiled {
		cell, ok := cells[c]
		if !ok {
			continue
		}
		geom := content(cell, c.Border)
		if e.honorHints {
			geom = ApplySizeHints(geom, c.Hints)
		}
		out = append(out, Placement{Client: c, Geometry: geom})
	}
	return out
}

// content converts an outer cell to the client area inside its border.
func content(cell platform.Rect, border int) platform.Rect {
	cell.Width -= 2 * border
	cell.Height -= 2 * border
	return clampArea(cell)
}
