package tiling

import (
	"github.com/1broseidon/tagwm/internal/platform"
	"github.com/1broseidon/tagwm/internal/registry"
)

// UsableArea returns the part of the screen not claimed by its status bar,
// optionally shrunk by the screen padding.
func UsableArea(screen *registry.Screen, withPadding bool) platform.Rect {
	area := screen.Geometry

	if bar := screen.Statusbar; bar != nil && bar.Size > 0 {
		switch bar.Position {
		case registry.BarTop:
			area.Y += bar.Size
			area.Height -= bar.Size
		case registry.BarBottom:
			area.Height -= bar.Size
		case registry.BarLeft:
			area.X += bar.Size
			area.Width -= bar.Size
		case registry.BarRight:
			area.Width -= bar.Size
		}
	}

	if withPadding {
		area = ApplyPadding(area, screen.Padding)
	}
	return clampArea(area)
}

// ApplyPadding shrinks r by p on every edge.
func ApplyPadding(r platform.Rect, p registry.Padding) platform.Rect {
	r.X += p.Left
	r.Y += p.Top
	r.Width -= p.Left + p.Right
	r.Height -= p.Top + p.Bottom
	return clampArea(r)
}

func clampArea(r platform.Rect) platform.Rect {
	if r.Width < 1 {
		r.Width = 1
	}
	if r.Height < 1 {
		r.Height = 1
	}
	return r
}
