package tiling

import (
	"github.com/1broseidon/tagwm/internal/platform"
	"github.com/1broseidon/tagwm/internal/registry"
)

// Layout arranges the tiled clients of a tag within an area. The returned
// rectangles are outer cells including the client border.
type Layout interface {
	Name() string
	Arrange(area platform.Rect, tag *registry.Tag, clients []*registry.Client) map[*registry.Client]platform.Rect
}

// Layout names shipped with the engine.
const (
	LayoutTile     = "tile"
	LayoutTileLeft = "tileleft"
	LayoutMax      = "max"
	LayoutFloating = "floating"
)

// Layouts is a named, ordered set of layouts.
type Layouts struct {
	byName map[string]Layout
	order  []string
}

// DefaultLayouts returns the built-in set: tile, tileleft, max, floating.
func DefaultLayouts() *Layouts {
	l := &Layouts{byName: make(map[string]Layout)}
	l.Register(tileLayout{name: LayoutTile})
	l.Register(tileLayout{name: LayoutTileLeft, mirror: true})
	l.Register(maxLayout{})
	l.Register(floatingLayout{})
	return l
}

// Register adds or replaces a layout.
func (l *Layouts) Register(layout Layout) {
	name := layout.Name()
	if _, exists := l.byName[name]; !exists {
		l.order = append(l.order, name)
	}
	l.byName[name] = layout
}

// Get looks a layout up by name.
func (l *Layouts) Get(name string) (Layout, bool) {
	layout, ok := l.byName[name]
	return layout, ok
}

// Names returns layout names in registration order.
func (l *Layouts) Names() []string {
	return append([]string(nil), l.order...)
}

// Cycle returns the layout delta steps from current within cycle, wrapping
// around. An unknown current starts from the first entry.
func Cycle(cycle []string, current string, delta int) string {
	if len(cycle) == 0 {
		return current
	}
	idx := 0
	for i, name := range cycle {
		if name == current {
			idx = i
			break
		}
	}
	n := len(cycle)
	next := (idx + delta) % n
	if next < 0 {
		next += n
	}
	return cycle[next]
}

type tileLayout struct {
	name   string
	mirror bool
}

func (t tileLayout) Name() string { return t.name }

// Arrange places min(nmaster, n) clients in a master column of width
// area*mwfact and the rest in up to ncol columns beside it. When one side
// is empty the other spans the whole width.
func (t tileLayout) Arrange(area platform.Rect, tag *registry.Tag, clients []*registry.Client) map[*registry.Client]platform.Rect {
	n := len(clients)
	if n == 0 {
		return nil
	}

	nmaster := min(max(tag.NMaster, 0), n)
	others := n - nmaster

	masterW := 0
	switch {
	case others == 0:
		masterW = area.Width
	case nmaster > 0:
		masterW = int(float64(area.Width) * tag.MWFact)
	}
	stackW := area.Width - masterW

	masterX, stackX := area.X, area.X+masterW
	if t.mirror {
		masterX, stackX = area.X+stackW, area.X
	}

	out := make(map[*registry.Client]platform.Rect, n)

	for i := 0; i < nmaster; i++ {
		y, h := split(area.Height, nmaster, i)
		out[clients[i]] = platform.Rect{X: masterX, Y: area.Y + y, Width: masterW, Height: h}
	}

	if others == 0 {
		return out
	}

	cols := min(max(tag.NCol, 1), others)
	perCol := others / cols
	idx := nmaster
	for col := 0; col < cols; col++ {
		x, w := split(stackW, cols, col)
		count := perCol
		if col == cols-1 {
			count = others - perCol*(cols-1)
		}
		for row := 0; row < count; row++ {
			y, h := split(area.Height, count, row)
			out[clients[idx]] = platform.Rect{X: stackX + x, Y: area.Y + y, Width: w, Height: h}
			idx++
		}
	}

	return out
}

// split divides total into parts equal segments and returns the offset and
// size of segment i. The last segment absorbs the remainder.
func split(total, parts, i int) (offset, size int) {
	size = total / parts
	offset = i * size
	if i == parts-1 {
		size = total - offset
	}
	return offset, size
}

type maxLayout struct{}

func (maxLayout) Name() string { return LayoutMax }

func (maxLayout) Arrange(area platform.Rect, _ *registry.Tag, clients []*registry.Client) map[*registry.Client]platform.Rect {
	out := make(map[*registry.Client]platform.Rect, len(clients))
	for _, c := range clients {
		out[c] = area
	}
	return out
}

type floatingLayout struct{}

func (floatingLayout) Name() string { return LayoutFloating }

func (floatingLayout) Arrange(platform.Rect, *registry.Tag, []*registry.Client) map[*registry.Client]platform.Rect {
	return nil
}
