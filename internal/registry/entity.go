package registry

import "github.com/1broseidon/tagwm/internal/platform"

// Layer is a stacking category. Higher layers always stack above lower
// ones regardless of recency.
type Layer int

const (
	LayerDesktop Layer = iota + 1
	LayerBelow
	LayerTile
	LayerFloat
	LayerAbove
	LayerFullscreen
	LayerModal
	LayerOutOfSpace
)

func (l Layer) String() string {
	switch l {
	case LayerDesktop:
		return "desktop"
	case LayerBelow:
		return "below"
	case LayerTile:
		return "tile"
	case LayerFloat:
		return "float"
	case LayerAbove:
		return "above"
	case LayerFullscreen:
		return "fullscreen"
	case LayerModal:
		return "modal"
	case LayerOutOfSpace:
		return "outofspace"
	default:
		return "unknown"
	}
}

// Padding reserves space at the screen edges that tiling never uses.
type Padding struct {
	Top    int
	Bottom int
	Left   int
	Right  int
}

// BarPosition says which screen edge a status bar occupies.
type BarPosition string

const (
	BarTop    BarPosition = "top"
	BarBottom BarPosition = "bottom"
	BarLeft   BarPosition = "left"
	BarRight  BarPosition = "right"
	BarOff    BarPosition = "off"
)

// Statusbar is the core's view of a bar drawn by the external drawing
// subsystem: only the space it claims matters here.
type Statusbar struct {
	Name     string
	Position BarPosition
	// Size is the bar thickness along the axis perpendicular to its edge.
	Size int
}

// Screen is a logical display region.
type Screen struct {
	Index int
	// Phys is the X screen (root window) this logical screen belongs to.
	Phys        int
	Name        string
	Geometry    platform.Rect
	Tags        []*Tag
	Statusbar   *Statusbar
	Padding     Padding
	NeedArrange bool
}

// Tag is a virtual workspace.
type Tag struct {
	Name     string
	Screen   int
	Selected bool
	Layout   string
	MWFact   float64
	NMaster  int
	NCol     int
}

// Titlebar is an optional decoration reference owned by the drawing side.
type Titlebar struct {
	Position BarPosition
	Size     int
}

// Button is a per-client mouse binding resolved by the command layer.
type Button struct {
	Modifiers uint16
	Button    int
	Action    string
}

// Client is a managed top-level window.
type Client struct {
	Window platform.WindowID
	Name   string

	Geometry       platform.Rect
	FloatGeometry  platform.Rect
	MaxGeometry    platform.Rect
	HasMaxGeometry bool

	Hints     platform.SizeHints
	Border    int
	OldBorder int

	NoBorder    bool
	Urgent      bool
	WasFloating bool
	Floating    bool
	Fixed       bool
	Maximized   bool
	Fullscreen  bool
	Sticky      bool
	Skip        bool
	Moving      bool
	Hidden      bool
	SkipTaskbar bool

	Screen int
	Phys   int

	Layer    Layer
	OldLayer Layer

	TransientFor   platform.WindowID
	SupportsDelete bool

	Titlebar *Titlebar
	Buttons  []Button
}

// Tiled reports whether the layout engine places this client.
func (c *Client) Tiled() bool {
	return !c.Floating && !c.Maximized && !c.Fullscreen && !c.Hidden
}
