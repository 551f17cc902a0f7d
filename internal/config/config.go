package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/tagwm/internal/hooks"
	"github.com/1broseidon/tagwm/internal/tiling"
)

// Padding reserves space at the screen edges that tiling never uses.
type Padding struct {
	Top    int `yaml:"top"`
	Bottom int `yaml:"bottom"`
	Left   int `yaml:"left"`
	Right  int `yaml:"right"`
}

// Statusbar is the space claimed by an external status bar.
type Statusbar struct {
	Name     string `yaml:"name,omitempty"`
	Position string `yaml:"position"` // top, bottom, left, right or off
	Size     int    `yaml:"size"`
}

// Tag configures one virtual workspace.
type Tag struct {
	Name    string  `yaml:"name"`
	Layout  string  `yaml:"layout"`
	MWFact  float64 `yaml:"mwfact"`
	NMaster int     `yaml:"nmaster"`
	NCol    int     `yaml:"ncol"`
}

// DefaultTag returns a tag with the default layout parameters.
func DefaultTag(name string) Tag {
	return Tag{Name: name, Layout: tiling.LayoutTile, MWFact: 0.5, NMaster: 1, NCol: 1}
}

// UnmarshalYAML starts from DefaultTag so entries may set only a name.
func (t *Tag) UnmarshalYAML(value *yaml.Node) error {
	type plain Tag
	p := plain(DefaultTag(""))
	if err := value.Decode(&p); err != nil {
		return err
	}
	*t = Tag(p)
	return nil
}

// Screen configures one logical screen by index.
type Screen struct {
	Padding   Padding   `yaml:"padding"`
	Statusbar Statusbar `yaml:"statusbar"`
	Tags      []Tag     `yaml:"tags,omitempty"`
}

// Config holds the application configuration.
type Config struct {
	LogLevel          string `yaml:"log_level"`
	Display           string `yaml:"display,omitempty"`
	XAuthority        string `yaml:"xauthority,omitempty"`
	BorderWidth       int    `yaml:"border_width"`
	FocusFollowsMouse bool   `yaml:"focus_follows_mouse"`
	HonorSizeHints    bool   `yaml:"honor_size_hints"`
	DesktopNamesLimit int    `yaml:"desktop_names_limit"`
	// TimerInterval is the timer hook period in seconds; 0 disables it.
	TimerInterval int `yaml:"timer_interval"`
	// Layouts is the cycle order used by "layout next" and "layout prev".
	Layouts     []string          `yaml:"layouts"`
	DefaultTags []Tag             `yaml:"default_tags"`
	Screens     []Screen          `yaml:"screens,omitempty"`
	Keys        map[string]string `yaml:"keys"`
	Hooks       map[string]string `yaml:"hooks,omitempty"`
}

// DefaultTagCount is the number of tags created when none are configured.
const DefaultTagCount = 9

func DefaultConfig() *Config {
	tags := make([]Tag, DefaultTagCount)
	for i := range tags {
		tags[i] = DefaultTag(strconv.Itoa(i + 1))
	}

	keys := map[string]string{
		"Mod4-j":             "focus next",
		"Mod4-k":             "focus prev",
		"Mod4-h":             "mwfact -0.05",
		"Mod4-l":             "mwfact +0.05",
		"Mod4-Shift-h":       "nmaster +1",
		"Mod4-Shift-l":       "nmaster -1",
		"Mod4-Control-h":     "ncol +1",
		"Mod4-Control-l":     "ncol -1",
		"Mod4-space":         "layout next",
		"Mod4-Shift-space":   "layout prev",
		"Mod4-Control-space": "floating",
		"Mod4-m":             "maximize",
		"Mod4-f":             "fullscreen",
		"Mod4-n":             "minimize",
		"Mod4-Shift-c":       "kill",
	}
	for i := 1; i <= DefaultTagCount; i++ {
		n := strconv.Itoa(i)
		keys["Mod4-"+n] = "view " + n
		keys["Mod4-Control-"+n] = "toggleview " + n
		keys["Mod4-Shift-"+n] = "tag " + n
		keys["Mod4-Shift-Control-"+n] = "toggletag " + n
	}

	return &Config{
		LogLevel:          "info",
		BorderWidth:       1,
		FocusFollowsMouse: true,
		HonorSizeHints:    true,
		DesktopNamesLimit: 4096,
		TimerInterval:     0,
		Layouts:           []string{tiling.LayoutTile, tiling.LayoutTileLeft, tiling.LayoutMax, tiling.LayoutFloating},
		DefaultTags:       tags,
		Keys:              keys,
		Hooks:             map[string]string{},
	}
}

// ScreenConfig returns the settings for logical screen i. Screens without
// their own entry, or without tags, use the default tags.
func (c *Config) ScreenConfig(i int) Screen {
	var s Screen
	if i >= 0 && i < len(c.Screens) {
		s = c.Screens[i]
	}
	if len(s.Tags) == 0 {
		s.Tags = c.DefaultTags
	}
	return s
}

// SlogLevel maps log_level onto a slog level. Unknown names mean info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.BorderWidth < 0 {
		return &ValidationError{Path: "border_width", Err: fmt.Errorf("border_width must be >= 0")}
	}
	if c.DesktopNamesLimit < 0 {
		return &ValidationError{Path: "desktop_names_limit", Err: fmt.Errorf("desktop_names_limit must be >= 0")}
	}
	if c.TimerInterval < 0 {
		return &ValidationError{Path: "timer_interval", Err: fmt.Errorf("timer_interval must be >= 0")}
	}

	known := tiling.DefaultLayouts()
	if len(c.Layouts) == 0 {
		return &ValidationError{Path: "layouts", Err: fmt.Errorf("layouts must not be empty")}
	}
	for _, name := range c.Layouts {
		if _, ok := known.Get(name); !ok {
			return &ValidationError{Path: "layouts", Err: fmt.Errorf("unknown layout %q (known: %s)", name, strings.Join(known.Names(), ", "))}
		}
	}

	if err := validateTags("default_tags", c.DefaultTags, known); err != nil {
		return err
	}
	for i, s := range c.Screens {
		prefix := fmt.Sprintf("screens.%d", i)
		if err := validateScreen(prefix, s); err != nil {
			return err
		}
		if len(s.Tags) > 0 {
			if err := validateTags(prefix+".tags", s.Tags, known); err != nil {
				return err
			}
		}
	}

	for combo, action := range c.Keys {
		if strings.TrimSpace(combo) == "" {
			return &ValidationError{Path: "keys", Err: fmt.Errorf("keys contains an empty key combination")}
		}
		if strings.TrimSpace(action) == "" {
			return &ValidationError{Path: "keys." + combo, Err: fmt.Errorf("action must not be empty")}
		}
	}
	for name, cmd := range c.Hooks {
		if !hooks.IsKnown(name) {
			return &ValidationError{Path: "hooks." + name, Err: fmt.Errorf("unknown hook (known: %s)", strings.Join(hooks.Names(), ", "))}
		}
		if strings.TrimSpace(cmd) == "" {
			return &ValidationError{Path: "hooks." + name, Err: fmt.Errorf("hook command must not be empty")}
		}
	}
	return nil
}

func validateScreen(prefix string, s Screen) error {
	p := s.Padding
	if p.Top < 0 || p.Bottom < 0 || p.Left < 0 || p.Right < 0 {
		return &ValidationError{Path: prefix + ".padding", Err: fmt.Errorf("padding values must be >= 0")}
	}
	switch s.Statusbar.Position {
	case "", "top", "bottom", "left", "right", "off":
	default:
		return &ValidationError{Path: prefix + ".statusbar.position", Err: fmt.Errorf("position must be one of: top, bottom, left, right, off")}
	}
	if s.Statusbar.Size < 0 {
		return &ValidationError{Path: prefix + ".statusbar.size", Err: fmt.Errorf("size must be >= 0")}
	}
	return nil
}

func validateTags(path string, tags []Tag, known *tiling.Layouts) error {
	if len(tags) == 0 {
		return &ValidationError{Path: path, Err: fmt.Errorf("at least one tag is required")}
	}
	seen := make(map[string]struct{}, len(tags))
	for i, t := range tags {
		p := fmt.Sprintf("%s.%d", path, i)
		if strings.TrimSpace(t.Name) == "" {
			return &ValidationError{Path: p + ".name", Err: fmt.Errorf("tag name must not be empty")}
		}
		if _, dup := seen[t.Name]; dup {
			return &ValidationError{Path: p + ".name", Err: fmt.Errorf("duplicate tag name %q", t.Name)}
		}
		seen[t.Name] = struct{}{}
		if _, ok := known.Get(t.Layout); !ok {
			return &ValidationError{Path: p + ".layout", Err: fmt.Errorf("unknown layout %q", t.Layout)}
		}
		if t.MWFact <= 0 || t.MWFact >= 1 {
			return &ValidationError{Path: p + ".mwfact", Err: fmt.Errorf("mwfact must be between 0 and 1 (exclusive)")}
		}
		if t.NMaster < 0 {
			return &ValidationError{Path: p + ".nmaster", Err: fmt.Errorf("nmaster must be >= 0")}
		}
		if t.NCol < 1 {
			return &ValidationError{Path: p + ".ncol", Err: fmt.Errorf("ncol must be >= 1")}
		}
	}
	return nil
}
