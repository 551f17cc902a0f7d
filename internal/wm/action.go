package wm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/1broseidon/tagwm/internal/config"
	"github.com/1broseidon/tagwm/internal/registry"
	"github.com/1broseidon/tagwm/internal/tiling"
)

// ErrUnknownAction is returned for action names Run does not implement.
var ErrUnknownAction = errors.New("unknown action")

// mwfact bounds for the master area share.
const (
	minMWFact = 0.05
	maxMWFact = 0.95
)

// Action is a parsed user command such as "view 2" or "mwfact +0.05".
type Action struct {
	Name string
	Args []string
}

// ParseAction splits a command line into an action name and arguments.
func ParseAction(s string) (Action, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Action{}, errors.New("empty action")
	}
	return Action{Name: strings.ToLower(fields[0]), Args: fields[1:]}, nil
}

func (a Action) String() string {
	return strings.TrimSpace(a.Name + " " + strings.Join(a.Args, " "))
}

func (a Action) arg(i int) string {
	if i < len(a.Args) {
		return a.Args[i]
	}
	return ""
}

// ActionNames lists the actions Run understands.
func ActionNames() []string {
	return []string{
		"view", "toggleview", "tag", "toggletag", "addtag", "deltag",
		"focus", "raise", "lower", "floating", "maximize", "fullscreen",
		"minimize", "restore", "kill", "layout", "mwfact", "nmaster", "ncol",
	}
}

// RunString parses line and runs it.
func (m *Manager) RunString(line string) error {
	a, err := ParseAction(line)
	if err != nil {
		return err
	}
	return m.Run(a)
}

// LayoutNames lists every registered layout.
func (m *Manager) LayoutNames() []string {
	return m.engine.Layouts().Names()
}

// CurrentLayout is the layout of the active screen's current tag.
func (m *Manager) CurrentLayout() string {
	if t := m.reg.CurrentTag(m.activeScreen); t != nil {
		return t.Layout
	}
	return ""
}

// Run executes an action against the active screen. Actions that need a
// focused client are no-ops when nothing is focused.
func (m *Manager) Run(a Action) error {
	screen := m.activeScreen
	sel := m.focus.Selected(screen)

	switch a.Name {
	case "view", "toggleview":
		t, err := m.tagArg(screen, a.arg(0))
		if err != nil {
			return err
		}
		if a.Name == "view" {
			m.reg.ViewOnly(t)
		} else {
			m.reg.ToggleView(t)
		}
		return nil

	case "tag", "toggletag":
		t, err := m.tagArg(screen, a.arg(0))
		if err != nil || sel == nil {
			return err
		}
		if a.Name == "tag" {
			m.retag(sel, t)
		} else {
			m.toggleTag(sel, t)
		}
		return nil

	case "addtag":
		name := a.arg(0)
		if name == "" {
			return errors.New("addtag: tag name required")
		}
		return m.reg.AddTag(screen, newTag(config.DefaultTag(name), false))

	case "deltag":
		t, err := m.tagArg(screen, a.arg(0))
		if err != nil {
			return err
		}
		orphans := m.reg.ClientsOfTag(t)
		if err := m.reg.RemoveTag(t); err != nil {
			return err
		}
		if cur := m.reg.CurrentTag(screen); cur != nil {
			for _, c := range orphans {
				if len(m.reg.TagsOfClient(c)) == 0 {
					m.reg.TagClient(c, cur)
				}
			}
		}
		return nil

	case "focus":
		dir, err := direction(a.arg(0))
		if err != nil {
			return err
		}
		m.Focus(m.focus.Next(screen, dir))
		return nil
	}

	if handled, err := m.runLayout(screen, a); handled {
		return err
	}

	switch a.Name {
	case "restore":
		for _, c := range m.focus.History() {
			if c.Screen == screen && c.Hidden {
				m.ctl.SetHidden(c, false)
				m.Focus(c)
				break
			}
		}
		return nil
	case "raise", "lower", "floating", "maximize", "fullscreen", "minimize", "kill":
	default:
		return fmt.Errorf("%q: %w", a.Name, ErrUnknownAction)
	}

	if sel == nil {
		return nil
	}
	switch a.Name {
	case "raise":
		m.focus.Raise(sel)
		m.needRestack = true
	case "lower":
		m.focus.Lower(sel)
		m.needRestack = true
	case "floating":
		return m.ctl.ToggleFloating(sel)
	case "maximize":
		return m.ctl.ToggleMaximize(sel)
	case "fullscreen":
		if err := m.ctl.SetFullscreen(sel, !sel.Fullscreen); err != nil {
			return err
		}
		return m.bridge.UpdateClientState(sel)
	case "minimize":
		m.ctl.SetHidden(sel, true)
	case "kill":
		return m.ctl.Kill(sel)
	}
	return nil
}

// runLayout handles the per-tag layout parameter actions.
func (m *Manager) runLayout(screen int, a Action) (bool, error) {
	switch a.Name {
	case "layout", "mwfact", "nmaster", "ncol":
	default:
		return false, nil
	}
	t := m.reg.CurrentTag(screen)
	if t == nil {
		return true, nil
	}

	switch a.Name {
	case "layout":
		switch arg := a.arg(0); arg {
		case "", "next":
			t.Layout = tiling.Cycle(m.cfg.Layouts, t.Layout, 1)
		case "prev":
			t.Layout = tiling.Cycle(m.cfg.Layouts, t.Layout, -1)
		default:
			if _, ok := m.engine.Layouts().Get(arg); !ok {
				return true, fmt.Errorf("unknown layout %q", arg)
			}
			t.Layout = arg
		}
	case "mwfact":
		v, rel, err := parseNumber(a.arg(0), strconv.ParseFloat)
		if err != nil {
			return true, fmt.Errorf("mwfact: %w", err)
		}
		if rel {
			v += t.MWFact
		}
		t.MWFact = min(max(v, minMWFact), maxMWFact)
	case "nmaster":
		v, rel, err := parseNumber(a.arg(0), parseInt)
		if err != nil {
			return true, fmt.Errorf("nmaster: %w", err)
		}
		if rel {
			v += t.NMaster
		}
		t.NMaster = max(v, 0)
	case "ncol":
		v, rel, err := parseNumber(a.arg(0), parseInt)
		if err != nil {
			return true, fmt.Errorf("ncol: %w", err)
		}
		if rel {
			v += t.NCol
		}
		t.NCol = max(v, 1)
	}
	m.reg.MarkArrange(screen)
	return true, nil
}

// retag moves c onto t alone.
func (m *Manager) retag(c *registry.Client, t *registry.Tag) {
	for _, old := range m.reg.TagsOfClient(c) {
		if old != t {
			m.reg.UntagClient(c, old)
		}
	}
	m.reg.TagClient(c, t)
}

// toggleTag flips c's membership in t. A client always keeps one tag.
func (m *Manager) toggleTag(c *registry.Client, t *registry.Tag) {
	if !m.reg.IsTagged(c, t) {
		m.reg.TagClient(c, t)
		return
	}
	if len(m.reg.TagsOfClient(c)) > 1 {
		m.reg.UntagClient(c, t)
	}
}

// tagArg resolves a tag by name, then by 1-based position.
func (m *Manager) tagArg(screen int, arg string) (*registry.Tag, error) {
	if arg == "" {
		return nil, errors.New("tag argument required")
	}
	if t := m.reg.FindTag(screen, arg); t != nil {
		return t, nil
	}
	s, err := m.reg.Screen(screen)
	if err != nil {
		return nil, err
	}
	if i, err := strconv.Atoi(arg); err == nil && i >= 1 && i <= len(s.Tags) {
		return s.Tags[i-1], nil
	}
	return nil, fmt.Errorf("no tag %q on screen %d", arg, screen)
}

func direction(arg string) (int, error) {
	switch arg {
	case "", "next":
		return 1, nil
	case "prev":
		return -1, nil
	}
	return 0, fmt.Errorf("focus: expected next or prev, got %q", arg)
}

func parseInt(s string, _ int) (int, error) {
	return strconv.Atoi(s)
}

// parseNumber parses an absolute value or, with a leading sign, a delta.
func parseNumber[T int | float64](arg string, parse func(string, int) (T, error)) (T, bool, error) {
	var zero T
	if arg == "" {
		return zero, false, errors.New("value required")
	}
	rel := arg[0] == '+' || arg[0] == '-'
	v, err := parse(arg, 64)
	if err != nil {
		return zero, false, err
	}
	return v, rel, nil
}
