package wm

import (
	"time"

	"github.com/1broseidon/tagwm/internal/platform"
)

// Status is a read-only snapshot of the model for the control socket.
type Status struct {
	UptimeSeconds int64          `json:"uptime_seconds"`
	ActiveScreen  int            `json:"active_screen"`
	Screens       []ScreenStatus `json:"screens"`
}

// Rect is a JSON-friendly rectangle.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ScreenStatus describes one logical screen.
type ScreenStatus struct {
	Index    int            `json:"index"`
	Name     string         `json:"name"`
	Phys     int            `json:"phys"`
	Geometry Rect           `json:"geometry"`
	Focused  uint32         `json:"focused,omitempty"`
	Tags     []TagStatus    `json:"tags"`
	Clients  []ClientStatus `json:"clients"`
}

// TagStatus describes one tag and its layout parameters.
type TagStatus struct {
	Name     string  `json:"name"`
	Selected bool    `json:"selected"`
	Layout   string  `json:"layout"`
	MWFact   float64 `json:"mwfact"`
	NMaster  int     `json:"nmaster"`
	NCol     int     `json:"ncol"`
	Clients  int     `json:"clients"`
}

// ClientStatus describes one managed window.
type ClientStatus struct {
	Window     uint32   `json:"window"`
	Name       string   `json:"name"`
	Tags       []string `json:"tags"`
	Layer      string   `json:"layer"`
	Geometry   Rect     `json:"geometry"`
	Visible    bool     `json:"visible"`
	Floating   bool     `json:"floating,omitempty"`
	Maximized  bool     `json:"maximized,omitempty"`
	Fullscreen bool     `json:"fullscreen,omitempty"`
	Sticky     bool     `json:"sticky,omitempty"`
	Hidden     bool     `json:"hidden,omitempty"`
	Urgent     bool     `json:"urgent,omitempty"`
}

func toRect(r platform.Rect) Rect {
	return Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// Status snapshots screens, tags and clients.
func (m *Manager) Status() Status {
	st := Status{
		UptimeSeconds: int64(time.Since(m.started).Seconds()),
		ActiveScreen:  m.activeScreen,
	}
	for _, s := range m.reg.Screens() {
		ss := ScreenStatus{
			Index:    s.Index,
			Name:     s.Name,
			Phys:     s.Phys,
			Geometry: toRect(s.Geometry),
			Tags:     make([]TagStatus, 0, len(s.Tags)),
			Clients:  []ClientStatus{},
		}
		if sel := m.focus.Selected(s.Index); sel != nil {
			ss.Focused = uint32(sel.Window)
		}
		for _, t := range s.Tags {
			ss.Tags = append(ss.Tags, TagStatus{
				Name:     t.Name,
				Selected: t.Selected,
				Layout:   t.Layout,
				MWFact:   t.MWFact,
				NMaster:  t.NMaster,
				NCol:     t.NCol,
				Clients:  len(m.reg.ClientsOfTag(t)),
			})
		}
		for _, c := range m.reg.ClientsOnScreen(s.Index) {
			cs := ClientStatus{
				Window:     uint32(c.Window),
				Name:       c.Name,
				Tags:       []string{},
				Layer:      c.Layer.String(),
				Geometry:   toRect(c.Geometry),
				Visible:    m.reg.IsVisible(c),
				Floating:   c.Floating,
				Maximized:  c.Maximized,
				Fullscreen: c.Fullscreen,
				Sticky:     c.Sticky,
				Hidden:     c.Hidden,
				Urgent:     c.Urgent,
			}
			for _, t := range m.reg.TagsOfClient(c) {
				cs.Tags = append(cs.Tags, t.Name)
			}
			ss.Clients = append(ss.Clients, cs)
		}
		st.Screens = append(st.Screens, ss)
	}
	return st
}
