package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/1broseidon/tagwm/internal/wm"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStatus(w io.Writer, st *wm.Status) {
	fmt.Fprintf(w, "uptime: %s\n", time.Duration(st.UptimeSeconds)*time.Second)
	for _, s := range st.Screens {
		active := ""
		if s.Index == st.ActiveScreen {
			active = " (active)"
		}
		fmt.Fprintf(w, "screen %d %s%s %dx%d+%d+%d\n", s.Index, s.Name, active,
			s.Geometry.Width, s.Geometry.Height, s.Geometry.X, s.Geometry.Y)

		tags := make([]string, 0, len(s.Tags))
		for _, t := range s.Tags {
			name := t.Name
			if t.Selected {
				name = "[" + name + "]"
			}
			if t.Clients > 0 {
				name += fmt.Sprintf(":%d", t.Clients)
			}
			tags = append(tags, name)
		}
		fmt.Fprintf(w, "  tags: %s\n", strings.Join(tags, " "))

		for _, c := range s.Clients {
			marker := " "
			if c.Window == s.Focused {
				marker = "*"
			}
			fmt.Fprintf(w, "  %s 0x%08x %-10s %-20s %s%s\n", marker, c.Window, c.Layer,
				strings.Join(c.Tags, ","), c.Name, clientFlags(c))
		}
	}
}

func clientFlags(c wm.ClientStatus) string {
	var flags []string
	for _, f := range []struct {
		on   bool
		name string
	}{
		{c.Floating, "floating"},
		{c.Maximized, "maximized"},
		{c.Fullscreen, "fullscreen"},
		{c.Sticky, "sticky"},
		{c.Hidden, "hidden"},
		{c.Urgent, "urgent"},
	} {
		if f.on {
			flags = append(flags, f.name)
		}
	}
	if len(flags) == 0 {
		return ""
	}
	return " (" + strings.Join(flags, ", ") + ")"
}
