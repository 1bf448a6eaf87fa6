package ui

import (
	"fmt"
	"strings"

	"multilife/internal/core"
)

// statusFields are the snapshot keys shown in the window title, in order.
var statusFields = []struct{ key, label string }{
	{"species", "Species"},
	{"compute_units", "CUs"},
	{"work_items", "Global"},
	{"local_size", "Local"},
	{"kernel_ms", "Kernel ms"},
	{"live_cells", "Live"},
}

// StatusLine formats the one-line diagnostics shown in the window title:
// FPS followed by whichever status fields the snapshot carries.
func StatusLine(name string, fps float64, snap core.ParameterSnapshot) string {
	values := map[string]string{}
	for _, g := range snap.Groups {
		for _, p := range g.Params {
			values[p.Key] = p.Value
		}
	}
	parts := []string{name, fmt.Sprintf("FPS %.1f", fps)}
	for _, f := range statusFields {
		if v, ok := values[f.key]; ok {
			parts = append(parts, f.label+" "+v)
		}
	}
	return strings.Join(parts, " | ")
}

// Lines flattens a snapshot into "Label: value" rows grouped under their
// group names.
func Lines(snap core.ParameterSnapshot) []string {
	var out []string
	for _, g := range snap.Groups {
		out = append(out, g.Name)
		for _, p := range g.Params {
			out = append(out, fmt.Sprintf("  %s: %s", p.Label, p.Value))
		}
	}
	return out
}
