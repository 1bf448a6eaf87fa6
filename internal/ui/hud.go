//go:build ebiten

package ui

import (
	"image/color"

	"multilife/internal/core"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

const (
	panelPadding = 12
	lineHeight   = 16
	baseline     = 13
)

// HUD renders the diagnostics panel to the right of the simulation view.
type HUD struct {
	sim      core.Sim
	width    int
	panel    *ebiten.Image
	snapshot core.ParameterSnapshot
	help     []string
}

// NewHUD constructs a HUD for the provided simulation and panel width.
func NewHUD(sim core.Sim, width int) *HUD {
	if width < 0 {
		width = 0
	}
	h := &HUD{sim: sim, width: width}
	h.help = []string{"space pause  n step", "r reset  s reseed", "1-0 highlight species"}
	if _, ok := sim.(core.IntParameterSetter); ok {
		h.help = append(h.help, "[ ] local size", "- = work items")
	}
	return h
}

// Width returns the panel width in screen pixels.
func (h *HUD) Width() int {
	if h == nil {
		return 0
	}
	return h.width
}

// Snapshot returns the parameters read by the last Update.
func (h *HUD) Snapshot() core.ParameterSnapshot {
	if h == nil {
		return core.ParameterSnapshot{}
	}
	return h.snapshot
}

// Update refreshes the cached parameter snapshot from the simulation.
func (h *HUD) Update() {
	if h == nil {
		return
	}
	provider, ok := h.sim.(core.ParameterSnapshotProvider)
	if !ok {
		h.snapshot = core.ParameterSnapshot{}
		return
	}
	h.snapshot = provider.Parameters()
}

// Draw paints the HUD panel anchored at offsetX.
func (h *HUD) Draw(screen *ebiten.Image, offsetX int, scale int) {
	if h == nil || h.width <= 0 {
		return
	}
	if scale <= 0 {
		scale = 1
	}
	height := h.sim.Size().H * scale
	if height <= 0 {
		return
	}
	if h.panel == nil || h.panel.Bounds().Dx() != h.width || h.panel.Bounds().Dy() != height {
		h.panel = ebiten.NewImage(h.width, height)
	}
	h.panel.Fill(color.RGBA{R: 16, G: 16, B: 20, A: 255})

	face := basicfont.Face7x13
	title := color.RGBA{R: 200, G: 200, B: 210, A: 255}
	body := color.RGBA{R: 220, G: 220, B: 230, A: 255}
	dim := color.RGBA{R: 140, G: 140, B: 150, A: 255}

	y := panelPadding + baseline
	text.Draw(h.panel, h.sim.Name(), face, panelPadding, y, title)
	y += lineHeight
	lines := Lines(h.snapshot)
	if len(lines) == 0 {
		text.Draw(h.panel, "No diagnostics", face, panelPadding, y+lineHeight, dim)
	}
	for _, line := range lines {
		y += lineHeight
		col := body
		if line != "" && line[0] != ' ' {
			col = title
		}
		text.Draw(h.panel, line, face, panelPadding, y, col)
	}
	y = height - panelPadding - lineHeight*(len(h.help)-1)
	for _, line := range h.help {
		text.Draw(h.panel, line, face, panelPadding, y, dim)
		y += lineHeight
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(offsetX), 0)
	screen.DrawImage(h.panel, op)
}
