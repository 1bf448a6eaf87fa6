//go:build ebiten

package ui

import (
	"image/color"

	"multilife/internal/core"
	"multilife/internal/render"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

var highlightKeys = []ebiten.Key{
	ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3, ebiten.KeyDigit4, ebiten.KeyDigit5,
	ebiten.KeyDigit6, ebiten.KeyDigit7, ebiten.KeyDigit8, ebiten.KeyDigit9, ebiten.KeyDigit0,
}

// Overlay tints every cell of one chosen species on top of the grid.
type Overlay struct {
	sim     core.Sim
	scale   int
	species uint8
	img     *ebiten.Image
	buf     []byte
}

// NewOverlay constructs a new overlay instance.
func NewOverlay(sim core.Sim, scale int) *Overlay {
	return &Overlay{sim: sim, scale: scale}
}

// Update toggles the highlighted species. Digit keys 1-9 select species 1-9
// and 0 selects 10; pressing the active key again turns the overlay off.
func (o *Overlay) Update() {
	for i, k := range highlightKeys {
		if !inpututil.IsKeyJustPressed(k) {
			continue
		}
		id := uint8(i + 1)
		if o.species == id {
			o.species = 0
		} else {
			o.species = id
		}
	}
}

// Draw renders the overlay onto the provided screen.
func (o *Overlay) Draw(screen *ebiten.Image) {
	if o.species == 0 {
		return
	}
	size := o.sim.Size()
	total := size.W * size.H
	cells := o.sim.Cells()
	if total == 0 || len(cells) != total {
		return
	}
	if o.img == nil || o.img.Bounds().Dx() != size.W || o.img.Bounds().Dy() != size.H {
		o.img = ebiten.NewImage(size.W, size.H)
		o.buf = make([]byte, 4*total)
	}
	render.FillMaskRGBA(o.buf, cells, o.species, color.RGBA{R: 255, G: 255, B: 255, A: 160})
	o.img.WritePixels(o.buf)

	scale := o.scale
	if scale <= 0 {
		scale = 1
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(scale), float64(scale))
	screen.DrawImage(o.img, op)
}
