//go:build ebiten

package render

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// GridPainter owns one w by h texture and draws it scaled onto the screen.
type GridPainter struct {
	w, h int
	img  *ebiten.Image
	buf  []byte
}

// NewGridPainter allocates a painter for a grid of size w*h.
func NewGridPainter(w, h int) *GridPainter {
	return &GridPainter{w: w, h: h, img: ebiten.NewImage(w, h), buf: make([]byte, 4*w*h)}
}

// Present uploads a ready RGBA image of 4*w*h bytes and draws it.
func (gp *GridPainter) Present(dst *ebiten.Image, rgba []byte, scale int) {
	if len(rgba) != 4*gp.w*gp.h {
		return
	}
	gp.img.WritePixels(rgba)
	gp.draw(dst, scale)
}

// Blit colors species ids with palette on the host, then draws them.
func (gp *GridPainter) Blit(dst *ebiten.Image, cells []uint8, palette []color.RGBA, fallback color.RGBA, scale int) {
	if len(cells) != gp.w*gp.h {
		return
	}
	FillPaletteRGBA(gp.buf, cells, palette, fallback)
	gp.img.WritePixels(gp.buf)
	gp.draw(dst, scale)
}

func (gp *GridPainter) draw(dst *ebiten.Image, scale int) {
	if scale <= 0 {
		scale = 1
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(scale), float64(scale))
	dst.DrawImage(gp.img, op)
}

// Size returns the dimensions of the underlying image.
func (gp *GridPainter) Size() (int, int) { return gp.w, gp.h }
