package render

import "image/color"

// FillPaletteRGBA converts species ids into RGBA pixels in buf. Ids beyond
// the palette use fallback. When the palette is empty the buffer is cleared
// to transparent black.
func FillPaletteRGBA(buf []byte, cells []uint8, palette []color.RGBA, fallback color.RGBA) {
	if len(palette) == 0 {
		clear(buf[:4*len(cells)])
		return
	}
	for i, c := range cells {
		col := fallback
		if int(c) < len(palette) {
			col = palette[c]
		}
		base := i * 4
		buf[base+0] = col.R
		buf[base+1] = col.G
		buf[base+2] = col.B
		buf[base+3] = col.A
	}
}

// FillMaskRGBA writes tint into every pixel whose cell equals id and
// transparent black elsewhere.
func FillMaskRGBA(buf []byte, cells []uint8, id uint8, tint color.RGBA) int {
	hits := 0
	for i, c := range cells {
		base := i * 4
		if c != id {
			buf[base+0] = 0
			buf[base+1] = 0
			buf[base+2] = 0
			buf[base+3] = 0
			continue
		}
		hits++
		buf[base+0] = tint.R
		buf[base+1] = tint.G
		buf[base+2] = tint.B
		buf[base+3] = tint.A
	}
	return hits
}
