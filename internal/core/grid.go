package core

// ByteGrid stores a 2D grid of byte-sized cell values in row-major order.
type ByteGrid struct {
	W, H int
	data []uint8
}

// NewByteGrid allocates a grid with the given dimensions.
func NewByteGrid(w, h int) *ByteGrid {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return &ByteGrid{W: w, H: h, data: make([]uint8, w*h)}
}

// Cells exposes the backing slice so callers can read/write values directly.
func (g *ByteGrid) Cells() []uint8 { return g.data }

// Index returns the linear slice index for coordinates (x, y).
func (g *ByteGrid) Index(x, y int) int { return y*g.W + x }

// InBounds reports whether (x, y) lies on the grid. The grid does not wrap.
func (g *ByteGrid) InBounds(x, y int) bool {
	return x >= 0 && x < g.W && y >= 0 && y < g.H
}

// At returns the value at (x, y), or 0 outside the grid.
func (g *ByteGrid) At(x, y int) uint8 {
	if !g.InBounds(x, y) {
		return 0
	}
	return g.data[y*g.W+x]
}

// Set stores v at (x, y). Out-of-bounds writes are ignored.
func (g *ByteGrid) Set(x, y int, v uint8) {
	if g.InBounds(x, y) {
		g.data[y*g.W+x] = v
	}
}

// Population counts the non-zero cells.
func (g *ByteGrid) Population() int {
	n := 0
	for _, v := range g.data {
		if v != 0 {
			n++
		}
	}
	return n
}

// Clear fills the grid with zeros.
func (g *ByteGrid) Clear() {
	for i := range g.data {
		g.data[i] = 0
	}
}
