// Package scan is the single-threaded multi-species Game of Life. It walks
// the grid row by row and serves as the reference the device engine is
// checked against.
package scan

import (
	"strconv"

	"multilife/internal/core"
)

// Config holds parameters for the scan simulation.
type Config struct {
	Width   int
	Height  int
	Species int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{Width: 1024, Height: 768, Species: 10}
}

// FromMap populates a Config from a string map.
func FromMap(cfg map[string]string) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	if v, ok := cfg["w"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			c.Width = parsed
		}
	}
	if v, ok := cfg["h"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			c.Height = parsed
		}
	}
	if v, ok := cfg["species"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 1 && parsed <= 255 {
			c.Species = parsed
		}
	}
	return c
}

// Scan is a multi-species Life on a bounded grid.
type Scan struct {
	species int
	cur     *core.ByteGrid
	nxt     *core.ByteGrid
}

// New returns a scan simulation with the provided dimensions.
func New(w, h, species int) *Scan {
	return &Scan{
		species: max(1, min(species, 255)),
		cur:     core.NewByteGrid(w, h),
		nxt:     core.NewByteGrid(w, h),
	}
}

// Name returns the simulation identifier.
func (s *Scan) Name() string { return "scan" }

// Size returns the grid dimensions.
func (s *Scan) Size() core.Size { return core.Size{W: s.cur.W, H: s.cur.H} }

// Cells exposes the current grid values.
func (s *Scan) Cells() []uint8 { return s.cur.Cells() }

// Species returns the number of species.
func (s *Scan) Species() int { return s.species }

// Reset gives every cell a random species using the provided seed.
func (s *Scan) Reset(seed int64) {
	core.NewRNG(seed).FillSpecies(s.cur.Cells(), s.species)
}

// Step advances the simulation by one generation.
func (s *Scan) Step() {
	Next(s.nxt.Cells(), s.cur.Cells(), s.cur.W, s.cur.H, s.species)
	s.cur, s.nxt = s.nxt, s.cur
}

// Next writes the generation after src into dst.
//
// A live cell keeps its species when 2 or 3 of its neighbours share it and
// dies otherwise. A dead cell is born as the lowest species in [1, species]
// with exactly 3 neighbours. Neighbours outside the grid do not count.
func Next(dst, src []uint8, w, h, species int) {
	var counts [256]uint8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			clear(counts[:])
			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if (dx == 0 && dy == 0) || nx < 0 || nx >= w {
						continue
					}
					counts[src[ny*w+nx]]++
				}
			}
			idx := y*w + x
			v := src[idx]
			if v != 0 {
				dst[idx] = 0
				if c := counts[v]; c == 2 || c == 3 {
					dst[idx] = v
				}
				continue
			}
			dst[idx] = 0
			for sp := 1; sp <= species && sp < len(counts); sp++ {
				if counts[sp] == 3 {
					dst[idx] = uint8(sp)
					break
				}
			}
		}
	}
}

func init() {
	core.Register("scan", func(cfg map[string]string) (core.Sim, error) {
		c := FromMap(cfg)
		return New(c.Width, c.Height, c.Species), nil
	})
}
