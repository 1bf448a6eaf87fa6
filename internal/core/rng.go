package core

import "math/rand/v2"

// RNG is a thin convenience wrapper around math/rand/v2 for deterministic seeding.
type RNG struct {
	r *rand.Rand
}

// NewRNG creates a deterministic RNG using the provided seed.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(uint64(seed), 0))}
}

// Uint8n returns a random uint8 in [0, n).
func (r *RNG) Uint8n(n uint8) uint8 {
	if n == 0 {
		return 0
	}
	return uint8(r.r.IntN(int(n)))
}

// FillSpecies gives every cell a uniformly random species in [1, species].
func (r *RNG) FillSpecies(buf []uint8, species int) {
	species = max(1, min(species, 255))
	for i := range buf {
		buf[i] = uint8(1 + r.r.IntN(species))
	}
}

// FillDensity makes each cell live with probability density, drawing its
// species uniformly from [1, species].
func (r *RNG) FillDensity(buf []uint8, species int, density float64) {
	species = max(1, min(species, 255))
	for i := range buf {
		buf[i] = 0
		if r.r.Float64() < density {
			buf[i] = uint8(1 + r.r.IntN(species))
		}
	}
}

// Source exposes the underlying rand.Rand for advanced use.
func (r *RNG) Source() *rand.Rand { return r.r }
