package core

import (
	"fmt"
	"sort"
)

// Size describes the dimensions of a simulation grid.
type Size struct {
	W int
	H int
}

// Cells returns W*H.
func (s Size) Cells() int { return s.W * s.H }

// Sim defines the minimal contract a cellular automaton must implement.
// Cells holds one species id per cell, 0 for dead cells.
type Sim interface {
	Name() string
	Size() Size
	Reset(seed int64)
	Step()
	Cells() []uint8
}

// RGBAProvider is implemented by sims that colorize their own cells.
type RGBAProvider interface {
	RGBA() []byte
}

// Factory constructs a Sim from an optional configuration map. Sims bound to
// a compute device report device errors here.
type Factory func(cfg map[string]string) (Sim, error)

var sims = map[string]Factory{}

// Register adds a simulation factory under the provided name.
func Register(name string, f Factory) {
	if name == "" || f == nil {
		return
	}
	sims[name] = f
}

// Sims exposes the registry of available simulation factories.
func Sims() map[string]Factory {
	return sims
}

// Names lists the registered simulations in sorted order.
func Names() []string {
	names := make([]string, 0, len(sims))
	for name := range sims {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs the named simulation.
func New(name string, cfg map[string]string) (Sim, error) {
	f, ok := sims[name]
	if !ok {
		return nil, fmt.Errorf("unknown sim %q (available: %v)", name, Names())
	}
	return f(cfg)
}
