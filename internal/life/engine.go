// Package life runs a multi-species Game of Life on a compute device.
//
// An Engine owns a device session, two generation buffers that swap roles
// every tick, one pre-bound life_step kernel per direction, and an optional
// pipe-based reduction that counts live cells on the device. Step advances
// the automaton by one generation and copies the result back to the host.
package life

import (
	"errors"
	"fmt"
	"log/slog"

	"multilife/internal/compute"
	"multilife/internal/kernels"
)

// DefaultPipeCapacity is the packet count of the reduction pipe and the
// work-item count of both reduction kernels.
const DefaultPipeCapacity = 64

// MaxSpecies is the largest species id a one-byte cell can hold.
const MaxSpecies = 255

var (
	// ErrNotReady is returned by Step before Init succeeds or after Shutdown.
	ErrNotReady = errors.New("life: engine not ready")
	// ErrGridMismatch is returned by Step when the grid dimensions differ
	// from the ones the engine was initialized with.
	ErrGridMismatch = fmt.Errorf("%w: grid dimensions differ from the session", compute.ErrDispatch)
)

// Options configures an Engine. The zero value selects a compute-class
// device, lets it choose the work-group size, and enables the reduction.
type Options struct {
	// WorkItems overrides the global work size of the automaton dispatch.
	// Zero dispatches one work-item per cell.
	WorkItems int
	// LocalSize is the work-group size. Zero lets the device choose.
	LocalSize int
	// PipeCapacity is the reduction pipe size. Zero means DefaultPipeCapacity.
	PipeCapacity int
	// Device selects the device category. Zero means compute.DeviceTypeCompute.
	Device compute.DeviceType
	// DisableReduction skips creating the population pipeline.
	DisableReduction bool
	// Platforms overrides the registered compute platforms.
	Platforms []compute.Platform
	Logger    *slog.Logger
}

// Stats is a snapshot of the engine diagnostics.
type Stats struct {
	// KernelMs is the device time of the last successful automaton dispatch.
	KernelMs float64
	// LiveCells is the last population the reduction produced. It stays
	// at its previous value when the reduction is disabled or fails.
	LiveCells    uint32
	ComputeUnits int
	// WorkItems is the effective global work size.
	WorkItems int
	LocalSize int
	// MaxLocalSize is the largest work-group size the device accepts.
	MaxLocalSize int
	Reduction    bool
	Device       string
	// Generation counts successful dispatches since Init.
	Generation uint64
}

type state int

const (
	stateUninitialized state = iota
	stateReady
	stateShutdown
)

// Engine steps one grid on one device. It is not safe for concurrent use.
type Engine struct {
	opts    Options
	log     *slog.Logger
	session compute.Session
	state   state

	w, h, n int
	species int

	res *resources
	pop *population

	seeded bool
	flip   bool

	kernelMs   float64
	liveCells  uint32
	generation uint64
}

// New returns an uninitialized engine.
func New(opts Options) *Engine {
	if opts.PipeCapacity <= 0 {
		opts.PipeCapacity = DefaultPipeCapacity
	}
	if opts.Device == 0 {
		opts.Device = compute.DeviceTypeCompute
	}
	opts.WorkItems = max(opts.WorkItems, 0)
	opts.LocalSize = max(opts.LocalSize, 0)
	return &Engine{opts: opts, log: compute.LoggerOr(opts.Logger)}
}

// Init binds a device, builds src and allocates both generation buffers for
// a w by h grid. An empty src selects the built-in program for the device's
// kernel language. Init may be called again after Shutdown.
func (e *Engine) Init(w, h, species int, src string) error {
	if e.state == stateReady {
		return fmt.Errorf("life: engine already initialized for %dx%d", e.w, e.h)
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("life: invalid grid size %dx%d", w, h)
	}
	if species < 1 || species > MaxSpecies {
		return fmt.Errorf("life: species count %d outside [1,%d]", species, MaxSpecies)
	}

	e.session = compute.Session{
		Platforms: e.opts.Platforms,
		Want:      e.opts.Device,
		Logger:    e.opts.Logger,
	}
	if err := e.session.Init(); err != nil {
		return err
	}
	dev := e.session.Device()
	if src == "" {
		var err error
		src, err = kernels.Life(dev.Platform().Language())
		if err != nil {
			e.session.Shutdown()
			return err
		}
	}

	n := w * h
	res, err := newResources(e.session.Context(), src, w, h, species)
	if err != nil {
		e.session.Shutdown()
		if be := (*compute.BuildError)(nil); errors.As(err, &be) {
			e.log.Error("life program build failed", "device", dev.Name(), "log", be.Log)
		}
		return err
	}

	e.res = res
	e.pop = nil
	if !e.opts.DisableReduction {
		pop, err := newPopulation(e.session.Context(), res.prog, n, e.opts.PipeCapacity)
		if err != nil {
			e.log.Warn("population reduction disabled", "device", dev.Name(), "err", err)
		} else {
			e.pop = pop
		}
	}

	e.w, e.h, e.n = w, h, n
	e.species = species
	e.seeded = false
	e.flip = false
	e.kernelMs = 0
	e.liveCells = 0
	e.generation = 0
	e.state = stateReady
	e.log.Debug("life engine ready",
		"width", w, "height", h, "species", species,
		"work_items", e.globalSize(), "local_size", e.opts.LocalSize,
		"reduction", e.pop != nil)
	return nil
}

// Step advances the automaton by one generation and returns grid holding
// the new generation, resized to w*h. The first call seeds the device with
// grid. When a dispatch or transfer fails the previous grid is returned
// unchanged together with the error and the engine stays ready.
func (e *Engine) Step(w, h, species int, grid []byte) ([]byte, error) {
	if e.state != stateReady {
		return grid, ErrNotReady
	}
	if w != e.w || h != e.h {
		return grid, fmt.Errorf("%w: initialized %dx%d, stepped %dx%d", ErrGridMismatch, e.w, e.h, w, h)
	}
	q := e.session.Queue()

	if !e.seeded {
		e.seed(q, grid)
	}

	if species != e.species {
		if species < 1 || species > MaxSpecies {
			return grid, fmt.Errorf("%w: species count %d outside [1,%d]", compute.ErrDispatch, species, MaxSpecies)
		}
		if err := e.res.bindSpecies(species); err != nil {
			return grid, err
		}
		e.species = species
	}

	k, dst := e.res.direction(e.flip)
	ev, err := q.Dispatch(k, e.globalSize(), e.opts.LocalSize)
	if err != nil {
		return grid, fmt.Errorf("life: generation %d: %w", e.generation+1, err)
	}
	err = ev.Wait()
	if err == nil {
		if p, perr := ev.Profile(); perr == nil {
			e.kernelMs = p.Millis()
		}
	}
	ev.Release()
	if err != nil {
		return grid, fmt.Errorf("life: generation %d: %w", e.generation+1, err)
	}
	e.flip = !e.flip
	e.generation++

	if e.pop != nil {
		if live, err := e.pop.count(q, dst); err != nil {
			e.log.Error("population reduction failed", "generation", e.generation, "err", err)
		} else {
			e.liveCells = live
		}
	}

	out := grid
	if len(out) != e.n {
		if cap(out) >= e.n {
			out = out[:e.n]
		} else {
			out = make([]byte, e.n)
		}
	}
	if err := q.Read(dst, 0, out); err != nil {
		return grid, fmt.Errorf("life: read back generation %d: %w", e.generation, err)
	}
	return out, nil
}

func (e *Engine) seed(q compute.Queue, grid []byte) {
	e.seeded = true
	if len(grid) < e.n {
		e.log.Warn("initial grid too small, seeding skipped", "have", len(grid), "want", e.n)
		return
	}
	if err := q.Write(e.res.a, 0, grid[:e.n]); err != nil {
		e.log.Warn("seeding failed", "err", err)
	}
}

func (e *Engine) globalSize() int {
	if e.opts.WorkItems > 0 {
		return e.opts.WorkItems
	}
	return e.n
}

// Shutdown releases every device resource. It is safe to call repeatedly
// and on an engine that never initialized.
func (e *Engine) Shutdown() {
	if e.pop != nil {
		e.pop.release()
		e.pop = nil
	}
	if e.res != nil {
		e.res.release()
		e.res = nil
	}
	e.session.Shutdown()
	if e.state == stateReady {
		e.state = stateShutdown
	}
}

// Ready reports whether Step may be called.
func (e *Engine) Ready() bool { return e.state == stateReady }

// Stats returns the current diagnostics.
func (e *Engine) Stats() Stats {
	s := Stats{
		KernelMs:     e.kernelMs,
		LiveCells:    e.liveCells,
		ComputeUnits: e.session.ComputeUnits(),
		WorkItems:    e.globalSize(),
		LocalSize:    e.opts.LocalSize,
		Reduction:    e.pop != nil,
		Generation:   e.generation,
	}
	if dev := e.session.Device(); dev != nil {
		s.Device = dev.Name()
		s.MaxLocalSize = dev.MaxWorkGroupSize()
	}
	return s
}

// SetWorkItems overrides the global work size of later dispatches. Zero
// restores one work-item per cell.
func (e *Engine) SetWorkItems(n int) { e.opts.WorkItems = max(n, 0) }

// SetLocalSize sets the work-group size of later dispatches. Zero lets the
// device choose.
func (e *Engine) SetLocalSize(n int) { e.opts.LocalSize = max(n, 0) }
