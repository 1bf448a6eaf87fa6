// Package species runs the multi-species Life on a compute device through
// the life engine and colorizes it with the colorize package.
package species

import (
	"fmt"
	"log/slog"
	"strconv"

	"multilife/internal/colorize"
	"multilife/internal/compute"
	_ "multilife/internal/compute/host"
	"multilife/internal/core"
	"multilife/internal/life"
)

// Sim adapts a life.Engine to core.Sim.
type Sim struct {
	cfg       Config
	log       *slog.Logger
	engine    *life.Engine
	colorizer *colorize.Colorizer

	cells []uint8
	rgba  []byte
	// failures counts ticks that returned an error.
	failures int
}

// New binds the engine, and the colorizer when enabled, for cfg. A
// colorizer that cannot start is logged and skipped.
func New(cfg Config, logger *slog.Logger) (*Sim, error) {
	log := compute.LoggerOr(logger)
	opts := cfg.engineOptions()
	opts.Logger = logger
	s := &Sim{
		cfg:    cfg,
		log:    log,
		engine: life.New(opts),
		cells:  make([]uint8, cfg.Width*cfg.Height),
	}
	if err := s.engine.Init(cfg.Width, cfg.Height, cfg.Species, ""); err != nil {
		return nil, fmt.Errorf("species: %w", err)
	}
	if cfg.Colorize {
		c := colorize.New(colorize.Options{Logger: logger})
		if err := c.Init(cfg.Width, cfg.Height, ""); err != nil {
			log.Warn("device colorizer unavailable, using host palette", "err", err)
		} else {
			s.colorizer = c
		}
	}
	return s, nil
}

// Name returns the simulation identifier.
func (s *Sim) Name() string { return "species" }

// Size returns the grid dimensions.
func (s *Sim) Size() core.Size { return core.Size{W: s.cfg.Width, H: s.cfg.Height} }

// Cells exposes the last generation read back from the device.
func (s *Sim) Cells() []uint8 { return s.cells }

// RGBA returns the device-colorized image of the last generation, or nil
// when no colorizer is running.
func (s *Sim) RGBA() []byte {
	if s.colorizer == nil || len(s.rgba) != 4*len(s.cells) {
		return nil
	}
	return s.rgba
}

// Reset starts a fresh device session seeded with a random grid. The seed
// reaches the device on the next Step.
func (s *Sim) Reset(seed int64) {
	s.engine.Shutdown()
	if err := s.engine.Init(s.cfg.Width, s.cfg.Height, s.cfg.Species, ""); err != nil {
		s.log.Error("engine reinit failed", "err", err)
	}
	core.NewRNG(seed).FillSpecies(s.cells, s.cfg.Species)
	s.failures = 0
	s.colorize()
}

// Step advances the device grid by one generation.
func (s *Sim) Step() {
	cells, err := s.engine.Step(s.cfg.Width, s.cfg.Height, s.cfg.Species, s.cells)
	if err != nil {
		s.failures++
		s.log.Error("step failed", "failures", s.failures, "err", err)
		return
	}
	s.cells = cells
	s.colorize()
}

func (s *Sim) colorize() {
	if s.colorizer != nil {
		s.rgba = s.colorizer.Colorize(s.cells, s.rgba)
	}
}

// Stats returns the engine diagnostics.
func (s *Sim) Stats() life.Stats { return s.engine.Stats() }

// Failures returns the number of failed ticks since the last Reset.
func (s *Sim) Failures() int { return s.failures }

// Parameters exposes the engine diagnostics for the HUD.
func (s *Sim) Parameters() core.ParameterSnapshot {
	st := s.engine.Stats()
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{
		{
			Name: "Device",
			Params: []core.Parameter{
				{Key: "device", Label: "Device", Type: core.ParamTypeString, Value: st.Device},
				{Key: "compute_units", Label: "Compute units", Type: core.ParamTypeInt, Value: strconv.Itoa(st.ComputeUnits)},
				{Key: "reduction", Label: "Pipe reduction", Type: core.ParamTypeBool, Value: strconv.FormatBool(st.Reduction)},
			},
		},
		{
			Name: "Dispatch",
			Params: []core.Parameter{
				{Key: "work_items", Label: "Global", Type: core.ParamTypeInt, Value: strconv.Itoa(st.WorkItems)},
				{Key: "local_size", Label: "Local", Type: core.ParamTypeInt, Value: strconv.Itoa(st.LocalSize), Description: "0 lets the device choose"},
				{Key: "kernel_ms", Label: "Kernel ms", Type: core.ParamTypeFloat, Value: strconv.FormatFloat(st.KernelMs, 'f', 3, 64)},
			},
		},
		{
			Name: "Population",
			Params: []core.Parameter{
				{Key: "species", Label: "Species", Type: core.ParamTypeInt, Value: strconv.Itoa(s.cfg.Species)},
				{Key: "live_cells", Label: "Live cells", Type: core.ParamTypeInt, Value: strconv.FormatUint(uint64(st.LiveCells), 10)},
				{Key: "generation", Label: "Generation", Type: core.ParamTypeInt, Value: strconv.FormatUint(st.Generation, 10)},
			},
		},
	}}
}

// SetIntParameter updates work_items or local_size. Negative values and
// work-group sizes above the device limit are rejected.
func (s *Sim) SetIntParameter(key string, value int) bool {
	if value < 0 {
		return false
	}
	if limit := s.engine.Stats().MaxLocalSize; key == "local_size" && limit > 0 && value > limit {
		return false
	}
	switch key {
	case "work_items":
		s.cfg.WorkItems = value
		s.engine.SetWorkItems(value)
	case "local_size":
		s.cfg.LocalSize = value
		s.engine.SetLocalSize(value)
	default:
		return false
	}
	return true
}

// IntParameter reads back the adjustable dispatch sizes. work_items reports
// the configured override, 0 meaning one work-item per cell. max_local_size
// is the device work-group limit.
func (s *Sim) IntParameter(key string) (int, bool) {
	switch key {
	case "max_local_size":
		return s.engine.Stats().MaxLocalSize, true
	case "work_items":
		return s.cfg.WorkItems, true
	case "local_size":
		return s.cfg.LocalSize, true
	}
	return 0, false
}

// Close releases the device sessions.
func (s *Sim) Close() error {
	s.engine.Shutdown()
	if s.colorizer != nil {
		s.colorizer.Shutdown()
	}
	return nil
}

func init() {
	core.Register("species", func(cfg map[string]string) (core.Sim, error) {
		s, err := New(FromMap(cfg), nil)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
