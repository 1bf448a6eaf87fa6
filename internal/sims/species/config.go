package species

import (
	"strconv"

	"multilife/internal/compute"
	"multilife/internal/life"
)

// Config holds parameters for the device-backed simulation.
type Config struct {
	Width        int
	Height       int
	Species      int
	WorkItems    int
	LocalSize    int
	PipeCapacity int
	Device       compute.DeviceType
	Reduction    bool
	Colorize     bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Width:        1024,
		Height:       768,
		Species:      10,
		PipeCapacity: life.DefaultPipeCapacity,
		Device:       compute.DeviceTypeCompute,
		Reduction:    true,
		Colorize:     true,
	}
}

// FromMap populates a Config from a string map. Unparsable values keep
// their defaults.
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
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 1 && parsed <= life.MaxSpecies {
			c.Species = parsed
		}
	}
	if v, ok := cfg["work_items"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.WorkItems = parsed
		}
	}
	if v, ok := cfg["local_size"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.LocalSize = parsed
		}
	}
	if v, ok := cfg["pipe"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			c.PipeCapacity = parsed
		}
	}
	if v, ok := cfg["device"]; ok {
		if parsed, err := compute.ParseDeviceType(v); err == nil {
			c.Device = parsed
		}
	}
	if v, ok := cfg["reduction"]; ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			c.Reduction = parsed
		}
	}
	if v, ok := cfg["colorize"]; ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			c.Colorize = parsed
		}
	}
	return c
}

func (c Config) engineOptions() life.Options {
	return life.Options{
		WorkItems:        c.WorkItems,
		LocalSize:        c.LocalSize,
		PipeCapacity:     c.PipeCapacity,
		Device:           c.Device,
		DisableReduction: !c.Reduction,
	}
}
