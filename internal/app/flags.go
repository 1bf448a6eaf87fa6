package app

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the command-line parameters for the application. The
// same keys may be given in a TOML file; flags set on the command line win
// over the file.
type Config struct {
	Sim   string `toml:"sim"`
	Scale int    `toml:"scale"`
	TPS   int    `toml:"tps"`
	Seed  int64  `toml:"seed"`

	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	Species   int    `toml:"species"`
	WorkItems int    `toml:"work_items"`
	LocalSize int    `toml:"local_size"`
	Pipe      int    `toml:"pipe"`
	Device    string `toml:"device"`
	Reduction bool   `toml:"reduction"`
	Colorize  bool   `toml:"colorize"`

	ConfigFile string `toml:"-"`
	Verbose    bool   `toml:"-"`
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Sim:       "species",
		Scale:     1,
		TPS:       60,
		Seed:      42,
		Width:     1024,
		Height:    768,
		Species:   10,
		Pipe:      64,
		Device:    "compute",
		Reduction: true,
		Colorize:  true,
	}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.Sim, "sim", c.Sim, "simulation to run (species, scan)")
	fs.IntVar(&c.Scale, "scale", c.Scale, "pixel scale multiplier")
	fs.IntVar(&c.TPS, "tps", c.TPS, "ticks per second")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for simulation reset")
	fs.IntVar(&c.Width, "w", c.Width, "grid width")
	fs.IntVar(&c.Height, "h", c.Height, "grid height")
	fs.IntVar(&c.Species, "species", c.Species, "number of species (1-255)")
	fs.IntVar(&c.WorkItems, "work-items", c.WorkItems, "global work size, 0 for one work-item per cell")
	fs.IntVar(&c.LocalSize, "local-size", c.LocalSize, "work-group size, 0 lets the device choose")
	fs.IntVar(&c.Pipe, "pipe", c.Pipe, "reduction pipe capacity")
	fs.StringVar(&c.Device, "device", c.Device, "device category: compute, gpu, cpu, accelerator, all")
	fs.BoolVar(&c.Reduction, "reduction", c.Reduction, "count live cells on the device")
	fs.BoolVar(&c.Colorize, "colorize", c.Colorize, "colorize on a CPU compute device")
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "TOML file with defaults for these flags")
	fs.BoolVar(&c.Verbose, "v", c.Verbose, "debug logging")
}

// Parse parses args into c. When -config names a file its values are applied
// first and any flag given in args overrides them.
func (c *Config) Parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.ConfigFile == "" {
		return nil
	}
	explicit := map[string]string{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = f.Value.String() })
	if err := c.LoadFile(c.ConfigFile); err != nil {
		return err
	}
	for name, value := range explicit {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("reapply -%s: %w", name, err)
		}
	}
	return nil
}

// LoadFile decodes a TOML file over c. Keys absent from the file keep their
// current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// SimConfig returns the factory map understood by the registered sims.
func (c *Config) SimConfig() map[string]string {
	return map[string]string{
		"w":          strconv.Itoa(c.Width),
		"h":          strconv.Itoa(c.Height),
		"species":    strconv.Itoa(c.Species),
		"work_items": strconv.Itoa(c.WorkItems),
		"local_size": strconv.Itoa(c.LocalSize),
		"pipe":       strconv.Itoa(c.Pipe),
		"device":     c.Device,
		"reduction":  strconv.FormatBool(c.Reduction),
		"colorize":   strconv.FormatBool(c.Colorize),
	}
}
