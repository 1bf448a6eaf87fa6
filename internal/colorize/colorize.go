// Package colorize turns species grids into RGBA images on a CPU-class
// compute device.
package colorize

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"

	"multilife/internal/compute"
	"multilife/internal/kernels"
)

var palette = []color.RGBA{
	{0, 0, 0, 255},
	{255, 0, 0, 255},
	{0, 255, 0, 255},
	{0, 0, 255, 255},
	{255, 255, 0, 255},
	{255, 0, 255, 255},
	{0, 255, 255, 255},
	{255, 128, 0, 255},
	{128, 0, 255, 255},
	{0, 128, 255, 255},
	{255, 255, 255, 255},
}

// Fallback is the color of species ids beyond the palette.
var Fallback = color.RGBA{200, 200, 200, 255}

// Palette returns the color of species 0 (dead) through 10. Higher ids use
// Fallback.
func Palette() []color.RGBA {
	return append([]color.RGBA(nil), palette...)
}

// Color returns the color of one species id.
func Color(species uint8) color.RGBA {
	if int(species) < len(palette) {
		return palette[species]
	}
	return Fallback
}

// Options configures a Colorizer.
type Options struct {
	// Device selects the device category. Zero means compute.DeviceTypeCPU.
	Device    compute.DeviceType
	Platforms []compute.Platform
	Logger    *slog.Logger
}

// Colorizer runs colorize_grid once per call. It keeps no state between
// calls other than its device buffers.
type Colorizer struct {
	opts    Options
	log     *slog.Logger
	session compute.Session

	prog   compute.Program
	kernel compute.Kernel
	grid   compute.Buffer
	image  compute.Buffer
	n      int
}

// New returns an uninitialized colorizer.
func New(opts Options) *Colorizer {
	if opts.Device == 0 {
		opts.Device = compute.DeviceTypeCPU
	}
	return &Colorizer{opts: opts, log: compute.LoggerOr(opts.Logger)}
}

// Init binds a device and prepares buffers for a w by h grid. An empty src
// selects the built-in program.
func (c *Colorizer) Init(w, h int, src string) error {
	if c.kernel != nil {
		return errors.New("colorize: already initialized")
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("colorize: invalid grid size %dx%d", w, h)
	}
	c.session = compute.Session{Platforms: c.opts.Platforms, Want: c.opts.Device, Logger: c.opts.Logger}
	if err := c.session.Init(); err != nil {
		return err
	}
	if err := c.build(w*h, src); err != nil {
		c.Shutdown()
		return err
	}
	return nil
}

func (c *Colorizer) build(n int, src string) error {
	if src == "" {
		var err error
		if src, err = kernels.Colorize(c.session.Device().Platform().Language()); err != nil {
			return err
		}
	}
	ctx := c.session.Context()
	prog, err := ctx.BuildProgram(src)
	if err != nil {
		return err
	}
	c.prog = prog
	if c.kernel, err = c.prog.Kernel(kernels.ColorizeGrid); err != nil {
		return err
	}
	if c.grid, err = ctx.NewBuffer(n); err != nil {
		return err
	}
	if c.image, err = ctx.NewBuffer(4 * n); err != nil {
		return err
	}
	for i, v := range []any{c.grid, c.image, uint32(n)} {
		if err := c.kernel.SetArg(i, v); err != nil {
			return fmt.Errorf("%w: bind %s: %v", compute.ErrResourceCreation, kernels.ColorizeGrid, err)
		}
	}
	c.n = n
	return nil
}

// Colorize writes one RGBA pixel per cell of species into rgba, growing it
// to 4*w*h bytes when needed, and returns it. On failure the failure is
// logged and rgba is returned untouched.
func (c *Colorizer) Colorize(species, rgba []byte) []byte {
	out, err := c.colorize(species, rgba)
	if err != nil {
		c.log.Error("colorize failed", "err", err)
		return rgba
	}
	return out
}

func (c *Colorizer) colorize(species, rgba []byte) ([]byte, error) {
	if c.kernel == nil {
		return nil, errors.New("colorize: not initialized")
	}
	if len(species) < c.n {
		return nil, fmt.Errorf("%w: grid has %d cells, want %d", compute.ErrTransfer, len(species), c.n)
	}
	q := c.session.Queue()
	if err := q.Write(c.grid, 0, species[:c.n]); err != nil {
		return nil, err
	}
	ev, err := q.Dispatch(c.kernel, c.n, 0)
	if err != nil {
		return nil, err
	}
	err = ev.Wait()
	ev.Release()
	if err != nil {
		return nil, err
	}
	out := rgba
	if len(out) != 4*c.n {
		if cap(out) >= 4*c.n {
			out = out[:4*c.n]
		} else {
			out = make([]byte, 4*c.n)
		}
	}
	if err := q.Read(c.image, 0, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Shutdown releases the device resources. It is safe to call repeatedly.
func (c *Colorizer) Shutdown() {
	if c.kernel != nil {
		c.kernel.Release()
		c.kernel = nil
	}
	for _, b := range []compute.Buffer{c.grid, c.image} {
		if b != nil {
			b.Release()
		}
	}
	c.grid, c.image = nil, nil
	if c.prog != nil {
		c.prog.Release()
		c.prog = nil
	}
	c.session.Shutdown()
	c.n = 0
}
