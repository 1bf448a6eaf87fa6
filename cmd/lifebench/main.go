// Command lifebench runs the device engine headless. It sweeps work-group
// sizes over several seeds in parallel, optionally checks every generation
// against the scan reference, and can write the final grid as a PNG.
package main

import (
	"bytes"
	"cmp"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"multilife/internal/app"
	"multilife/internal/colorize"
	"multilife/internal/compute"
	_ "multilife/internal/compute/host"
	"multilife/internal/core"
	"multilife/internal/life"
	"multilife/internal/sims/scan"
)

type intList []int

func (l *intList) String() string {
	parts := make([]string, len(*l))
	for i, v := range *l {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (l *intList) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || v < 0 {
			return fmt.Errorf("bad size %q", part)
		}
		*l = append(*l, v)
	}
	return nil
}

type job struct {
	seed      int64
	localSize int
}

type result struct {
	job
	generations int
	meanMs      float64
	maxMs       float64
	wall        time.Duration
	live        uint32
	reduction   bool
	device      string
	// mismatch is the first generation that differed from the scan
	// reference, or 0.
	mismatch int
	failures int
	paced    bool
	dropped  int
	err      error
	grid     []byte
}

func main() {
	cfg := app.NewConfig()
	cfg.Width, cfg.Height = 256, 192
	fs := flag.CommandLine
	cfg.Bind(fs)
	steps := fs.Int("steps", 100, "generations per run")
	runs := fs.Int("runs", 1, "independent seeds per work-group size")
	workers := fs.Int("workers", runtime.NumCPU(), "engines stepping in parallel")
	verify := fs.Bool("verify", false, "compare every generation with the scan reference")
	paced := fs.Bool("paced", false, "pace generations at -tps instead of running flat out")
	catchUp := fs.Int("catchup", 4, "with -paced, most overdue generations run back to back before the rest are dropped")
	pngPath := fs.String("png", "", "write the final grid of the first run to this PNG file")
	var sweep intList
	fs.Var(&sweep, "sweep", "comma-separated work-group sizes to compare (default: -local-size)")
	if err := cfg.Parse(fs, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	compute.SetLogger(log)

	device, err := compute.ParseDeviceType(cfg.Device)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if len(sweep) == 0 {
		sweep = intList{cfg.LocalSize}
	}

	var jobs []job
	for _, local := range sweep {
		for r := 0; r < *runs; r++ {
			jobs = append(jobs, job{seed: cfg.Seed + int64(r), localSize: local})
		}
	}
	opts := life.Options{
		WorkItems:        cfg.WorkItems,
		PipeCapacity:     cfg.Pipe,
		Device:           device,
		DisableReduction: !cfg.Reduction,
		Logger:           log,
	}

	fmt.Printf("Running %d job(s) on a %dx%d grid, %d species, %d steps (%d workers)\n",
		len(jobs), cfg.Width, cfg.Height, cfg.Species, *steps, *workers)

	results := make([]result, len(jobs))
	start := time.Now()
	var g errgroup.Group
	g.SetLimit(max(*workers, 1))
	for i, j := range jobs {
		g.Go(func() error {
			o := opts
			o.LocalSize = j.localSize
			var pace *core.Pacer
			if *paced {
				pace = core.NewPacer(cfg.TPS, *catchUp)
			}
			results[i] = run(o, j, cfg, *steps, *verify, pace)
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	failed := false
	fmt.Printf("\nResults (elapsed %s):\n", elapsed.Round(time.Millisecond))
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(results[a].meanMs, results[b].meanMs)
	})
	for _, i := range order {
		res := results[i]
		if res.err != nil {
			failed = true
			fmt.Printf("   local=%-4d seed=%d error: %v\n", res.localSize, res.seed, res.err)
			continue
		}
		status := "ok"
		switch {
		case res.mismatch > 0:
			failed = true
			status = fmt.Sprintf("MISMATCH at generation %d", res.mismatch)
		case res.failures > 0:
			failed = true
			status = fmt.Sprintf("%d failed ticks", res.failures)
		case !*verify:
			status = "unverified"
		}
		if res.paced && res.dropped > 0 {
			status += fmt.Sprintf(", %d generations dropped", res.dropped)
		}
		live := "n/a"
		if res.reduction {
			live = strconv.FormatUint(uint64(res.live), 10)
		}
		fmt.Printf("   local=%-4d seed=%d gens=%d kernel=%.3fms (max %.3f) wall=%s live=%s device=%q %s\n",
			res.localSize, res.seed, res.generations, res.meanMs, res.maxMs, res.wall.Round(time.Millisecond), live, res.device, status)
	}

	if *pngPath != "" && results[0].grid != nil {
		if err := writePNG(*pngPath, results[0].grid, cfg.Width, cfg.Height, log); err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed = true
		} else {
			fmt.Printf("\nWrote %s\n", *pngPath)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func run(opts life.Options, j job, cfg *app.Config, steps int, verify bool, pace *core.Pacer) result {
	res := result{job: j}
	w, h, species := cfg.Width, cfg.Height, cfg.Species
	e := life.New(opts)
	if err := e.Init(w, h, species, ""); err != nil {
		res.err = err
		return res
	}
	defer e.Shutdown()

	grid := make([]byte, w*h)
	core.NewRNG(j.seed).FillSpecies(grid, species)
	var ref, next []byte
	if verify {
		ref = bytes.Clone(grid)
		next = make([]byte, len(grid))
	}

	var total float64
	begin := time.Now()
	due := 0
	for gen := 1; gen <= steps; gen++ {
		for pace != nil && due == 0 {
			if due = pace.Due(time.Now()); due == 0 {
				time.Sleep(pace.Until(time.Now()))
			}
		}
		due--
		out, err := e.Step(w, h, species, grid)
		if err != nil {
			res.failures++
			opts.Logger.Error("step failed", "seed", j.seed, "generation", gen, "err", err)
			continue
		}
		grid = out
		st := e.Stats()
		total += st.KernelMs
		res.maxMs = max(res.maxMs, st.KernelMs)
		res.generations++
		if verify {
			scan.Next(next, ref, w, h, species)
			ref, next = next, ref
			if res.mismatch == 0 && !bytes.Equal(ref, grid) {
				res.mismatch = gen
			}
		}
	}
	res.wall = time.Since(begin)
	if pace != nil {
		res.paced = true
		res.dropped = pace.Dropped()
	}
	st := e.Stats()
	res.live = st.LiveCells
	res.reduction = st.Reduction
	res.device = st.Device
	if res.generations > 0 {
		res.meanMs = total / float64(res.generations)
	}
	res.grid = grid
	return res
}

func writePNG(path string, grid []byte, w, h int, log *slog.Logger) error {
	c := colorize.New(colorize.Options{Logger: log})
	if err := c.Init(w, h, ""); err != nil {
		return fmt.Errorf("png: %w", err)
	}
	defer c.Shutdown()
	rgba := c.Colorize(grid, nil)
	if len(rgba) != 4*w*h {
		return fmt.Errorf("png: colorizer produced no image")
	}
	img := &image.RGBA{Pix: rgba, Stride: 4 * w, Rect: image.Rect(0, 0, w, h)}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("png: %w", err)
	}
	return f.Close()
}
