//go:build ebiten

package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"

	"multilife/internal/app"
	"multilife/internal/compute"
	"multilife/internal/core"
	_ "multilife/internal/sims/scan"
	_ "multilife/internal/sims/species"

	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	if err := cfg.Parse(flag.CommandLine, os.Args[1:]); err != nil {
		slog.Error("bad configuration", "err", err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	compute.SetLogger(log)

	sim, err := core.New(cfg.Sim, cfg.SimConfig())
	if err != nil {
		log.Error("cannot start simulation", "sim", cfg.Sim, "err", err)
		os.Exit(1)
	}
	sim.Reset(cfg.Seed)

	game := app.New(sim, cfg.Scale, cfg.Seed, log)
	defer game.Close()
	size := sim.Size()

	ebiten.SetWindowTitle("multilife | " + sim.Name())
	ebiten.SetTPS(cfg.TPS)
	w, h := game.Layout(0, 0)
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	log.Debug("window", "grid_w", size.W, "grid_h", size.H, "scale", cfg.Scale)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Error("run", "err", err)
		game.Close()
		os.Exit(1)
	}
}
