//go:build ebiten

package app

import (
	"io"
	"log/slog"
	"time"

	"multilife/internal/colorize"
	"multilife/internal/core"
	"multilife/internal/render"
	"multilife/internal/ui"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const hudWidth = 240

// Game adapts a core simulation to the ebiten.Game interface.
type Game struct {
	sim     core.Sim
	painter *render.GridPainter
	hud     *ui.HUD
	overlay *ui.Overlay
	log     *slog.Logger

	scale    int
	paused   bool
	tickOnce bool
	seed     int64

	titleAt time.Time
}

// New constructs a Game for the provided simulation.
func New(sim core.Sim, scale int, seed int64, log *slog.Logger) *Game {
	if scale <= 0 {
		scale = 1
	}
	size := sim.Size()
	return &Game{
		sim:     sim,
		painter: render.NewGridPainter(size.W, size.H),
		hud:     ui.NewHUD(sim, hudWidth),
		overlay: ui.NewOverlay(sim, scale),
		log:     log,
		scale:   scale,
		seed:    seed,
	}
}

// Reset reinitializes the simulation state with the provided seed.
func (g *Game) Reset(seed int64) {
	g.seed = seed
	g.sim.Reset(seed)
	g.tickOnce = false
	g.log.Info("reset", "sim", g.sim.Name(), "seed", seed)
}

// Update handles per-frame logic and advances the simulation.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.paused = false
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		g.tickOnce = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.Reset(g.seed)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.Reset(time.Now().UnixNano())
	}
	g.handleDispatchKeys()
	g.overlay.Update()

	if !g.paused || g.tickOnce {
		g.sim.Step()
		g.tickOnce = false
	}
	g.hud.Update()
	if now := time.Now(); now.Sub(g.titleAt) >= time.Second {
		g.titleAt = now
		ebiten.SetWindowTitle(ui.StatusLine(g.sim.Name(), ebiten.ActualFPS(), g.hud.Snapshot()))
	}
	return nil
}

// handleDispatchKeys adjusts the work-group size with [ and ] and the global
// work size with - and =, halving or doubling each. 0 means automatic.
func (g *Game) handleDispatchKeys() {
	setter, ok := g.sim.(core.IntParameterSetter)
	if !ok {
		return
	}
	getter, _ := g.sim.(core.IntParameterGetter)
	adjust := func(key string, up bool, auto int) {
		cur, limit := 0, 0
		if getter != nil {
			cur, _ = getter.IntParameter(key)
			if key == "local_size" {
				limit, _ = getter.IntParameter("max_local_size")
			}
		}
		next := halveOrDouble(cur, up, auto, limit)
		if setter.SetIntParameter(key, next) {
			g.log.Info("dispatch size changed", "param", key, "value", next)
		}
	}
	size := g.sim.Size()
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyBracketLeft):
		adjust("local_size", false, 64)
	case inpututil.IsKeyJustPressed(ebiten.KeyBracketRight):
		adjust("local_size", true, 64)
	case inpututil.IsKeyJustPressed(ebiten.KeyMinus):
		adjust("work_items", false, size.Cells())
	case inpututil.IsKeyJustPressed(ebiten.KeyEqual):
		adjust("work_items", true, size.Cells())
	}
}

// Draw renders the current simulation state.
func (g *Game) Draw(screen *ebiten.Image) {
	var rgba []byte
	if p, ok := g.sim.(core.RGBAProvider); ok {
		rgba = p.RGBA()
	}
	if rgba != nil {
		g.painter.Present(screen, rgba, g.scale)
	} else {
		g.painter.Blit(screen, g.sim.Cells(), colorize.Palette(), colorize.Fallback, g.scale)
	}
	g.overlay.Draw(screen)
	g.hud.Draw(screen, g.sim.Size().W*g.scale, g.scale)
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	s := g.sim.Size()
	return s.W*g.scale + g.hud.Width(), s.H * g.scale
}

// Close releases sims that hold device sessions.
func (g *Game) Close() error {
	if c, ok := g.sim.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
