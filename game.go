package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/milk9111/towerstack/prefabs"
	"github.com/milk9111/towerstack/render"
	"github.com/milk9111/towerstack/sim"
)

type GameOptions struct {
	Seed   int64
	Debug  bool
	Logger *log.Logger
	// Reload loads fresh tuning when the watcher reports a change.
	Reload func() (*prefabs.GameSpec, error)
}

type Game struct {
	loop     *sim.Loop
	input    *Input
	renderer *render.Renderer
	watcher  *prefabs.Watcher
	reload   func() (*prefabs.GameSpec, error)
	pauseUI  *PauseUI
	logger   *log.Logger
	debug    bool

	width, height int
	snapshot      sim.Snapshot
}

func NewGame(spec *prefabs.GameSpec, opts GameOptions) (*Game, error) {
	if spec == nil {
		return nil, errors.New("game: nil spec")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	input := NewInput()
	loop, err := sim.New(spec, sim.Options{Seed: opts.Seed, Input: input, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("game: %w", err)
	}
	loop.Start()

	g := &Game{
		loop:     loop,
		input:    input,
		renderer: render.NewRenderer(opts.Debug),
		reload:   opts.Reload,
		logger:   logger.WithPrefix("game"),
		debug:    opts.Debug,
		width:    int(spec.World.Viewport.Width),
		height:   int(spec.World.Viewport.Height),
		snapshot: loop.Snapshot(),
	}
	g.pauseUI = NewPauseUI(g, g.width, g.height)
	return g, nil
}

func (g *Game) Update() error {
	g.checkReload()

	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.Restart()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyU) {
		g.Upgrade()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		if g.loop.Running() {
			g.loop.Stop()
		} else {
			g.Resume()
		}
	}
	if g.menuVisible() {
		g.pauseUI.SetGameOver(g.loop.GameOver())
		g.pauseUI.ui.Update()
	}

	if g.loop.Frame(time.Now()) {
		g.snapshot = g.loop.Snapshot()
	}
	for _, evt := range g.loop.Events() {
		g.logger.Debug("event", "type", evt.Type, "entity", evt.Entity, "data", evt.Data)
	}
	return nil
}

// Resume restarts the clock of a paused game. A finished game stays put.
func (g *Game) Resume() {
	if g.loop.GameOver() {
		return
	}
	g.loop.Start()
}

// Upgrade buys a faster energy income with gold.
func (g *Game) Upgrade() {
	if g.loop.UpgradeEnergyRate() {
		g.snapshot = g.loop.Snapshot()
	}
}

// Restart rebuilds the game from the current tuning and keeps it running.
func (g *Game) Restart() {
	if err := g.loop.Reset(); err != nil {
		g.logger.Error("reset failed", "err", err)
		return
	}
	g.loop.Start()
	g.snapshot = g.loop.Snapshot()
}

func (g *Game) menuVisible() bool {
	return !g.loop.Running() || g.loop.GameOver()
}

func (g *Game) checkReload() {
	if g.watcher == nil || g.reload == nil || !g.watcher.Changed() {
		return
	}
	spec, err := g.reload()
	if err != nil {
		g.logger.Error("reload tuning", "err", err)
		return
	}
	if err := g.loop.Reload(spec); err != nil {
		g.logger.Error("apply tuning", "err", err)
		return
	}
	g.width, g.height = int(spec.World.Viewport.Width), int(spec.World.Viewport.Height)
	g.snapshot = g.loop.Snapshot()
	g.logger.Info("tuning reloaded")
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.renderer.Draw(screen, g.snapshot)
	if g.debug {
		render.DrawPhysicsDebug(g.loop.World(), screen)
	}
	if g.menuVisible() {
		g.pauseUI.ui.Draw(screen)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.width, g.height
}
