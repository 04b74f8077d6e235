// Package sim ties the physics world, the tower, the enemies, the waves and
// the economy together behind a fixed-timestep loop.
package sim

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
	"github.com/milk9111/towerstack/builder"
	"github.com/milk9111/towerstack/clock"
	"github.com/milk9111/towerstack/combat"
	"github.com/milk9111/towerstack/economy"
	"github.com/milk9111/towerstack/ecs"
	"github.com/milk9111/towerstack/physics"
	"github.com/milk9111/towerstack/prefabs"
	"github.com/milk9111/towerstack/wave"
)

var ErrNilSpec = errors.New("sim: nil spec")

type Options struct {
	Seed  int64
	Input Input
	// Generator overrides the wave generator built from the waves script.
	Generator wave.Generator
	Logger    *log.Logger
}

// Loop owns every gameplay component and advances them in a fixed order.
// It is not safe for concurrent use; all calls come from the game goroutine.
type Loop struct {
	spec   *prefabs.GameSpec
	logger *log.Logger
	input  Input
	seed   int64

	stepper  *clock.Stepper
	timers   *clock.Timers
	registry *ecs.Registry
	events   *ecs.EventQueue
	systems  *ecs.Scheduler
	rand     *rand.Rand

	world      *physics.World
	ground     ecs.Entity
	groundBody physics.BodyID
	groundY    float64
	homeX      float64
	homeY      float64

	generator      wave.Generator
	fixedGenerator bool
	ledger         *economy.Ledger
	waves          *wave.Scheduler
	blocks         *combat.Blocks
	enemies        *combat.Enemies
	builder        *builder.Controller

	running       bool
	gameOver      bool
	dropRequested bool
	last          time.Time

	frames      uint64
	steps       uint64
	fps         float64
	fpsFrames   int
	fpsMark     time.Time
	frameEvents []ecs.Event
	totals      map[ecs.EventType]int
}

func New(spec *prefabs.GameSpec, opts Options) (*Loop, error) {
	if spec == nil {
		return nil, ErrNilSpec
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("sim: new loop: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	input := opts.Input
	if input == nil {
		input = NopInput{}
	}

	l := &Loop{
		spec:     spec,
		logger:   logger,
		input:    input,
		seed:     opts.Seed,
		timers:   clock.NewTimers(),
		registry: ecs.NewRegistry(),
		events:   &ecs.EventQueue{},
		totals:   make(map[ecs.EventType]int),
	}
	l.configure()
	if opts.Generator != nil {
		l.generator = opts.Generator
		l.fixedGenerator = true
	}

	l.systems = ecs.NewScheduler(
		l.guard("input", l.sampleInput),
		l.guard("physics", l.world.Advance),
		l.guard("builder", l.updateBuilder),
		l.guard("blocks", l.updateBlocks),
		l.guard("enemies", l.updateEnemies),
		l.guard("waves", l.updateWaves),
		l.guard("ledger", l.updateLedger),
		l.guard("collisions", l.resolveCollisions),
		l.guard("terminal", l.checkTerminal),
	)

	if err := l.build(); err != nil {
		return nil, err
	}
	return l, nil
}

// configure applies the tuning that outlives a Reset.
func (l *Loop) configure() {
	loop := l.spec.World.Loop
	l.stepper = clock.NewStepper(loop.FixedStep, loop.MaxDelta, loop.MaxSubSteps)
	if l.world == nil {
		l.world = physics.NewWorld(physics.ConfigFromSpec(l.spec.World.Physics), l.logger)
	} else {
		l.world.Configure(physics.ConfigFromSpec(l.spec.World.Physics))
	}
	if !l.fixedGenerator {
		l.generator = newGenerator(l.spec.Waves, l.logger)
	}
}

func newGenerator(spec prefabs.WavesSpec, logger *log.Logger) wave.Generator {
	fallback := wave.ProceduralGenerator{}
	if spec.Script == "" {
		return fallback
	}
	src, err := prefabs.LoadScript(spec.Script)
	if err != nil {
		logger.Warn("waves script unavailable", "script", spec.Script, "err", err)
		return fallback
	}
	script, err := wave.NewScriptGenerator(src)
	if err != nil {
		logger.Warn("waves script rejected", "script", spec.Script, "err", err)
		return fallback
	}
	return wave.FallbackGenerator{Primary: script, Fallback: fallback, Logger: logger}
}

// build creates the ground and every per-game component. The world must be
// empty.
func (l *Loop) build() error {
	ws := l.spec.World
	l.rand = rand.New(rand.NewSource(l.seed))

	l.ground = l.registry.Create()
	mat := physics.Material{Friction: ws.Ground.Friction, Elasticity: ws.Ground.Elasticity}
	body, err := l.world.CreateGround(l.ground, ws.Viewport.Width/2, ws.GroundCenterY(), ws.Viewport.Width, ws.Ground.Height, mat)
	if err != nil {
		return fmt.Errorf("sim: create ground: %w", err)
	}
	l.groundBody = body
	l.groundY = ws.GroundTop()
	l.homeX, l.homeY = ws.HomePosition()

	l.ledger = economy.NewLedger(l.spec.Economy)
	l.blocks = combat.NewBlocks(l.world, l.logger)
	l.enemies = combat.NewEnemies(l.world, &l.spec.Enemies, ws, l.logger)
	l.waves = wave.NewScheduler(l.spec.Waves, wave.Options{
		Generator: l.generator,
		Spawner:   wave.SpawnerFunc(l.spawnEnemy),
		Rewarder:  l.ledger,
		Events:    l.events,
		Rand:      l.rand,
		Logger:    l.logger,
	})
	ctrl, err := builder.NewController(&l.spec.Blocks, ws.Viewport.Width, builder.Options{
		Ledger:   l.ledger,
		Blocks:   l.blocks,
		World:    l.world,
		Timers:   l.timers,
		Registry: l.registry,
		Events:   l.events,
		Rand:     l.rand,
		Logger:   l.logger,
	})
	if err != nil {
		return fmt.Errorf("sim: create builder: %w", err)
	}
	l.builder = ctrl
	return nil
}

func (l *Loop) Start() {
	if l == nil || l.running {
		return
	}
	l.running = true
	l.last = time.Time{}
	l.logger.Info("loop started", "seed", l.seed)
}

func (l *Loop) Stop() {
	if l == nil || !l.running {
		return
	}
	l.running = false
	l.logger.Info("loop stopped", "steps", l.steps)
}

func (l *Loop) Running() bool {
	return l != nil && l.running
}

// Reset cancels every pending timer, empties the physics world and rebuilds
// the ledger, the waves, the tower and the builder from the tuning. The running
// state is kept.
func (l *Loop) Reset() error {
	if l == nil {
		return ErrNilSpec
	}
	cancelled := l.timers.CancelAll()
	l.blocks.Clear()
	l.enemies.Clear()
	l.world.Reset()
	l.registry.Reset()
	l.events.Clear()
	l.frameEvents = nil
	l.stepper.Reset()
	l.gameOver = false
	l.dropRequested = false
	l.last = time.Time{}
	clear(l.totals)

	if err := l.build(); err != nil {
		return err
	}
	l.logger.Info("loop reset", "timers", cancelled, "bodies", l.world.BodyCount())
	return nil
}

// Reload swaps in new tuning and resets.
func (l *Loop) Reload(spec *prefabs.GameSpec) error {
	if l == nil || spec == nil {
		return ErrNilSpec
	}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("sim: reload: %w", err)
	}
	l.spec = spec
	l.configure()
	return l.Reset()
}

// Frame advances the loop to wall time now. It reports whether at least one
// sub-step ran, which is when the caller should draw.
func (l *Loop) Frame(now time.Time) bool {
	if l == nil || !l.running {
		return false
	}
	if l.last.IsZero() {
		l.last = now
		l.fpsMark = now
		return false
	}
	dt := now.Sub(l.last).Seconds()
	l.last = now

	l.fpsFrames++
	if elapsed := now.Sub(l.fpsMark); elapsed >= time.Second {
		l.fps = float64(l.fpsFrames) / elapsed.Seconds()
		l.fpsFrames = 0
		l.fpsMark = now
	}
	return l.Step(dt)
}

// Step advances the loop by dt seconds of wall time regardless of the running
// state. Headless runs drive the loop through it.
func (l *Loop) Step(dt float64) bool {
	if l == nil {
		return false
	}
	tick := l.stepper.Advance(dt, l.subStep)
	if tick.Clamped {
		l.logger.Debug("frame delta clamped", "dt", dt, "max", l.stepper.MaxDelta)
	}
	if tick.Discarded > 0 {
		l.logger.Warn("sub-step budget exhausted", "discarded", tick.Discarded)
	}
	l.steps += uint64(tick.Steps)

	l.frameEvents = l.events.Drain()
	for _, evt := range l.frameEvents {
		l.totals[evt.Type]++
	}
	if tick.Steps == 0 {
		return false
	}
	l.frames++
	return true
}

func (l *Loop) subStep(dt float64) {
	l.timers.Advance(dt)
	if l.gameOver {
		return
	}
	l.systems.Update(dt)
}

// guard keeps a panicking system from taking the loop down with it.
func (l *Loop) guard(name string, fn func(dt float64)) ecs.System {
	return ecs.SystemFunc(func(dt float64) {
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("system panicked", "system", name, "panic", r)
			}
		}()
		fn(dt)
	})
}

func (l *Loop) context() combat.Context {
	return combat.Context{
		World:   l.world,
		HomeX:   l.homeX,
		HomeY:   l.homeY,
		GroundY: l.groundY,
		Rand:    l.rand,
	}
}

func (l *Loop) sampleInput(float64) {
	l.input.Update()
	if l.input.DropRequested() {
		l.dropRequested = true
	}
}

func (l *Loop) updateBuilder(dt float64) {
	if l.dropRequested {
		l.dropRequested = false
		l.builder.Drop()
	}
	l.builder.Update(dt)
}

func (l *Loop) updateBlocks(dt float64) {
	l.blocks.Update(dt, l.enemies.All())
}

func (l *Loop) updateEnemies(dt float64) {
	for _, o := range l.enemies.Update(dt, l.context(), l.blocks.All()) {
		l.registry.Destroy(o.Entity)
		switch o.Kind {
		case combat.Defeated:
			l.waves.EnemyDefeated()
			l.ledger.AddEnergy(o.Reward)
			l.events.Push(ecs.Event{Type: ecs.EventEnemyDefeated, Entity: o.Entity, Data: o.Reward})
		case combat.ReachedHome:
			l.waves.EnemyReachedHome()
			l.events.Emit(ecs.EventEnemyReachedHome, o.Entity)
		}
	}
}

func (l *Loop) spawnEnemy(enemyType string) error {
	e := l.registry.Create()
	if _, err := l.enemies.Spawn(e, enemyType, l.context()); err != nil {
		l.registry.Destroy(e)
		return err
	}
	l.events.Push(ecs.Event{Type: ecs.EventEnemySpawned, Entity: e, Data: enemyType})
	return nil
}

func (l *Loop) updateWaves(dt float64) {
	l.waves.Update(dt)
}

func (l *Loop) updateLedger(dt float64) {
	l.ledger.Update(dt)
}

// resolveCollisions turns the pairs that began during this sub-step's physics
// advance into gameplay effects.
func (l *Loop) resolveCollisions(float64) {
	scale := l.spec.World.ImpactDamageScale
	for _, c := range l.world.Drain() {
		if block, _, ok := c.Match(physics.TagBlock, physics.TagGround); ok {
			l.markCollided(block)
			continue
		}
		if a, b, ok := c.Match(physics.TagBlock, physics.TagBlock); ok {
			l.markCollided(a)
			l.markCollided(b)
			continue
		}
		enemyEntity, blockEntity, ok := c.Match(physics.TagEnemy, physics.TagBlock)
		if !ok {
			continue
		}
		enemy, ok := l.enemies.Get(enemyEntity)
		if !ok {
			continue
		}
		block, ok := l.blocks.Get(blockEntity)
		if !ok {
			continue
		}
		block.TakeDamage(enemy.Damage * scale)
		if block.Destroyed() {
			l.removeBlock(blockEntity)
		}
	}

	fallY := l.spec.World.Viewport.Height + l.spec.World.FallLimit
	for _, e := range l.blocks.Prune(fallY) {
		l.registry.Destroy(e)
		l.events.Emit(ecs.EventBlockDestroyed, e)
	}
}

func (l *Loop) markCollided(e ecs.Entity) {
	if block, ok := l.blocks.Get(e); ok {
		block.MarkCollided()
	}
}

func (l *Loop) removeBlock(e ecs.Entity) {
	if err := l.blocks.Remove(e); err != nil {
		l.logger.Warn("remove block", "entity", e, "err", err)
	}
	l.registry.Destroy(e)
	l.events.Emit(ecs.EventBlockDestroyed, e)
}

func (l *Loop) checkTerminal(float64) {
	if l.gameOver || !l.waves.GameOver() {
		return
	}
	l.gameOver = true
	l.logger.Warn("game over", "wave", l.waves.WaveNumber(), "steps", l.steps)
}

// UpgradeEnergyRate spends gold on a faster energy income. It is refused
// after game over. The upgrade is applied between sub-steps.
func (l *Loop) UpgradeEnergyRate() bool {
	if l == nil || l.gameOver {
		return false
	}
	if !l.ledger.UpgradeEnergyRate() {
		return false
	}
	rate, _ := l.ledger.Rates()
	l.events.Push(ecs.Event{Type: ecs.EventEnergyUpgraded, Data: rate})
	l.logger.Info("energy rate upgraded", "rate", rate, "gold", l.ledger.Gold())
	return true
}

func (l *Loop) GameOver() bool {
	return l != nil && l.gameOver
}

// Events returns the events raised during the last Step.
func (l *Loop) Events() []ecs.Event {
	if l == nil {
		return nil
	}
	return l.frameEvents
}

func (l *Loop) FPS() float64 {
	if l == nil {
		return 0
	}
	return l.fps
}

// Stats summarises a run for reports.
type Stats struct {
	Elapsed     float64
	Steps       uint64
	Frames      uint64
	Wave        int
	Blocks      int
	Enemies     int
	Energy      float64
	Gold        float64
	GameOver    bool
	Placed      int
	Destroyed   int
	Spawned     int
	Defeated    int
	ReachedHome int
	Upgrades    int
	EnergyRate  float64
	Bodies      int
}

func (l *Loop) Stats() Stats {
	if l == nil {
		return Stats{}
	}
	energyRate, _ := l.ledger.Rates()
	return Stats{
		Elapsed:     l.stepper.Elapsed(),
		Steps:       l.steps,
		Frames:      l.frames,
		Wave:        l.waves.WaveNumber(),
		Blocks:      l.blocks.Len(),
		Enemies:     l.enemies.Len(),
		Energy:      l.ledger.Energy(),
		Gold:        l.ledger.Gold(),
		GameOver:    l.gameOver,
		Placed:      l.totals[ecs.EventBlockPlaced],
		Destroyed:   l.totals[ecs.EventBlockDestroyed],
		Spawned:     l.totals[ecs.EventEnemySpawned],
		Defeated:    l.totals[ecs.EventEnemyDefeated],
		ReachedHome: l.totals[ecs.EventEnemyReachedHome],
		Upgrades:    l.totals[ecs.EventEnergyUpgraded],
		EnergyRate:  energyRate,
		Bodies:      l.world.Len(),
	}
}

// World exposes the physics world for debug drawing.
func (l *Loop) World() *physics.World {
	if l == nil {
		return nil
	}
	return l.world
}
