package wave

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/charmbracelet/log"
	"github.com/milk9111/towerstack/economy"
	"github.com/milk9111/towerstack/ecs"
	"github.com/milk9111/towerstack/prefabs"
)

type Phase int

const (
	Waiting Phase = iota
	Active
)

func (p Phase) String() string {
	if p == Active {
		return "active"
	}
	return "waiting"
}

// Spawner puts one enemy of the given type on the field.
type Spawner interface {
	Spawn(enemyType string) error
}

type SpawnerFunc func(enemyType string) error

func (f SpawnerFunc) Spawn(enemyType string) error {
	return f(enemyType)
}

// Rewarder receives wave payouts.
type Rewarder interface {
	AddReward(r economy.Reward)
}

// State is a read-only view of the scheduler.
type State struct {
	Phase          Phase
	Index          int
	Countdown      float64
	Total          int
	Defeated       int
	ReachedHome    int
	ToSpawn        int
	SpawnCountdown float64
	GameOver       bool
	Current        Definition
}

// Scheduler runs the wave state machine: a countdown while Waiting, then
// timed spawns and completion tracking while Active. Game over is terminal.
type Scheduler struct {
	spec      prefabs.WavesSpec
	table     []Definition
	generator Generator
	spawner   Spawner
	rewarder  Rewarder
	events    *ecs.EventQueue
	rand      *rand.Rand
	logger    *log.Logger

	phase          Phase
	index          int
	countdown      float64
	total          int
	defeated       int
	reachedHome    int
	toSpawn        int
	spawnCountdown float64
	gameOver       bool
	current        Definition
	prior          Definition
}

type Options struct {
	Generator Generator
	Spawner   Spawner
	Rewarder  Rewarder
	Events    *ecs.EventQueue
	Rand      *rand.Rand
	Logger    *log.Logger
}

func NewScheduler(spec prefabs.WavesSpec, opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	gen := opts.Generator
	if gen == nil {
		gen = ProceduralGenerator{}
	}

	table := make([]Definition, 0, len(spec.Table))
	for _, w := range spec.Table {
		table = append(table, Definition{
			Enemies: w.Enemies,
			Types:   append([]string(nil), w.Types...),
			Reward:  economy.Reward{Energy: w.Reward.Energy, Gold: w.Reward.Gold},
		})
	}

	s := &Scheduler{
		spec:      spec,
		table:     table,
		generator: gen,
		spawner:   opts.Spawner,
		rewarder:  opts.Rewarder,
		events:    opts.Events,
		rand:      rng,
		logger:    logger.WithPrefix("wave"),
	}
	s.Reset()
	return s
}

// Reset returns to the first countdown of the first wave.
func (s *Scheduler) Reset() {
	if s == nil {
		return
	}
	s.phase = Waiting
	s.index = 0
	s.countdown = s.spec.FirstCountdown
	s.total = 0
	s.defeated = 0
	s.reachedHome = 0
	s.toSpawn = 0
	s.spawnCountdown = 0
	s.gameOver = false
	s.current = Definition{}
	s.prior = Definition{}
}

func (s *Scheduler) Update(dt float64) {
	if s == nil || s.gameOver || dt < 0 {
		return
	}

	if s.phase == Waiting {
		s.countdown -= dt
		if s.countdown > 0 {
			return
		}
		if err := s.start(); err != nil {
			s.logger.Error("wave start failed", "wave", s.index+1, "err", err)
			s.countdown = s.spec.Interval
			return
		}
	}

	if s.toSpawn > 0 {
		s.spawnCountdown -= dt
		if s.spawnCountdown <= 0 {
			s.spawnOne()
			s.spawnCountdown = s.spec.SpawnInterval
		}
	}

	if s.Complete() {
		s.finish()
	}
}

func (s *Scheduler) start() error {
	def, err := s.definition(s.index)
	if err != nil {
		return err
	}
	s.current = def
	s.phase = Active
	s.total = def.Enemies
	s.toSpawn = def.Enemies
	s.defeated = 0
	s.reachedHome = 0
	s.spawnCountdown = 0
	s.logger.Info("wave started", "wave", s.index+1, "enemies", def.Enemies, "types", def.Types)
	s.events.Push(ecs.Event{Type: ecs.EventWaveStarted, Data: s.index + 1})
	return nil
}

// definition returns the table wave, or synthesizes one past the table. It is
// called once per wave so the composition stays fixed while it plays.
func (s *Scheduler) definition(index int) (Definition, error) {
	if index < len(s.table) {
		return s.table[index], nil
	}
	if len(s.table) == 0 {
		return Definition{}, fmt.Errorf("%w: empty table", ErrBadDefinition)
	}

	rolls := make([]float64, len(s.spec.ProceduralTypes))
	for i := range rolls {
		rolls[i] = s.rand.Float64()
	}
	prior := s.prior
	if len(prior.Types) == 0 {
		prior = s.table[len(s.table)-1]
	}
	return s.generator.Generate(Request{
		Extra:        index - len(s.table) + 1,
		Last:         s.table[len(s.table)-1],
		Prior:        prior,
		Candidates:   s.spec.ProceduralTypes,
		Rolls:        rolls,
		ExtraEnemies: s.spec.ExtraEnemies,
		ExtraReward:  economy.Reward{Energy: s.spec.ExtraReward.Energy, Gold: s.spec.ExtraReward.Gold},
	})
}

// spawnOne draws a type uniformly from the wave's list. A spawn that fails
// shrinks the wave so it can still complete.
func (s *Scheduler) spawnOne() {
	s.toSpawn--
	types := s.current.Types
	if len(types) == 0 || s.spawner == nil {
		s.total--
		return
	}
	enemyType := types[s.rand.Intn(len(types))]
	if err := s.spawner.Spawn(enemyType); err != nil {
		s.total--
		s.logger.Warn("spawn failed", "wave", s.index+1, "type", enemyType, "err", err)
	}
}

func (s *Scheduler) finish() {
	s.logger.Info("wave completed", "wave", s.index+1, "defeated", s.defeated, "reached_home", s.reachedHome)
	if s.rewarder != nil {
		s.rewarder.AddReward(s.current.Reward)
	}
	s.events.Push(ecs.Event{Type: ecs.EventWaveCompleted, Data: s.current.Reward})

	s.prior = s.current
	s.index++
	s.phase = Waiting
	s.countdown = s.spec.Interval
	s.total = 0
	s.defeated = 0
	s.reachedHome = 0
}

// Complete reports whether the active wave has spawned everything and every
// spawned enemy was processed.
func (s *Scheduler) Complete() bool {
	if s == nil {
		return false
	}
	return s.phase == Active && s.toSpawn == 0 && s.defeated+s.reachedHome >= s.total
}

func (s *Scheduler) spawned() int {
	return s.total - s.toSpawn
}

// EnemyDefeated counts a kill for the active wave.
func (s *Scheduler) EnemyDefeated() {
	if s == nil || s.phase != Active || s.defeated+s.reachedHome >= s.spawned() {
		return
	}
	s.defeated++
}

// EnemyReachedHome counts a breach and ends the game. The flag stays set
// until Reset.
func (s *Scheduler) EnemyReachedHome() {
	if s == nil {
		return
	}
	if s.phase == Active && s.defeated+s.reachedHome < s.spawned() {
		s.reachedHome++
	}
	if !s.gameOver {
		s.gameOver = true
		s.logger.Info("game over", "wave", s.index+1)
		s.events.Push(ecs.Event{Type: ecs.EventGameOver, Data: s.index + 1})
	}
}

func (s *Scheduler) GameOver() bool {
	return s != nil && s.gameOver
}

// WaveNumber is the one-based number of the current or upcoming wave.
func (s *Scheduler) WaveNumber() int {
	if s == nil {
		return 0
	}
	return s.index + 1
}

func (s *Scheduler) State() State {
	if s == nil {
		return State{}
	}
	return State{
		Phase:          s.phase,
		Index:          s.index,
		Countdown:      s.countdown,
		Total:          s.total,
		Defeated:       s.defeated,
		ReachedHome:    s.reachedHome,
		ToSpawn:        s.toSpawn,
		SpawnCountdown: s.spawnCountdown,
		GameOver:       s.gameOver,
		Current:        s.current,
	}
}

// StatusText is the one-line wave status shown to the player.
func (s *Scheduler) StatusText() string {
	switch {
	case s == nil:
		return ""
	case s.gameOver:
		return "GAME OVER!"
	case s.phase == Active:
		return fmt.Sprintf("%d enemies left", s.total-(s.defeated+s.reachedHome))
	default:
		return fmt.Sprintf("Next wave in %ds", int(math.Ceil(math.Max(0, s.countdown))))
	}
}
