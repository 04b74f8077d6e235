package combat

import (
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	"github.com/milk9111/towerstack/common"
	"github.com/milk9111/towerstack/ecs"
	"github.com/milk9111/towerstack/prefabs"
)

// OutcomeKind says how an enemy left the field.
type OutcomeKind int

const (
	Defeated OutcomeKind = iota + 1
	ReachedHome
)

func (k OutcomeKind) String() string {
	switch k {
	case Defeated:
		return "defeated"
	case ReachedHome:
		return "reached_home"
	default:
		return "unknown"
	}
}

type Outcome struct {
	Entity ecs.Entity
	Type   EnemyType
	Kind   OutcomeKind
	Reward float64
}

// Enemies owns the living enemies and their spawn placement.
type Enemies struct {
	world  World
	spec   *prefabs.EnemiesSpec
	spawn  prefabs.SpawnSpec
	width  float64
	logger *log.Logger
	items  *ecs.SparseSet[*Enemy]
}

func NewEnemies(world World, spec *prefabs.EnemiesSpec, ws prefabs.WorldSpec, logger *log.Logger) *Enemies {
	if logger == nil {
		logger = log.Default()
	}
	return &Enemies{
		world:  world,
		spec:   spec,
		spawn:  ws.Spawn,
		width:  ws.Viewport.Width,
		logger: logger.WithPrefix("enemies"),
		items:  ecs.NewSparseSet[*Enemy](),
	}
}

// Spawn places a new enemy near the right edge and gives it a push toward
// home.
func (es *Enemies) Spawn(e ecs.Entity, enemyType string, ctx Context) (*Enemy, error) {
	if es == nil || !ctx.valid() {
		return nil, fmt.Errorf("combat: spawn: %w", ErrMissingContext)
	}
	enemy, err := NewEnemy(e, enemyType, es.spec)
	if err != nil {
		return nil, err
	}

	x := es.width - es.spawn.Margin - ctx.Rand.Float64()*es.spawn.JitterX
	y := ctx.GroundY - es.spawn.AboveGround - ctx.Rand.Float64()*es.spawn.JitterY
	if y+enemy.Radius > ctx.GroundY {
		y = ctx.GroundY - enemy.Radius
	}
	if err := enemy.CreateBody(es.world, x, y); err != nil {
		return nil, err
	}

	dx := ctx.HomeX - x
	vx := common.Sign(dx) * enemy.Speed * math.Abs(dx) * es.spec.Steering.SpawnPush
	vy := -es.spec.Steering.SpawnLift
	enemy.setVelocity(es.world, vx, vy)

	es.items.Set(e, enemy)
	es.logger.Debug("enemy spawned", "entity", e, "type", enemyType, "x", x, "y", y)
	return enemy, nil
}

func (es *Enemies) Get(e ecs.Entity) (*Enemy, bool) {
	if es == nil {
		return nil, false
	}
	return es.items.Get(e)
}

// All returns the living enemies in spawn order. The slice is shared.
func (es *Enemies) All() []*Enemy {
	if es == nil {
		return nil
	}
	return es.items.Values()
}

func (es *Enemies) Len() int {
	if es == nil {
		return 0
	}
	return es.items.Len()
}

// Update steers every enemy, then removes the ones that died or reached home.
// An enemy is reported once, as defeated if both apply.
func (es *Enemies) Update(dt float64, ctx Context, blocks []*Block) []Outcome {
	if es == nil {
		return nil
	}
	for _, enemy := range es.items.Values() {
		enemy.Update(dt, ctx, blocks)
	}

	var outcomes []Outcome
	for _, enemy := range es.items.Values() {
		switch {
		case !enemy.Alive():
			outcomes = append(outcomes, Outcome{Entity: enemy.Entity, Type: enemy.Type, Kind: Defeated, Reward: enemy.EnergyReward})
		case enemy.HasReachedObjective(ctx.HomeX, ctx.HomeY):
			outcomes = append(outcomes, Outcome{Entity: enemy.Entity, Type: enemy.Type, Kind: ReachedHome})
		}
	}
	for _, o := range outcomes {
		if err := es.Remove(o.Entity); err != nil {
			es.logger.Warn("remove failed", "entity", o.Entity, "err", err)
		}
	}
	return outcomes
}

// Remove drops an enemy and destroys its body in the same call.
func (es *Enemies) Remove(e ecs.Entity) error {
	if es == nil {
		return fmt.Errorf("combat: remove enemy: %w", ErrMissingContext)
	}
	enemy, ok := es.items.Get(e)
	if !ok {
		return fmt.Errorf("combat: remove enemy %v: %w", e, ErrUnknownEntity)
	}
	es.items.Remove(e)
	body := enemy.Body
	enemy.Body = 0
	if body != 0 && es.world != nil {
		if err := es.world.Remove(body); err != nil {
			return fmt.Errorf("combat: remove enemy %v: %w", e, err)
		}
	}
	return nil
}

func (es *Enemies) Clear() {
	if es == nil {
		return
	}
	for _, enemy := range es.items.Values() {
		enemy.Body = 0
	}
	es.items.Clear()
}
