package combat

import (
	"fmt"
	"math"

	"github.com/milk9111/towerstack/common"
	"github.com/milk9111/towerstack/ecs"
	"github.com/milk9111/towerstack/physics"
	"github.com/milk9111/towerstack/prefabs"
)

type EnemyType string

const (
	Balanced EnemyType = "balanced"
	Fast     EnemyType = "fast"
	Heavy    EnemyType = "heavy"
	Flying   EnemyType = "flying"
)

// Enemy marches toward home. Its position mirrors its body.
type Enemy struct {
	Entity ecs.Entity
	Type   EnemyType

	X, Y   float64
	VX, VY float64

	Radius       float64
	Speed        float64
	PushForce    float64
	Health       float64
	MaxHealth    float64
	Damage       float64
	EnergyReward float64
	Flying       bool

	Body physics.BodyID

	body     physics.Material
	steering prefabs.SteeringSpec

	sampled     bool
	sampleX     float64
	sampleY     float64
	sampleClock float64
	stuckCount  int
}

func NewEnemy(e ecs.Entity, enemyType string, spec *prefabs.EnemiesSpec) (*Enemy, error) {
	if spec == nil {
		return nil, fmt.Errorf("combat: new enemy: %w", ErrMissingContext)
	}
	t, ok := spec.Types[enemyType]
	if !ok {
		return nil, fmt.Errorf("combat: new enemy %q: %w", enemyType, ErrUnknownType)
	}
	return &Enemy{
		Entity:       e,
		Type:         EnemyType(enemyType),
		Radius:       t.Radius,
		Speed:        t.Speed,
		PushForce:    t.PushForce,
		Health:       t.Health,
		MaxHealth:    t.Health,
		Damage:       t.Damage,
		EnergyReward: t.EnergyReward,
		Flying:       t.Flying,
		body: physics.Material{
			Density:    spec.Body.Density,
			Friction:   spec.Body.Friction,
			Elasticity: spec.Body.Elasticity,
		},
		steering: spec.Steering,
	}, nil
}

// CreateBody adds a non-rotating circle at (x, y). Flying enemies ignore
// gravity.
func (e *Enemy) CreateBody(world World, x, y float64) error {
	if e == nil || world == nil {
		return fmt.Errorf("combat: create enemy body: %w", ErrMissingContext)
	}
	if e.Body != 0 {
		return fmt.Errorf("combat: create enemy body %v: %w", e.Entity, ErrAlreadyPlaced)
	}
	id, err := world.CreateCircle(physics.BodyDef{
		Tag:           physics.TagEnemy,
		Owner:         e.Entity,
		X:             x,
		Y:             y,
		Material:      e.body,
		FixedRotation: true,
		NoGravity:     e.Flying,
	}, e.Radius)
	if err != nil {
		return fmt.Errorf("combat: create enemy body %v: %w", e.Entity, err)
	}
	e.Body = id
	e.X, e.Y = x, y
	return nil
}

func (e *Enemy) Alive() bool {
	return e != nil && e.Health > 0
}

func (e *Enemy) TakeDamage(amount float64) {
	if e == nil || amount <= 0 {
		return
	}
	e.Health -= amount
}

func (e *Enemy) HealthFraction() float64 {
	if e == nil || e.MaxHealth <= 0 {
		return 0
	}
	return common.Clamp01(e.Health / e.MaxHealth)
}

// Stuck reports whether the last sampling window saw the enemy stall.
func (e *Enemy) Stuck() bool {
	return e != nil && e.stuckCount > 0
}

// HasReachedObjective reports whether the enemy is close enough to home to
// count as breaching it.
func (e *Enemy) HasReachedObjective(homeX, homeY float64) bool {
	if e == nil || e.Body == 0 {
		return false
	}
	threshold := math.Max(e.Radius*2, e.steering.ReachDistance)
	return math.Hypot(homeX-e.X, homeY-e.Y) < threshold
}

// Update runs one step of steering and contact damage.
func (e *Enemy) Update(dt float64, ctx Context, blocks []*Block) {
	if e == nil || e.Body == 0 || !ctx.valid() || dt <= 0 {
		return
	}
	if e.steering.MaxDT > 0 {
		dt = math.Min(dt, e.steering.MaxDT)
	}

	e.sync(ctx.World)
	e.keepAboveGround(ctx)
	e.steer(dt, ctx)
	e.clampVelocity(ctx.World)
	e.keepAboveGround(ctx)
	e.attack(blocks)
}

func (e *Enemy) sync(world World) {
	if x, y, ok := world.Position(e.Body); ok {
		e.X, e.Y = x, y
	}
	if vx, vy, ok := world.Velocity(e.Body); ok {
		e.VX, e.VY = vx, vy
	}
}

func (e *Enemy) setVelocity(world World, vx, vy float64) {
	e.VX, e.VY = vx, vy
	_ = world.SetVelocity(e.Body, vx, vy)
}

// keepAboveGround stops the enemy sinking through the ground. Upward motion is
// kept.
func (e *Enemy) keepAboveGround(ctx Context) {
	floor := ctx.GroundY - e.Radius
	if e.Y <= floor {
		return
	}
	e.Y = floor
	_ = ctx.World.SetPosition(e.Body, e.X, e.Y)
	e.setVelocity(ctx.World, e.VX, math.Min(0, e.VY))
}

func (e *Enemy) steer(dt float64, ctx Context) {
	s := e.steering
	dx, dy := ctx.HomeX-e.X, ctx.HomeY-e.Y
	dist := math.Hypot(dx, dy)
	if dist < s.ArriveRadius || dist == 0 {
		return
	}
	nx, ny := dx/dist, dy/dist

	multiplier := 1.0
	if e.sampleStuck(dt, dist) {
		e.setVelocity(ctx.World,
			e.VX+(ctx.Rand.Float64()-0.5)*s.StuckJitter,
			e.VY-s.StuckLift)
	}
	if e.stuckCount > 0 {
		multiplier *= s.StuckMultiplier
	}
	if s.ProximityRadius > 0 && dist < s.ProximityRadius {
		multiplier *= 1 + (s.ProximityRadius-dist)/s.ProximityRadius
	}

	vertical := s.VerticalGainAbove
	if e.Y > ctx.HomeY {
		vertical = s.VerticalGainBelow
	}

	mass, ok := ctx.World.Mass(e.Body)
	if !ok {
		return
	}
	push := 1.0
	if s.ReferencePush > 0 {
		push = e.PushForce / s.ReferencePush
	}
	accel := e.Speed * s.BaseGain * push
	_ = ctx.World.ApplyForce(e.Body, mass*nx*accel*multiplier, mass*ny*accel*vertical)

	if dist < s.ApproachRadius {
		speed := math.Min(dist*s.ApproachGain, s.ApproachMaxSpeed)
		e.setVelocity(ctx.World, nx*speed, ny*speed*s.VerticalVelocityRatio)
	}
}

// sampleStuck measures displacement once per window. It reports true on the
// sample that finds the enemy stalled while still far from home.
func (e *Enemy) sampleStuck(dt, dist float64) bool {
	s := e.steering
	if !e.sampled {
		e.sampled = true
		e.sampleX, e.sampleY = e.X, e.Y
		e.sampleClock = 0
		return false
	}
	e.sampleClock += dt
	if e.sampleClock < s.StuckWindow {
		return false
	}
	moved := math.Hypot(e.X-e.sampleX, e.Y-e.sampleY)
	e.sampleX, e.sampleY = e.X, e.Y
	e.sampleClock = 0
	if moved < s.StuckThreshold && dist > s.StuckMinDistance {
		e.stuckCount++
		return true
	}
	e.stuckCount = 0
	return false
}

func (e *Enemy) clampVelocity(world World) {
	s := e.steering
	if s.VelocityScale <= 0 {
		return
	}
	if vx, vy, ok := world.Velocity(e.Body); ok {
		e.VX, e.VY = vx, vy
	}
	maxX := e.Speed * s.VelocityScale
	maxY := maxX * s.VerticalVelocityRatio
	vx := common.Clamp(e.VX, -maxX, maxX)
	vy := common.Clamp(e.VY, -maxY, maxY)
	if vx != e.VX || vy != e.VY {
		e.setVelocity(world, vx, vy)
	}
}

// attack grinds down every placed block the enemy is pressed against.
func (e *Enemy) attack(blocks []*Block) {
	reach := e.Radius * 2
	amount := e.Damage * e.steering.ContactDamageScale
	for _, b := range blocks {
		if b == nil || !b.Placed() {
			continue
		}
		if math.Hypot(b.X-e.X, b.Y-e.Y) < reach+b.Extent()/2 {
			b.TakeDamage(amount)
		}
	}
}
