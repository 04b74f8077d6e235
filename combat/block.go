package combat

import (
	"fmt"
	"math"

	"github.com/milk9111/towerstack/common"
	"github.com/milk9111/towerstack/ecs"
	"github.com/milk9111/towerstack/physics"
	"github.com/milk9111/towerstack/prefabs"
)

type BlockType string

const (
	Plank  BlockType = "plank"
	Square BlockType = "square"
	LShape BlockType = "lshape"
)

type Material string

const (
	Wood  Material = "wood"
	Stone Material = "stone"
	Metal Material = "metal"
)

// cannonLift raises the cannon above the block's top edge.
const cannonLift = 5

// Block is a tower piece. It is pending while it hangs from the rope and
// placed once it owns a body; it never goes back to pending.
type Block struct {
	Entity   ecs.Entity
	Type     BlockType
	Material Material

	X, Y, Angle   float64
	Width, Height float64
	// Parts are the block's boxes relative to its centre of mass.
	Parts []physics.Part

	Durability    float64
	MaxDurability float64
	AttackPower   float64
	AttackRange   float64
	AttackSpeed   float64
	HasWeapon     bool
	CannonX       float64
	CannonY       float64

	Projectiles []*Projectile
	Body        physics.BodyID

	physics     physics.Material
	projectile  prefabs.ProjectileSpec
	hasCollided bool
	attackTimer float64
}

// NewBlock builds a pending block of the given catalog type.
func NewBlock(e ecs.Entity, blockType string, spec *prefabs.BlocksSpec) (*Block, error) {
	if spec == nil {
		return nil, fmt.Errorf("combat: new block: %w", ErrMissingContext)
	}
	entry, ok := spec.Block(blockType)
	if !ok {
		return nil, fmt.Errorf("combat: new block %q: %w", blockType, ErrUnknownType)
	}
	mat, ok := spec.Materials[entry.Material]
	if !ok {
		return nil, fmt.Errorf("combat: new block %q material %q: %w", blockType, entry.Material, ErrUnknownType)
	}

	multiplier := entry.DurabilityMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	durability := entry.Durability * multiplier

	b := &Block{
		Entity:        e,
		Type:          BlockType(entry.Type),
		Material:      Material(entry.Material),
		Width:         entry.Width,
		Height:        entry.Height,
		Durability:    durability,
		MaxDurability: durability,
		AttackPower:   mat.AttackPower,
		AttackRange:   spec.AttackRange,
		AttackSpeed:   entry.AttackSpeed,
		HasWeapon:     entry.Weapon,
		physics: physics.Material{
			Density:    mat.Density,
			Friction:   mat.Friction,
			Elasticity: mat.Elasticity,
		},
		projectile: spec.Projectile,
	}
	b.layout()
	return b, nil
}

// layout derives the parts and cannon mount. Offsets are measured from the
// centre of mass so the pending block and its body share one origin.
func (b *Block) layout() {
	w, h := b.Width, b.Height
	var parts []physics.Part
	var cannonX float64
	switch b.Type {
	case LShape:
		parts = []physics.Part{
			{X: -w / 4, Y: 0, Width: w / 2, Height: h},
			{X: w / 4, Y: h / 4, Width: w / 2, Height: h / 2},
		}
		cannonX = -w / 4
	case Plank:
		parts = []physics.Part{{Width: w, Height: h}}
		cannonX = w / 4
	default:
		parts = []physics.Part{{Width: w, Height: h}}
	}
	cannonY := -h/2 - cannonLift

	cx, cy := physics.Centroid(parts)
	for i := range parts {
		parts[i].X -= cx
		parts[i].Y -= cy
	}
	b.Parts = parts
	b.CannonX = cannonX - cx
	b.CannonY = cannonY - cy
}

// Placed reports whether the block owns a body.
func (b *Block) Placed() bool {
	return b != nil && b.Body != 0
}

// SetPendingPosition moves a block that is still on the rope.
func (b *Block) SetPendingPosition(x, y, angle float64) {
	if b == nil || b.Placed() {
		return
	}
	b.X, b.Y, b.Angle = x, y, angle
}

// CreateBody gives the block a body at its current pending transform.
func (b *Block) CreateBody(world World) error {
	if b == nil || world == nil {
		return fmt.Errorf("combat: create block body: %w", ErrMissingContext)
	}
	if b.Placed() {
		return fmt.Errorf("combat: create block body %v: %w", b.Entity, ErrAlreadyPlaced)
	}
	def := physics.BodyDef{
		Tag:      physics.TagBlock,
		Owner:    b.Entity,
		X:        b.X,
		Y:        b.Y,
		Angle:    b.Angle,
		Material: b.physics,
	}
	var (
		id  physics.BodyID
		err error
	)
	if len(b.Parts) == 1 {
		id, err = world.CreateBox(def, b.Width, b.Height)
	} else {
		id, err = world.CreateCompound(def, b.Parts)
	}
	if err != nil {
		return fmt.Errorf("combat: create block body %v: %w", b.Entity, err)
	}
	b.Body = id
	return nil
}

// MarkCollided arms the block's weapon. It never disarms.
func (b *Block) MarkCollided() {
	if b == nil {
		return
	}
	b.hasCollided = true
}

func (b *Block) HasCollided() bool {
	return b != nil && b.hasCollided
}

func (b *Block) TakeDamage(amount float64) {
	if b == nil || amount <= 0 {
		return
	}
	b.Durability -= amount
}

func (b *Block) Destroyed() bool {
	return b != nil && b.Durability <= 0
}

func (b *Block) HealthFraction() float64 {
	if b == nil || b.MaxDurability <= 0 {
		return 0
	}
	return common.Clamp01(b.Durability / b.MaxDurability)
}

// Extent is the block's larger dimension.
func (b *Block) Extent() float64 {
	return math.Max(b.Width, b.Height)
}

// CannonPosition returns the muzzle in world space.
func (b *Block) CannonPosition() (float64, float64) {
	sin, cos := math.Sincos(b.Angle)
	return b.X + cos*b.CannonX - sin*b.CannonY,
		b.Y + sin*b.CannonX + cos*b.CannonY
}

// Update syncs the block from its body, advances its projectiles and fires
// when the weapon is armed and off cooldown.
func (b *Block) Update(dt float64, world World, enemies []*Enemy) {
	if b == nil {
		return
	}
	if b.Placed() && world != nil {
		if x, y, ok := world.Position(b.Body); ok {
			b.X, b.Y = x, y
		}
		if a, ok := world.Angle(b.Body); ok {
			b.Angle = a
		}
	}

	live := b.Projectiles[:0]
	for _, p := range b.Projectiles {
		p.Update(dt, enemies)
		if p.Active {
			live = append(live, p)
		}
	}
	for i := len(live); i < len(b.Projectiles); i++ {
		b.Projectiles[i] = nil
	}
	b.Projectiles = live

	if !b.hasCollided || !b.HasWeapon || !b.Placed() {
		return
	}
	b.attackTimer -= dt
	if b.attackTimer > 0 {
		return
	}
	target := b.nearestTarget(enemies)
	if target == nil {
		return
	}
	b.fire(target)
	if b.AttackSpeed > 0 {
		b.attackTimer = 1 / b.AttackSpeed
	}
}

// nearestTarget picks the closest living enemy strictly inside range. Ties
// go to the earlier enemy.
func (b *Block) nearestTarget(enemies []*Enemy) *Enemy {
	var target *Enemy
	best := b.AttackRange
	for _, enemy := range enemies {
		if enemy == nil || !enemy.Alive() {
			continue
		}
		if d := math.Hypot(enemy.X-b.X, enemy.Y-b.Y); d < best {
			best = d
			target = enemy
		}
	}
	return target
}

func (b *Block) fire(target *Enemy) {
	x, y := b.CannonPosition()
	b.Projectiles = append(b.Projectiles, NewProjectile(x, y, target.X, target.Y, b.AttackPower, b.projectile))
}
