package combat

import (
	"io"
	"math"
	"math/rand"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/milk9111/towerstack/ecs"
	"github.com/milk9111/towerstack/physics"
	"github.com/milk9111/towerstack/prefabs"
)

const step = 1.0 / 60.0

func testSpec(t *testing.T) *prefabs.GameSpec {
	t.Helper()
	spec, err := prefabs.LoadGameSpec("")
	if err != nil {
		t.Fatalf("LoadGameSpec: %v", err)
	}
	return spec
}

func testWorld(spec *prefabs.GameSpec) *physics.World {
	return physics.NewWorld(physics.ConfigFromSpec(spec.World.Physics), log.New(io.Discard))
}

func testContext(world World, spec *prefabs.GameSpec) Context {
	hx, hy := spec.World.HomePosition()
	return Context{
		World:   world,
		HomeX:   hx,
		HomeY:   hy,
		GroundY: spec.World.GroundTop(),
		Rand:    rand.New(rand.NewSource(1)),
	}
}

func placedBlock(t *testing.T, spec *prefabs.GameSpec, world World, blockType string, e ecs.Entity, x, y float64) *Block {
	t.Helper()
	b, err := NewBlock(e, blockType, &spec.Blocks)
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	b.SetPendingPosition(x, y, 0)
	if err := b.CreateBody(world); err != nil {
		t.Fatalf("CreateBody: %v", err)
	}
	return b
}

func standingEnemy(t *testing.T, spec *prefabs.GameSpec, enemyType string, x, y float64) *Enemy {
	t.Helper()
	enemy, err := NewEnemy(ecs.Entity(100), enemyType, &spec.Enemies)
	if err != nil {
		t.Fatalf("NewEnemy: %v", err)
	}
	enemy.X, enemy.Y = x, y
	return enemy
}

func TestProjectileExpiresAfterLifetime(t *testing.T) {
	p := NewProjectile(0, 0, 100, 0, 10, prefabs.ProjectileSpec{Speed: 300, Lifetime: 2, Radius: 5})

	for i := 0; i < 119; i++ {
		p.Update(step, nil)
	}
	if !p.Active {
		t.Fatalf("projectile expired early after %v travelled", p.Travelled)
	}

	p.Update(step, nil)
	if p.Active {
		t.Fatalf("projectile should expire at t=2s, lifetime left %v", p.Lifetime)
	}
	if math.Abs(p.Travelled-600) > 1e-6 || math.Abs(p.X-600) > 1e-6 || p.Y != 0 {
		t.Fatalf("expected 600 units along +x, got travelled=%v pos=(%v,%v)", p.Travelled, p.X, p.Y)
	}

	p.Update(step, nil)
	if p.X > 600+1e-6 {
		t.Fatalf("inactive projectile kept moving")
	}
}

func TestProjectileHitsOnce(t *testing.T) {
	spec := testSpec(t)
	first := standingEnemy(t, spec, "balanced", 30, 0)
	second := standingEnemy(t, spec, "balanced", 32, 0)
	p := NewProjectile(0, 0, 100, 0, 25, spec.Blocks.Projectile)

	for i := 0; i < 60 && p.Active; i++ {
		p.Update(step, []*Enemy{first, second})
	}

	if p.Active {
		t.Fatalf("projectile never hit")
	}
	if first.Health != first.MaxHealth-25 {
		t.Fatalf("expected first enemy to take 25, health %v", first.Health)
	}
	if second.Health != second.MaxHealth {
		t.Fatalf("projectile must not pierce, second health %v", second.Health)
	}
}

func TestNewBlockStats(t *testing.T) {
	spec := testSpec(t)
	cases := []struct {
		blockType  string
		weapon     bool
		durability float64
		speed      float64
	}{
		{"plank", true, 100, 1},
		{"square", true, 150, 2},
		{"lshape", false, 800, 1},
	}

	for _, c := range cases {
		t.Run(c.blockType, func(t *testing.T) {
			b, err := NewBlock(1, c.blockType, &spec.Blocks)
			if err != nil {
				t.Fatalf("NewBlock: %v", err)
			}
			if b.HasWeapon != c.weapon || b.MaxDurability != c.durability || b.AttackSpeed != c.speed {
				t.Fatalf("unexpected stats weapon=%v durability=%v speed=%v", b.HasWeapon, b.MaxDurability, b.AttackSpeed)
			}
		})
	}

	if _, err := NewBlock(1, "pyramid", &spec.Blocks); err == nil {
		t.Fatalf("expected error for unknown block type")
	}
}

func TestBlockHoldsFireUntilCollided(t *testing.T) {
	spec := testSpec(t)
	world := testWorld(spec)
	b := placedBlock(t, spec, world, "plank", 1, 400, 300)
	enemy := standingEnemy(t, spec, "heavy", 550, 300)
	enemies := []*Enemy{enemy}

	for i := 0; i < 10; i++ {
		b.Update(step, world, enemies)
	}
	if len(b.Projectiles) != 0 {
		t.Fatalf("block fired before touching anything")
	}

	b.MarkCollided()
	b.Update(step, world, enemies)
	if len(b.Projectiles) != 1 {
		t.Fatalf("expected one shot once armed, got %d", len(b.Projectiles))
	}
	b.Update(step, world, enemies)
	if len(b.Projectiles) != 1 {
		t.Fatalf("expected cooldown to hold fire, got %d projectiles", len(b.Projectiles))
	}
}

func TestUnarmedBlockNeverFires(t *testing.T) {
	spec := testSpec(t)
	world := testWorld(spec)
	b := placedBlock(t, spec, world, "lshape", 1, 400, 300)
	b.MarkCollided()
	enemies := []*Enemy{standingEnemy(t, spec, "heavy", 420, 300)}

	for i := 0; i < 300; i++ {
		world.Advance(step)
		b.Update(step, world, enemies)
		if len(b.Projectiles) != 0 {
			t.Fatalf("lshape fired on step %d", i)
		}
	}
}

func TestTargetsNearestThenFirst(t *testing.T) {
	spec := testSpec(t)
	world := testWorld(spec)
	b := placedBlock(t, spec, world, "square", 1, 400, 300)
	b.MarkCollided()

	far := standingEnemy(t, spec, "balanced", 400, 150)
	left := standingEnemy(t, spec, "balanced", 300, 300)
	right := standingEnemy(t, spec, "balanced", 500, 300)
	b.Update(step, world, []*Enemy{far, left, right})

	if len(b.Projectiles) != 1 {
		t.Fatalf("expected one projectile, got %d", len(b.Projectiles))
	}
	if p := b.Projectiles[0]; p.DirX >= 0 {
		t.Fatalf("tie should go to the first enemy in order, direction (%v,%v)", p.DirX, p.DirY)
	}
}

func TestOutOfRangeIsIgnored(t *testing.T) {
	spec := testSpec(t)
	world := testWorld(spec)
	b := placedBlock(t, spec, world, "plank", 1, 0, 0)
	b.MarkCollided()

	edge := standingEnemy(t, spec, "balanced", b.AttackRange, 0)
	b.Update(step, world, []*Enemy{edge})
	if len(b.Projectiles) != 0 {
		t.Fatalf("range is strict, enemy at exactly %v must be ignored", b.AttackRange)
	}
}

func TestHasCollidedIsMonotonic(t *testing.T) {
	spec := testSpec(t)
	world := testWorld(spec)
	ground := spec.World.Ground
	if _, err := world.CreateGround(0, spec.World.Viewport.Width/2, spec.World.GroundCenterY(), spec.World.Viewport.Width, ground.Height, physics.Material{Friction: ground.Friction}); err != nil {
		t.Fatalf("CreateGround: %v", err)
	}
	b := placedBlock(t, spec, world, "square", 7, 400, 450)

	seen := false
	for i := 0; i < 600; i++ {
		world.Advance(step)
		for _, c := range world.Drain() {
			if owner, _, ok := c.Match(physics.TagBlock, physics.TagGround); ok && owner == b.Entity {
				b.MarkCollided()
			}
		}
		b.Update(step, world, nil)
		if seen && !b.HasCollided() {
			t.Fatalf("hasCollided reverted on step %d", i)
		}
		seen = seen || b.HasCollided()
	}
	if !seen {
		t.Fatalf("block never landed")
	}
}

func TestCannonFollowsRotation(t *testing.T) {
	b := &Block{X: 10, Y: 10, CannonX: 20, CannonY: 0, Angle: math.Pi / 2}
	x, y := b.CannonPosition()
	if math.Abs(x-10) > 1e-9 || math.Abs(y-30) > 1e-9 {
		t.Fatalf("expected muzzle at (10,30), got (%v,%v)", x, y)
	}
}

func TestEnemyReachesObjective(t *testing.T) {
	spec := testSpec(t)
	world := testWorld(spec)
	ctx := testContext(world, spec)
	enemies := NewEnemies(world, &spec.Enemies, spec.World, log.New(io.Discard))

	enemy, err := enemies.Spawn(ecs.Entity(5), "fast", ctx)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if enemy.HasReachedObjective(ctx.HomeX, ctx.HomeY) {
		t.Fatalf("fresh enemy should be far from home")
	}

	if err := world.SetPosition(enemy.Body, ctx.HomeX+5, ctx.HomeY); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	outcomes := enemies.Update(step, ctx, nil)
	if len(outcomes) != 1 || outcomes[0].Kind != ReachedHome || outcomes[0].Entity != enemy.Entity {
		t.Fatalf("expected reached-home outcome, got %+v", outcomes)
	}
	if enemies.Len() != 0 || world.Has(enemy.Body) {
		t.Fatalf("enemy should be removed with its body")
	}
}

func TestDefeatedEnemyYieldsReward(t *testing.T) {
	spec := testSpec(t)
	world := testWorld(spec)
	ctx := testContext(world, spec)
	enemies := NewEnemies(world, &spec.Enemies, spec.World, log.New(io.Discard))

	enemy, err := enemies.Spawn(ecs.Entity(9), "heavy", ctx)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	body := enemy.Body
	enemy.TakeDamage(enemy.MaxHealth)

	outcomes := enemies.Update(step, ctx, nil)
	if len(outcomes) != 1 || outcomes[0].Kind != Defeated {
		t.Fatalf("expected defeat, got %+v", outcomes)
	}
	if outcomes[0].Reward != spec.Enemies.Types["heavy"].EnergyReward {
		t.Fatalf("unexpected reward %v", outcomes[0].Reward)
	}
	if world.Has(body) {
		t.Fatalf("defeated enemy body left in the world")
	}
}

func TestEnemyGrindsNearbyBlocks(t *testing.T) {
	spec := testSpec(t)
	world := testWorld(spec)
	ctx := testContext(world, spec)
	enemies := NewEnemies(world, &spec.Enemies, spec.World, log.New(io.Discard))

	enemy, err := enemies.Spawn(ecs.Entity(3), "balanced", ctx)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	near := placedBlock(t, spec, world, "plank", 1, enemy.X, enemy.Y)
	far := placedBlock(t, spec, world, "plank", 2, enemy.X-400, enemy.Y-200)

	enemies.Update(step, ctx, []*Block{near, far})

	if near.Durability >= near.MaxDurability {
		t.Fatalf("adjacent block took no damage")
	}
	if far.Durability != far.MaxDurability {
		t.Fatalf("distant block took damage")
	}
}

type frozenWorld struct {
	x, y, vx, vy float64
}

func (w *frozenWorld) CreateBox(physics.BodyDef, float64, float64) (physics.BodyID, error) {
	return 1, nil
}
func (w *frozenWorld) CreateCircle(def physics.BodyDef, _ float64) (physics.BodyID, error) {
	w.x, w.y = def.X, def.Y
	return 1, nil
}
func (w *frozenWorld) CreateCompound(physics.BodyDef, []physics.Part) (physics.BodyID, error) {
	return 1, nil
}
func (w *frozenWorld) Remove(physics.BodyID) error                       { return nil }
func (w *frozenWorld) ApplyForce(physics.BodyID, float64, float64) error { return nil }

func (w *frozenWorld) SetVelocity(_ physics.BodyID, vx, vy float64) error {
	w.vx, w.vy = vx, vy
	return nil
}

func (w *frozenWorld) SetPosition(_ physics.BodyID, x, y float64) error {
	w.x, w.y = x, y
	return nil
}

func (w *frozenWorld) Velocity(physics.BodyID) (float64, float64, bool) { return w.vx, w.vy, true }
func (w *frozenWorld) Position(physics.BodyID) (float64, float64, bool) { return w.x, w.y, true }
func (w *frozenWorld) Angle(physics.BodyID) (float64, bool)             { return 0, true }
func (w *frozenWorld) Mass(physics.BodyID) (float64, bool)              { return 1, true }

func TestStalledEnemyIsFlaggedStuck(t *testing.T) {
	spec := testSpec(t)
	world := &frozenWorld{}
	ctx := testContext(world, spec)

	enemy, err := NewEnemy(1, "balanced", &spec.Enemies)
	if err != nil {
		t.Fatalf("NewEnemy: %v", err)
	}
	if err := enemy.CreateBody(world, 700, ctx.GroundY-enemy.Radius); err != nil {
		t.Fatalf("CreateBody: %v", err)
	}

	for i := 0; i < 40; i++ {
		enemy.Update(spec.Enemies.Steering.MaxDT, ctx, nil)
	}
	if !enemy.Stuck() {
		t.Fatalf("enemy that never moves should be flagged stuck")
	}
	if world.vy >= 0 {
		t.Fatalf("stuck recovery should lift the enemy, vy=%v", world.vy)
	}
	maxX := enemy.Speed * spec.Enemies.Steering.VelocityScale
	if math.Abs(world.vx) > maxX+1e-9 || math.Abs(world.vy) > maxX*spec.Enemies.Steering.VerticalVelocityRatio+1e-9 {
		t.Fatalf("velocity escaped its clamp: (%v,%v)", world.vx, world.vy)
	}
}

func TestEnemyKeptAboveGround(t *testing.T) {
	spec := testSpec(t)
	world := &frozenWorld{}
	ctx := testContext(world, spec)

	enemy, err := NewEnemy(1, "heavy", &spec.Enemies)
	if err != nil {
		t.Fatalf("NewEnemy: %v", err)
	}
	if err := enemy.CreateBody(world, 600, ctx.GroundY+10); err != nil {
		t.Fatalf("CreateBody: %v", err)
	}
	world.vy = 40

	enemy.Update(step, ctx, nil)

	if world.y > ctx.GroundY-enemy.Radius+1e-9 {
		t.Fatalf("enemy below ground: y=%v floor=%v", world.y, ctx.GroundY-enemy.Radius)
	}
	if world.vy > 0 {
		t.Fatalf("downward velocity survived the floor: %v", world.vy)
	}
}
