package combat

import (
	"math"

	"github.com/milk9111/towerstack/prefabs"
)

const lifetimeEpsilon = 1e-9

// Projectile flies in a straight line fixed at launch and hits at most one
// enemy.
type Projectile struct {
	OriginX, OriginY float64
	X, Y             float64
	DirX, DirY       float64
	Speed            float64
	Damage           float64
	Radius           float64
	Lifetime         float64
	Travelled        float64
	Active           bool
}

// NewProjectile aims from (x, y) at (tx, ty). A target on top of the muzzle
// fires straight up.
func NewProjectile(x, y, tx, ty, damage float64, spec prefabs.ProjectileSpec) *Projectile {
	dx, dy := tx-x, ty-y
	dist := math.Hypot(dx, dy)
	dirX, dirY := 0.0, -1.0
	if dist > 0 {
		dirX, dirY = dx/dist, dy/dist
	}
	return &Projectile{
		OriginX:  x,
		OriginY:  y,
		X:        x,
		Y:        y,
		DirX:     dirX,
		DirY:     dirY,
		Speed:    spec.Speed,
		Damage:   damage,
		Radius:   spec.Radius,
		Lifetime: spec.Lifetime,
		Active:   spec.Lifetime > 0,
	}
}

// Update moves the projectile for at most its remaining lifetime, then checks
// for a hit.
func (p *Projectile) Update(dt float64, enemies []*Enemy) {
	if p == nil || !p.Active || dt <= 0 {
		return
	}
	step := math.Min(dt, p.Lifetime)
	p.X += p.DirX * p.Speed * step
	p.Y += p.DirY * p.Speed * step
	p.Travelled += p.Speed * step
	p.Lifetime -= step

	p.checkHit(enemies)

	if p.Lifetime <= lifetimeEpsilon {
		p.Lifetime = 0
		p.Active = false
	}
}

func (p *Projectile) checkHit(enemies []*Enemy) {
	if !p.Active {
		return
	}
	for _, enemy := range enemies {
		if enemy == nil || !enemy.Alive() {
			continue
		}
		if math.Hypot(enemy.X-p.X, enemy.Y-p.Y) < p.Radius+enemy.Radius {
			enemy.TakeDamage(p.Damage)
			p.Active = false
			return
		}
	}
}
