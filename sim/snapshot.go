package sim

import (
	"github.com/milk9111/towerstack/builder"
	"github.com/milk9111/towerstack/combat"
	"github.com/milk9111/towerstack/physics"
	"github.com/milk9111/towerstack/wave"
)

type ProjectileView struct {
	X, Y   float64
	Radius float64
}

type BlockView struct {
	Type     combat.BlockType
	Material combat.Material
	X, Y     float64
	Angle    float64
	// Parts are relative to (X, Y) before rotation.
	Parts       []physics.Part
	Health      float64
	Armed       bool
	CannonX     float64
	CannonY     float64
	Projectiles []ProjectileView
}

type EnemyView struct {
	Type   combat.EnemyType
	X, Y   float64
	Radius float64
	Health float64
	Flying bool
	Stuck  bool
}

// Snapshot is everything a renderer needs for one frame. It shares no
// memory with the loop.
type Snapshot struct {
	Width, Height  float64
	GroundY        float64
	GroundHeight   float64
	HomeX, HomeY   float64
	Blocks         []BlockView
	Pending        *BlockView
	AnchorX        float64
	AnchorY        float64
	RopeX, RopeY   float64
	Next           string
	BuilderState   builder.State
	Enemies        []EnemyView
	Wave           int
	Phase          wave.Phase
	Status         string
	Energy, Gold   float64
	EnergyRate     float64
	UpgradeCost    float64
	Notice         builder.Notice
	GameOver       bool
	Running        bool
	FPS            float64
	Frames, Steps  uint64
	ElapsedSeconds float64
}

func (l *Loop) Snapshot() Snapshot {
	if l == nil {
		return Snapshot{}
	}
	ws := l.spec.World
	snap := Snapshot{
		Width:          ws.Viewport.Width,
		Height:         ws.Viewport.Height,
		GroundY:        l.groundY,
		GroundHeight:   ws.Ground.Height,
		HomeX:          l.homeX,
		HomeY:          l.homeY,
		Next:           l.builder.Next(),
		BuilderState:   l.builder.State(),
		Wave:           l.waves.WaveNumber(),
		Phase:          l.waves.State().Phase,
		Status:         l.waves.StatusText(),
		Energy:         l.ledger.Energy(),
		Gold:           l.ledger.Gold(),
		Notice:         l.builder.Notice(),
		GameOver:       l.gameOver,
		Running:        l.running,
		UpgradeCost:    l.ledger.UpgradeCost(),
		FPS:            l.FPS(),
		Frames:         l.frames,
		Steps:          l.steps,
		ElapsedSeconds: l.stepper.Elapsed(),
	}
	snap.EnergyRate, _ = l.ledger.Rates()
	snap.AnchorX, snap.AnchorY = l.builder.Anchor()
	snap.RopeX, snap.RopeY = l.builder.RopeEnd()

	if p := l.builder.Pending(); p != nil {
		view := blockView(p)
		snap.Pending = &view
	}
	snap.Blocks = make([]BlockView, 0, l.blocks.Len())
	for _, b := range l.blocks.All() {
		snap.Blocks = append(snap.Blocks, blockView(b))
	}
	snap.Enemies = make([]EnemyView, 0, l.enemies.Len())
	for _, e := range l.enemies.All() {
		snap.Enemies = append(snap.Enemies, EnemyView{
			Type:   e.Type,
			X:      e.X,
			Y:      e.Y,
			Radius: e.Radius,
			Health: e.HealthFraction(),
			Flying: e.Flying,
			Stuck:  e.Stuck(),
		})
	}
	return snap
}

func blockView(b *combat.Block) BlockView {
	view := BlockView{
		Type:     b.Type,
		Material: b.Material,
		X:        b.X,
		Y:        b.Y,
		Angle:    b.Angle,
		Parts:    append([]physics.Part(nil), b.Parts...),
		Health:   b.HealthFraction(),
		Armed:    b.HasWeapon,
	}
	view.CannonX, view.CannonY = b.CannonPosition()
	for _, p := range b.Projectiles {
		if p.Active {
			view.Projectiles = append(view.Projectiles, ProjectileView{X: p.X, Y: p.Y, Radius: p.Radius})
		}
	}
	return view
}
