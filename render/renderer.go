// Package render draws a sim.Snapshot with ebiten. It reads nothing but the
// snapshot, so the simulation never depends on it.
package render

import (
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/milk9111/towerstack/combat"
	"github.com/milk9111/towerstack/common"
	"github.com/milk9111/towerstack/sim"
	"golang.org/x/image/colornames"
)

const (
	healthBarHeight = 4
	ropeWidth       = 2
	cannonRadius    = 4
	homeSize        = 30
)

var (
	skyColor     = colornames.Lightskyblue
	groundColor  = colornames.Darkolivegreen
	homeColor    = colornames.Gold
	outlineColor = colornames.Black
	ropeColor    = colornames.Saddlebrown
	shotColor    = colornames.Yellow
	noticeColor  = colornames.Red
)

var materialColors = map[combat.Material]color.RGBA{
	combat.Wood:  colornames.Burlywood,
	combat.Stone: colornames.Slategray,
	combat.Metal: colornames.Silver,
}

var enemyColors = map[combat.EnemyType]color.RGBA{
	combat.Balanced: colornames.Crimson,
	combat.Fast:     colornames.Orange,
	combat.Heavy:    colornames.Darkred,
	combat.Flying:   colornames.Mediumpurple,
}

// Renderer draws snapshots. Debug adds frame counters.
type Renderer struct {
	Debug bool

	white *ebiten.Image
}

func NewRenderer(debug bool) *Renderer {
	white := ebiten.NewImage(3, 3)
	white.Fill(color.White)
	return &Renderer{
		Debug: debug,
		white: white.SubImage(white.Bounds().Inset(1)).(*ebiten.Image),
	}
}

func (r *Renderer) Draw(screen *ebiten.Image, snap sim.Snapshot) {
	if r == nil || screen == nil {
		return
	}
	screen.Fill(skyColor)
	r.drawGround(screen, snap)
	r.drawHome(screen, snap)

	for _, b := range snap.Blocks {
		r.drawBlock(screen, b, 1)
	}
	if snap.Pending != nil {
		vector.StrokeLine(screen, float32(snap.AnchorX), float32(snap.AnchorY), float32(snap.RopeX), float32(snap.RopeY), ropeWidth, ropeColor, true)
		r.drawBlock(screen, *snap.Pending, 0.6)
	}
	for _, e := range snap.Enemies {
		r.drawEnemy(screen, e)
	}
	r.drawHUD(screen, snap)
}

func (r *Renderer) drawGround(screen *ebiten.Image, snap sim.Snapshot) {
	vector.FillRect(screen, 0, float32(snap.GroundY), float32(snap.Width), float32(snap.GroundHeight), groundColor, false)
}

func (r *Renderer) drawHome(screen *ebiten.Image, snap sim.Snapshot) {
	x := float32(snap.HomeX - homeSize/2)
	y := float32(snap.HomeY - homeSize/2)
	vector.FillRect(screen, x, y, homeSize, homeSize, homeColor, true)
	vector.StrokeRect(screen, x, y, homeSize, homeSize, 1, outlineColor, true)
}

func (r *Renderer) drawBlock(screen *ebiten.Image, b sim.BlockView, alpha float32) {
	fill, ok := materialColors[b.Material]
	if !ok {
		fill = colornames.White
	}
	sin, cos := math.Sincos(b.Angle)
	for _, part := range b.Parts {
		hw, hh := part.Width/2, part.Height/2
		corners := [4][2]float64{
			{part.X - hw, part.Y - hh},
			{part.X + hw, part.Y - hh},
			{part.X + hw, part.Y + hh},
			{part.X - hw, part.Y + hh},
		}
		var pts [4][2]float32
		for i, c := range corners {
			pts[i] = [2]float32{
				float32(b.X + c[0]*cos - c[1]*sin),
				float32(b.Y + c[0]*sin + c[1]*cos),
			}
		}
		r.fillQuad(screen, pts, fill, alpha)
		for i := range pts {
			j := (i + 1) % len(pts)
			vector.StrokeLine(screen, pts[i][0], pts[i][1], pts[j][0], pts[j][1], 1, outlineColor, true)
		}
	}

	if b.Armed {
		vector.FillCircle(screen, float32(b.CannonX), float32(b.CannonY), cannonRadius, colornames.Dimgray, true)
	}
	for _, p := range b.Projectiles {
		vector.FillCircle(screen, float32(p.X), float32(p.Y), float32(p.Radius), shotColor, true)
	}
	top := b.Y - maxExtent(b)/2 - 2*healthBarHeight
	r.drawHealth(screen, b.X, top, maxExtent(b), b.Health)
}

func maxExtent(b sim.BlockView) float64 {
	extent := 0.0
	for _, p := range b.Parts {
		extent = math.Max(extent, math.Max(math.Abs(p.X)*2+p.Width, math.Abs(p.Y)*2+p.Height))
	}
	return extent
}

func (r *Renderer) fillQuad(screen *ebiten.Image, pts [4][2]float32, c color.RGBA, alpha float32) {
	vs := make([]ebiten.Vertex, 0, len(pts))
	for _, p := range pts {
		vs = append(vs, ebiten.Vertex{
			DstX:   p[0],
			DstY:   p[1],
			SrcX:   1,
			SrcY:   1,
			ColorR: float32(c.R) / 255 * alpha,
			ColorG: float32(c.G) / 255 * alpha,
			ColorB: float32(c.B) / 255 * alpha,
			ColorA: alpha,
		})
	}
	is := []uint16{0, 1, 2, 0, 2, 3}
	screen.DrawTriangles(vs, is, r.white, &ebiten.DrawTrianglesOptions{})
}

func (r *Renderer) drawEnemy(screen *ebiten.Image, e sim.EnemyView) {
	fill, ok := enemyColors[e.Type]
	if !ok {
		fill = colornames.Red
	}
	vector.FillCircle(screen, float32(e.X), float32(e.Y), float32(e.Radius), fill, true)
	stroke := outlineColor
	if e.Stuck {
		stroke = colornames.Yellow
	}
	vector.StrokeCircle(screen, float32(e.X), float32(e.Y), float32(e.Radius), 1, stroke, true)
	r.drawHealth(screen, e.X, e.Y-e.Radius-2*healthBarHeight, e.Radius*2, e.Health)
}

func (r *Renderer) drawHealth(screen *ebiten.Image, cx, y, width, fraction float64) {
	if fraction >= 1 {
		return
	}
	x := float32(cx - width/2)
	vector.FillRect(screen, x, float32(y), float32(width), healthBarHeight, colornames.Darkred, false)
	vector.FillRect(screen, x, float32(y), float32(common.Lerp(0, width, common.Clamp01(fraction))), healthBarHeight, colornames.Limegreen, false)
}

func (r *Renderer) drawHUD(screen *ebiten.Image, snap sim.Snapshot) {
	hud := fmt.Sprintf("Energy: %d (+%.1f/s)    Gold: %d\nWave %d: %s\nNext: %s\nU: upgrade energy (%d gold)",
		int(math.Floor(snap.Energy)), snap.EnergyRate, int(math.Floor(snap.Gold)), snap.Wave, snap.Status, snap.Next,
		int(math.Ceil(snap.UpgradeCost)))
	ebitenutil.DebugPrintAt(screen, hud, 10, 10)

	if r.Debug {
		debug := fmt.Sprintf("FPS: %.1f  TPS: %.1f\nFrames: %d  Steps: %d\nBuilder: %s",
			snap.FPS, ebiten.ActualTPS(), snap.Frames, snap.Steps, snap.BuilderState)
		ebitenutil.DebugPrintAt(screen, debug, int(snap.Width)-220, 10)
	}

	if snap.Notice.Visible && snap.Notice.Opacity > 0 {
		a := float32(snap.Notice.Opacity)
		w := float32(len(snap.Notice.Text)*6 + 20)
		x := float32(snap.Width)/2 - w/2
		y := float32(snap.Height) / 3
		c := color.NRGBA{R: noticeColor.R, G: noticeColor.G, B: noticeColor.B, A: uint8(200 * a)}
		vector.FillRect(screen, x, y, w, 24, c, false)
		ebitenutil.DebugPrintAt(screen, snap.Notice.Text, int(x)+10, int(y)+4)
	}

	if snap.GameOver {
		overlay := color.RGBA{A: 160}
		vector.FillRect(screen, 0, 0, float32(snap.Width), float32(snap.Height), overlay, false)
		msg := "GAME OVER\nAn enemy reached your home!\nPress R to restart"
		ebitenutil.DebugPrintAt(screen, msg, int(snap.Width)/2-90, int(snap.Height)/5)
	}
}
