// Package builder owns the pending block hanging from the swinging rope and
// the single drop path that turns it into a placed block.
package builder

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/milk9111/towerstack/clock"
	"github.com/milk9111/towerstack/combat"
	"github.com/milk9111/towerstack/ecs"
	"github.com/milk9111/towerstack/prefabs"
)

var ErrMissingDependency = errors.New("builder: missing dependency")

const (
	timerRespawn = "builder.respawn"
	timerGuard   = "builder.guard"
	timerNotice  = "builder.notice"

	NoticeText = "Not enough energy!"
)

type State int

const (
	StateIdle State = iota
	StatePending
	StatePlacing
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StatePlacing:
		return "placing"
	default:
		return "idle"
	}
}

// Ledger is the part of the economy the controller pays through.
type Ledger interface {
	CanAffordBlock(blockType string) bool
	Purchase(blockType string) (float64, error)
	AddEnergy(amount float64)
}

// Placer adds a finished block to the tower.
type Placer interface {
	Place(b *combat.Block) error
}

// Notice is the insufficient-funds message shown to the player.
type Notice struct {
	Text    string
	Opacity float64
	Visible bool
}

type Options struct {
	Ledger   Ledger
	Blocks   Placer
	World    combat.World
	Timers   *clock.Timers
	Registry *ecs.Registry
	Events   *ecs.EventQueue
	Rand     *rand.Rand
	Logger   *log.Logger
}

// Controller runs the build-and-drop cycle. Every input channel funnels into
// Drop, which is the only place a purchase happens.
type Controller struct {
	spec *prefabs.BlocksSpec
	opts Options

	anchorX, anchorY float64
	angle            float64
	direction        float64

	pending  *combat.Block
	next     string
	placing  bool
	creating bool
	waiting  bool

	lastDrop float64
	dropped  bool

	notice      Notice
	noticeTimer clock.TimerID
	timers      []clock.TimerID

	logger *log.Logger
}

func NewController(spec *prefabs.BlocksSpec, viewportWidth float64, opts Options) (*Controller, error) {
	if spec == nil || len(spec.Catalog) == 0 {
		return nil, fmt.Errorf("builder: new controller: %w", ErrMissingDependency)
	}
	if opts.Ledger == nil || opts.Blocks == nil || opts.Timers == nil || opts.Registry == nil {
		return nil, fmt.Errorf("builder: new controller: %w", ErrMissingDependency)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(1))
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	c := &Controller{
		spec:    spec,
		opts:    opts,
		anchorX: viewportWidth / 2,
		anchorY: spec.Rope.Y,
		logger:  opts.Logger.WithPrefix("builder"),
	}
	c.Reset()
	return c, nil
}

// Reset cancels the controller's timers, discards the pending block and hangs
// the first block from the rope again.
func (c *Controller) Reset() {
	if c == nil {
		return
	}
	for _, id := range c.timers {
		c.opts.Timers.Cancel(id)
	}
	c.timers = nil
	c.noticeTimer = 0
	if c.pending != nil {
		c.opts.Registry.Destroy(c.pending.Entity)
		c.pending = nil
	}
	c.angle = 0
	c.direction = 1
	c.placing = false
	c.creating = false
	c.waiting = false
	c.dropped = false
	c.lastDrop = 0
	c.notice = Notice{}

	first := c.spec.Placement.FirstBlock
	if first == "" {
		first = c.spec.Catalog[0].Type
	}
	c.createPending(first)
	c.selectNext()
}

// Update swings the rope, fades the notice and recreates the pending block
// once funds allow it.
func (c *Controller) Update(dt float64) {
	if c == nil || dt <= 0 {
		return
	}
	c.swing(dt)
	c.positionPending()

	if c.notice.Visible {
		fade := c.spec.Placement.NoticeFade
		if fade <= 0 {
			fade = 1
		}
		c.notice.Opacity = math.Max(0, c.notice.Opacity-dt/fade)
	}

	if c.pending != nil || c.placing || c.creating {
		return
	}
	if c.opts.Ledger.CanAffordBlock(c.next) {
		c.waiting = false
		c.createPending(c.next)
		c.selectNext()
		return
	}
	if !c.waiting {
		c.waiting = true
		c.showNotice()
	}
}

func (c *Controller) swing(dt float64) {
	rope := c.spec.Rope
	c.angle += rope.SwingSpeed * c.direction * dt
	if c.angle > rope.MaxAngle {
		c.angle = rope.MaxAngle
		c.direction = -1
	} else if c.angle < -rope.MaxAngle {
		c.angle = -rope.MaxAngle
		c.direction = 1
	}
}

// Drop tries to place the pending block at the end of the rope. It reports
// whether a block was placed; a rejected drop changes nothing but the notice.
func (c *Controller) Drop() bool {
	if c == nil || c.placing || c.pending == nil {
		return false
	}
	now := c.opts.Timers.Now()
	if c.dropped && now-c.lastDrop < c.spec.Placement.PlaceCooldown {
		return false
	}
	c.lastDrop = now
	c.dropped = true

	block := c.pending
	if !c.opts.Ledger.CanAffordBlock(string(block.Type)) {
		c.insufficientFunds(string(block.Type))
		return false
	}

	c.placing = true
	c.positionPending()
	cost, err := c.opts.Ledger.Purchase(string(block.Type))
	if err != nil {
		c.placing = false
		c.insufficientFunds(string(block.Type))
		return false
	}

	c.pending = nil
	if err := c.opts.Blocks.Place(block); err != nil {
		c.logger.Error("place block", "type", block.Type, "err", err)
		c.opts.Ledger.AddEnergy(cost)
		c.opts.Registry.Destroy(block.Entity)
		c.scheduleRespawn()
		return false
	}
	if c.opts.World != nil && block.Body != 0 {
		if err := c.opts.World.SetVelocity(block.Body, 0, c.spec.Placement.DropSpeed); err != nil {
			c.logger.Warn("drop velocity", "entity", block.Entity, "err", err)
		}
	}
	c.opts.Events.Emit(ecs.EventBlockPlaced, block.Entity)
	c.logger.Debug("block dropped", "entity", block.Entity, "type", block.Type, "cost", cost)
	c.scheduleRespawn()
	return true
}

func (c *Controller) scheduleRespawn() {
	c.after(c.spec.Placement.RespawnDelay, timerRespawn, func() {
		c.placing = false
		if c.pending != nil {
			return
		}
		if c.opts.Ledger.CanAffordBlock(c.next) {
			c.createPending(c.next)
			c.selectNext()
			return
		}
		c.waiting = true
		c.showNotice()
	})
}

func (c *Controller) createPending(blockType string) {
	if c.pending != nil || c.creating {
		return
	}
	e := c.opts.Registry.Create()
	block, err := combat.NewBlock(e, blockType, c.spec)
	if err != nil {
		c.logger.Error("create pending block", "type", blockType, "err", err)
		c.opts.Registry.Destroy(e)
		return
	}
	c.pending = block
	c.positionPending()
	c.creating = true
	c.after(c.spec.Placement.CreateGuard, timerGuard, func() {
		c.creating = false
	})
}

func (c *Controller) selectNext() {
	catalog := c.spec.Catalog
	c.next = catalog[c.opts.Rand.Intn(len(catalog))].Type
}

func (c *Controller) positionPending() {
	if c.pending == nil {
		return
	}
	x, y := c.RopeEnd()
	c.pending.SetPendingPosition(x, y, 0)
}

func (c *Controller) insufficientFunds(blockType string) {
	c.showNotice()
	c.opts.Events.Push(ecs.Event{Type: ecs.EventInsufficientFunds, Data: blockType})
}

func (c *Controller) showNotice() {
	c.notice = Notice{Text: NoticeText, Opacity: 1, Visible: true}
	if c.noticeTimer != 0 {
		c.opts.Timers.Cancel(c.noticeTimer)
		c.forget(c.noticeTimer)
	}
	c.noticeTimer = c.after(c.spec.Placement.NoticeDuration, timerNotice, func() {
		c.notice = Notice{}
		c.noticeTimer = 0
	})
}

func (c *Controller) after(delay float64, name string, fn func()) clock.TimerID {
	var id clock.TimerID
	id = c.opts.Timers.After(delay, name, func() {
		c.forget(id)
		fn()
	})
	c.timers = append(c.timers, id)
	return id
}

func (c *Controller) forget(id clock.TimerID) {
	c.timers = slices.DeleteFunc(c.timers, func(v clock.TimerID) bool { return v == id })
}

func (c *Controller) State() State {
	if c == nil {
		return StateIdle
	}
	switch {
	case c.placing:
		return StatePlacing
	case c.pending != nil:
		return StatePending
	}
	return StateIdle
}

// RopeEnd returns where the pending block hangs.
func (c *Controller) RopeEnd() (float64, float64) {
	if c == nil {
		return 0, 0
	}
	length := c.spec.Rope.Length
	return c.anchorX + math.Sin(c.angle)*length, c.anchorY + length
}

func (c *Controller) Anchor() (float64, float64) {
	if c == nil {
		return 0, 0
	}
	return c.anchorX, c.anchorY
}

func (c *Controller) Angle() float64 {
	if c == nil {
		return 0
	}
	return c.angle
}

func (c *Controller) Pending() *combat.Block {
	if c == nil {
		return nil
	}
	return c.pending
}

// Next returns the preselected type shown in the preview.
func (c *Controller) Next() string {
	if c == nil {
		return ""
	}
	return c.next
}

func (c *Controller) Notice() Notice {
	if c == nil {
		return Notice{}
	}
	return c.notice
}
