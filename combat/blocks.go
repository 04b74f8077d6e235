package combat

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/milk9111/towerstack/ecs"
)

// Blocks is the ordered collection of placed tower blocks.
type Blocks struct {
	world  World
	logger *log.Logger
	items  *ecs.SparseSet[*Block]
}

func NewBlocks(world World, logger *log.Logger) *Blocks {
	if logger == nil {
		logger = log.Default()
	}
	return &Blocks{
		world:  world,
		logger: logger.WithPrefix("blocks"),
		items:  ecs.NewSparseSet[*Block](),
	}
}

// Place creates the block's body and adds it to the collection. A block
// whose body cannot be created is not added.
func (bs *Blocks) Place(b *Block) error {
	if bs == nil || b == nil {
		return fmt.Errorf("combat: place block: %w", ErrMissingContext)
	}
	if err := b.CreateBody(bs.world); err != nil {
		return err
	}
	bs.items.Set(b.Entity, b)
	bs.logger.Debug("block placed", "entity", b.Entity, "type", b.Type, "x", b.X, "y", b.Y)
	return nil
}

func (bs *Blocks) Get(e ecs.Entity) (*Block, bool) {
	if bs == nil {
		return nil, false
	}
	return bs.items.Get(e)
}

// All returns the blocks in placement order. The slice is shared.
func (bs *Blocks) All() []*Block {
	if bs == nil {
		return nil
	}
	return bs.items.Values()
}

func (bs *Blocks) Len() int {
	if bs == nil {
		return 0
	}
	return bs.items.Len()
}

// Remove drops a block from the collection and destroys its body in the same
// call.
func (bs *Blocks) Remove(e ecs.Entity) error {
	if bs == nil {
		return fmt.Errorf("combat: remove block: %w", ErrMissingContext)
	}
	b, ok := bs.items.Get(e)
	if !ok {
		return fmt.Errorf("combat: remove block %v: %w", e, ErrUnknownEntity)
	}
	bs.items.Remove(e)
	body := b.Body
	b.Body = 0
	b.Projectiles = nil
	if body != 0 && bs.world != nil {
		if err := bs.world.Remove(body); err != nil {
			return fmt.Errorf("combat: remove block %v: %w", e, err)
		}
	}
	return nil
}

// Update advances every block.
func (bs *Blocks) Update(dt float64, enemies []*Enemy) {
	if bs == nil {
		return
	}
	for _, b := range bs.items.Values() {
		b.Update(dt, bs.world, enemies)
	}
}

// Prune removes destroyed blocks and blocks that fell below fallY. It returns
// the removed entities.
func (bs *Blocks) Prune(fallY float64) []ecs.Entity {
	if bs == nil {
		return nil
	}
	var doomed []ecs.Entity
	for _, b := range bs.items.Values() {
		if b.Destroyed() || b.Y > fallY {
			doomed = append(doomed, b.Entity)
		}
	}
	for _, e := range doomed {
		if err := bs.Remove(e); err != nil {
			bs.logger.Warn("prune failed", "entity", e, "err", err)
		}
	}
	return doomed
}

// Clear drops every block. Bodies are left to the caller, which resets the
// whole world.
func (bs *Blocks) Clear() {
	if bs == nil {
		return
	}
	for _, b := range bs.items.Values() {
		b.Body = 0
	}
	bs.items.Clear()
}
