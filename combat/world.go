package combat

import (
	"errors"
	"math/rand"

	"github.com/milk9111/towerstack/physics"
)

var (
	ErrUnknownType    = errors.New("combat: unknown type")
	ErrAlreadyPlaced  = errors.New("combat: already placed")
	ErrUnknownEntity  = errors.New("combat: unknown entity")
	ErrMissingContext = errors.New("combat: missing context")
)

// World is the slice of the physics adapter that gameplay entities use.
// Entities never touch engine bodies directly.
type World interface {
	CreateBox(def physics.BodyDef, width, height float64) (physics.BodyID, error)
	CreateCircle(def physics.BodyDef, radius float64) (physics.BodyID, error)
	CreateCompound(def physics.BodyDef, parts []physics.Part) (physics.BodyID, error)
	Remove(id physics.BodyID) error

	ApplyForce(id physics.BodyID, fx, fy float64) error
	SetVelocity(id physics.BodyID, vx, vy float64) error
	SetPosition(id physics.BodyID, x, y float64) error
	Velocity(id physics.BodyID) (float64, float64, bool)
	Position(id physics.BodyID) (float64, float64, bool)
	Angle(id physics.BodyID) (float64, bool)
	Mass(id physics.BodyID) (float64, bool)
}

// Context carries the per-step facts entities used to reach through globals
// for.
type Context struct {
	World   World
	HomeX   float64
	HomeY   float64
	GroundY float64
	Rand    *rand.Rand
}

func (c Context) valid() bool {
	return c.World != nil && c.Rand != nil
}
