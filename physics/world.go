package physics

import (
	"errors"
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/towerstack/ecs"
	"github.com/milk9111/towerstack/prefabs"
)

var (
	ErrUnknownBody = errors.New("physics: unknown body")
	ErrInvalidBody = errors.New("physics: invalid body definition")
	ErrNilWorld    = errors.New("physics: nil world")
)

const (
	collisionTypeGround cp.CollisionType = iota + 1
	collisionTypeBlock
	collisionTypeEnemy
)

// Tag tells collision consumers what kind of gameplay object owns a body.
type Tag int

const (
	TagNone Tag = iota
	TagGround
	TagBlock
	TagEnemy
)

func (t Tag) String() string {
	switch t {
	case TagGround:
		return "ground"
	case TagBlock:
		return "block"
	case TagEnemy:
		return "enemy"
	default:
		return "none"
	}
}

func (t Tag) collisionType() cp.CollisionType {
	switch t {
	case TagGround:
		return collisionTypeGround
	case TagBlock:
		return collisionTypeBlock
	case TagEnemy:
		return collisionTypeEnemy
	default:
		return 0
	}
}

// BodyID is an opaque handle to a body owned by the World.
type BodyID uint32

// Config holds the space tuning that survives a Reset.
type Config struct {
	Gravity            float64
	Iterations         int
	CapDelta           float64
	SleepTimeThreshold float64
	IdleSpeedThreshold float64
}

func ConfigFromSpec(p prefabs.PhysicsSpec) Config {
	return Config{
		Gravity:            p.Gravity,
		Iterations:         p.Iterations,
		CapDelta:           p.CapDelta,
		SleepTimeThreshold: p.SleepTimeThreshold,
		IdleSpeedThreshold: p.IdleSpeedThreshold,
	}
}

type Material struct {
	Density    float64
	Friction   float64
	Elasticity float64
}

// BodyDef describes a dynamic body. X and Y place the body's reference point
// in world space.
type BodyDef struct {
	Tag           Tag
	Owner         ecs.Entity
	X, Y          float64
	Angle         float64
	Material      Material
	FixedRotation bool
	NoGravity     bool
}

// Part is a box in a compound body. X and Y are the box centre relative to
// the body's reference point.
type Part struct {
	X, Y          float64
	Width, Height float64
}

// Collision is a contact that began during the last step. Depth is the
// deepest penetration reported for the pair.
type Collision struct {
	A, B           BodyID
	TagA, TagB     Tag
	OwnerA, OwnerB ecs.Entity
	Depth          float64
}

// Match reports the owners of the pair ordered as (first, second) when the
// pair carries tags first and second in either order.
func (c Collision) Match(first, second Tag) (ecs.Entity, ecs.Entity, bool) {
	switch {
	case c.TagA == first && c.TagB == second:
		return c.OwnerA, c.OwnerB, true
	case c.TagA == second && c.TagB == first:
		return c.OwnerB, c.OwnerA, true
	default:
		return 0, 0, false
	}
}

type entry struct {
	body   *cp.Body
	shapes []*cp.Shape
	tag    Tag
	owner  ecs.Entity
	static bool
}

// World owns the Chipmunk space and every body in it. Gameplay code only
// holds BodyIDs and goes through the World to read or move bodies.
type World struct {
	cfg    Config
	logger *log.Logger
	space  *cp.Space

	next       BodyID
	bodies     map[BodyID]*entry
	shapes     map[*cp.Shape]BodyID
	collisions []Collision
}

func NewWorld(cfg Config, logger *log.Logger) *World {
	if logger == nil {
		logger = log.Default()
	}
	w := &World{
		cfg:    cfg,
		logger: logger.WithPrefix("physics"),
	}
	w.init()
	return w
}

// Configure replaces the tuning. It takes effect on the next Reset.
func (w *World) Configure(cfg Config) {
	if w == nil {
		return
	}
	w.cfg = cfg
}

func (w *World) init() {
	space := cp.NewSpace()
	if w.cfg.Iterations > 0 {
		space.Iterations = uint(w.cfg.Iterations)
	}
	space.SetGravity(cp.Vector{X: 0, Y: w.cfg.Gravity})
	if w.cfg.SleepTimeThreshold > 0 {
		space.SleepTimeThreshold = w.cfg.SleepTimeThreshold
	}
	if w.cfg.IdleSpeedThreshold > 0 {
		space.IdleSpeedThreshold = w.cfg.IdleSpeedThreshold
	}

	w.space = space
	w.bodies = make(map[BodyID]*entry)
	w.shapes = make(map[*cp.Shape]BodyID)
	w.collisions = w.collisions[:0]
	w.setupHandlers()
}

func (w *World) setupHandlers() {
	pairs := [][2]cp.CollisionType{
		{collisionTypeBlock, collisionTypeGround},
		{collisionTypeBlock, collisionTypeBlock},
		{collisionTypeEnemy, collisionTypeBlock},
		{collisionTypeEnemy, collisionTypeGround},
	}
	for _, pair := range pairs {
		handler := w.space.NewCollisionHandler(pair[0], pair[1])
		handler.UserData = w
		handler.BeginFunc = func(arb *cp.Arbiter, space *cp.Space, userData interface{}) bool {
			world, ok := userData.(*World)
			if !ok || world == nil {
				return true
			}
			world.recordCollision(arb)
			return true
		}
	}
}

func (w *World) recordCollision(arb *cp.Arbiter) {
	shapeA, shapeB := arb.Shapes()
	idA, okA := w.shapes[shapeA]
	idB, okB := w.shapes[shapeB]
	if !okA || !okB || idA == idB {
		return
	}
	a := w.bodies[idA]
	b := w.bodies[idB]
	if a == nil || b == nil {
		return
	}

	depth := 0.0
	set := arb.ContactPointSet()
	for i := 0; i < set.Count; i++ {
		if d := -set.Points[i].Distance; d > depth {
			depth = d
		}
	}

	w.collisions = append(w.collisions, Collision{
		A: idA, B: idB,
		TagA: a.tag, TagB: b.tag,
		OwnerA: a.owner, OwnerB: b.owner,
		Depth: depth,
	})
}

// Advance steps the space by dt capped at Config.CapDelta. Pairs left over
// from the previous step are discarded first, so after Advance the buffer
// holds exactly the contacts that began during this step.
func (w *World) Advance(dt float64) {
	if w == nil || w.space == nil {
		return
	}
	w.collisions = w.collisions[:0]
	if dt <= 0 || math.IsNaN(dt) {
		return
	}
	if w.cfg.CapDelta > 0 && dt > w.cfg.CapDelta {
		dt = w.cfg.CapDelta
	}
	w.space.Step(dt)
}

// Collisions returns the pairs recorded by the last step without consuming
// them.
func (w *World) Collisions() []Collision {
	if w == nil {
		return nil
	}
	return w.collisions
}

// Drain returns the pairs recorded by the last step and empties the buffer.
func (w *World) Drain() []Collision {
	if w == nil || len(w.collisions) == 0 {
		return nil
	}
	out := make([]Collision, len(w.collisions))
	copy(out, w.collisions)
	w.collisions = w.collisions[:0]
	return out
}

// CreateGround adds a static box centred at (x, y).
func (w *World) CreateGround(owner ecs.Entity, x, y, width, height float64, mat Material) (BodyID, error) {
	if w == nil || w.space == nil {
		return 0, ErrNilWorld
	}
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("%w: ground size %vx%v", ErrInvalidBody, width, height)
	}
	bb := cp.BB{L: x - width/2, B: y - height/2, R: x + width/2, T: y + height/2}
	shape := cp.NewBox2(w.space.StaticBody, bb, 0)
	applyMaterial(shape, mat)
	shape.SetCollisionType(collisionTypeGround)
	w.space.AddShape(shape)

	id := w.register(&entry{body: w.space.StaticBody, shapes: []*cp.Shape{shape}, tag: TagGround, owner: owner, static: true})
	w.logger.Debug("ground created", "body", id, "top", bb.B)
	return id, nil
}

// CreateBox adds a single box body centred on the definition's position.
func (w *World) CreateBox(def BodyDef, width, height float64) (BodyID, error) {
	return w.CreateCompound(def, []Part{{Width: width, Height: height}})
}

// CreateCircle adds a circle body centred on the definition's position.
func (w *World) CreateCircle(def BodyDef, radius float64) (BodyID, error) {
	if w == nil || w.space == nil {
		return 0, ErrNilWorld
	}
	if radius <= 0 || def.Material.Density <= 0 {
		return 0, fmt.Errorf("%w: circle radius %v density %v", ErrInvalidBody, radius, def.Material.Density)
	}
	mass := def.Material.Density * math.Pi * radius * radius
	moment := cp.MomentForCircle(mass, 0, radius, cp.Vector{})
	if def.FixedRotation {
		moment = math.Inf(1)
	}

	body := w.newBody(def, mass, moment, cp.Vector{X: def.X, Y: def.Y})
	shape := cp.NewCircle(body, radius, cp.Vector{})
	applyMaterial(shape, def.Material)
	shape.SetCollisionType(def.Tag.collisionType())

	w.space.AddBody(body)
	w.space.AddShape(shape)
	id := w.register(&entry{body: body, shapes: []*cp.Shape{shape}, tag: def.Tag, owner: def.Owner})
	w.logger.Debug("circle created", "body", id, "tag", def.Tag, "owner", def.Owner, "mass", mass)
	return id, nil
}

// CreateCompound adds one rigid body made of several boxes. The body origin
// sits on the parts' combined centre of mass, so uneven layouts lean the way
// their mass is distributed.
func (w *World) CreateCompound(def BodyDef, parts []Part) (BodyID, error) {
	if w == nil || w.space == nil {
		return 0, ErrNilWorld
	}
	if len(parts) == 0 || def.Material.Density <= 0 {
		return 0, fmt.Errorf("%w: %d parts density %v", ErrInvalidBody, len(parts), def.Material.Density)
	}
	for _, p := range parts {
		if p.Width <= 0 || p.Height <= 0 {
			return 0, fmt.Errorf("%w: part size %vx%v", ErrInvalidBody, p.Width, p.Height)
		}
	}

	cx, cy := Centroid(parts)
	var mass, moment float64
	bbs := make([]cp.BB, len(parts))
	for i, p := range parts {
		m := def.Material.Density * p.Width * p.Height
		bbs[i] = cp.BB{
			L: p.X - cx - p.Width/2,
			B: p.Y - cy - p.Height/2,
			R: p.X - cx + p.Width/2,
			T: p.Y - cy + p.Height/2,
		}
		mass += m
		moment += cp.MomentForBox2(m, bbs[i])
	}
	if def.FixedRotation {
		moment = math.Inf(1)
	}

	offset := cp.Vector{X: cx, Y: cy}.Rotate(cp.ForAngle(def.Angle))
	body := w.newBody(def, mass, moment, cp.Vector{X: def.X + offset.X, Y: def.Y + offset.Y})
	shapes := make([]*cp.Shape, 0, len(parts))
	for _, bb := range bbs {
		shape := cp.NewBox2(body, bb, 0)
		applyMaterial(shape, def.Material)
		shape.SetCollisionType(def.Tag.collisionType())
		shapes = append(shapes, shape)
	}

	w.space.AddBody(body)
	for _, shape := range shapes {
		w.space.AddShape(shape)
	}
	id := w.register(&entry{body: body, shapes: shapes, tag: def.Tag, owner: def.Owner})
	w.logger.Debug("body created", "body", id, "tag", def.Tag, "owner", def.Owner, "parts", len(parts), "mass", mass)
	return id, nil
}

// Centroid returns the area-weighted centre of a set of parts, relative to
// their shared reference point.
func Centroid(parts []Part) (float64, float64) {
	var area, x, y float64
	for _, p := range parts {
		a := p.Width * p.Height
		area += a
		x += p.X * a
		y += p.Y * a
	}
	if area == 0 {
		return 0, 0
	}
	return x / area, y / area
}

func (w *World) newBody(def BodyDef, mass, moment float64, pos cp.Vector) *cp.Body {
	body := cp.NewBody(mass, moment)
	body.SetPosition(pos)
	body.SetAngle(def.Angle)
	if def.NoGravity {
		body.SetVelocityUpdateFunc(func(body *cp.Body, gravity cp.Vector, damping float64, dt float64) {
			cp.BodyUpdateVelocity(body, cp.Vector{}, damping, dt)
		})
	}
	return body
}

func applyMaterial(shape *cp.Shape, mat Material) {
	shape.SetFriction(mat.Friction)
	shape.SetElasticity(mat.Elasticity)
}

func (w *World) register(e *entry) BodyID {
	w.next++
	id := w.next
	w.bodies[id] = e
	for _, shape := range e.shapes {
		w.shapes[shape] = id
	}
	return id
}

// Remove takes a body out of the space. The association entry is dropped
// before the engine objects so no lookup can reach a half-removed body.
func (w *World) Remove(id BodyID) error {
	if w == nil || w.space == nil {
		return ErrNilWorld
	}
	e, ok := w.bodies[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	delete(w.bodies, id)
	for _, shape := range e.shapes {
		delete(w.shapes, shape)
	}

	for _, shape := range e.shapes {
		w.space.RemoveShape(shape)
	}
	if !e.static {
		w.space.RemoveBody(e.body)
	}
	w.logger.Debug("body removed", "body", id, "tag", e.tag, "owner", e.owner)
	return nil
}

// Has reports whether id names a live body.
func (w *World) Has(id BodyID) bool {
	if w == nil {
		return false
	}
	_, ok := w.bodies[id]
	return ok
}

// Reset removes every body and shape from the space, then rebuilds the space
// with the same tuning. Anything the engine still holds is enumerated and
// removed explicitly so nothing survives into the new world.
func (w *World) Reset() {
	if w == nil {
		return
	}
	if w.space != nil {
		var shapes []*cp.Shape
		var bodies []*cp.Body
		w.space.EachShape(func(shape *cp.Shape) {
			shapes = append(shapes, shape)
		})
		w.space.EachBody(func(body *cp.Body) {
			bodies = append(bodies, body)
		})
		for _, shape := range shapes {
			w.space.RemoveShape(shape)
		}
		for _, body := range bodies {
			w.space.RemoveBody(body)
		}
		w.logger.Info("world reset", "bodies", len(bodies), "shapes", len(shapes))
	}
	w.init()
}

// DebugDraw hands every shape in the space to drawer.
func (w *World) DebugDraw(drawer cp.Drawer) {
	if w == nil || w.space == nil || drawer == nil {
		return
	}
	cp.DrawSpace(w.space, drawer)
}

// BodyCount returns the number of bodies the engine holds, excluding the
// built-in static body.
func (w *World) BodyCount() int {
	if w == nil || w.space == nil {
		return 0
	}
	n := 0
	w.space.EachBody(func(*cp.Body) {
		n++
	})
	return n
}

// Len returns the number of registered handles, ground included.
func (w *World) Len() int {
	if w == nil {
		return 0
	}
	return len(w.bodies)
}

func (w *World) dynamic(id BodyID) (*entry, error) {
	if w == nil {
		return nil, ErrNilWorld
	}
	e, ok := w.bodies[id]
	if !ok || e.static {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	return e, nil
}

// ApplyForce pushes a body through its centre of mass for the next step.
func (w *World) ApplyForce(id BodyID, fx, fy float64) error {
	e, err := w.dynamic(id)
	if err != nil {
		return err
	}
	e.body.ApplyForceAtWorldPoint(cp.Vector{X: fx, Y: fy}, e.body.Position())
	return nil
}

func (w *World) SetVelocity(id BodyID, vx, vy float64) error {
	e, err := w.dynamic(id)
	if err != nil {
		return err
	}
	e.body.SetVelocity(vx, vy)
	return nil
}

func (w *World) SetPosition(id BodyID, x, y float64) error {
	e, err := w.dynamic(id)
	if err != nil {
		return err
	}
	e.body.SetPosition(cp.Vector{X: x, Y: y})
	return nil
}

func (w *World) Velocity(id BodyID) (float64, float64, bool) {
	e, err := w.dynamic(id)
	if err != nil {
		return 0, 0, false
	}
	v := e.body.Velocity()
	return v.X, v.Y, true
}

func (w *World) Position(id BodyID) (float64, float64, bool) {
	e, err := w.dynamic(id)
	if err != nil {
		return 0, 0, false
	}
	p := e.body.Position()
	return p.X, p.Y, true
}

func (w *World) Angle(id BodyID) (float64, bool) {
	e, err := w.dynamic(id)
	if err != nil {
		return 0, false
	}
	return e.body.Angle(), true
}

func (w *World) Mass(id BodyID) (float64, bool) {
	e, err := w.dynamic(id)
	if err != nil {
		return 0, false
	}
	return e.body.Mass(), true
}
