package ecs

// Registry hands out generational entity handles. A destroyed id is reused
// with a bumped generation, so stale handles never alias a new entity.
type Registry struct {
	gen   []generation
	free  []entityID
	alive int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Create allocates a new entity.
func (r *Registry) Create() Entity {
	if r == nil {
		return 0
	}
	var id entityID
	if len(r.free) > 0 {
		id = r.free[len(r.free)-1]
		r.free = r.free[:len(r.free)-1]
	} else {
		r.gen = append(r.gen, 1)
		id = entityID(len(r.gen))
	}
	r.alive++
	return makeEntity(id, r.gen[id-1])
}

// Destroy invalidates an entity handle. It reports false for stale or unknown
// handles.
func (r *Registry) Destroy(e Entity) bool {
	if !r.IsAlive(e) {
		return false
	}
	id := e.id()
	r.gen[id-1]++
	r.free = append(r.free, id)
	r.alive--
	return true
}

// IsAlive reports whether an entity handle is valid.
func (r *Registry) IsAlive(e Entity) bool {
	if r == nil || !e.Valid() {
		return false
	}
	id := e.id()
	if id == 0 || int(id) > len(r.gen) {
		return false
	}
	return r.gen[id-1] == e.generation()
}

// Len returns the number of live entities.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return r.alive
}

// Reset forgets every entity. Handles issued before the reset stay invalid
// because generations are kept.
func (r *Registry) Reset() {
	if r == nil {
		return
	}
	r.free = r.free[:0]
	for i := range r.gen {
		r.gen[i]++
		r.free = append(r.free, entityID(len(r.gen)-i))
	}
	r.alive = 0
}
