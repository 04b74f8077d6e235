package ecs

// System advances one part of the simulation by a fixed sub-step.
type System interface {
	Update(dt float64)
}

// SystemFunc adapts a function to System.
type SystemFunc func(dt float64)

func (f SystemFunc) Update(dt float64) {
	if f == nil {
		return
	}
	f(dt)
}

// Scheduler runs systems in the order they were added.
type Scheduler struct {
	systems []System
}

func NewScheduler(systems ...System) *Scheduler {
	copied := append([]System(nil), systems...)
	return &Scheduler{systems: copied}
}

func (s *Scheduler) Add(system System) {
	if system == nil {
		return
	}
	s.systems = append(s.systems, system)
}

func (s *Scheduler) Update(dt float64) {
	for _, system := range s.systems {
		if system != nil {
			system.Update(dt)
		}
	}
}

func (s *Scheduler) Systems() []System {
	systems := make([]System, 0, len(s.systems))
	return append(systems, s.systems...)
}
