package ecs

// EventType identifies gameplay events raised during a sub-step.
type EventType string

const (
	EventBlockPlaced       EventType = "block_placed"
	EventBlockDestroyed    EventType = "block_destroyed"
	EventEnemySpawned      EventType = "enemy_spawned"
	EventEnemyDefeated     EventType = "enemy_defeated"
	EventEnemyReachedHome  EventType = "enemy_reached_home"
	EventWaveStarted       EventType = "wave_started"
	EventWaveCompleted     EventType = "wave_completed"
	EventGameOver          EventType = "game_over"
	EventInsufficientFunds EventType = "insufficient_funds"
	EventEnergyUpgraded    EventType = "energy_upgraded"
)

// Event is a gameplay event payload.
type Event struct {
	Type   EventType
	Entity Entity
	Data   any
}

// EventQueue is a simple FIFO queue.
type EventQueue struct {
	items []Event
}

// Push adds an event.
func (q *EventQueue) Push(evt Event) {
	if q == nil {
		return
	}
	q.items = append(q.items, evt)
}

// Emit is shorthand for pushing an event without payload.
func (q *EventQueue) Emit(t EventType, e Entity) {
	q.Push(Event{Type: t, Entity: e})
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.items)
}

// Drain returns all events and clears the queue.
func (q *EventQueue) Drain() []Event {
	if q == nil || len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

// Clear drops all queued events.
func (q *EventQueue) Clear() {
	if q == nil {
		return
	}
	q.items = nil
}
