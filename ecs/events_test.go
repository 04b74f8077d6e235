package ecs

import "testing"

func TestEventQueueDrainIsFIFO(t *testing.T) {
	var q EventQueue
	q.Emit(EventWaveStarted, 0)
	q.Push(Event{Type: EventEnemySpawned, Entity: 4, Data: "fast"})
	q.Emit(EventEnemyDefeated, 4)

	if q.Len() != 3 {
		t.Fatalf("expected 3 queued events, got %d", q.Len())
	}
	got := q.Drain()
	want := []EventType{EventWaveStarted, EventEnemySpawned, EventEnemyDefeated}
	for i, evt := range got {
		if evt.Type != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], evt.Type)
		}
	}
	if got[1].Data != "fast" || got[1].Entity != 4 {
		t.Fatalf("payload lost: %+v", got[1])
	}
	if q.Len() != 0 || q.Drain() != nil {
		t.Fatalf("drain should empty the queue")
	}
}

func TestEventQueueNilSafe(t *testing.T) {
	var q *EventQueue
	q.Push(Event{Type: EventGameOver})
	q.Clear()
	if q.Len() != 0 || q.Drain() != nil {
		t.Fatalf("nil queue should stay empty")
	}
}

func TestSchedulerRunsInOrder(t *testing.T) {
	var order []string
	record := func(name string) System {
		return SystemFunc(func(dt float64) {
			if dt != 0.5 {
				t.Fatalf("%s got dt %v", name, dt)
			}
			order = append(order, name)
		})
	}

	s := NewScheduler(record("input"), record("physics"))
	s.Add(nil)
	s.Add(record("terminal"))
	s.Update(0.5)

	want := []string{"input", "physics", "terminal"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
	if len(s.Systems()) != 3 {
		t.Fatalf("nil system should not be added, got %d", len(s.Systems()))
	}
}
