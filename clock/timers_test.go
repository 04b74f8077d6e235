package clock

import "testing"

func TestTimersFireInOrder(t *testing.T) {
	timers := NewTimers()
	var order []string
	timers.After(0.3, "c", func() { order = append(order, "c") })
	timers.After(0.1, "a", func() { order = append(order, "a") })
	timers.After(0.2, "b", func() { order = append(order, "b") })

	if n := timers.Advance(0.15); n != 1 {
		t.Fatalf("expected 1 timer due, got %d", n)
	}
	if n := timers.Advance(1); n != 2 {
		t.Fatalf("expected 2 timers due, got %d", n)
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
	if timers.Len() != 0 {
		t.Fatalf("expected no pending timers, got %d", timers.Len())
	}
}

func TestTimersCancel(t *testing.T) {
	tests := []struct {
		name    string
		cancel  func(ts *Timers, id TimerID)
		wantRun bool
	}{
		{"cancel_one", func(ts *Timers, id TimerID) { ts.Cancel(id) }, false},
		{"cancel_all", func(ts *Timers, _ TimerID) { ts.CancelAll() }, false},
		{"no_cancel", func(*Timers, TimerID) {}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			timers := NewTimers()
			ran := false
			id := timers.After(0.1, "guard", func() { ran = true })
			if !timers.Pending("guard") {
				t.Fatalf("expected guard timer pending")
			}
			tc.cancel(timers, id)
			timers.Advance(1)
			if ran != tc.wantRun {
				t.Fatalf("expected ran=%v, got %v", tc.wantRun, ran)
			}
		})
	}
}

func TestTimersRescheduleFromCallback(t *testing.T) {
	timers := NewTimers()
	count := 0
	var tick func()
	tick = func() {
		count++
		if count < 3 {
			timers.After(0.1, "tick", tick)
		}
	}
	timers.After(0.1, "tick", tick)

	for i := 0; i < 10; i++ {
		timers.Advance(0.1)
	}
	if count != 3 {
		t.Fatalf("expected 3 runs, got %d", count)
	}
}
