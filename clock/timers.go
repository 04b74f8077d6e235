package clock

import "slices"

// TimerID identifies a scheduled entry.
type TimerID uint64

type timerEntry struct {
	id   TimerID
	at   float64
	name string
	fn   func()
}

// Timers is a list of deferred transitions evaluated against simulated time.
// Nothing fires on its own: entries run from Advance, on the caller's
// goroutine, so CancelAll leaves nothing in flight.
type Timers struct {
	now     float64
	next    TimerID
	entries []timerEntry
}

func NewTimers() *Timers {
	return &Timers{}
}

// After schedules fn to run once delay seconds of simulated time have passed.
func (t *Timers) After(delay float64, name string, fn func()) TimerID {
	if t == nil || fn == nil {
		return 0
	}
	if delay < 0 {
		delay = 0
	}
	t.next++
	t.entries = append(t.entries, timerEntry{id: t.next, at: t.now + delay, name: name, fn: fn})
	return t.next
}

// Cancel removes a pending entry. It reports false if the entry already ran
// or never existed.
func (t *Timers) Cancel(id TimerID) bool {
	if t == nil || id == 0 {
		return false
	}
	for i, e := range t.entries {
		if e.id == id {
			t.entries = slices.Delete(t.entries, i, i+1)
			return true
		}
	}
	return false
}

// CancelAll drops every pending entry and returns how many were dropped.
func (t *Timers) CancelAll() int {
	if t == nil {
		return 0
	}
	n := len(t.entries)
	t.entries = nil
	return n
}

// Advance moves simulated time forward and runs every entry that came due,
// earliest first. Entries scheduled by a running callback are only
// considered on a later Advance.
func (t *Timers) Advance(dt float64) int {
	if t == nil {
		return 0
	}
	if dt > 0 {
		t.now += dt
	}

	var due []timerEntry
	kept := t.entries[:0]
	for _, e := range t.entries {
		if e.at <= t.now {
			due = append(due, e)
			continue
		}
		kept = append(kept, e)
	}
	t.entries = kept
	if len(due) == 0 {
		return 0
	}

	slices.SortStableFunc(due, func(a, b timerEntry) int {
		switch {
		case a.at < b.at:
			return -1
		case a.at > b.at:
			return 1
		}
		return int(a.id) - int(b.id)
	})
	for _, e := range due {
		e.fn()
	}
	return len(due)
}

// Pending reports whether an entry with the given name is scheduled.
func (t *Timers) Pending(name string) bool {
	if t == nil {
		return false
	}
	for _, e := range t.entries {
		if e.name == name {
			return true
		}
	}
	return false
}

// Len returns the number of scheduled entries.
func (t *Timers) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Now returns the simulated time seen by the timers.
func (t *Timers) Now() float64 {
	if t == nil {
		return 0
	}
	return t.now
}
