// Package highlight tracks which trades are "just arrived": each marked id
// stays in the set until its timer fires, it is cancelled, or the set is cleared.
package highlight

import (
	"sort"
	"time"
)

// DefaultDelay is how long a trade stays highlighted.
const DefaultDelay = 1500 * time.Millisecond

// Timer is the cancel handle of a scheduled callback.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock schedules on the runtime timer heap.
var RealClock Clock = realClock{}

type entry struct {
	timer Timer
}

// Scheduler is owned by a single event loop. Timer callbacks do not touch the
// set directly; they are handed to dispatch, which must run them on that loop.
type Scheduler struct {
	delay    time.Duration
	clock    Clock
	dispatch func(func())
	entries  map[string]*entry

	// OnExpire, if set, runs on the loop after an id expires by timer.
	OnExpire func(id string)
}

// New creates a scheduler. A nil clock means RealClock; a nil dispatch runs
// callbacks directly on the timer goroutine, which is only safe in tests.
func New(delay time.Duration, clock Clock, dispatch func(func())) *Scheduler {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if clock == nil {
		clock = RealClock
	}
	if dispatch == nil {
		dispatch = func(f func()) { f() }
	}
	return &Scheduler{
		delay:    delay,
		clock:    clock,
		dispatch: dispatch,
		entries:  make(map[string]*entry),
	}
}

// Mark highlights id and schedules its expiry. Marking an id that is already
// highlighted replaces its timer.
func (s *Scheduler) Mark(id string) {
	if old, ok := s.entries[id]; ok {
		old.timer.Stop()
	}
	e := &entry{}
	s.entries[id] = e
	e.timer = s.clock.AfterFunc(s.delay, func() {
		s.dispatch(func() { s.expire(id, e) })
	})
}

// expire removes id only if e is still its current entry; a firing that lost
// the race against Cancel, Clear or a re-Mark is a no-op.
func (s *Scheduler) expire(id string, e *entry) {
	if cur, ok := s.entries[id]; !ok || cur != e {
		return
	}
	delete(s.entries, id)
	if s.OnExpire != nil {
		s.OnExpire(id)
	}
}

// Cancel stops the timer for id and removes it from the set.
// It reports whether id was highlighted.
func (s *Scheduler) Cancel(id string) bool {
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.entries, id)
	return true
}

// Clear stops every pending timer and empties the set.
func (s *Scheduler) Clear() {
	for id, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, id)
	}
}

func (s *Scheduler) Has(id string) bool {
	_, ok := s.entries[id]
	return ok
}

func (s *Scheduler) Len() int {
	return len(s.entries)
}

// IDs returns the highlighted ids in lexical order.
func (s *Scheduler) IDs() []string {
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
