// Package timertest provides a manually advanced Scheduler.
package timertest

import (
	"sort"
	"sync"
	"time"

	"paralleldex/internal/timer"
)

type entry struct {
	id     int
	due    time.Duration
	period time.Duration
	f      func()
	active bool
}

type handle struct {
	fake *Fake
	e    *entry
}

func (h handle) Stop() bool {
	h.fake.mu.Lock()
	defer h.fake.mu.Unlock()
	was := h.e.active
	h.e.active = false
	return was
}

// Fake fires callbacks only when Advance is called. Callbacks run on the
// caller's goroutine with no lock held.
type Fake struct {
	mu      sync.Mutex
	now     time.Duration
	nextID  int
	entries []*entry
}

var _ timer.Scheduler = (*Fake)(nil)

func New() *Fake {
	return &Fake{}
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) timer.Handle {
	return f.add(d, 0, fn)
}

func (f *Fake) Every(d time.Duration, fn func()) timer.Handle {
	return f.add(d, d, fn)
}

func (f *Fake) add(d, period time.Duration, fn func()) timer.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	e := &entry{id: f.nextID, due: f.now + d, period: period, f: fn, active: true}
	f.entries = append(f.entries, e)
	return handle{fake: f, e: e}
}

// Pending counts handles that are still armed.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.active {
			n++
		}
	}
	return n
}

// Advance moves the fake clock forward and fires everything that became due,
// in due order.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now + d
	f.mu.Unlock()

	for {
		f.mu.Lock()
		next := f.nextDueLocked(target)
		if next == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = next.due
		if next.period > 0 {
			next.due += next.period
		} else {
			next.active = false
		}
		fn := next.f
		f.mu.Unlock()
		fn()
	}
}

func (f *Fake) nextDueLocked(target time.Duration) *entry {
	candidates := make([]*entry, 0, len(f.entries))
	for _, e := range f.entries {
		if e.active && e.due <= target {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].due == candidates[j].due {
			return candidates[i].id < candidates[j].id
		}
		return candidates[i].due < candidates[j].due
	})
	return candidates[0]
}
