package overworld

import (
	"sync"

	"paralleldex/internal/timer"
)

// Walker turns a held direction into one immediate step followed by a step
// every StepInterval until release or a change of direction.
type Walker struct {
	mu     sync.Mutex
	sched  timer.Scheduler
	pos    Position
	dir    Direction
	repeat timer.Handle
	gen    uint64
	onMove func(Position)
}

func NewWalker(sched timer.Scheduler, start Position, onMove func(Position)) *Walker {
	if sched == nil {
		sched = timer.Real{}
	}
	return &Walker{sched: sched, pos: start, onMove: onMove}
}

func (w *Walker) Position() Position {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pos
}

// Heading is the held direction, empty when released.
func (w *Walker) Heading() Direction {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dir
}

func (w *Walker) Press(d Direction) error {
	if _, _, ok := d.delta(); !ok {
		return ErrBadDirection
	}
	w.mu.Lock()
	if d == w.dir && w.repeat != nil {
		w.mu.Unlock()
		return nil
	}
	w.stopLocked()
	w.dir = d
	w.pos = Step(w.pos, d)
	pos := w.pos
	gen := w.gen
	w.repeat = w.sched.Every(StepInterval, func() { w.tick(gen) })
	w.mu.Unlock()

	w.notify(pos)
	return nil
}

func (w *Walker) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
	w.dir = ""
}

// Teleport places the walker without stepping, e.g. when a new area loads.
func (w *Walker) Teleport(p Position) {
	w.mu.Lock()
	w.stopLocked()
	w.dir = ""
	w.pos = p
	w.mu.Unlock()
	w.notify(p)
}

func (w *Walker) tick(gen uint64) {
	w.mu.Lock()
	if gen != w.gen || w.dir == "" {
		w.mu.Unlock()
		return
	}
	w.pos = Step(w.pos, w.dir)
	pos := w.pos
	w.mu.Unlock()
	w.notify(pos)
}

func (w *Walker) stopLocked() {
	if w.repeat != nil {
		w.repeat.Stop()
		w.repeat = nil
	}
	w.gen++
}

func (w *Walker) notify(p Position) {
	if w.onMove != nil {
		w.onMove(p)
	}
}
