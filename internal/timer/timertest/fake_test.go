package timertest_test

import (
	"testing"
	"time"

	"paralleldex/internal/timer/timertest"
)

func TestFakeAfterFuncFiresOnce(t *testing.T) {
	t.Parallel()

	f := timertest.New()
	fired := 0
	f.AfterFunc(time.Second, func() { fired++ })

	f.Advance(999 * time.Millisecond)
	if fired != 0 {
		t.Fatalf("fired early: %d", fired)
	}
	f.Advance(time.Millisecond)
	f.Advance(time.Hour)
	if fired != 1 {
		t.Fatalf("expected exactly one firing, got %d", fired)
	}
	if f.Pending() != 0 {
		t.Fatalf("expected no pending handles, got %d", f.Pending())
	}
}

func TestFakeEveryRepeatsUntilStopped(t *testing.T) {
	t.Parallel()

	f := timertest.New()
	ticks := 0
	h := f.Every(150*time.Millisecond, func() { ticks++ })

	f.Advance(450 * time.Millisecond)
	if ticks != 3 {
		t.Fatalf("expected 3 ticks, got %d", ticks)
	}
	if !h.Stop() {
		t.Fatalf("Stop() on active handle should report true")
	}
	if h.Stop() {
		t.Fatalf("second Stop() should report false")
	}
	f.Advance(time.Second)
	if ticks != 3 {
		t.Fatalf("ticks after stop: %d", ticks)
	}
}

func TestFakeCallbackMayScheduleMore(t *testing.T) {
	t.Parallel()

	f := timertest.New()
	order := []string{}
	f.AfterFunc(10*time.Millisecond, func() {
		order = append(order, "a")
		f.AfterFunc(10*time.Millisecond, func() { order = append(order, "b") })
	})
	f.Advance(30 * time.Millisecond)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("unexpected order %v", order)
	}
}
