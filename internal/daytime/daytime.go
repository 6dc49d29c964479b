package daytime

import (
	"time"

	"paralleldex/internal/model"
)

// CurrentPhase maps a wall-clock hour to a day phase.
// [5,10) morning, [10,16) day, [16,19) sunset, everything else night.
func CurrentPhase(hour int) model.TimeOfDay {
	switch {
	case hour >= 5 && hour < 10:
		return model.Morning
	case hour >= 10 && hour < 16:
		return model.Day
	case hour >= 16 && hour < 19:
		return model.Sunset
	default:
		return model.Night
	}
}

func PhaseAt(t time.Time) model.TimeOfDay {
	return CurrentPhase(t.Hour())
}

// Matches reports whether a creature or spot with the given active times is
// available during phase. The Any tag always matches.
func Matches(active []model.TimeOfDay, phase model.TimeOfDay) bool {
	for _, t := range active {
		if t == phase || t == model.Any {
			return true
		}
	}
	return false
}

// Clock abstracts wall-clock reads so phase gating can be pinned in tests.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// AtHour is a FixedClock on an arbitrary day at the given local hour.
func AtHour(hour int) FixedClock {
	return FixedClock{T: time.Date(2024, time.June, 1, hour, 0, 0, 0, time.Local)}
}
