package explore

import (
	"math/rand"

	"paralleldex/internal/daytime"
	"paralleldex/internal/model"
)

// CandidatePool narrows creatures to those that can appear in an area of the
// given type at phase. The tiers are tried in order and the first non-empty
// one wins:
//
//	same type and active now (or tagged any)
//	same type
//	every creature
func CandidatePool(creatures []model.Creature, areaType model.CreatureType, phase model.TimeOfDay) []model.Creature {
	sameType := make([]model.Creature, 0, len(creatures))
	activeNow := make([]model.Creature, 0, len(creatures))
	for _, c := range creatures {
		if c.Type != areaType {
			continue
		}
		sameType = append(sameType, c)
		if daytime.Matches(c.ActiveTime, phase) {
			activeNow = append(activeNow, c)
		}
	}
	if len(activeNow) > 0 {
		return activeNow
	}
	if len(sameType) > 0 {
		return sameType
	}
	out := make([]model.Creature, len(creatures))
	copy(out, creatures)
	return out
}

// SelectCandidate draws uniformly from CandidatePool. It only fails on an
// empty table.
func SelectCandidate(rng *rand.Rand, creatures []model.Creature, areaType model.CreatureType, phase model.TimeOfDay) (model.Creature, bool) {
	pool := CandidatePool(creatures, areaType, phase)
	if len(pool) == 0 {
		return model.Creature{}, false
	}
	return pool[rng.Intn(len(pool))], true
}
