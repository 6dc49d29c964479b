// Package buddy holds the companion rules: bond (sync) growth clamped at
// MaxSync, the one-time evolution offer and the evolution itself.
package buddy

import (
	"errors"
	"fmt"
	"time"

	"paralleldex/internal/model"
)

const MaxSync = 100

var ErrNotReadyToEvolve = errors.New("まだ進化できません。絆を深めよう！")

// Lookup resolves a creature id against the creature table.
type Lookup func(id string) (model.Creature, bool)

// New binds a copy of c to the player as buddy. Sync starts from the
// creature's stored rate.
func New(playerID string, c model.Creature, now time.Time) model.Companion {
	level := c.EvolutionLevel
	if level < 1 {
		level = 1
	}
	return model.Companion{
		PlayerID:       playerID,
		Creature:       c,
		Role:           model.RoleBuddy,
		SyncRate:       clampSync(c.SyncRate),
		EvolutionLevel: level,
		UpdatedAt:      now,
	}
}

type SyncResult struct {
	Previous int `json:"previous"`
	Current  int `json:"current"`
	// MaxReached is set only by the call that crosses from below MaxSync.
	MaxReached bool `json:"max_reached"`
	// EvolutionOffered accompanies MaxReached when the buddy can evolve.
	EvolutionOffered bool   `json:"evolution_offered"`
	Message          string `json:"message,omitempty"`
}

func IncrementSync(c *model.Companion, amount int) SyncResult {
	prev := c.SyncRate
	c.SyncRate = clampSync(prev + amount)
	res := SyncResult{Previous: prev, Current: c.SyncRate}
	if prev < MaxSync && c.SyncRate >= MaxSync {
		res.MaxReached = true
		if c.EvolutionLevel == 1 && c.Creature.EvolvesTo != "" {
			res.EvolutionOffered = true
			res.Message = fmt.Sprintf("⚡ %s との絆が MAX になった！ ⚡ 進化させますか？", c.Creature.Name)
		} else {
			res.Message = fmt.Sprintf("⚡ %s との絆が MAX になった！ ⚡", c.Creature.Name)
		}
	}
	return res
}

// Pet is the tap interaction: +1 while the bond is below MaxSync. At max it
// only reports whether evolution is waiting.
func Pet(c *model.Companion) SyncResult {
	if c.SyncRate < MaxSync {
		return IncrementSync(c, 1)
	}
	res := SyncResult{Previous: c.SyncRate, Current: c.SyncRate}
	if CanEvolve(*c) {
		res.EvolutionOffered = true
		res.Message = fmt.Sprintf("%s は進化の準備ができています！進化させますか？", c.Creature.Name)
	}
	return res
}

func CanEvolve(c model.Companion) bool {
	return c.SyncRate >= MaxSync && c.EvolutionLevel == 1 && c.Creature.EvolvesTo != ""
}

type EvolveResult struct {
	From string `json:"from"`
	To   string `json:"to,omitempty"`
	// Degraded means the target id was missing from the table and only the
	// level moved.
	Degraded bool   `json:"degraded"`
	Message  string `json:"message"`
}

// Evolve replaces the buddy with its evolved form. A dangling evolvesTo
// reference is not an error: only the level increases.
func Evolve(c *model.Companion, lookup Lookup, now time.Time) (EvolveResult, error) {
	if !CanEvolve(*c) {
		return EvolveResult{}, ErrNotReadyToEvolve
	}
	from := c.Creature
	res := EvolveResult{From: from.ID}

	target, ok := lookup(from.EvolvesTo)
	if !ok {
		c.EvolutionLevel++
		c.UpdatedAt = now
		res.Degraded = true
		res.Message = fmt.Sprintf("%s の様子が……？ (データ未実装のためレベルのみ上昇)", from.Name)
		return res, nil
	}

	c.Creature = target
	c.SyncRate = MaxSync
	c.EvolutionLevel++
	c.UpdatedAt = now
	res.To = target.ID
	res.Message = fmt.Sprintf("おめでとう！ %s は %s に進化した！", from.Name, target.Name)
	return res, nil
}

func clampSync(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxSync {
		return MaxSync
	}
	return v
}
