// Package ladder implements the lane-and-bridge reward game.
package ladder

import (
	"errors"
	"math/rand"
	"sort"

	"paralleldex/internal/model"
)

const (
	Lanes = 4

	minBridges = 7
	maxBridges = 10
	minY       = 15.0
	spanY      = 70.0
	// candidates closer than this to a bridge on the same lane pair are dropped
	minGap = 5.0

	// FogLine hides the board below this height until a lane is played.
	FogLine = 35.0
)

var ErrLaneOutOfRange = errors.New("lane out of range")

// Bridge links lane Col with lane Col+1 at vertical position Y (percent of
// board height, 0 at the top).
type Bridge struct {
	Col int     `json:"col"`
	Y   float64 `json:"y"`
}

// Point is a vertex of a traced path in board percentages.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GenerateBridges draws 7 to 10 candidates. A candidate too close to an
// accepted bridge on the same pair is dropped without retry, so fewer bridges
// may come back.
func GenerateBridges(rng *rand.Rand) []Bridge {
	attempts := minBridges + rng.Intn(maxBridges-minBridges+1)
	bridges := make([]Bridge, 0, attempts)
	for i := 0; i < attempts; i++ {
		col := rng.Intn(Lanes - 1)
		y := minY + rng.Float64()*spanY
		if crowded(bridges, col, y) {
			continue
		}
		bridges = append(bridges, Bridge{Col: col, Y: y})
	}
	return bridges
}

func crowded(bridges []Bridge, col int, y float64) bool {
	for _, b := range bridges {
		if b.Col != col {
			continue
		}
		d := b.Y - y
		if d < 0 {
			d = -d
		}
		if d < minGap {
			return true
		}
	}
	return false
}

// Role is what a slot was dealt as. Hints show the role, not the reward,
// so a stand-in creature in the rare slot still reads as 強反応.
type Role string

const (
	RoleRare   Role = "rare"
	RoleCommon Role = "common"
	RoleItem   Role = "item"
	RoleEmpty  Role = "empty"
)

func (r Role) Label() string {
	switch r {
	case RoleRare:
		return "強反応"
	case RoleCommon:
		return "生体反応"
	case RoleItem:
		return "アイテム"
	default:
		return "反応なし"
	}
}

// Slot is one end of the board.
type Slot struct {
	Role   Role
	Reward model.Reward
}

// BuildSlots fills Lanes slots with one rare creature, one common creature,
// one item and empties, then shuffles them.
func BuildSlots(rng *rand.Rand, pool []model.Creature, items []model.Item) []Slot {
	slots := make([]Slot, 0, Lanes)
	if len(pool) > 0 {
		slots = append(slots, Slot{Role: RoleRare, Reward: model.CreatureReward(pickRare(rng, pool))})
		slots = append(slots, Slot{Role: RoleCommon, Reward: model.CreatureReward(pickCommon(rng, pool))})
	}
	if len(items) > 0 {
		slots = append(slots, Slot{Role: RoleItem, Reward: model.ItemReward(items[rng.Intn(len(items))])})
	}
	for len(slots) < Lanes {
		slots = append(slots, Slot{Role: RoleEmpty, Reward: model.EmptyReward()})
	}
	for i := len(slots) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		slots[i], slots[j] = slots[j], slots[i]
	}
	return slots
}

// BuildRewards is BuildSlots without the roles.
func BuildRewards(rng *rand.Rand, pool []model.Creature, items []model.Item) []model.Reward {
	slots := BuildSlots(rng, pool, items)
	out := make([]model.Reward, len(slots))
	for i, sl := range slots {
		out[i] = sl.Reward
	}
	return out
}

func pickRare(rng *rand.Rand, pool []model.Creature) model.Creature {
	rare := filterDanger(pool, func(d int) bool { return d >= 4 })
	if len(rare) > 0 {
		return rare[rng.Intn(len(rare))]
	}
	best := pool[0]
	for _, c := range pool[1:] {
		if c.DangerLevel > best.DangerLevel {
			best = c
		}
	}
	return best
}

func pickCommon(rng *rand.Rand, pool []model.Creature) model.Creature {
	common := filterDanger(pool, func(d int) bool { return d <= 2 })
	if len(common) > 0 {
		return common[rng.Intn(len(common))]
	}
	best := pool[0]
	for _, c := range pool[1:] {
		if c.DangerLevel < best.DangerLevel {
			best = c
		}
	}
	return best
}

func filterDanger(pool []model.Creature, keep func(int) bool) []model.Creature {
	out := make([]model.Creature, 0, len(pool))
	for _, c := range pool {
		if keep(c.DangerLevel) {
			out = append(out, c)
		}
	}
	return out
}

// Resolve walks down from lane start and returns the lane it ends in.
func Resolve(bridges []Bridge, start int) int {
	lane, _ := walk(bridges, start)
	return lane
}

// Trace returns the polyline of the walk from the top of lane start to the
// bottom, for clients that animate it.
func Trace(bridges []Bridge, start int) []Point {
	_, path := walk(bridges, start)
	return path
}

func walk(bridges []Bridge, start int) (int, []Point) {
	sorted := make([]Bridge, len(bridges))
	copy(sorted, bridges)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y < sorted[j].Y })

	lane := start
	cursor := 0.0
	path := []Point{{X: LaneX(lane), Y: 0}}
	for {
		next := -1
		for i, b := range sorted {
			if b.Y > cursor && (b.Col == lane || b.Col == lane-1) {
				next = i
				break
			}
		}
		if next < 0 {
			break
		}
		b := sorted[next]
		path = append(path, Point{X: LaneX(lane), Y: b.Y})
		if b.Col == lane {
			lane++
		} else {
			lane--
		}
		path = append(path, Point{X: LaneX(lane), Y: b.Y})
		cursor = b.Y
	}
	path = append(path, Point{X: LaneX(lane), Y: 100})
	return lane, path
}

// LaneX is the horizontal position of a lane, spread across 20% to 80%.
func LaneX(lane int) float64 {
	return 20 + float64(lane)*(60/float64(Lanes-1))
}

// Board is one dealt game: fixed bridges and hidden slots.
type Board struct {
	Bridges []Bridge
	Slots   []Slot
}

func Deal(rng *rand.Rand, pool []model.Creature, items []model.Item) Board {
	return Board{
		Bridges: GenerateBridges(rng),
		Slots:   BuildSlots(rng, pool, items),
	}
}

// Play resolves a starting lane to its reward.
func (b Board) Play(start int) (model.Reward, int, error) {
	if start < 0 || start >= Lanes {
		return model.Reward{}, 0, ErrLaneOutOfRange
	}
	end := Resolve(b.Bridges, start)
	return b.Slots[end].Reward, end, nil
}

// Hints are the labels shown above each closed slot.
func (b Board) Hints() []string {
	out := make([]string, len(b.Slots))
	for i, sl := range b.Slots {
		out[i] = sl.Role.Label()
	}
	return out
}

// Visible is what a player sees before choosing a lane: only the bridges
// above the fog line.
func (b Board) Visible() []Bridge {
	out := make([]Bridge, 0, len(b.Bridges))
	for _, br := range b.Bridges {
		if br.Y < FogLine {
			out = append(out, br)
		}
	}
	return out
}
