package ladder_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"paralleldex/internal/ladder"
	"paralleldex/internal/model"
)

func TestGenerateBridgesBounds(t *testing.T) {
	t.Parallel()

	for seed := int64(0); seed < 200; seed++ {
		rng := rand.New(rand.NewSource(seed))
		bridges := ladder.GenerateBridges(rng)
		if len(bridges) == 0 || len(bridges) > 10 {
			t.Fatalf("seed %d: %d bridges", seed, len(bridges))
		}
		for i, b := range bridges {
			if b.Col < 0 || b.Col > ladder.Lanes-2 {
				t.Fatalf("seed %d: bridge col %d", seed, b.Col)
			}
			if b.Y < 15 || b.Y > 85 {
				t.Fatalf("seed %d: bridge y %.2f", seed, b.Y)
			}
			for _, other := range bridges[:i] {
				if other.Col == b.Col && math.Abs(other.Y-b.Y) < 5 {
					t.Fatalf("seed %d: crowded bridges %+v %+v", seed, other, b)
				}
			}
		}
	}
}

func TestResolveCrossesInVerticalOrder(t *testing.T) {
	t.Parallel()

	// unsorted on purpose
	bridges := []ladder.Bridge{
		{Col: 1, Y: 60},
		{Col: 0, Y: 20},
		{Col: 2, Y: 80},
	}
	cases := map[int]int{0: 3, 1: 0, 2: 1, 3: 2}
	for start, want := range cases {
		if got := ladder.Resolve(bridges, start); got != want {
			t.Fatalf("Resolve(start=%d) = %d, want %d", start, got, want)
		}
	}
}

func TestResolveNoBridgesStaysInLane(t *testing.T) {
	t.Parallel()

	for lane := 0; lane < ladder.Lanes; lane++ {
		if got := ladder.Resolve(nil, lane); got != lane {
			t.Fatalf("Resolve(nil, %d) = %d", lane, got)
		}
	}
}

func TestResolveIsPermutationAndDeterministic(t *testing.T) {
	t.Parallel()

	for seed := int64(0); seed < 100; seed++ {
		bridges := ladder.GenerateBridges(rand.New(rand.NewSource(seed)))
		seen := map[int]bool{}
		for lane := 0; lane < ladder.Lanes; lane++ {
			first := ladder.Resolve(bridges, lane)
			if again := ladder.Resolve(bridges, lane); again != first {
				t.Fatalf("seed %d lane %d: %d then %d", seed, lane, first, again)
			}
			seen[first] = true
		}
		if len(seen) != ladder.Lanes {
			t.Fatalf("seed %d: end lanes not a permutation: %v", seed, seen)
		}
	}
}

func TestTraceEndsAtResolvedLane(t *testing.T) {
	t.Parallel()

	bridges := []ladder.Bridge{{Col: 0, Y: 30}, {Col: 1, Y: 50}}
	path := ladder.Trace(bridges, 0)
	last := path[len(path)-1]
	if last.Y != 100 || last.X != ladder.LaneX(2) {
		t.Fatalf("unexpected trace end %+v", last)
	}
	if path[0].Y != 0 || path[0].X != ladder.LaneX(0) {
		t.Fatalf("unexpected trace start %+v", path[0])
	}
}

func testPool() []model.Creature {
	return []model.Creature{
		{ID: "a", DangerLevel: 1},
		{ID: "b", DangerLevel: 3},
		{ID: "c", DangerLevel: 5},
	}
}

func testItems() []model.Item {
	return []model.Item{{ID: "item_nut", EffectValue: 10}}
}

func TestBuildRewardsCompleteness(t *testing.T) {
	t.Parallel()

	for seed := int64(0); seed < 100; seed++ {
		rewards := ladder.BuildRewards(rand.New(rand.NewSource(seed)), testPool(), testItems())
		if len(rewards) != ladder.Lanes {
			t.Fatalf("expected %d slots, got %d", ladder.Lanes, len(rewards))
		}
		var rare, common, item, empty int
		for _, r := range rewards {
			switch r.Kind {
			case model.RewardCreature:
				if r.Creature.DangerLevel >= 4 {
					rare++
				}
				if r.Creature.DangerLevel <= 2 {
					common++
				}
			case model.RewardItem:
				item++
			case model.RewardEmpty:
				empty++
			}
		}
		if rare < 1 || common < 1 || item < 1 || empty != 1 {
			t.Fatalf("seed %d: rare=%d common=%d item=%d empty=%d", seed, rare, common, item, empty)
		}
	}
}

func TestBuildRewardsFallsBackToExtremes(t *testing.T) {
	t.Parallel()

	onlyMid := []model.Creature{{ID: "x", DangerLevel: 3}}
	rewards := ladder.BuildRewards(rand.New(rand.NewSource(1)), onlyMid, testItems())
	creatures := 0
	for _, r := range rewards {
		if r.Kind == model.RewardCreature {
			creatures++
			if r.Creature.ID != "x" {
				t.Fatalf("unexpected creature %s", r.Creature.ID)
			}
		}
	}
	if creatures != 2 {
		t.Fatalf("expected two creature slots, got %d", creatures)
	}

	rewards = ladder.BuildRewards(rand.New(rand.NewSource(2)), []model.Creature{
		{ID: "three", DangerLevel: 3},
		{ID: "two", DangerLevel: 2},
	}, testItems())
	ids := map[string]int{}
	for _, r := range rewards {
		if r.Kind == model.RewardCreature {
			ids[r.Creature.ID]++
		}
	}
	// no rare creature: the highest danger one stands in
	if ids["three"] != 1 || ids["two"] != 1 {
		t.Fatalf("unexpected creature slots %v", ids)
	}
}

func TestBoardPlay(t *testing.T) {
	t.Parallel()

	board := ladder.Board{
		Bridges: []ladder.Bridge{{Col: 0, Y: 40}, {Col: 2, Y: 20}},
		Slots: []ladder.Slot{
			{Role: ladder.RoleEmpty, Reward: model.EmptyReward()},
			{Role: ladder.RoleItem, Reward: model.ItemReward(model.Item{ID: "item_nut"})},
			{Role: ladder.RoleEmpty, Reward: model.EmptyReward()},
			{Role: ladder.RoleEmpty, Reward: model.EmptyReward()},
		},
	}
	reward, end, err := board.Play(0)
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if visible := board.Visible(); len(visible) != 1 || visible[0].Y != 20 {
		t.Fatalf("Visible() = %v, want only the bridge above the fog", visible)
	}
	if end != 1 || reward.Kind != model.RewardItem {
		t.Fatalf("Play(0) = %+v end=%d", reward, end)
	}
	if _, _, err := board.Play(ladder.Lanes); !errors.Is(err, ladder.ErrLaneOutOfRange) {
		t.Fatalf("Play(out of range) error = %v", err)
	}
	hints := board.Hints()
	if hints[1] != "アイテム" || hints[0] != "反応なし" {
		t.Fatalf("unexpected hints %v", hints)
	}
}

func TestRareSlotStandInKeepsItsHint(t *testing.T) {
	t.Parallel()

	onlyMid := []model.Creature{{ID: "x", DangerLevel: 3}}
	for seed := int64(0); seed < 20; seed++ {
		board := ladder.Deal(rand.New(rand.NewSource(seed)), onlyMid, testItems())
		counts := map[string]int{}
		for _, h := range board.Hints() {
			counts[h]++
		}
		if counts["強反応"] != 1 || counts["生体反応"] != 1 || counts["アイテム"] != 1 || counts["反応なし"] != 1 {
			t.Fatalf("seed %d: hints %v", seed, board.Hints())
		}
	}
}

func TestVisibleBridgesStayAboveFog(t *testing.T) {
	t.Parallel()

	hidden := 0
	for seed := int64(0); seed < 100; seed++ {
		board := ladder.Deal(rand.New(rand.NewSource(seed)), testPool(), testItems())
		visible := board.Visible()
		for _, b := range visible {
			if b.Y >= ladder.FogLine {
				t.Fatalf("seed %d: bridge %+v shown below the fog", seed, b)
			}
		}
		hidden += len(board.Bridges) - len(visible)
	}
	if hidden == 0 {
		t.Fatalf("expected the fog to hide some bridges")
	}
}
