package overworld_test

import (
	"errors"
	"testing"

	"paralleldex/internal/model"
	"paralleldex/internal/overworld"
	"paralleldex/internal/timer/timertest"
)

func TestStepClampsAtEveryEdge(t *testing.T) {
	t.Parallel()

	last := overworld.GridSize - 1
	cases := []struct {
		start overworld.Position
		dir   overworld.Direction
	}{
		{overworld.Position{X: 5, Y: 0}, overworld.Up},
		{overworld.Position{X: 5, Y: last}, overworld.Down},
		{overworld.Position{X: 0, Y: 5}, overworld.Left},
		{overworld.Position{X: last, Y: 5}, overworld.Right},
	}
	for _, tc := range cases {
		p := tc.start
		for i := 0; i < 10; i++ {
			p = overworld.Step(p, tc.dir)
		}
		if p != tc.start {
			t.Fatalf("Step(%+v, %s) moved to %+v", tc.start, tc.dir, p)
		}
	}
}

func TestStepMovesOneTile(t *testing.T) {
	t.Parallel()

	p := overworld.Step(overworld.Start(), overworld.Right)
	if p.X != overworld.GridSize/2+1 || p.Y != overworld.GridSize/2 {
		t.Fatalf("unexpected position %+v", p)
	}
	if got := overworld.Step(p, "diagonal"); got != p {
		t.Fatalf("unknown direction should not move, got %+v", got)
	}
}

func TestFollowClampsAtMapEdges(t *testing.T) {
	t.Parallel()

	vp := overworld.Viewport{Width: 400, Height: 300}
	mapPx := float64(overworld.GridSize * overworld.TileSize)

	topLeft := overworld.Follow(overworld.Position{X: 0, Y: 0}, vp)
	if topLeft.TranslateX != 0 || topLeft.TranslateY != 0 {
		t.Fatalf("top-left camera shows void: %+v", topLeft)
	}

	last := overworld.GridSize - 1
	bottomRight := overworld.Follow(overworld.Position{X: last, Y: last}, vp)
	if bottomRight.TranslateX != vp.Width-mapPx || bottomRight.TranslateY != vp.Height-mapPx {
		t.Fatalf("bottom-right camera shows void: %+v", bottomRight)
	}

	mid := overworld.Follow(overworld.Start(), vp)
	wantFocus := float64(overworld.GridSize/2*overworld.TileSize) + overworld.TileSize/2
	if mid.FocusX != wantFocus || mid.TranslateX != vp.Width/2-wantFocus {
		t.Fatalf("centre camera should follow the player: %+v", mid)
	}
}

func TestFollowCentresSmallMapAxis(t *testing.T) {
	t.Parallel()

	mapPx := float64(overworld.GridSize * overworld.TileSize)
	vp := overworld.Viewport{Width: mapPx + 200, Height: 300}
	cam := overworld.Follow(overworld.Position{X: 0, Y: 0}, vp)
	if cam.FocusX != mapPx/2 || cam.TranslateX != 100 {
		t.Fatalf("expected centred x axis, got %+v", cam)
	}
}

func TestSpotCellScaling(t *testing.T) {
	t.Parallel()

	got := overworld.SpotCell(model.Spot{X: 50, Y: 10})
	if got.X != 12 || got.Y != 2 {
		t.Fatalf("SpotCell(50,10) = %+v", got)
	}
	edge := overworld.SpotCell(model.Spot{X: 100, Y: 100})
	if edge.X != overworld.GridSize-1 || edge.Y != overworld.GridSize-1 {
		t.Fatalf("SpotCell(100,100) = %+v", edge)
	}
}

func TestNearbyPicksClosestThenLowestID(t *testing.T) {
	t.Parallel()

	// both spots sit on cell (12,12)
	spots := []model.Spot{
		{ID: "zeta", X: 50, Y: 50},
		{ID: "alpha", X: 50, Y: 50},
		{ID: "near", X: 54, Y: 50},
	}
	got, ok := overworld.Nearby(overworld.Position{X: 13, Y: 12}, spots)
	if !ok || got.ID != "near" {
		t.Fatalf("Nearby() = %s ok=%v, want near", got.ID, ok)
	}
	got, ok = overworld.Nearby(overworld.Position{X: 12, Y: 13}, spots)
	if !ok || got.ID != "alpha" {
		t.Fatalf("Nearby() = %s ok=%v, want alpha", got.ID, ok)
	}
	if _, ok := overworld.Nearby(overworld.Position{X: 0, Y: 0}, spots); ok {
		t.Fatalf("no spot should be near the corner")
	}
}

func TestWalkerStepsImmediatelyThenRepeats(t *testing.T) {
	t.Parallel()

	fake := timertest.New()
	moves := 0
	w := overworld.NewWalker(fake, overworld.Position{X: 5, Y: 5}, func(overworld.Position) { moves++ })

	if err := w.Press(overworld.Right); err != nil {
		t.Fatalf("Press() error = %v", err)
	}
	if got := w.Position(); got.X != 6 {
		t.Fatalf("press should step immediately, got %+v", got)
	}
	fake.Advance(3 * overworld.StepInterval)
	if got := w.Position(); got.X != 9 {
		t.Fatalf("expected three repeats, got %+v", got)
	}

	w.Release()
	fake.Advance(10 * overworld.StepInterval)
	if got := w.Position(); got.X != 9 {
		t.Fatalf("release must halt movement, got %+v", got)
	}
	if fake.Pending() != 0 {
		t.Fatalf("repeat timer leaked after release")
	}
	if moves != 4 {
		t.Fatalf("expected 4 move notifications, got %d", moves)
	}
}

func TestWalkerDirectionChangeReplacesRepeat(t *testing.T) {
	t.Parallel()

	fake := timertest.New()
	w := overworld.NewWalker(fake, overworld.Position{X: 5, Y: 5}, nil)

	_ = w.Press(overworld.Right)
	_ = w.Press(overworld.Down)
	if fake.Pending() != 1 {
		t.Fatalf("expected a single armed repeat, got %d", fake.Pending())
	}
	fake.Advance(2 * overworld.StepInterval)
	if got := w.Position(); got.X != 6 || got.Y != 8 {
		t.Fatalf("unexpected position %+v", got)
	}

	// pressing the held direction again keeps the current rhythm
	_ = w.Press(overworld.Down)
	if got := w.Position(); got.Y != 8 {
		t.Fatalf("re-press of held direction should not step, got %+v", got)
	}
	if err := w.Press("north"); !errors.Is(err, overworld.ErrBadDirection) {
		t.Fatalf("Press(north) error = %v", err)
	}
}
