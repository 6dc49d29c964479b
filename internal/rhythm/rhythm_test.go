package rhythm_test

import (
	"math/rand"
	"testing"
	"time"

	"paralleldex/internal/rhythm"
)

func TestDealSpawnsAcrossGame(t *testing.T) {
	t.Parallel()

	chart := rhythm.Deal(rand.New(rand.NewSource(3)))
	if len(chart.Notes) != 25 {
		t.Fatalf("expected 25 notes, got %d", len(chart.Notes))
	}
	for i, n := range chart.Notes {
		if n.SpawnMS != int64(i)*rhythm.SpawnInterval.Milliseconds() {
			t.Fatalf("note %d spawns at %dms", n.ID, n.SpawnMS)
		}
		if n.X < 20 || n.X > 80 {
			t.Fatalf("note %d outside lane band: %f", n.ID, n.X)
		}
	}
	if chart.TargetScore != rhythm.TargetScore {
		t.Fatalf("unexpected target %d", chart.TargetScore)
	}
}

func TestJudgeWindows(t *testing.T) {
	t.Parallel()

	cases := map[float64]rhythm.Rating{
		0:    rhythm.Perfect,
		-9.9: rhythm.Perfect,
		10:   rhythm.Great,
		29:   rhythm.Great,
		30:   rhythm.Good,
		49.5: rhythm.Good,
		50:   rhythm.Miss,
		-120: rhythm.Miss,
	}
	for dist, want := range cases {
		if got := rhythm.Judge(dist); got != want {
			t.Fatalf("Judge(%v) = %s, want %s", dist, got, want)
		}
	}
}

func fixedChart(gold ...int) rhythm.Chart {
	goldSet := map[int]bool{}
	for _, id := range gold {
		goldSet[id] = true
	}
	notes := make([]rhythm.Note, 0, 25)
	for i := 0; i < 25; i++ {
		kind := rhythm.Normal
		if goldSet[i+1] {
			kind = rhythm.Gold
		}
		notes = append(notes, rhythm.Note{ID: i + 1, SpawnMS: int64(i) * rhythm.SpawnInterval.Milliseconds(), Kind: kind})
	}
	return rhythm.Chart{Notes: notes, DurationMS: rhythm.Duration.Milliseconds(), TargetScore: rhythm.TargetScore}
}

func tapAll(ids ...int) []rhythm.Tap {
	taps := make([]rhythm.Tap, 0, len(ids))
	for _, id := range ids {
		taps = append(taps, rhythm.Tap{NoteID: id, Distance: 5, AtMS: int64(id) * rhythm.SpawnInterval.Milliseconds()})
	}
	return taps
}

func TestEvaluateReachesTarget(t *testing.T) {
	t.Parallel()

	chart := fixedChart(2, 4)
	// 2 gold (1000) + 5 normal (500)
	res := chart.Evaluate(tapAll(1, 2, 3, 4, 5, 6, 7, 8))
	if !res.Success || res.Score != 1500 {
		t.Fatalf("expected capture at 1500, got %+v", res)
	}
	if len(res.Judgements) != 7 {
		t.Fatalf("evaluation should stop at the target, got %d judgements", len(res.Judgements))
	}
}

func TestEvaluateIgnoresDuplicateLateAndUnknownTaps(t *testing.T) {
	t.Parallel()

	chart := fixedChart()
	taps := tapAll(1, 1, 2, 99)
	taps = append(taps, rhythm.Tap{NoteID: 3, Distance: 0, AtMS: (rhythm.Duration + time.Second).Milliseconds()})
	res := chart.Evaluate(taps)
	if res.Score != 200 || res.Success {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestEvaluateComboBreaksOnSkippedNote(t *testing.T) {
	t.Parallel()

	chart := fixedChart()
	res := chart.Evaluate(tapAll(1, 2, 3, 5, 6))
	if res.MaxCombo != 3 {
		t.Fatalf("MaxCombo = %d, want 3", res.MaxCombo)
	}

	miss := chart.Evaluate([]rhythm.Tap{{NoteID: 1, Distance: 80, AtMS: 1000}})
	if miss.Score != 0 || len(miss.Judgements) != 1 || miss.Judgements[0].Rating != rhythm.Miss {
		t.Fatalf("unexpected miss result %+v", miss)
	}
}
