// Package rhythm judges the tap-to-capture game played while aiming. The
// server deals a chart of falling notes; the client reports, for each tap,
// which note it struck and how far that note was from the target line.
package rhythm

import (
	"math"
	"math/rand"
	"sort"
	"time"
)

const (
	Duration      = 15 * time.Second
	SpawnInterval = 600 * time.Millisecond
	TargetScore   = 1500

	// HitWindow and the rating thresholds are distances from the target
	// line in pixels.
	HitWindow     = 50.0
	perfectWindow = 10.0
	greatWindow   = 30.0
	goldChance    = 0.1
	normalPoints  = 100
	goldPoints    = 500
	minSpeed      = 3.0
	speedVariance = 2.0
	minLaneX      = 20.0
	laneXVariance = 60.0
)

type Rating string

const (
	Perfect Rating = "PERFECT"
	Great   Rating = "GREAT"
	Good    Rating = "GOOD"
	Miss    Rating = "MISS"
)

type NoteKind string

const (
	Normal NoteKind = "normal"
	Gold   NoteKind = "gold"
)

type Note struct {
	ID      int      `json:"id"`
	SpawnMS int64    `json:"spawn_ms"`
	X       float64  `json:"x"`
	Speed   float64  `json:"speed"`
	Kind    NoteKind `json:"kind"`
}

func (n Note) Points() int {
	if n.Kind == Gold {
		return goldPoints
	}
	return normalPoints
}

type Chart struct {
	Notes       []Note `json:"notes"`
	DurationMS  int64  `json:"duration_ms"`
	TargetScore int    `json:"target_score"`
}

// Deal spawns one note every SpawnInterval for the length of the game.
func Deal(rng *rand.Rand) Chart {
	n := int(Duration / SpawnInterval)
	notes := make([]Note, 0, n)
	for i := 0; i < n; i++ {
		kind := Normal
		if rng.Float64() < goldChance {
			kind = Gold
		}
		notes = append(notes, Note{
			ID:      i + 1,
			SpawnMS: (time.Duration(i) * SpawnInterval).Milliseconds(),
			X:       minLaneX + rng.Float64()*laneXVariance,
			Speed:   minSpeed + rng.Float64()*speedVariance,
			Kind:    kind,
		})
	}
	return Chart{Notes: notes, DurationMS: Duration.Milliseconds(), TargetScore: TargetScore}
}

type Tap struct {
	NoteID   int     `json:"note_id"`
	Distance float64 `json:"distance"`
	AtMS     int64   `json:"at_ms"`
}

type Judgement struct {
	NoteID int    `json:"note_id"`
	Rating Rating `json:"rating"`
	Points int    `json:"points"`
}

type Result struct {
	Score      int         `json:"score"`
	MaxCombo   int         `json:"max_combo"`
	Judgements []Judgement `json:"judgements"`
	Success    bool        `json:"success"`
}

func Judge(distance float64) Rating {
	d := math.Abs(distance)
	switch {
	case d < perfectWindow:
		return Perfect
	case d < greatWindow:
		return Great
	case d < HitWindow:
		return Good
	default:
		return Miss
	}
}

// Evaluate scores taps in time order. A note counts once, taps after the
// game ends or on unknown notes are ignored, and the game is won as soon as
// the score reaches the target.
func (c Chart) Evaluate(taps []Tap) Result {
	notes := make(map[int]Note, len(c.Notes))
	for _, n := range c.Notes {
		notes[n.ID] = n
	}
	ordered := append([]Tap(nil), taps...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].AtMS < ordered[j].AtMS })

	var res Result
	hit := make(map[int]bool)
	combo := 0
	lastHit := 0
	for _, tap := range ordered {
		if tap.AtMS < 0 || tap.AtMS > c.DurationMS {
			continue
		}
		note, ok := notes[tap.NoteID]
		if !ok || hit[note.ID] || tap.AtMS < note.SpawnMS {
			continue
		}
		rating := Judge(tap.Distance)
		if rating == Miss {
			res.Judgements = append(res.Judgements, Judgement{NoteID: note.ID, Rating: Miss})
			continue
		}
		hit[note.ID] = true
		// a note that fell past unhit breaks the combo
		if note.ID != lastHit+1 {
			combo = 0
		}
		combo++
		lastHit = note.ID
		if combo > res.MaxCombo {
			res.MaxCombo = combo
		}
		res.Score += note.Points()
		res.Judgements = append(res.Judgements, Judgement{NoteID: note.ID, Rating: rating, Points: note.Points()})
		if res.Score >= c.TargetScore {
			res.Success = true
			break
		}
	}
	return res
}
