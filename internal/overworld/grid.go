// Package overworld models walking on the area tile grid: clamped steps, a
// camera that never shows past the map edge, and spot proximity.
package overworld

import (
	"errors"
	"math"
	"sort"
	"time"

	"paralleldex/internal/model"
)

const (
	GridSize     = 25
	TileSize     = 48
	StepInterval = 150 * time.Millisecond
	// spots within this Manhattan distance can be interacted with
	ProximityRange = 1.5
)

var ErrBadDirection = errors.New("方向が正しくありません")

type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

func (d Direction) delta() (int, int, bool) {
	switch d {
	case Up:
		return 0, -1, true
	case Down:
		return 0, 1, true
	case Left:
		return -1, 0, true
	case Right:
		return 1, 0, true
	}
	return 0, 0, false
}

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Start is where a walk begins, the centre tile.
func Start() Position {
	return Position{X: GridSize / 2, Y: GridSize / 2}
}

// Step moves one tile, clamped to the grid.
func Step(p Position, d Direction) Position {
	dx, dy, ok := d.delta()
	if !ok {
		return p
	}
	return Position{X: clampInt(p.X+dx, 0, GridSize-1), Y: clampInt(p.Y+dy, 0, GridSize-1)}
}

type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Camera is the map point shown at the viewport centre and the translation
// to apply to the map layer.
type Camera struct {
	FocusX     float64 `json:"focus_x"`
	FocusY     float64 `json:"focus_y"`
	TranslateX float64 `json:"translate_x"`
	TranslateY float64 `json:"translate_y"`
}

// Follow centres the camera on the player but clamps the focus to
// [half viewport, map size - half viewport] per axis. An axis where the map
// is smaller than the viewport is centred instead.
func Follow(p Position, vp Viewport) Camera {
	mapPx := float64(GridSize * TileSize)
	playerX := float64(p.X*TileSize) + TileSize/2
	playerY := float64(p.Y*TileSize) + TileSize/2

	halfW, halfH := vp.Width/2, vp.Height/2
	focusX := clampAxis(playerX, halfW, mapPx)
	focusY := clampAxis(playerY, halfH, mapPx)
	return Camera{
		FocusX:     focusX,
		FocusY:     focusY,
		TranslateX: halfW - focusX,
		TranslateY: halfH - focusY,
	}
}

func clampAxis(v, half, size float64) float64 {
	if size <= half*2 {
		return size / 2
	}
	return math.Min(math.Max(v, half), size-half)
}

// SpotCell scales a spot's percentage coordinates onto the grid.
func SpotCell(s model.Spot) Position {
	return Position{
		X: clampInt(int(math.Floor(s.X/100*GridSize)), 0, GridSize-1),
		Y: clampInt(int(math.Floor(s.Y/100*GridSize)), 0, GridSize-1),
	}
}

func Manhattan(a, b Position) int {
	return absInt(a.X-b.X) + absInt(a.Y-b.Y)
}

// Nearby returns the interactable spot closest to p. Ties go to the lowest
// spot id so the answer never depends on slice order.
func Nearby(p Position, spots []model.Spot) (model.Spot, bool) {
	type hit struct {
		spot model.Spot
		dist int
	}
	hits := make([]hit, 0, len(spots))
	for _, s := range spots {
		d := Manhattan(p, SpotCell(s))
		if float64(d) <= ProximityRange {
			hits = append(hits, hit{spot: s, dist: d})
		}
	}
	if len(hits) == 0 {
		return model.Spot{}, false
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].spot.ID < hits[j].spot.ID
	})
	return hits[0].spot, true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
