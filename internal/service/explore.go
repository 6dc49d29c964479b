package service

import (
	"context"
	"errors"

	"paralleldex/internal/daytime"
	"paralleldex/internal/explore"
	"paralleldex/internal/model"
	"paralleldex/internal/overworld"
	"paralleldex/internal/rhythm"
)

type AreaSpot struct {
	model.Spot
	Active bool `json:"active"`
}

type AreaView struct {
	model.SearchArea
	Spots []AreaSpot `json:"spots"`
}

type AreasResponse struct {
	TimeOfDay model.TimeOfDay `json:"time_of_day"`
	Areas     []AreaView      `json:"areas"`
}

type CaptureRequest struct {
	// Taps is the rhythm-capture input. Without taps the capture always lands.
	Taps []rhythm.Tap `json:"taps,omitempty"`
}

type CaptureResponse struct {
	Escaped  bool             `json:"escaped"`
	Rhythm   *rhythm.Result   `json:"rhythm,omitempty"`
	Outcome  *explore.Outcome `json:"outcome,omitempty"`
	Snapshot explore.Snapshot `json:"snapshot"`
}

type CloseResponse struct {
	Creature *model.Creature  `json:"creature,omitempty"`
	Snapshot explore.Snapshot `json:"snapshot"`
}

type LaneResponse struct {
	Reward   model.Reward     `json:"reward"`
	Snapshot explore.Snapshot `json:"snapshot"`
}

// Areas lists every search area with the spots that react right now.
func (s *Service) Areas() AreasResponse {
	phase := daytime.PhaseAt(s.clock.Now())
	areas := s.catalog.Areas()
	out := AreasResponse{TimeOfDay: phase, Areas: make([]AreaView, 0, len(areas))}
	for _, area := range areas {
		spots := s.catalog.Spots(area.ID)
		view := AreaView{SearchArea: area, Spots: make([]AreaSpot, 0, len(spots))}
		for _, sp := range spots {
			view.Spots = append(view.Spots, AreaSpot{Spot: sp, Active: daytime.Matches(sp.ActiveTimes, phase)})
		}
		out.Areas = append(out.Areas, view)
	}
	return out
}

func (s *Service) ExploreState(playerID string) (explore.Snapshot, error) {
	rt, err := s.runtime(playerID)
	if err != nil {
		return explore.Snapshot{}, err
	}
	return rt.explore.Snapshot(), nil
}

func (s *Service) SelectArea(playerID, areaID string) (explore.Snapshot, error) {
	rt, err := s.runtime(playerID)
	if err != nil {
		return explore.Snapshot{}, err
	}
	if err := rt.explore.SelectArea(areaID); err != nil {
		return explore.Snapshot{}, err
	}
	s.dropChart(rt)
	s.log.WithField("player_id", playerID).WithField("area_id", areaID).Debug("area selected")
	return rt.explore.Snapshot(), nil
}

// BeginExplore picks the search mode for the selected area. Walking puts the
// avatar back on the centre tile.
func (s *Service) BeginExplore(playerID string, mode explore.Mode) (explore.Snapshot, error) {
	rt, err := s.runtime(playerID)
	if err != nil {
		return explore.Snapshot{}, err
	}
	if err := rt.explore.Begin(mode); err != nil {
		return explore.Snapshot{}, err
	}
	if mode == explore.ModeWalk {
		rt.walker.Release()
		rt.walker.Teleport(overworld.Start())
	}
	return rt.explore.Snapshot(), nil
}

// StartExplore selects the area and the mode in one call.
func (s *Service) StartExplore(playerID, areaID string, mode explore.Mode) (explore.Snapshot, error) {
	if _, err := s.SelectArea(playerID, areaID); err != nil {
		return explore.Snapshot{}, err
	}
	snap, err := s.BeginExplore(playerID, mode)
	if err != nil {
		_ = s.QuitExplore(playerID)
		return explore.Snapshot{}, err
	}
	return snap, nil
}

func (s *Service) PlayLane(playerID string, lane int) (LaneResponse, error) {
	rt, err := s.runtime(playerID)
	if err != nil {
		return LaneResponse{}, err
	}
	reward, err := rt.explore.PlayLane(lane)
	if err != nil {
		return LaneResponse{}, err
	}
	return LaneResponse{Reward: reward, Snapshot: rt.explore.Snapshot()}, nil
}

func (s *Service) InteractSpot(playerID, spotID string) (explore.Snapshot, error) {
	rt, err := s.runtime(playerID)
	if err != nil {
		return explore.Snapshot{}, err
	}
	if err := rt.explore.Interact(spotID); err != nil {
		return explore.Snapshot{}, err
	}
	return rt.explore.Snapshot(), nil
}

// RhythmChart deals the note chart for the creature being aimed at.
func (s *Service) RhythmChart(playerID string) (rhythm.Chart, error) {
	rt, err := s.runtime(playerID)
	if err != nil {
		return rhythm.Chart{}, err
	}
	if rt.explore.Phase() != explore.PhaseAiming {
		return rhythm.Chart{}, explore.ErrInvalidTransition
	}
	s.rngMu.Lock()
	chart := rhythm.Deal(s.rng)
	s.rngMu.Unlock()

	s.runtimeMu.Lock()
	rt.chart = &chart
	s.runtimeMu.Unlock()
	return chart, nil
}

// Capture throws the capsule. With rhythm taps the dealt chart decides the
// outcome and a failed attempt lets the creature escape without any record.
func (s *Service) Capture(ctx context.Context, playerID string, req CaptureRequest) (CaptureResponse, error) {
	rt, err := s.runtime(playerID)
	if err != nil {
		return CaptureResponse{}, err
	}
	if rt.explore.Phase() != explore.PhaseAiming {
		return CaptureResponse{}, explore.ErrInvalidTransition
	}

	var resp CaptureResponse
	if len(req.Taps) > 0 {
		s.runtimeMu.Lock()
		chart := rt.chart
		rt.chart = nil
		s.runtimeMu.Unlock()
		if chart == nil {
			return CaptureResponse{}, ErrNoChart
		}
		result := chart.Evaluate(req.Taps)
		resp.Rhythm = &result
		if !result.Success {
			if err := rt.explore.Quit(); err != nil && !errors.Is(err, explore.ErrInvalidTransition) {
				return CaptureResponse{}, err
			}
			s.log.WithField("player_id", playerID).WithField("score", result.Score).Info("creature escaped")
			resp.Escaped = true
			resp.Snapshot = rt.explore.Snapshot()
			return resp, nil
		}
	}

	outcome, err := rt.explore.Capture(ctx)
	if err != nil {
		return CaptureResponse{}, err
	}
	resp.Outcome = &outcome
	resp.Snapshot = rt.explore.Snapshot()
	return resp, nil
}

func (s *Service) CloseResult(playerID string, viewDetails bool) (CloseResponse, error) {
	rt, err := s.runtime(playerID)
	if err != nil {
		return CloseResponse{}, err
	}
	creature, err := rt.explore.Close(viewDetails)
	if err != nil {
		return CloseResponse{}, err
	}
	s.dropChart(rt)
	return CloseResponse{Creature: creature, Snapshot: rt.explore.Snapshot()}, nil
}

func (s *Service) QuitExplore(playerID string) error {
	rt, err := s.runtime(playerID)
	if err != nil {
		return err
	}
	s.dropChart(rt)
	return rt.explore.Quit()
}

// dropChart forgets a chart dealt for an earlier aiming phase.
func (s *Service) dropChart(rt *playerRuntime) {
	s.runtimeMu.Lock()
	rt.chart = nil
	s.runtimeMu.Unlock()
}
