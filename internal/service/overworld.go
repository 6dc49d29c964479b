package service

import (
	"paralleldex/internal/daytime"
	"paralleldex/internal/explore"
	"paralleldex/internal/model"
	"paralleldex/internal/network"
	"paralleldex/internal/overworld"
)

var defaultViewport = overworld.Viewport{Width: 800, Height: 600}

type NearbySpot struct {
	model.Spot
	Active bool `json:"active"`
}

type OverworldView struct {
	Position overworld.Position  `json:"position"`
	Heading  overworld.Direction `json:"heading,omitempty"`
	Camera   overworld.Camera    `json:"camera"`
	Walking  bool                `json:"walking"`
	Nearby   *NearbySpot         `json:"nearby,omitempty"`
}

func (s *Service) PressDirection(playerID string, d overworld.Direction) (OverworldView, error) {
	rt, err := s.runtime(playerID)
	if err != nil {
		return OverworldView{}, err
	}
	if err := rt.walker.Press(d); err != nil {
		return OverworldView{}, err
	}
	return s.overworldView(rt), nil
}

func (s *Service) ReleaseDirection(playerID string) (OverworldView, error) {
	rt, err := s.runtime(playerID)
	if err != nil {
		return OverworldView{}, err
	}
	rt.walker.Release()
	return s.overworldView(rt), nil
}

// SetViewport records the client's screen size used for the camera.
func (s *Service) SetViewport(playerID string, vp overworld.Viewport) (OverworldView, error) {
	rt, err := s.runtime(playerID)
	if err != nil {
		return OverworldView{}, err
	}
	if vp.Width > 0 && vp.Height > 0 {
		s.runtimeMu.Lock()
		rt.viewport = vp
		s.runtimeMu.Unlock()
	}
	return s.overworldView(rt), nil
}

func (s *Service) OverworldState(playerID string) (OverworldView, error) {
	rt, err := s.runtime(playerID)
	if err != nil {
		return OverworldView{}, err
	}
	return s.overworldView(rt), nil
}

// InteractNearby investigates the spot next to the avatar.
func (s *Service) InteractNearby(playerID string) (explore.Snapshot, error) {
	rt, err := s.runtime(playerID)
	if err != nil {
		return explore.Snapshot{}, err
	}
	view := s.overworldView(rt)
	if view.Nearby == nil {
		return explore.Snapshot{}, ErrNothingNearby
	}
	rt.walker.Release()
	return s.InteractSpot(playerID, view.Nearby.ID)
}

// ReleaseAll stops the walk of a player whose live connection went away.
func (s *Service) ReleaseAll(playerID string) {
	s.runtimeMu.Lock()
	rt, ok := s.runtimes[playerID]
	s.runtimeMu.Unlock()
	if ok {
		rt.walker.Release()
	}
}

func (s *Service) pushPosition(playerID string) {
	if s.notifier == nil {
		return
	}
	s.runtimeMu.Lock()
	rt, ok := s.runtimes[playerID]
	s.runtimeMu.Unlock()
	if !ok {
		return
	}
	s.notify(playerID, network.Message{Type: network.MsgPosition, Payload: s.overworldView(rt)})
}

func (s *Service) overworldView(rt *playerRuntime) OverworldView {
	s.runtimeMu.Lock()
	vp := rt.viewport
	s.runtimeMu.Unlock()
	if vp.Width <= 0 || vp.Height <= 0 {
		vp = defaultViewport
	}

	pos := rt.walker.Position()
	heading := rt.walker.Heading()
	view := OverworldView{
		Position: pos,
		Heading:  heading,
		Camera:   overworld.Follow(pos, vp),
	}

	snap := rt.explore.Snapshot()
	if snap.Phase != explore.PhaseDirectScan || snap.Area == nil {
		return view
	}
	view.Walking = true
	if spot, ok := overworld.Nearby(pos, s.catalog.Spots(snap.Area.ID)); ok {
		view.Nearby = &NearbySpot{
			Spot:   spot,
			Active: daytime.Matches(spot.ActiveTimes, daytime.PhaseAt(s.clock.Now())),
		}
	}
	return view
}
