// Package explore drives one player's exploration: area selection, the
// ladder game or a walk to a spot, the timed scan, aiming and the result.
package explore

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"github.com/sirupsen/logrus"

	"paralleldex/internal/daytime"
	"paralleldex/internal/ladder"
	"paralleldex/internal/model"
	"paralleldex/internal/timer"
	"paralleldex/pkg/logger"
)

type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseAreaSelected Phase = "area_selected"
	PhasePathGame     Phase = "path_game"
	PhaseDirectScan   Phase = "direct_scan"
	PhaseScanning     Phase = "scanning"
	PhaseAiming       Phase = "aiming"
	PhaseResult       Phase = "result"
)

type Mode string

const (
	ModeLadder Mode = "ladder"
	ModeWalk   Mode = "walk"
)

const DefaultScanDuration = 1500 * time.Millisecond

const (
	evSelectArea     = "select_area"
	evStartPath      = "start_path"
	evWalk           = "walk"
	evReveal         = "reveal"
	evEmpty          = "empty"
	evDetectCreature = "detect_creature"
	evDetectItem     = "detect_item"
	evCapture        = "capture"
	evClose          = "close"
	evQuit           = "quit"
)

var (
	ErrInvalidTransition = errors.New("今はその操作はできません")
	ErrUnknownArea       = errors.New("エリアが見つかりません")
	ErrUnknownSpot       = errors.New("スポットが見つかりません")
	ErrSpotInactive      = errors.New("今の時間帯は何も反応がないようだ")
	ErrUnknownMode       = errors.New("探索モードが正しくありません")
)

var errStale = errors.New("stale timer")

// Tables is the read-only data an exploration draws from.
type Tables interface {
	Observable() []model.Creature
	Items() []model.Item
	Area(id string) (model.SearchArea, bool)
	Spot(areaID, spotID string) (model.Spot, bool)
}

// Sink receives the only mutations an exploration makes.
type Sink interface {
	AddDiscovered(ctx context.Context, creatureID string) (bool, error)
	AddItem(ctx context.Context, itemID string) error
}

type Config struct {
	Tables       Tables
	Sink         Sink
	Scheduler    timer.Scheduler
	Clock        daytime.Clock
	Rand         *rand.Rand
	ScanDuration time.Duration
	// Observer sees a snapshot after every transition. It is called without
	// the session lock held and must not block.
	Observer func(Snapshot)
	Log      *logrus.Entry
}

// Outcome is what the result phase shows.
type Outcome struct {
	Reward          model.Reward `json:"reward"`
	NewlyDiscovered bool         `json:"newly_discovered"`
}

type Snapshot struct {
	Phase     Phase             `json:"phase"`
	Mode      Mode              `json:"mode,omitempty"`
	Area      *model.SearchArea `json:"area,omitempty"`
	TimeOfDay model.TimeOfDay   `json:"time_of_day"`
	Bridges   []ladder.Bridge   `json:"bridges,omitempty"`
	Hints     []string          `json:"hints,omitempty"`
	Lane      *int              `json:"lane,omitempty"`
	EndLane   *int              `json:"end_lane,omitempty"`
	Path      []ladder.Point    `json:"path,omitempty"`
	SpotID    string            `json:"spot_id,omitempty"`
	Target    *model.Reward     `json:"target,omitempty"`
	Outcome   *Outcome          `json:"outcome,omitempty"`
	Version   uint64            `json:"version"`
}

type Session struct {
	mu sync.Mutex

	tables   Tables
	sink     Sink
	sched    timer.Scheduler
	clock    daytime.Clock
	rng      *rand.Rand
	scanFor  time.Duration
	observer func(Snapshot)
	log      *logrus.Entry
	machine  *fsm.FSM

	area    *model.SearchArea
	mode    Mode
	board   *ladder.Board
	lane    *int
	endLane *int
	path    []ladder.Point
	spotID  string
	pending *model.Reward
	outcome *Outcome

	scanTimer timer.Handle
	scanGen   uint64
	version   uint64
}

func NewSession(cfg Config) *Session {
	s := &Session{
		tables:   cfg.Tables,
		sink:     cfg.Sink,
		sched:    cfg.Scheduler,
		clock:    cfg.Clock,
		rng:      cfg.Rand,
		scanFor:  cfg.ScanDuration,
		observer: cfg.Observer,
		log:      cfg.Log,
	}
	if s.sched == nil {
		s.sched = timer.Real{}
	}
	if s.clock == nil {
		s.clock = daytime.SystemClock{}
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.scanFor <= 0 {
		s.scanFor = DefaultScanDuration
	}
	if s.log == nil {
		s.log = logger.For("explore")
	}

	st := func(p Phase) string { return string(p) }
	s.machine = fsm.NewFSM(
		st(PhaseIdle),
		fsm.Events{
			{Name: evSelectArea, Src: []string{st(PhaseIdle)}, Dst: st(PhaseAreaSelected)},
			{Name: evStartPath, Src: []string{st(PhaseAreaSelected)}, Dst: st(PhasePathGame)},
			{Name: evWalk, Src: []string{st(PhaseAreaSelected)}, Dst: st(PhaseDirectScan)},
			{Name: evReveal, Src: []string{st(PhasePathGame), st(PhaseDirectScan)}, Dst: st(PhaseScanning)},
			{Name: evEmpty, Src: []string{st(PhasePathGame)}, Dst: st(PhaseIdle)},
			{Name: evDetectCreature, Src: []string{st(PhaseScanning)}, Dst: st(PhaseAiming)},
			{Name: evDetectItem, Src: []string{st(PhaseScanning)}, Dst: st(PhaseResult)},
			{Name: evCapture, Src: []string{st(PhaseAiming)}, Dst: st(PhaseResult)},
			{Name: evClose, Src: []string{st(PhaseResult)}, Dst: st(PhaseIdle)},
			{Name: evQuit, Src: []string{
				st(PhaseAreaSelected), st(PhasePathGame), st(PhaseDirectScan), st(PhaseScanning), st(PhaseAiming),
			}, Dst: st(PhaseIdle)},
		},
		// Callbacks run inside machine.Event, which is only called with s.mu held.
		fsm.Callbacks{
			"enter_" + st(PhaseScanning): func(_ context.Context, _ *fsm.Event) { s.armScanLocked() },
			"leave_" + st(PhaseScanning): func(_ context.Context, _ *fsm.Event) { s.disarmScanLocked() },
			"enter_" + st(PhaseIdle):     func(_ context.Context, _ *fsm.Event) { s.resetLocked() },
		},
	)
	return s
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Phase(s.machine.Current())
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SelectArea leaves idle for the chosen area.
func (s *Session) SelectArea(areaID string) error {
	return s.mutate(func() error {
		area, ok := s.tables.Area(areaID)
		if !ok {
			return ErrUnknownArea
		}
		if err := s.fire(evSelectArea); err != nil {
			return err
		}
		s.area = &area
		s.log.WithField("area_id", area.ID).Debug("area selected")
		return nil
	})
}

// Begin starts the sub-flow for the selected area: a freshly dealt ladder
// board, or a walk towards a spot.
func (s *Session) Begin(mode Mode) error {
	return s.mutate(func() error {
		if Phase(s.machine.Current()) != PhaseAreaSelected {
			return ErrInvalidTransition
		}
		switch mode {
		case ModeLadder:
			pool := s.poolLocked()
			board := ladder.Deal(s.rng, pool, s.tables.Items())
			if err := s.fire(evStartPath); err != nil {
				return err
			}
			s.board = &board
		case ModeWalk:
			if err := s.fire(evWalk); err != nil {
				return err
			}
		default:
			return ErrUnknownMode
		}
		s.mode = mode
		return nil
	})
}

// PlayLane resolves the ladder from a starting lane. An empty slot ends the
// exploration with no mutation.
func (s *Session) PlayLane(lane int) (model.Reward, error) {
	var reward model.Reward
	err := s.mutate(func() error {
		if Phase(s.machine.Current()) != PhasePathGame || s.board == nil {
			return ErrInvalidTransition
		}
		r, end, err := s.board.Play(lane)
		if err != nil {
			return err
		}
		reward = r
		if r.IsEmpty() {
			return s.fire(evEmpty)
		}
		start := lane
		s.lane = &start
		s.endLane = &end
		s.path = ladder.Trace(s.board.Bridges, lane)
		s.pending = &r
		return s.fire(evReveal)
	})
	return reward, err
}

// Interact examines a spot of the current area while walking.
func (s *Session) Interact(spotID string) error {
	return s.mutate(func() error {
		if Phase(s.machine.Current()) != PhaseDirectScan || s.area == nil {
			return ErrInvalidTransition
		}
		spot, ok := s.tables.Spot(s.area.ID, spotID)
		if !ok {
			return ErrUnknownSpot
		}
		phase := daytime.PhaseAt(s.clock.Now())
		if !daytime.Matches(spot.ActiveTimes, phase) {
			return ErrSpotInactive
		}
		reward := s.rollSpotLocked(spot, phase)
		s.spotID = spot.ID
		s.pending = &reward
		return s.fire(evReveal)
	})
}

func (s *Session) rollSpotLocked(spot model.Spot, phase model.TimeOfDay) model.Reward {
	if spot.Kind == model.SpotItem {
		if spot.ItemID != "" {
			if it, ok := itemByID(s.tables.Items(), spot.ItemID); ok {
				return model.ItemReward(it)
			}
		}
		if items := s.tables.Items(); len(items) > 0 {
			return model.ItemReward(items[s.rng.Intn(len(items))])
		}
	}
	if c, ok := SelectCandidate(s.rng, s.tables.Observable(), s.area.Type, phase); ok {
		return model.CreatureReward(c)
	}
	return model.EmptyReward()
}

// Capture records the aimed creature and shows the result.
func (s *Session) Capture(ctx context.Context) (Outcome, error) {
	var out Outcome
	err := s.mutate(func() error {
		if Phase(s.machine.Current()) != PhaseAiming || s.pending == nil || s.pending.Creature == nil {
			return ErrInvalidTransition
		}
		added, err := s.sink.AddDiscovered(ctx, s.pending.Creature.ID)
		if err != nil {
			return err
		}
		out = Outcome{Reward: *s.pending, NewlyDiscovered: added}
		s.outcome = &out
		return s.fire(evCapture)
	})
	return out, err
}

// Close leaves the result. With viewDetails it returns the creature whose
// detail view should open.
func (s *Session) Close(viewDetails bool) (*model.Creature, error) {
	var detail *model.Creature
	err := s.mutate(func() error {
		if Phase(s.machine.Current()) != PhaseResult {
			return ErrInvalidTransition
		}
		if viewDetails && s.outcome != nil && s.outcome.Reward.Creature != nil {
			c := *s.outcome.Reward.Creature
			detail = &c
		}
		return s.fire(evClose)
	})
	return detail, err
}

// Quit abandons the exploration. Items already committed stay committed.
func (s *Session) Quit() error {
	return s.mutate(func() error {
		return s.fire(evQuit)
	})
}

// Stop cancels any armed timer. Used when the session is discarded.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disarmScanLocked()
}

func (s *Session) mutate(fn func() error) error {
	s.mu.Lock()
	if err := fn(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.version++
	snap := s.snapshotLocked()
	observer := s.observer
	s.mu.Unlock()
	if observer != nil {
		observer(snap)
	}
	return nil
}

func (s *Session) fire(event string) error {
	if err := s.machine.Event(context.Background(), event); err != nil {
		var invalid fsm.InvalidEventError
		if errors.As(err, &invalid) {
			return ErrInvalidTransition
		}
		return err
	}
	return nil
}

func (s *Session) armScanLocked() {
	s.scanGen++
	gen := s.scanGen
	s.scanTimer = s.sched.AfterFunc(s.scanFor, func() { s.scanElapsed(gen) })
}

func (s *Session) disarmScanLocked() {
	if s.scanTimer != nil {
		s.scanTimer.Stop()
		s.scanTimer = nil
	}
	// a firing already in flight sees a newer generation and backs off
	s.scanGen++
}

func (s *Session) scanElapsed(gen uint64) {
	err := s.mutate(func() error {
		if gen != s.scanGen || Phase(s.machine.Current()) != PhaseScanning || s.pending == nil {
			return errStale
		}
		s.scanTimer = nil
		switch s.pending.Kind {
		case model.RewardCreature:
			return s.fire(evDetectCreature)
		case model.RewardItem:
			if err := s.sink.AddItem(context.Background(), s.pending.Item.ID); err != nil {
				s.log.WithError(err).WithField("item_id", s.pending.Item.ID).Error("commit item failed")
				return s.fire(evQuit)
			}
			s.outcome = &Outcome{Reward: *s.pending}
			return s.fire(evDetectItem)
		default:
			return s.fire(evQuit)
		}
	})
	if err != nil && !errors.Is(err, errStale) {
		s.log.WithError(err).Warn("scan transition failed")
	}
}

func (s *Session) resetLocked() {
	s.area = nil
	s.mode = ""
	s.board = nil
	s.lane = nil
	s.endLane = nil
	s.path = nil
	s.spotID = ""
	s.pending = nil
	s.outcome = nil
}

func (s *Session) poolLocked() []model.Creature {
	return CandidatePool(s.tables.Observable(), s.area.Type, daytime.PhaseAt(s.clock.Now()))
}

func (s *Session) snapshotLocked() Snapshot {
	phase := Phase(s.machine.Current())
	snap := Snapshot{
		Phase:     phase,
		Mode:      s.mode,
		TimeOfDay: daytime.PhaseAt(s.clock.Now()),
		Lane:      s.lane,
		EndLane:   s.endLane,
		Path:      s.path,
		SpotID:    s.spotID,
		Outcome:   s.outcome,
		Version:   s.version,
	}
	if s.area != nil {
		area := *s.area
		snap.Area = &area
	}
	if s.board != nil {
		snap.Hints = s.board.Hints()
		// the fog lifts once a lane has been played
		if s.lane != nil {
			snap.Bridges = s.board.Bridges
		} else {
			snap.Bridges = s.board.Visible()
		}
	}
	// the target stays hidden while the scan is still running
	if s.pending != nil && (phase == PhaseAiming || phase == PhaseResult) {
		target := *s.pending
		snap.Target = &target
	}
	return snap
}

func itemByID(items []model.Item, id string) (model.Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return model.Item{}, false
}
