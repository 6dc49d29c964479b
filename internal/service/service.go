package service

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"paralleldex/internal/catalog"
	"paralleldex/internal/daytime"
	"paralleldex/internal/doctor"
	"paralleldex/internal/explore"
	"paralleldex/internal/kv"
	"paralleldex/internal/model"
	"paralleldex/internal/network"
	"paralleldex/internal/overworld"
	"paralleldex/internal/rhythm"
	"paralleldex/internal/store"
	"paralleldex/internal/timer"
	"paralleldex/pkg/logger"
)

const maxNameLength = 12

var (
	ErrPlayerNotFound   = errors.New("調査員が見つかりません")
	ErrNameTooLong      = errors.New("名前は12文字までにしてください")
	ErrCreatureNotFound = errors.New("生物が見つかりません")
	ErrItemNotFound     = errors.New("アイテムが見つかりません")
	ErrNotDiscovered    = errors.New("まだ発見していない生物です")
	ErrNoBuddy          = errors.New("相棒がいません。まずは相棒を決めよう！")
	ErrItemNotOwned     = errors.New("そのアイテムを持っていません")
	ErrQuestionEmpty    = errors.New("質問を入力してください")
	ErrNoChart          = errors.New("リズムキャプチャーが始まっていません")
	ErrNothingNearby    = errors.New("近くに調べられる場所がありません")
	ErrDebugDisabled    = errors.New("デバッグ機能は無効です")
)

// Uploader stores result-screen snapshots.
type Uploader interface {
	Enabled() bool
	Upload(ctx context.Context, playerID string, data []byte, fileName string) (string, error)
}

// Notifier pushes live updates to a player's open connection.
type Notifier interface {
	SendTo(playerID string, msg network.Message) bool
}

type Options struct {
	Store        store.Store
	KV           kv.Store
	Catalog      *catalog.Catalog
	Scheduler    timer.Scheduler
	Clock        daytime.Clock
	ScanDuration time.Duration
	Uploader     Uploader
	Notifier     Notifier
	Rand         *rand.Rand
	Debug        bool
	Log          *logrus.Entry
}

// playerRuntime is the in-memory part of a player: the exploration in
// progress, the overworld walker and a dealt rhythm chart.
type playerRuntime struct {
	explore  *explore.Session
	walker   *overworld.Walker
	viewport overworld.Viewport
	chart    *rhythm.Chart
}

type Service struct {
	store    store.Store
	kv       kv.Store
	catalog  *catalog.Catalog
	sched    timer.Scheduler
	clock    daytime.Clock
	scanFor  time.Duration
	uploader Uploader
	notifier Notifier
	doctor   *doctor.Doctor
	debug    bool
	log      *logrus.Entry

	runtimeMu sync.Mutex
	runtimes  map[string]*playerRuntime

	// companion read-modify-write and check-in state
	progressMu sync.Mutex

	rngMu sync.Mutex
	rng   *rand.Rand
}

func New(opts Options) *Service {
	s := &Service{
		store:    opts.Store,
		kv:       opts.KV,
		catalog:  opts.Catalog,
		sched:    opts.Scheduler,
		clock:    opts.Clock,
		scanFor:  opts.ScanDuration,
		uploader: opts.Uploader,
		notifier: opts.Notifier,
		debug:    opts.Debug,
		log:      opts.Log,
		runtimes: make(map[string]*playerRuntime),
		rng:      opts.Rand,
	}
	if s.catalog == nil {
		s.catalog = catalog.Default()
	}
	if s.kv == nil {
		s.kv = kv.FromStore(s.store)
	}
	if s.sched == nil {
		s.sched = timer.Real{}
	}
	if s.clock == nil {
		s.clock = daytime.SystemClock{}
	}
	if s.scanFor <= 0 {
		s.scanFor = explore.DefaultScanDuration
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.log == nil {
		s.log = logger.For("service")
	}
	s.doctor = doctor.New(rand.New(rand.NewSource(s.seed())))
	return s
}

func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Register creates a player from the name entered in the prologue.
func (s *Service) Register(name string) (model.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = doctor.DefaultPlayerName
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return model.Player{}, ErrNameTooLong
	}
	player := model.Player{
		ID:        s.newID("player"),
		Name:      name,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.SavePlayer(player); err != nil {
		return model.Player{}, err
	}
	s.log.WithField("player_id", player.ID).Info("player registered")
	return player, nil
}

func (s *Service) Player(playerID string) (model.Player, error) {
	player, ok, err := s.store.GetPlayer(playerID)
	if err != nil {
		return model.Player{}, err
	}
	if !ok {
		return model.Player{}, ErrPlayerNotFound
	}
	return player, nil
}

// Close stops every timer owned by live explorations and walks.
func (s *Service) Close() {
	s.runtimeMu.Lock()
	defer s.runtimeMu.Unlock()
	for id, rt := range s.runtimes {
		rt.explore.Stop()
		rt.walker.Release()
		delete(s.runtimes, id)
	}
}

func (s *Service) runtime(playerID string) (*playerRuntime, error) {
	s.runtimeMu.Lock()
	defer s.runtimeMu.Unlock()
	if rt, ok := s.runtimes[playerID]; ok {
		return rt, nil
	}
	if _, err := s.Player(playerID); err != nil {
		return nil, err
	}

	rt := &playerRuntime{}
	log := s.log.WithField("player_id", playerID)
	rt.explore = explore.NewSession(explore.Config{
		Tables:       s.catalog,
		Sink:         progressSink{svc: s, playerID: playerID},
		Scheduler:    s.sched,
		Clock:        s.clock,
		Rand:         rand.New(rand.NewSource(s.seed())),
		ScanDuration: s.scanFor,
		Observer: func(snap explore.Snapshot) {
			s.notify(playerID, network.Message{Type: network.MsgExplore, Payload: snap})
		},
		Log: log,
	})
	rt.walker = overworld.NewWalker(s.sched, overworld.Start(), func(overworld.Position) {
		s.pushPosition(playerID)
	})
	s.runtimes[playerID] = rt
	return rt, nil
}

func (s *Service) notify(playerID string, msg network.Message) {
	if s.notifier == nil {
		return
	}
	s.notifier.SendTo(playerID, msg)
}

// progressSink commits exploration results to the player's store.
type progressSink struct {
	svc      *Service
	playerID string
}

func (p progressSink) AddDiscovered(_ context.Context, creatureID string) (bool, error) {
	return p.svc.store.AddDiscovery(model.Discovery{
		PlayerID:     p.playerID,
		CreatureID:   creatureID,
		DiscoveredAt: p.svc.clock.Now(),
	})
}

func (p progressSink) AddItem(_ context.Context, itemID string) error {
	_, err := p.svc.store.AddItem(model.InventoryEntry{
		PlayerID:   p.playerID,
		ItemID:     itemID,
		AcquiredAt: p.svc.clock.Now(),
	})
	return err
}

func (s *Service) discoveredSet(playerID string) (map[string]model.Discovery, error) {
	list, err := s.store.ListDiscoveries(playerID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]model.Discovery, len(list))
	for _, d := range list {
		set[d.CreatureID] = d
	}
	return set, nil
}

func (s *Service) requireDiscovered(playerID, creatureID string) (model.Creature, error) {
	creature, ok := s.catalog.Creature(creatureID)
	if !ok || creature.Placeholder {
		return model.Creature{}, ErrCreatureNotFound
	}
	set, err := s.discoveredSet(playerID)
	if err != nil {
		return model.Creature{}, err
	}
	if _, ok := set[creatureID]; !ok {
		return model.Creature{}, ErrNotDiscovered
	}
	return creature, nil
}

func (s *Service) newID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *Service) seed() int64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Int63()
}

func (s *Service) intn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

func (s *Service) chance(p float64) bool {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64() < p
}
