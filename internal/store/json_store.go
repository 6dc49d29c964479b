package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"paralleldex/internal/model"
)

type fileState struct {
	Players     map[string]model.Player      `json:"players"`
	Discoveries map[string][]model.Discovery `json:"discoveries"`
	Inventory   []model.InventoryEntry       `json:"inventory"`
	NextSeq     int64                        `json:"next_seq"`
	Favorites   map[string][]string          `json:"favorites"`
	Companions  map[string]model.Companion   `json:"companions"`
	Values      map[string]string            `json:"values"`
}

type JSONStore struct {
	filePath string
	mu       sync.RWMutex
	state    fileState
}

func NewJSONStore(filePath string) (*JSONStore, error) {
	s := &JSONStore{filePath: filePath, state: emptyState()}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func emptyState() fileState {
	return fileState{
		Players:     make(map[string]model.Player),
		Discoveries: make(map[string][]model.Discovery),
		Inventory:   make([]model.InventoryEntry, 0),
		Favorites:   make(map[string][]string),
		Companions:  make(map[string]model.Companion),
		Values:      make(map[string]string),
	}
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) SavePlayer(player model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Players[player.ID] = player
	return s.persistLocked()
}

func (s *JSONStore) GetPlayer(id string) (model.Player, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.state.Players[id]
	return player, ok, nil
}

func (s *JSONStore) AddDiscovery(d model.Discovery) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.state.Discoveries[d.PlayerID] {
		if existing.CreatureID == d.CreatureID {
			return false, nil
		}
	}
	s.state.Discoveries[d.PlayerID] = append(s.state.Discoveries[d.PlayerID], d)
	return true, s.persistLocked()
}

func (s *JSONStore) ListDiscoveries(playerID string) ([]model.Discovery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Discovery(nil), s.state.Discoveries[playerID]...), nil
}

func (s *JSONStore) ClearDiscoveries(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.Discoveries, playerID)
	return s.persistLocked()
}

func (s *JSONStore) AddItem(entry model.InventoryEntry) (model.InventoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.NextSeq++
	entry.Seq = s.state.NextSeq
	s.state.Inventory = append(s.state.Inventory, entry)
	return entry, s.persistLocked()
}

func (s *JSONStore) RemoveItem(playerID, itemID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, entry := range s.state.Inventory {
		if entry.PlayerID == playerID && entry.ItemID == itemID {
			s.state.Inventory = append(s.state.Inventory[:i], s.state.Inventory[i+1:]...)
			return true, s.persistLocked()
		}
	}
	return false, nil
}

func (s *JSONStore) ListItems(playerID string) ([]model.InventoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]model.InventoryEntry, 0)
	for _, entry := range s.state.Inventory {
		if entry.PlayerID == playerID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (s *JSONStore) SetFavorite(playerID, creatureID string, favorite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.state.Favorites[playerID]
	next := make([]string, 0, len(current)+1)
	for _, id := range current {
		if id != creatureID {
			next = append(next, id)
		}
	}
	if favorite {
		next = append(next, creatureID)
	}
	sort.Strings(next)
	s.state.Favorites[playerID] = next
	return s.persistLocked()
}

func (s *JSONStore) ListFavorites(playerID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.state.Favorites[playerID]...), nil
}

func (s *JSONStore) SaveCompanion(c model.Companion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Companions[c.PlayerID] = c
	return s.persistLocked()
}

func (s *JSONStore) GetCompanion(playerID string) (model.Companion, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.Companions[playerID]
	return c, ok, nil
}

func (s *JSONStore) GetValue(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state.Values[key]
	return v, ok, nil
}

func (s *JSONStore) SetValue(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Values[key] = value
	return s.persistLocked()
}

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	state := emptyState()
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	if state.Players == nil {
		state.Players = make(map[string]model.Player)
	}
	if state.Discoveries == nil {
		state.Discoveries = make(map[string][]model.Discovery)
	}
	if state.Inventory == nil {
		state.Inventory = make([]model.InventoryEntry, 0)
	}
	if state.Favorites == nil {
		state.Favorites = make(map[string][]string)
	}
	if state.Companions == nil {
		state.Companions = make(map[string]model.Companion)
	}
	if state.Values == nil {
		state.Values = make(map[string]string)
	}
	s.state = state
	return nil
}

func (s *JSONStore) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.filePath)
}
