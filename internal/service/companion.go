package service

import (
	"fmt"
	"sort"

	"paralleldex/internal/buddy"
	"paralleldex/internal/model"
)

type InventorySlot struct {
	Item  model.Item `json:"item"`
	Count int        `json:"count"`
}

type InventoryResponse struct {
	Slots []InventorySlot `json:"slots"`
	Total int             `json:"total"`
}

type BuddyResponse struct {
	Buddy     *model.Companion `json:"buddy,omitempty"`
	CanEvolve bool             `json:"can_evolve"`
	Message   string           `json:"message,omitempty"`
}

type SyncResponse struct {
	Buddy  model.Companion  `json:"buddy"`
	Sync   buddy.SyncResult `json:"sync"`
	Notice string           `json:"notice,omitempty"`
}

type EvolveResponse struct {
	Buddy  model.Companion    `json:"buddy"`
	Result buddy.EvolveResult `json:"result"`
}

// Inventory groups owned instances by item, in order of first acquisition.
func (s *Service) Inventory(playerID string) (InventoryResponse, error) {
	if _, err := s.Player(playerID); err != nil {
		return InventoryResponse{}, err
	}
	entries, err := s.store.ListItems(playerID)
	if err != nil {
		return InventoryResponse{}, err
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })

	resp := InventoryResponse{Total: len(entries)}
	index := make(map[string]int)
	for _, e := range entries {
		if i, ok := index[e.ItemID]; ok {
			resp.Slots[i].Count++
			continue
		}
		item, ok := s.catalog.Item(e.ItemID)
		if !ok {
			s.log.WithField("item_id", e.ItemID).Warn("inventory holds unknown item")
			item = model.Item{ID: e.ItemID, Name: unknownName}
		}
		index[e.ItemID] = len(resp.Slots)
		resp.Slots = append(resp.Slots, InventorySlot{Item: item, Count: 1})
	}
	return resp, nil
}

// SetBuddy binds a discovered creature as buddy, replacing the current one.
func (s *Service) SetBuddy(playerID, creatureID string) (BuddyResponse, error) {
	creature, err := s.requireDiscovered(playerID, creatureID)
	if err != nil {
		return BuddyResponse{}, err
	}
	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	companion := buddy.New(playerID, creature, s.clock.Now())
	if err := s.store.SaveCompanion(companion); err != nil {
		return BuddyResponse{}, err
	}
	s.log.WithField("player_id", playerID).WithField("creature_id", creatureID).Info("buddy set")
	return BuddyResponse{
		Buddy:     &companion,
		CanEvolve: buddy.CanEvolve(companion),
		Message:   fmt.Sprintf("%s を相棒に設定しました！", creature.Name),
	}, nil
}

// Buddy returns the current companion, or an empty response without one.
func (s *Service) Buddy(playerID string) (BuddyResponse, error) {
	if _, err := s.Player(playerID); err != nil {
		return BuddyResponse{}, err
	}
	companion, ok, err := s.store.GetCompanion(playerID)
	if err != nil {
		return BuddyResponse{}, err
	}
	if !ok {
		return BuddyResponse{}, nil
	}
	return BuddyResponse{Buddy: &companion, CanEvolve: buddy.CanEvolve(companion)}, nil
}

func (s *Service) PetBuddy(playerID string) (SyncResponse, error) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	companion, err := s.loadBuddyLocked(playerID)
	if err != nil {
		return SyncResponse{}, err
	}
	res := buddy.Pet(&companion)
	if res.Current != res.Previous {
		companion.UpdatedAt = s.clock.Now()
		if err := s.store.SaveCompanion(companion); err != nil {
			return SyncResponse{}, err
		}
	}
	return SyncResponse{Buddy: companion, Sync: res}, nil
}

// UseItem feeds the oldest owned instance of itemID to the buddy.
func (s *Service) UseItem(playerID, itemID string) (SyncResponse, error) {
	item, ok := s.catalog.Item(itemID)
	if !ok {
		return SyncResponse{}, ErrItemNotFound
	}

	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	companion, err := s.loadBuddyLocked(playerID)
	if err != nil {
		return SyncResponse{}, err
	}
	removed, err := s.store.RemoveItem(playerID, itemID)
	if err != nil {
		return SyncResponse{}, err
	}
	if !removed {
		return SyncResponse{}, ErrItemNotOwned
	}

	res := buddy.IncrementSync(&companion, item.EffectValue)
	companion.UpdatedAt = s.clock.Now()
	if err := s.store.SaveCompanion(companion); err != nil {
		// give the item back so a failed save costs nothing
		if _, rerr := s.store.AddItem(model.InventoryEntry{PlayerID: playerID, ItemID: itemID, AcquiredAt: s.clock.Now()}); rerr != nil {
			s.log.WithError(rerr).WithField("player_id", playerID).WithField("item_id", itemID).Error("restore item failed")
		}
		return SyncResponse{}, err
	}
	s.log.WithField("player_id", playerID).WithField("item_id", itemID).WithField("sync", res.Current).Info("item used")
	return SyncResponse{
		Buddy:  companion,
		Sync:   res,
		Notice: fmt.Sprintf("%s に %s をあげた！\nシンクロ率が %d 上がった！", companion.Creature.Name, item.Name, item.EffectValue),
	}, nil
}

func (s *Service) EvolveBuddy(playerID string) (EvolveResponse, error) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	companion, err := s.loadBuddyLocked(playerID)
	if err != nil {
		return EvolveResponse{}, err
	}
	res, err := buddy.Evolve(&companion, s.catalog.Creature, s.clock.Now())
	if err != nil {
		return EvolveResponse{}, err
	}
	if err := s.store.SaveCompanion(companion); err != nil {
		return EvolveResponse{}, err
	}
	s.log.WithField("player_id", playerID).WithField("from", res.From).WithField("degraded", res.Degraded).Info("buddy evolved")
	return EvolveResponse{Buddy: companion, Result: res}, nil
}

func (s *Service) loadBuddyLocked(playerID string) (model.Companion, error) {
	if _, err := s.Player(playerID); err != nil {
		return model.Companion{}, err
	}
	companion, ok, err := s.store.GetCompanion(playerID)
	if err != nil {
		return model.Companion{}, err
	}
	if !ok {
		return model.Companion{}, ErrNoBuddy
	}
	return companion, nil
}
