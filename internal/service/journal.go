package service

import (
	"math"
	"strings"

	"paralleldex/internal/doctor"
	"paralleldex/internal/model"
)

const unknownName = "？？？"

type GalleryResponse struct {
	Entries       []model.JournalEntry `json:"entries"`
	Discovered    int                  `json:"discovered"`
	Total         int                  `json:"total"`
	DiscoveryRate int                  `json:"discovery_rate"`
}

type CreatureDetail struct {
	Creature     model.Creature  `json:"creature"`
	Favorite     bool            `json:"favorite"`
	DiscoveredAt string          `json:"discovered_at"`
	ActiveLabels []string        `json:"active_labels"`
	IsBuddy      bool            `json:"is_buddy"`
	Evolution    *model.Creature `json:"evolution,omitempty"`
}

type DoctorChatRequest struct {
	CreatureID string `json:"creature_id"`
	Question   string `json:"question"`
}

type DoctorChatResponse struct {
	Reply string `json:"reply"`
}

type LoreResponse struct {
	CreatureID string `json:"creature_id"`
	Report     string `json:"report"`
}

// DiscoveryRate is discovered over journal size as a rounded percentage.
func DiscoveryRate(discovered, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(discovered) / float64(total) * 100))
}

// Gallery lists the whole journal. Entries not yet discovered only show
// their habitat.
func (s *Service) Gallery(playerID string) (GalleryResponse, error) {
	if _, err := s.Player(playerID); err != nil {
		return GalleryResponse{}, err
	}
	discovered, err := s.discoveredSet(playerID)
	if err != nil {
		return GalleryResponse{}, err
	}
	favorites, err := s.favoriteSet(playerID)
	if err != nil {
		return GalleryResponse{}, err
	}

	creatures := s.catalog.Creatures()
	resp := GalleryResponse{
		Entries: make([]model.JournalEntry, 0, len(creatures)),
		Total:   s.catalog.Total(),
	}
	for _, c := range creatures {
		_, found := discovered[c.ID]
		entry := model.JournalEntry{Creature: c, Discovered: found}
		if found {
			resp.Discovered++
			entry.Favorite = favorites[c.ID]
		} else {
			entry.Creature = masked(c)
		}
		resp.Entries = append(resp.Entries, entry)
	}
	resp.DiscoveryRate = DiscoveryRate(resp.Discovered, resp.Total)
	return resp, nil
}

func masked(c model.Creature) model.Creature {
	return model.Creature{
		ID:          c.ID,
		Name:        unknownName,
		Type:        c.Type,
		ActiveTime:  c.ActiveTime,
		Placeholder: c.Placeholder,
	}
}

// ToggleFavorite flips the favorite mark of a discovered creature and
// returns the new state.
func (s *Service) ToggleFavorite(playerID, creatureID string) (bool, error) {
	if _, err := s.requireDiscovered(playerID, creatureID); err != nil {
		return false, err
	}
	favorites, err := s.favoriteSet(playerID)
	if err != nil {
		return false, err
	}
	next := !favorites[creatureID]
	if err := s.store.SetFavorite(playerID, creatureID, next); err != nil {
		return false, err
	}
	return next, nil
}

func (s *Service) CreatureDetail(playerID, creatureID string) (CreatureDetail, error) {
	creature, err := s.requireDiscovered(playerID, creatureID)
	if err != nil {
		return CreatureDetail{}, err
	}
	discovered, err := s.discoveredSet(playerID)
	if err != nil {
		return CreatureDetail{}, err
	}
	favorites, err := s.favoriteSet(playerID)
	if err != nil {
		return CreatureDetail{}, err
	}

	detail := CreatureDetail{
		Creature:     creature,
		Favorite:     favorites[creatureID],
		DiscoveredAt: discovered[creatureID].DiscoveredAt.Format("2006-01-02"),
	}
	for _, t := range creature.ActiveTime {
		detail.ActiveLabels = append(detail.ActiveLabels, t.Label())
	}
	if companion, ok, err := s.store.GetCompanion(playerID); err != nil {
		return CreatureDetail{}, err
	} else if ok && companion.Creature.ID == creatureID {
		detail.IsBuddy = true
	}
	// the evolved form is only revealed once it has been seen
	if creature.EvolvesTo != "" {
		if next, ok := s.catalog.Creature(creature.EvolvesTo); ok {
			if _, seen := discovered[next.ID]; seen {
				detail.Evolution = &next
			}
		}
	}
	return detail, nil
}

// Lore is the doctor's decipher report for a discovered creature.
func (s *Service) Lore(playerID, creatureID string) (LoreResponse, error) {
	creature, err := s.requireDiscovered(playerID, creatureID)
	if err != nil {
		return LoreResponse{}, err
	}
	return LoreResponse{CreatureID: creature.ID, Report: doctor.Decipher(creature)}, nil
}

func (s *Service) DoctorChat(playerID string, req DoctorChatRequest) (DoctorChatResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return DoctorChatResponse{}, ErrQuestionEmpty
	}
	player, err := s.Player(playerID)
	if err != nil {
		return DoctorChatResponse{}, err
	}
	creature, err := s.requireDiscovered(playerID, req.CreatureID)
	if err != nil {
		return DoctorChatResponse{}, err
	}
	return DoctorChatResponse{Reply: s.doctor.Chat(creature, question, player.Name)}, nil
}

func (s *Service) favoriteSet(playerID string) (map[string]bool, error) {
	ids, err := s.store.ListFavorites(playerID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
