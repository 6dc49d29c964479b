package service

import (
	_ "embed"
	"encoding/json"
	"strings"

	"paralleldex/internal/model"
)

//go:embed badge_rules.json
var badgeRulesRawJSON []byte

type badgeRule struct {
	ID          string             `json:"id"`
	Type        model.CreatureType `json:"type"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
}

type badgeRuleCatalog struct {
	Badges []badgeRule `json:"badges"`
}

func loadBadgeRules() []badgeRule {
	var catalog badgeRuleCatalog
	if err := json.Unmarshal(badgeRulesRawJSON, &catalog); err != nil {
		return nil
	}
	rules := make([]badgeRule, 0, len(catalog.Badges))
	for _, rule := range catalog.Badges {
		rule.ID = strings.TrimSpace(rule.ID)
		if rule.ID == "" || !rule.Type.Valid() {
			continue
		}
		rules = append(rules, rule)
	}
	return rules
}

var badgeRules = loadBadgeRules()

// Badges reports one badge per habitat. The target is the number of
// creatures of that habitat met in the field; placeholders never count.
func (s *Service) Badges(playerID string) ([]model.Badge, error) {
	if _, err := s.Player(playerID); err != nil {
		return nil, err
	}
	discovered, err := s.discoveredSet(playerID)
	if err != nil {
		return nil, err
	}

	targets := make(map[model.CreatureType]int)
	progress := make(map[model.CreatureType]int)
	for _, c := range s.catalog.Observable() {
		targets[c.Type]++
		if _, ok := discovered[c.ID]; ok {
			progress[c.Type]++
		}
	}

	badges := make([]model.Badge, 0, len(badgeRules))
	for _, rule := range badgeRules {
		target := targets[rule.Type]
		if target == 0 {
			continue
		}
		badges = append(badges, model.Badge{
			ID:          rule.ID,
			Type:        rule.Type,
			Name:        rule.Name,
			Description: rule.Description,
			Progress:    progress[rule.Type],
			Target:      target,
			Unlocked:    progress[rule.Type] >= target,
		})
	}
	return badges, nil
}
