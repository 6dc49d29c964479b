package store

import (
	"paralleldex/internal/model"
)

// Store persists player progress. Discoveries are a set, inventory is an
// ordered multiset keyed by acquisition sequence.
type Store interface {
	SavePlayer(player model.Player) error
	GetPlayer(id string) (model.Player, bool, error)

	// AddDiscovery reports whether the creature was new for the player.
	AddDiscovery(d model.Discovery) (bool, error)
	ListDiscoveries(playerID string) ([]model.Discovery, error)
	ClearDiscoveries(playerID string) error

	// AddItem assigns the entry's Seq.
	AddItem(entry model.InventoryEntry) (model.InventoryEntry, error)
	// RemoveItem drops the oldest instance of itemID.
	RemoveItem(playerID, itemID string) (bool, error)
	ListItems(playerID string) ([]model.InventoryEntry, error)

	SetFavorite(playerID, creatureID string, favorite bool) error
	ListFavorites(playerID string) ([]string, error)

	SaveCompanion(c model.Companion) error
	GetCompanion(playerID string) (model.Companion, bool, error)

	GetValue(key string) (string, bool, error)
	SetValue(key, value string) error

	Close() error
}
