package store_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"paralleldex/internal/model"
	"paralleldex/internal/store"
)

func engines(t *testing.T) map[string]func(t *testing.T) store.Store {
	t.Helper()
	list := map[string]func(t *testing.T) store.Store{
		"sqlite": func(t *testing.T) store.Store {
			st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "paralleldex.db"))
			if err != nil {
				t.Fatalf("NewSQLiteStore() error = %v", err)
			}
			return st
		},
		"json": func(t *testing.T) store.Store {
			st, err := store.NewJSONStore(filepath.Join(t.TempDir(), "paralleldex.json"))
			if err != nil {
				t.Fatalf("NewJSONStore() error = %v", err)
			}
			return st
		},
	}
	if dsn := os.Getenv("PDEX_TEST_POSTGRES_DSN"); dsn != "" {
		list["postgres"] = func(t *testing.T) store.Store {
			st, err := store.NewPostgresStore(dsn)
			if err != nil {
				t.Fatalf("NewPostgresStore() error = %v", err)
			}
			return st
		}
	}
	return list
}

func uniquePlayer(t *testing.T) string {
	return "p_" + filepath.Base(t.Name()) + "_" + time.Now().Format("150405.000000000")
}

func TestStoreProgressFlow(t *testing.T) {
	t.Parallel()

	for name, open := range engines(t) {
		open := open
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			st := open(t)
			t.Cleanup(func() { _ = st.Close() })

			now := time.Now().UTC()
			pid := uniquePlayer(t)

			if err := st.SavePlayer(model.Player{ID: pid, Name: "ミナ", CreatedAt: now}); err != nil {
				t.Fatalf("SavePlayer() error = %v", err)
			}
			player, ok, err := st.GetPlayer(pid)
			if err != nil || !ok || player.Name != "ミナ" {
				t.Fatalf("GetPlayer() = %+v ok=%v err=%v", player, ok, err)
			}

			added, err := st.AddDiscovery(model.Discovery{PlayerID: pid, CreatureID: "001", DiscoveredAt: now})
			if err != nil || !added {
				t.Fatalf("AddDiscovery() added=%v err=%v", added, err)
			}
			added, err = st.AddDiscovery(model.Discovery{PlayerID: pid, CreatureID: "001", DiscoveredAt: now})
			if err != nil || added {
				t.Fatalf("second AddDiscovery() added=%v err=%v", added, err)
			}
			list, err := st.ListDiscoveries(pid)
			if err != nil || len(list) != 1 {
				t.Fatalf("ListDiscoveries() = %v err=%v", list, err)
			}
			if err := st.ClearDiscoveries(pid); err != nil {
				t.Fatalf("ClearDiscoveries() error = %v", err)
			}
			if list, _ := st.ListDiscoveries(pid); len(list) != 0 {
				t.Fatalf("expected empty discoveries after clear, got %v", list)
			}
		})
	}
}

func TestStoreInventoryFirstMatchRemoval(t *testing.T) {
	t.Parallel()

	for name, open := range engines(t) {
		open := open
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			st := open(t)
			t.Cleanup(func() { _ = st.Close() })

			pid := uniquePlayer(t)
			now := time.Now().UTC()
			for i, id := range []string{"item_nut", "item_memo", "item_nut"} {
				entry, err := st.AddItem(model.InventoryEntry{PlayerID: pid, ItemID: id, AcquiredAt: now.Add(time.Duration(i) * time.Second)})
				if err != nil {
					t.Fatalf("AddItem() error = %v", err)
				}
				if entry.Seq == 0 {
					t.Fatalf("AddItem() did not assign a sequence")
				}
			}

			removed, err := st.RemoveItem(pid, "item_nut")
			if err != nil || !removed {
				t.Fatalf("RemoveItem() removed=%v err=%v", removed, err)
			}
			items, err := st.ListItems(pid)
			if err != nil {
				t.Fatalf("ListItems() error = %v", err)
			}
			if len(items) != 2 || items[0].ItemID != "item_memo" || items[1].ItemID != "item_nut" {
				t.Fatalf("unexpected inventory order %+v", items)
			}
			if items[0].Seq >= items[1].Seq {
				t.Fatalf("inventory not ordered by sequence: %+v", items)
			}

			removed, err = st.RemoveItem(pid, "item_stone")
			if err != nil || removed {
				t.Fatalf("RemoveItem(missing) removed=%v err=%v", removed, err)
			}
		})
	}
}

func TestStoreCompanionFavoritesAndValues(t *testing.T) {
	t.Parallel()

	for name, open := range engines(t) {
		open := open
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			st := open(t)
			t.Cleanup(func() { _ = st.Close() })

			pid := uniquePlayer(t)
			c := model.Companion{
				PlayerID:       pid,
				Creature:       model.Creature{ID: "001", Name: "ふわふわ", EvolvesTo: "011"},
				Role:           model.RoleBuddy,
				SyncRate:       40,
				EvolutionLevel: 1,
				UpdatedAt:      time.Now().UTC(),
			}
			if err := st.SaveCompanion(c); err != nil {
				t.Fatalf("SaveCompanion() error = %v", err)
			}
			c.SyncRate = 55
			if err := st.SaveCompanion(c); err != nil {
				t.Fatalf("SaveCompanion() update error = %v", err)
			}
			got, ok, err := st.GetCompanion(pid)
			if err != nil || !ok {
				t.Fatalf("GetCompanion() ok=%v err=%v", ok, err)
			}
			if got.SyncRate != 55 || got.Creature.EvolvesTo != "011" {
				t.Fatalf("unexpected companion %+v", got)
			}

			_ = st.SetFavorite(pid, "002", true)
			_ = st.SetFavorite(pid, "001", true)
			_ = st.SetFavorite(pid, "002", false)
			favs, err := st.ListFavorites(pid)
			if err != nil || len(favs) != 1 || favs[0] != "001" {
				t.Fatalf("ListFavorites() = %v err=%v", favs, err)
			}

			key := "last_login:" + pid
			if _, ok, _ := st.GetValue(key); ok {
				t.Fatalf("unexpected value before set")
			}
			_ = st.SetValue(key, "a")
			_ = st.SetValue(key, "b")
			v, ok, err := st.GetValue(key)
			if err != nil || !ok || v != "b" {
				t.Fatalf("GetValue() = %q ok=%v err=%v", v, ok, err)
			}
		})
	}
}

func TestJSONStoreReloadsFromDisk(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "paralleldex.json")
	st, err := store.NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	if _, err := st.AddItem(model.InventoryEntry{PlayerID: "p", ItemID: "item_nut"}); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}

	reopened, err := store.NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore() reopen error = %v", err)
	}
	entry, err := reopened.AddItem(model.InventoryEntry{PlayerID: "p", ItemID: "item_memo"})
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if entry.Seq != 2 {
		t.Fatalf("sequence not restored, got %d", entry.Seq)
	}
}

func TestNewByEngineRejectsUnknown(t *testing.T) {
	t.Parallel()

	if _, err := store.NewByEngine("mongo", filepath.Join(t.TempDir(), "x"), ""); err == nil {
		t.Fatalf("expected unsupported engine error")
	}
	if _, err := store.NewByEngine("postgres", "", ""); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}
