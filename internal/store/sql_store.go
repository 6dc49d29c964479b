package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"paralleldex/internal/model"
)

type dialect struct {
	driver string
	// dollar placeholders ($1, $2) instead of ?
	dollar bool
	schema string
}

var sqliteDialect = dialect{
	driver: "sqlite",
	schema: `
		PRAGMA journal_mode=WAL;
		CREATE TABLE IF NOT EXISTS inventory (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			player_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			acquired_at TEXT NOT NULL
		);` + commonSchema,
}

var postgresDialect = dialect{
	driver: "postgres",
	dollar: true,
	schema: `
		CREATE TABLE IF NOT EXISTS inventory (
			seq BIGSERIAL PRIMARY KEY,
			player_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			acquired_at TEXT NOT NULL
		);` + commonSchema,
}

const commonSchema = `
		CREATE INDEX IF NOT EXISTS idx_inventory_player ON inventory(player_id, item_id, seq);
		CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS discoveries (
			player_id TEXT NOT NULL,
			creature_id TEXT NOT NULL,
			discovered_at TEXT NOT NULL,
			PRIMARY KEY (player_id, creature_id)
		);
		CREATE TABLE IF NOT EXISTS favorites (
			player_id TEXT NOT NULL,
			creature_id TEXT NOT NULL,
			PRIMARY KEY (player_id, creature_id)
		);
		CREATE TABLE IF NOT EXISTS companions (
			player_id TEXT PRIMARY KEY,
			creature TEXT NOT NULL,
			role TEXT NOT NULL,
			sync_rate INTEGER NOT NULL,
			evolution_level INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS kv (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`

// SQLStore is the database/sql engine shared by sqlite and postgres.
// Queries are written with ? and rebound for the dialect.
type SQLStore struct {
	db *sql.DB
	d  dialect
}

func NewSQLiteStore(filePath string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, err
	}
	return openSQL(sqliteDialect, filePath)
}

func NewPostgresStore(dsn string) (*SQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres store requires a dsn")
	}
	return openSQL(postgresDialect, dsn)
}

func openSQL(d dialect, source string) (*SQLStore, error) {
	db, err := sql.Open(d.driver, source)
	if err != nil {
		return nil, err
	}
	st := &SQLStore{db: db, d: d}
	if err := st.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init %s schema: %w", d.driver, err)
	}
	return st, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) exec(query string, args ...any) (sql.Result, error) {
	return s.db.Exec(s.rebind(query), args...)
}

func (s *SQLStore) query(query string, args ...any) (*sql.Rows, error) {
	return s.db.Query(s.rebind(query), args...)
}

func (s *SQLStore) queryRow(query string, args ...any) *sql.Row {
	return s.db.QueryRow(s.rebind(query), args...)
}

func (s *SQLStore) rebind(query string) string {
	if !s.d.dollar {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) SavePlayer(player model.Player) error {
	_, err := s.exec(`
		INSERT INTO players (id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		player.ID,
		player.Name,
		toTS(player.CreatedAt),
	)
	return err
}

func (s *SQLStore) GetPlayer(id string) (model.Player, bool, error) {
	row := s.queryRow(`
		SELECT id, name, created_at
		FROM players
		WHERE id = ?`,
		id,
	)
	var player model.Player
	var createdAt string
	err := row.Scan(&player.ID, &player.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Player{}, false, nil
	}
	if err != nil {
		return model.Player{}, false, err
	}
	player.CreatedAt = fromTS(createdAt)
	return player, true, nil
}

func (s *SQLStore) AddDiscovery(d model.Discovery) (bool, error) {
	result, err := s.exec(`
		INSERT INTO discoveries (player_id, creature_id, discovered_at)
		VALUES (?, ?, ?)
		ON CONFLICT (player_id, creature_id) DO NOTHING`,
		d.PlayerID,
		d.CreatureID,
		toTS(d.DiscoveredAt),
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *SQLStore) ListDiscoveries(playerID string) ([]model.Discovery, error) {
	rows, err := s.query(`
		SELECT player_id, creature_id, discovered_at
		FROM discoveries
		WHERE player_id = ?
		ORDER BY discovered_at, creature_id`,
		playerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Discovery
	for rows.Next() {
		var d model.Discovery
		var discoveredAt string
		if err := rows.Scan(&d.PlayerID, &d.CreatureID, &discoveredAt); err != nil {
			return nil, err
		}
		d.DiscoveredAt = fromTS(discoveredAt)
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLStore) ClearDiscoveries(playerID string) error {
	_, err := s.exec(`DELETE FROM discoveries WHERE player_id = ?`, playerID)
	return err
}

func (s *SQLStore) AddItem(entry model.InventoryEntry) (model.InventoryEntry, error) {
	row := s.queryRow(`
		INSERT INTO inventory (player_id, item_id, acquired_at)
		VALUES (?, ?, ?)
		RETURNING seq`,
		entry.PlayerID,
		entry.ItemID,
		toTS(entry.AcquiredAt),
	)
	if err := row.Scan(&entry.Seq); err != nil {
		return model.InventoryEntry{}, err
	}
	return entry, nil
}

func (s *SQLStore) RemoveItem(playerID, itemID string) (bool, error) {
	result, err := s.exec(`
		DELETE FROM inventory
		WHERE seq = (
			SELECT seq FROM inventory
			WHERE player_id = ? AND item_id = ?
			ORDER BY seq
			LIMIT 1
		)`,
		playerID,
		itemID,
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *SQLStore) ListItems(playerID string) ([]model.InventoryEntry, error) {
	rows, err := s.query(`
		SELECT seq, player_id, item_id, acquired_at
		FROM inventory
		WHERE player_id = ?
		ORDER BY seq`,
		playerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.InventoryEntry, 0)
	for rows.Next() {
		var entry model.InventoryEntry
		var acquiredAt string
		if err := rows.Scan(&entry.Seq, &entry.PlayerID, &entry.ItemID, &acquiredAt); err != nil {
			return nil, err
		}
		entry.AcquiredAt = fromTS(acquiredAt)
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLStore) SetFavorite(playerID, creatureID string, favorite bool) error {
	if !favorite {
		_, err := s.exec(`DELETE FROM favorites WHERE player_id = ? AND creature_id = ?`, playerID, creatureID)
		return err
	}
	_, err := s.exec(`
		INSERT INTO favorites (player_id, creature_id)
		VALUES (?, ?)
		ON CONFLICT (player_id, creature_id) DO NOTHING`,
		playerID,
		creatureID,
	)
	return err
}

func (s *SQLStore) ListFavorites(playerID string) ([]string, error) {
	rows, err := s.query(`
		SELECT creature_id
		FROM favorites
		WHERE player_id = ?
		ORDER BY creature_id`,
		playerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLStore) SaveCompanion(c model.Companion) error {
	creature, err := json.Marshal(c.Creature)
	if err != nil {
		return err
	}
	_, err = s.exec(`
		INSERT INTO companions (player_id, creature, role, sync_rate, evolution_level, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (player_id) DO UPDATE SET
			creature = excluded.creature,
			role = excluded.role,
			sync_rate = excluded.sync_rate,
			evolution_level = excluded.evolution_level,
			updated_at = excluded.updated_at`,
		c.PlayerID,
		string(creature),
		c.Role,
		c.SyncRate,
		c.EvolutionLevel,
		toTS(c.UpdatedAt),
	)
	return err
}

func (s *SQLStore) GetCompanion(playerID string) (model.Companion, bool, error) {
	row := s.queryRow(`
		SELECT player_id, creature, role, sync_rate, evolution_level, updated_at
		FROM companions
		WHERE player_id = ?`,
		playerID,
	)
	var c model.Companion
	var creature string
	var updatedAt string
	err := row.Scan(&c.PlayerID, &creature, &c.Role, &c.SyncRate, &c.EvolutionLevel, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Companion{}, false, nil
	}
	if err != nil {
		return model.Companion{}, false, err
	}
	if err := json.Unmarshal([]byte(creature), &c.Creature); err != nil {
		return model.Companion{}, false, fmt.Errorf("decode companion creature: %w", err)
	}
	c.UpdatedAt = fromTS(updatedAt)
	return c, true, nil
}

func (s *SQLStore) GetValue(key string) (string, bool, error) {
	var value string
	err := s.queryRow(`SELECT value FROM kv WHERE name = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLStore) SetValue(key, value string) error {
	_, err := s.exec(`
		INSERT INTO kv (name, value)
		VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value`,
		key,
		value,
	)
	return err
}

func (s *SQLStore) initSchema() error {
	_, err := s.db.Exec(s.d.schema)
	return err
}

// tsLayout is fixed width so text columns sort chronologically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

func toTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func fromTS(v string) time.Time {
	t, err := time.Parse(tsLayout, v)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}
