package store

import (
	"errors"
	"strings"
)

const (
	EngineJSON     = "json"
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
)

// NewByEngine opens the configured engine. path is used by the file
// engines, dsn by postgres.
func NewByEngine(engine string, path string, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineSQLite:
		return NewSQLiteStore(path)
	case EngineJSON:
		return NewJSONStore(path)
	case EnginePostgres:
		return NewPostgresStore(dsn)
	default:
		return nil, errors.New("unsupported store engine: " + engine)
	}
}
