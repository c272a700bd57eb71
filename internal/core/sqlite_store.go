package core

import "casefile/internal/infra/persistence/sqlite"

// NewSQLiteStore opens the SQLite-backed case records store at path, empty
// for the driver default, with the given rules engine.
func NewSQLiteStore(path string, engine *RulesEngine) (*sqlite.Store, error) {
	return sqlite.NewStore(path, engine)
}
