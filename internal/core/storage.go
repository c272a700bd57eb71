package core

import (
	"cmp"
	"fmt"
	"os"

	"casefile/internal/infra/persistence/memory"
)

// StorageDriver names one of the supported persistence backends.
type StorageDriver string

const (
	// StorageMemory holds records in process memory only.
	StorageMemory StorageDriver = "memory"
	// StorageSQLite snapshots committed state into an embedded SQLite file.
	StorageSQLite StorageDriver = "sqlite"
	// StoragePostgres snapshots committed state into a PostgreSQL server.
	StoragePostgres StorageDriver = "postgres"
)

// OpenPersistentStore selects a backend from CASEFILE_STORAGE_DRIVER and
// wires it to engine. Unset defaults to sqlite.
//
// Driver-specific settings:
//
//	CASEFILE_SQLITE_PATH   sqlite file location, default ./casefile.db
//	CASEFILE_POSTGRES_DSN  connection string when driver=postgres
func OpenPersistentStore(engine *RulesEngine) (PersistentStore, error) {
	driver := StorageDriver(cmp.Or(os.Getenv("CASEFILE_STORAGE_DRIVER"), string(StorageSQLite)))
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		store, err := NewSQLiteStore(os.Getenv("CASEFILE_SQLITE_PATH"), engine)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		store, err := NewPostgresStore(os.Getenv("CASEFILE_POSTGRES_DSN"), engine)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}
