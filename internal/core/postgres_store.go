package core

import (
	"casefile/internal/infra/persistence/postgres"
	"casefile/pkg/domain"
)

// NewPostgresStore opens the Postgres-backed case records store at dsn with
// the given rules engine.
func NewPostgresStore(dsn string, engine *domain.RulesEngine) (*postgres.Store, error) {
	return postgres.NewStore(dsn, engine)
}
