package core

import (
	"casefile/internal/infra/persistence/memory"
	"casefile/pkg/domain"
)

// MemoryStore is the in-memory reference implementation of the persistent
// store contract. It backs tests, ephemeral deployments, and the durable
// stores that snapshot it.
type MemoryStore = memory.Store

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// NewMemoryStore creates an empty store guarded by the provided rules engine.
func NewMemoryStore(engine *RulesEngine) *MemoryStore {
	return memory.NewStore(engine)
}
