package blob

import (
	memorystore "casefile/internal/infra/blob/memory"
)

// NewMemory opens the in-memory payload store. Nothing survives a restart,
// so it is only for tests and local experiments.
func NewMemory() Store { return memorystore.New() }
