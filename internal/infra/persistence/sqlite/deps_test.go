package sqlite

import (
	"go/build"
	"strings"
	"testing"
)

// The sqlite adapter builds on the in-memory store, the shared DDL splitter
// and the domain types; any further intra-module import is a layering leak.
func TestAdapterDependencySurface(t *testing.T) {
	allowed := map[string]bool{
		"casefile/pkg/domain":                        true,
		"casefile/internal/entitymodel/sqlbundle":    true,
		"casefile/internal/infra/persistence/memory": true,
	}
	pkg, err := build.Default.ImportDir(".", 0)
	if err != nil {
		t.Fatalf("inspect package: %v", err)
	}
	for _, imp := range pkg.Imports {
		if strings.HasPrefix(imp, "casefile/") && !allowed[imp] {
			t.Errorf("unexpected module dependency: %s", imp)
		}
	}
}
