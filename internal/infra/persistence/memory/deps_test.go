package memory

import (
	"go/build"
	"strings"
	"testing"
)

// The in-memory store is the reference implementation the SQL stores embed;
// inside the module it may depend on the domain types and nothing else.
func TestStoreDependsOnDomainOnly(t *testing.T) {
	pkg, err := build.Default.ImportDir(".", 0)
	if err != nil {
		t.Fatalf("inspect package: %v", err)
	}
	sawDomain := false
	for _, imp := range pkg.Imports {
		if !strings.HasPrefix(imp, "casefile/") {
			continue
		}
		if imp == "casefile/pkg/domain" {
			sawDomain = true
			continue
		}
		t.Errorf("unexpected module dependency: %s", imp)
	}
	if !sawDomain {
		t.Error("expected the store to build on casefile/pkg/domain")
	}
}
