package blob

import (
	"maps"
	"slices"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// Payload drivers under internal/infra/blob are reachable only through this
// facade; every other package programs against blob.Store.
func TestDriversStayBehindFacade(t *testing.T) {
	const driverTree = "casefile/internal/infra/blob"
	const facadeTree = "casefile/internal/blob"

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "casefile/...")
	if err != nil {
		t.Fatalf("resolve module packages: %v", err)
	}

	leaks := make(map[string]bool)
	for _, pkg := range pkgs {
		if strings.HasPrefix(pkg.PkgPath, facadeTree) || strings.HasPrefix(pkg.PkgPath, driverTree) {
			continue
		}
		for imp := range pkg.Imports {
			if imp == driverTree || strings.HasPrefix(imp, driverTree+"/") {
				leaks[pkg.PkgPath+" imports "+imp] = true
			}
		}
	}
	if len(leaks) == 0 {
		return
	}
	t.Fatalf("blob drivers leaked past the facade:\n%s", strings.Join(slices.Sorted(maps.Keys(leaks)), "\n"))
}
