package integration

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// TestImportLayeringEnforcement walks every non-test source file in the
// repository and checks the dependency direction between layers. Domain
// carries no implementation imports, core stays transport-free, the infra
// drivers know nothing about core or the adapters, and the adapters reach
// storage only through the core and blob facades. Only cmd composes all
// layers.
func TestImportLayeringEnforcement(t *testing.T) {
	repoRoot, err := repositoryRoot()
	if err != nil {
		t.Fatalf("failed to find repository root: %v", err)
	}

	imports, err := collectImports(repoRoot)
	if err != nil {
		t.Fatalf("failed to collect imports: %v", err)
	}

	rules := []struct {
		name      string
		layer     string
		forbidden []string
	}{
		{
			name:      "domain imports no internal packages",
			layer:     "pkg/",
			forbidden: []string{"casefile/internal/"},
		},
		{
			name:      "core does not import adapters",
			layer:     "internal/core/",
			forbidden: []string{"casefile/internal/adapters/"},
		},
		{
			name:      "infra does not import core or adapters",
			layer:     "internal/infra/",
			forbidden: []string{"casefile/internal/core", "casefile/internal/adapters/"},
		},
		{
			name:      "adapters use facades, not infra drivers",
			layer:     "internal/adapters/",
			forbidden: []string{"casefile/internal/infra/"},
		},
		{
			name:      "auth stays standalone",
			layer:     "internal/auth/",
			forbidden: []string{"casefile/internal/"},
		},
	}

	for _, rule := range rules {
		t.Run(rule.name, func(t *testing.T) {
			var violations []string
			for file, paths := range imports {
				if !strings.HasPrefix(file, rule.layer) {
					continue
				}
				for _, imported := range paths {
					for _, prefix := range rule.forbidden {
						if strings.HasPrefix(imported, prefix) {
							violations = append(violations, fmt.Sprintf("%s imports %s", file, imported))
						}
					}
				}
			}
			sort.Strings(violations)
			for _, v := range violations {
				t.Errorf("layering violation: %s", v)
			}
		})
	}
}

// collectImports parses the import clause of every non-test .go file under
// the repository root and returns them keyed by slash-separated path
// relative to the root. Directories the Go tool ignores are skipped.
func collectImports(repoRoot string) (map[string][]string, error) {
	imports := make(map[string][]string)
	err := filepath.Walk(repoRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		name := info.Name()
		if info.IsDir() {
			if name != "." && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "testdata" || name == "bin") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			return nil
		}
		file, err := parser.ParseFile(token.NewFileSet(), path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(repoRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, spec := range file.Imports {
			imports[rel] = append(imports[rel], strings.Trim(spec.Path.Value, `"`))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return imports, nil
}

// repositoryRoot walks up from the working directory until it finds go.mod.
func repositoryRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for dir := wd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
	}
	return "", fmt.Errorf("no go.mod above the working directory")
}
