package core

import (
	"fmt"
	"go/ast"
	"go/types"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"golang.org/x/tools/go/packages"
)

func TestServiceStructFields(t *testing.T) {
	structType := serviceStructType(t)

	fields := make(map[string]string, structType.NumFields())
	for i := range structType.NumFields() {
		f := structType.Field(i)
		fields[f.Name()] = types.TypeString(types.Unalias(f.Type()), pkgPath)
	}

	required := map[string]string{
		"store": "casefile/pkg/domain.PersistentStore",
		"opts":  "casefile/internal/core.serviceOptions",
		"nowFn": "func() time.Time",
	}

	var problems []string
	for name, want := range required {
		got, ok := fields[name]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("missing field %s", name))
		case got != want:
			problems = append(problems, fmt.Sprintf("field %s is %s, want %s", name, got, want))
		}
	}
	slices.Sort(problems)
	if len(problems) > 0 {
		t.Fatalf("service struct drifted from its contract:\n%s", strings.Join(problems, "\n"))
	}
}

// TestServiceResultMethodsDelegateToRun walks every service file: exported
// Service methods returning a Result must delegate to run so tracing,
// metrics, and auditing cover all transactional operations.
func TestServiceResultMethodsDelegateToRun(t *testing.T) {
	pkg := loadCorePackage(t)

	var violations []string
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			if v, ok := runViolation(pkg, decl); ok {
				violations = append(violations, v)
			}
		}
	}
	if len(violations) == 0 {
		return
	}
	slices.Sort(violations)
	t.Fatalf("found %d Result-returning Service methods that bypass run:\n%s",
		len(violations), strings.Join(violations, "\n"))
}

// runViolation reports fn's position when it is an exported Service method
// returning a Result without calling run.
func runViolation(pkg *packages.Package, decl ast.Decl) (string, bool) {
	fn, ok := decl.(*ast.FuncDecl)
	if !ok || fn.Recv == nil || fn.Body == nil || !ast.IsExported(fn.Name.Name) {
		return "", false
	}
	recvName, isService := serviceReceiver(fn)
	if !isService || !returnsResult(fn) || delegatesToRun(fn, recvName) {
		return "", false
	}
	pos := pkg.Fset.Position(fn.Pos())
	return fmt.Sprintf("%s:%d %s", filepath.Base(pos.Filename), pos.Line, fn.Name.Name), true
}

// loadCore type-checks this package exactly once; the contract tests and the
// alias guard all share the result.
var loadCore = sync.OnceValues(func() (*packages.Package, error) {
	cfg := &packages.Config{
		Mode:  packages.NeedName | packages.NeedTypes | packages.NeedSyntax | packages.NeedCompiledGoFiles | packages.NeedFiles,
		Tests: true,
	}
	pkgs, err := packages.Load(cfg, "casefile/internal/core")
	if err != nil {
		return nil, fmt.Errorf("load core package: %w", err)
	}
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, fmt.Errorf("package load errors: %v", pkg.Errors)
		}
		if pkg.PkgPath == "casefile/internal/core" {
			return pkg, nil
		}
	}
	return nil, fmt.Errorf("casefile/internal/core missing from load results")
})

func loadCorePackage(t *testing.T) *packages.Package {
	t.Helper()
	pkg, err := loadCore()
	if err != nil {
		t.Fatalf("core package load: %v", err)
	}
	return pkg
}

// serviceStructType resolves the Service struct from the type-checked package.
func serviceStructType(t *testing.T) *types.Struct {
	t.Helper()
	pkg := loadCorePackage(t)
	obj := pkg.Types.Scope().Lookup("Service")
	if obj == nil {
		t.Fatal("Service missing from package scope")
	}
	st, ok := obj.Type().Underlying().(*types.Struct)
	if !ok {
		t.Fatalf("Service underlying type is %v, want a struct", obj.Type().Underlying())
	}
	return st
}

func pkgPath(p *types.Package) string {
	if p == nil {
		return ""
	}
	return p.Path()
}

// typeName unwraps a pointer receiver or qualified type down to its ident.
func typeName(expr ast.Expr) string {
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.SelectorExpr:
		return e.Sel.Name
	}
	return ""
}

func serviceReceiver(fn *ast.FuncDecl) (string, bool) {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return "", false
	}
	first := fn.Recv.List[0]
	if len(first.Names) == 0 || typeName(first.Type) != "Service" {
		return "", false
	}
	return first.Names[0].Name, true
}

func returnsResult(fn *ast.FuncDecl) bool {
	if fn.Type.Results == nil {
		return false
	}
	return slices.ContainsFunc(fn.Type.Results.List, func(res *ast.Field) bool {
		return typeName(res.Type) == "Result"
	})
}

func delegatesToRun(fn *ast.FuncDecl, receiver string) bool {
	hit := false
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		if hit {
			return false
		}
		hit = callsRunOn(n, receiver)
		return !hit
	})
	return hit
}

// callsRunOn reports whether n is a <receiver>.run(...) call.
func callsRunOn(n ast.Node, receiver string) bool {
	call, ok := n.(*ast.CallExpr)
	if !ok {
		return false
	}
	fun, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || fun.Sel.Name != "run" {
		return false
	}
	ident, ok := fun.X.(*ast.Ident)
	return ok && ident.Name == receiver
}
