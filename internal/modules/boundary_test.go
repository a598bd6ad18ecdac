// Package modules_test verifies module boundary compliance.
package modules_test

import (
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
	"testing"
)

const modulePath = "github.com/hqdash/runtime/"

// importsOf returns the imports of the non-test Go files in dir.
func importsOf(t *testing.T, dir string) map[string][]string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		t.Fatalf("failed to glob %s: %v", dir, err)
	}
	if len(matches) == 0 {
		t.Fatalf("no Go files in %s", dir)
	}
	imports := make(map[string][]string)
	for _, file := range matches {
		if strings.HasSuffix(file, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(token.NewFileSet(), file, nil, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("failed to parse file %s: %v", file, err)
		}
		for _, imp := range f.Imports {
			imports[filepath.Base(file)] = append(imports[filepath.Base(file)], strings.Trim(imp.Path.Value, `"`))
		}
	}
	return imports
}

// TestModuleBoundaryCompliance verifies that input, filter and output modules
// depend only on the shared leaf packages, never on the pipeline or the
// surfaces built on top of it.
func TestModuleBoundaryCompliance(t *testing.T) {
	allowed := map[string]bool{
		modulePath + "pkg/dataset":          true,
		modulePath + "internal/logger":      true,
		modulePath + "internal/errhandling": true,
		modulePath + "internal/pathutil":    true,
		modulePath + "internal/database":    true,
		modulePath + "internal/summary":     true,
	}

	for _, pkg := range []string{"input", "filter", "output"} {
		t.Run(pkg, func(t *testing.T) {
			for file, imports := range importsOf(t, pkg) {
				for _, imp := range imports {
					if strings.HasPrefix(imp, modulePath) && !allowed[imp] {
						t.Errorf("BOUNDARY VIOLATION: %s/%s imports %s\n"+
							"Modules must not depend on the runtime, factory, registry or API packages.",
							pkg, file, imp)
					}
				}
			}
		})
	}
}

// TestModulesDoNotImportEachOther keeps the three module kinds independent so
// the registry can compose them freely.
func TestModulesDoNotImportEachOther(t *testing.T) {
	for _, pkg := range []string{"input", "filter", "output"} {
		for file, imports := range importsOf(t, pkg) {
			for _, imp := range imports {
				if strings.HasPrefix(imp, modulePath+"internal/modules/") {
					t.Errorf("%s/%s imports sibling module package %s", pkg, file, imp)
				}
			}
		}
	}
}

// TestDatasetIsLeaf checks that the public data types import nothing internal.
func TestDatasetIsLeaf(t *testing.T) {
	for file, imports := range importsOf(t, filepath.Join("..", "..", "pkg", "dataset")) {
		for _, imp := range imports {
			if strings.HasPrefix(imp, modulePath) {
				t.Errorf("pkg/dataset/%s imports %s", file, imp)
			}
		}
	}
}
