// Package reachfunc provides entry-point reachability analysis for Go
// programs.
package reachfunc

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/tools/go/packages"
)

// defaultLoadMode specifies the standard packages.Mode flags used throughout
// the project for loading Go packages with all necessary information for
// analysis. NeedTypesInfo is required for SSA construction and dominates the
// memory cost of loading; there is no cheaper mode that still yields a
// buildable program.
const defaultLoadMode = packages.NeedDeps |
	packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo

// LoaderOptions configures package loading behavior.
type LoaderOptions struct {
	// Packages are the package patterns to load.
	Packages []string

	// BuildTags are build tags to apply during loading.
	BuildTags []string

	// Dir is the directory to load packages from.
	// If empty, uses the current working directory.
	Dir string

	// Env is the environment to use for loading.
	Env []string
}

// LoadPackages loads Go packages with consistent configuration for
// reachability analysis.
func LoadPackages(ctx context.Context, opts LoaderOptions) ([]*packages.Package, error) {
	patterns := opts.Packages
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	cfg := &packages.Config{
		Context: ctx,
		Mode:    defaultLoadMode,
		Env:     opts.Env,
	}

	if opts.Dir != "" {
		cfg.Dir = opts.Dir
	}

	if len(opts.BuildTags) > 0 {
		cfg.BuildFlags = append(cfg.BuildFlags, "-tags", strings.Join(opts.BuildTags, ","))
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}

	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found matching patterns: %v", patterns)
	}

	var errorMessages []string
	for _, pkg := range pkgs {
		for _, err := range pkg.Errors {
			errorMessages = append(errorMessages, fmt.Sprintf("package %s: %v", pkg.PkgPath, err))
		}
	}
	if len(errorMessages) > 0 {
		return nil, fmt.Errorf("package errors:\n%s", strings.Join(errorMessages, "\n"))
	}

	return deduplicatePackages(pkgs), nil
}

// deduplicatePackages removes duplicate packages, preferring test variants
// over regular packages. Test variants (IDs containing "[...]") are supersets
// that include all production code plus test-only declarations, so analyzing
// both would double-count every function.
func deduplicatePackages(pkgs []*packages.Package) []*packages.Package {
	best := make(map[string]*packages.Package)
	for _, pkg := range pkgs {
		if strings.HasSuffix(pkg.ID, ".test") && !strings.Contains(pkg.ID, "[") {
			continue
		}

		existing, exists := best[pkg.PkgPath]
		if !exists {
			best[pkg.PkgPath] = pkg
			continue
		}

		if isSuperset(pkg, existing) {
			best[pkg.PkgPath] = pkg
		}
	}
	return slices.Collect(maps.Values(best))
}

// isSuperset returns true if pkg is a superset of existing. Only a test
// variant is a superset of its regular counterpart.
func isSuperset(pkg, existing *packages.Package) bool {
	pkgIsTest := strings.Contains(pkg.ID, "[")
	existingIsTest := strings.Contains(existing.ID, "[")

	return pkgIsTest && !existingIsTest
}
