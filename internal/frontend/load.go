// Package frontend turns Go packages into the program view analysed by the
// call graph engines.
//
// Named types become classes, the first embedded struct acts as the
// superclass and package-level functions live on one pseudo class per
// package. Bodies are translated from SSA form.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// ErrNoPackages is returned when a pattern matches no packages.
var ErrNoPackages = errors.New("no packages matched")

// LoadMode requests everything needed to build SSA with type information.
const LoadMode = packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
	packages.NeedImports | packages.NeedDeps | packages.NeedTypes |
	packages.NeedSyntax | packages.NeedTypesInfo | packages.NeedTypesSizes

// Load loads the packages matching patterns below dir. Package errors are
// logged and loading continues with whatever type checked.
func Load(ctx context.Context, dir string, logger *slog.Logger, patterns ...string) ([]*packages.Package, error) {
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	cfg := &packages.Config{
		Context: ctx,
		Mode:    LoadMode,
		Dir:     dir,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoPackages, patterns)
	}

	var errCount int
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		for _, e := range pkg.Errors {
			errCount++
			logger.Warn("package error (continuing anyway)", "package", pkg.PkgPath, "error", e.Msg)
		}
	})
	logger.Info("loaded packages", "count", len(pkgs), "errors", errCount)
	return pkgs, nil
}

// BuildSSA builds the SSA program for pkgs and their dependencies.
func BuildSSA(pkgs []*packages.Package) *ssa.Program {
	prog, ssaPkgs := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	for _, p := range ssaPkgs {
		if p != nil {
			p.Build()
		}
	}
	prog.Build()
	return prog
}
