package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"go-callgraph-precision/internal/analysis"
	"go-callgraph-precision/internal/config"
	"go-callgraph-precision/internal/frontend"
	"go-callgraph-precision/internal/ir"
	"go-callgraph-precision/internal/store"
)

// ErrNoEntryPoints is returned when a module has no main package and no
// entry points are configured.
var ErrNoEntryPoints = errors.New("no entry points")

// project is a loaded module ready for analysis.
type project struct {
	modulePath string
	collector  *frontend.Collector
	program    *ir.Program
	entries    []ir.MethodSignature
	scope      ir.Scope
}

// loadProject loads, type checks and translates the module described by cfg.
func loadProject(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*project, error) {
	absDir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, err
	}
	modulePath := cfg.Module
	if modulePath == "" {
		modulePath, err = detectModulePath(absDir)
		if err != nil {
			return nil, fmt.Errorf("cannot detect Go module: %w", err)
		}
	}
	logger.Info("analysing module", "module", modulePath, "dir", absDir)

	pkgs, err := frontend.Load(ctx, absDir, logger, cfg.Patterns...)
	if err != nil {
		return nil, err
	}
	prog := frontend.BuildSSA(pkgs)

	c := frontend.NewCollector(prog, modulePath, logger)
	p := c.Collect()

	var scope ir.Scope = c.Scope()
	if len(cfg.Scope) > 0 {
		scope = ir.PrefixScope(cfg.Scope)
	}

	var provider ir.EntryPointProvider = c
	if len(cfg.EntryPoints) > 0 {
		if provider, err = c.ResolveEntryPoints(cfg.EntryPoints...); err != nil {
			return nil, err
		}
	}
	entries := selectEntryPoints(provider, scope, logger)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w in %s: configure entryPoints", ErrNoEntryPoints, modulePath)
	}
	return &project{
		modulePath: modulePath,
		collector:  c,
		program:    p,
		entries:    entries,
		scope:      scope,
	}, nil
}

// selectEntryPoints keeps the entry points of provider that lie in scope.
func selectEntryPoints(provider ir.EntryPointProvider, scope ir.Scope, logger *slog.Logger) []ir.MethodSignature {
	all := provider.EntryPoints()
	entries := ir.InScope(all, scope)
	if dropped := len(all) - len(entries); dropped > 0 {
		logger.Warn("ignoring entry points outside the analysis scope", "dropped", dropped)
	}
	return entries
}

func (p *project) analyzer(logger *slog.Logger, rec analysis.Recorder) *analysis.Analyzer {
	opts := []analysis.Option{analysis.WithScope(p.scope), analysis.WithLogger(logger)}
	if rec != nil {
		opts = append(opts, analysis.WithRecorder(rec))
	}
	return analysis.New(p.program, opts...)
}

func openStore(cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	sc := store.DefaultConfig(cfg.Store.Path)
	sc.Logger = logger.With("component", "badger")
	return store.Open(sc)
}

// runName names the stored run of one algorithm within a build.
func runName(prefix string, alg analysis.Algorithm) string {
	return fmt.Sprintf("%s/%s", prefix, alg)
}
