package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"go-callgraph-precision/internal/analysis"
	"go-callgraph-precision/internal/callgraph"
	"go-callgraph-precision/internal/config"
	"go-callgraph-precision/internal/ir"
	"go-callgraph-precision/internal/metrics"
)

type buildOptions struct {
	run        string
	algorithms []string
	entries    []string
	neo4j      bool
}

func newBuildCmd(a *app) *cobra.Command {
	opts := &buildOptions{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build call graphs and store them as named runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(opts.algorithms) > 0 {
				a.cfg.Algorithms = opts.algorithms
			}
			if len(opts.entries) > 0 {
				a.cfg.EntryPoints = opts.entries
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return runBuild(cmd, a.cfg, a.logger, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.run, "run", "latest", "Name prefix of the stored runs")
	flags.StringSliceVar(&opts.algorithms, "algorithm", nil, "Algorithms to run: cha, rta, vta (overrides config)")
	flags.StringSliceVar(&opts.entries, "entry", nil, "Entry point functions, e.g. example.com/app.main (overrides config)")
	flags.BoolVar(&opts.neo4j, "neo4j", false, "Export the graphs to Neo4j")
	return cmd
}

type builtGraph struct {
	graph *callgraph.Graph
	stats analysis.Stats
}

func runBuild(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, opts *buildOptions) error {
	ctx := cmd.Context()
	algs, err := cfg.ParsedAlgorithms()
	if err != nil {
		return err
	}
	proj, err := loadProject(ctx, cfg, logger)
	if err != nil {
		return err
	}

	rec := metrics.NewRecorder()
	an := proj.analyzer(logger, rec)

	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	built := make(map[analysis.Algorithm]builtGraph, len(algs))
	out := cmd.OutOrStdout()
	for _, alg := range algs {
		g, stats, err := an.Build(alg, proj.entries)
		if err != nil {
			return fmt.Errorf("build %s: %w", alg, err)
		}
		name := runName(opts.run, alg)
		if _, err := st.Save(name, g, stats); err != nil {
			return fmt.Errorf("save run %s: %w", name, err)
		}
		built[alg] = builtGraph{graph: g, stats: stats}
		fmt.Fprintf(out, "%-4s %6d nodes %7d edges  %s\n", alg, stats.Nodes, stats.Edges, name)
	}

	if opts.neo4j {
		if err := exportProgram(ctx, cfg, logger, proj.program, algs, built); err != nil {
			return err
		}
	}

	if cfg.MetricsFile != "" {
		if err := rec.WriteFile(cfg.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		logger.Info("metrics written", "path", cfg.MetricsFile)
	}
	return nil
}

// exportProgram loads the hierarchy of p and the call edges of every built
// algorithm into Neo4j.
func exportProgram(ctx context.Context, cfg *config.Config, logger *slog.Logger, p *ir.Program, algs []analysis.Algorithm, built map[analysis.Algorithm]builtGraph) error {
	loader, err := newLoader(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer loader.Close()

	if cfg.Neo4j.Clean {
		if err := loader.CleanGraph(); err != nil {
			return fmt.Errorf("failed to clean graph: %w", err)
		}
	}
	if err := loader.CreateIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	if err := loader.LoadClasses(classNodes(p)); err != nil {
		return fmt.Errorf("failed to load classes: %w", err)
	}
	if err := loader.LoadImplements(implementsEdges(p)); err != nil {
		return fmt.Errorf("failed to load implements: %w", err)
	}
	if err := loader.LoadMethods(methodNodes(p)); err != nil {
		return fmt.Errorf("failed to load methods: %w", err)
	}
	for _, alg := range algs {
		if err := loadAlgorithmCalls(loader, alg, built[alg].graph); err != nil {
			return err
		}
	}
	logger.Info("neo4j export complete")
	return nil
}

func newLoader(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Neo4jLoader, error) {
	return NewNeo4jLoader(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.BatchSize, logger.With("component", "neo4j"))
}

func loadAlgorithmCalls(loader *Neo4jLoader, alg analysis.Algorithm, g *callgraph.Graph) error {
	if err := loader.CleanCalls(alg.String()); err != nil {
		return fmt.Errorf("failed to clean %s calls: %w", alg, err)
	}
	if err := loader.LoadCalls(callEdges(g, alg)); err != nil {
		return fmt.Errorf("failed to load %s calls: %w", alg, err)
	}
	return nil
}
