package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"go-callgraph-precision/internal/analysis"
	"go-callgraph-precision/internal/callgraph"
	"go-callgraph-precision/internal/metrics"
)

// comparison holds one run per algorithm, plus the optional x/tools
// reference graphs of the same algorithms.
type comparison struct {
	graphs    map[analysis.Algorithm]*callgraph.Graph
	stats     map[analysis.Algorithm]analysis.Stats
	reference map[analysis.Algorithm]*callgraph.Graph
}

func newCompareCmd(a *app) *cobra.Command {
	var (
		entries   []string
		reference bool
	)
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run CHA, RTA and VTA side by side and report their precision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(entries) > 0 {
				a.cfg.EntryPoints = entries
			}
			proj, err := loadProject(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}

			rec := metrics.NewRecorder()
			an := proj.analyzer(a.logger, rec)
			cmp := &comparison{
				graphs: make(map[analysis.Algorithm]*callgraph.Graph),
				stats:  make(map[analysis.Algorithm]analysis.Stats),
			}
			algs := analysis.Algorithms()
			graphs := make([]*callgraph.Graph, len(algs))
			stats := make([]analysis.Stats, len(algs))

			// Runs only read the program, so each algorithm gets its own
			// graph and they proceed concurrently.
			eg, _ := errgroup.WithContext(cmd.Context())
			for i, alg := range algs {
				eg.Go(func() error {
					g, s, err := an.Build(alg, proj.entries)
					if err != nil {
						return fmt.Errorf("build %s: %w", alg, err)
					}
					graphs[i], stats[i] = g, s
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				return err
			}
			for i, alg := range algs {
				cmp.graphs[alg] = graphs[i]
				cmp.stats[alg] = stats[i]
			}

			if reference {
				cmp.reference = make(map[analysis.Algorithm]*callgraph.Graph)
				for _, alg := range algs {
					ref, err := proj.collector.ReferenceGraph(alg, proj.entries)
					if err != nil {
						return fmt.Errorf("reference %s: %w", alg, err)
					}
					cmp.reference[alg] = ref
				}
			}

			if err := writeComparison(cmd.OutOrStdout(), cmp); err != nil {
				return err
			}
			if a.cfg.MetricsFile != "" {
				return rec.WriteFile(a.cfg.MetricsFile)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&entries, "entry", nil, "Entry point functions (overrides config)")
	cmd.Flags().BoolVar(&reference, "reference", false, "Also compare against the golang.org/x/tools call graphs")
	return cmd
}

// writeComparison prints per-algorithm sizes and counters, then checks that
// each more precise graph is contained in the less precise ones.
func writeComparison(w io.Writer, cmp *comparison) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "algorithm\tnodes\tedges\tvisited\tunresolved\tno body\tout of scope\tuntracked\t")
	for _, alg := range analysis.Algorithms() {
		g, ok := cmp.graphs[alg]
		if !ok {
			continue
		}
		s := cmp.stats[alg]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t\n",
			alg, g.NodeCount(), g.EdgeCount(), s.MethodsVisited,
			s.Unresolved, s.MissingBodies, s.OutOfScope, s.UntrackedReceivers)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	// Styles degrade to plain text when w is not a terminal.
	r := lipgloss.NewRenderer(w)
	okStyle := r.NewStyle().Foreground(lipgloss.Color("#2CD7C7"))
	failStyle := r.NewStyle().Foreground(lipgloss.Color("#E74C3C")).Bold(true)

	fmt.Fprintln(w)
	pairs := [][2]analysis.Algorithm{
		{analysis.RTA, analysis.CHA},
		{analysis.VTA, analysis.CHA},
		{analysis.VTA, analysis.RTA},
	}
	for _, p := range pairs {
		sub, ok1 := cmp.graphs[p[0]]
		super, ok2 := cmp.graphs[p[1]]
		if !ok1 || !ok2 {
			continue
		}
		extra := sub.Missing(super)
		status := okStyle.Render("ok")
		if len(extra) > 0 {
			status = failStyle.Render(fmt.Sprintf("%d edges not in %s", len(extra), p[1]))
		}
		fmt.Fprintf(w, "%s ⊆ %s: %s\n", p[0], p[1], status)
		for _, e := range extra {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	if len(cmp.reference) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "algorithm\treference edges\tshared\tonly here\tonly reference\t")
	for _, alg := range analysis.Algorithms() {
		g, ok1 := cmp.graphs[alg]
		ref, ok2 := cmp.reference[alg]
		if !ok1 || !ok2 {
			continue
		}
		onlyHere := len(g.Missing(ref))
		onlyRef := len(ref.Missing(g))
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t\n",
			alg, ref.EdgeCount(), g.EdgeCount()-onlyHere, onlyHere, onlyRef)
	}
	return tw.Flush()
}
