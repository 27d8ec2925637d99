package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"go-callgraph-precision/internal/store"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect, export and delete stored runs",
	}

	withStore := func(fn func(cmd *cobra.Command, st *store.Store, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			st, err := openStore(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer st.Close()
			return fn(cmd, st, args)
		}
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored runs",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, st *store.Store, _ []string) error {
			runs, err := st.List()
			if err != nil {
				return err
			}
			return writeRuns(cmd.OutOrStdout(), runs)
		}),
	}

	var showEdges bool
	show := &cobra.Command{
		Use:   "show NAME",
		Short: "Print the statistics and optionally the edges of a run",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, st *store.Store, args []string) error {
			run, err := st.Load(args[0])
			if err != nil {
				return err
			}
			writeRun(cmd.OutOrStdout(), run, showEdges)
			return nil
		}),
	}
	show.Flags().BoolVar(&showEdges, "edges", false, "Print every edge")

	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, st *store.Store, args []string) error {
			if err := st.Delete(args[0]); err != nil {
				return err
			}
			a.logger.Info("run deleted", "name", args[0])
			return nil
		}),
	}

	export := &cobra.Command{
		Use:   "export NAME",
		Short: "Load the call edges of a stored run into Neo4j",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, st *store.Store, args []string) error {
			run, err := st.Load(args[0])
			if err != nil {
				return err
			}
			loader, err := newLoader(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer loader.Close()
			if err := loader.CreateIndexes(); err != nil {
				return fmt.Errorf("failed to create indexes: %w", err)
			}
			return loadAlgorithmCalls(loader, run.Algorithm, run.Graph())
		}),
	}

	cmd.AddCommand(list, show, del, export)
	return cmd
}

func writeRuns(w io.Writer, runs []store.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tALGORITHM\tNODES\tEDGES\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", r.Name, r.Algorithm, r.Nodes, r.Edges, r.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func writeRun(w io.Writer, run *store.Run, edges bool) {
	s := run.Stats
	fmt.Fprintf(w, "run:                 %s\n", run.Name)
	fmt.Fprintf(w, "algorithm:           %s\n", run.Algorithm)
	fmt.Fprintf(w, "created:             %s\n", run.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "nodes:               %d\n", len(run.Nodes))
	fmt.Fprintf(w, "edges:               %d\n", len(run.Edges))
	fmt.Fprintf(w, "entry points:        %d\n", s.EntryPoints)
	fmt.Fprintf(w, "methods visited:     %d\n", s.MethodsVisited)
	fmt.Fprintf(w, "unresolved:          %d\n", s.Unresolved)
	fmt.Fprintf(w, "missing bodies:      %d\n", s.MissingBodies)
	fmt.Fprintf(w, "out of scope:        %d\n", s.OutOfScope)
	fmt.Fprintf(w, "untracked receivers: %d\n", s.UntrackedReceivers)
	fmt.Fprintf(w, "duration:            %s\n", s.Duration)
	if !edges {
		return
	}
	for _, e := range run.Edges {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
