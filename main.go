package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"go-callgraph-precision/internal/config"
)

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	dir        string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "callgraph",
		Short: "Build and compare CHA, RTA and VTA call graphs of a Go module",
		Long: `callgraph builds static call graphs of a Go module with Class Hierarchy
Analysis, Rapid Type Analysis and Variable Type Analysis, stores the runs
locally and optionally exports them to Neo4j.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file")
	flags.StringVar(&a.dir, "dir", "", "Project root directory (overrides config)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	root.AddCommand(newBuildCmd(a), newCompareCmd(a), newRunsCmd(a))
	return root
}

// setup loads the configuration, applies flag overrides and installs the
// logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("dir") {
		cfg.Dir = a.dir
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)
	return nil
}

// detectModulePath reads the go.mod file in dir and returns the module path.
func detectModulePath(dir string) (string, error) {
	gomod := filepath.Join(dir, "go.mod")
	data, err := os.ReadFile(gomod)
	if err != nil {
		return "", fmt.Errorf("cannot read go.mod: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "module ") {
			return strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "module")), `"`), nil
		}
	}
	return "", fmt.Errorf("module directive not found in go.mod")
}
