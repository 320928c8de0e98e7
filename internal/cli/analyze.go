package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/py-flow-trace/internal/config"
	"github.com/mvp-joe/py-flow-trace/internal/graph"
	"github.com/mvp-joe/py-flow-trace/internal/indexer"
	"github.com/mvp-joe/py-flow-trace/internal/render"
	"github.com/mvp-joe/py-flow-trace/internal/storage"
)

// analyzeFlags holds the analyze flags, shared by the root command.
type analyzeFlags struct {
	path             string
	output           string
	html             string
	noHTML           bool
	sqlite           string
	workers          int
	keepGoing        bool
	recordUnresolved bool
	resolveAliases   bool
	quiet            bool
	watch            bool
}

var analyzeOpts analyzeFlags

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Build the call graph of a Python project",
	Long: `Analyze discovers Python files, extracts every resolvable call and writes the
weighted call graph.

The analyzer:
  - Skips __pycache__, .git, .venv, venv, env, alembic and configured ignores
  - Attributes calls to module, class or method scope
  - Resolves callees through each file's imports and drops builtins
  - Writes analysis_result.json and template.html (and SQLite when configured)

Examples:
  # Analyze the current directory
  flowtrace analyze

  # Analyze src/, continuing past files with syntax errors
  flowtrace analyze --path src --keep-going

  # Also append the run to a SQLite database
  flowtrace analyze --sqlite .flowtrace/calls.db

  # Re-analyze on every change
  flowtrace analyze --watch
`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addAnalyzeFlags(analyzeCmd)
}

func addAnalyzeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&analyzeOpts.path, "path", "p", ".", "Project root to analyze")
	f.StringVarP(&analyzeOpts.output, "output", "o", graph.DefaultOutputFile, "Call graph artifact path")
	f.StringVar(&analyzeOpts.html, "html", render.DefaultOutputFile, "Visualization output path")
	f.BoolVar(&analyzeOpts.noHTML, "no-html", false, "Skip the visualization")
	f.StringVar(&analyzeOpts.sqlite, "sqlite", "", "Append the run to this SQLite database")
	f.IntVar(&analyzeOpts.workers, "workers", 0, "Files extracted concurrently (0 = number of CPUs)")
	f.BoolVar(&analyzeOpts.keepGoing, "keep-going", false, "Skip files that fail to parse instead of aborting")
	f.BoolVar(&analyzeOpts.recordUnresolved, "record-unresolved", false, "Record calls whose receiver is not imported")
	f.BoolVar(&analyzeOpts.resolveAliases, "resolve-aliases", false, "Bind 'import x as y' under the alias")
	f.BoolVarP(&analyzeOpts.quiet, "quiet", "q", false, "Disable progress bars and non-error output")
	f.BoolVarP(&analyzeOpts.watch, "watch", "w", false, "Watch for file changes and re-analyze")
}

// applyAnalyzeFlags overrides configuration with explicitly set flags.
func applyAnalyzeFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("path") {
		cfg.Path = analyzeOpts.path
	}
	if f.Changed("output") {
		cfg.Output = analyzeOpts.output
	}
	if f.Changed("html") {
		cfg.HTMLOutput = analyzeOpts.html
	}
	if analyzeOpts.noHTML {
		cfg.HTMLOutput = ""
	}
	if f.Changed("sqlite") {
		cfg.SQLitePath = analyzeOpts.sqlite
	}
	if f.Changed("workers") {
		cfg.Workers = analyzeOpts.workers
	}
	if f.Changed("keep-going") {
		cfg.KeepGoing = analyzeOpts.keepGoing
	}
	if f.Changed("record-unresolved") {
		cfg.RecordUnresolved = analyzeOpts.recordUnresolved
	}
	if f.Changed("resolve-aliases") {
		cfg.ResolveAliases = analyzeOpts.resolveAliases
	}
	return config.Validate(cfg)
}

// exportersFor returns the exporters enabled by cfg.
func exportersFor(cfg *config.Config) []indexer.Exporter {
	var exporters []indexer.Exporter
	if cfg.HTMLOutput != "" {
		exporters = append(exporters, render.NewHTMLExporter(cfg.HTMLOutput, render.DefaultOptions()))
	}
	if cfg.SQLitePath != "" {
		exporters = append(exporters, storage.NewExporter(cfg.SQLitePath, cfg.Path))
	}
	return exporters
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Println("\nInterrupted! Cancelling analysis...")
			cancel()
		case <-ctx.Done():
		}
	}()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyAnalyzeFlags(cmd, cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	artifact, err := graph.NewStorage(cfg.Output)
	if err != nil {
		return err
	}

	quiet := analyzeOpts.quiet
	idx, err := indexer.New(indexer.NewConfig(cfg), artifact,
		indexer.WithProgress(NewCLIProgressReporter(quiet)),
		indexer.WithExporters(exportersFor(cfg)...),
	)
	if err != nil {
		return fmt.Errorf("failed to create indexer: %w", err)
	}
	defer idx.Close()

	if analyzeOpts.watch {
		if err := idx.Watch(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("watch mode failed: %w", err)
		}
		if !quiet {
			log.Println("Watch mode stopped")
		}
		return nil
	}

	if _, err := idx.Index(ctx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("analysis cancelled")
		}
		return err
	}
	return nil
}
