package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/py-flow-trace/internal/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
// Without a subcommand it runs analyze.
var rootCmd = &cobra.Command{
	Use:   "flowtrace",
	Short: "Weighted call graphs for Python projects",
	Long: `flowtrace walks a Python project, attributes every call to the scope it is
made from and writes a weighted caller -> callee graph.

Outputs:
  analysis_result.json   nested {caller: {callee: count}} artifact
  template.html          interactive force-directed visualization
  optional SQLite db     one run per analysis

Configuration is read from [tool.py-flow-trace] in pyproject.toml, then
FLOWTRACE_* environment variables, then flags.`,
	RunE:          runAnalyze,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file with a [tool.py-flow-trace] table (default is ./pyproject.toml)")
	addAnalyzeFlags(rootCmd)
}

// loadConfig loads the project configuration from --config or the working directory.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.NewFileLoader(cfgFile).Load()
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
