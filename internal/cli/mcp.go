package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/py-flow-trace/internal/graph"
	"github.com/mvp-joe/py-flow-trace/internal/mcp"
)

var (
	mcpInput   string
	mcpNoWatch bool
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for call graph queries",
	Long: `Start the Model Context Protocol (MCP) server that lets coding assistants
query the call graph of this project.

The MCP server:
- Loads the call graph artifact written by 'flowtrace analyze'
- Answers callers/callees queries via the flowtrace_graph tool
- Reloads the graph whenever the artifact is rewritten
- Communicates via stdio (standard MCP transport)

Example:
  flowtrace mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVarP(&mcpInput, "input", "i", "", "Call graph artifact (default from configuration)")
	mcpCmd.Flags().BoolVar(&mcpNoWatch, "no-watch", false, "Do not reload when the artifact changes")
}

func runMCP(cmd *cobra.Command, args []string) error {
	input := mcpInput
	if input == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		input = cfg.Output
	}

	st, err := graph.NewStorage(input)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "flowtrace MCP Server\n")
	fmt.Fprintf(os.Stderr, "Artifact: %s\n", st.Path())
	if !st.Exists() {
		fmt.Fprintf(os.Stderr, "Artifact not found yet; serving an empty graph until it is written\n")
	}
	fmt.Fprintf(os.Stderr, "\n")

	searcher, err := graph.NewSearcher(st)
	if err != nil {
		return fmt.Errorf("failed to load call graph: %w", err)
	}

	server, err := mcp.NewMCPServer(&mcp.MCPServerConfig{
		ArtifactPath:  st.Path(),
		WatchArtifact: !mcpNoWatch,
	}, searcher)
	if err != nil {
		searcher.Close()
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	// Serve (blocks until shutdown)
	if err := server.Serve(context.Background()); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}
