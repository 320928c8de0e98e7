package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/py-flow-trace/internal/graph"
	"github.com/mvp-joe/py-flow-trace/internal/storage"
)

var (
	queryDepth      int
	queryMaxResults int
	queryInput      string
	querySQLite     string
	queryJSON       bool
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query <callers|callees> <symbol>",
	Short: "Query the call graph for callers or callees of a symbol",
	Long: `Query loads a previously written call graph and walks it from a symbol.

  callers   scopes that call the symbol
  callees   symbols the scope calls

Examples:
  flowtrace query callees app.main
  flowtrace query callers app.services.billing.charge --depth 3
  flowtrace query callers json.loads --sqlite .flowtrace/calls.db --json`,
	Args: cobra.ExactArgs(2),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().IntVar(&queryDepth, "depth", graph.DefaultDepth, "Traversal depth (max 10)")
	queryCmd.Flags().IntVar(&queryMaxResults, "max-results", graph.DefaultMaxResults, "Maximum number of results")
	queryCmd.Flags().StringVarP(&queryInput, "input", "i", graph.DefaultOutputFile, "Call graph artifact to query")
	queryCmd.Flags().StringVar(&querySQLite, "sqlite", "", "Query the latest run in this SQLite database instead")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Print the raw JSON response")
}

// openGraphStorage returns the artifact storage, or the latest SQLite run when
// sqlitePath is set. The returned close func releases the database.
func openGraphStorage(input, sqlitePath string) (graph.Storage, func(), error) {
	if sqlitePath != "" {
		reader, err := storage.NewGraphReader(sqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewSQLiteGraphStorage(reader, sqlitePath), func() { reader.Close() }, nil
	}

	st, err := graph.NewStorage(input)
	if err != nil {
		return nil, nil, err
	}
	return st, func() {}, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	op := graph.QueryOperation(strings.ToLower(args[0]))
	if op != graph.OperationCallers && op != graph.OperationCallees {
		return fmt.Errorf("invalid operation: %s (must be callers or callees)", args[0])
	}

	st, closeStorage, err := openGraphStorage(queryInput, querySQLite)
	if err != nil {
		return err
	}
	defer closeStorage()

	if !st.Exists() {
		return fmt.Errorf("no call graph found at %s (run 'flowtrace analyze' first)", st.Path())
	}

	searcher, err := graph.NewSearcher(st)
	if err != nil {
		return err
	}
	defer searcher.Close()

	resp, err := searcher.Query(cmd.Context(), &graph.QueryRequest{
		Operation:  op,
		Target:     args[1],
		Depth:      queryDepth,
		MaxResults: queryMaxResults,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if queryJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	return printQueryResponse(out, resp)
}

func printQueryResponse(out io.Writer, resp *graph.QueryResponse) error {
	if !resp.Found {
		fmt.Fprintf(out, "%s not found in the call graph\n", resp.Target)
		return nil
	}
	if len(resp.Results) == 0 {
		fmt.Fprintf(out, "No %s for %s\n", resp.Operation, resp.Target)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEPTH\tCOUNT\tSYMBOL\tVIA")
	for _, r := range resp.Results {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", r.Depth, r.Count, r.Symbol, r.Via)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if resp.Truncated {
		fmt.Fprintf(out, "(showing %d of %d)\n", resp.TotalReturned, resp.TotalFound)
	}
	return nil
}
