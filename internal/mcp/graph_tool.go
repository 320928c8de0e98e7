package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/py-flow-trace/internal/graph"
)

// GraphToolName is the name the call graph tool is registered under.
const GraphToolName = "flowtrace_graph"

// MaxResultsLimit caps max_results for a single tool call.
const MaxResultsLimit = 500

// GraphQuerier is the interface for graph query operations.
type GraphQuerier interface {
	Query(ctx context.Context, req *graph.QueryRequest) (*graph.QueryResponse, error)
}

// AddGraphTool registers the flowtrace_graph tool with an MCP server.
func AddGraphTool(s *server.MCPServer, querier GraphQuerier) {
	tool := mcp.NewTool(
		GraphToolName,
		mcp.WithDescription("Query the weighted call graph of a Python project. Supports operations: callers (which scopes call this symbol), callees (what this scope calls). Results carry traversal depth and call counts."),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("Type of query: 'callers' or 'callees'")),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("Dotted symbol (e.g., 'pkg.mod.C.run', 'pkg.item.method', 'os.getcwd')")),
		mcp.WithNumber("depth",
			mcp.Description("Traversal depth for recursive queries (default: 1, max: 10)")),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of results to return (default: 100, max: 500)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createGraphHandler(querier))
}

// createGraphHandler creates the handler function for the flowtrace_graph tool.
func createGraphHandler(querier GraphQuerier) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		operation, err := parseStringArg(argsMap, "operation", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		validOps := map[string]graph.QueryOperation{
			"callers": graph.OperationCallers,
			"callees": graph.OperationCallees,
		}
		graphOp, valid := validOps[operation]
		if !valid {
			return mcp.NewToolResultError(fmt.Sprintf("invalid operation: %s (must be one of: callers, callees)", operation)), nil
		}

		target, err := parseStringArg(argsMap, "target", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		req := &graph.QueryRequest{
			Operation:  graphOp,
			Target:     target,
			Depth:      parseClampedInt(argsMap, "depth", graph.DefaultDepth, 1, graph.MaxDepth),
			MaxResults: parseClampedInt(argsMap, "max_results", graph.DefaultMaxResults, 1, MaxResultsLimit),
		}

		response, err := querier.Query(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("graph query failed: %w", err)
		}

		jsonData, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}

		return mcp.NewToolResultText(string(jsonData)), nil
	}
}
