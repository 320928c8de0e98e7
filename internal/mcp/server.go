// Package mcp exposes call graph queries to MCP clients over stdio.
package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/py-flow-trace/internal/graph"
)

// ServerName and ServerVersion identify the server to MCP clients.
const (
	ServerName    = "flowtrace-mcp"
	ServerVersion = "1.0.0"
)

// MCPServerConfig configures the MCP server.
type MCPServerConfig struct {
	// ArtifactPath is the JSON artifact served by the tool.
	ArtifactPath string

	// WatchArtifact reloads the graph whenever the artifact is rewritten.
	WatchArtifact bool
}

// MCPServer manages the MCP server lifecycle.
type MCPServer struct {
	config   *MCPServerConfig
	searcher graph.Searcher
	watcher  *ArtifactWatcher
	mcp      *server.MCPServer
}

// NewMCPServer creates a server answering flowtrace_graph from searcher.
// The server takes ownership of searcher and closes it in Close.
func NewMCPServer(config *MCPServerConfig, searcher graph.Searcher) (*MCPServer, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
	)
	AddGraphTool(mcpServer, searcher)

	s := &MCPServer{
		config:   config,
		searcher: searcher,
		mcp:      mcpServer,
	}

	if config.WatchArtifact {
		watcher, err := NewArtifactWatcher(searcher, config.ArtifactPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create artifact watcher: %w", err)
		}
		s.watcher = watcher
	}

	return s, nil
}

// Serve starts the MCP server and blocks until shutdown.
func (s *MCPServer) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.watcher != nil {
		s.watcher.Start(ctx)
		defer s.watcher.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases all resources.
func (s *MCPServer) Close() error {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	if s.searcher != nil {
		return s.searcher.Close()
	}
	return nil
}
