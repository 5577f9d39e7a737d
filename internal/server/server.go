// Package server provides the MCP server wrapper with lifecycle management.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const instructions = "Bookpack builds a knowledge pack for a book from reader reviews, " +
	"community discussions and critical essays. Find a book with search_books, " +
	"build its pack with ingest_book, then ask questions with ask_book."

// Server wraps the MCP server with its logger and lifecycle.
type Server struct {
	mcp    *mcp.Server
	logger *slog.Logger
}

// New creates an MCP server reporting version.
func New(version string, logger *slog.Logger) *Server {
	impl := &mcp.Implementation{
		Name:    "bookpack",
		Version: version,
	}
	mcpServer := mcp.NewServer(impl, &mcp.ServerOptions{Instructions: instructions})
	return &Server{mcp: mcpServer, logger: logger}
}

// Run serves on stdio until the client disconnects or ctx ends.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server", "transport", "stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server for tool registration.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Setup installs request logging. Tool calls slower than slow are logged
// at WARN level.
func (s *Server) Setup(slow time.Duration) {
	s.mcp.AddReceivingMiddleware(LoggingMiddleware(s.logger, slow))
}
