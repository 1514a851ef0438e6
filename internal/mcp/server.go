package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/manualqa/internal/chat"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that lets agents query the manuals.
type Server struct {
	engine   *chat.Engine
	sessions *chat.Manager
	searcher chat.Searcher
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(engine *chat.Engine, sessions *chat.Manager, searcher chat.Searcher) *Server {
	s := &Server{
		engine:   engine,
		sessions: sessions,
		searcher: searcher,
	}

	s.mcp = server.NewMCPServer(
		"manualqa",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(askManualsTool, s.handleAskManuals)
	s.mcp.AddTool(searchManualsTool, s.handleSearchManuals)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
