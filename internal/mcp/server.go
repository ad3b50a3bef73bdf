package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/maktabahq/maktaba/internal/provider"
	"github.com/maktabahq/maktaba/internal/store"
)

// MCPServer wraps the mcp-go server with Maktaba-specific tool and resource
// registrations. It exposes the library providers as MCP tools so AI agents
// can discover libraries and fetch books. The MCP surface runs inside the
// operator's trust boundary and talks to the providers directly; it does not
// consume API keys.
type MCPServer struct {
	registry *provider.Registry
	store    *store.Store
	logger   *slog.Logger
	server   *server.MCPServer
}

// NewMCPServer creates an MCPServer pre-loaded with all Maktaba tools and
// resources. The returned server is ready to serve over stdio or HTTP.
func NewMCPServer(registry *provider.Registry, st *store.Store, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		registry: registry,
		store:    st,
		logger:   logger,
	}

	mcpServer := server.NewMCPServer(
		"Maktaba Library Gateway",
		"0.1.0",
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance. Useful for
// advanced configuration or testing.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode. This is the primary
// integration path for MCP clients that launch the server as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode, listening on
// the given address (e.g. ":3001"). This is suitable for remote MCP clients.
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
