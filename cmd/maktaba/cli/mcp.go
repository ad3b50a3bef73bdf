package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maktabahq/maktaba/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol server, exposing the library providers
as tools for AI agents. The stdio transport is for clients that launch
the server as a subprocess; http serves remote clients.`,
		Example: `  maktaba mcp                       # stdio transport
  maktaba mcp --transport http --port 3001`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port)
		},
	}

	cmd.Flags().StringVarP(&transport, "transport", "t", "stdio", "Transport: stdio or http")
	cmd.Flags().IntVarP(&port, "port", "p", 3001, "Port for the http transport")

	return cmd
}

func runMCP(transport string, port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// MCP logs go to stderr: in stdio mode stdout carries the protocol.
	logger := newLogger(cfg, false)

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	srv := mcp.NewMCPServer(newRegistry(cfg), st, logger)

	switch transport {
	case "stdio":
		return srv.ServeStdio()
	case "http":
		return srv.ServeHTTP(fmt.Sprintf(":%d", port))
	default:
		return fmt.Errorf("unknown transport %q; use 'stdio' or 'http'", transport)
	}
}
