package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// registerResources adds MCP resource definitions to the server. Resources
// provide read-only data that LLM clients can load into their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {

	srv.AddResource(
		mcp.NewResource(
			"maktaba://libraries",
			"Connected Libraries",
			mcp.WithResourceDescription(
				"The Islamic text libraries this gateway can reach, with their "+
					"provider tags and display metadata.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleLibrariesResource,
	)
}

// handleLibrariesResource returns a JSON list of the registered libraries.
func (s *MCPServer) handleLibrariesResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	type libraryInfo struct {
		ID          string `json:"id"`
		Label       string `json:"label"`
		Description string `json:"description"`
		URL         string `json:"url"`
	}

	libs := s.registry.Libraries()
	items := make([]libraryInfo, len(libs))
	for i, lib := range libs {
		info := lib.Info()
		items[i] = libraryInfo{
			ID:          string(lib),
			Label:       info.Label,
			Description: info.Description,
			URL:         info.URL,
		}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal libraries: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
