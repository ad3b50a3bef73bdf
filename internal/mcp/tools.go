package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/maktabahq/maktaba/internal/model"
	"github.com/maktabahq/maktaba/internal/validate"
)

// registerTools registers all Maktaba MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	srv.AddTool(
		mcp.NewTool("maktaba_list_libraries",
			mcp.WithDescription(
				"List the Islamic text libraries this gateway can reach. Returns each "+
					"library's provider tag, display label, description, and homepage URL. "+
					"Use the provider tag with maktaba_get_book.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListLibraries,
	)

	srv.AddTool(
		mcp.NewTool("maktaba_get_book",
			mcp.WithDescription(
				"Fetch a book from one of the connected libraries. Returns the book's "+
					"title, author, content, and raw provider metadata as JSON. Book IDs "+
					"are provider-specific; they contain only letters, numbers, hyphens, "+
					"and underscores.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("provider",
				mcp.Required(),
				mcp.Description("Provider tag of the library to fetch from (e.g. shamela.ws)"),
			),
			mcp.WithString("book_id",
				mcp.Required(),
				mcp.Description("Provider-specific book identifier"),
			),
		),
		s.handleGetBook,
	)

	srv.AddTool(
		mcp.NewTool("maktaba_list_apps",
			mcp.WithDescription(
				"List the apps registered on this Maktaba instance across all owners, "+
					"with their library entitlements. Intended for operators inspecting "+
					"their own deployment.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListApps,
	)
}

// handleListLibraries returns the registered libraries with their metadata.
func (s *MCPServer) handleListLibraries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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
	return successJSON(map[string]interface{}{"libraries": items})
}

// handleGetBook fetches one book straight from the provider. Validation
// mirrors the HTTP gateway so agents see the same rules key holders do.
func (s *MCPServer) handleGetBook(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	providerTag, err := requireString(request, "provider")
	if err != nil {
		return toolError("%v", err)
	}
	bookID, err := requireString(request, "book_id")
	if err != nil {
		return toolError("%v", err)
	}
	if err := validate.BookID(bookID); err != nil {
		return toolError("%v", err)
	}

	lib, err := model.ParseLibrary(providerTag)
	if err != nil {
		return toolError("unknown provider %q; call maktaba_list_libraries for valid tags", providerTag)
	}
	p, err := s.registry.Get(lib)
	if err != nil {
		return toolError("provider %q is not registered on this instance", providerTag)
	}

	book, err := p.FetchBook(ctx, bookID)
	if err != nil {
		s.logger.Warn("mcp book fetch failed", "provider", providerTag, "book_id", bookID, "error", err)
		return toolError("fetch from %s failed: %v", providerTag, err)
	}
	return successJSON(map[string]interface{}{"book": book})
}

// handleListApps returns all registered apps with their entitlements.
func (s *MCPServer) handleListApps(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	apps, err := s.store.ListApps(ctx)
	if err != nil {
		return toolError("list apps: %v", err)
	}
	return successJSON(map[string]interface{}{"apps": apps, "count": len(apps)})
}
