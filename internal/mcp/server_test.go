package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/maktabahq/maktaba/internal/model"
	"github.com/maktabahq/maktaba/internal/provider"
	"github.com/maktabahq/maktaba/internal/store"
)

func newTestMCPServer(t *testing.T) *MCPServer {
	t.Helper()

	st, err := store.Open(store.Config{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"title": "Fath al-Bari"})
	}))
	t.Cleanup(upstream.Close)

	registry := provider.NewRegistry()
	registry.Register(provider.NewShamela(upstream.URL))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMCPServer(registry, st, logger)
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", result.Content[0])
	}
	return text.Text
}

func TestListLibrariesTool(t *testing.T) {
	s := newTestMCPServer(t)

	result, err := s.handleListLibraries(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handleListLibraries: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", resultText(t, result))
	}

	var body struct {
		Libraries []struct {
			ID    string `json:"id"`
			Label string `json:"label"`
		} `json:"libraries"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Libraries) != 1 || body.Libraries[0].ID != "shamela.ws" || body.Libraries[0].Label != "Shamela" {
		t.Errorf("libraries = %+v", body.Libraries)
	}
}

func TestGetBookTool(t *testing.T) {
	s := newTestMCPServer(t)

	result, err := s.handleGetBook(context.Background(), callRequest(map[string]any{
		"provider": "shamela.ws",
		"book_id":  "fath-1",
	}))
	if err != nil {
		t.Fatalf("handleGetBook: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", resultText(t, result))
	}

	var body struct {
		Book model.Book `json:"book"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Book.Title != "Fath al-Bari" || body.Book.ID != "fath-1" {
		t.Errorf("book = %+v", body.Book)
	}
}

func TestGetBookToolErrors(t *testing.T) {
	s := newTestMCPServer(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		args     map[string]any
		wantHint string
	}{
		{"missing provider", map[string]any{"book_id": "b1"}, "provider"},
		{"unknown provider", map[string]any{"provider": "example.com", "book_id": "b1"}, "maktaba_list_libraries"},
		{"unregistered provider", map[string]any{"provider": "turath.io", "book_id": "b1"}, "not registered"},
		{"bad book id", map[string]any{"provider": "shamela.ws", "book_id": "a/b"}, "Book ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.handleGetBook(ctx, callRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned protocol error: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected tool error result")
			}
			if text := resultText(t, result); !strings.Contains(text, tt.wantHint) {
				t.Errorf("error %q does not mention %q", text, tt.wantHint)
			}
		})
	}
}

func TestListAppsTool(t *testing.T) {
	s := newTestMCPServer(t)
	ctx := context.Background()

	user := &model.User{Email: "owner@example.com", PasswordHash: "x", IsActive: true}
	if err := s.store.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	app := &model.App{UserID: user.ID, Name: "Reader", Libraries: []model.Library{model.LibraryShamela}}
	if err := s.store.CreateApp(ctx, app); err != nil {
		t.Fatalf("create app: %v", err)
	}

	result, err := s.handleListApps(ctx, callRequest(nil))
	if err != nil {
		t.Fatalf("handleListApps: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", resultText(t, result))
	}

	var body struct {
		Apps  []model.App `json:"apps"`
		Count int         `json:"count"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 || len(body.Apps) != 1 || body.Apps[0].Name != "Reader" {
		t.Errorf("apps = %+v", body)
	}
}

func TestReadOnlyAnnotation(t *testing.T) {
	ann := readOnlyAnnotation()
	if ann.ReadOnlyHint == nil || !*ann.ReadOnlyHint {
		t.Error("ReadOnlyHint should be true")
	}
}
