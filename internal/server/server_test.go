package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/maktabahq/maktaba/internal/credstore"
	"github.com/maktabahq/maktaba/internal/model"
	"github.com/maktabahq/maktaba/internal/provider"
	"github.com/maktabahq/maktaba/internal/service"
	"github.com/maktabahq/maktaba/internal/store"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()

	st, err := store.Open(store.Config{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	creds, err := credstore.NewLocal(st.DB())
	if err != nil {
		t.Fatalf("new local credstore: %v", err)
	}

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"title": "Riyad as-Salihin"})
	}))
	t.Cleanup(upstream.Close)

	registry := provider.NewRegistry()
	registry.Register(provider.NewShamela(upstream.URL))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authSvc := service.NewAuthService(st, "test-secret", time.Hour)
	keySvc := service.NewKeyService(st, creds, logger)
	gatewaySvc := service.NewGatewayService(st, creds, registry, logger)

	return New(cfg, st, authSvc, keySvc, gatewaySvc, logger)
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, DefaultConfig())

	rec := doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != `{"status":"ok"}` {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	srv := newTestServer(t, DefaultConfig())

	rec := doJSON(t, srv, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Checks["store"] != "ok" {
		t.Errorf("body = %+v", body)
	}
}

func TestOpenAPIEndpoint(t *testing.T) {
	srv := newTestServer(t, DefaultConfig())

	rec := doJSON(t, srv, http.MethodGet, "/openapi.json", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc["openapi"] != "3.1.0" {
		t.Errorf("openapi = %v", doc["openapi"])
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, DefaultConfig())

	rec := doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

// TestEndToEndFlow walks the whole lifecycle through the real router:
// signup, login, register an app, issue a key, fetch a book with it.
func TestEndToEndFlow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LoginRateLimit = 0 // not under test here
	srv := newTestServer(t, cfg)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email": "dev@example.com", "password": "secret123", "name": "Dev",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/auth/session", "", map[string]string{
		"email": "dev@example.com", "password": "secret123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var session struct {
		Token string `json:"session_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/apps", session.Token, map[string]any{
		"name": "Hadith Reader", "libraries": []string{"shamela.ws"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create app: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var appResp struct {
		App model.App `json:"app"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &appResp); err != nil {
		t.Fatalf("decode app: %v", err)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/api-keys", session.Token, map[string]string{
		"app_id": appResp.App.ID, "name": "reader key",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create key: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var keyResp struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &keyResp); err != nil {
		t.Fatalf("decode key: %v", err)
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/books/riyad-1?provider=shamela.ws", keyResp.Key, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get book: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var bookResp struct {
		Book model.Book `json:"book"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &bookResp); err != nil {
		t.Fatalf("decode book: %v", err)
	}
	if bookResp.Book.Title != "Riyad as-Salihin" {
		t.Errorf("title = %q", bookResp.Book.Title)
	}

	// The session token is not an API key.
	rec = doJSON(t, srv, http.MethodGet, "/v1/books/riyad-1?provider=shamela.ws", session.Token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("session token on gateway: status = %d, want 401", rec.Code)
	}
}

func TestLoginRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LoginRateLimit = 2
	srv := newTestServer(t, cfg)

	body := map[string]string{"email": "dev@example.com", "password": "wrong"}
	for i := 0; i < 2; i++ {
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/auth/session", "", body)
		if rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d rate limited too early", i+1)
		}
	}
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/auth/session", "", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 after limit", rec.Code)
	}
}
