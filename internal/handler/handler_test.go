package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maktabahq/maktaba/internal/credstore"
	"github.com/maktabahq/maktaba/internal/model"
	"github.com/maktabahq/maktaba/internal/provider"
	"github.com/maktabahq/maktaba/internal/server/middleware"
	"github.com/maktabahq/maktaba/internal/service"
	"github.com/maktabahq/maktaba/internal/store"
	"github.com/maktabahq/maktaba/internal/validate"
)

// testEnv wires the full handler stack against an in-memory store, the
// embedded credential store, and a stub upstream provider.
type testEnv struct {
	router *chi.Mux
	store  *store.Store
	creds  *credstore.Local
}

func newTestEnv(t *testing.T) *testEnv {
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
		json.NewEncoder(w).Encode(map[string]any{"title": "Al-Muwatta", "author": "Malik ibn Anas"})
	}))
	t.Cleanup(upstream.Close)

	registry := provider.NewRegistry()
	registry.Register(provider.NewShamela(upstream.URL))
	registry.Register(provider.NewTurath(upstream.URL))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authSvc := service.NewAuthService(st, "test-secret", time.Hour)
	keySvc := service.NewKeyService(st, creds, logger)
	gatewaySvc := service.NewGatewayService(st, creds, registry, logger)

	sessions := NewSessionHandler(authSvc)
	apps := NewAppHandler(st, keySvc)
	keys := NewKeyHandler(keySvc)
	gateway := NewGatewayHandler(gatewaySvc)

	r := chi.NewRouter()
	r.Get("/v1/books/{bookID}", gateway.GetBook)
	r.Get("/v1/libraries", gateway.ListLibraries)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/signup", sessions.Signup)
		r.Post("/auth/session", sessions.Login)
		r.Delete("/auth/session", sessions.Logout)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(authSvc))
			r.Get("/apps", apps.List)
			r.Post("/apps", apps.Create)
			r.Get("/apps/{appID}", apps.Get)
			r.Delete("/apps/{appID}", apps.Delete)
			r.Get("/api-keys", keys.List)
			r.Post("/api-keys", keys.Create)
			r.Get("/api-keys/{keyID}", keys.Get)
			r.Delete("/api-keys/{keyID}", keys.Delete)
		})
	})

	return &testEnv{router: r, store: st, creds: creds}
}

// do sends a JSON request through the router. token, when non-empty, is sent
// as a Bearer Authorization header.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
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
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// signupAndLogin registers an account and returns its session token.
func (e *testEnv) signupAndLogin(t *testing.T, email string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email": email, "password": "secret123", "name": "Dev",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	rec = e.do(t, http.MethodPost, "/api/v1/auth/session", "", map[string]string{
		"email": email, "password": "secret123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Token string `json:"session_token"`
	}
	decodeBody(t, rec, &body)
	if body.Token == "" {
		t.Fatal("login returned no session token")
	}
	return body.Token
}

// createApp registers an app and returns its ID.
func (e *testEnv) createApp(t *testing.T, token string, libraries ...string) string {
	t.Helper()
	if len(libraries) == 0 {
		libraries = []string{"shamela.ws"}
	}
	rec := e.do(t, http.MethodPost, "/api/v1/apps", token, map[string]any{
		"name": "Test App", "libraries": libraries,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create app: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		App model.App `json:"app"`
	}
	decodeBody(t, rec, &body)
	return body.App.ID
}

// issueKey creates an API key and returns (metadata ID, raw secret).
func (e *testEnv) issueKey(t *testing.T, token, appID string) (string, string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/api-keys", token, map[string]string{
		"app_id": appID, "name": "CI key",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create key: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		APIKey model.APIKey `json:"api_key"`
		Key    string       `json:"key"`
	}
	decodeBody(t, rec, &body)
	return body.APIKey.ID, body.Key
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"error"`
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int, wantReason string) errorEnvelope {
	t.Helper()
	if rec.Code != wantStatus {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, wantStatus, rec.Body.String())
	}
	var env errorEnvelope
	decodeBody(t, rec, &env)
	if env.Error.Code != wantStatus || env.Error.Reason != wantReason {
		t.Errorf("error = %+v, want code %d reason %q", env.Error, wantStatus, wantReason)
	}
	return env
}

func TestWriteServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantReason string
	}{
		{"validation", &validate.Error{Message: "App name is required"}, 400, model.ReasonValidation},
		{"missing credential", service.ErrMissingCredential, 401, model.ReasonUnauthenticated},
		{"invalid credential", service.ErrInvalidCredential, 401, model.ReasonInvalidCredential},
		{"bad login", service.ErrInvalidCredentials, 401, model.ReasonUnauthenticated},
		{"forbidden", service.Forbiddenf("No access to %s", "turath.io"), 403, model.ReasonForbidden},
		{"not found", service.ErrNotFound, 404, model.ReasonNotFound},
		{"store not found", store.ErrNotFound, 404, model.ReasonNotFound},
		{"email taken", service.ErrEmailTaken, 409, model.ReasonValidation},
		{"upstream", service.ErrUpstream, 502, model.ReasonUpstream},
		{"wrapped upstream", errors.New("x: " + service.ErrUpstream.Error()), 500, model.ReasonInternal},
		{"unknown", errors.New("disk on fire"), 500, model.ReasonInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tt.err)

			var env errorEnvelope
			decodeBody(t, rec, &env)
			if rec.Code != tt.wantStatus || env.Error.Reason != tt.wantReason {
				t.Errorf("got status %d reason %q, want %d %q",
					rec.Code, env.Error.Reason, tt.wantStatus, tt.wantReason)
			}
		})
	}
}

func TestInternalErrorHidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, errors.New("pq: connection refused on 10.0.0.5"))

	var env errorEnvelope
	decodeBody(t, rec, &env)
	if env.Error.Message != "Internal server error" {
		t.Errorf("message = %q, internal detail leaked", env.Error.Message)
	}
}

func TestSignupValidationMessages(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email": "not-an-email", "password": "secret123",
	})
	e := assertError(t, rec, 400, model.ReasonValidation)
	if e.Error.Message != "Invalid email address" {
		t.Errorf("message = %q", e.Error.Message)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email": "dev@example.com", "password": "short",
	})
	e = assertError(t, rec, 400, model.ReasonValidation)
	if e.Error.Message != "Password must be at least 6 characters" {
		t.Errorf("message = %q", e.Error.Message)
	}
}

func TestSignupDuplicateEmailConflict(t *testing.T) {
	env := newTestEnv(t)
	env.signupAndLogin(t, "dup@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email": "dup@example.com", "password": "secret123",
	})
	assertError(t, rec, 409, model.ReasonValidation)
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.signupAndLogin(t, "dev@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/auth/session", "", map[string]string{
		"email": "dev@example.com", "password": "wrong-password",
	})
	assertError(t, rec, 401, model.ReasonUnauthenticated)
}

func TestAppsRequireSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/apps", "", nil)
	assertError(t, rec, 401, model.ReasonUnauthenticated)
}

func TestAppLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "dev@example.com")

	appID := env.createApp(t, token, "shamela.ws", "turath.io")

	rec := env.do(t, http.MethodGet, "/api/v1/apps", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list apps: status = %d", rec.Code)
	}
	var list model.ListResponse[model.App]
	decodeBody(t, rec, &list)
	if list.Count != 1 || len(list.Resource) != 1 {
		t.Fatalf("list = %+v, want 1 app", list)
	}
	if len(list.Resource[0].Libraries) != 2 {
		t.Errorf("libraries = %v", list.Resource[0].Libraries)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/apps/"+appID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get app: status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/apps/"+appID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete app: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/apps/"+appID, token, nil)
	assertError(t, rec, 404, model.ReasonNotFound)
}

func TestCreateAppValidationMessages(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "dev@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/apps", token, map[string]any{
		"name": "", "libraries": []string{"shamela.ws"},
	})
	e := assertError(t, rec, 400, model.ReasonValidation)
	if e.Error.Message != "App name is required" {
		t.Errorf("message = %q", e.Error.Message)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/apps", token, map[string]any{
		"name": "App", "libraries": []string{},
	})
	e = assertError(t, rec, 400, model.ReasonValidation)
	if e.Error.Message != "At least one library must be selected" {
		t.Errorf("message = %q", e.Error.Message)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/apps", token, map[string]any{
		"name": "App", "libraries": []string{"example.com"},
	})
	e = assertError(t, rec, 400, model.ReasonValidation)
	if e.Error.Message != "Invalid library: example.com" {
		t.Errorf("message = %q", e.Error.Message)
	}
}

func TestAppsAreOwnerScoped(t *testing.T) {
	env := newTestEnv(t)
	tokenA := env.signupAndLogin(t, "a@example.com")
	tokenB := env.signupAndLogin(t, "b@example.com")

	appID := env.createApp(t, tokenA)

	rec := env.do(t, http.MethodGet, "/api/v1/apps/"+appID, tokenB, nil)
	assertError(t, rec, 404, model.ReasonNotFound)

	rec = env.do(t, http.MethodDelete, "/api/v1/apps/"+appID, tokenB, nil)
	assertError(t, rec, 404, model.ReasonNotFound)
}

func TestKeyLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "dev@example.com")
	appID := env.createApp(t, token)

	keyID, secret := env.issueKey(t, token, appID)
	if !strings.HasPrefix(secret, credstore.SecretPrefix) {
		t.Errorf("secret = %q, want %s prefix", secret, credstore.SecretPrefix)
	}

	// Listing never exposes the secret.
	rec := env.do(t, http.MethodGet, "/api/v1/api-keys", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list keys: status = %d", rec.Code)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte(secret)) {
		t.Error("raw secret present in key listing")
	}
	var list model.ListResponse[model.APIKey]
	decodeBody(t, rec, &list)
	if list.Count != 1 || list.Resource[0].ID != keyID {
		t.Fatalf("list = %+v", list)
	}
	if list.Resource[0].KeyPrefix != credstore.Prefix(secret) {
		t.Errorf("prefix = %q, want %q", list.Resource[0].KeyPrefix, credstore.Prefix(secret))
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/api-keys/"+keyID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete key: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// The credential itself must be dead, not just the metadata.
	v, err := env.creds.Verify(t.Context(), secret)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if v.Valid {
		t.Error("credential still valid after delete")
	}
}

func TestDeleteAppRevokesItsKeys(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "dev@example.com")
	appID := env.createApp(t, token)
	_, secret := env.issueKey(t, token, appID)

	rec := env.do(t, http.MethodDelete, "/api/v1/apps/"+appID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete app: status = %d", rec.Code)
	}

	v, err := env.creds.Verify(t.Context(), secret)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if v.Valid {
		t.Error("credential still valid after app deletion")
	}
}

func TestGetBook(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "dev@example.com")
	appID := env.createApp(t, token, "shamela.ws")
	_, secret := env.issueKey(t, token, appID)

	rec := env.do(t, http.MethodGet, "/v1/books/muwatta-1?provider=shamela.ws", secret, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Book model.Book `json:"book"`
	}
	decodeBody(t, rec, &body)
	if body.Book.Title != "Al-Muwatta" || body.Book.ID != "muwatta-1" {
		t.Errorf("book = %+v", body.Book)
	}
}

func TestGetBookAuthFailures(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "dev@example.com")
	appID := env.createApp(t, token, "shamela.ws")
	_, secret := env.issueKey(t, token, appID)

	// No key at all.
	rec := env.do(t, http.MethodGet, "/v1/books/b1?provider=shamela.ws", "", nil)
	assertError(t, rec, 401, model.ReasonUnauthenticated)

	// A key that was never issued.
	rec = env.do(t, http.MethodGet, "/v1/books/b1?provider=shamela.ws", "mk_bogus", nil)
	assertError(t, rec, 401, model.ReasonInvalidCredential)

	// Valid key, provider outside the app's entitlements.
	rec = env.do(t, http.MethodGet, "/v1/books/b1?provider=turath.io", secret, nil)
	e := assertError(t, rec, 403, model.ReasonForbidden)
	if e.Error.Message != "No access to turath.io" {
		t.Errorf("message = %q", e.Error.Message)
	}

	// Missing provider parameter.
	rec = env.do(t, http.MethodGet, "/v1/books/b1", secret, nil)
	e = assertError(t, rec, 400, model.ReasonValidation)
	if e.Error.Message != "Missing provider parameter" {
		t.Errorf("message = %q", e.Error.Message)
	}
}

func TestListLibraries(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/libraries", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list struct {
		Resource []struct {
			ID    string `json:"id"`
			Label string `json:"label"`
			URL   string `json:"url"`
		} `json:"resource"`
		Count int `json:"count"`
	}
	decodeBody(t, rec, &list)
	if list.Count != 2 {
		t.Fatalf("count = %d, want the 2 registered providers", list.Count)
	}
	if list.Resource[0].ID != "shamela.ws" || list.Resource[0].Label != "Shamela" {
		t.Errorf("first library = %+v", list.Resource[0])
	}
}
