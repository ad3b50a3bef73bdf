package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/maktabahq/maktaba/internal/handler"
	"github.com/maktabahq/maktaba/internal/openapi"
	"github.com/maktabahq/maktaba/internal/server/middleware"
	"github.com/maktabahq/maktaba/internal/service"
	"github.com/maktabahq/maktaba/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	LoginRateLimit  int // requests per minute per IP on the session endpoints
	KeyRateLimit    int // requests per minute per API key on the gateway
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		LoginRateLimit:  10,
		KeyRateLimit:    300,
	}
}

// Server is the top-level HTTP server for Maktaba. It owns the Chi router
// and wires the gateway and management surfaces onto their services.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	authSvc    *service.AuthService
	keySvc     *service.KeyService
	gatewaySvc *service.GatewayService
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, st *store.Store, authSvc *service.AuthService, keySvc *service.KeyService, gatewaySvc *service.GatewayService, logger *slog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		store:      st,
		authSvc:    authSvc,
		keySvc:     keySvc,
		gatewaySvc: gatewaySvc,
		logger:     logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	// --- OpenAPI spec (no auth required) ---
	r.Get("/openapi.json", s.handleOpenAPI)

	// --- Gateway: API key holders ---
	gateway := handler.NewGatewayHandler(s.gatewaySvc)
	r.Group(func(r chi.Router) {
		if s.cfg.KeyRateLimit > 0 {
			r.Use(middleware.RateLimitByCredential(s.cfg.KeyRateLimit))
		}
		r.Get("/v1/books/{bookID}", gateway.GetBook)
	})
	r.Get("/v1/libraries", gateway.ListLibraries)

	// --- Management API: dashboard sessions ---
	r.Route("/api/v1", func(r chi.Router) {
		sessions := handler.NewSessionHandler(s.authSvc)

		// Credential-bearing endpoints get a per-IP rate limit; everything
		// else is protected by the session itself.
		r.Group(func(r chi.Router) {
			if s.cfg.LoginRateLimit > 0 {
				r.Use(middleware.RateLimit(s.cfg.LoginRateLimit))
			}
			r.Post("/auth/signup", sessions.Signup)
			r.Post("/auth/session", sessions.Login)
		})
		r.Delete("/auth/session", sessions.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.authSvc))

			apps := handler.NewAppHandler(s.store, s.keySvc)
			r.Get("/apps", apps.List)
			r.Post("/apps", apps.Create)
			r.Get("/apps/{appID}", apps.Get)
			r.Delete("/apps/{appID}", apps.Delete)

			keys := handler.NewKeyHandler(s.keySvc)
			r.Get("/api-keys", keys.List)
			r.Post("/api-keys", keys.Create)
			r.Get("/api-keys/{keyID}", keys.Get)
			r.Delete("/api-keys/{keyID}", keys.Delete)
		})
	})

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the metadata store is
// reachable, 503 otherwise. Provider reachability is deliberately not
// checked; an upstream outage degrades one library, not the whole gateway.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if err := s.store.Ping(r.Context()); err != nil {
		checks["store"] = "error: " + err.Error()
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// handleOpenAPI serves the generated OpenAPI 3.1 document.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	doc, err := openapi.Generate(s.gatewaySvc.Libraries())
	if err != nil {
		s.logger.Error("openapi generation failed", "error", err)
		http.Error(w, `{"error":{"code":500,"reason":"internal","message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	data, err := doc.MarshalJSON()
	if err != nil {
		s.logger.Error("openapi marshal failed", "error", err)
		http.Error(w, `{"error":{"code":500,"reason":"internal","message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the store.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Warn("store close", "error", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
