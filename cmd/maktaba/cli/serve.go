package cli

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/maktabahq/maktaba/internal/config"
	"github.com/maktabahq/maktaba/internal/model"
	"github.com/maktabahq/maktaba/internal/server"
	"github.com/maktabahq/maktaba/internal/service"
	"github.com/maktabahq/maktaba/internal/store"
	"github.com/maktabahq/maktaba/internal/telemetry"
)

const banner = `
 __  __       _    _        _
|  \/  | __ _| | _| |_ __ _| |__   __ _
| |\/| |/ _` + "`" + ` | |/ / __/ _` + "`" + ` | '_ \ / _` + "`" + ` |
| |  | | (_| |   <| || (_| | |_) | (_| |
|_|  |_|\__,_|_|\_\\__\__,_|_.__/ \__,_|
`

func newServeCmd() *cobra.Command {
	var (
		port    int
		host    string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Maktaba gateway",
		Long:  "Start the HTTP server that exposes the book gateway and the app/key management API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, verbose)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP listen port (overrides config)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP listen host (overrides config)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	return cmd
}

func runServe(host string, port int, verbose bool) error {
	fmt.Print(banner)
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	logger := newLogger(cfg, verbose)
	ctx := context.Background()

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Info("store initialized", "driver", st.Driver())

	creds, err := newCredstore(cfg, st)
	if err != nil {
		return err
	}
	logger.Info("credential store initialized", "mode", credstoreMode(cfg))

	registry := newRegistry(cfg)

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "maktaba-dev-secret-change-me"
		logger.Warn("auth.jwt_secret is not set; using an insecure development secret")
	}
	authSvc := service.NewAuthService(st, jwtSecret, cfg.Auth.JWTExpiryDuration())
	keySvc := service.NewKeyService(st, creds, logger)
	gatewaySvc := service.NewGatewayService(st, creds, registry, logger)

	hasUser, err := st.HasAnyUser(ctx)
	if err != nil {
		logger.Warn("failed to check for users", "error", err)
	}
	if !hasUser {
		logger.Warn("no developer account found - run: maktaba user create")
	}

	var tracker *telemetry.Tracker
	if cfg.Telemetry.Enabled {
		tracker = telemetry.New(ctx, st, func() telemetry.Properties {
			return gatherTelemetry(st, cfg, registry.Libraries())
		})
		if tracker != nil {
			telemetry.PrintNotice()
			tracker.Start()
			defer tracker.Shutdown()
		}
	}

	srvCfg := server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeoutDuration(),
		CORSOrigins:     cfg.Server.CORSOrigins,
		LoginRateLimit:  cfg.Server.LoginRateLimit,
		KeyRateLimit:    cfg.Server.KeyRateLimit,
	}
	srv := server.New(srvCfg, st, authSvc, keySvc, gatewaySvc, logger)

	fmt.Printf("→ Maktaba %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Gateway:    http://%s:%d/v1/books/{bookId}?provider=...\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()

	return srv.ListenAndServe()
}

func credstoreMode(cfg config.Config) string {
	if cfg.Credstore.Mode == "" {
		return "local"
	}
	return cfg.Credstore.Mode
}

// gatherTelemetry snapshots anonymous instance stats for the heartbeat event.
func gatherTelemetry(st *store.Store, cfg config.Config, libraries []model.Library) telemetry.Properties {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	users, _ := st.CountUsers(ctx)
	apps, _ := st.CountApps(ctx)
	keys, _ := st.CountAPIKeys(ctx)

	providers := make([]string, len(libraries))
	for i, lib := range libraries {
		providers[i] = string(lib)
	}

	return telemetry.Properties{
		Version:       appVersion,
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		StoreDriver:   st.Driver(),
		CredstoreMode: credstoreMode(cfg),
		Providers:     providers,
		Users:         users,
		Apps:          apps,
		APIKeys:       keys,
	}
}
