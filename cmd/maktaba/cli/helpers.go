package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/maktabahq/maktaba/internal/config"
	"github.com/maktabahq/maktaba/internal/credstore"
	"github.com/maktabahq/maktaba/internal/model"
	"github.com/maktabahq/maktaba/internal/provider"
	"github.com/maktabahq/maktaba/internal/store"
)

// resolveDataDir returns the data directory from --data-dir, the config
// file, MAKTABA_DATA_DIR, or ~/.maktaba as fallback.
func resolveDataDir(cfg config.Config) string {
	if dataDir != "" {
		return dataDir
	}
	if cfg.Store.DataDir != "" {
		return cfg.Store.DataDir
	}
	if envDir := os.Getenv("MAKTABA_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".maktaba")
}

// loadConfig parses the YAML config (or defaults) and layers environment
// overrides on top of the secret-bearing fields.
func loadConfig() (config.Config, error) {
	path := cfgFile
	if path == "" {
		path = "maktaba.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if v := viper.GetString("auth.jwt_secret"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := viper.GetString("credstore.unkey.root_key"); v != "" {
		cfg.Credstore.Unkey.RootKey = v
	}
	if v := viper.GetString("credstore.unkey.api_id"); v != "" {
		cfg.Credstore.Unkey.APIID = v
	}
	return cfg, nil
}

// openStore opens the metadata store described by the config.
func openStore(cfg config.Config) (*store.Store, error) {
	return store.Open(store.Config{
		Driver:  cfg.Store.Driver,
		DSN:     cfg.Store.DSN,
		DataDir: resolveDataDir(cfg),
	})
}

// newCredstore builds the credential store: the embedded one sharing the
// metadata store's database, or a hosted Unkey workspace.
func newCredstore(cfg config.Config, st *store.Store) (credstore.Store, error) {
	switch cfg.Credstore.Mode {
	case "", "local":
		return credstore.NewLocal(st.DB())
	case "unkey":
		if cfg.Credstore.Unkey.RootKey == "" || cfg.Credstore.Unkey.APIID == "" {
			return nil, fmt.Errorf("credstore.unkey requires root_key and api_id")
		}
		return credstore.NewRemote(cfg.Credstore.Unkey.BaseURL, cfg.Credstore.Unkey.RootKey, cfg.Credstore.Unkey.APIID), nil
	default:
		return nil, fmt.Errorf("unknown credstore mode %q; use 'local' or 'unkey'", cfg.Credstore.Mode)
	}
}

// newRegistry registers all three library providers, honoring base URL
// overrides from the config.
func newRegistry(cfg config.Config) *provider.Registry {
	base := func(lib model.Library) string {
		return cfg.Providers.BaseURLs[string(lib)]
	}
	registry := provider.NewRegistry()
	registry.Register(provider.NewShamela(base(model.LibraryShamela)))
	registry.Register(provider.NewKetabOnline(base(model.LibraryKetabOnline)))
	registry.Register(provider.NewTurath(base(model.LibraryTurath)))
	return registry
}

// newLogger builds the process logger from the logging config.
func newLogger(cfg config.Config, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Logging.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
