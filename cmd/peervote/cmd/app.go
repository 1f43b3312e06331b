package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"golang.org/x/time/rate"

	"github.com/good-yellow-bee/peervote/internal/client"
	"github.com/good-yellow-bee/peervote/internal/dashboard"
	"github.com/good-yellow-bee/peervote/internal/leaderboard"
	"github.com/good-yellow-bee/peervote/internal/session"
	"github.com/good-yellow-bee/peervote/internal/storage"
	"github.com/good-yellow-bee/peervote/internal/voting"
	"github.com/good-yellow-bee/peervote/pkg/config"
)

// appContext holds the shared dependencies of the API commands.
type appContext struct {
	Config  *config.Config
	Logger  *slog.Logger
	Storage storage.Storage
	Session *session.Persistent
	Client  *client.Client
}

// newAppContext loads configuration, opens local storage and restores the
// stored credential. Callers must Close it.
func newAppContext(ctx context.Context, stderr io.Writer) (*appContext, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(stderr, cfg.Verbose)

	store := storage.NewSQLiteStorage(cfg.Storage.Path)
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("open local storage: %w", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate local storage: %w", err)
	}

	sess, err := session.NewPersistent(ctx, store.KV(), logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := client.New(client.Config{
		BaseURL:    cfg.API.URL,
		AuthScheme: cfg.API.AuthScheme,
		Timeout:    cfg.API.Timeout,
		UserAgent:  config.UserAgent(),
		Logger:     logger,
	}, sess)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create API client: %w", err)
	}

	logger.Debug("app ready", "api", cfg.API.URL, "storage", cfg.Storage.Path)
	return &appContext{
		Config:  cfg,
		Logger:  logger,
		Storage: store,
		Session: sess,
		Client:  c,
	}, nil
}

// Close releases local storage.
func (a *appContext) Close() error {
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}

// Controller creates a voting controller over a fresh store.
func (a *appContext) Controller() *voting.Controller {
	return voting.NewController(a.Client, voting.NewStore(),
		voting.WithLogger(a.Logger),
		voting.WithRateLimit(limitFor(a.Config.Voting.RatePerSecond), a.Config.Voting.Burst),
	)
}

// Leaderboard creates a leaderboard reader.
func (a *appContext) Leaderboard() *leaderboard.Reader {
	return leaderboard.NewReader(a.Client, a.Logger)
}

// Dashboard creates a dashboard over a fresh controller.
func (a *appContext) Dashboard() *dashboard.Dashboard {
	return dashboard.New(a.Session, a.Controller(), a.Leaderboard(), a.Logger)
}

// limitFor maps a configured rate of 0 to "no limit".
func limitFor(perSecond float64) rate.Limit {
	if perSecond == 0 {
		return rate.Inf
	}
	return rate.Limit(perSecond)
}

// loadConfig resolves configuration: --config, else the default file if it
// exists, else defaults. Environment overrides the file; flags override both.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error

	switch {
	case cfgFile != "":
		cfg, err = config.LoadConfig(cfgFile)
	default:
		cfg, err = config.LoadConfig(defaultConfigPath())
		if errors.Is(err, fs.ErrNotExist) {
			cfg, err = config.DefaultConfig(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	if apiURL != "" {
		cfg.API.URL = apiURL
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("--api-url: %w", err)
		}
	}
	cfg.Verbose = verbose
	return cfg, nil
}

// defaultConfigPath honours $PEERVOTE_CONFIG before the per-user location.
func defaultConfigPath() string {
	if p := os.Getenv(config.EnvConfig); p != "" {
		return p
	}
	return config.DefaultPath()
}

// newLogger builds the CLI logger: warnings by default, debug with --verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
