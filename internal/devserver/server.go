// Package devserver is an in-memory implementation of the voting API for local
// development and tests. It serves the same routes, status codes and error
// bodies as the production backend.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Config configures the dev server.
type Config struct {
	Address     string
	Secret      []byte
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	PageSize    int
	TopSize     int
	TopCacheTTL time.Duration // 0 disables leaderboard caching
	RateLimit   float64       // requests per second per client IP; 0 disables
	RateBurst   int
	Logger      *slog.Logger
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = "127.0.0.1:8000"
	}
	if c.AccessTTL == 0 {
		c.AccessTTL = 60 * time.Minute
	}
	if c.RefreshTTL == 0 {
		c.RefreshTTL = 7 * 24 * time.Hour
	}
	if c.PageSize == 0 {
		c.PageSize = 10
	}
	if c.TopSize == 0 {
		c.TopSize = 5
	}
	if c.RateBurst == 0 {
		c.RateBurst = 20
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server is the dev HTTP server.
type Server struct {
	config  *Config
	store   *Store
	tokens  *TokenService
	top     *topCache
	logger  *slog.Logger
	handler http.Handler
	server  *http.Server
	addr    string
}

// New creates a dev server over store.
func New(cfg *Config, store *Store) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("JWT secret is required")
	}
	cfg.SetDefaults()

	s := &Server{
		config: cfg,
		store:  store,
		tokens: NewTokenService(cfg.Secret, cfg.AccessTTL, cfg.RefreshTTL),
		top:    &topCache{ttl: cfg.TopCacheTTL, now: time.Now},
		logger: cfg.Logger,
		addr:   cfg.Address,
	}
	s.handler = s.setupRouter()
	s.server = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(requestLogger(s.logger))
	r.Use(recoverer(s.logger))
	if s.config.RateLimit > 0 {
		r.Use(rateLimitByIP(newIPLimiter(rate.Limit(s.config.RateLimit), s.config.RateBurst)))
	}
	r.Use(authenticate(s.tokens, s.store, s.logger))

	r.Post("/api/auth/jwt/create/", s.login)
	r.Get("/api/projects/", s.listProjects)
	r.Get("/api/projects/top/", s.topProjects)
	r.With(requireUser).Post("/api/projects/{id}/vote/", s.vote)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, fmt.Sprintf("Method %q not allowed.", r.Method))
	})
	return r
}

// Handler returns the HTTP handler, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Tokens returns the token service.
func (s *Server) Tokens() *TokenService {
	return s.tokens
}

// Run listens on the configured address and serves until ctx is canceled.
// ready, if non-nil, is called with the bound address once listening.
func (s *Server) Run(ctx context.Context, ready func(addr string)) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.addr = ln.Addr().String()
	s.logger.Info("dev server listening", "addr", s.addr)
	if ready != nil {
		ready(s.addr)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down dev server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Addr returns the bound address once Run has started listening.
func (s *Server) Addr() string {
	return s.addr
}
