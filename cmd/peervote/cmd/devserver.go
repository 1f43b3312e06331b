package cmd

import (
	"crypto/rand"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/peervote/internal/devserver"
)

var (
	devAddr      string
	devSecret    string
	devSeed      bool
	devRateLimit float64
	devTopCache  time.Duration
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run an in-memory voting API for local use",
	Long: `Run a local, in-memory implementation of the voting API.

It serves the same endpoints as the real backend and, with --seed, starts
with demo accounts (password "` + devserver.DemoPassword + `") and projects.
State is lost on exit.

Examples:
  peervote devserver
  peervote devserver --addr 127.0.0.1:9000 --rate-limit 10
  PEERVOTE_API_URL=http://127.0.0.1:8000 peervote login --email alice@example.com`,
	RunE: runDevserver,
}

func init() {
	rootCmd.AddCommand(devserverCmd)

	devserverCmd.Flags().StringVar(&devAddr, "addr", "127.0.0.1:8000", "listen address")
	devserverCmd.Flags().StringVar(&devSecret, "secret", "", "JWT signing secret (random if empty)")
	devserverCmd.Flags().BoolVar(&devSeed, "seed", true, "load demo accounts and projects")
	devserverCmd.Flags().Float64Var(&devRateLimit, "rate-limit", 0, "requests per second per client IP (0 disables)")
	devserverCmd.Flags().DurationVar(&devTopCache, "top-cache", 0, "leaderboard cache lifetime (0 disables)")
}

func runDevserver(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd.ErrOrStderr(), true)

	secret := []byte(devSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate secret: %w", err)
		}
	}

	store := devserver.NewStore()
	if devSeed {
		emails, err := devserver.Seed(store)
		if err != nil {
			return err
		}
		logger.Info("seeded demo data", "accounts", emails, "password", devserver.DemoPassword)
	}

	srv, err := devserver.New(&devserver.Config{
		Address:     devAddr,
		Secret:      secret,
		RateLimit:   devRateLimit,
		TopCacheTTL: devTopCache,
		Logger:      logger,
	}, store)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx, func(addr string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Voting API listening on http://%s\n", addr)
	})
}
