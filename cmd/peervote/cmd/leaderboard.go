package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/peervote/internal/leaderboard"
	"github.com/good-yellow-bee/peervote/internal/metrics"
)

var (
	leaderboardWatch       time.Duration
	leaderboardMetricsAddr string
)

var leaderboardCmd = &cobra.Command{
	Use:     "leaderboard",
	Aliases: []string{"top"},
	Short:   "Show the top projects",
	Long: `Show the top projects ranked by the server.

With --watch the board is refreshed on an interval until interrupted.
A login or logout from another terminal is picked up without restarting.

Examples:
  peervote leaderboard
  peervote leaderboard --watch 10s
  peervote leaderboard --watch 10s --metrics-addr 127.0.0.1:9102`,
	RunE: runLeaderboard,
}

func init() {
	rootCmd.AddCommand(leaderboardCmd)

	leaderboardCmd.Flags().DurationVarP(&leaderboardWatch, "watch", "w", 0, "refresh interval (0 shows the board once)")
	leaderboardCmd.Flags().StringVar(&leaderboardMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while watching")
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	app, err := newAppContext(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()

	reader := app.Leaderboard()
	if leaderboardWatch <= 0 {
		return showLeaderboard(cmd.Context(), cmd, reader)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if leaderboardMetricsAddr != "" {
		ms := metrics.NewServer(leaderboardMetricsAddr)
		if err := ms.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			ms.Shutdown(shutdownCtx)
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Session.Watch(gctx, app.Storage.Path())
	})
	g.Go(func() error {
		ticker := time.NewTicker(leaderboardWatch)
		defer ticker.Stop()
		for {
			// A failed refresh is logged by the reader and shown as an empty board.
			showLeaderboard(gctx, cmd, reader)
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})
	return g.Wait()
}

func showLeaderboard(ctx context.Context, cmd *cobra.Command, reader *leaderboard.Reader) error {
	projects, err := reader.Fetch(ctx)
	entries := leaderboard.Rank(projects)

	out := cmd.OutOrStdout()
	if GetOutput() == "json" {
		if perr := printJSON(out, entries); perr != nil {
			return perr
		}
		return err
	}

	if leaderboardWatch > 0 {
		fmt.Fprintf(out, "\nLeaderboard at %s\n", time.Now().Format("15:04:05"))
	}
	printLeaderboard(out, entries)
	return err
}
