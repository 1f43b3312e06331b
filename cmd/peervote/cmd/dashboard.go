package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/peervote/internal/dashboard"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Summarize your voting progress",
	Long: `Show who you are signed in as, how many projects you have voted on,
how many are left, and which project currently leads.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newAppContext(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer app.Close()

		sum, err := app.Dashboard().Summary(cmd.Context())
		if errors.Is(err, dashboard.ErrNotSignedIn) {
			return fmt.Errorf("%w; run `peervote login` first", err)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if GetOutput() == "json" {
			return printJSON(out, sum)
		}

		if sum.UserID != "" {
			fmt.Fprintf(out, "Signed in as user %s\n", sum.UserID)
		}
		if sum.ExpiresAt != nil {
			fmt.Fprintf(out, "Session expires %s\n", sum.ExpiresAt.Local().Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(out, "\nProjects:  %d\n", sum.Total)
		fmt.Fprintf(out, "Voted:     %d\n", sum.Voted)
		fmt.Fprintf(out, "Pending:   %d\n", sum.Pending)
		switch {
		case sum.Leader != nil:
			fmt.Fprintf(out, "Leading:   %s (%d votes)\n", sum.Leader.Name, sum.Leader.VoteCount)
		case sum.LeaderboardErr != nil:
			fmt.Fprintln(out, "Leading:   unavailable")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
