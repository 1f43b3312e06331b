package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/peervote/internal/client"
	"github.com/good-yellow-bee/peervote/internal/models"
	"github.com/good-yellow-bee/peervote/internal/voting"
)

var voteCmd = &cobra.Command{
	Use:   "vote <project-id>...",
	Short: "Vote on one or more projects",
	Long: `Cast one vote on each given project.

Projects you have already voted on are skipped without contacting the
server. Several ids are voted on concurrently; a failure on one does not
stop the others.

Examples:
  peervote vote 2
  peervote vote 2 5 7`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVote,
}

func init() {
	rootCmd.AddCommand(voteCmd)
}

type voteResult struct {
	ID      models.ProjectID `json:"id"`
	Name    string           `json:"name,omitempty"`
	Outcome string           `json:"outcome"`
	Votes   int              `json:"vote_count,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func runVote(cmd *cobra.Command, args []string) error {
	app, err := newAppContext(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()

	if !app.Client.Authenticated() {
		return fmt.Errorf("not signed in; run `peervote login` first")
	}

	ctrl := app.Controller()
	if _, err := ctrl.LoadProjects(cmd.Context(), ""); err != nil {
		return err
	}

	ids := make([]models.ProjectID, len(args))
	for i, a := range args {
		ids[i] = models.ProjectID(a)
	}
	results := ctrl.CastVotes(cmd.Context(), ids)

	out := make([]voteResult, len(results))
	failed := 0
	for i, r := range results {
		out[i] = voteResult{ID: r.ID, Outcome: r.Outcome.String()}
		if p, ok := ctrl.Store().Project(r.ID); ok {
			out[i].Name = p.Name
			out[i].Votes = p.VoteCount
		}
		if r.Err != nil {
			failed++
			out[i].Error = client.Message(r.Err)
			if errors.Is(r.Err, voting.ErrUnknownProject) {
				out[i].Outcome = "unknown project"
				out[i].Error = ""
			}
		}
	}

	if GetOutput() == "json" {
		if err := printJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, r := range out {
			switch {
			case r.Error != "":
				fmt.Fprintf(w, "%-6s  %s: %s\n", r.ID, r.Outcome, r.Error)
			case r.Name != "":
				fmt.Fprintf(w, "%-6s  %s (%s, %d votes)\n", r.ID, r.Outcome, r.Name, r.Votes)
			default:
				fmt.Fprintf(w, "%-6s  %s\n", r.ID, r.Outcome)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d vote(s) failed", failed, len(results))
	}
	return nil
}
