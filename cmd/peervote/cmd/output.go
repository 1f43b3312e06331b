package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/good-yellow-bee/peervote/internal/leaderboard"
	"github.com/good-yellow-bee/peervote/internal/models"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printProjects(w io.Writer, projects []models.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(w, "No projects found.")
		return
	}

	fmt.Fprintf(w, "%-6s  %-30s  %-10s  %-24s  %6s  %s\n", "ID", "NAME", "CATEGORY", "CREATOR", "VOTES", "VOTED")
	fmt.Fprintln(w, strings.Repeat("-", 92))
	for _, p := range projects {
		voted := ""
		if p.HasVoted {
			voted = "yes"
		}
		fmt.Fprintf(w, "%-6s  %-30s  %-10s  %-24s  %6d  %s\n",
			p.ID,
			clip(p.Name, 30),
			p.Category,
			clip(p.Creator, 24),
			p.VoteCount,
			voted,
		)
	}
	fmt.Fprintf(w, "\nTotal: %d project(s)\n", len(projects))
}

func printLeaderboard(w io.Writer, entries []leaderboard.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No projects yet.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-30s  %6s\n", "RANK", "NAME", "VOTES")
	fmt.Fprintln(w, strings.Repeat("-", 44))
	for _, e := range entries {
		fmt.Fprintf(w, "#%-3d  %-30s  %6d\n", e.Rank, clip(e.Project.Name, 30), e.Project.VoteCount)
	}
}

// clip shortens s to n runes, marking the cut with "...".
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
