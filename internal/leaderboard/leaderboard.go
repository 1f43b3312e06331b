// Package leaderboard reads the server-ranked list of top projects.
package leaderboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/good-yellow-bee/peervote/internal/models"
)

// Source supplies the ranked projects.
type Source interface {
	TopProjects(ctx context.Context) ([]models.Project, error)
}

// Entry is one ranked row.
type Entry struct {
	Rank    int            `json:"rank"`
	Project models.Project `json:"project"`
}

// Reader fetches the leaderboard. It never reorders or mutates what the server returns.
type Reader struct {
	source Source
	logger *slog.Logger
}

// NewReader creates a Reader. A nil logger uses slog.Default.
func NewReader(source Source, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{source: source, logger: logger}
}

// Fetch returns the top projects in server order. On failure the failure is
// logged and an empty, non-nil list is returned together with the error, so a
// caller that only displays the list shows nothing.
func (r *Reader) Fetch(ctx context.Context) ([]models.Project, error) {
	projects, err := r.source.TopProjects(ctx)
	if err != nil {
		r.logger.Error("failed to fetch leaderboard", "error", err)
		return []models.Project{}, fmt.Errorf("fetch leaderboard: %w", err)
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return projects, nil
}

// Rank labels projects with 1-based positions in the order given.
func Rank(projects []models.Project) []Entry {
	entries := make([]Entry, len(projects))
	for i, p := range projects {
		entries[i] = Entry{Rank: i + 1, Project: p}
	}
	return entries
}

// Leader returns the first project, if any.
func Leader(projects []models.Project) (models.Project, bool) {
	if len(projects) == 0 {
		return models.Project{}, false
	}
	return projects[0], true
}
