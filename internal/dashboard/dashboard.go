// Package dashboard aggregates what a signed-in user sees first: who they are,
// how many projects they still have to vote on, and who is leading.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/peervote/internal/leaderboard"
	"github.com/good-yellow-bee/peervote/internal/models"
	"github.com/good-yellow-bee/peervote/internal/session"
)

// ErrNotSignedIn is returned when no usable credential is held.
var ErrNotSignedIn = errors.New("not signed in")

// ProjectLoader loads the full project collection.
type ProjectLoader interface {
	LoadProjects(ctx context.Context, filter string) ([]models.Project, error)
}

// Summary is the dashboard view.
type Summary struct {
	UserID    string          `json:"user_id,omitempty"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Total     int             `json:"total"`
	Voted     int             `json:"voted"`
	Pending   int             `json:"pending"`
	Leader    *models.Project `json:"leader,omitempty"`
	// LeaderboardErr is set when the leaderboard could not be fetched. The rest
	// of the summary is still valid.
	LeaderboardErr error `json:"-"`
}

// Dashboard builds summaries.
type Dashboard struct {
	session  session.Session
	projects ProjectLoader
	board    *leaderboard.Reader
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Dashboard.
func New(sess session.Session, projects ProjectLoader, board *leaderboard.Reader, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{
		session:  sess,
		projects: projects,
		board:    board,
		logger:   logger,
		now:      time.Now,
	}
}

// Summary fetches projects and the leaderboard concurrently. A project fetch
// failure fails the summary; a leaderboard failure only leaves Leader empty.
func (d *Dashboard) Summary(ctx context.Context) (*Summary, error) {
	token, ok := d.session.Get()
	if !ok {
		return nil, ErrNotSignedIn
	}

	sum := &Summary{}
	if id, err := session.Inspect(token); err != nil {
		d.logger.Debug("credential is not a readable JWT", "error", err)
	} else {
		if id.Expired(d.now()) {
			return nil, fmt.Errorf("credential expired at %s: %w", id.ExpiresAt.Format(time.RFC3339), ErrNotSignedIn)
		}
		sum.UserID = id.UserID
		if !id.ExpiresAt.IsZero() {
			exp := id.ExpiresAt
			sum.ExpiresAt = &exp
		}
	}

	var projects, top []models.Project
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		projects, err = d.projects.LoadProjects(gctx, "")
		return err
	})
	// Not gctx: a project failure must not show up as a leaderboard error.
	g.Go(func() error {
		var err error
		top, err = d.board.Fetch(ctx)
		sum.LeaderboardErr = err
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	sum.Total = len(projects)
	for _, p := range projects {
		if p.HasVoted {
			sum.Voted++
		}
	}
	sum.Pending = sum.Total - sum.Voted
	if leader, ok := leaderboard.Leader(top); ok {
		sum.Leader = &leader
	}
	return sum, nil
}
