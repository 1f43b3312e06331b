package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/good-yellow-bee/peervote/internal/metrics"
	"github.com/good-yellow-bee/peervote/internal/models"
)

// ErrUnknownProject is returned when a vote targets a project that is not cached.
var ErrUnknownProject = errors.New("unknown project")

// API is the subset of the API client the controller needs.
type API interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	Vote(ctx context.Context, id models.ProjectID) error
}

// Outcome describes what CastVote did.
type Outcome int

const (
	// Accepted: the server accepted the vote and the cache was updated.
	Accepted Outcome = iota + 1
	// AlreadyVoted: the project was already voted; no request was sent.
	AlreadyVoted
	// InFlight: a vote for the project is pending; no request was sent.
	InFlight
	// Failed: the request failed; the cache is unchanged.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case AlreadyVoted:
		return "already voted"
	case InFlight:
		return "in flight"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Controller is the only writer of its Store.
type Controller struct {
	api     API
	store   *Store
	logger  *slog.Logger
	limiter *rate.Limiter
	workers int
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithRateLimit paces vote submissions made by CastVotes.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Controller) { c.limiter = rate.NewLimiter(limit, burst) }
}

// WithWorkers bounds how many votes CastVotes keeps in flight.
func WithWorkers(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.workers = n
		}
	}
}

// NewController creates a Controller writing to store.
func NewController(api API, store *Store, opts ...Option) *Controller {
	c := &Controller{
		api:     api,
		store:   store,
		logger:  slog.Default(),
		limiter: rate.NewLimiter(rate.Inf, 1),
		workers: 4,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the cache the controller writes to.
func (c *Controller) Store() *Store {
	return c.store
}

// LoadProjects fetches the full collection, replaces the cache, and returns the
// projects matching filter. The filter is applied locally and never sent to the
// server. On failure the cache keeps its previous contents.
func (c *Controller) LoadProjects(ctx context.Context, filter string) ([]models.Project, error) {
	projects, err := c.api.ListProjects(ctx)
	if err != nil {
		c.logger.Warn("failed to fetch projects", "error", err)
		return nil, fmt.Errorf("load projects: %w", err)
	}

	c.store.replace(projects)
	c.logger.Debug("projects loaded", "count", len(projects))
	return c.store.Filter(filter), nil
}

// CastVote submits a vote for id unless the project is already voted or a vote
// for it is in flight, in which case no request is sent. On success the cached
// project is marked voted and its count incremented by one without refetching.
// On failure the cache is left exactly as it was and a retry is possible.
func (c *Controller) CastVote(ctx context.Context, id models.ProjectID) (Outcome, error) {
	switch c.store.beginVote(id) {
	case StateUnknown:
		return 0, fmt.Errorf("vote on %s: %w", id, ErrUnknownProject)
	case StateVoted:
		metrics.VotesTotal.WithLabelValues(metrics.VoteSkipped).Inc()
		return AlreadyVoted, nil
	case StateVoting:
		metrics.VotesTotal.WithLabelValues(metrics.VoteSkipped).Inc()
		return InFlight, nil
	}

	metrics.VotesInFlight.Inc()
	err := c.api.Vote(ctx, id)
	metrics.VotesInFlight.Dec()

	if err != nil {
		c.store.finishVote(id, false)
		metrics.VotesTotal.WithLabelValues(metrics.VoteFailed).Inc()
		c.logger.Warn("vote failed", "project", id, "error", err)
		return Failed, fmt.Errorf("vote on %s: %w", id, err)
	}

	c.store.finishVote(id, true)
	metrics.VotesTotal.WithLabelValues(metrics.VoteAccepted).Inc()
	c.logger.Debug("vote accepted", "project", id)
	return Accepted, nil
}

// Result is the per-project outcome of CastVotes.
type Result struct {
	ID      models.ProjectID
	Outcome Outcome
	Err     error
}

// CastVotes votes on several projects concurrently. Votes on different projects
// are independent: one failure does not stop the others. Duplicate ids are
// voted once. Results are returned in the order the ids were first given.
func (c *Controller) CastVotes(ctx context.Context, ids []models.ProjectID) []Result {
	seen := make(map[models.ProjectID]bool, len(ids))
	unique := make([]models.ProjectID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	results := make([]Result, len(unique))
	var g errgroup.Group
	g.SetLimit(c.workers)

	for i, id := range unique {
		g.Go(func() error {
			results[i].ID = id
			if err := c.limiter.Wait(ctx); err != nil {
				results[i].Outcome = Failed
				results[i].Err = fmt.Errorf("vote on %s: %w", id, err)
				return nil
			}
			results[i].Outcome, results[i].Err = c.CastVote(ctx, id)
			return nil
		})
	}
	g.Wait()

	return results
}
