package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/good-yellow-bee/peervote/internal/models"
)

// maxPages guards against pagination links that loop.
const maxPages = 1000

type projectPage struct {
	Count   int              `json:"count"`
	Next    *string          `json:"next"`
	Results []models.Project `json:"results"`
}

// ListProjects fetches the full project collection, following pagination links.
func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	const op = "list projects"

	projects := []models.Project{}
	target := "/api/projects/"
	for page := 0; target != ""; page++ {
		if page >= maxPages {
			return nil, &Error{Op: op, Kind: KindUnexpected, Err: fmt.Errorf("more than %d pages", maxPages)}
		}

		var resp projectPage
		if err := c.do(ctx, op, http.MethodGet, target, nil, &resp); err != nil {
			return nil, err
		}
		projects = append(projects, resp.Results...)

		target = ""
		if resp.Next != nil && *resp.Next != "" {
			next, err := c.sameOrigin(*resp.Next)
			if err != nil {
				return nil, &Error{Op: op, Kind: KindUnexpected, Err: err}
			}
			target = next
		}
	}
	return projects, nil
}

// Vote submits one vote for the project. The response body is not consumed.
func (c *Client) Vote(ctx context.Context, id models.ProjectID) error {
	path := "/api/projects/" + url.PathEscape(string(id)) + "/vote/"
	return c.do(ctx, "cast vote", http.MethodPost, path, nil, nil)
}

// TopProjects fetches the leaderboard in server order.
func (c *Client) TopProjects(ctx context.Context) ([]models.Project, error) {
	projects := []models.Project{}
	if err := c.do(ctx, "top projects", http.MethodGet, "/api/projects/top/", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}
