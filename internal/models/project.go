package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ProjectID is an opaque project identifier. The backend serves integer keys;
// the client never does arithmetic on them.
type ProjectID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *ProjectID) UnmarshalJSON(b []byte) error {
	if bytes.HasPrefix(b, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("project id: %w", err)
		}
		*id = ProjectID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("project id: %w", err)
	}
	*id = ProjectID(n.String())
	return nil
}

// Project is a submitted student work item subject to peer voting.
// VoteCount is the server's tally; HasVoted is scoped to the requesting user.
type Project struct {
	ID          ProjectID `json:"id"`
	Name        string    `json:"name"`
	Creator     string    `json:"creator"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Status      string    `json:"status,omitempty"`
	VoteCount   int       `json:"vote_count"`
	HasVoted    bool      `json:"has_voted"`
	CreatedAt   time.Time `json:"created_at"`
}

// Matches reports whether term occurs in the name or description, ignoring case.
// An empty term matches every project.
func (p Project) Matches(term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Description), term)
}

// Entry is a single key/value pair in local storage.
type Entry struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
