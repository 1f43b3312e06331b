package devserver

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Store errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrProjectNotFound    = errors.New("project not found")
	ErrAlreadyVoted       = errors.New("already voted")
	ErrInvalidCategory    = errors.New("invalid category")
)

// Project categories.
const (
	CategoryPoll      = "poll"
	CategoryMovie     = "movie"
	CategoryEcommerce = "ecommerce"
	CategorySocial    = "social"
	CategoryJob       = "job"
)

// Project statuses. Only published projects are served.
const (
	StatusDraft       = "draft"
	StatusPublished   = "published"
	StatusUnderReview = "under_review"
	StatusRejected    = "rejected"
)

var categories = map[string]bool{
	CategoryPoll:      true,
	CategoryMovie:     true,
	CategoryEcommerce: true,
	CategorySocial:    true,
	CategoryJob:       true,
}

// User is an account that can sign in and vote.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
}

// NewProject describes a project to add.
type NewProject struct {
	Name        string
	Description string
	Category    string
	Status      string
	CreatorID   int64
	CreatedAt   time.Time
}

type projectRecord struct {
	id          int64
	name        string
	description string
	category    string
	status      string
	creatorID   int64
	createdAt   time.Time
	voters      map[int64]struct{}
}

// projectView is the wire form of a project, as seen by one viewer.
type projectView struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Creator     *string   `json:"creator"`
	Status      string    `json:"status"`
	VoteCount   int       `json:"vote_count"`
	HasVoted    bool      `json:"has_voted"`
	Images      []any     `json:"images"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store holds users, projects and votes in memory. It is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	users       map[int64]*User
	byEmail     map[string]int64
	projects    map[int64]*projectRecord
	nextUser    int64
	nextProject int64
	hashCost    int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[int64]*User),
		byEmail:  make(map[string]int64),
		projects: make(map[int64]*projectRecord),
		hashCost: bcrypt.DefaultCost,
	}
}

// AddUser registers an account. Emails are unique, compared case-insensitively.
func (s *Store) AddUser(email, username, password string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	if _, exists := s.byEmail[key]; exists {
		return nil, fmt.Errorf("%s: %w", email, ErrDuplicateEmail)
	}

	s.nextUser++
	u := &User{
		ID:           s.nextUser,
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
	}
	s.users[u.ID] = u
	s.byEmail[key] = u.ID
	return u, nil
}

// Authenticate checks an email/password pair.
func (s *Store) Authenticate(email, password string) (*User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	var u *User
	if ok {
		u = s.users[id]
	}
	s.mu.RUnlock()

	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// User returns the account with the given id.
func (s *Store) User(id int64) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

// AddProject stores a project and returns its id. Status defaults to published
// and CreatedAt to now.
func (s *Store) AddProject(p NewProject) (int64, error) {
	if p.Category == "" {
		p.Category = CategoryPoll
	}
	if !categories[p.Category] {
		return 0, fmt.Errorf("%q: %w", p.Category, ErrInvalidCategory)
	}
	if p.Status == "" {
		p.Status = StatusPublished
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextProject++
	s.projects[s.nextProject] = &projectRecord{
		id:          s.nextProject,
		name:        p.Name,
		description: p.Description,
		category:    p.Category,
		status:      p.Status,
		creatorID:   p.CreatorID,
		createdAt:   p.CreatedAt,
		voters:      make(map[int64]struct{}),
	}
	return s.nextProject, nil
}

// Published returns published projects, newest first, as seen by viewer
// (0 for anonymous). A non-empty category restricts the result.
func (s *Store) Published(viewer int64, category string) []projectView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.publishedLocked()
	sort.Slice(records, func(i, j int) bool {
		if !records[i].createdAt.Equal(records[j].createdAt) {
			return records[i].createdAt.After(records[j].createdAt)
		}
		return records[i].id > records[j].id
	})

	views := make([]projectView, 0, len(records))
	for _, rec := range records {
		if category != "" && rec.category != category {
			continue
		}
		views = append(views, s.viewLocked(rec, viewer))
	}
	return views
}

// TopIDs returns up to n published project ids ordered by vote count, highest
// first. Ties keep newest-first order.
func (s *Store) TopIDs(n int) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.publishedLocked()
	sort.Slice(records, func(i, j int) bool {
		vi, vj := len(records[i].voters), len(records[j].voters)
		if vi != vj {
			return vi > vj
		}
		if !records[i].createdAt.Equal(records[j].createdAt) {
			return records[i].createdAt.After(records[j].createdAt)
		}
		return records[i].id > records[j].id
	})
	if len(records) > n {
		records = records[:n]
	}

	ids := make([]int64, len(records))
	for i, rec := range records {
		ids[i] = rec.id
	}
	return ids
}

// Views renders the given projects for viewer, skipping ids that no longer exist.
func (s *Store) Views(ids []int64, viewer int64) []projectView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]projectView, 0, len(ids))
	for _, id := range ids {
		if rec, ok := s.projects[id]; ok {
			views = append(views, s.viewLocked(rec, viewer))
		}
	}
	return views
}

// Vote records userID's vote on a published project. A second vote by the same
// user is rejected with ErrAlreadyVoted.
func (s *Store) Vote(projectID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.projects[projectID]
	if !ok || rec.status != StatusPublished {
		return ErrProjectNotFound
	}
	if _, voted := rec.voters[userID]; voted {
		return ErrAlreadyVoted
	}
	rec.voters[userID] = struct{}{}
	return nil
}

func (s *Store) publishedLocked() []*projectRecord {
	records := make([]*projectRecord, 0, len(s.projects))
	for _, rec := range s.projects {
		if rec.status == StatusPublished {
			records = append(records, rec)
		}
	}
	return records
}

func (s *Store) viewLocked(rec *projectRecord, viewer int64) projectView {
	v := projectView{
		ID:          rec.id,
		Name:        rec.name,
		Description: rec.description,
		Category:    rec.category,
		Status:      rec.status,
		VoteCount:   len(rec.voters),
		Images:      []any{},
		CreatedAt:   rec.createdAt,
	}
	if creator, ok := s.users[rec.creatorID]; ok {
		email := creator.Email
		v.Creator = &email
	}
	if viewer != 0 {
		_, v.HasVoted = rec.voters[viewer]
	}
	return v
}
