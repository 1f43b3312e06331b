package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type pageResponse struct {
	Count    int           `json:"count"`
	Next     *string       `json:"next"`
	Previous *string       `json:"previous"`
	Results  []projectView `json:"results"`
}

// login exchanges email and password for a token pair.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error")
		return
	}

	missing := map[string][]string{}
	if req.Email == "" {
		missing["email"] = []string{detailFieldRequired}
	}
	if req.Password == "" {
		missing["password"] = []string{detailFieldRequired}
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, missing)
		return
	}

	user, err := s.store.Authenticate(req.Email, req.Password)
	if err != nil {
		s.logger.Info("login failed", "email", req.Email, "remote", r.RemoteAddr)
		writeDetail(w, http.StatusUnauthorized, detailNoActiveAccount)
		return
	}

	access, refresh, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.Error("issue token", "error", err)
		writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Access: access, Refresh: refresh})
}

// listProjects serves published projects one page at a time.
func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeDetail(w, http.StatusNotFound, detailInvalidPage)
			return
		}
		page = n
	}

	all := s.store.Published(userID(r.Context()), r.URL.Query().Get("category"))
	size := s.config.PageSize
	start := (page - 1) * size
	if start > 0 && start >= len(all) {
		writeDetail(w, http.StatusNotFound, detailInvalidPage)
		return
	}
	end := min(start+size, len(all))

	resp := pageResponse{Count: len(all), Results: all[start:end]}
	if end < len(all) {
		next := pageURL(r, page+1)
		resp.Next = &next
	}
	if page > 1 {
		prev := pageURL(r, page-1)
		resp.Previous = &prev
	}
	writeJSON(w, http.StatusOK, resp)
}

// pageURL builds an absolute link to another page of the same listing.
func pageURL(r *http.Request, page int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	return u.String()
}

// topProjects serves the leaderboard.
func (s *Server) topProjects(w http.ResponseWriter, r *http.Request) {
	ids := s.top.get(func() []int64 { return s.store.TopIDs(s.config.TopSize) })
	writeJSON(w, http.StatusOK, s.store.Views(ids, userID(r.Context())))
}

// vote records one vote by the authenticated user.
func (s *Server) vote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusNotFound, detailNotFound)
		return
	}

	switch err := s.store.Vote(id, userID(r.Context())); {
	case errors.Is(err, ErrProjectNotFound):
		writeDetail(w, http.StatusNotFound, detailNotFound)
	case errors.Is(err, ErrAlreadyVoted):
		writeDetail(w, http.StatusBadRequest, detailAlreadyVoted)
	case err != nil:
		s.logger.Error("record vote", "project", id, "error", err)
		writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
	default:
		s.top.invalidate()
		writeDetail(w, http.StatusCreated, detailVoted)
	}
}

// topCache memoizes the leaderboard order for a fixed time. Votes invalidate it.
type topCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	ids     []int64
	expires time.Time
	now     func() time.Time
}

func (c *topCache) get(load func() []int64) []int64 {
	if c.ttl <= 0 {
		return load()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ids != nil && c.now().Before(c.expires) {
		return c.ids
	}
	c.ids = load()
	c.expires = c.now().Add(c.ttl)
	return c.ids
}

func (c *topCache) invalidate() {
	c.mu.Lock()
	c.ids = nil
	c.mu.Unlock()
}
