package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/good-yellow-bee/peervote/internal/metrics"
	"github.com/good-yellow-bee/peervote/internal/session"
)

// recorder captures the headers of every request the test server sees.
type recorder struct {
	mu      sync.Mutex
	headers []http.Header
}

func (r *recorder) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		r.headers = append(r.headers, req.Header.Clone())
		r.mu.Unlock()
		next(w, req)
	}
}

func (r *recorder) last() http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headers[len(r.headers)-1]
}

func newTestClient(t *testing.T, handler http.Handler, sess session.Session) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/", Timeout: 5 * time.Second, UserAgent: "peervote-test"}, sess)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{BaseURL: "http://x"}, nil); err == nil {
		t.Error("expected error for nil session")
	}
	if _, err := New(Config{BaseURL: "/relative"}, session.NewMemory("")); err == nil {
		t.Error("expected error for relative base url")
	}
}

func TestClient_AttachesCredential(t *testing.T) {
	rec := &recorder{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/projects/top/", rec.wrap(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []any{})
	}))

	sess := session.NewMemory("tok-123")
	c := newTestClient(t, mux, sess)

	if _, err := c.TopProjects(context.Background()); err != nil {
		t.Fatalf("TopProjects: %v", err)
	}

	h := rec.last()
	if got := h.Get("Authorization"); got != "JWT tok-123" {
		t.Errorf("Authorization = %q, want %q", got, "JWT tok-123")
	}
	if h.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}
	if got := h.Get("User-Agent"); got != "peervote-test" {
		t.Errorf("User-Agent = %q", got)
	}
}

func TestClient_NoCredentialLeavesRequestUnmodified(t *testing.T) {
	rec := &recorder{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/projects/top/", rec.wrap(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []any{})
	}))

	c := newTestClient(t, mux, session.NewMemory(""))
	if _, err := c.TopProjects(context.Background()); err != nil {
		t.Fatalf("TopProjects: %v", err)
	}

	if got := rec.last().Get("Authorization"); got != "" {
		t.Errorf("Authorization = %q, want empty", got)
	}
}

func TestClient_CustomScheme(t *testing.T) {
	rec := &recorder{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/projects/top/", rec.wrap(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []any{})
	}))

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, AuthScheme: "Bearer"}, session.NewMemory("t"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.TopProjects(context.Background()); err != nil {
		t.Fatalf("TopProjects: %v", err)
	}
	if got := rec.last().Get("Authorization"); got != "Bearer t" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer t")
	}
}

func TestClient_CredentialReadPerRequest(t *testing.T) {
	rec := &recorder{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/projects/top/", rec.wrap(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []any{})
	}))

	sess := session.NewMemory("")
	c := newTestClient(t, mux, sess)
	ctx := context.Background()

	c.TopProjects(ctx)
	sess.Set("later")
	c.TopProjects(ctx)
	sess.Clear()
	c.TopProjects(ctx)

	want := []string{"", "JWT later", ""}
	for i, h := range rec.headers {
		if got := h.Get("Authorization"); got != want[i] {
			t.Errorf("request %d Authorization = %q, want %q", i, got, want[i])
		}
	}
}

func TestLogin_StoresToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/jwt/create/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var body loginRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Email != "student@alx.com" || body.Password != "pw" {
			t.Errorf("body = %+v", body)
		}
		writeJSON(w, http.StatusOK, map[string]string{"access": "acc", "refresh": "ref"})
	})

	sess := session.NewMemory("")
	c := newTestClient(t, mux, sess)

	token, err := c.Login(context.Background(), "student@alx.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token != "acc" {
		t.Errorf("token = %q, want acc", token)
	}
	if got, _ := sess.Get(); got != "acc" {
		t.Errorf("session token = %q, want acc", got)
	}
	if !c.Authenticated() {
		t.Error("Authenticated() = false after login")
	}

	if err := c.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if c.Authenticated() {
		t.Error("Authenticated() = true after logout")
	}
}

func TestLogin_Rejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/jwt/create/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "No active account found with the given credentials",
		})
	})

	sess := session.NewMemory("old")
	c := newTestClient(t, mux, sess)

	_, err := c.Login(context.Background(), "a@b.c", "wrong")
	if !IsKind(err, KindUnauthorized) {
		t.Fatalf("err = %v, want unauthorized", err)
	}

	var apiErr *Error
	errors.As(err, &apiErr)
	if apiErr.Detail != "No active account found with the given credentials" {
		t.Errorf("Detail = %q", apiErr.Detail)
	}
	if got, _ := sess.Get(); got != "old" {
		t.Errorf("session changed on failed login: %q", got)
	}
}

func TestLogin_MissingToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/jwt/create/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{})
	})

	c := newTestClient(t, mux, session.NewMemory(""))
	_, err := c.Login(context.Background(), "a@b.c", "pw")
	if !IsKind(err, KindUnexpected) {
		t.Errorf("err = %v, want unexpected", err)
	}
}

func TestListProjects_FollowsPagination(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/projects/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			writeJSON(w, http.StatusOK, map[string]any{
				"count":   3,
				"next":    nil,
				"results": []map[string]any{{"id": 3, "name": "Recs"}},
			})
			return
		}
		next := srvURL + "/api/projects/?page=2"
		writeJSON(w, http.StatusOK, map[string]any{
			"count": 3,
			"next":  next,
			"results": []map[string]any{
				{"id": 1, "name": "Movie App", "vote_count": 5},
				{"id": 2, "name": "Job Board", "has_voted": true},
			},
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	c, err := New(Config{BaseURL: srv.URL}, session.NewMemory(""))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	projects, err := c.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 3 {
		t.Fatalf("len = %d, want 3", len(projects))
	}
	if projects[0].ID != "1" || projects[0].VoteCount != 5 {
		t.Errorf("projects[0] = %+v", projects[0])
	}
	if !projects[1].HasVoted {
		t.Error("projects[1].HasVoted = false")
	}
	if projects[2].Name != "Recs" {
		t.Errorf("projects[2].Name = %q", projects[2].Name)
	}
}

func TestListProjects_RejectsForeignNextLink(t *testing.T) {
	var foreignHits int
	var foreignAuth string
	var mu sync.Mutex
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		foreignHits++
		foreignAuth = r.Header.Get("Authorization")
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"next": nil, "results": []any{}})
	}))
	defer foreign.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/projects/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"count":   2,
			"next":    foreign.URL + "/api/projects/?page=2",
			"results": []map[string]any{{"id": 1, "name": "Movie App"}},
		})
	})

	c := newTestClient(t, mux, session.NewMemory("secret-token"))
	_, err := c.ListProjects(context.Background())
	if !IsKind(err, KindUnexpected) {
		t.Errorf("err = %v, want unexpected", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if foreignHits != 0 {
		t.Errorf("foreign host received %d request(s), Authorization=%q", foreignHits, foreignAuth)
	}
}

func TestClient_CredentialNotSentAcrossRedirect(t *testing.T) {
	var mu sync.Mutex
	var foreignAuth string
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		foreignAuth = r.Header.Get("Authorization")
		mu.Unlock()
		writeJSON(w, http.StatusOK, []any{})
	}))
	defer foreign.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/projects/top/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, foreign.URL+"/top", http.StatusFound)
	})

	c := newTestClient(t, mux, session.NewMemory("secret-token"))
	if _, err := c.TopProjects(context.Background()); err != nil {
		t.Fatalf("TopProjects: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if foreignAuth != "" {
		t.Errorf("foreign host received Authorization = %q, want none", foreignAuth)
	}
}

func TestListProjects_Empty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/projects/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"count": 0, "next": nil, "results": []any{}})
	})

	c := newTestClient(t, mux, session.NewMemory(""))
	projects, err := c.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if projects == nil || len(projects) != 0 {
		t.Errorf("projects = %#v, want empty non-nil slice", projects)
	}
}

func TestListProjects_Undecodable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/projects/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>oops</html>"))
	})

	c := newTestClient(t, mux, session.NewMemory(""))
	_, err := c.ListProjects(context.Background())
	if !IsKind(err, KindUnexpected) {
		t.Errorf("err = %v, want unexpected", err)
	}
}

func TestVote(t *testing.T) {
	var gotPath, gotMethod string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/projects/", func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		writeJSON(w, http.StatusCreated, map[string]string{"detail": "Voted successfully"})
	})

	c := newTestClient(t, mux, session.NewMemory("t"))

	counter := metrics.APIRequestsTotal.WithLabelValues("cast vote", "201")
	before := testutil.ToFloat64(counter)

	if err := c.Vote(context.Background(), "42"); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/projects/42/vote/" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("requests_total delta = %v, want 1", got)
	}
}

func TestVote_ErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   Kind
		detail string
	}{
		{http.StatusBadRequest, `{"detail":"Already voted"}`, KindRejected, "Already voted"},
		{http.StatusConflict, `{"detail":"conflict"}`, KindRejected, "conflict"},
		{http.StatusUnauthorized, `{"detail":"Authentication credentials were not provided."}`, KindUnauthorized, "Authentication credentials were not provided."},
		{http.StatusForbidden, `{}`, KindUnauthorized, ""},
		{http.StatusNotFound, `{"detail":"Not found."}`, KindUnexpected, "Not found."},
		{http.StatusInternalServerError, `boom`, KindUnexpected, "boom"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/api/projects/", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			c := newTestClient(t, mux, session.NewMemory("t"))
			err := c.Vote(context.Background(), "1")

			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if apiErr.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", apiErr.Kind, tt.want)
			}
			if apiErr.Status != tt.status {
				t.Errorf("Status = %d, want %d", apiErr.Status, tt.status)
			}
			if apiErr.Detail != tt.detail {
				t.Errorf("Detail = %q, want %q", apiErr.Detail, tt.detail)
			}
		})
	}
}

func TestVote_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url, Timeout: time.Second}, session.NewMemory(""))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = c.Vote(context.Background(), "1")
	if !IsKind(err, KindTransport) {
		t.Errorf("err = %v, want transport", err)
	}
}

func TestVote_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/api/projects/", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})
	c := newTestClient(t, mux, session.NewMemory(""))
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Vote(ctx, "1")
	if !IsKind(err, KindTransport) {
		t.Fatalf("err = %v, want transport", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err does not wrap context.DeadlineExceeded: %v", err)
	}
}

func TestTopProjects_PreservesOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/projects/top/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":9,"name":"Job Board","vote_count":42},{"id":3,"name":"Recs","vote_count":30}]`))
	})

	c := newTestClient(t, mux, session.NewMemory(""))
	top, err := c.TopProjects(context.Background())
	if err != nil {
		t.Fatalf("TopProjects: %v", err)
	}

	var names []string
	for _, p := range top {
		names = append(names, p.Name)
	}
	if strings.Join(names, ",") != "Job Board,Recs" {
		t.Errorf("order = %v", names)
	}
}
