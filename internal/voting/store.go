// Package voting keeps the client's view of projects consistent with the server.
//
// The Store is the project cache plus a subscriber list. Only the Controller
// mutates it: wholesale replacement after a fetch, and the per-project vote
// transitions NOT_VOTED -> VOTING -> VOTED (terminal), with VOTING -> NOT_VOTED
// on failure.
package voting

import (
	"sync"

	"github.com/good-yellow-bee/peervote/internal/models"
)

// State is the client-local vote state of one project.
type State int

const (
	StateUnknown State = iota // project not in the cache
	StateNotVoted
	StateVoting
	StateVoted
)

func (s State) String() string {
	switch s {
	case StateNotVoted:
		return "not_voted"
	case StateVoting:
		return "voting"
	case StateVoted:
		return "voted"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable copy of the store at one version.
type Snapshot struct {
	Version  uint64
	Projects []models.Project
	InFlight map[models.ProjectID]bool
}

// State returns the vote state of id within the snapshot.
func (s Snapshot) State(id models.ProjectID) State {
	for _, p := range s.Projects {
		if p.ID != id {
			continue
		}
		switch {
		case p.HasVoted:
			return StateVoted
		case s.InFlight[id]:
			return StateVoting
		default:
			return StateNotVoted
		}
	}
	return StateUnknown
}

// Filter returns the projects whose name or description contains term, ignoring case.
func (s Snapshot) Filter(term string) []models.Project {
	out := make([]models.Project, 0, len(s.Projects))
	for _, p := range s.Projects {
		if p.Matches(term) {
			out = append(out, p)
		}
	}
	return out
}

// Store is an observable project cache. It is safe for concurrent use.
// Subscribers are called in version order after each change, with no store
// lock held, so they may read the Store. They must not call back into the
// Controller. When changes race, one publishing goroutine delivers every
// pending snapshot, so a change may be delivered after its mutator returned.
type Store struct {
	mu       sync.Mutex
	projects []models.Project
	index    map[models.ProjectID]int
	inFlight map[models.ProjectID]struct{}
	version  uint64

	subs    map[int]func(Snapshot)
	nextSub int

	// pending holds snapshots not yet delivered; delivering marks that a
	// goroutine is draining it.
	pending    []Snapshot
	delivering bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		index:    make(map[models.ProjectID]int),
		inFlight: make(map[models.ProjectID]struct{}),
		subs:     make(map[int]func(Snapshot)),
	}
}

// Subscribe registers fn to receive a snapshot after every change.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Project returns the cached project with the given id.
func (s *Store) Project(id models.ProjectID) (models.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return models.Project{}, false
	}
	return s.projects[i], true
}

// State returns the vote state of id.
func (s *Store) State(id models.ProjectID) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(id)
}

// Filter applies the search view to the current cache without modifying it.
func (s *Store) Filter(term string) []models.Project {
	return s.Snapshot().Filter(term)
}

// Len returns the number of cached projects.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.projects)
}

// replace swaps in a freshly fetched collection. In-flight markers survive so
// that a refresh during a vote cannot open the door to a duplicate submission.
func (s *Store) replace(projects []models.Project) {
	s.mu.Lock()
	s.projects = make([]models.Project, len(projects))
	copy(s.projects, projects)
	s.index = make(map[models.ProjectID]int, len(projects))
	for i, p := range s.projects {
		s.index[p.ID] = i
	}
	s.publishLocked()
}

// beginVote moves id to VOTING if it is NOT_VOTED and reports the state it found.
func (s *Store) beginVote(id models.ProjectID) State {
	s.mu.Lock()
	state := s.stateLocked(id)
	if state != StateNotVoted {
		s.mu.Unlock()
		return state
	}
	s.inFlight[id] = struct{}{}
	s.publishLocked()
	return StateNotVoted
}

// finishVote clears the in-flight marker. On success the project becomes VOTED
// and its count is incremented once; a project already marked voted by a
// refresh is left as the server reported it.
func (s *Store) finishVote(id models.ProjectID, accepted bool) {
	s.mu.Lock()
	delete(s.inFlight, id)
	if accepted {
		if i, ok := s.index[id]; ok && !s.projects[i].HasVoted {
			s.projects[i].HasVoted = true
			s.projects[i].VoteCount++
		}
	}
	s.publishLocked()
}

func (s *Store) stateLocked(id models.ProjectID) State {
	i, ok := s.index[id]
	switch {
	case !ok:
		return StateUnknown
	case s.projects[i].HasVoted:
		return StateVoted
	default:
		if _, busy := s.inFlight[id]; busy {
			return StateVoting
		}
		return StateNotVoted
	}
}

func (s *Store) snapshotLocked() Snapshot {
	projects := make([]models.Project, len(s.projects))
	copy(projects, s.projects)
	inFlight := make(map[models.ProjectID]bool, len(s.inFlight))
	for id := range s.inFlight {
		inFlight[id] = true
	}
	return Snapshot{Version: s.version, Projects: projects, InFlight: inFlight}
}

// publishLocked bumps the version and notifies subscribers. It must be called
// with mu held and releases it.
func (s *Store) publishLocked() {
	s.version++
	s.pending = append(s.pending, s.snapshotLocked())
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true

	for len(s.pending) > 0 {
		batch := s.pending
		s.pending = nil
		subs := make([]func(Snapshot), 0, len(s.subs))
		for _, fn := range s.subs {
			subs = append(subs, fn)
		}
		s.mu.Unlock()

		for _, snap := range batch {
			for _, fn := range subs {
				fn(snap)
			}
		}

		s.mu.Lock()
	}
	s.delivering = false
	s.mu.Unlock()
}
