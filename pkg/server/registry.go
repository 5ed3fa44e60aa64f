package server

import (
	"sort"
	"sync"
	"time"

	"github.com/linechat/linechat/pkg/model"
)

// Registry is the single shared mutable store of live sessions. All
// cross-session state passes through it; callers never touch the
// underlying map. It enforces the username-uniqueness invariant and is
// safe for concurrent use from every connection handler plus the reaper.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uint64]*Session
	nextID   uint64
	now      func() time.Time
}

// Entry is one row of a point-in-time registry snapshot, sufficient for
// broadcast and WHO without holding the registry lock across socket I/O.
type Entry struct {
	ID       uint64
	Username string
	Sink     Sink
}

// NewRegistry creates an empty registry using the wall clock.
func NewRegistry() *Registry {
	return newRegistryWithClock(func() time.Time { return time.Now() })
}

func newRegistryWithClock(now func() time.Time) *Registry {
	return &Registry{
		sessions: make(map[uint64]*Session),
		now:      now,
	}
}

// Register adds an unauthenticated session for the given sink. It always
// succeeds and returns the new session.
func (r *Registry) Register(sink Sink) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s := &Session{
		id:       r.nextID,
		sink:     sink,
		lastSeen: r.now(),
	}
	r.sessions[s.id] = s
	return s
}

// Authenticate atomically claims a username for the session. The
// taken-check and the claim happen under one lock acquisition, so two
// concurrent LOGINs for the same name can never both succeed. On success
// the session's activity clock is refreshed.
func (r *Registry) Authenticate(id uint64, username string) error {
	if err := model.ValidateUsername(username); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return model.ErrSessionNotFound
	}
	if s.username != "" {
		return model.ErrAlreadyLoggedIn
	}
	for _, other := range r.sessions {
		if other.username == username {
			return model.ErrUsernameTaken
		}
	}
	s.username = username
	s.lastSeen = r.now()
	return nil
}

// Touch refreshes the session's activity clock. It reports whether the
// session is still tracked.
func (r *Registry) Touch(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	s.lastSeen = r.now()
	return true
}

// Username returns the session's claimed name; ok is false until LOGIN
// has succeeded (or if the session is gone).
func (r *Registry) Username(id uint64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || s.username == "" {
		return "", false
	}
	return s.username, true
}

// Remove deletes the session. It returns the username the session held
// (empty if it never logged in) and whether the session was still present,
// so concurrent close triggers deregister at most once.
func (r *Registry) Remove(id uint64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return "", false
	}
	delete(r.sessions, id)
	return s.username, true
}

// FindByUsername looks up an authenticated session by exact, case-sensitive
// name match.
func (r *Registry) FindByUsername(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.username != "" && s.username == name {
			return Entry{ID: s.id, Username: s.username, Sink: s.sink}, true
		}
	}
	return Entry{}, false
}

// Snapshot returns a point-in-time copy of all sessions, ordered by
// username (unauthenticated sessions first, by id). Callers perform any
// I/O against the returned sinks after the lock is released.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, Entry{ID: s.id, Username: s.username, Sink: s.sink})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ExpireOlderThan returns every authenticated session whose last activity
// predates the deadline. Sessions that never completed LOGIN are exempt
// from idle eviction.
func (r *Registry) ExpireOlderThan(deadline time.Time) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Entry
	for _, s := range r.sessions {
		if s.username != "" && s.lastSeen.Before(deadline) {
			out = append(out, Entry{ID: s.id, Username: s.username, Sink: s.sink})
		}
	}
	return out
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
