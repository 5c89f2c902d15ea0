// Package session keeps the portal's server-side sessions and the signed
// cookie that points at them.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/giygas/hospital-portal/entities"
	"github.com/giygas/hospital-portal/interfaces"
	"github.com/giygas/hospital-portal/metrics"
)

// ErrIncompleteSession is returned by Save for a session missing its id,
// token, user id or role.
var ErrIncompleteSession = errors.New("session is incomplete")

var _ interfaces.SessionStore = (*MemoryStore)(nil)

// MemoryStore is an in-process SessionStore. Sessions without an expiry
// get one ttl after they are saved.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]entities.Session
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]entities.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Save stores s whole, replacing any session with the same id.
func (m *MemoryStore) Save(_ context.Context, s entities.Session) error {
	if !s.Complete() {
		return ErrIncompleteSession
	}

	now := m.now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.ExpiresAt.IsZero() && m.ttl > 0 {
		s.ExpiresAt = now.Add(m.ttl)
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	count := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(count))
	return nil
}

// Load returns the session for id. An expired session is removed and
// reported as absent.
func (m *MemoryStore) Load(_ context.Context, id string) (entities.Session, bool) {
	if id == "" {
		return entities.Session{}, false
	}

	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return entities.Session{}, false
	}
	if s.Expired(m.now()) {
		m.Clear(context.Background(), id)
		return entities.Session{}, false
	}
	return s, true
}

func (m *MemoryStore) Clear(_ context.Context, id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(count))
}

func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops every session expired at now and returns how many went.
func (m *MemoryStore) Sweep(now time.Time) int {
	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(count))
	return removed
}
