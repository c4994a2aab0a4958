package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory Store with TTL eviction and a per-session
// single-writer discipline: Update holds the session's lock, so concurrent
// continuations on the same id serialize instead of racing.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

type entry struct {
	mu      sync.Mutex
	session *Session
}

// NewMemory creates a MemoryStore and starts its eviction janitor.
func NewMemory(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	s := &MemoryStore{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.EvictExpired(context.Background()); n > 0 {
				zap.L().Debug("session: evicted expired sessions", zap.Int("count", n))
			}
		}
	}
}

// Close stops the eviction janitor.
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Create stores a new session, assigning its id and expiry.
func (s *MemoryStore) Create(_ context.Context, sess *Session) (string, error) {
	if sess == nil {
		return "", eris.New("session: nil session")
	}
	sess.ID = uuid.New().String()
	sess.CreatedAt = time.Now().UTC()
	sess.ExpiresAt = sess.CreatedAt.Add(s.ttl)

	s.mu.Lock()
	s.sessions[sess.ID] = &entry{session: sess}
	s.mu.Unlock()

	return sess.ID, nil
}

// Get returns a copy of the session, or ErrNotFound when the id is unknown
// or past its expiry.
func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if time.Now().UTC().After(e.session.ExpiresAt) {
		return nil, ErrNotFound
	}
	copied := *e.session
	return &copied, nil
}

// Update replaces the stored session under its per-key lock and refreshes
// the expiry.
func (s *MemoryStore) Update(_ context.Context, sess *Session) error {
	s.mu.RLock()
	e, ok := s.sessions[sess.ID]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	sess.ExpiresAt = time.Now().UTC().Add(s.ttl)
	copied := *sess
	e.session = &copied
	return nil
}

// Delete removes the session. Deleting an unknown id is a no-op.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// EvictExpired removes all sessions past their expiry and returns the count.
func (s *MemoryStore) EvictExpired(_ context.Context) int {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, e := range s.sessions {
		if now.After(e.session.ExpiresAt) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}
