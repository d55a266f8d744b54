package session

import (
	"alcyxob/fitness-coach/internal/domain"
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memoryEntry struct {
	session   domain.Session
	expiresAt time.Time
}

// memoryStore keeps sessions in process memory. Suitable for a single
// instance deployment.
type memoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[primitive.ObjectID]memoryEntry
	locks    map[primitive.ObjectID]struct{}
}

// NewMemoryStore creates an in-memory Store. ttl <= 0 disables expiry.
func NewMemoryStore(ttl time.Duration) Store {
	return &memoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[primitive.ObjectID]memoryEntry),
		locks:    make(map[primitive.ObjectID]struct{}),
	}
}

func (m *memoryStore) Get(_ context.Context, userID primitive.ObjectID) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		delete(m.sessions, userID)
		return nil, ErrNotFound
	}
	s := e.session
	s.Messages = e.session.Snapshot()
	return &s, nil
}

func (m *memoryStore) Save(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *s
	stored.Messages = s.Snapshot()
	e := memoryEntry{session: stored}
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}
	m.sessions[s.UserID] = e
	m.evictExpiredLocked()
	return nil
}

func (m *memoryStore) Delete(_ context.Context, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

func (m *memoryStore) Lock(_ context.Context, userID primitive.ObjectID) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, held := m.locks[userID]; held {
		return nil, ErrLocked
	}
	m.locks[userID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.locks, userID)
			m.mu.Unlock()
		})
	}, nil
}

// evictExpiredLocked drops expired sessions. Caller holds m.mu.
func (m *memoryStore) evictExpiredLocked() {
	now := m.now()
	for id, e := range m.sessions {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(m.sessions, id)
		}
	}
}
