package session

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Sessions do not survive a
// restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
	now      func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]Session),
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, operatorID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[operatorID]
	if !ok {
		return nil, nil
	}
	s.Pending = slices.Clone(s.Pending)
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	if s == nil || s.OperatorID == 0 {
		return ErrNoOperator
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s.UpdatedAt = m.now()
	stored := *s
	stored.Pending = slices.Clone(s.Pending)
	m.sessions[s.OperatorID] = stored
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, operatorID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, operatorID)
	return nil
}

func (m *MemoryStore) Expire(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(before) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}
