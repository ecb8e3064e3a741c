package state

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewMemoryStore constructs an in-process Store for tests and single-instance deployments.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[int64]Session),
	}
}

// Get returns the session for a chat if it exists, otherwise an idle session.
func (m *memoryStore) Get(ctx context.Context, chatID int64) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if session, ok := m.sessions[chatID]; ok {
		return cloneSession(session), nil
	}
	return Idle(), nil
}

// Set replaces the session of a chat.
func (m *memoryStore) Set(ctx context.Context, chatID int64, s Session) error {
	if s.IsIdle() {
		return m.Clear(ctx, chatID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[chatID] = cloneSession(s)
	return nil
}

// Clear removes the entire session for a chat.
func (m *memoryStore) Clear(ctx context.Context, chatID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, chatID)
	return nil
}

func cloneSession(s Session) Session {
	if s.PendingCategoryID != nil {
		id := *s.PendingCategoryID
		s.PendingCategoryID = &id
	}
	return s
}
