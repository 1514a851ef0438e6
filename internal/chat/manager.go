package chat

import (
	"context"
	"sync"
)

// Manager hands out live sessions to concurrent callers. Sessions are kept in
// memory and, when a store is configured, created in and restored from it.
type Manager struct {
	store *SessionStore

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a manager. store may be nil for memory-only sessions.
func NewManager(store *SessionStore) *Manager {
	return &Manager{store: store, sessions: make(map[string]*Session)}
}

// Create starts a new session.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	var sess *Session
	if m.store != nil {
		var err error
		if sess, err = m.store.Create(ctx); err != nil {
			return nil, err
		}
	} else {
		sess = NewSession("")
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	return sess, nil
}

// Get returns the live session for id, restoring it from the store on first
// use.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[id]; ok {
		return sess, nil
	}
	if m.store == nil {
		return nil, ErrSessionNotFound
	}
	sess, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	m.sessions[id] = sess
	return sess, nil
}

// Delete drops a session from memory and the store.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	_, live := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if m.store == nil {
		if !live {
			return ErrSessionNotFound
		}
		return nil
	}
	return m.store.Delete(ctx, id)
}

// Recorder returns the store as a Recorder, or nil without one.
func (m *Manager) Recorder() Recorder {
	if m.store == nil {
		return nil
	}
	return m.store
}
