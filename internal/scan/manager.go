package scan

import (
	"context"
	"log/slog"
	"sync"
)

// Manager keeps at most one open session per key, typically per operator
// device. Opening a new session tears the previous one down first.
type Manager struct {
	decoder Decoder
	opts    Options
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager.
func NewManager(decoder Decoder, opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		decoder:  decoder,
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Open closes any session held under key, then starts a new one on camera.
// The session is returned even when acquisition fails so the caller can
// fall back to manual entry.
func (m *Manager) Open(ctx context.Context, key string, camera Camera) (*Session, error) {
	sess := NewSession(camera, m.decoder, m.opts, m.logger.With("session", key))

	m.mu.Lock()
	prev := m.sessions[key]
	m.sessions[key] = sess
	m.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
		m.logger.Debug("replaced scan session", "session", key)
	}

	return sess, sess.Start(ctx)
}

// Get returns the session held under key.
func (m *Manager) Get(key string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[key]
	return sess, ok
}

// Release closes and forgets the session under key.
func (m *Manager) Release(key string) {
	m.mu.Lock()
	sess := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if sess != nil {
		_ = sess.Close()
	}
}

// Close releases every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range sessions {
		_ = sess.Close()
	}
}
