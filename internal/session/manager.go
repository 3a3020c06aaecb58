// Package session tracks connected clients with a lease that must be renewed
// by pings; silent clients are reaped.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned for unknown or already expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// ErrTooManySessions is returned when the session cap is reached.
var ErrTooManySessions = errors.New("session limit reached")

// Session is one connected client.
type Session struct {
	ID        string
	UserID    string
	Username  string
	GameID    string // active game, empty if none
	CreatedAt time.Time

	lastPing time.Time
}

// Manager owns the live session table.
type Manager struct {
	leasePeriod time.Duration
	maxSessions int
	logger      *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	onExpire func(Session)
}

// NewManager creates a session manager. Sessions not pinged within
// leasePeriod are expired by the cleanup loop.
func NewManager(leasePeriod time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		leasePeriod: leasePeriod,
		logger:      logger,
		sessions:    make(map[string]*Session),
	}
}

// SetMaxSessions caps the number of concurrent sessions. Zero means no cap.
func (m *Manager) SetMaxSessions(n int) {
	m.mu.Lock()
	m.maxSessions = n
	m.mu.Unlock()
}

// SetExpireHandler registers a callback invoked for each expired session.
func (m *Manager) SetExpireHandler(fn func(Session)) {
	m.mu.Lock()
	m.onExpire = fn
	m.mu.Unlock()
}

// Create registers a session for an authenticated user.
func (m *Manager) Create(userID, username string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, ErrTooManySessions
	}

	now := time.Now()
	s := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Username:  username,
		CreatedAt: now,
		lastPing:  now,
	}
	m.sessions[s.ID] = s

	if m.logger != nil {
		m.logger.Info("session created",
			zap.String("session_id", s.ID),
			zap.String("user_id", userID),
		)
	}
	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Ping renews a session's lease.
func (m *Manager) Ping(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.lastPing = time.Now()
	return nil
}

// BindGame attaches the session to a game.
func (m *Manager) BindGame(id, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.GameID = gameID
	return nil
}

// Remove drops a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupExpiredSessions reaps silent sessions until the context is
// cancelled. Run it in its own goroutine.
func (m *Manager) CleanupExpiredSessions(ctx context.Context) {
	interval := m.leasePeriod / 3
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.expireSilent()
		}
	}
}

func (m *Manager) expireSilent() {
	cutoff := time.Now().Add(-m.leasePeriod)

	m.mu.Lock()
	var expired []Session
	for id, s := range m.sessions {
		if s.lastPing.Before(cutoff) {
			expired = append(expired, *s)
			delete(m.sessions, id)
		}
	}
	onExpire := m.onExpire
	m.mu.Unlock()

	for _, s := range expired {
		if m.logger != nil {
			m.logger.Info("session expired",
				zap.String("session_id", s.ID),
				zap.String("user_id", s.UserID),
			)
		}
		if onExpire != nil {
			onExpire(s)
		}
	}
}

// CloseAll drops every session, for shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	n := len(m.sessions)
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	if m.logger != nil && n > 0 {
		m.logger.Info("closed all sessions", zap.Int("count", n))
	}
}
