package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrTokenInvalid is returned for unknown, expired, or consumed tokens.
var ErrTokenInvalid = errors.New("token invalid or expired")

type tokenEntry struct {
	userID    string
	expiresAt time.Time
}

// TokenStore issues and validates opaque single-use tokens with a TTL,
// used for session tokens and password resets.
type TokenStore struct {
	ttl time.Duration

	mu     sync.Mutex
	tokens map[string]tokenEntry
}

// NewTokenStore creates a token store whose tokens live for ttl.
func NewTokenStore(ttl time.Duration) *TokenStore {
	return &TokenStore{
		ttl:    ttl,
		tokens: make(map[string]tokenEntry),
	}
}

// Issue creates a token bound to a user.
func (s *TokenStore) Issue(userID string) string {
	token := uuid.New().String()
	s.mu.Lock()
	s.tokens[token] = tokenEntry{userID: userID, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return token
}

// Validate returns the user a live token is bound to.
func (s *TokenStore) Validate(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[token]
	if !ok {
		return "", ErrTokenInvalid
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.tokens, token)
		return "", ErrTokenInvalid
	}
	return entry.userID, nil
}

// Consume validates a token and removes it, for single-use flows.
func (s *TokenStore) Consume(token string) (string, error) {
	userID, err := s.Validate(token)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	return userID, nil
}

// Revoke removes a token regardless of its state.
func (s *TokenStore) Revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// Purge drops expired tokens. Call it periodically from a maintenance loop.
func (s *TokenStore) Purge() int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for token, entry := range s.tokens {
		if now.After(entry.expiresAt) {
			delete(s.tokens, token)
			n++
		}
	}
	return n
}
