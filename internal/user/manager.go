// Package user implements account registration and authentication on top of
// the repository layer.
package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/lifegame/life-server-go/internal/auth"
	"github.com/lifegame/life-server-go/internal/config"
	"github.com/lifegame/life-server-go/internal/repository"
	"go.uber.org/zap"
)

var (
	// ErrInvalidCredentials is returned when a login attempt fails. It never
	// reveals whether the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUsernameTaken is returned when registering an existing name.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrValidation is wrapped by all input validation failures.
	ErrValidation = errors.New("validation failed")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Store is the slice of the user repository the manager needs.
type Store interface {
	Create(ctx context.Context, u repository.User) error
	GetByUsername(ctx context.Context, username string) (repository.User, error)
	GetByID(ctx context.Context, id string) (repository.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	TouchLastSeen(ctx context.Context, id string) error
}

// Manager handles account lifecycle.
type Manager struct {
	store      Store
	validation config.ValidationConfig
	bcryptCost int
	logger     *zap.Logger
}

// NewManager creates a user manager.
func NewManager(store Store, validation config.ValidationConfig, bcryptCost int, logger *zap.Logger) *Manager {
	return &Manager{
		store:      store,
		validation: validation,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates a new account and returns its id.
func (m *Manager) Register(ctx context.Context, username, email, password string) (string, error) {
	if err := m.validateUsername(username); err != nil {
		return "", err
	}
	if len(password) < m.validation.PasswordMinLength {
		return "", fmt.Errorf("%w: password must be at least %d characters",
			ErrValidation, m.validation.PasswordMinLength)
	}

	if _, err := m.store.GetByUsername(ctx, username); err == nil {
		return "", ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("check username: %w", err)
	}

	hash, err := auth.HashPassword(password, m.bcryptCost)
	if err != nil {
		return "", err
	}

	u := repository.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := m.store.Create(ctx, u); err != nil {
		return "", err
	}

	if m.logger != nil {
		m.logger.Info("user registered",
			zap.String("user_id", u.ID),
			zap.String("username", username),
		)
	}
	return u.ID, nil
}

// Authenticate verifies a username/password pair and returns the account.
func (m *Manager) Authenticate(ctx context.Context, username, password string) (repository.User, error) {
	u, err := m.store.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return repository.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if !auth.CheckPassword(u.PasswordHash, password) {
		if m.logger != nil {
			m.logger.Warn("failed login attempt", zap.String("username", username))
		}
		return repository.User{}, ErrInvalidCredentials
	}

	if err := m.store.TouchLastSeen(ctx, u.ID); err != nil && m.logger != nil {
		m.logger.Warn("touch last seen", zap.Error(err))
	}
	return u, nil
}

// ChangePassword verifies the current password before setting a new one.
func (m *Manager) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := m.store.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if !auth.CheckPassword(u.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	if len(next) < m.validation.PasswordMinLength {
		return fmt.Errorf("%w: password must be at least %d characters",
			ErrValidation, m.validation.PasswordMinLength)
	}

	hash, err := auth.HashPassword(next, m.bcryptCost)
	if err != nil {
		return err
	}
	return m.store.UpdatePassword(ctx, userID, hash)
}

// Lookup fetches an account by username.
func (m *Manager) Lookup(ctx context.Context, username string) (repository.User, error) {
	return m.store.GetByUsername(ctx, username)
}

// ResetPassword sets a new password without the current one. Callers must
// have verified a reset token first.
func (m *Manager) ResetPassword(ctx context.Context, userID, next string) error {
	if len(next) < m.validation.PasswordMinLength {
		return fmt.Errorf("%w: password must be at least %d characters",
			ErrValidation, m.validation.PasswordMinLength)
	}
	hash, err := auth.HashPassword(next, m.bcryptCost)
	if err != nil {
		return err
	}
	if err := m.store.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	if m.logger != nil {
		m.logger.Info("password reset", zap.String("user_id", userID))
	}
	return nil
}

func (m *Manager) validateUsername(username string) error {
	if len(username) < m.validation.UsernameMinLength {
		return fmt.Errorf("%w: username must be at least %d characters",
			ErrValidation, m.validation.UsernameMinLength)
	}
	if len(username) > m.validation.UsernameMaxLength {
		return fmt.Errorf("%w: username must be at most %d characters",
			ErrValidation, m.validation.UsernameMaxLength)
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: username may only contain letters, digits, and underscores",
			ErrValidation)
	}
	return nil
}
