package session

import (
	"context"
	"errors"

	"github.com/ai-charchat-go/internal/models"
	"github.com/ai-charchat-go/internal/services/storage"
	"github.com/sirupsen/logrus"
)

// UserKey is the persistent store key of the logged-in user record.
const UserKey = "user"

// Manager tracks the logged-in user. Writes replace the whole record; callers
// wanting a partial update read, merge and write back.
type Manager struct {
	store   *storage.Manager
	scratch *storage.Manager
	logger  *logrus.Logger
}

// NewManager creates a session manager over the persistent store and the
// session-scoped store that Logout clears.
func NewManager(store, scratch *storage.Manager, logger *logrus.Logger) *Manager {
	return &Manager{
		store:   store,
		scratch: scratch,
		logger:  logger,
	}
}

// SetUser persists user with no expiration.
func (m *Manager) SetUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("session: nil user")
	}
	if err := m.store.Set(ctx, UserKey, user, 0); err != nil {
		return err
	}
	m.logger.WithField("user_id", user.ID).Debug("Session user stored")
	return nil
}

// GetUser returns the stored user or nil.
func (m *Manager) GetUser(ctx context.Context) (*models.User, error) {
	var user models.User
	found, err := m.store.Get(ctx, UserKey, &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

// IsLoggedIn reports whether a user is stored. Storage failures count as
// logged out.
func (m *Manager) IsLoggedIn(ctx context.Context) bool {
	user, err := m.GetUser(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("Failed to read session user")
		return false
	}
	return user != nil
}

// Scratch exposes the session-scoped store.
func (m *Manager) Scratch() *storage.Manager {
	return m.scratch
}

// Logout removes the user record and clears session-scoped state.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.store.Remove(ctx, UserKey); err != nil {
		return err
	}
	if m.scratch != nil {
		if err := m.scratch.Clear(ctx); err != nil {
			return err
		}
	}
	m.logger.Debug("Session cleared")
	return nil
}
