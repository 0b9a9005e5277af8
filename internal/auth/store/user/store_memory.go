package user

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"gatekeeper/internal/auth/models"
	"gatekeeper/internal/sentinel"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return wrapped sentinel.ErrNotFound when the requested entity does not exist
// - Return wrapped sentinel.ErrConflict when a uniqueness constraint is violated
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures (future: DB errors, network issues, etc.)
// InMemoryUserStore stores users in memory, keyed by ID with an email index.
type InMemoryUserStore struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]*models.User
	emailIdx map[string]uuid.UUID
}

// New constructs an empty in-memory user store.
func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:    make(map[uuid.UUID]*models.User),
		emailIdx: make(map[string]uuid.UUID),
	}
}

// Create inserts a new user. The existence check and the insert happen under
// one lock, so two concurrent registrations for the same email cannot both
// succeed. Email keys are expected to be normalized by the caller.
func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emailIdx[user.Email]; ok {
		return fmt.Errorf("user with email already exists: %w", sentinel.ErrConflict)
	}
	s.users[user.ID] = user
	s.emailIdx[user.Email] = user.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[userID]; ok {
		return user, nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if userID, ok := s.emailIdx[email]; ok {
		return s.users[userID], nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}
