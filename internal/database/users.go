package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benvon/goalquest/internal/models"
	"github.com/benvon/goalquest/internal/storage"
)

// UsersNamespace prefixes the per-user profile key
const UsersNamespace = "goaltracker-users"

// ErrUserNotFound is returned when no profile exists for the user
var ErrUserNotFound = errors.New("user not found")

// UserRepository persists user profiles
type UserRepository struct {
	store storage.Store
	mu    sync.Mutex
	now   func() time.Time
}

// NewUserRepository creates a new user repository
func NewUserRepository(store storage.Store) *UserRepository {
	return &UserRepository{store: store, now: time.Now}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	data, err := r.store.Get(ctx, storage.Key(UsersNamespace, userID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user := &models.User{}
	if err := json.Unmarshal(data, user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return user, nil
}

// GetOrCreate stores the user on first sight and refreshes email and first name afterwards.
// The first-seen CreatedAt is kept as the join date.
func (r *UserRepository) GetOrCreate(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil || user.ID == "" {
		return nil, errors.New("user id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.GetByID(ctx, user.ID)
	switch {
	case errors.Is(err, ErrUserNotFound):
		created := *user
		if created.CreatedAt.IsZero() {
			created.CreatedAt = r.now().UTC()
		}
		if err := r.put(ctx, &created); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		return &created, nil
	case err != nil:
		return nil, err
	}

	if existing.Email == user.Email && existing.FirstName == user.FirstName {
		return existing, nil
	}
	if user.Email != "" {
		existing.Email = user.Email
	}
	if user.FirstName != "" {
		existing.FirstName = user.FirstName
	}
	if err := r.put(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return existing, nil
}

func (r *UserRepository) put(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, storage.Key(UsersNamespace, user.ID), data)
}
