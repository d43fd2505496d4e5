// Package database holds the per-user repositories layered over a storage.Store.
package database

import (
	"context"

	"github.com/benvon/goalquest/internal/models"
)

// GoalRepositoryInterface is the goal collection repository keyed by user
type GoalRepositoryInterface interface {
	Get(ctx context.Context, userID string) ([]models.Goal, error)
	Put(ctx context.Context, userID string, goals []models.Goal) error
	Delete(ctx context.Context, userID string) error
}

// OnboardingRepositoryInterface tracks whether a user finished onboarding
type OnboardingRepositoryInterface interface {
	IsComplete(ctx context.Context, userID string) (bool, error)
	MarkComplete(ctx context.Context, userID string) error
}

// UserRepositoryInterface stores the profile of authenticated users
type UserRepositoryInterface interface {
	GetOrCreate(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// SettingsRepositoryInterface stores per-user preferences
type SettingsRepositoryInterface interface {
	Get(ctx context.Context, userID string) (*models.UserSettings, error)
	Put(ctx context.Context, userID string, settings *models.UserSettings) error
}

// Ensure concrete types implement the interfaces
var (
	_ GoalRepositoryInterface       = (*GoalRepository)(nil)
	_ OnboardingRepositoryInterface = (*OnboardingRepository)(nil)
	_ UserRepositoryInterface       = (*UserRepository)(nil)
	_ SettingsRepositoryInterface   = (*SettingsRepository)(nil)
)
