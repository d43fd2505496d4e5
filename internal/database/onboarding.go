package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/goalquest/internal/storage"
)

// OnboardingNamespace prefixes the per-user onboarding flag
const OnboardingNamespace = "onboarding-complete"

const onboardingDone = "true"

// OnboardingRepository stores the onboarding-complete flag
type OnboardingRepository struct {
	store storage.Store
}

// NewOnboardingRepository creates a new onboarding repository
func NewOnboardingRepository(store storage.Store) *OnboardingRepository {
	return &OnboardingRepository{store: store}
}

// IsComplete reports whether the user completed or skipped onboarding
func (r *OnboardingRepository) IsComplete(ctx context.Context, userID string) (bool, error) {
	v, err := r.store.Get(ctx, storage.Key(OnboardingNamespace, userID))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read onboarding flag: %w", err)
	}
	return string(v) == onboardingDone, nil
}

// MarkComplete sets the flag
func (r *OnboardingRepository) MarkComplete(ctx context.Context, userID string) error {
	if err := r.store.Set(ctx, storage.Key(OnboardingNamespace, userID), []byte(onboardingDone)); err != nil {
		return fmt.Errorf("failed to write onboarding flag: %w", err)
	}
	return nil
}
