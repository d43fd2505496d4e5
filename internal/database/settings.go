package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/benvon/goalquest/internal/models"
	"github.com/benvon/goalquest/internal/storage"
)

// SettingsNamespace prefixes the per-user settings key
const SettingsNamespace = "goaltracker-settings"

// SettingsRepository persists user preferences
type SettingsRepository struct {
	store storage.Store
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(store storage.Store) *SettingsRepository {
	return &SettingsRepository{store: store}
}

// Get returns the stored settings, or the defaults when none were saved
func (r *SettingsRepository) Get(ctx context.Context, userID string) (*models.UserSettings, error) {
	data, err := r.store.Get(ctx, storage.Key(SettingsNamespace, userID))
	if errors.Is(err, storage.ErrNotFound) {
		s := models.DefaultUserSettings()
		return &s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	s := models.DefaultUserSettings()
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return &s, nil
}

// Put stores the settings
func (r *SettingsRepository) Put(ctx context.Context, userID string, settings *models.UserSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := r.store.Set(ctx, storage.Key(SettingsNamespace, userID), data); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
