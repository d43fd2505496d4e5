// Package credentials keeps the AI provider key on the server side, in the
// environment or the OS keyring. It is never sent to clients.
package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// Service is the keyring service name
	Service = "goalquest"
	// APIKeyUser is the keyring account holding the AI provider key
	APIKeyUser = "openai-api-key"
)

var (
	// ErrNotFound is returned when no key is stored in the keyring
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Source names where a resolved key came from
type Source string

const (
	SourceNone    Source = "none"
	SourceEnv     Source = "env"
	SourceKeyring Source = "keyring"
)

// GetAPIKey retrieves the AI provider key from the OS keyring.
// Returns ErrNotFound if nothing is stored.
func GetAPIKey() (string, error) {
	key, err := keyring.Get(Service, APIKeyUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return key, nil
}

// SetAPIKey stores the AI provider key in the OS keyring
func SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("api key cannot be empty")
	}
	if err := keyring.Set(Service, APIKeyUser, key); err != nil {
		return fmt.Errorf("failed to store api key in keyring: %w", err)
	}
	return nil
}

// DeleteAPIKey removes the AI provider key from the OS keyring
func DeleteAPIKey() error {
	if err := keyring.Delete(Service, APIKeyUser); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete api key from keyring: %w", err)
	}
	return nil
}

// IsAvailable checks if the OS keyring can be used on this system.
// This is a best-effort probe.
func IsAvailable() bool {
	_, err := keyring.Get(Service, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}

// Resolve picks the AI provider key: the environment value wins, then the keyring.
// A missing or unavailable keyring is not an error; the assistant simply stays unconfigured.
func Resolve(envKey string) (string, Source) {
	if key := strings.TrimSpace(envKey); key != "" {
		return key, SourceEnv
	}
	key, err := GetAPIKey()
	if err != nil || strings.TrimSpace(key) == "" {
		return "", SourceNone
	}
	return strings.TrimSpace(key), SourceKeyring
}
