package models

import (
	"time"
)

// User represents an authenticated user as seen by the ledger.
// ID is the identity provider subject and keys all per-user storage.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns the first name or the given fallback
func (u *User) DisplayName(fallback string) string {
	if u == nil || u.FirstName == "" {
		return fallback
	}
	return u.FirstName
}
