package middleware

import (
	"context"

	"github.com/benvon/goalquest/internal/models"
	"github.com/benvon/goalquest/internal/request"
)

// SetUserInContext is a helper for tests in other packages that need an authenticated request
func SetUserInContext(ctx context.Context, user *models.User) context.Context {
	return request.WithUser(ctx, user)
}
