package server

import (
	"context"

	"kbase/internal/models"
)

type authContextKey struct{}

func contextWithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, authContextKey{}, user)
}

func userFromContext(ctx context.Context) (*models.User, bool) {
	if ctx == nil {
		return nil, false
	}
	user, ok := ctx.Value(authContextKey{}).(*models.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}
