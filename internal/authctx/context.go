// Package authctx carries the authenticated user through a request
// context.
package authctx

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// UserContextKey is the request context key for the authenticated user.
type UserContextKey struct{}

// WithUserID stores the user ID in the context.
func WithUserID(ctx context.Context, userID snowflake.ID) context.Context {
	return context.WithValue(ctx, UserContextKey{}, userID)
}

// UserIDFromContext returns the user ID from context, if set.
func UserIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	id, ok := ctx.Value(UserContextKey{}).(snowflake.ID)
	return id, ok
}
