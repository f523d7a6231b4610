package middleware

import (
	"context"

	"github.com/stocktrail/stocktrail-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxUsername contextKey = "username"
	ctxRoles    contextKey = "roles"
)

func UserIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxUserID).(int64); ok {
		return v
	}
	return 0
}

func UsernameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUsername).(string); ok {
		return v
	}
	return ""
}

func RolesFromContext(ctx context.Context) []enums.Role {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxRoles).([]enums.Role); ok {
		return v
	}
	return nil
}

// HasRole reports whether the authenticated caller carries the role.
func HasRole(ctx context.Context, role enums.Role) bool {
	for _, r := range RolesFromContext(ctx) {
		if r == role {
			return true
		}
	}
	return false
}

// WithIdentity seeds the context with the caller identity. Exported for
// handler tests.
func WithIdentity(ctx context.Context, userID int64, username string, roles []enums.Role) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxUsername, username)
	return context.WithValue(ctx, ctxRoles, roles)
}
