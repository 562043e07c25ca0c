package userctx

import "context"

// Roles carried by access tokens. Dieticians manage rosters and plans;
// clients may only read what has been published for them.
const (
	RoleDietician = "dietician"
	RoleClient    = "client"
)

type contextKey string

const (
	userIDContextKey contextKey = "user_id"
	roleContextKey   contextKey = "role"
)

func WithUser(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, userIDContextKey, userID)
	return context.WithValue(ctx, roleContextKey, role)
}

func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok
}

func GetRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(roleContextKey).(string)
	return role, ok
}

// IsClient reports whether the current request carries a client token.
func IsClient(ctx context.Context) bool {
	role, ok := GetRole(ctx)
	return ok && role == RoleClient
}
