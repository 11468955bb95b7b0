package userctx

import "context"

type contextKey string

const (
	userIDContextKey contextKey = "user_id"
	adminContextKey  contextKey = "admin"
)

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok
}

// WithAdmin marks the request as made by an authenticated administrator.
func WithAdmin(ctx context.Context, subject string) context.Context {
	ctx = WithUserID(ctx, subject)
	return context.WithValue(ctx, adminContextKey, true)
}

func IsAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(adminContextKey).(bool)
	return admin
}
