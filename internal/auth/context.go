package auth

import (
	"context"

	"github.com/fdg312/cityfix/internal/userctx"
)

func WithAdmin(ctx context.Context, subject string) context.Context {
	return userctx.WithAdmin(ctx, subject)
}

func IsAdmin(ctx context.Context) bool {
	return userctx.IsAdmin(ctx)
}
