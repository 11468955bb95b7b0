package userctx

import (
	"context"
	"testing"
)

func TestWithAdmin(t *testing.T) {
	ctx := context.Background()
	if IsAdmin(ctx) {
		t.Fatal("empty context must not be admin")
	}
	if _, ok := GetUserID(ctx); ok {
		t.Fatal("empty context must not carry a user id")
	}

	ctx = WithAdmin(ctx, "admin")
	if !IsAdmin(ctx) {
		t.Fatal("expected admin context")
	}
	if id, ok := GetUserID(ctx); !ok || id != "admin" {
		t.Fatalf("expected user id admin, got %q", id)
	}

	if IsAdmin(WithUserID(context.Background(), "citizen")) {
		t.Fatal("plain user id must not imply admin")
	}
}
