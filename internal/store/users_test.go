package store

import (
	"context"
	"testing"
	"time"

	"kbase/internal/models"
)

func TestCreateAndGetUser(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	user := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	if err := st.CreateUser(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := st.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected user, got nil")
	}
	if got.ID != user.ID || got.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", got)
	}

	byID, err := st.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID == nil || byID.Username != "alice" {
		t.Fatalf("unexpected user by id: %+v", byID)
	}
}

func TestGetUserByUsernameMissing(t *testing.T) {
	st := testStore(t)

	got, err := st.GetUserByUsername(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	testUser(t, st, "alice")
	dup := &models.User{Username: "alice", Email: "other@example.com", PasswordHash: "x"}
	if err := st.CreateUser(ctx, dup); err == nil {
		t.Fatal("expected unique constraint error")
	}
}

func TestSetUserDisabled(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	id := testUser(t, st, "alice")
	if err := st.SetUserDisabled(ctx, id, true); err != nil {
		t.Fatalf("disable: %v", err)
	}
	got, err := st.GetUserByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Disabled {
		t.Fatal("expected user to be disabled")
	}

	if err := st.SetUserDisabled(ctx, "us-zzzzzz", true); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	userID := testUser(t, st, "alice")
	if err := st.CreateSession(ctx, userID, "tokenhash1", now.Add(time.Hour), now); err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := st.GetUserBySessionTokenHash(ctx, "tokenhash1", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("resolve session: %v", err)
	}
	if got == nil || got.ID != userID {
		t.Fatalf("expected user %s, got %+v", userID, got)
	}

	// Expired tokens resolve to nil.
	got, err = st.GetUserBySessionTokenHash(ctx, "tokenhash1", now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("resolve expired: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for expired session")
	}

	if err := st.RevokeSessionByTokenHash(ctx, "tokenhash1", now); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	got, err = st.GetUserBySessionTokenHash(ctx, "tokenhash1", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("resolve revoked: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for revoked session")
	}
}

func TestSessionDisabledUser(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	userID := testUser(t, st, "alice")
	if err := st.CreateSession(ctx, userID, "tokenhash1", now.Add(time.Hour), now); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := st.SetUserDisabled(ctx, userID, true); err != nil {
		t.Fatalf("disable: %v", err)
	}

	got, err := st.GetUserBySessionTokenHash(ctx, "tokenhash1", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for disabled user session")
	}
}

func TestPurgeExpiredSessions(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	userID := testUser(t, st, "alice")
	if err := st.CreateSession(ctx, userID, "live", now.Add(time.Hour), now); err != nil {
		t.Fatalf("create live session: %v", err)
	}
	if err := st.CreateSession(ctx, userID, "stale", now.Add(-time.Hour), now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("create stale session: %v", err)
	}

	purged, err := st.PurgeExpiredSessions(ctx, now)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged session, got %d", purged)
	}
}
