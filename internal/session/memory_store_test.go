package session

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	exp := time.Now().Add(time.Hour)

	for _, s := range []Session{
		{SessionID: "s1", UserID: "alice", ExpiresAt: exp},
		{SessionID: "s2", UserID: "alice", ExpiresAt: exp},
		{SessionID: "s3", UserID: "bob", ExpiresAt: exp},
	} {
		if err := store.Create(ctx, s); err != nil {
			t.Fatalf("create %s: %v", s.SessionID, err)
		}
	}

	got, err := store.Get(ctx, "s1")
	if err != nil || got == nil || got.UserID != "alice" {
		t.Fatalf("get s1 = %+v, %v", got, err)
	}

	if err := store.DeleteUser(ctx, "alice"); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	for _, id := range []string{"s1", "s2"} {
		if got, _ := store.Get(ctx, id); got != nil {
			t.Fatalf("session %s survived user revocation", id)
		}
	}
	if got, _ := store.Get(ctx, "s3"); got == nil {
		t.Fatal("unrelated session revoked")
	}

	if err := store.Delete(ctx, "s3"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := store.Get(ctx, "s3"); got != nil {
		t.Fatal("session survived delete")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	if err := store.Create(ctx, Session{SessionID: "old", UserID: "u", ExpiresAt: now.Add(-time.Second)}); err == nil {
		t.Fatal("expected error creating expired session")
	}

	if err := store.Create(ctx, Session{SessionID: "s", UserID: "u", ExpiresAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	store.now = func() time.Time { return now.Add(2 * time.Minute) }
	if got, _ := store.Get(ctx, "s"); got != nil {
		t.Fatal("expired session returned")
	}
}
