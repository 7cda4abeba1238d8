package session

import (
	"context"
	"testing"
	"time"

	"github.com/folioworks/folio/pkg/users"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	defer store.Close()

	sess, _ := New(&users.User{ID: "u1"}, time.Hour)
	if err := store.Set(ctx, sess); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil || got == nil {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if got.UserID() != "u1" {
		t.Errorf("UserID = %q", got.UserID())
	}

	// Mutating the returned copy does not affect the stored session
	got.ExpiresAt = time.Time{}
	if again, _ := store.Get(ctx, sess.ID); again == nil {
		t.Error("stored session should be unaffected by caller mutation")
	}

	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := store.Get(ctx, sess.ID); got != nil {
		t.Error("session should be gone after Delete")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	defer store.Close()

	expired := &Session{ID: "old", ExpiresAt: time.Now().Add(-time.Second)}
	live := &Session{ID: "new", ExpiresAt: time.Now().Add(time.Hour)}
	store.Set(ctx, expired)
	store.Set(ctx, live)

	if got, _ := store.Get(ctx, "old"); got != nil {
		t.Error("expired session should not be returned")
	}
	if err := store.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}
	if n := store.Len(); n != 1 {
		t.Errorf("Len after Cleanup = %d, want 1", n)
	}
}

func TestMemoryStoreJanitor(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(5 * time.Millisecond)

	store.Set(ctx, &Session{ID: "old", ExpiresAt: time.Now().Add(-time.Second)})

	deadline := time.Now().Add(2 * time.Second)
	for store.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if store.Len() != 0 {
		t.Error("janitor should sweep expired sessions")
	}

	// Close stops the goroutine; goleak in TestMain verifies it.
	store.Close()
	store.Close()
}

func TestMemoryStateStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()

	state, err := store.Generate(ctx, time.Minute)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	ok, err := store.Validate(ctx, state)
	if err != nil || !ok {
		t.Fatalf("first Validate = %v, %v", ok, err)
	}
	if ok, _ := store.Validate(ctx, state); ok {
		t.Error("state tokens are single-use")
	}
	if ok, _ := store.Validate(ctx, "unknown"); ok {
		t.Error("unknown token should not validate")
	}

	expired, _ := store.Generate(ctx, -time.Second)
	if ok, _ := store.Validate(ctx, expired); ok {
		t.Error("expired token should not validate")
	}

	store.Generate(ctx, -time.Second)
	store.Cleanup(ctx)
	if len(store.states) != 0 {
		t.Errorf("Cleanup left %d tokens", len(store.states))
	}
}
