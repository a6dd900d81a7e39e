package cache

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/aegis"
)

func testActor(userID string, perms ...string) *aegis.Actor {
	return &aegis.Actor{UserID: userID, Role: "editor", Permissions: perms}
}

func TestMemoryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute))

	if _, ok := c.Get(ctx, "usr_1"); ok {
		t.Fatal("expected cache miss")
	}

	c.Set(ctx, testActor("usr_1", "news:read"))
	got, ok := c.Get(ctx, "usr_1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Role != "editor" || len(got.Permissions) != 1 {
		t.Fatalf("unexpected actor: %+v", got)
	}
}

func TestMemoryCacheReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	a := testActor("usr_1", "news:read")
	c.Set(ctx, a)
	a.Permissions[0] = "news:delete"

	got, _ := c.Get(ctx, "usr_1")
	if got.Permissions[0] != "news:read" {
		t.Fatal("cache must not alias the caller's slice")
	}
	got.Permissions[0] = "news:delete"
	again, _ := c.Get(ctx, "usr_1")
	if again.Permissions[0] != "news:read" {
		t.Fatal("cache must not hand out its own slice")
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute))
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set(ctx, testActor("usr_1"))
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get(ctx, "usr_1"); ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
	if c.Len() != 0 {
		t.Fatal("expected expired entry removed")
	}
}

func TestMemoryCacheZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(0))
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set(ctx, testActor("usr_1"))
	now = now.Add(24 * time.Hour)
	if _, ok := c.Get(ctx, "usr_1"); !ok {
		t.Fatal("expected entry without TTL to survive")
	}
}

func TestMemoryCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, testActor("usr_1"))
	c.Set(ctx, testActor("usr_2"))

	c.InvalidateUser(ctx, "usr_1")
	if _, ok := c.Get(ctx, "usr_1"); ok {
		t.Fatal("expected usr_1 invalidated")
	}
	if _, ok := c.Get(ctx, "usr_2"); !ok {
		t.Fatal("expected usr_2 to remain")
	}

	c.InvalidateAll(ctx)
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Len())
	}
}

func TestMemoryCacheMaxSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithMaxSize(2))

	c.Set(ctx, testActor("usr_1"))
	c.Set(ctx, testActor("usr_2"))
	c.Set(ctx, testActor("usr_3"))

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	if _, ok := c.Get(ctx, "usr_3"); !ok {
		t.Fatal("newest entry must be kept")
	}

	// Overwriting an existing key does not evict.
	c.Set(ctx, testActor("usr_3", "news:read"))
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries after overwrite, got %d", c.Len())
	}
}

func TestMemoryCacheIgnoresAnonymousActor(t *testing.T) {
	c := NewMemory()
	c.Set(context.Background(), &aegis.Actor{Role: "admin"})
	c.Set(context.Background(), nil)
	if c.Len() != 0 {
		t.Fatal("actors without a user id must not be cached")
	}
}
