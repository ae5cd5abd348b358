package cache

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/sift"
)

func TestMemoryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute))

	req := &sift.ScopeRequest{Action: "read", Subject: "Post", Revision: 1}
	scope := &sift.Scope{Subject: "Post", Action: "read", Predicate: sift.True()}

	// Miss
	_, ok := c.Get(ctx, "t1", req)
	if ok {
		t.Fatal("expected cache miss")
	}

	// Set + Hit
	c.Set(ctx, "t1", req, scope)
	got, ok := c.Get(ctx, "t1", req)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !got.MatchesEverything() {
		t.Fatal("expected match-everything scope")
	}
}

func TestMemoryCacheRevisionMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute))

	req := &sift.ScopeRequest{Action: "read", Subject: "Post", Revision: 1}
	c.Set(ctx, "t1", req, &sift.Scope{Predicate: sift.True()})

	// A bumped revision must not serve the stale scope.
	stale := &sift.ScopeRequest{Action: "read", Subject: "Post", Revision: 2}
	if _, ok := c.Get(ctx, "t1", stale); ok {
		t.Fatal("expected miss for newer revision")
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(1 * time.Millisecond))

	req := &sift.ScopeRequest{Action: "read", Subject: "Post"}
	c.Set(ctx, "t1", req, &sift.Scope{Predicate: sift.False()})
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(ctx, "t1", req)
	if ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestMemoryCacheInvalidateTenant(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	req1 := &sift.ScopeRequest{Action: "read", Subject: "Post"}
	req2 := &sift.ScopeRequest{Action: "update", Subject: "Comment"}

	c.Set(ctx, "t1", req1, &sift.Scope{Predicate: sift.True()})
	c.Set(ctx, "t1", req2, &sift.Scope{Predicate: sift.False()})
	c.Set(ctx, "t2", req1, &sift.Scope{Predicate: sift.True()})

	c.InvalidateTenant(ctx, "t1")

	if _, ok := c.Get(ctx, "t1", req1); ok {
		t.Fatal("t1 req1 should be invalidated")
	}
	if _, ok := c.Get(ctx, "t1", req2); ok {
		t.Fatal("t1 req2 should be invalidated")
	}
	if _, ok := c.Get(ctx, "t2", req1); !ok {
		t.Fatal("t2 req1 should still be cached")
	}
}

func TestMemoryCacheInvalidateSubject(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	req1 := &sift.ScopeRequest{Action: "read", Subject: "Post"}
	req2 := &sift.ScopeRequest{Action: "read", Subject: "Comment"}

	c.Set(ctx, "t1", req1, &sift.Scope{Predicate: sift.True()})
	c.Set(ctx, "t1", req2, &sift.Scope{Predicate: sift.True()})

	c.InvalidateSubject(ctx, "t1", "Post")

	if _, ok := c.Get(ctx, "t1", req1); ok {
		t.Fatal("Post should be invalidated")
	}
	if _, ok := c.Get(ctx, "t1", req2); !ok {
		t.Fatal("Comment should still be cached")
	}
}

func TestMemoryCacheMaxSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithMaxSize(2))

	for i := 0; i < 5; i++ {
		req := &sift.ScopeRequest{Action: "read", Subject: "Post", Revision: uint64(i)}
		c.Set(ctx, "t1", req, &sift.Scope{Predicate: sift.True()})
	}

	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()
	if size > 2 {
		t.Fatalf("expected max 2 entries, got %d", size)
	}
}
