package scootblog

import (
	"context"
	"testing"
	"time"
)

func TestPostCacheReturnsActiveOnly(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	mustUpsert(t, s, testPost("live", "Live", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	draft := testPost("draft", "Draft", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	draft.IsActive = false
	mustUpsert(t, s, draft)

	cache := NewPostCache(s, time.Minute)
	posts, err := cache.ActivePosts(ctx)
	if err != nil {
		t.Fatalf("ActivePosts failed: %v", err)
	}
	if len(posts) != 1 || posts[0].Slug != "live" {
		t.Errorf("ActivePosts = %v, want just the active post", slugsOf(posts))
	}
}

func TestPostCacheServesStaleUntilInvalidated(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	mustUpsert(t, s, testPost("one", "One", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	cache := NewPostCache(s, time.Minute)
	if _, err := cache.ActivePosts(ctx); err != nil {
		t.Fatalf("ActivePosts failed: %v", err)
	}

	mustUpsert(t, s, testPost("two", "Two", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))

	posts, err := cache.ActivePosts(ctx)
	if err != nil {
		t.Fatalf("ActivePosts failed: %v", err)
	}
	if len(posts) != 1 {
		t.Errorf("cached count = %d, want 1 (stale until invalidated)", len(posts))
	}

	cache.Invalidate()
	posts, err = cache.ActivePosts(ctx)
	if err != nil {
		t.Fatalf("ActivePosts after Invalidate failed: %v", err)
	}
	if len(posts) != 2 {
		t.Errorf("count after Invalidate = %d, want 2", len(posts))
	}
}

func TestPostCacheEmptyStore(t *testing.T) {
	s := setupTestStore(t)

	cache := NewPostCache(s, time.Minute)
	posts, err := cache.ActivePosts(context.Background())
	if err != nil {
		t.Fatalf("ActivePosts failed: %v", err)
	}
	if posts == nil {
		t.Errorf("ActivePosts = nil, want empty non-nil slice")
	}
	if len(posts) != 0 {
		t.Errorf("count = %d, want 0", len(posts))
	}
}
