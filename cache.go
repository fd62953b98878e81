package scootblog

import (
	"context"
	"sync"
	"time"
)

// PostCache is an in-memory cache of active posts with TTL, used by the
// feed and sitemap handlers so crawler traffic doesn't hit SQLite on every
// request. Mutating handlers call Invalidate.
type PostCache struct {
	mu      sync.RWMutex
	posts   []BlogPost
	fetched time.Time
	ttl     time.Duration
	store   *Store
}

// NewPostCache creates a PostCache backed by the given Store.
func NewPostCache(s *Store, ttl time.Duration) *PostCache {
	return &PostCache{store: s, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.mu.Unlock()
}

// ActivePosts returns all active posts ordered by publish date descending.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *PostCache) ActivePosts(ctx context.Context) ([]BlogPost, error) {
	c.mu.RLock()
	if c.valid() {
		posts := c.posts
		c.mu.RUnlock()
		return posts, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.posts, nil
	}
	active := true
	posts, err := c.store.List(ctx, ListFilter{Active: &active}, OrderPublished, 0, 0)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []BlogPost{}
	}
	c.posts = posts
	c.fetched = time.Now()
	return posts, nil
}
