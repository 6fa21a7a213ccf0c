package redis

import (
	"context"
	"errors"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/catalog"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

// TreeCache implements catalog.Cache on top of the generic Redis Cache.
// A tree is cached together with its ordered node list so the tree detail
// read path resolves with a single cache hit.
type TreeCache struct {
	cache *Cache
}

// NewTreeCache creates a new TreeCache.
func NewTreeCache(cache *Cache) *TreeCache {
	return &TreeCache{
		cache: cache,
	}
}

// GetTree fetches a cached tree with nodes. Returns shared.ErrNotFound on a miss.
func (c *TreeCache) GetTree(ctx context.Context, treeID shared.TreeID) (*catalog.TreeWithNodes, error) {
	var tw catalog.TreeWithNodes
	key := TreeKey(treeID.Int64())
	if err := c.cache.Get(ctx, key, &tw); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tw, nil
}

// SetTree stores a tree with nodes in the cache.
func (c *TreeCache) SetTree(ctx context.Context, tw *catalog.TreeWithNodes, ttl time.Duration) error {
	if tw == nil || tw.Tree == nil {
		return nil
	}
	key := TreeKey(tw.Tree.ID.Int64())
	return c.cache.Set(ctx, key, tw, ttl)
}

// InvalidateTree removes a cached tree.
func (c *TreeCache) InvalidateTree(ctx context.Context, treeID shared.TreeID) error {
	return c.cache.Delete(ctx, TreeKey(treeID.Int64()))
}

// InvalidateAllTrees clears every cached tree, for catalog re-imports.
func (c *TreeCache) InvalidateAllTrees(ctx context.Context) error {
	return c.cache.DeleteByPattern(ctx, PrefixTree+"*")
}
