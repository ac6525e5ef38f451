// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// tree.go provides a Valkey-backed cache of category forests. Reading a
// tree costs a full scan of the kind plus a rebuild, so the JSON form of
// each kind's forest is kept until a mutation invalidates it.
//
// Entries are stamped with a per-kind generation. Invalidate bumps the
// generation, so a forest read from the database before a mutation and
// stored after it lands under a dead key instead of shadowing the change.
package cache

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"facilityconsole/internal/models"
)

const (
	// treeKeyPrefix is the Valkey key prefix for cached category forests.
	treeKeyPrefix = "categories:tree:"

	// DefaultTreeTTL is how long a forest stays cached without mutations.
	DefaultTreeTTL = 10 * time.Minute
)

// TreeCache manages category forest caching in Valkey.
type TreeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTreeCache creates a new tree cache backed by the given Valkey client.
func NewTreeCache(client *redis.Client, ttl time.Duration) *TreeCache {
	if ttl == 0 {
		ttl = DefaultTreeTTL
	}
	return &TreeCache{client: client, ttl: ttl}
}

// TreeKey returns the cache key for a kind's forest at generation gen.
func TreeKey(kind models.CategoryKind, gen int64) string {
	return treeKeyPrefix + string(kind) + ":" + strconv.FormatInt(gen, 10)
}

// GenerationKey returns the key holding a kind's current generation.
func GenerationKey(kind models.CategoryKind) string {
	return treeKeyPrefix + string(kind) + ":gen"
}

// Get retrieves the cached forest for a kind together with the generation
// it was looked up under. On a miss the generation is still returned and
// must be passed to Set. Errors count as misses; a generation that cannot
// be read is reported as -1, which Set ignores.
func (tc *TreeCache) Get(ctx context.Context, kind models.CategoryKind) ([]models.Category, int64, bool) {
	gen, err := tc.client.Get(ctx, GenerationKey(kind)).Int64()
	if err == redis.Nil {
		gen = 0
	} else if err != nil {
		slog.Warn("tree cache generation error", "kind", kind, "error", err)
		return nil, -1, false
	}

	val, err := tc.client.Get(ctx, TreeKey(kind, gen)).Bytes()
	if err == redis.Nil {
		return nil, gen, false
	}
	if err != nil {
		slog.Warn("tree cache get error", "kind", kind, "error", err)
		return nil, gen, false
	}

	var forest []models.Category
	if err := json.Unmarshal(val, &forest); err != nil {
		slog.Warn("tree cache decode error", "kind", kind, "error", err)
		return nil, gen, false
	}
	slog.Debug("tree cache hit", "kind", kind, "gen", gen)
	return forest, gen, true
}

// Set stores the forest for a kind under generation gen with the
// configured TTL. If the kind was invalidated since gen was read, the
// entry is never looked up again and simply expires.
func (tc *TreeCache) Set(ctx context.Context, kind models.CategoryKind, gen int64, forest []models.Category) {
	if gen < 0 {
		return
	}
	data, err := json.Marshal(forest)
	if err != nil {
		slog.Warn("tree cache encode error", "kind", kind, "error", err)
		return
	}
	if err := tc.client.Set(ctx, TreeKey(kind, gen), data, tc.ttl).Err(); err != nil {
		slog.Warn("tree cache set error", "kind", kind, "error", err)
	}
}

// Invalidate moves a kind to a new generation and drops the forest cached
// under the previous one.
func (tc *TreeCache) Invalidate(ctx context.Context, kind models.CategoryKind) {
	gen, err := tc.client.Incr(ctx, GenerationKey(kind)).Result()
	if err != nil {
		slog.Warn("tree cache invalidate error", "kind", kind, "error", err)
		return
	}
	if err := tc.client.Del(ctx, TreeKey(kind, gen-1)).Err(); err != nil {
		slog.Warn("tree cache delete error", "kind", kind, "error", err)
	}
	slog.Debug("tree cache invalidated", "kind", kind, "gen", gen)
}

// InvalidateAll invalidates every kind. Used after seeding, which may
// touch several trees.
func (tc *TreeCache) InvalidateAll(ctx context.Context) {
	for _, kind := range models.CategoryKinds {
		tc.Invalidate(ctx, kind)
	}
	slog.Info("tree cache cleared", "kinds", len(models.CategoryKinds))
}
