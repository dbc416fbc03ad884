// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// tree.go caches assembled category trees in Valkey. A module's trees are
// rebuilt from PostgreSQL after any category write invalidates them.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"guidebook/internal/models"
	"guidebook/internal/telemetry"
)

const (
	treeKeyPrefix = "tree:"
	genKeyPrefix  = "treegen:"

	// DefaultTreeTTL is how long an assembled tree stays cached.
	DefaultTreeTTL = 5 * time.Minute
)

var errStaleTree = errors.New("cache: tree built before the latest invalidation")

// Tree is a cached category listing: the assembled forest plus the number
// of flat rows it was built from.
type Tree struct {
	Roots []models.CategoryNode `json:"roots"`
	Total int                   `json:"total"`
}

// TreeCache stores category trees per module and visibility. A nil
// *TreeCache or one without a client is valid and never hits.
//
// Each module has a generation counter that Invalidate bumps. A reader
// takes the generation before querying the database and hands it to Set,
// which drops the tree if a write invalidated the module in between.
type TreeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTreeCache creates a tree cache backed by the given Valkey client.
// client may be nil, in which case every lookup misses.
func NewTreeCache(client *redis.Client, ttl time.Duration) *TreeCache {
	if ttl <= 0 {
		ttl = DefaultTreeTTL
	}
	return &TreeCache{client: client, ttl: ttl}
}

// TreeKey returns the cache key for a module's tree.
func TreeKey(moduleID int64, includeInactive bool) string {
	scope := "active"
	if includeInactive {
		scope = "all"
	}
	return fmt.Sprintf("%s%d:%s", treeKeyPrefix, moduleID, scope)
}

func genKey(moduleID int64) string {
	return fmt.Sprintf("%s%d", genKeyPrefix, moduleID)
}

func (tc *TreeCache) enabled() bool {
	return tc != nil && tc.client != nil
}

// Get returns the cached tree for a module, if present.
func (tc *TreeCache) Get(ctx context.Context, moduleID int64, includeInactive bool) (*Tree, bool) {
	if !tc.enabled() {
		return nil, false
	}

	key := TreeKey(moduleID, includeInactive)
	val, err := tc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		telemetry.TreeCacheRequestsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		telemetry.TreeCacheRequestsTotal.WithLabelValues("error").Inc()
		slog.Warn("tree cache get error", "key", key, "error", err)
		return nil, false
	}

	var tree Tree
	if err := json.Unmarshal(val, &tree); err != nil {
		telemetry.TreeCacheRequestsTotal.WithLabelValues("error").Inc()
		slog.Warn("tree cache decode error", "key", key, "error", err)
		return nil, false
	}
	telemetry.TreeCacheRequestsTotal.WithLabelValues("hit").Inc()
	slog.Debug("tree cache hit", "key", key)
	return &tree, true
}

// Generation returns the module's current invalidation counter. Call it
// before reading the rows a tree will be built from.
func (tc *TreeCache) Generation(ctx context.Context, moduleID int64) int64 {
	if !tc.enabled() {
		return 0
	}
	gen, err := tc.client.Get(ctx, genKey(moduleID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		slog.Warn("tree cache generation error", "module_id", moduleID, "error", err)
	}
	return gen
}

// Set stores a module's tree with the configured TTL, unless the module
// was invalidated after gen was read. Failures are logged and otherwise
// ignored.
func (tc *TreeCache) Set(ctx context.Context, moduleID int64, includeInactive bool, gen int64, tree *Tree) {
	if !tc.enabled() {
		return
	}

	key := TreeKey(moduleID, includeInactive)
	data, err := json.Marshal(tree)
	if err != nil {
		slog.Warn("tree cache encode error", "key", key, "error", err)
		return
	}

	gk := genKey(moduleID)
	err = tc.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleTree
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, tc.ttl)
			return nil
		})
		return err
	}, gk)

	switch {
	case err == nil:
	case errors.Is(err, errStaleTree), errors.Is(err, redis.TxFailedErr):
		slog.Debug("tree cache set skipped, module invalidated during read", "key", key)
	default:
		slog.Warn("tree cache set error", "key", key, "error", err)
	}
}

// Invalidate removes both visibility variants of the given modules' trees
// and bumps their generations.
func (tc *TreeCache) Invalidate(ctx context.Context, moduleIDs ...int64) {
	if !tc.enabled() || len(moduleIDs) == 0 {
		return
	}

	_, err := tc.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range moduleIDs {
			pipe.Incr(ctx, genKey(id))
			pipe.Del(ctx, TreeKey(id, false), TreeKey(id, true))
		}
		return nil
	})
	if err != nil {
		slog.Warn("tree cache invalidate error", "modules", moduleIDs, "error", err)
		return
	}
	slog.Debug("tree cache invalidated", "modules", moduleIDs)
}

// InvalidateAll removes every cached tree by scanning for the prefix.
func (tc *TreeCache) InvalidateAll(ctx context.Context) {
	if !tc.enabled() {
		return
	}

	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := tc.client.Scan(ctx, cursor, treeKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("tree cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := tc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("tree cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("tree cache fully cleared", "deleted", deleted)
	}
}
