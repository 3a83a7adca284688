package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/replaysMike/Binner-sub003/internal/bom/dto"
	"github.com/replaysMike/Binner-sub003/internal/bom/events"
)

// SnapshotCache caches computed BOM snapshots per user and project.
//
// Get returns the cache version it read; Set must be given that version so a
// snapshot computed before an invalidation is never served after it.
type SnapshotCache interface {
	Get(ctx context.Context, userID string, projectID int64) (snapshot *dto.BomResponse, version string, ok bool)
	Set(ctx context.Context, userID string, projectID int64, version string, snapshot *dto.BomResponse)
	Invalidate(ctx context.Context, userID string)
}

// NewSnapshotCache returns a Redis cache, or a no-op cache when rdb is nil.
func NewSnapshotCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) SnapshotCache {
	if rdb == nil {
		return noopCache{}
	}
	return &redisSnapshotCache{rdb: rdb, ttl: ttl, logger: logger}
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, int64) (*dto.BomResponse, string, bool) {
	return nil, "", false
}
func (noopCache) Set(context.Context, string, int64, string, *dto.BomResponse) {}
func (noopCache) Invalidate(context.Context, string)                           {}

type redisSnapshotCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func versionKey(userID string) string {
	return "binner:bom:version:" + userID
}

func snapshotKey(userID, version string, projectID int64) string {
	return fmt.Sprintf("binner:bom:snapshot:%s:%s:%d", userID, version, projectID)
}

func (c *redisSnapshotCache) version(ctx context.Context, userID string) (string, error) {
	v, err := c.rdb.Get(ctx, versionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return v, err
}

func (c *redisSnapshotCache) Get(ctx context.Context, userID string, projectID int64) (*dto.BomResponse, string, bool) {
	version, err := c.version(ctx, userID)
	if err != nil {
		c.logger.Warn("snapshot cache version lookup failed", zap.Error(err))
		return nil, "", false
	}
	data, err := c.rdb.Get(ctx, snapshotKey(userID, version, projectID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("snapshot cache get failed", zap.Error(err))
		}
		return nil, version, false
	}
	var snapshot dto.BomResponse
	if err := json.Unmarshal(data, &snapshot); err != nil {
		c.logger.Warn("snapshot cache entry unreadable", zap.Error(err))
		return nil, version, false
	}
	return &snapshot, version, true
}

func (c *redisSnapshotCache) Set(ctx context.Context, userID string, projectID int64, version string, snapshot *dto.BomResponse) {
	if version == "" {
		return
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, snapshotKey(userID, version, projectID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("snapshot cache set failed", zap.Error(err))
	}
}

func (c *redisSnapshotCache) Invalidate(ctx context.Context, userID string) {
	if err := c.rdb.Incr(ctx, versionKey(userID)).Err(); err != nil {
		c.logger.Warn("snapshot cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// changeNotifier runs after every committed mutation: it drops the user's
// cached snapshots and tells their open event streams what changed.
type changeNotifier struct {
	cache SnapshotCache
	hub   *events.Hub
}

func (n changeNotifier) changed(ctx context.Context, userID string, projectID int64, action string) {
	n.cache.Invalidate(ctx, userID)
	if n.hub != nil {
		n.hub.Publish(userID, events.Change{ProjectID: projectID, Action: action})
	}
}
