// Package cache holds read projections that can be rebuilt from the database at any time.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/yigit/hostelhub/internal/app/models/dto"
)

const roomViewKeyPrefix = "hostelhub:room:"

// RedisRoomCache stores room views in redis as JSON. Errors are logged and treated as misses.
type RedisRoomCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisRoomCache creates a room view cache on top of rdb
func NewRedisRoomCache(rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisRoomCache {
	return &RedisRoomCache{rdb: rdb, ttl: ttl, logger: logger}
}

func roomViewKey(roomID int64) string {
	return fmt.Sprintf("%s%d", roomViewKeyPrefix, roomID)
}

// Get returns the cached view of a room
func (c *RedisRoomCache) Get(ctx context.Context, roomID int64) (*dto.RoomView, bool) {
	data, err := c.rdb.Get(ctx, roomViewKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Int64("roomID", roomID).Msg("Room view cache read failed")
		return nil, false
	}

	var view dto.RoomView
	if err := json.Unmarshal(data, &view); err != nil {
		c.logger.Warn().Err(err).Int64("roomID", roomID).Msg("Discarding malformed room view")
		c.Invalidate(ctx, roomID)
		return nil, false
	}
	return &view, true
}

// Set stores a room view until the TTL expires or the ledger invalidates it
func (c *RedisRoomCache) Set(ctx context.Context, view dto.RoomView) {
	data, err := json.Marshal(view)
	if err != nil {
		c.logger.Warn().Err(err).Int64("roomID", view.ID).Msg("Room view encode failed")
		return
	}
	if err := c.rdb.Set(ctx, roomViewKey(view.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Int64("roomID", view.ID).Msg("Room view cache write failed")
	}
}

// Invalidate drops the cached view of a room
func (c *RedisRoomCache) Invalidate(ctx context.Context, roomID int64) {
	if err := c.rdb.Del(ctx, roomViewKey(roomID)).Err(); err != nil {
		c.logger.Warn().Err(err).Int64("roomID", roomID).Msg("Room view cache invalidation failed")
	}
}

// NoopRoomCache is used when redis is not configured
type NoopRoomCache struct{}

func (NoopRoomCache) Get(context.Context, int64) (*dto.RoomView, bool) { return nil, false }
func (NoopRoomCache) Set(context.Context, dto.RoomView) {}
func (NoopRoomCache) Invalidate(context.Context, int64) {}

// ConnectRedis opens a client and pings it
func ConnectRedis(ctx context.Context, addr, username, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}
