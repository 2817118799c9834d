// infrastructure/redis_cache.go
package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vitovidale/video-notes-service/domain"
)

// ConnectRedis parses url and pings the server.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// CachedMetadataLookup keeps lookups in Redis. Cache errors are logged and fall through to Next.
type CachedMetadataLookup struct {
	Next   domain.MetadataLookup
	Redis  *redis.Client
	TTL    time.Duration
	Logger *zap.Logger
}

func NewCachedMetadataLookup(next domain.MetadataLookup, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedMetadataLookup {
	return &CachedMetadataLookup{Next: next, Redis: rdb, TTL: ttl, Logger: logger}
}

func metadataKey(videoID string) string {
	return "video-notes:metadata:" + videoID
}

func (c *CachedMetadataLookup) Lookup(ctx context.Context, videoID string) (*domain.VideoInfo, error) {
	key := metadataKey(videoID)
	cached, err := c.Redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var info domain.VideoInfo
		if jerr := json.Unmarshal(cached, &info); jerr == nil {
			return &info, nil
		}
	case !errors.Is(err, redis.Nil):
		c.Logger.Warn("metadata cache read failed", zap.String("video_id", videoID), zap.Error(err))
	}

	info, err := c.Next.Lookup(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if data, jerr := json.Marshal(info); jerr == nil {
		if serr := c.Redis.Set(ctx, key, data, c.TTL).Err(); serr != nil {
			c.Logger.Warn("metadata cache write failed", zap.String("video_id", videoID), zap.Error(serr))
		}
	}
	return info, nil
}
