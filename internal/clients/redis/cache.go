package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/breakdown-backend/internal/logger"
	"github.com/yungbote/breakdown-backend/internal/utils"
)

// DICacheKey builds the cache key for a document intelligence result. Results
// are only reusable for the same bytes, the same model, and the same backend
// version, since any of the three changes the output shape.
func DICacheKey(fileHashSHA256, model, backendVersion string) string {
	return fmt.Sprintf("di:%s:%s:%s", fileHashSHA256, model, backendVersion)
}

// Cache is a JSON value cache with per-entry TTL. A cache miss is never an
// error; callers fall through to the expensive path.
type Cache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	PutJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Close() error
}

type cache struct {
	log        *logger.Logger
	rdb        *goredis.Client
	defaultTTL time.Duration
}

func NewCache(log *logger.Logger) (Cache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", log))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ttlHours := utils.GetEnvAsInt("DI_CACHE_TTL_HOURS", 24, log)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &cache{
		log:        log.With("service", "RedisCache"),
		rdb:        rdb,
		defaultTTL: time.Duration(ttlHours) * time.Hour,
	}, nil
}

func (c *cache) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	if c == nil || c.rdb == nil {
		return false, fmt.Errorf("redis cache not initialized")
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		// A corrupt entry behaves like a miss; the writer will overwrite it.
		c.log.Warn("dropping corrupt cache entry", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

func (c *cache) PutJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis cache not initialized")
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, ttl).Err()
}

func (c *cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
