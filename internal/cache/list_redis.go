package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/todohub/internal/domain/todo"
	"github.com/geocoder89/todohub/internal/utils"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// RedisListCache shares todo listings across API instances.
// Failures degrade to cache misses and are logged at debug.
type RedisListCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	genTTL time.Duration
	log    *slog.Logger
}

func NewRedisListCache(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *RedisListCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	// generation keys must outlive every list key written under them
	genTTL := 24 * time.Hour
	if genTTL < 10*ttl {
		genTTL = 10 * ttl
	}

	return &RedisListCache{rdb: rdb, ttl: ttl, genTTL: genTTL, log: log}
}

func (c *RedisListCache) generation(ctx context.Context, userID string) (int64, error) {
	gen, err := c.rdb.Get(ctx, utils.BuildTodosGenerationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisListCache) Get(ctx context.Context, userID string, f todo.Filter) ([]todo.Todo, int64, bool) {
	gen, err := c.generation(ctx, userID)
	if err != nil {
		c.log.DebugContext(ctx, "redis get generation failed", "err", err)
		return nil, -1, false
	}

	b, err := c.rdb.Get(ctx, utils.BuildTodosListCacheKey(userID, gen, f.Key())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false
	}
	if err != nil {
		c.log.DebugContext(ctx, "redis get todos failed", "err", err)
		return nil, gen, false
	}

	var items []todo.Todo
	if err := json.Unmarshal(b, &items); err != nil {
		c.log.DebugContext(ctx, "redis unmarshal todos failed", "err", err)
		return nil, gen, false
	}

	return items, gen, true
}

func (c *RedisListCache) Set(ctx context.Context, userID string, f todo.Filter, gen int64, items []todo.Todo) {
	// generation unknown, the read degraded
	if gen < 0 {
		return
	}

	b, err := json.Marshal(items)
	if err != nil {
		c.log.DebugContext(ctx, "marshal todos for cache failed", "err", err)
		return
	}

	if err := c.rdb.Set(ctx, utils.BuildTodosListCacheKey(userID, gen, f.Key()), b, c.ttl).Err(); err != nil {
		c.log.DebugContext(ctx, "redis set todos failed", "err", err)
	}
}

// InvalidateOwner bumps the owner's generation so every older listing key is unreachable.
func (c *RedisListCache) InvalidateOwner(ctx context.Context, userID string) {
	key := utils.BuildTodosGenerationKey(userID)

	pipe := c.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, c.genTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		c.log.WarnContext(ctx, "redis invalidate todos failed", "err", err, "user_id", userID)
	}
}

func (c *RedisListCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
