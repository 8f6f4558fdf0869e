package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/todohub/internal/cache"
	"github.com/geocoder89/todohub/internal/config"
	"github.com/geocoder89/todohub/internal/db"
	httpx "github.com/geocoder89/todohub/internal/http"
	"github.com/geocoder89/todohub/internal/http/handlers"
	"github.com/geocoder89/todohub/internal/observability"
	"github.com/geocoder89/todohub/internal/repo/memory"
	"github.com/geocoder89/todohub/internal/repo/mongodb"
	"github.com/geocoder89/todohub/internal/repo/postgres"
	"github.com/geocoder89/todohub/internal/todos"
)

// stores bundles the record stores chosen by STORE_DRIVER and how to release them.
type stores struct {
	users  httpx.UserStore
	todos  todos.Store
	checks []handlers.Pinger
	close  func(ctx context.Context)
}

func openStores(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{
			URL:             cfg.DBURL,
			MaxConns:        cfg.DBMaxConns,
			ConnectAttempts: 5,
			RetryDelay:      2 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		if cfg.DBAutoMigrate {
			if err := db.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
			log.Info("postgres migrations applied")
		}

		return &stores{
			users:  postgres.NewUsersRepo(pool, prom),
			todos:  postgres.NewTodosRepo(pool, prom),
			checks: []handlers.Pinger{{Name: "postgres", Ping: pool.Ping}},
			close:  func(context.Context) { pool.Close() },
		}, nil

	case config.StoreDriverMongo:
		store, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}

		return &stores{
			users:  mongodb.NewUsersRepo(store, prom),
			todos:  mongodb.NewTodosRepo(store, prom),
			checks: []handlers.Pinger{{Name: "mongo", Ping: store.Ping}},
			close: func(ctx context.Context) {
				if err := store.Close(ctx); err != nil {
					log.Error("mongo disconnect failed", "err", err)
				}
			},
		}, nil

	default:
		log.Warn("using in-memory store; data is lost on restart")

		return &stores{
			users: memory.NewUsersRepo(),
			todos: memory.NewTodosRepo(),
			close: func(context.Context) {},
		}, nil
	}
}

// openListCache returns nil when CACHE_DRIVER is none.
func openListCache(ctx context.Context, cfg config.Config, log *slog.Logger) (todos.ListCache, *handlers.Pinger, func(), error) {
	switch cfg.CacheDriver {
	case config.CacheDriverRedis:
		rdb := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		c := cache.NewRedisListCache(rdb, cfg.CacheTTL(), log)
		if err := c.Ping(pctx); err != nil {
			_ = rdb.Close()
			return nil, nil, nil, fmt.Errorf("connect redis: %w", err)
		}

		closeFn := func() {
			if err := rdb.Close(); err != nil {
				log.Error("redis close failed", "err", err)
			}
		}
		return c, &handlers.Pinger{Name: "redis", Ping: c.Ping}, closeFn, nil

	case config.CacheDriverMemory:
		return cache.NewMemoryListCache(cfg.CacheTTL(), cfg.CacheMaxEntries), nil, func() {}, nil

	default:
		return nil, nil, func() {}, nil
	}
}
