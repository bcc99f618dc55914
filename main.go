package main

import (
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/routes"
	"github.com/cppla/yatube/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(models.All()...)

	// Redis backs the token blacklist and, when selected, the response cache.
	// Without it both fall back to process memory.
	var rc *redis.Client
	if client, err := utils.NewRedisClient(cfg); err != nil {
		utils.Sugar.Warnw("redis unavailable, using in-memory fallbacks", "err", err)
		_ = client.Close()
	} else {
		rc = client
	}

	var backend utils.CacheBackend = utils.NewMemoryCacheBackend()
	if cfg.CacheBackend == "redis" {
		if rc == nil {
			utils.Sugar.Warn("CACHE_BACKEND=redis but redis is unavailable, using memory")
		} else {
			backend = utils.NewRedisCacheBackend(rc)
		}
	}
	cache := utils.NewResponseCache(backend, cfg.CacheNamespace)

	var events utils.EventPublisher = utils.NopPublisher{}
	var nc *nats.Conn
	if cfg.NatsURL != "" {
		conn, err := utils.ConnectNats(cfg.NatsURL)
		if err != nil {
			utils.Sugar.Warnw("nats unavailable, events disabled", "url", cfg.NatsURL, "err", err)
		} else {
			nc = conn
			events = utils.NewNatsPublisher(nc)
		}
	}

	r := routes.SetupRouter(routes.Dependencies{
		DB:        db,
		Cache:     cache,
		Tokens:    utils.NewTokenManager(cfg.JWTSecret, utils.DefaultTokenTTL),
		Blacklist: utils.NewTokenBlacklist(rc),
		Guard:     utils.NewLoginGuard(rc, cfg.LoginMaxFailures, time.Duration(cfg.LoginBanMinutes)*time.Minute),
		Events:    events,
	})

	srv := utils.NewGraceServer(":"+cfg.AppPort, r)
	srv.OnShutdown(cache.Close)
	if nc != nil {
		srv.OnShutdown(nc.Drain)
	}
	if rc != nil {
		srv.OnShutdown(rc.Close)
	}
	srv.OnShutdown(func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := srv.ListenAndServe(); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
