package database

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/example/foodorder/internal/config"
)

// NewRedis returns a connected client, or nil when REDIS_ADDR is unset or the server
// does not answer. Callers treat a nil client as "cache and events disabled".
func NewRedis(cfg *config.Config, log logrus.FieldLogger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Info("redis not configured, menu cache and order events disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).WithField("addr", cfg.RedisAddr).Warn("redis unreachable, continuing without it")
		_ = rdb.Close()
		return nil
	}

	log.WithField("addr", cfg.RedisAddr).Info("redis connected")
	return rdb
}
