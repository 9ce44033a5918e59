package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/example/foodorder/internal/metrics"
	"github.com/example/foodorder/internal/models"
)

const (
	menuCachePrefix = "catalog:menu:"
	menuCacheIndex  = "catalog:menu:keys"
)

// CatalogCache keeps rendered menu listings in Redis. A nil client disables caching.
type CatalogCache struct {
	rdb *redis.Client
	ttl time.Duration
	log logrus.FieldLogger
}

// NewCatalogCache constructs CatalogCache.
func NewCatalogCache(rdb *redis.Client, ttl time.Duration, log logrus.FieldLogger) *CatalogCache {
	return &CatalogCache{rdb: rdb, ttl: ttl, log: log.WithField("component", "catalog_cache")}
}

// Enabled reports whether a Redis client is configured.
func (c *CatalogCache) Enabled() bool {
	return c != nil && c.rdb != nil && c.ttl > 0
}

// GetMenu loads a cached listing into dest and reports whether it was found.
func (c *CatalogCache) GetMenu(ctx context.Context, key string, dest *[]models.MenuItem) bool {
	if !c.Enabled() {
		return false
	}

	raw, err := c.rdb.Get(ctx, menuCachePrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Warn("menu cache read failed")
		}
		metrics.RecordCacheLookup(false)
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		c.log.WithError(err).Warn("menu cache entry corrupt")
		metrics.RecordCacheLookup(false)
		return false
	}

	metrics.RecordCacheLookup(true)
	return true
}

// SetMenu stores a listing under key.
func (c *CatalogCache) SetMenu(ctx context.Context, key string, items []models.MenuItem) {
	if !c.Enabled() {
		return
	}

	raw, err := json.Marshal(items)
	if err != nil {
		c.log.WithError(err).Warn("menu cache encode failed")
		return
	}

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, menuCachePrefix+key, raw, c.ttl)
	pipe.SAdd(ctx, menuCacheIndex, menuCachePrefix+key)
	pipe.Expire(ctx, menuCacheIndex, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.WithError(err).Warn("menu cache write failed")
	}
}

// Invalidate drops every cached listing.
func (c *CatalogCache) Invalidate(ctx context.Context) {
	if !c.Enabled() {
		return
	}

	keys, err := c.rdb.SMembers(ctx, menuCacheIndex).Result()
	if err != nil {
		c.log.WithError(err).Warn("menu cache index read failed")
		return
	}

	keys = append(keys, menuCacheIndex)
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.WithError(err).Warn("menu cache invalidation failed")
	}
}
