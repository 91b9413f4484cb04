package class

import (
	"context"
	"encoding/json"
	"time"

	"studiobook/pkg/rediskey"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{Name: "class_list_cache_hits_total"})
	cacheMiss = promauto.NewCounter(prometheus.CounterOpts{Name: "class_list_cache_miss_total"})
	cacheInv  = promauto.NewCounter(prometheus.CounterOpts{Name: "class_list_cache_invalidations_total"})
)

// ListingCache is a best-effort read-through cache over the class listing
// query. Correctness of capacity accounting never depends on it: every entry
// carries a TTL, so even a missed invalidation only yields bounded staleness.
type ListingCache struct {
	rdb   *redis.Client
	ttl   time.Duration
	group singleflight.Group
}

func NewListingCache(rdb *redis.Client, ttl time.Duration) *ListingCache {
	return &ListingCache{rdb: rdb, ttl: ttl}
}

func (c *ListingCache) Get(ctx context.Context, key string) (*ListOutput, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			zap.L().Warn("class cache read failed", zap.String("key", key), zap.Error(err))
		}
		cacheMiss.Inc()
		return nil, false
	}

	var out ListOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		cacheMiss.Inc()
		return nil, false
	}

	cacheHits.Inc()
	return &out, true
}

// Set stores the listing and tracks its key in the per-venue index set so
// invalidation can remove every listing for the venue without a scan.
func (c *ListingCache) Set(ctx context.Context, venueID, key string, value *ListOutput) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}

	indexKey := rediskey.BuildClassListIndexKey(venueID)
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, key, raw, c.ttl)
	pipe.SAdd(ctx, indexKey, key)
	pipe.Expire(ctx, indexKey, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		zap.L().Warn("class cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateVenue drops every cached listing for the venue. Idempotent and
// safe to skip on failure.
func (c *ListingCache) InvalidateVenue(ctx context.Context, venueID string) {
	indexKey := rediskey.BuildClassListIndexKey(venueID)

	keys, err := c.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		zap.L().Warn("class cache invalidation failed", zap.String("venue_id", venueID), zap.Error(err))
		return
	}

	keys = append(keys, indexKey)
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		zap.L().Warn("class cache invalidation failed", zap.String("venue_id", venueID), zap.Error(err))
		return
	}

	cacheInv.Inc()
}

// Do collapses concurrent loads of one key into a single query.
func (c *ListingCache) Do(key string, fn func() (*ListOutput, error)) (*ListOutput, error) {
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return v.(*ListOutput), nil
}
