package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hydrosense/analytics/internal/domain/analytics"
)

const keyPrefix = "dashboard:"

// Stats tracks cache effectiveness.
type Stats struct {
	Hits      atomic.Int64
	Misses    atomic.Int64
	Evictions atomic.Int64
}

// DashboardCache is a redis-backed, TTL'd cache of composed dashboards.
// Values are JSON; keys hash the full request shape so any change in
// period, metric set or range misses.
type DashboardCache struct {
	client *redis.Client
	logger *zap.Logger
	stats  Stats
}

// NewDashboardCache creates the cache around an existing client.
func NewDashboardCache(client *redis.Client, logger *zap.Logger) *DashboardCache {
	return &DashboardCache{
		client: client,
		logger: logger,
	}
}

// Key derives a stable cache key from the user and the resolved request.
// The metric set is sorted so ordering differences do not fragment the cache.
func (c *DashboardCache) Key(userID uuid.UUID, req analytics.DashboardRequest, start, end time.Time) string {
	metrics := make([]string, 0, len(req.Metrics))
	for _, m := range req.Metrics {
		metrics = append(metrics, string(m))
	}
	sort.Strings(metrics)

	raw := fmt.Sprintf("%s|%s|%s|%d|%d|%t",
		userID, req.Period, strings.Join(metrics, ","),
		start.Unix(), end.Unix(), req.IncludeSocialComparison)

	sum := sha256.Sum256([]byte(raw))
	return keyPrefix + userID.String() + ":" + hex.EncodeToString(sum[:16])
}

// Get fetches a cached dashboard. Any redis or decode error counts as a miss.
func (c *DashboardCache) Get(ctx context.Context, key string) (*analytics.Dashboard, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
		c.stats.Misses.Add(1)
		return nil, false
	}

	var dashboard analytics.Dashboard
	if err := json.Unmarshal(data, &dashboard); err != nil {
		c.logger.Warn("dashboard cache decode failed", zap.Error(err))
		c.stats.Misses.Add(1)
		return nil, false
	}

	c.stats.Hits.Add(1)
	return &dashboard, true
}

// Set stores the dashboard under key with the given TTL.
func (c *DashboardCache) Set(ctx context.Context, key string, dashboard *analytics.Dashboard, ttl time.Duration) error {
	data, err := json.Marshal(dashboard)
	if err != nil {
		return fmt.Errorf("failed to marshal dashboard: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store dashboard: %w", err)
	}
	return nil
}

// InvalidateUser removes every cached dashboard belonging to the user.
func (c *DashboardCache) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	pattern := keyPrefix + userID.String() + ":*"
	keys, err := c.client.Keys(ctx, pattern).Result()
	if err != nil {
		return fmt.Errorf("failed to list cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	c.stats.Evictions.Add(int64(len(keys)))
	return nil
}

// Snapshot returns the current hit/miss/eviction counts.
func (c *DashboardCache) Snapshot() (hits, misses, evictions int64) {
	return c.stats.Hits.Load(), c.stats.Misses.Load(), c.stats.Evictions.Load()
}
