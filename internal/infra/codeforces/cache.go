package codeforces

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cfpulse/cfpulse/pkg/common/logger"
)

const (
	contestCacheKey = "cf:contests"

	// contestCacheTTL bounds how stale the contest list may get between
	// refreshes from the API.
	contestCacheTTL = time.Hour
)

// ContestCache caches the Codeforces contest list in Redis so repeated poll
// cycles don't burn the API request budget.
type ContestCache struct {
	rdb    *redis.Client
	logger *logger.Logger
	ttl    time.Duration
}

// NewContestCache creates a contest cache over the provided Redis client.
func NewContestCache(rdb *redis.Client, logger *logger.Logger) *ContestCache {
	return &ContestCache{
		rdb:    rdb,
		logger: logger.With("component", "contest_cache"),
		ttl:    contestCacheTTL,
	}
}

// Get returns the cached contest list. The second return value reports
// whether the cache held a value.
func (c *ContestCache) Get(ctx context.Context) ([]Contest, bool, error) {
	data, err := c.rdb.Get(ctx, contestCacheKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("contest cache get: %w", err)
	}

	var contests []Contest
	if err := json.Unmarshal(data, &contests); err != nil {
		// A corrupt entry is treated as a miss; the next Set overwrites it.
		c.logger.Warn(ctx, "Dropping corrupt contest cache entry", "error", err)
		return nil, false, nil
	}
	return contests, true, nil
}

// Set stores the contest list with the cache TTL.
func (c *ContestCache) Set(ctx context.Context, contests []Contest) error {
	data, err := json.Marshal(contests)
	if err != nil {
		return fmt.Errorf("contest cache marshal: %w", err)
	}
	if err := c.rdb.Set(ctx, contestCacheKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("contest cache set: %w", err)
	}
	return nil
}
