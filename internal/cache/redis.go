package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProbeCache memoizes recent health-probe outcomes so list
// reconciliation does not hammer every endpoint on each read. Lookups
// and writes are best-effort; a cache failure is treated as a miss.
type ProbeCache struct {
	client *redis.Client
}

// NewProbeCache connects to Redis at addr.
func NewProbeCache(addr string) *ProbeCache {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &ProbeCache{client: rdb}
}

type probeResult struct {
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checkedAt"`
}

func probeKey(deploymentID string) string {
	return "probe:" + deploymentID
}

// Get returns the cached probe outcome for a deployment and whether a
// fresh entry existed.
func (c *ProbeCache) Get(ctx context.Context, deploymentID string) (bool, bool) {
	val, err := c.client.Get(ctx, probeKey(deploymentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, false
	} else if err != nil {
		return false, false
	}

	var result probeResult
	if err := json.Unmarshal(val, &result); err != nil {
		return false, false
	}
	return result.Healthy, true
}

// Set records a probe outcome with the given expiration.
func (c *ProbeCache) Set(ctx context.Context, deploymentID string, healthy bool, expiration time.Duration) error {
	b, err := json.Marshal(probeResult{Healthy: healthy, CheckedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, probeKey(deploymentID), b, expiration).Err()
}
