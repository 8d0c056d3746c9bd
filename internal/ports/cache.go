package ports

import (
	"context"
	"time"
)

// Cache holds short-lived derived values such as narrated follow-up copy.
// It is injected into the referral service; the sqlite adapter is the
// default and redis is used when cache.driver=redis.
type Cache interface {
	// Get reports found=false for missing and expired keys.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value for ttl. A zero ttl never expires.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
