package sns

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skyspots/backend/internal/pkg/logger"
)

const certKeyPrefix = "sns:cert:"

// RedisCertCache keeps signing certificates in Redis so every replica
// avoids re-downloading them on each delivery. Redis failures degrade to
// a cache miss.
type RedisCertCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisCertCache creates a cache with the given entry TTL (default 24h).
func NewRedisCertCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisCertCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if log == nil {
		log = logger.Default()
	}
	return &RedisCertCache{client: client, ttl: ttl, log: log}
}

// Get returns the cached PEM for certURL.
func (c *RedisCertCache) Get(ctx context.Context, certURL string) ([]byte, bool) {
	b, err := c.client.Get(ctx, certKeyPrefix+certURL).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("sns: certificate cache read failed", "cert_url", certURL, "error", err)
		}
		return nil, false
	}
	return b, true
}

// Set stores the PEM for certURL.
func (c *RedisCertCache) Set(ctx context.Context, certURL string, pemBytes []byte) {
	if err := c.client.Set(ctx, certKeyPrefix+certURL, pemBytes, c.ttl).Err(); err != nil {
		c.log.Warn("sns: certificate cache write failed", "cert_url", certURL, "error", err)
	}
}
