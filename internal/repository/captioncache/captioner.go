// Package captioncache memoizes image captions in a key-value store.
package captioncache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jewelmatch/internal/db"
)

const keyPrefix = "jewelmatch:caption:"

// captioner is the wrapped image describer.
type captioner interface {
	Caption(ctx context.Context, imageURL string) (string, error)
}

// store is the consumer interface for the caption cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// CachedCaptioner caches captions keyed by image URL and caption model.
type CachedCaptioner struct {
	inner      captioner
	store      store
	model      string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner captioner,
	s store,
	model string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedCaptioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedCaptioner{
		inner:      inner,
		store:      s,
		model:      model,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Caption returns a cached caption or calls the inner captioner.
// Store failures degrade to a miss; only the inner error is returned.
func (c *CachedCaptioner) Caption(ctx context.Context, imageURL string) (string, error) {
	key := c.cacheKey(imageURL)

	if caption, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return caption, nil
	}

	c.incCache("miss")

	caption, err := c.inner.Caption(ctx, imageURL)
	if err != nil {
		return "", fmt.Errorf("caption image: %w", err)
	}

	if caption != "" {
		c.putToCache(ctx, key, caption)
	}
	return caption, nil
}

// Forget drops the cached caption for imageURL so the next call re-captions it.
func (c *CachedCaptioner) Forget(ctx context.Context, imageURL string) error {
	if err := c.store.Del(ctx, c.cacheKey(imageURL)); err != nil {
		return fmt.Errorf("forget caption: %w", err)
	}
	return nil
}

func (c *CachedCaptioner) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedCaptioner) cacheKey(imageURL string) string {
	h := sha256.Sum256([]byte(c.model + "\x00" + imageURL))
	return keyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedCaptioner) getFromCache(ctx context.Context, key string) (string, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached caption", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	if len(data) == 0 {
		return "", false
	}
	return string(data), true
}

func (c *CachedCaptioner) putToCache(ctx context.Context, key, caption string) {
	if err := c.store.SetWithTTL(ctx, key, []byte(caption), c.ttl); err != nil {
		c.logger.Warn("Failed to cache caption", zap.String("key", key), zap.Error(err))
	}
}
