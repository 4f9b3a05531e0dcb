package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/apicomponents/blob-collection/errors"
)

// Strategy selects the eviction policy for a cache.
type Strategy string

const (
	// StrategyLRU evicts the least recently used entry once the cache is full.
	StrategyLRU Strategy = "lru"
	// StrategyHybrid combines LRU size eviction with TTL expiry.
	StrategyHybrid Strategy = "hybrid"
)

// Config holds cache behavior settings.
type Config struct {
	Enabled         bool          `json:"enabled" schema:"description=Enable caching,default=true"`
	Strategy        Strategy      `json:"strategy" schema:"description=Eviction strategy: lru or hybrid,default=lru"`
	MaxSize         int           `json:"maxSize" schema:"description=Maximum number of entries,default=500,minimum=1"`
	TTL             time.Duration `json:"ttl" schema:"description=Entry time-to-live for hybrid caches,default=5s"`
	CleanupInterval time.Duration `json:"cleanupInterval" schema:"description=Expired-entry sweep interval for hybrid caches,default=1s"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Strategy:        StrategyLRU,
		MaxSize:         500,
		TTL:             5 * time.Second,
		CleanupInterval: time.Second,
	}
}

// Validate checks the configuration for correctness.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Strategy {
	case StrategyLRU, StrategyHybrid:
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown strategy %q", c.Strategy), "cache", "Validate", "strategy check")
	}
	if c.MaxSize <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("maxSize must be positive, got %d", c.MaxSize), "cache", "Validate", "size check")
	}
	if c.Strategy == StrategyHybrid {
		if c.TTL <= 0 {
			return errors.WrapInvalid(
				fmt.Errorf("ttl must be positive, got %v", c.TTL), "cache", "Validate", "ttl check")
		}
		if c.CleanupInterval <= 0 {
			return errors.WrapInvalid(
				fmt.Errorf("cleanupInterval must be positive, got %v", c.CleanupInterval),
				"cache", "Validate", "interval check")
		}
	}
	return nil
}

// NewLRU creates a cache with LRU eviction.
func NewLRU[V any](maxSize int, opts ...Option[V]) (Cache[V], error) {
	if maxSize <= 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("maxSize must be positive, got %d", maxSize), "cache", "NewLRU", "size check")
	}
	return newLRUCache(maxSize, applyOptions(opts...))
}

// NewHybrid creates a cache with combined LRU and TTL eviction. The context
// bounds the lifetime of the background cleanup goroutine.
func NewHybrid[V any](
	ctx context.Context, maxSize int, ttl, cleanupInterval time.Duration, opts ...Option[V],
) (Cache[V], error) {
	if maxSize <= 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("maxSize must be positive, got %d", maxSize), "cache", "NewHybrid", "size check")
	}
	if ttl <= 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("ttl must be positive, got %v", ttl), "cache", "NewHybrid", "ttl check")
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Second
	}
	return newHybridCache(ctx, maxSize, ttl, cleanupInterval, applyOptions(opts...))
}

// NewFromConfig creates a cache according to cfg. A disabled config yields a
// nil cache and no error; callers treat a nil Cache as a pass-through.
func NewFromConfig[V any](ctx context.Context, cfg Config, opts ...Option[V]) (Cache[V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Strategy {
	case StrategyHybrid:
		return NewHybrid(ctx, cfg.MaxSize, cfg.TTL, cfg.CleanupInterval, opts...)
	default:
		return NewLRU(cfg.MaxSize, opts...)
	}
}
