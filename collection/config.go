package collection

import (
	"fmt"
	"strings"
	"time"

	"github.com/apicomponents/blob-collection/errors"
	"github.com/apicomponents/blob-collection/pkg/cache"
)

// Config holds collection behavior settings.
type Config struct {
	// Name identifies the collection in logs and metrics.
	Name string `json:"name" schema:"description=Collection name,default=default"`

	// Prefix is prepended to every object key. A non-empty prefix must end
	// with "/".
	Prefix string `json:"prefix" schema:"description=Key prefix for all objects"`

	// DefaultLimit is the page size used when a list query does not supply
	// one.
	DefaultLimit int `json:"defaultLimit" schema:"description=Default list page size,default=100,minimum=1"`

	// DebounceInterval is how long a scheduled cache or manifest save waits
	// before writing, so bursts of puts collapse to one write.
	DebounceInterval time.Duration `json:"debounceInterval" schema:"description=Save debounce interval,default=1s"`

	// FreshnessWindow is how long a partition treats its last successful
	// cache load as current and skips reloading.
	FreshnessWindow time.Duration `json:"freshnessWindow" schema:"description=Partition cache freshness window,default=60s"`

	// ManifestListDelay is the head start the persisted manifest blob gets
	// before the prefix-listing fallback starts during a manifest load.
	ManifestListDelay time.Duration `json:"manifestListDelay" schema:"description=Delay before manifest listing fallback,default=1s"`

	// CutoffHeadroom is added to the current time when a list query gives
	// no cutoff, absorbing clock skew between writers.
	CutoffHeadroom time.Duration `json:"cutoffHeadroom" schema:"description=Clock skew headroom for open-ended lists,default=10m"`

	// BackfillStride is how many earlier days the manifest is asked for per
	// round of the cross-day backfill walk.
	BackfillStride int `json:"backfillStride" schema:"description=Days requested per backfill round,default=4,minimum=1"`

	// ViewCacheSize bounds each partition's in-memory view cache.
	ViewCacheSize int `json:"viewCacheSize" schema:"description=Max view cache entries per partition,default=500,minimum=1"`

	// ListCache configures each partition's short-lived page cache.
	ListCache cache.Config `json:"listCache" schema:"description=List page cache configuration"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Name:              "default",
		DefaultLimit:      100,
		DebounceInterval:  time.Second,
		FreshnessWindow:   60 * time.Second,
		ManifestListDelay: time.Second,
		CutoffHeadroom:    10 * time.Minute,
		BackfillStride:    4,
		ViewCacheSize:     500,
		ListCache: cache.Config{
			Enabled:         true,
			Strategy:        cache.StrategyHybrid,
			MaxSize:         8,
			TTL:             5 * time.Second,
			CleanupInterval: time.Second,
		},
	}
}

// Validate checks the configuration for correctness.
func (c Config) Validate() error {
	if c.Prefix != "" && !strings.HasSuffix(c.Prefix, "/") {
		return errors.WrapInvalid(
			fmt.Errorf("prefix %q must end with /", c.Prefix), "collection", "Validate", "prefix check")
	}
	if c.DefaultLimit < 1 {
		return errors.WrapInvalid(
			fmt.Errorf("defaultLimit must be positive, got %d", c.DefaultLimit),
			"collection", "Validate", "limit check")
	}
	if c.DebounceInterval < 0 || c.FreshnessWindow < 0 || c.ManifestListDelay < 0 || c.CutoffHeadroom < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("durations must not be negative"), "collection", "Validate", "duration check")
	}
	if c.BackfillStride < 1 {
		return errors.WrapInvalid(
			fmt.Errorf("backfillStride must be positive, got %d", c.BackfillStride),
			"collection", "Validate", "stride check")
	}
	if c.ViewCacheSize < 1 {
		return errors.WrapInvalid(
			fmt.Errorf("viewCacheSize must be positive, got %d", c.ViewCacheSize),
			"collection", "Validate", "view cache check")
	}
	if err := c.ListCache.Validate(); err != nil {
		return err
	}
	return nil
}
