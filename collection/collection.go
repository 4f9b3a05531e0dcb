// Package collection implements an append-mostly document store on top of a
// blob/object store. Documents are partitioned by the calendar day encoded
// in their identifier; each partition keeps a cached, versioned view
// projection of its documents, persisted as a single blob with debounced,
// coalesced saves. A manifest tracks which days hold data and backs the
// cross-day walk used by list queries.
package collection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/apicomponents/blob-collection/blobstore"
	"github.com/apicomponents/blob-collection/docid"
	"github.com/apicomponents/blob-collection/errors"
	"github.com/apicomponents/blob-collection/metric"
)

// Collection is the top-level facade. It assigns documents to partitions by
// identifier, generates missing identifiers, and walks the manifest
// backward when a list query spans days. Safe for concurrent use.
type Collection struct {
	cfg   Config
	store blobstore.Client

	viewMu sync.RWMutex
	view   View

	manifest *Manifest

	partMu     sync.Mutex
	partitions map[string]*Partition

	logger  *slog.Logger
	metrics *metric.Metrics
}

// Option configures a Collection.
type Option func(*Collection)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collection) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics wires the collection into a metrics registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(c *Collection) {
		if registry != nil {
			c.metrics = registry.CoreMetrics()
		}
	}
}

// WithView sets the initial view. Defaults to DefaultView.
func WithView(view View) Option {
	return func(c *Collection) {
		c.view = view
	}
}

// New creates a Collection over the given blob store client.
func New(store blobstore.Client, cfg Config, opts ...Option) (*Collection, error) {
	if store == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("nil store client"), "Collection", "New", "store check")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Collection{
		cfg:        cfg,
		store:      store,
		view:       DefaultView(),
		partitions: make(map[string]*Partition),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("collection", cfg.Name)
	c.manifest = newManifest(cfg, store, c.metrics, c.logger)

	return c, nil
}

// View returns the current view.
func (c *Collection) View() View {
	c.viewMu.RLock()
	defer c.viewMu.RUnlock()
	return c.view
}

// SetView replaces the view. Entries cached under the old version become
// orphaned and are never read again; projections are recomputed on demand
// under the new version.
func (c *Collection) SetView(view View) {
	c.viewMu.Lock()
	c.view = view
	c.viewMu.Unlock()
}

// Manifest exposes the collection's day index.
func (c *Collection) Manifest() *Manifest {
	return c.manifest
}

// Put persists the document, assigning a fresh identifier when the supplied
// one is missing or malformed, and returns the stored document with its
// identifier and etag set. The owning day is marked in the manifest. A
// failed object write surfaces as a WriteError and is not retried.
func (c *Collection) Put(ctx context.Context, doc Document) (Document, error) {
	if doc == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("nil document"), "Collection", "Put", "document check")
	}

	id := doc.EnsureID()
	day, err := docid.Day(id)
	if err != nil {
		return nil, err
	}

	part, err := c.Partition(day)
	if err != nil {
		return nil, err
	}

	stored, err := part.Put(ctx, doc)
	if err != nil {
		return nil, err
	}

	if err := c.manifest.AddDate(ctx, day); err != nil {
		c.logger.Warn("manifest update failed", "day", day, "error", err)
	}
	return stored, nil
}

// Get fetches the document with the given id, or (nil, nil) when it does
// not exist after the partition's retry policy is exhausted.
func (c *Collection) Get(ctx context.Context, id string) (Document, error) {
	day, err := docid.Day(id)
	if err != nil {
		return nil, err
	}

	part, err := c.Partition(day)
	if err != nil {
		return nil, err
	}
	return part.Get(ctx, id)
}

// Delete removes the raw document object. Cached projections keyed by the
// old etag become orphaned; list pages are invalidated.
func (c *Collection) Delete(ctx context.Context, id string) error {
	day, err := docid.Day(id)
	if err != nil {
		return err
	}

	part, err := c.Partition(day)
	if err != nil {
		return err
	}

	if err := c.store.Delete(ctx, c.cfg.docKey(day, id)); err != nil {
		return errors.WrapTransient(err, "Collection", "Delete", "delete document")
	}
	part.invalidateListCache()
	return nil
}

// ListQuery bounds a list operation. Zero values mean: no cutoff (now plus
// the configured headroom), today as the seed day, and the default limit.
type ListQuery struct {
	// BeforeID, when set, is the exclusive upper id bound; its decoded day
	// seeds the search.
	BeforeID string
	// BeforeTime, when set and BeforeID is empty, bounds results to ids
	// created at or before it.
	BeforeTime time.Time
	// Limit caps the page length. Zero means the configured default.
	Limit int
}

// List returns up to Limit projections with ids strictly below the cutoff,
// ascending by id. The seed day's partition answers first; if it comes up
// short, earlier days from the manifest are walked backward and their most
// recent projections prepended until the page fills or days run out.
func (c *Collection) List(ctx context.Context, q ListQuery) ([]Projection, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = c.cfg.DefaultLimit
	}

	cutoff, seedDay, err := c.resolveCutoff(q)
	if err != nil {
		return nil, err
	}

	part, err := c.Partition(seedDay)
	if err != nil {
		return nil, err
	}

	results, err := part.List(ctx, cutoff, limit)
	if err != nil {
		return nil, err
	}

	// Earlier days hold strictly smaller ids, so prepending keeps the
	// ascending order.
	day := seedDay
	for len(results) < limit {
		days, err := c.manifest.DatesBefore(ctx, day, c.cfg.BackfillStride)
		if err != nil {
			return nil, err
		}
		if len(days) == 0 {
			break
		}
		for _, d := range days {
			part, err := c.Partition(d)
			if err != nil {
				return nil, err
			}
			page, err := part.List(ctx, cutoff, limit-len(results))
			if err != nil {
				return nil, err
			}
			results = append(page, results...)
			if len(results) >= limit {
				break
			}
		}
		day = days[len(days)-1]
	}

	return results, nil
}

// resolveCutoff turns a query into an exclusive id bound and a seed day.
func (c *Collection) resolveCutoff(q ListQuery) (cutoff, seedDay string, err error) {
	switch {
	case q.BeforeID != "":
		day, err := docid.Day(q.BeforeID)
		if err != nil {
			return "", "", err
		}
		return q.BeforeID, day, nil
	case !q.BeforeTime.IsZero():
		t := q.BeforeTime.UTC()
		// Smallest id whose encoded second is later than the instant.
		return docid.Min(t.Truncate(time.Second).Add(time.Second)), t.Format("2006-01-02"), nil
	default:
		now := time.Now().UTC()
		return docid.Min(now.Add(c.cfg.CutoffHeadroom)), now.Format("2006-01-02"), nil
	}
}

// Partition resolves the partition for a calendar day ("YYYY-MM-DD") or for
// the day encoded in a document id. Partitions are created lazily and
// memoized for the process lifetime.
func (c *Collection) Partition(dayOrID string) (*Partition, error) {
	day := dayOrID
	if docid.Valid(dayOrID) {
		var err error
		if day, err = docid.Day(dayOrID); err != nil {
			return nil, err
		}
	}

	c.partMu.Lock()
	defer c.partMu.Unlock()

	if part, ok := c.partitions[day]; ok {
		return part, nil
	}

	part, err := newPartition(day, c.cfg, c.store, c.View, c.metrics, c.logger)
	if err != nil {
		return nil, err
	}
	c.partitions[day] = part
	return part, nil
}

// KeyForDocument returns the object key the document with the given id is
// stored under.
func (c *Collection) KeyForDocument(id string) (string, error) {
	day, err := docid.Day(id)
	if err != nil {
		return "", err
	}
	return c.cfg.docKey(day, id), nil
}

// ClearCaches drops every partition's in-memory caches. Persisted blobs are
// untouched; the next query reloads them.
func (c *Collection) ClearCaches() {
	c.partMu.Lock()
	defer c.partMu.Unlock()
	for _, part := range c.partitions {
		part.ClearCaches()
	}
}

// Flush waits for all pending cache and manifest saves to complete.
func (c *Collection) Flush(ctx context.Context) error {
	c.partMu.Lock()
	parts := make([]*Partition, 0, len(c.partitions))
	for _, part := range c.partitions {
		parts = append(parts, part)
	}
	c.partMu.Unlock()

	for _, part := range parts {
		if err := part.Flush(ctx); err != nil {
			return err
		}
	}
	return c.manifest.Flush(ctx)
}

// Close flushes pending saves and releases partition resources.
func (c *Collection) Close(ctx context.Context) error {
	err := c.Flush(ctx)

	c.partMu.Lock()
	defer c.partMu.Unlock()
	for _, part := range c.partitions {
		_ = part.Close()
	}
	return err
}
