package collection

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/apicomponents/blob-collection/blobstore"
	"github.com/apicomponents/blob-collection/errors"
	"github.com/apicomponents/blob-collection/metric"
	"github.com/apicomponents/blob-collection/pkg/cache"
)

// viewBlob is the persisted shape of a partition's view cache.
type viewBlob struct {
	Data map[string]Projection `json:"data"`
}

// Partition owns all documents whose identifier maps to one calendar day.
// It caches per-document view projections, persists that cache as a single
// blob, and coalesces its own saves. Partitions are created by the
// Collection and live for the process lifetime.
type Partition struct {
	day   string
	cfg   Config
	store blobstore.Client
	view  func() View

	viewCache cache.Cache[Projection]
	listCache cache.Cache[[]Projection] // nil when disabled

	loadMu   sync.Mutex
	loading  chan struct{}
	loadErr  error
	lastLoad time.Time

	saver   *saver
	logger  *slog.Logger
	metrics *metric.Metrics // nil when metrics are disabled
}

func newPartition(
	day string, cfg Config, store blobstore.Client, view func() View,
	metrics *metric.Metrics, logger *slog.Logger,
) (*Partition, error) {
	viewCache, err := cache.NewLRU[Projection](cfg.ViewCacheSize)
	if err != nil {
		return nil, err
	}

	listCache, err := cache.NewFromConfig[[]Projection](context.Background(), cfg.ListCache)
	if err != nil {
		return nil, err
	}

	p := &Partition{
		day:       day,
		cfg:       cfg,
		store:     store,
		view:      view,
		viewCache: viewCache,
		listCache: listCache,
		logger:    logger.With("partition", day),
		metrics:   metrics,
	}
	p.saver = newSaver(cfg.DebounceInterval, p.persist, p.logger)
	return p, nil
}

// Day returns the partition's calendar day.
func (p *Partition) Day() string {
	return p.day
}

// Get reads the raw document with the given id. A "not found" from the
// store is retried once after the connector's jittered delay to ride out
// read-after-write inconsistency; if the document is still absent, Get
// returns (nil, nil). On success the view cache is updated and a cache save
// is scheduled.
func (p *Partition) Get(ctx context.Context, id string) (Document, error) {
	start := time.Now()
	key := p.cfg.docKey(p.day, id)

	obj, err := p.store.Get(ctx, key)
	if blobstore.IsNotFound(err) {
		select {
		case <-time.After(p.store.RetryDelay()):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		obj, err = p.store.Get(ctx, key)
	}
	if blobstore.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		p.recordStoreError("get")
		return nil, errors.WrapTransient(err, "Partition", "Get", "read document")
	}

	var doc Document
	if err := json.Unmarshal(obj.Body, &doc); err != nil {
		return nil, &DecodeError{Key: key, Err: err}
	}
	doc[FieldETag] = obj.ETag

	view := p.view()
	if _, err := p.viewCache.Set(view.cacheKey(id, obj.ETag), view.Map(doc)); err != nil {
		p.logger.Warn("view cache update failed", "id", id, "error", err)
	}
	p.saver.Schedule(context.WithoutCancel(ctx))

	if p.metrics != nil {
		p.metrics.RecordDocumentRead(p.cfg.Name, "store")
		p.metrics.RecordReadDuration(p.cfg.Name, time.Since(start))
	}
	return doc, nil
}

// Put writes the raw document object. On failure it returns a WriteError
// naming the document id; the write is not retried. On success the document
// carries its new etag, the view cache holds the fresh projection, cached
// list pages are dropped, and a cache save is scheduled without waiting.
func (p *Partition) Put(ctx context.Context, doc Document) (Document, error) {
	start := time.Now()
	id := doc.ID()

	body, err := doc.marshalBody()
	if err != nil {
		return nil, err
	}

	etag, err := p.store.Put(ctx, p.cfg.docKey(p.day, id), body, jsonContentType)
	if err != nil {
		p.recordStoreError("put")
		if p.metrics != nil {
			p.metrics.RecordDocumentWritten(p.cfg.Name, "error")
		}
		return nil, &WriteError{ID: id, Err: err}
	}
	doc[FieldETag] = etag

	view := p.view()
	if _, err := p.viewCache.Set(view.cacheKey(id, etag), view.Map(doc)); err != nil {
		p.logger.Warn("view cache update failed", "id", id, "error", err)
	}
	p.invalidateListCache()
	p.saver.Schedule(context.WithoutCancel(ctx))

	if p.metrics != nil {
		p.metrics.RecordDocumentWritten(p.cfg.Name, "success")
		p.metrics.RecordWriteDuration(p.cfg.Name, time.Since(start))
	}
	return doc, nil
}

// List returns up to limit projections for this day with ids strictly below
// before, ascending by id. An empty before means no upper bound. Results
// are served from the page cache when the same (before, limit) query was
// answered within its TTL.
func (p *Partition) List(ctx context.Context, before string, limit int) ([]Projection, error) {
	start := time.Now()
	if limit <= 0 {
		limit = p.cfg.DefaultLimit
	}

	view := p.view()
	pageKey := view.Version + "|" + before + "," + strconv.Itoa(limit)
	if p.listCache != nil {
		if page, ok := p.listCache.Get(pageKey); ok {
			if p.metrics != nil {
				p.metrics.RecordDocumentsListed(p.cfg.Name, len(page))
			}
			return page, nil
		}
	}

	infos, err := p.store.List(ctx, p.cfg.dayPrefix(p.day), "/")
	if err != nil {
		p.recordStoreError("list")
		return nil, errors.WrapTransient(err, "Partition", "List", "list day objects")
	}

	// Listing keys come back sorted, so ids are already ascending.
	type entry struct{ id, etag string }
	var entries []entry
	for _, info := range infos {
		id := idFromKey(info.Key)
		if id == "" {
			continue
		}
		if before != "" && id >= before {
			continue
		}
		entries = append(entries, entry{id: id, etag: info.ETag})
	}

	if err := p.load(ctx); err != nil {
		return nil, err
	}

	projs := make([]Projection, 0, len(entries))
	for _, e := range entries {
		proj, ok := p.viewCache.Get(view.cacheKey(e.id, e.etag))
		if !ok {
			doc, err := p.Get(ctx, e.id)
			if err != nil {
				return nil, err
			}
			if doc == nil {
				continue
			}
			proj = view.Map(doc)
		}
		if view.Filter != nil && !view.Filter(proj) {
			continue
		}
		projs = append(projs, proj)
	}

	// Keep the most recent limit entries; order stays ascending.
	if len(projs) > limit {
		projs = projs[len(projs)-limit:]
	}

	if p.listCache != nil {
		if _, err := p.listCache.Set(pageKey, projs); err != nil {
			p.logger.Warn("list cache update failed", "error", err)
		}
	}
	if p.metrics != nil {
		p.metrics.RecordDocumentsListed(p.cfg.Name, len(projs))
		p.metrics.RecordListDuration(p.cfg.Name, time.Since(start))
	}
	return projs, nil
}

// load brings the persisted view cache into memory. Concurrent callers
// share one in-flight load, and a load that succeeded within the freshness
// window is not repeated.
func (p *Partition) load(ctx context.Context) error {
	p.loadMu.Lock()
	if !p.lastLoad.IsZero() && time.Since(p.lastLoad) < p.cfg.FreshnessWindow {
		p.loadMu.Unlock()
		return nil
	}
	if p.loading != nil {
		ch := p.loading
		p.loadMu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		p.loadMu.Lock()
		err := p.loadErr
		p.loadMu.Unlock()
		return err
	}
	ch := make(chan struct{})
	p.loading = ch
	p.loadMu.Unlock()

	err := p.loadFromBlob(ctx)

	p.loadMu.Lock()
	p.loadErr = err
	if err == nil {
		p.lastLoad = time.Now()
	}
	p.loading = nil
	p.loadMu.Unlock()
	close(ch)

	return err
}

// loadFromBlob reads the persisted cache object into the view cache. A
// missing blob is the bootstrap case and leaves the cache unchanged.
func (p *Partition) loadFromBlob(ctx context.Context) error {
	key := p.cfg.viewKey(p.day)

	obj, err := p.store.Get(ctx, key)
	if blobstore.IsNotFound(err) {
		return nil
	}
	if err != nil {
		p.recordStoreError("get")
		return errors.WrapTransient(err, "Partition", "loadFromBlob", "read view blob")
	}

	var blob viewBlob
	if err := json.Unmarshal(obj.Body, &blob); err != nil {
		return &DecodeError{Key: key, Err: err}
	}

	for k, proj := range blob.Data {
		if _, ok := p.viewCache.Get(k); ok {
			continue
		}
		if _, err := p.viewCache.Set(k, proj); err != nil {
			p.logger.Warn("view cache load failed", "key", k, "error", err)
		}
	}
	return nil
}

// persist is the saver's write step: reload the latest persisted cache so
// concurrent writers merge rather than clobber, then write the union back
// as one object.
func (p *Partition) persist(ctx context.Context) error {
	if err := p.loadFromBlob(ctx); err != nil {
		if p.metrics != nil {
			p.metrics.RecordViewSave(p.cfg.Name, "error")
		}
		return err
	}

	blob := viewBlob{Data: make(map[string]Projection)}
	for _, k := range p.viewCache.Keys() {
		if proj, ok := p.viewCache.Get(k); ok {
			blob.Data[k] = proj
		}
	}

	body, err := json.Marshal(blob)
	if err != nil {
		return errors.WrapInvalid(err, "Partition", "persist", "serialize view blob")
	}

	if _, err := p.store.Put(ctx, p.cfg.viewKey(p.day), body, jsonContentType); err != nil {
		p.recordStoreError("put")
		if p.metrics != nil {
			p.metrics.RecordViewSave(p.cfg.Name, "error")
		}
		return errors.WrapTransient(err, "Partition", "persist", "write view blob")
	}

	if p.metrics != nil {
		p.metrics.RecordViewSave(p.cfg.Name, "success")
	}
	return nil
}

// Flush waits for any pending cache save to complete.
func (p *Partition) Flush(ctx context.Context) error {
	return p.saver.Wait(ctx)
}

// ClearCaches drops the in-memory view and list caches. The persisted view
// blob is untouched.
func (p *Partition) ClearCaches() {
	if err := p.viewCache.Clear(); err != nil {
		p.logger.Warn("view cache clear failed", "error", err)
	}
	p.invalidateListCache()

	p.loadMu.Lock()
	p.lastLoad = time.Time{}
	p.loadMu.Unlock()
}

// Close releases cache resources.
func (p *Partition) Close() error {
	if p.listCache != nil {
		_ = p.listCache.Close()
	}
	return p.viewCache.Close()
}

func (p *Partition) invalidateListCache() {
	if p.listCache == nil {
		return
	}
	if err := p.listCache.Clear(); err != nil {
		p.logger.Warn("list cache clear failed", "error", err)
	}
}

func (p *Partition) recordStoreError(operation string) {
	if p.metrics != nil {
		p.metrics.RecordStoreError(p.cfg.Name, operation)
	}
}
