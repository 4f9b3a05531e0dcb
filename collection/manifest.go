package collection

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/apicomponents/blob-collection/blobstore"
	"github.com/apicomponents/blob-collection/errors"
	"github.com/apicomponents/blob-collection/metric"
)

// manifestBlob is the persisted shape of the manifest.
type manifestBlob struct {
	Dates []string `json:"dates"`
}

// Manifest tracks the sorted set of days known to have documents. It is
// persisted as one object and reconciled on load against a live listing of
// the partition view blobs, which tolerates the persisted copy being
// briefly stale after a new day's first write.
type Manifest struct {
	cfg   Config
	store blobstore.Client

	mu      sync.Mutex
	dates   []string // sorted ascending, unique
	loaded  bool
	loading chan struct{}
	loadErr error

	saver   *saver
	logger  *slog.Logger
	metrics *metric.Metrics
}

func newManifest(cfg Config, store blobstore.Client, metrics *metric.Metrics, logger *slog.Logger) *Manifest {
	m := &Manifest{
		cfg:     cfg,
		store:   store,
		logger:  logger.With("component", "manifest"),
		metrics: metrics,
	}
	m.saver = newSaver(cfg.DebounceInterval, m.persist, m.logger)
	return m
}

// AddDate inserts day into the set if absent. The first insert loads the
// manifest first so dates already known elsewhere are not clobbered. A
// successful insert schedules a save, unless the load failed: persisting a
// near-empty set would overwrite dates the load could not bring in, so the
// day stays in memory and the next insert retries the load.
func (m *Manifest) AddDate(ctx context.Context, day string) error {
	m.mu.Lock()
	loaded := m.loaded
	m.mu.Unlock()

	loadFailed := false
	if !loaded {
		if err := m.Load(ctx); err != nil {
			m.logger.Warn("manifest load before insert failed", "error", err)
			loadFailed = true
		}
	}

	m.mu.Lock()
	inserted := m.insertLocked(day)
	m.mu.Unlock()

	if inserted && !loadFailed {
		m.saver.Schedule(context.WithoutCancel(ctx))
	}
	return nil
}

// insertLocked adds day keeping dates sorted and unique. Caller holds mu.
func (m *Manifest) insertLocked(day string) bool {
	i := sort.SearchStrings(m.dates, day)
	if i < len(m.dates) && m.dates[i] == day {
		return false
	}
	m.dates = append(m.dates, "")
	copy(m.dates[i+1:], m.dates[i:])
	m.dates[i] = day
	return true
}

// Load populates the date set, racing the persisted manifest blob against a
// prefix listing of the partition view blobs. The blob read starts
// immediately; the listing starts after a fixed head-start delay. The first
// source to deliver wins: a successful blob read is adopted as-is, while a
// listing result is unioned into the in-memory set and saved if it added
// anything. Concurrent callers share one in-flight load.
func (m *Manifest) Load(ctx context.Context) error {
	m.mu.Lock()
	if m.loaded {
		m.mu.Unlock()
		return nil
	}
	if m.loading != nil {
		ch := m.loading
		m.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		m.mu.Lock()
		err := m.loadErr
		m.mu.Unlock()
		return err
	}
	ch := make(chan struct{})
	m.loading = ch
	m.mu.Unlock()

	err := m.race(ctx)

	m.mu.Lock()
	m.loadErr = err
	if err == nil {
		m.loaded = true
	}
	m.loading = nil
	m.mu.Unlock()
	close(ch)

	return err
}

type manifestSource struct {
	dates []string
	err   error
}

// race runs the two load sources and applies whichever is accepted first.
func (m *Manifest) race(ctx context.Context) error {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	blobCh := make(chan manifestSource, 1)
	listCh := make(chan manifestSource, 1)

	go func() {
		dates, err := m.loadFromBlob(raceCtx)
		blobCh <- manifestSource{dates: dates, err: err}
	}()
	go func() {
		select {
		case <-time.After(m.cfg.ManifestListDelay):
		case <-raceCtx.Done():
			listCh <- manifestSource{err: raceCtx.Err()}
			return
		}
		dates, err := m.loadFromList(raceCtx)
		listCh <- manifestSource{dates: dates, err: err}
	}()

	// A failed blob read (absent or broken manifest) falls through to the
	// listing instead of losing the race.
	select {
	case res := <-blobCh:
		if res.err == nil {
			m.adopt(res.dates)
			return nil
		}
		m.logger.Debug("manifest blob unavailable, waiting for listing", "error", res.err)
	case res := <-listCh:
		return m.merge(ctx, res)
	}

	select {
	case res := <-listCh:
		return m.merge(ctx, res)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// adopt replaces the date set with the blob's contents, keeping any days
// inserted while the load was in flight.
func (m *Manifest) adopt(dates []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, day := range dates {
		m.insertLocked(day)
	}
}

// merge unions a listing result into the set and saves if it added days.
func (m *Manifest) merge(ctx context.Context, res manifestSource) error {
	if res.err != nil {
		return res.err
	}

	m.mu.Lock()
	added := false
	for _, day := range res.dates {
		if m.insertLocked(day) {
			added = true
		}
	}
	m.mu.Unlock()

	if added {
		m.saver.Schedule(context.WithoutCancel(ctx))
	}
	return nil
}

// loadFromBlob reads the persisted manifest object.
func (m *Manifest) loadFromBlob(ctx context.Context) ([]string, error) {
	key := m.cfg.manifestKey()

	obj, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var blob manifestBlob
	if err := json.Unmarshal(obj.Body, &blob); err != nil {
		return nil, &DecodeError{Key: key, Err: err}
	}
	return blob.Dates, nil
}

// loadFromList derives the date set from the partition view blob names.
func (m *Manifest) loadFromList(ctx context.Context) ([]string, error) {
	infos, err := m.store.List(ctx, m.cfg.viewsPrefix(), "/")
	if err != nil {
		m.recordStoreError("list")
		return nil, errors.WrapTransient(err, "Manifest", "loadFromList", "list view blobs")
	}

	var dates []string
	for _, info := range infos {
		if day := dayFromKey(info.Key); day != "" {
			dates = append(dates, day)
		}
	}
	return dates, nil
}

// DatesBefore returns up to maxCount days strictly before day, most recent
// first. The manifest is loaded on first use.
func (m *Manifest) DatesBefore(ctx context.Context, day string, maxCount int) ([]string, error) {
	m.mu.Lock()
	loaded := m.loaded
	m.mu.Unlock()

	if !loaded {
		if err := m.Load(ctx); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := sort.SearchStrings(m.dates, day)
	out := make([]string, 0, maxCount)
	for j := i - 1; j >= 0 && len(out) < maxCount; j-- {
		out = append(out, m.dates[j])
	}
	return out, nil
}

// Dates returns a copy of the current date set, ascending.
func (m *Manifest) Dates() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.dates))
	copy(out, m.dates)
	return out
}

// persist is the saver's write step for the manifest object.
func (m *Manifest) persist(ctx context.Context) error {
	m.mu.Lock()
	blob := manifestBlob{Dates: make([]string, len(m.dates))}
	copy(blob.Dates, m.dates)
	m.mu.Unlock()

	body, err := json.Marshal(blob)
	if err != nil {
		return errors.WrapInvalid(err, "Manifest", "persist", "serialize manifest")
	}

	if _, err := m.store.Put(ctx, m.cfg.manifestKey(), body, jsonContentType); err != nil {
		m.recordStoreError("put")
		if m.metrics != nil {
			m.metrics.RecordManifestSave(m.cfg.Name, "error")
		}
		return errors.WrapTransient(err, "Manifest", "persist", "write manifest")
	}

	if m.metrics != nil {
		m.metrics.RecordManifestSave(m.cfg.Name, "success")
	}
	return nil
}

// Flush waits for any pending manifest save to complete.
func (m *Manifest) Flush(ctx context.Context) error {
	return m.saver.Wait(ctx)
}

func (m *Manifest) recordStoreError(operation string) {
	if m.metrics != nil {
		m.metrics.RecordStoreError(m.cfg.Name, operation)
	}
}
