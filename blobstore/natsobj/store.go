// Package natsobj implements the blobstore.Client contract on a NATS
// JetStream ObjectStore bucket. Object digests serve as entity tags and the
// content type travels in object headers. JetStream has no server-side
// prefix listing, so List filters the bucket contents client-side.
package natsobj

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/apicomponents/blob-collection/blobstore"
	"github.com/apicomponents/blob-collection/errors"
	"github.com/apicomponents/blob-collection/metric"
	"github.com/apicomponents/blob-collection/pkg/retry"
)

const contentTypeHeader = "Content-Type"

// Store is a blobstore.Client backed by a JetStream ObjectStore bucket.
type Store struct {
	bucket  string
	obj     jetstream.ObjectStore
	conn    *nats.Conn // nil when the connection is owned by the caller
	jitter  *retry.Jitter
	metrics *storeMetrics
	logger  *slog.Logger
}

// Connect dials NATS with backoff, ensures the configured bucket exists,
// and returns a ready client. Close releases the connection.
func Connect(ctx context.Context, cfg Config, registry *metric.MetricsRegistry, logger *slog.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dialCfg := retry.DefaultConfig()
	dialCfg.MaxAttempts = cfg.ConnectAttempts
	conn, err := retry.DoWithResult(ctx, dialCfg, func() (*nats.Conn, error) {
		return nats.Connect(cfg.URL,
			nats.Timeout(cfg.ConnectTimeout),
			nats.Name("blob-collection"),
		)
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "natsobj", "Connect", "dial NATS")
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.WrapFatal(err, "natsobj", "Connect", "create JetStream context")
	}

	obj, err := js.CreateOrUpdateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      cfg.Bucket,
		Description: cfg.Description,
		Replicas:    cfg.Replicas,
	})
	if err != nil {
		conn.Close()
		return nil, errors.WrapFatal(err, "natsobj", "Connect", "ensure bucket")
	}

	store, err := NewWithObjectStore(obj, cfg, registry, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	store.conn = conn

	if registry != nil {
		registry.CoreMetrics().RecordStoreStatus(true)
	}

	return store, nil
}

// NewWithObjectStore wraps an existing ObjectStore handle. The caller keeps
// ownership of the underlying connection.
func NewWithObjectStore(
	obj jetstream.ObjectStore, cfg Config, registry *metric.MetricsRegistry, logger *slog.Logger,
) (*Store, error) {
	if obj == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("nil object store"), "natsobj", "NewWithObjectStore", "handle check")
	}
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := newStoreMetrics(registry, cfg.Bucket)
	if err != nil {
		return nil, err
	}

	return &Store{
		bucket:  cfg.Bucket,
		obj:     obj,
		jitter:  retry.NewJitter(cfg.RetryDelayMin, cfg.RetryDelayMax),
		metrics: metrics,
		logger:  logger.With("component", "natsobj", "bucket", cfg.Bucket),
	}, nil
}

// Get fetches the object at key.
func (s *Store) Get(ctx context.Context, key string) (*blobstore.Object, error) {
	start := time.Now()

	result, err := s.obj.Get(ctx, key)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, errors.WrapTransient(
				fmt.Errorf("%w: %s", blobstore.ErrNotFound, key), "natsobj", "Get", "object lookup")
		}
		s.metrics.recordError("get")
		return nil, errors.WrapTransient(err, "natsobj", "Get", "object lookup")
	}
	defer func() { _ = result.Close() }()

	body, err := io.ReadAll(result)
	if err != nil {
		s.metrics.recordError("get")
		return nil, errors.WrapTransient(err, "natsobj", "Get", "read object body")
	}

	info, err := result.Info()
	if err != nil {
		s.metrics.recordError("get")
		return nil, errors.WrapTransient(err, "natsobj", "Get", "read object info")
	}

	s.metrics.recordOp("get", time.Since(start).Seconds())

	return &blobstore.Object{
		Body:        body,
		ETag:        info.Digest,
		ContentType: info.Headers.Get(contentTypeHeader),
	}, nil
}

// Put writes the object at key and returns its digest as the entity tag.
func (s *Store) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	start := time.Now()

	meta := jetstream.ObjectMeta{Name: key}
	if contentType != "" {
		meta.Headers = nats.Header{contentTypeHeader: []string{contentType}}
	}

	info, err := s.obj.Put(ctx, meta, bytes.NewReader(body))
	if err != nil {
		s.metrics.recordError("put")
		return "", errors.WrapTransient(err, "natsobj", "Put", "write object")
	}

	s.metrics.recordOp("put", time.Since(start).Seconds())
	return info.Digest, nil
}

// Delete removes the object at key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	start := time.Now()

	if err := s.obj.Delete(ctx, key); err != nil {
		if stderrors.Is(err, jetstream.ErrObjectNotFound) {
			return nil
		}
		s.metrics.recordError("delete")
		return errors.WrapTransient(err, "natsobj", "Delete", "delete object")
	}

	s.metrics.recordOp("delete", time.Since(start).Seconds())
	return nil
}

// List returns up to blobstore.MaxListKeys objects under prefix sorted by
// key. The bucket contents are filtered client-side.
func (s *Store) List(ctx context.Context, prefix, delimiter string) ([]blobstore.ObjectInfo, error) {
	start := time.Now()

	objects, err := s.obj.List(ctx)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrNoObjectsFound) {
			s.metrics.recordOp("list", time.Since(start).Seconds())
			return nil, nil
		}
		s.metrics.recordError("list")
		return nil, errors.WrapTransient(err, "natsobj", "List", "list bucket")
	}

	var infos []blobstore.ObjectInfo
	for _, obj := range objects {
		if obj.Deleted || !strings.HasPrefix(obj.Name, prefix) {
			continue
		}
		if delimiter != "" && strings.Contains(obj.Name[len(prefix):], delimiter) {
			continue
		}
		infos = append(infos, blobstore.ObjectInfo{Key: obj.Name, ETag: obj.Digest})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })

	if len(infos) > blobstore.MaxListKeys {
		infos = infos[:blobstore.MaxListKeys]
	}

	s.metrics.recordOp("list", time.Since(start).Seconds())
	return infos, nil
}

// RetryDelay returns a jittered delay for read-after-write retries.
func (s *Store) RetryDelay() time.Duration {
	return s.jitter.Delay()
}

// Close releases the NATS connection when this client owns it.
func (s *Store) Close() error {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	return nil
}
