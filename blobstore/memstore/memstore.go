// Package memstore provides an in-memory blobstore.Client for tests. It
// mimics object store semantics closely enough to exercise the collection
// layer: md5-based entity tags, truncated listings, delimiter filtering, and
// optional read-after-write visibility lag via HideOnce.
package memstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apicomponents/blob-collection/blobstore"
	"github.com/apicomponents/blob-collection/errors"
)

type object struct {
	body        []byte
	etag        string
	contentType string
}

// Store is an in-memory blobstore.Client. The zero value is not usable; use
// New.
type Store struct {
	mu      sync.Mutex
	objects map[string]object
	hidden  map[string]int

	retryDelay time.Duration

	// failures maps operation names ("get", "put", "delete", "list") to an
	// error returned on the next matching call.
	failures map[string]error

	gets    int
	puts    int
	deletes int
	lists   int
}

// New creates an empty store. Retry delay defaults to a millisecond so tests
// exercising the retry path stay fast.
func New() *Store {
	return &Store{
		objects:    make(map[string]object),
		hidden:     make(map[string]int),
		failures:   make(map[string]error),
		retryDelay: time.Millisecond,
	}
}

// SetRetryDelay overrides the delay returned by RetryDelay.
func (s *Store) SetRetryDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryDelay = d
}

// HideOnce makes the next n Gets for key report not found even though the
// object exists, simulating an eventually consistent read after a write.
func (s *Store) HideOnce(key string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden[key] = n
}

// FailNext makes the next call of the named operation return err.
func (s *Store) FailNext(operation string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[operation] = err
}

func (s *Store) takeFailure(operation string) error {
	err, ok := s.failures[operation]
	if !ok {
		return nil
	}
	delete(s.failures, operation)
	return err
}

// Get fetches the object at key.
func (s *Store) Get(_ context.Context, key string) (*blobstore.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gets++
	if err := s.takeFailure("get"); err != nil {
		return nil, err
	}

	if n := s.hidden[key]; n > 0 {
		s.hidden[key] = n - 1
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %s", blobstore.ErrNotFound, key), "memstore", "Get", "object lookup")
	}

	obj, ok := s.objects[key]
	if !ok {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %s", blobstore.ErrNotFound, key), "memstore", "Get", "object lookup")
	}

	body := make([]byte, len(obj.body))
	copy(body, obj.body)
	return &blobstore.Object{Body: body, ETag: obj.etag, ContentType: obj.contentType}, nil
}

// Put writes the object at key and returns its md5 entity tag.
func (s *Store) Put(_ context.Context, key string, body []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.puts++
	if err := s.takeFailure("put"); err != nil {
		return "", err
	}

	sum := md5.Sum(body)
	etag := hex.EncodeToString(sum[:])

	stored := make([]byte, len(body))
	copy(stored, body)
	s.objects[key] = object{body: stored, etag: etag, contentType: contentType}

	return etag, nil
}

// Delete removes the object at key. Missing keys are not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deletes++
	if err := s.takeFailure("delete"); err != nil {
		return err
	}

	delete(s.objects, key)
	return nil
}

// List returns up to blobstore.MaxListKeys objects under prefix, sorted by
// key. A non-empty delimiter drops keys nested below the prefix.
func (s *Store) List(_ context.Context, prefix, delimiter string) ([]blobstore.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lists++
	if err := s.takeFailure("list"); err != nil {
		return nil, err
	}

	var infos []blobstore.ObjectInfo
	for key, obj := range s.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if delimiter != "" && strings.Contains(key[len(prefix):], delimiter) {
			continue
		}
		infos = append(infos, blobstore.ObjectInfo{Key: key, ETag: obj.etag})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })

	if len(infos) > blobstore.MaxListKeys {
		infos = infos[:blobstore.MaxListKeys]
	}
	return infos, nil
}

// RetryDelay returns the configured retry delay.
func (s *Store) RetryDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryDelay
}

// Counts returns the number of get, put, delete, and list calls so far.
func (s *Store) Counts() (gets, puts, deletes, lists int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.puts, s.deletes, s.lists
}

// Keys returns all stored keys sorted.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
