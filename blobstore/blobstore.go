// Package blobstore defines the client contract for the object store
// backing document collections. Implementations provide flat key/value blob
// access with entity tags; the collection layer builds partitioning, view
// caching, and manifest tracking on top of it.
package blobstore

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/apicomponents/blob-collection/errors"
)

// MaxListKeys is the maximum number of keys a single List call returns.
// Listings past this cap are truncated, matching common object store page
// limits.
const MaxListKeys = 1000

// ErrNotFound is returned by Get when no object exists at the key.
var ErrNotFound = errors.ErrKeyNotFound

// Object is a blob fetched from the store.
type Object struct {
	// Body is the raw blob contents.
	Body []byte
	// ETag identifies this version of the blob. Two reads returning the
	// same ETag returned identical bodies.
	ETag string
	// ContentType is the MIME type recorded at write time, if any.
	ContentType string
}

// ObjectInfo describes an object in a listing without its body.
type ObjectInfo struct {
	Key  string
	ETag string
}

// Client is the object store contract the collection layer depends on.
// Implementations must be safe for concurrent use.
type Client interface {
	// Get fetches the object at key. Returns an error wrapping ErrNotFound
	// when the key does not exist.
	Get(ctx context.Context, key string) (*Object, error)

	// Put writes the object at key and returns the new entity tag.
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)

	// Delete removes the object at key. Deleting a missing key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// List returns up to MaxListKeys objects whose keys start with prefix.
	// A non-empty delimiter excludes keys containing the delimiter after
	// the prefix, giving single-level listings.
	List(ctx context.Context, prefix, delimiter string) ([]ObjectInfo, error)

	// RetryDelay returns how long a caller should wait before retrying a
	// read that may have raced a recent write. Implementations jitter the
	// delay so concurrent retries spread out.
	RetryDelay() time.Duration
}

// IsNotFound reports whether err indicates a missing object.
func IsNotFound(err error) bool {
	return err != nil && stderrors.Is(err, ErrNotFound)
}
