package memstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apicomponents/blob-collection/blobstore"
)

func TestPutGetRoundTrip(t *testing.T) {
	store := New()
	ctx := context.Background()

	etag, err := store.Put(ctx, "a/b.json", []byte(`{"x":1}`), "application/json")
	require.NoError(t, err)
	assert.NotEmpty(t, etag)

	obj, err := store.Get(ctx, "a/b.json")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"x":1}`), obj.Body)
	assert.Equal(t, etag, obj.ETag)
	assert.Equal(t, "application/json", obj.ContentType)
}

func TestGetMissingIsNotFound(t *testing.T) {
	store := New()

	_, err := store.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, blobstore.IsNotFound(err))
}

func TestETagChangesWithBody(t *testing.T) {
	store := New()
	ctx := context.Background()

	etag1, err := store.Put(ctx, "k", []byte("one"), "")
	require.NoError(t, err)
	etag2, err := store.Put(ctx, "k", []byte("two"), "")
	require.NoError(t, err)
	assert.NotEqual(t, etag1, etag2)

	etag3, err := store.Put(ctx, "k", []byte("one"), "")
	require.NoError(t, err)
	assert.Equal(t, etag1, etag3, "same body should give same tag")
}

func TestDeleteMissingIsNoError(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, "absent"))

	_, err := store.Put(ctx, "k", []byte("v"), "")
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.True(t, blobstore.IsNotFound(err))
}

func TestListPrefixAndDelimiter(t *testing.T) {
	store := New()
	ctx := context.Background()

	for _, key := range []string{
		"col/2024-03-15/aaa.json",
		"col/2024-03-15/bbb.json",
		"col/2024-03-16/ccc.json",
		"col/manifest.json",
		"other/x.json",
	} {
		_, err := store.Put(ctx, key, []byte("{}"), "")
		require.NoError(t, err)
	}

	infos, err := store.List(ctx, "col/2024-03-15/", "/")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "col/2024-03-15/aaa.json", infos[0].Key)
	assert.Equal(t, "col/2024-03-15/bbb.json", infos[1].Key)

	// Delimiter hides nested keys.
	infos, err = store.List(ctx, "col/", "/")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "col/manifest.json", infos[0].Key)

	// No delimiter returns everything under the prefix.
	infos, err = store.List(ctx, "col/", "")
	require.NoError(t, err)
	assert.Len(t, infos, 4)
}

func TestListTruncatesAtCap(t *testing.T) {
	store := New()
	ctx := context.Background()

	for i := 0; i < blobstore.MaxListKeys+50; i++ {
		_, err := store.Put(ctx, fmt.Sprintf("p/%06d", i), []byte("x"), "")
		require.NoError(t, err)
	}

	infos, err := store.List(ctx, "p/", "")
	require.NoError(t, err)
	assert.Len(t, infos, blobstore.MaxListKeys)
	assert.Equal(t, "p/000000", infos[0].Key)
}

func TestHideOnceSimulatesLaggedRead(t *testing.T) {
	store := New()
	ctx := context.Background()

	_, err := store.Put(ctx, "k", []byte("v"), "")
	require.NoError(t, err)

	store.HideOnce("k", 1)

	_, err = store.Get(ctx, "k")
	assert.True(t, blobstore.IsNotFound(err), "first read should lag")

	obj, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), obj.Body)
}

func TestFailNext(t *testing.T) {
	store := New()
	ctx := context.Background()

	boom := fmt.Errorf("boom")
	store.FailNext("put", boom)

	_, err := store.Put(ctx, "k", []byte("v"), "")
	assert.ErrorIs(t, err, boom)

	// Failure is consumed.
	_, err = store.Put(ctx, "k", []byte("v"), "")
	assert.NoError(t, err)
}

func TestCounts(t *testing.T) {
	store := New()
	ctx := context.Background()

	_, _ = store.Put(ctx, "k", []byte("v"), "")
	_, _ = store.Get(ctx, "k")
	_, _ = store.Get(ctx, "missing")
	_, _ = store.List(ctx, "", "")
	_ = store.Delete(ctx, "k")

	gets, puts, deletes, lists := store.Counts()
	assert.Equal(t, 2, gets)
	assert.Equal(t, 1, puts)
	assert.Equal(t, 1, deletes)
	assert.Equal(t, 1, lists)
}

func TestGetReturnsCopy(t *testing.T) {
	store := New()
	ctx := context.Background()

	_, err := store.Put(ctx, "k", []byte("abc"), "")
	require.NoError(t, err)

	obj, err := store.Get(ctx, "k")
	require.NoError(t, err)
	obj.Body[0] = 'z'

	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again.Body)
}
