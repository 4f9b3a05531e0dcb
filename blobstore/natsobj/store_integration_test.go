//go:build integration

package natsobj_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/apicomponents/blob-collection/blobstore"
	"github.com/apicomponents/blob-collection/blobstore/natsobj"
	"github.com/apicomponents/blob-collection/metric"
)

// Package-level shared container to avoid Docker resource exhaustion
var (
	sharedContainer testcontainers.Container
	sharedURL       string
)

// TestMain sets up a single shared NATS container for all natsobj tests
func TestMain(m *testing.M) {
	if os.Getenv("INTEGRATION_TESTS") != "" {
		ctx := context.Background()

		req := testcontainers.ContainerRequest{
			Image:        "nats:2.10",
			ExposedPorts: []string{"4222/tcp", "8222/tcp"},
			Cmd:          []string{"--port", "4222", "--http_port", "8222", "--js"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("4222/tcp"),
				wait.ForHTTP("/").WithPort("8222/tcp").WithStartupTimeout(30*time.Second),
			),
		}

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			panic("Failed to start NATS container: " + err.Error())
		}

		host, err := container.Host(ctx)
		if err != nil {
			_ = container.Terminate(ctx)
			panic("Failed to get container host: " + err.Error())
		}
		port, err := container.MappedPort(ctx, "4222")
		if err != nil {
			_ = container.Terminate(ctx)
			panic("Failed to get mapped port: " + err.Error())
		}

		sharedContainer = container
		sharedURL = fmt.Sprintf("nats://%s:%s", host, port.Port())
	}

	exitCode := m.Run()

	if sharedContainer != nil {
		_ = sharedContainer.Terminate(context.Background())
	}

	os.Exit(exitCode)
}

// connect returns a store backed by the shared container
func connect(t *testing.T, bucket string) *natsobj.Store {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") == "" {
		t.Skip("Skipping integration test. Set INTEGRATION_TESTS=1 to run.")
	}

	cfg := natsobj.DefaultConfig()
	cfg.URL = sharedURL
	cfg.Bucket = bucket

	store, err := natsobj.Connect(context.Background(), cfg, metric.NewMetricsRegistry(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestIntegration_PutAndGet(t *testing.T) {
	store := connect(t, "TEST_PUT_GET")
	ctx := context.Background()

	etag, err := store.Put(ctx, "events/2024-03-15/doc.json", []byte(`{"n":1}`), "application/json")
	require.NoError(t, err)
	assert.NotEmpty(t, etag)

	obj, err := store.Get(ctx, "events/2024-03-15/doc.json")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"n":1}`), obj.Body)
	assert.Equal(t, etag, obj.ETag)
	assert.Equal(t, "application/json", obj.ContentType)
}

func TestIntegration_GetMissing(t *testing.T) {
	store := connect(t, "TEST_MISSING")

	_, err := store.Get(context.Background(), "no/such/key.json")
	require.Error(t, err)
	assert.True(t, blobstore.IsNotFound(err))
}

func TestIntegration_ETagChangesWithBody(t *testing.T) {
	store := connect(t, "TEST_ETAG")
	ctx := context.Background()

	etag1, err := store.Put(ctx, "k", []byte("one"), "")
	require.NoError(t, err)
	etag2, err := store.Put(ctx, "k", []byte("two"), "")
	require.NoError(t, err)
	assert.NotEqual(t, etag1, etag2)
}

func TestIntegration_ListPrefixAndDelimiter(t *testing.T) {
	store := connect(t, "TEST_LIST")
	ctx := context.Background()

	for _, key := range []string{
		"col/2024-03-15/aaa.json",
		"col/2024-03-15/bbb.json",
		"col/2024-03-16/ccc.json",
		"col/manifest.json",
	} {
		_, err := store.Put(ctx, key, []byte("{}"), "")
		require.NoError(t, err)
	}

	infos, err := store.List(ctx, "col/2024-03-15/", "/")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "col/2024-03-15/aaa.json", infos[0].Key)
	assert.Equal(t, "col/2024-03-15/bbb.json", infos[1].Key)

	infos, err = store.List(ctx, "col/", "/")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "col/manifest.json", infos[0].Key)
}

func TestIntegration_DeleteIsIdempotent(t *testing.T) {
	store := connect(t, "TEST_DELETE")
	ctx := context.Background()

	_, err := store.Put(ctx, "k", []byte("v"), "")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err = store.Get(ctx, "k")
	assert.True(t, blobstore.IsNotFound(err))
}

func TestIntegration_RetryDelayInRange(t *testing.T) {
	store := connect(t, "TEST_DELAY")

	cfg := natsobj.DefaultConfig()
	for i := 0; i < 20; i++ {
		d := store.RetryDelay()
		assert.GreaterOrEqual(t, d, cfg.RetryDelayMin)
		assert.LessOrEqual(t, d, cfg.RetryDelayMax)
	}
}
