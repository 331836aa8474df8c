//go:build integration
// +build integration

package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/TedCassirer/sidequest/store"
)

// setupCouchDBContainer starts a disposable CouchDB container for testing
// and returns a connection URL plus a cleanup function.
func setupCouchDBContainer(t *testing.T) (string, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "couchdb:3.3",
		ExposedPorts: []string{"5984/tcp"},
		Env: map[string]string{
			"COUCHDB_USER":     "admin",
			"COUCHDB_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForHTTP("/_up").WithPort("5984/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start CouchDB container")

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5984")
	require.NoError(t, err)

	url := fmt.Sprintf("http://admin:testpass@%s:%s", host, port.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return url, cleanup
}

func TestCouchStore_Integration_PutGetRoundTrip(t *testing.T) {
	url, cleanup := setupCouchDBContainer(t)
	defer cleanup()

	config := store.DefaultCouchConfig()
	config.URL = url
	config.Database = "sidequest_tasks"

	couch, err := store.NewCouchStore(config)
	require.NoError(t, err, "failed to create CouchDB store")
	defer couch.Close()

	ctx := context.Background()
	rec := store.Record{
		TaskID:    "task-int-1",
		QuestName: "greet",
		Status:    store.Pending,
		Deps:      []string{"dep-1"},
		UpdatedAt: time.Now(),
	}
	require.NoError(t, couch.Put(ctx, rec))

	got, err := couch.Get(ctx, "task-int-1")
	require.NoError(t, err)
	assert.Equal(t, rec.TaskID, got.TaskID)
	assert.Equal(t, rec.Status, got.Status)
	assert.Equal(t, rec.Deps, got.Deps)
}

func TestCouchStore_Integration_PutTwiceUpdatesInPlace(t *testing.T) {
	url, cleanup := setupCouchDBContainer(t)
	defer cleanup()

	config := store.DefaultCouchConfig()
	config.URL = url
	config.Database = "sidequest_tasks"

	couch, err := store.NewCouchStore(config)
	require.NoError(t, err)
	defer couch.Close()

	ctx := context.Background()
	require.NoError(t, couch.Put(ctx, store.Record{TaskID: "task-int-2", Status: store.Pending}))
	require.NoError(t, couch.Put(ctx, store.Record{TaskID: "task-int-2", Status: store.Success, Result: []byte(`3`)}))

	got, err := couch.Get(ctx, "task-int-2")
	require.NoError(t, err)
	assert.Equal(t, store.Success, got.Status)
}

func TestCouchStore_Integration_ExistsTerminalAndFetchAll(t *testing.T) {
	url, cleanup := setupCouchDBContainer(t)
	defer cleanup()

	config := store.DefaultCouchConfig()
	config.URL = url
	config.Database = "sidequest_tasks"

	couch, err := store.NewCouchStore(config)
	require.NoError(t, err)
	defer couch.Close()

	ctx := context.Background()
	require.NoError(t, couch.Put(ctx, store.Record{TaskID: "task-int-3", Status: store.Success}))
	require.NoError(t, couch.Put(ctx, store.Record{TaskID: "task-int-4", Status: store.Pending}))

	terminal, err := couch.ExistsTerminal(ctx, "task-int-3")
	require.NoError(t, err)
	assert.True(t, terminal)

	terminal, err = couch.ExistsTerminal(ctx, "task-int-4")
	require.NoError(t, err)
	assert.False(t, terminal)

	all, err := couch.FetchAll(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(all), 2)
}

func TestCouchStore_Integration_GetMissingReturnsNotFound(t *testing.T) {
	url, cleanup := setupCouchDBContainer(t)
	defer cleanup()

	config := store.DefaultCouchConfig()
	config.URL = url
	config.Database = "sidequest_tasks"

	couch, err := store.NewCouchStore(config)
	require.NoError(t, err)
	defer couch.Close()

	_, err = couch.Get(context.Background(), "does-not-exist")
	require.Error(t, err)
	var nf *store.ErrNotFound
	require.ErrorAs(t, err, &nf)
}
