package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TedCassirer/sidequest/store"
)

func openBoltStore(t *testing.T) *store.BoltStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.db")
	b, err := store.OpenBoltStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestBoltStore_PutGetRoundTrip(t *testing.T) {
	b := openBoltStore(t)
	ctx := context.Background()

	rec := store.Record{TaskID: "t-1", QuestName: "greet", Status: store.Success, Deps: []string{"dep-1"}}
	require.NoError(t, b.Put(ctx, rec))

	got, err := b.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, rec.TaskID, got.TaskID)
	assert.Equal(t, rec.Status, got.Status)
	assert.Equal(t, rec.Deps, got.Deps)
}

func TestBoltStore_PutTwiceOverwritesInPlace(t *testing.T) {
	b := openBoltStore(t)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, store.Record{TaskID: "t-2", Status: store.Pending}))
	require.NoError(t, b.Put(ctx, store.Record{TaskID: "t-2", Status: store.Success}))

	got, err := b.Get(ctx, "t-2")
	require.NoError(t, err)
	assert.Equal(t, store.Success, got.Status)
}

func TestBoltStore_GetMissingReturnsNotFound(t *testing.T) {
	b := openBoltStore(t)

	_, err := b.Get(context.Background(), "missing")
	require.Error(t, err)
	var nf *store.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestBoltStore_ExistsTerminal(t *testing.T) {
	b := openBoltStore(t)
	ctx := context.Background()

	terminal, err := b.ExistsTerminal(ctx, "unregistered")
	require.NoError(t, err)
	assert.False(t, terminal)

	require.NoError(t, b.Put(ctx, store.Record{TaskID: "t-3", Status: store.Running}))
	terminal, err = b.ExistsTerminal(ctx, "t-3")
	require.NoError(t, err)
	assert.False(t, terminal)

	require.NoError(t, b.Put(ctx, store.Record{TaskID: "t-3", Status: store.Failed}))
	terminal, err = b.ExistsTerminal(ctx, "t-3")
	require.NoError(t, err)
	assert.True(t, terminal)
}

func TestBoltStore_FetchAllReturnsEveryRecord(t *testing.T) {
	b := openBoltStore(t)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, store.Record{TaskID: "t-4", Status: store.Success}))
	require.NoError(t, b.Put(ctx, store.Record{TaskID: "t-5", Status: store.Failed}))

	all, err := b.FetchAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestBoltStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	ctx := context.Background()

	first, err := store.OpenBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, store.Record{TaskID: "t-6", Status: store.Success}))
	require.NoError(t, first.Close())

	second, err := store.OpenBoltStore(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Get(ctx, "t-6")
	require.NoError(t, err)
	assert.Equal(t, store.Success, got.Status)
}
