package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-proxy/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "nested", "fallback.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_PutGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &storage.BundleRecord{
		Key:         "a1b2c3",
		Items:       json.RawMessage(`[{"product_id":10,"price":"5.000","quantity":2}]`),
		BoxPrice:    "2.500",
		PricingMode: "fixed",
		FixedPrice:  "15.000",
	}
	require.NoError(t, store.PutBundle(ctx, rec))

	got, err := store.GetBundle(ctx, "a1b2c3")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "a1b2c3", got.Key)
	assert.JSONEq(t, string(rec.Items), string(got.Items))
	assert.Equal(t, "2.500", got.BoxPrice)
	assert.Equal(t, "fixed", got.PricingMode)
	assert.Equal(t, "15.000", got.FixedPrice)
	assert.Empty(t, got.BundleTotal)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetBundle(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_PutReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutBundle(ctx, &storage.BundleRecord{Key: "k", BoxPrice: "1"}))
	require.NoError(t, store.PutBundle(ctx, &storage.BundleRecord{Key: "k", BoxPrice: "3"}))

	got, err := store.GetBundle(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "3", got.BoxPrice)
}

func TestStore_PutRequiresKey(t *testing.T) {
	store := newTestStore(t)
	err := store.PutBundle(context.Background(), &storage.BundleRecord{BoxPrice: "1"})
	assert.ErrorIs(t, err, storage.ErrEmptyKey)
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutBundle(ctx, &storage.BundleRecord{Key: "k", BoxPrice: "1"}))
	require.NoError(t, store.DeleteBundle(ctx, "k"))
	require.NoError(t, store.DeleteBundle(ctx, "k"))

	got, err := store.GetBundle(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_PurgeBefore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.PutBundle(ctx, &storage.BundleRecord{Key: "old", BoxPrice: "1", UpdatedAt: now.Add(-40 * 24 * time.Hour)}))
	require.NoError(t, store.PutBundle(ctx, &storage.BundleRecord{Key: "new", BoxPrice: "1", UpdatedAt: now}))

	n, err := store.PurgeBundlesBefore(ctx, now.Add(-storage.DefaultRetention))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	old, err := store.GetBundle(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, old)

	fresh, err := store.GetBundle(ctx, "new")
	require.NoError(t, err)
	assert.NotNil(t, fresh)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.db")
	ctx := context.Background()

	first, err := New(path)
	require.NoError(t, err)
	require.NoError(t, first.PutBundle(ctx, &storage.BundleRecord{Key: "k", BundleTotal: "20"}))
	require.NoError(t, first.Close())

	second, err := New(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.GetBundle(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "20", got.BundleTotal)
}
