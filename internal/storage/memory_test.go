package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_RoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.PutBundle(ctx, &BundleRecord{Key: "k", BoxPrice: "2"}))

	got, err := m.GetBundle(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2", got.BoxPrice)
	assert.False(t, got.UpdatedAt.IsZero())

	// Mutating the returned copy must not touch the stored record.
	got.BoxPrice = "99"
	again, _ := m.GetBundle(ctx, "k")
	assert.Equal(t, "2", again.BoxPrice)

	require.NoError(t, m.DeleteBundle(ctx, "k"))
	gone, err := m.GetBundle(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestMemory_PutRequiresKey(t *testing.T) {
	assert.ErrorIs(t, NewMemory().PutBundle(context.Background(), &BundleRecord{}), ErrEmptyKey)
	assert.ErrorIs(t, NewMemory().PutBundle(context.Background(), nil), ErrEmptyKey)
}

func TestMemory_Purge(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, m.PutBundle(ctx, &BundleRecord{Key: "old", UpdatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, m.PutBundle(ctx, &BundleRecord{Key: "new", UpdatedAt: now}))

	n, err := m.PurgeBundlesBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, m.Len())
}

func TestBundleRecord_Empty(t *testing.T) {
	var nilRec *BundleRecord
	assert.True(t, nilRec.Empty())
	assert.True(t, (&BundleRecord{Key: "k"}).Empty())
	assert.False(t, (&BundleRecord{Key: "k", PricingMode: "sum"}).Empty())
}

func TestRunPurger_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		RunPurger(ctx, NewMemory(), time.Hour, time.Millisecond, discardLogger())
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPurger did not return after cancel")
	}
}
