package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRoundTrip(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := "delivery_reports_excel/delivery_report_20240501_120000.xlsx"
	payload := []byte("workbook bytes")

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Save(ctx, key, payload))

	exists, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := store.Open(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	assert.Contains(t, store.URL(key), "delivery_reports_excel/delivery_report_20240501_120000.xlsx")
}

func TestLocalOpenMissing(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "nope/missing.xlsx")
	assert.Error(t, err)
}

func TestLocalOverwrite(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a/b.bin", []byte("one")))
	require.NoError(t, store.Save(ctx, "a/b.bin", []byte("two")))

	got, err := store.Open(ctx, "a/b.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)
}

func TestCleanKey(t *testing.T) {
	assert.Equal(t, "a/b.xlsx", cleanKey("/a/b.xlsx"))
	assert.Equal(t, "a/b.xlsx", cleanKey(`a\b.xlsx`))
}
