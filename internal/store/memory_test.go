package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramiqadoumi/go-resume-flow/internal/store"
)

func TestMemory_GetMissing(t *testing.T) {
	_, err := store.NewMemory().Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemory_SetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.Set(ctx, "k", []byte("v1"), nil))

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	// Mutating the returned slice must not change the stored record.
	got[0] = 'X'
	again, _ := m.Get(ctx, "k")
	assert.Equal(t, []byte("v1"), again)
}

func TestMemory_ListByIndex_FollowsLatestSet(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.Set(ctx, "a", []byte("a"), store.Index{"status": "PENDING", "jobId": "j1"}))
	require.NoError(t, m.Set(ctx, "b", []byte("b"), store.Index{"status": "PENDING", "jobId": "j2"}))
	require.NoError(t, m.Set(ctx, "a", []byte("a2"), store.Index{"status": "COMPLETED", "jobId": "j1"}))

	pending, err := m.ListByIndex(ctx, "status", "PENDING")
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("b")}, pending)

	done, err := m.ListByIndex(ctx, "status", "COMPLETED")
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a2")}, done)

	byJob, err := m.ListByIndex(ctx, "jobId", "j1")
	require.NoError(t, err)
	assert.Len(t, byJob, 1)
}

func TestMemory_ListInKeyOrder(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	for _, k := range []string{"c", "a", "b"} {
		require.NoError(t, m.Set(ctx, k, []byte(k), nil))
	}
	all, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, all)
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.Set(ctx, "k", []byte("v"), store.Index{"status": "FAILED"}))
	require.NoError(t, m.Delete(ctx, "k"))

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrNotFound)
	failed, _ := m.ListByIndex(ctx, "status", "FAILED")
	assert.Empty(t, failed)

	assert.ErrorIs(t, m.Delete(ctx, "k"), store.ErrNotFound)
}
