package kvstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/d-j-kendall/roast-my-playlist/internal/errors"
	"github.com/d-j-kendall/roast-my-playlist/kvstore"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewLocalStore()

	require.NoError(t, store.Set(ctx, "k1", []byte("v1"), 0))

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), got)
}

func TestLocalStoreMissingKey(t *testing.T) {
	store := kvstore.NewLocalStore()

	_, err := store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLocalStoreTTLExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := kvstore.NewLocalStore(kvstore.WithNowFunc(func() time.Time { return now }))

	require.NoError(t, store.Set(ctx, "k1", []byte("v1"), 30*time.Second))

	_, err := store.Get(ctx, "k1")
	require.NoError(t, err)

	now = now.Add(31 * time.Second)
	_, err = store.Get(ctx, "k1")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLocalStoreExpiryCleanupKeepsConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	var store *kvstore.LocalStore
	var interleave func()
	store = kvstore.NewLocalStore(kvstore.WithNowFunc(func() time.Time {
		if interleave != nil {
			f := interleave
			interleave = nil
			f()
		}
		return now
	}))

	require.NoError(t, store.Set(ctx, "k1", []byte("stale"), 30*time.Second))
	now = now.Add(31 * time.Second)

	// A writer lands a fresh record between the expiry check and the
	// cleanup of the stale one. The fresh record must survive.
	interleave = func() {
		require.NoError(t, store.Set(ctx, "k1", []byte("fresh"), 0))
	}

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, []byte("fresh"), got)

	got, err = store.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, []byte("fresh"), got)
}

func TestLocalStoreDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewLocalStore()

	require.NoError(t, store.Set(ctx, "k1", []byte("v1"), 0))
	require.NoError(t, store.Delete(ctx, "k1"))
	require.NoError(t, store.Delete(ctx, "k1"))

	_, err := store.Get(ctx, "k1")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLocalStoreSetCopiesValue(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewLocalStore()

	value := []byte("v1")
	require.NoError(t, store.Set(ctx, "k1", value, 0))
	value[0] = 'x'

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), got)
}
