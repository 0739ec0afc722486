package contentstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashBytes_KnownVector(t *testing.T) {
	// sha-256("abc")
	require.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		HashBytes([]byte("abc")))
}

func TestAddressFor_DeterministicAndCIDv1(t *testing.T) {
	a1, err := AddressFor([]byte("report-v1"))
	require.NoError(t, err)
	a2, err := AddressFor([]byte("report-v1"))
	require.NoError(t, err)
	require.Equal(t, a1, a2)

	// CIDv1 base32 strings start with "b".
	require.True(t, strings.HasPrefix(a1, "b"), "got %q", a1)

	other, err := AddressFor([]byte("report-v2"))
	require.NoError(t, err)
	require.NotEqual(t, a1, other)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	payload := []byte("report-v1")
	addr, hash, err := store.Put(ctx, payload)
	require.NoError(t, err)
	require.Equal(t, HashBytes(payload), hash)

	got, err := store.Get(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, payload, got)
	require.Equal(t, hash, HashBytes(got))
}

func TestMemoryStore_DedupSameBytes(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a1, _, err := store.Put(ctx, []byte("same"))
	require.NoError(t, err)
	a2, _, err := store.Put(ctx, []byte("same"))
	require.NoError(t, err)

	require.Equal(t, a1, a2)
	require.Equal(t, 1, store.Len())
}

func TestMemoryStore_GetUnknownAddress(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "bafy-missing")
	require.Error(t, err)
}

func TestLocalStore_RoundTripAndDedup(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	payload := []byte("local-blob")

	a1, h1, err := store.Put(ctx, payload)
	require.NoError(t, err)
	a2, h2, err := store.Put(ctx, payload)
	require.NoError(t, err)
	require.Equal(t, a1, a2)
	require.Equal(t, h1, h2)

	got, err := store.Get(ctx, a1)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestLocalStore_GetUnknownAddress(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get(context.Background(), "bafy-missing")
	require.Error(t, err)
}
