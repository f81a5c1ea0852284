package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokupintar/dokubot-be/types"
)

func TestMemoryStorePutGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "t1", PartitionChunks, "doc1-0-10", []byte("hello")))

	got, err := store.Get(ctx, "t1", PartitionChunks, "doc1-0-10")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	_, err = store.Get(ctx, "t1", PartitionChunks, "missing")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestMemoryStoreValueCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, store.Put(ctx, "t1", PartitionChunks, "k", value))
	value[0] = 'x'

	got, err := store.Get(ctx, "t1", PartitionChunks, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got, "mutating the caller's slice must not change stored data")

	got[0] = 'y'
	again, err := store.Get(ctx, "t1", PartitionChunks, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryStoreTenantAndPartitionIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "t1", PartitionChunks, "k", []byte("one")))
	require.NoError(t, store.Put(ctx, "t2", PartitionChunks, "k", []byte("two")))
	require.NoError(t, store.Put(ctx, "t1", PartitionVectors, "k", []byte("vec")))

	got, err := store.Get(ctx, "t1", PartitionChunks, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)

	got, err = store.Get(ctx, "t2", PartitionChunks, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)

	require.NoError(t, store.DeleteByPrefix(ctx, "t1", PartitionChunks, "k"))
	_, err = store.Get(ctx, "t1", PartitionChunks, "k")
	assert.True(t, errors.Is(err, types.ErrNotFound))

	_, err = store.Get(ctx, "t2", PartitionChunks, "k")
	assert.NoError(t, err, "deleting in one tenant leaves the other untouched")
	_, err = store.Get(ctx, "t1", PartitionVectors, "k")
	assert.NoError(t, err, "partitions are independent")
}

func TestMemoryStoreDeleteByPrefix(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "t1", PartitionChunks, "doc1-0-10", []byte("a")))
	require.NoError(t, store.Put(ctx, "t1", PartitionChunks, "doc1-10-20", []byte("b")))
	require.NoError(t, store.Put(ctx, "t1", PartitionChunks, "doc12-0-10", []byte("c")))

	require.NoError(t, store.DeleteByPrefix(ctx, "t1", PartitionChunks, ChunkKeyPrefix("doc1")))

	_, err := store.Get(ctx, "t1", PartitionChunks, "doc1-0-10")
	assert.True(t, errors.Is(err, types.ErrNotFound))
	_, err = store.Get(ctx, "t1", PartitionChunks, "doc1-10-20")
	assert.True(t, errors.Is(err, types.ErrNotFound))

	_, err = store.Get(ctx, "t1", PartitionChunks, "doc12-0-10")
	assert.NoError(t, err, "the separator keeps doc1 from matching doc12")
}

func TestMemoryStoreScanIsOrdered(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, key := range []string{"c", "a", "b"} {
		require.NoError(t, store.Put(ctx, "t1", PartitionChunks, key, []byte(key)))
	}

	var seen []string
	err := store.Scan(ctx, "t1", PartitionChunks, func(key string, value []byte) bool {
		seen = append(seen, key)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestMemoryStoreScanEarlyTermination(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, store.Put(ctx, "t1", PartitionChunks, key, []byte(key)))
	}

	var seen []string
	err := store.Scan(ctx, "t1", PartitionChunks, func(key string, value []byte) bool {
		seen = append(seen, key)
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, seen)
}

func TestMemoryStoreScanHonorsContext(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "t1", PartitionChunks, "a", []byte("a")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Scan(ctx, "t1", PartitionChunks, func(string, []byte) bool { return true })
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestVectorEncoding(t *testing.T) {
	vec := []float32{1.5, -2.25, 0, 3.875}

	decoded, err := DecodeVector(EncodeVector(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)

	_, err = DecodeVector([]byte{1, 2, 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrDimensionMismatch))
}

func TestPrefixSuccessor(t *testing.T) {
	succ, ok := prefixSuccessor("doc1-")
	require.True(t, ok)
	assert.Equal(t, "doc1.", succ)

	succ, ok = prefixSuccessor("a\xff")
	require.True(t, ok)
	assert.Equal(t, "b", succ)

	_, ok = prefixSuccessor("\xff\xff")
	assert.False(t, ok)
}
