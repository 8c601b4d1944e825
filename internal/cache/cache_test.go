package cache

import (
	"bytes"
	"testing"
	"time"

	"github.com/libretto-pm/libretto/internal/integrity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T, cfg Config) *Cache {
	t.Helper()
	cfg.Root = t.TempDir()
	cfg.GCInterval = -1 // disable background GC for deterministic tests; handled as "not > 0"
	c, err := Open(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestPutGetRoundTrip(t *testing.T) {
	c := openTestCache(t, Config{})
	hash, err := c.Put([]byte("hello world"), "generic", 0, nil)
	require.NoError(t, err)

	data, ok, err := c.Get(hash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello world", string(data))
}

func TestGetMissingReturnsFalse(t *testing.T) {
	c := openTestCache(t, Config{})
	_, ok, err := c.Get(integrity.Hash([]byte("never stored")))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutCompressesLargeCompressiblePayloads(t *testing.T) {
	c := openTestCache(t, Config{})
	big := bytes.Repeat([]byte("a"), 100000)
	hash, err := c.Put(big, "generic", 0, nil)
	require.NoError(t, err)

	data, ok, err := c.Get(hash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, big, data)

	_, meta, ok, err := c.l2.read(hash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, meta.Compressed)
	assert.Less(t, meta.Size, meta.OriginalSize)
}

func TestContainsUsesBloomFastPath(t *testing.T) {
	c := openTestCache(t, Config{})
	hash, err := c.Put([]byte("present"), "generic", 0, nil)
	require.NoError(t, err)

	assert.True(t, c.Contains(hash))
	assert.False(t, c.Contains(integrity.Hash([]byte("absent"))))
}

func TestRemoveEvictsBothTiers(t *testing.T) {
	c := openTestCache(t, Config{})
	hash, err := c.Put([]byte("data"), "generic", 0, nil)
	require.NoError(t, err)

	assert.True(t, c.Remove(hash))
	assert.False(t, c.l1.contains(hash))
	ok, err := c.l2.contains(hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearByTypeRemovesOnlyMatchingEntries(t *testing.T) {
	c := openTestCache(t, Config{})
	h1, err := c.Put([]byte("metadata-blob"), "metadata", 0, nil)
	require.NoError(t, err)
	h2, err := c.Put([]byte("dist-blob"), "dist", 0, nil)
	require.NoError(t, err)

	n := c.ClearByType("metadata")
	assert.Equal(t, 1, n)
	assert.False(t, c.Contains(h1))
	assert.True(t, c.Contains(h2))
}

func TestGCExpiresTTLdEntries(t *testing.T) {
	c := openTestCache(t, Config{})
	hash, err := c.Put([]byte("ephemeral"), "generic", time.Nanosecond, nil)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	result, err := c.GC()
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)
	assert.False(t, c.Contains(hash))
}

func TestGCEvictsOverBudgetByLeastRecentlyAccessed(t *testing.T) {
	c := openTestCache(t, Config{L2MaxBytes: 10})
	_, err := c.Put([]byte("0123456789"), "generic", 0, nil)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	h2, err := c.Put([]byte("abcdefghij"), "generic", 0, nil)
	require.NoError(t, err)

	result, err := c.GC()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Removed, 1)
	assert.True(t, c.Contains(h2))
}

func TestReopenPersistsL2State(t *testing.T) {
	root := t.TempDir()
	c, err := Open(Config{Root: root, GCInterval: -1}, nil)
	require.NoError(t, err)
	hash, err := c.Put([]byte("durable"), "generic", 0, nil)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c2, err := Open(Config{Root: root, GCInterval: -1}, nil)
	require.NoError(t, err)
	defer c2.Close()

	data, ok, err := c2.Get(hash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "durable", string(data))
}

func TestBloomRoundTripViaSaveAndReload(t *testing.T) {
	root := t.TempDir()
	c, err := Open(Config{Root: root, GCInterval: -1}, nil)
	require.NoError(t, err)
	hash, err := c.Put([]byte("bloom me"), "generic", 0, nil)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c2, err := Open(Config{Root: root, GCInterval: -1}, nil)
	require.NoError(t, err)
	defer c2.Close()
	assert.True(t, c2.bloom.mightContain(hash))
}
