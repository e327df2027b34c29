package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistentCacheSetGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_cache.json")
	c := newPersistentCache(path)

	_, ok := c.Get(1, 10)
	assert.False(t, ok)
	assert.Equal(t, int32(-1), c.GetOr(1, 10, -1))

	c.Set(1, 10, 42)
	v, ok := c.Get(1, 10)
	require.True(t, ok)
	assert.Equal(t, int32(42), v)

	_, err := os.Stat(path)
	assert.NoError(t, err, "Set must persist to disk")
}

func TestPersistentCacheSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_cache.json")
	c := newPersistentCache(path)
	c.Set(1, 10, 42)
	c.Set(2, 20, -7)

	reloaded := newPersistentCache(path)
	v, ok := reloaded.Get(1, 10)
	require.True(t, ok)
	assert.Equal(t, int32(42), v)

	v, ok = reloaded.Get(2, 20)
	require.True(t, ok)
	assert.Equal(t, int32(-7), v)
}

func TestPersistentCacheDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_cache.json")
	c := newPersistentCache(path)
	c.Set(1, 10, 42)
	c.Delete(1, 10)

	_, ok := c.Get(1, 10)
	assert.False(t, ok)
}

func TestPersistentCacheMissingFileStartsEmpty(t *testing.T) {
	c := newPersistentCache(filepath.Join(t.TempDir(), "does-not-exist.json"))
	_, ok := c.Get(1, 1)
	assert.False(t, ok)
}
