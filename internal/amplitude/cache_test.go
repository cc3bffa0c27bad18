package amplitude

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheBoundedFIFO(t *testing.T) {
	c := NewCache(3, nil)

	for _, v := range []float64{1, 2, 3, 4, 5} {
		c.CacheAmplitude(v)
	}

	assert.Equal(t, []float64{3, 4, 5}, c.Get())
	assert.Equal(t, 5.0, c.Last())
}

func TestCacheGetReturnsCopy(t *testing.T) {
	c := NewCache(3, nil)
	c.CacheAmplitude(1)

	got := c.Get()
	got[0] = 99

	assert.Equal(t, []float64{1}, c.Get())
}

func TestCachePutKeepsTail(t *testing.T) {
	store := NewMemoryStore()
	c := NewCache(2, store)

	key, err := c.Put(context.Background(), []float64{1, 2, 3})
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 3}, c.Get())
	assert.Equal(t, 3.0, c.Last())
	assert.Equal(t, SnapshotKey([]float64{2, 3}), key)

	stored, ok, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float64{2, 3}, stored)
}

func TestGetFromCacheFallsBackToStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "abc", []float64{0.1, 0.2}))

	c := NewCache(10, store)
	c.CacheAmplitude(0.9)

	values, ok, err := c.GetFromCache(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float64{0.1, 0.2}, values)
	assert.Equal(t, []float64{0.1, 0.2}, c.Get())
	assert.Equal(t, 0.2, c.Last())

	// second read is served from memory
	require.NoError(t, store.Clear(ctx))
	values, ok, err = c.GetFromCache(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float64{0.1, 0.2}, values)
}

func TestGetFromCacheMiss(t *testing.T) {
	c := NewCache(10, NewMemoryStore())

	_, ok, err := c.GetFromCache(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	memOnly := NewCache(10, nil)
	_, ok, err = memOnly.GetFromCache(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheAmplitudeInvalidatesSnapshotKey(t *testing.T) {
	c := NewCache(10, nil)
	key, err := c.Put(context.Background(), []float64{0.3})
	require.NoError(t, err)

	c.CacheAmplitude(0.4)

	_, ok, err := c.GetFromCache(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheClearWipesStore(t *testing.T) {
	store := NewMemoryStore()
	c := NewCache(10, store)
	_, err := c.Put(context.Background(), []float64{0.5})
	require.NoError(t, err)

	require.NoError(t, c.Clear(context.Background()))

	assert.Empty(t, c.Get())
	assert.Equal(t, 0.0, c.Last())
	assert.Equal(t, 0, store.Len())
}

type failingStore struct{ err error }

func (f failingStore) Put(context.Context, string, []float64) error { return f.err }
func (f failingStore) Get(context.Context, string) ([]float64, bool, error) {
	return nil, false, f.err
}
func (f failingStore) Clear(context.Context) error { return f.err }

func TestCacheSurfacesStoreErrors(t *testing.T) {
	boom := errors.New("disk full")
	c := NewCache(10, failingStore{err: boom})
	ctx := context.Background()

	_, err := c.Put(ctx, []float64{0.1})
	assert.ErrorIs(t, err, boom)
	// memory is still updated
	assert.Equal(t, []float64{0.1}, c.Get())

	_, _, err = c.GetFromCache(ctx, "other")
	assert.ErrorIs(t, err, boom)

	assert.ErrorIs(t, c.Clear(ctx), boom)
	assert.Empty(t, c.Get())
}

func TestSnapshotKeyStable(t *testing.T) {
	a := SnapshotKey([]float64{0.1, 0.2})
	assert.Equal(t, a, SnapshotKey([]float64{0.1, 0.2}))
	assert.NotEqual(t, a, SnapshotKey([]float64{0.2, 0.1}))
	assert.NotEmpty(t, SnapshotKey(nil))
}
