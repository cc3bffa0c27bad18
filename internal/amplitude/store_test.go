package amplitude

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	fs, err := NewFileStore(root, "waveform")
	require.NoError(t, err)

	require.NoError(t, fs.Put(ctx, "k1", []float64{0.25, 0.5}))

	values, ok, err := fs.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float64{0.25, 0.5}, values)

	_, ok, err = fs.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	// unrelated files in the namespace survive Clear
	other := filepath.Join(root, "waveform", "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0644))

	require.NoError(t, fs.Clear(ctx))
	_, ok, err = fs.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.FileExists(t, other)
}

func TestFileStoreCorruptSnapshot(t *testing.T) {
	root := t.TempDir()
	fs, err := NewFileStore(root, "ns")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "ns", "bad.json"), []byte("{"), 0644))

	_, _, err = fs.Get(context.Background(), "bad")
	assert.Error(t, err)
}

func TestRedisStorePutGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db, "waveform", time.Hour)
	ctx := context.Background()

	mock.ExpectSet("waveform:k1", "[0.25,0.5]", time.Hour).SetVal("OK")
	mock.ExpectGet("waveform:k1").SetVal("[0.25,0.5]")
	mock.ExpectGet("waveform:missing").RedisNil()

	require.NoError(t, store.Put(ctx, "k1", []float64{0.25, 0.5}))

	values, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float64{0.25, 0.5}, values)

	_, ok, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreGetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db, "waveform", 0)

	mock.ExpectGet("waveform:k1").SetErr(errors.New("connection refused"))

	_, _, err := store.Get(context.Background(), "k1")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreClearScansNamespace(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db, "waveform", 0)

	mock.ExpectScan(0, "waveform:*", 100).SetVal([]string{"waveform:a", "waveform:b"}, 7)
	mock.ExpectDel("waveform:a", "waveform:b").SetVal(2)
	mock.ExpectScan(7, "waveform:*", 100).SetVal([]string{}, 0)

	require.NoError(t, store.Clear(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreBacksCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(10, NewRedisStore(db, "wf", 0))
	ctx := context.Background()

	key := SnapshotKey([]float64{0.5})
	mock.ExpectSet("wf:"+key, "[0.5]", 0).SetVal("OK")

	got, err := cache.Put(ctx, []float64{0.5})
	require.NoError(t, err)
	assert.Equal(t, key, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
