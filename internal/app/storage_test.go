package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirStorageNaming(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "recordings")
	s := DirStorage{Dir: dir}

	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	path, err := s.NewOutput("abc", at)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "20240309-140507-abc.wav"), path)
	assert.DirExists(t, dir)
}

func TestDirStorageDiscard(t *testing.T) {
	s := DirStorage{Dir: t.TempDir()}
	path := filepath.Join(s.Dir, "x.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))

	require.NoError(t, s.Discard(path))
	assert.NoFileExists(t, path)
	assert.NoError(t, s.Discard(path))
}

func TestCaptureError(t *testing.T) {
	inner := os.ErrPermission
	err := error(&CaptureError{Op: "open", Err: inner})

	assert.Equal(t, "capture open failed: permission denied", err.Error())
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.True(t, IsCaptureError(err))
	assert.False(t, IsCaptureError(inner))
}
