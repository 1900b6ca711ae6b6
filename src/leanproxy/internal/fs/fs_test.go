package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "Scratch.lean")
	f := New()

	require.NoError(t, f.WriteFileAtomic(name, []byte("theorem t : True := trivial")))

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "theorem t : True := trivial", string(data))

	// Overwrite in place.
	require.NoError(t, f.WriteFileAtomic(name, []byte("v2")))
	data, err = os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	f := New()
	err := f.WriteFileAtomic(filepath.Join(t.TempDir(), "missing", "file.lean"), []byte("x"))
	assert.Error(t, err)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	f := New()

	ok, err := f.FileExists(filepath.Join(dir, "nope"))
	require.NoError(t, err)
	assert.False(t, ok)

	name := filepath.Join(dir, "yes")
	require.NoError(t, os.WriteFile(name, []byte("y"), 0o644))
	ok, err = f.FileExists(name)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.FileExists(dir)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDirExists(t *testing.T) {
	dir := t.TempDir()
	f := New()

	ok, err := f.DirExists(dir)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.DirExists(filepath.Join(dir, "nope"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
