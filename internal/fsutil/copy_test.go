package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFile_CreatesParentsAndKeepsMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.pyi")
	require.NoError(t, os.WriteFile(src, []byte("def f() -> int: ..."), 0o640))

	dst := filepath.Join(dir, "out", "pkg", "a.pyi")
	require.NoError(t, CopyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "def f() -> int: ...", string(data))
	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestCopyFile_TruncatesExisting(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "new")
	dst := filepath.Join(dir, "old")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(dst, []byte("much longer content"), 0o600))

	require.NoError(t, CopyFile(src, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestCopyFile_ParentIsFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(src, nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blocker"), nil, 0o600))

	assert.Error(t, CopyFile(src, filepath.Join(dir, "blocker", "a")))
	assert.Error(t, CopyFile(filepath.Join(dir, "missing"), filepath.Join(dir, "b")))
}
