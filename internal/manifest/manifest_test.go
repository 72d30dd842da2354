package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestEnsure_CreatesMissingFile(t *testing.T) {
	dir := t.TempDir()

	added, err := NewAugmenter().EnsureIn(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultDirectives(), added)

	got := readFile(t, filepath.Join(dir, FileName))
	assert.Equal(t, "global-include *.pyi\nrecursive-include */pytransform *\n", got)
}

func TestEnsure_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("include README.md"), 0o600))

	a := NewAugmenter()
	_, err := a.Ensure(path)
	require.NoError(t, err)
	once := readFile(t, path)

	added, err := a.Ensure(path)
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Equal(t, once, readFile(t, path))
	assert.Equal(t, "include README.md\nglobal-include *.pyi\nrecursive-include */pytransform *\n", once)
}

func TestEnsure_AppendsOnlyMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	existing := "include LICENSE\n   global-include *.pyi   \n"
	require.NoError(t, os.WriteFile(path, []byte(existing), 0o600))

	added, err := NewAugmenter().Ensure(path)
	require.NoError(t, err)
	assert.Equal(t, []string{RuntimeDirective}, added)
	assert.Equal(t, existing+RuntimeDirective+"\n", readFile(t, path))
}

func TestEnsure_ExtraDirectives(t *testing.T) {
	dir := t.TempDir()
	a := NewAugmenter("include py.typed", "  ")

	assert.Equal(t, []string{StubsDirective, RuntimeDirective, "include py.typed"}, a.Directives())

	added, err := a.EnsureIn(dir)
	require.NoError(t, err)
	assert.Len(t, added, 3)
}

func TestEnsure_ReadError(t *testing.T) {
	dir := t.TempDir()
	// A directory in place of the manifest cannot be read as a file.
	require.NoError(t, os.Mkdir(filepath.Join(dir, FileName), 0o750))

	_, err := NewAugmenter().EnsureIn(dir)
	require.Error(t, err)
}

func TestMissing(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"empty content", "", DefaultDirectives()},
		{"substring match counts as present", "foo global-include *.pyi bar", []string{RuntimeDirective}},
		{"all present", StubsDirective + "\n" + RuntimeDirective, nil},
		{"extra blanks inside a directive", "global-include  *.pyi\nrecursive-include\t*/pytransform  *\n", nil},
		{"directive split across lines is absent", "global-include\n*.pyi", []string{StubsDirective, RuntimeDirective}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Missing(tt.content, DefaultDirectives()))
		})
	}
}

func TestEnsure_DoubleSpacedDirectiveNotDuplicated(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("global-include  *.pyi\n"), 0o600))

	added, err := NewAugmenter().Ensure(path)
	require.NoError(t, err)
	assert.Equal(t, []string{RuntimeDirective}, added)
	assert.Equal(t, "global-include  *.pyi\n"+RuntimeDirective+"\n", readFile(t, path))
}
