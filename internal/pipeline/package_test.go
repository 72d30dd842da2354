package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkdirs(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o750))
	}
}

func TestResolvePackage(t *testing.T) {
	tests := []struct {
		name     string
		dirs     []string
		files    []string
		explicit string
		want     string
		wantErr  any
	}{
		{name: "single package", dirs: []string{"foo"}, want: "foo"},
		{name: "hidden dirs ignored", dirs: []string{"foo", ".git", ".venv"}, want: "foo"},
		{name: "files ignored", dirs: []string{"foo"}, files: []string{"setup.py"}, want: "foo"},
		{name: "no package", files: []string{"setup.py"}, wantErr: &PackageNotFoundError{}},
		{name: "only hidden", dirs: []string{".git"}, wantErr: &PackageNotFoundError{}},
		{name: "ambiguous", dirs: []string{"foo", "tests"}, wantErr: &AmbiguousPackageError{}},
		{name: "explicit selects", dirs: []string{"foo", "tests"}, explicit: "foo", want: "foo"},
		{name: "explicit missing", dirs: []string{"foo"}, explicit: "bar", wantErr: &PackageNotFoundError{}},
		{name: "explicit nested rejected", dirs: []string{"foo/sub"}, explicit: "foo/sub", wantErr: &PackageNotFoundError{}},
		{name: "explicit file rejected", files: []string{"foo"}, explicit: "foo", wantErr: &PackageNotFoundError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := t.TempDir()
			mkdirs(t, src, tt.dirs...)
			for _, f := range tt.files {
				require.NoError(t, os.WriteFile(filepath.Join(src, f), nil, 0o600))
			}

			got, err := ResolvePackage(src, tt.explicit)
			switch want := tt.wantErr.(type) {
			case nil:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			case *PackageNotFoundError:
				require.ErrorAs(t, err, &want)
			case *AmbiguousPackageError:
				require.ErrorAs(t, err, &want)
				assert.Equal(t, []string{"foo", "tests"}, want.Candidates)
				assert.Contains(t, err.Error(), "--package")
			}
		})
	}
}

func TestResolvePackage_MissingSource(t *testing.T) {
	_, err := ResolvePackage(filepath.Join(t.TempDir(), "missing"), "")
	require.Error(t, err)
}
