package toolexec

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_CapturesOutput(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()

	res, err := ExecRunner{}.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", `pwd; echo "$OBFPKG_TEST_VALUE" >&2`},
		Dir:  dir,
		Env:  []string{"OBFPKG_TEST_VALUE=hello"},
	})
	require.NoError(t, err)

	got, err := filepath.EvalSymlinks(string(trimNewline(res.Stdout)))
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "hello\n", string(res.Stderr))
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	requireShell(t)

	_, err := ExecRunner{}.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo partial; echo 'error: no module named foo' >&2; exit 3"},
	})
	require.Error(t, err)

	var te *ExternalToolError
	require.True(t, errors.As(err, &te))
	assert.ErrorIs(t, err, ErrToolFailed)
	assert.Equal(t, 3, te.ExitCode)
	assert.Equal(t, "sh exited with code 3: error: no module named foo", te.Error())
	assert.Contains(t, te.Diagnostics(), "STDOUT:\npartial")
}

func TestExecRunner_MissingBinary(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), Command{Name: filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)

	var te *ExternalToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 0, te.ExitCode)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExecRunner_Canceled(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ExecRunner{}.Run(ctx, Command{Name: "sh", Args: []string{"-c", "sleep 5"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExpand(t *testing.T) {
	got := Expand(
		[]string{"gen", "-O", "{dist}", "{src}/{package}", "{unknown}"},
		map[string]string{"dist": "/w/dist", "src": "/s", "package": "foo"},
	)
	assert.Equal(t, []string{"gen", "-O", "/w/dist", "/s/foo", "{unknown}"}, got)
	assert.Nil(t, Expand(nil, nil))
}

func TestEnvList(t *testing.T) {
	got := EnvList(map[string]string{"B": "2", "A": "1"})
	sort.Strings(got)
	assert.Equal(t, []string{"A=1", "B=2"}, got)
	assert.Nil(t, EnvList(nil))
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "stubgen -o /b -p foo", Command{Name: "stubgen", Args: []string{"-o", "/b", "-p", "foo"}}.String())
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
