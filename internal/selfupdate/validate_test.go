package selfupdate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	out  string
	err  error
	name string
	args []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.name = name
	f.args = args
	return []byte(f.out), f.err
}

func TestMarkerValidator(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	v := MarkerValidator{Marker: "almd"}

	require.ErrorContains(t, v.Validate(context.Background(), dir, Release{}), "marker 'almd' missing")

	require.NoError(t, os.Mkdir(filepath.Join(dir, "almd"), 0o755))
	require.ErrorContains(t, v.Validate(context.Background(), dir, Release{}), "not a regular file")

	require.NoError(t, os.Remove(filepath.Join(dir, "almd")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "almd"), []byte("bin"), 0o755))
	require.NoError(t, v.Validate(context.Background(), dir, Release{}))
}

func TestCommandValidator(t *testing.T) {
	t.Parallel()

	rel := Release{Tag: "v1.2.0", Version: semver.MustParse("v1.2.0")}

	tests := []struct {
		name    string
		runner  *fakeRunner
		wantErr string
	}{
		{name: "version matches", runner: &fakeRunner{out: "almd version 1.2.0\n"}},
		{name: "version differs", runner: &fakeRunner{out: "almd version 1.1.0\n"}, wantErr: "expected 1.2.0"},
		{name: "command fails", runner: &fakeRunner{err: fmt.Errorf("exec format error")}, wantErr: "exec format error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "almd"), []byte("bin"), 0o755))

			err := CommandValidator{Marker: "almd", Runner: tc.runner}.Validate(context.Background(), dir, rel)
			require.Equal(t, filepath.Join(dir, "almd"), tc.runner.name)
			require.Equal(t, []string{"--version"}, tc.runner.args)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSafeJoin(t *testing.T) {
	t.Parallel()

	base := filepath.Join(string(filepath.Separator), "tmp", "staging")

	tests := []struct {
		name    string
		want    string
		wantErr string
	}{
		{name: "almd", want: filepath.Join(base, "almd")},
		{name: "dir/sub/file", want: filepath.Join(base, "dir", "sub", "file")},
		{name: "./dir/../file", want: filepath.Join(base, "file")},
		{name: "../escape", wantErr: "escapes destination"},
		{name: "dir/../../escape", wantErr: "escapes destination"},
		{name: "/etc/passwd", wantErr: "absolute archive path"},
		{name: ".", wantErr: "invalid archive path"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := safeJoin(base, tc.name)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
