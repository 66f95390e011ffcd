package self

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/nightconcept/almandine/internal/cache"
	"github.com/nightconcept/almandine/internal/cmd"
	"github.com/nightconcept/almandine/internal/cmd/options"
	"github.com/nightconcept/almandine/internal/download"
	errs "github.com/nightconcept/almandine/internal/errors"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type fakeReleases struct {
	tags  []string
	files map[string][]byte
	urls  []string
}

func (f *fakeReleases) LatestCommit(context.Context, string, string, string, string) (string, error) {
	return "", errs.ErrRefNotFound
}

func (f *fakeReleases) Tags(context.Context, string, string) ([]string, error) {
	return f.tags, nil
}

func (f *fakeReleases) Download(_ context.Context, url string, destPath string) error {
	f.urls = append(f.urls, url)
	data, ok := f.files[url]
	if !ok {
		return fmt.Errorf("%w: GET %s: 404 Not Found", errs.ErrDownload, url)
	}
	return os.WriteFile(destPath, data, 0o644)
}

func (f *fakeReleases) GitHub() (cmd.GitHubAPI, error) {
	return f, nil
}

func (f *fakeReleases) Downloader(...cache.Option) (download.Downloader, error) {
	return f, nil
}

func releaseURL(tag string) string {
	return fmt.Sprintf(
		"https://github.com/nightconcept/almandine/releases/download/%s/almd_%s_%s_%s.tar.gz",
		tag,
		strings.TrimPrefix(tag, "v"),
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// releaseArchive builds a tar.gz holding an 'almd' tree wrapped in a top-level directory.
func releaseArchive(t *testing.T, version string) []byte {
	t.Helper()

	root := "almd-" + version + "/"
	return tarGz(t, []string{root}, map[string]string{
		root + "almd":         "#!/bin/sh\necho " + version + "\n",
		root + "lib/core.lua": "return " + version,
	})
}

func tarGz(t *testing.T, dirs []string, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, dir := range dirs {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: dir, Typeflag: tar.TypeDir, Mode: 0o755}))
	}
	for name, content := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o755,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func newReleases(t *testing.T) *fakeReleases {
	t.Helper()

	return &fakeReleases{
		tags: []string{"v0.1.0", "v1.0.0", "v1.1.0-rc.1", "nightly"},
		files: map[string][]byte{
			releaseURL("v1.0.0"): releaseArchive(t, "1.0.0"),
		},
	}
}

// currentInstall creates an install directory holding version 0.9.0.
func currentInstall(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "almd")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "almd"), []byte("old"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib", "stale.lua"), []byte("old"), 0o644))
	return dir
}

func execute(
	t *testing.T,
	fn func(*cmd.BaseCmd, ...options.CmdOption) (*cobra.Command, error),
	b cmd.ClientBuilder,
	stdin string,
	args ...string,
) (string, string, error) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("release archives for windows are zip files with an almd.exe marker")
	}
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("ALMD_INSTALL_DIR", "")

	base := &cmd.BaseCmd{}
	base.SetLogger(hclog.NewNullLogger())

	c, err := fn(base, options.WithClientBuilder(b), options.WithVersion("0.9.0"))
	require.NoError(t, err)

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	c.SetOut(stdout)
	c.SetErr(stderr)
	c.SetIn(strings.NewReader(stdin))
	c.SetArgs(args)

	err = c.Execute()
	return stdout.String(), stderr.String(), err
}

func TestUpdateCmd_Check(t *testing.T) {
	dir := currentInstall(t)
	r := newReleases(t)

	stdout, _, err := execute(t, NewUpdateCmd, r, "", "--check", "--install-dir", dir)
	require.NoError(t, err)
	require.Equal(t, "Update available: 0.9.0 -> v1.0.0\n", stdout)
	require.Empty(t, r.urls)
	require.FileExists(t, filepath.Join(dir, "lib", "stale.lua"))
}

func TestUpdateCmd_Yes(t *testing.T) {
	dir := currentInstall(t)
	r := newReleases(t)

	stdout, _, err := execute(t, NewUpdateCmd, r, "", "--yes", "--install-dir", dir)
	require.NoError(t, err)
	require.Contains(t, stdout, "✓ Updated almd from 0.9.0 to 1.0.0")
	require.Equal(t, []string{releaseURL("v1.0.0")}, r.urls)

	data, err := os.ReadFile(filepath.Join(dir, "almd"))
	require.NoError(t, err)
	require.Contains(t, string(data), "echo 1.0.0")
	require.FileExists(t, filepath.Join(dir, "lib", "core.lua"))
	require.NoFileExists(t, filepath.Join(dir, "lib", "stale.lua"))
}

func TestUpdateCmd_Prompt(t *testing.T) {
	tests := []struct {
		name      string
		answer    string
		wantOut   string
		installed bool
	}{
		{name: "declined", answer: "n\n", wantOut: "Update cancelled"},
		{name: "no answer", answer: "", wantOut: "Update cancelled"},
		{name: "accepted", answer: "yes\n", wantOut: "Updated almd from 0.9.0 to 1.0.0", installed: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := currentInstall(t)
			r := newReleases(t)

			stdout, _, err := execute(t, NewUpdateCmd, r, tc.answer, "--install-dir", dir)
			require.NoError(t, err)
			require.Contains(t, stdout, "Update almd in "+dir+" from 0.9.0 to v1.0.0? [y/N]: ")
			require.Contains(t, stdout, tc.wantOut)

			data, err := os.ReadFile(filepath.Join(dir, "almd"))
			require.NoError(t, err)
			if tc.installed {
				require.NotEqual(t, "old", string(data))
			} else {
				require.Equal(t, "old", string(data))
				require.Empty(t, r.urls)
			}
		})
	}
}

func TestUpdateCmd_UpToDate(t *testing.T) {
	dir := currentInstall(t)
	r := newReleases(t)
	r.tags = []string{"v0.1.0", "v0.9.0"}

	stdout, _, err := execute(t, NewUpdateCmd, r, "", "--yes", "--install-dir", dir)
	require.NoError(t, err)
	require.Equal(t, "✓ almd 0.9.0 is up to date (latest release: v0.9.0)\n", stdout)
	require.Empty(t, r.urls)
}

func TestUpdateCmd_InvalidArchive(t *testing.T) {
	dir := currentInstall(t)
	r := newReleases(t)
	r.files[releaseURL("v1.0.0")] = tarGz(t, nil, map[string]string{"README": "no marker here"})

	_, _, err := execute(t, NewUpdateCmd, r, "", "--yes", "--install-dir", dir)
	require.ErrorIs(t, err, errs.ErrSelfUpdate)
	require.ErrorContains(t, err, "'almd' not found in release archive")

	data, err := os.ReadFile(filepath.Join(dir, "almd"))
	require.NoError(t, err)
	require.Equal(t, "old", string(data))
}

func TestUpdateCmd_RollsBack(t *testing.T) {
	dir := currentInstall(t)
	r := newReleases(t)
	// The marker is a directory, so the replaced install fails validation.
	r.files[releaseURL("v1.0.0")] = tarGz(t, []string{"almd/"}, map[string]string{"almd/core.lua": "return 1"})

	_, stderr, err := execute(t, NewUpdateCmd, r, "", "--yes", "--install-dir", dir)
	require.ErrorIs(t, err, errs.ErrSelfUpdate)
	require.NotErrorIs(t, err, errs.ErrRollback)
	require.Contains(t, stderr, "! Update failed, the previous installation was restored")

	data, err := os.ReadFile(filepath.Join(dir, "almd"))
	require.NoError(t, err)
	require.Equal(t, "old", string(data))
	require.FileExists(t, filepath.Join(dir, "lib", "stale.lua"))
}

func TestUpdateCmd_Errors(t *testing.T) {
	dir := currentInstall(t)

	_, _, err := execute(t, NewUpdateCmd, newReleases(t), "", "--check", "--yes", "--install-dir", dir)
	require.ErrorContains(t, err, "none of the others can be")

	_, _, err = execute(t, NewUpdateCmd, newReleases(t), "", "--source", "not-a-repo", "--install-dir", dir)
	require.Error(t, err)

	r := newReleases(t)
	r.tags = []string{"nightly"}
	_, _, err = execute(t, NewUpdateCmd, r, "", "--install-dir", dir)
	require.ErrorContains(t, err, "no release tags found")
}

func TestUninstallCmd(t *testing.T) {
	t.Run("yes", func(t *testing.T) {
		dir := currentInstall(t)

		stdout, _, err := execute(t, NewUninstallCmd, newReleases(t), "", "--yes", "--install-dir", dir)
		require.NoError(t, err)
		require.Equal(t, "✓ Removed "+dir+"\n", stdout)
		require.NoDirExists(t, dir)
	})

	t.Run("declined", func(t *testing.T) {
		dir := currentInstall(t)

		stdout, _, err := execute(t, NewUninstallCmd, newReleases(t), "n\n", "--install-dir", dir)
		require.NoError(t, err)
		require.Contains(t, stdout, "Remove the almd installation at "+dir+"? [y/N]: ")
		require.Contains(t, stdout, "Uninstall cancelled")
		require.DirExists(t, dir)
	})

	t.Run("not an installation", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))

		_, _, err := execute(t, NewUninstallCmd, newReleases(t), "", "-y", "--install-dir", dir)
		require.ErrorContains(t, err, "refusing to remove")
		require.FileExists(t, filepath.Join(dir, "notes.txt"))
	})

	t.Run("nothing installed", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "missing")

		_, _, err := execute(t, NewUninstallCmd, newReleases(t), "", "-y", "--install-dir", dir)
		require.ErrorContains(t, err, "nothing installed")
	})
}

func TestNewCmd(t *testing.T) {
	c, err := NewCmd(&cmd.BaseCmd{})
	require.NoError(t, err)

	var names []string
	for _, sub := range c.Commands() {
		names = append(names, sub.Name())
	}
	require.ElementsMatch(t, []string{"update", "uninstall"}, names)
}
