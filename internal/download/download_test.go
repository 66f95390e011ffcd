package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/nightconcept/almandine/internal/errors"
)

func newTestDownloader(t *testing.T) *HTTPDownloader {
	t.Helper()

	d, err := NewHTTPDownloader(hclog.NewNullLogger(), WithRetry(2, 0))
	require.NoError(t, err)
	return d
}

func TestHTTPDownloader_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("return {}"))
	}))
	t.Cleanup(srv.Close)

	dest := filepath.Join(t.TempDir(), "src", "lib", "mod.lua")
	require.NoError(t, newTestDownloader(t).Download(context.Background(), srv.URL+"/mod.lua", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "return {}", string(data))

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestHTTPDownloader_FailureKeepsExistingFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		calls  int32
	}{
		{name: "not found", status: http.StatusNotFound, calls: 1},
		{name: "server error is retried", status: http.StatusInternalServerError, calls: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte("error page"))
			}))
			t.Cleanup(srv.Close)

			dest := filepath.Join(t.TempDir(), "mod.lua")
			require.NoError(t, os.WriteFile(dest, []byte("previous"), 0o644))

			err := newTestDownloader(t).Download(context.Background(), srv.URL, dest)
			require.ErrorIs(t, err, errs.ErrDownload)
			require.Equal(t, tc.calls, calls.Load())

			data, err := os.ReadFile(dest)
			require.NoError(t, err)
			require.Equal(t, "previous", string(data))

			entries, err := os.ReadDir(filepath.Dir(dest))
			require.NoError(t, err)
			require.Len(t, entries, 1, "temporary files must be cleaned up")
		})
	}
}

func TestHTTPDownloader_FileURL(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "mirror.lua")
	require.NoError(t, os.WriteFile(src, []byte("mirrored"), 0o644))

	dest := filepath.Join(dir, "out", "mod.lua")
	require.NoError(t, newTestDownloader(t).Download(context.Background(), "file://"+filepath.ToSlash(src), dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "mirrored", string(data))

	err = newTestDownloader(t).Download(context.Background(), "file://"+filepath.ToSlash(filepath.Join(dir, "missing")), dest)
	require.ErrorIs(t, err, errs.ErrDownload)
}

func TestHTTPDownloader_UnsupportedScheme(t *testing.T) {
	t.Parallel()

	err := newTestDownloader(t).Download(context.Background(), "ftp://example.com/x.lua", filepath.Join(t.TempDir(), "x"))
	require.ErrorIs(t, err, errs.ErrDownload)
	require.ErrorContains(t, err, "unsupported URL scheme")
}

func TestDownloaderFunc(t *testing.T) {
	t.Parallel()

	var got string
	var d Downloader = DownloaderFunc(func(_ context.Context, url string, _ string) error {
		got = url
		return nil
	})

	require.NoError(t, d.Download(context.Background(), "https://example.com/a", "a"))
	require.Equal(t, "https://example.com/a", got)
}
