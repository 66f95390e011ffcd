// Package download fetches remote files onto disk without ever leaving a partially written destination.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	errs "github.com/nightconcept/almandine/internal/errors"
	"github.com/nightconcept/almandine/internal/httputil"
	"github.com/nightconcept/almandine/internal/perms"
)

var _ Downloader = (*HTTPDownloader)(nil)

// Downloader fetches url and writes the bytes to destPath.
// On failure the previous contents of destPath, if any, are left untouched.
type Downloader interface {
	Download(ctx context.Context, url string, destPath string) error
}

// DownloaderFunc adapts a function to the Downloader interface.
type DownloaderFunc func(ctx context.Context, url string, destPath string) error

// Download implements Downloader.
func (f DownloaderFunc) Download(ctx context.Context, url string, destPath string) error {
	return f(ctx, url, destPath)
}

// HTTPDownloader downloads http(s) and file URLs.
// NewHTTPDownloader should be used to create instances of HTTPDownloader.
type HTTPDownloader struct {
	logger     hclog.Logger
	httpClient *http.Client
	userAgent  string
	attempts   int
	delay      time.Duration
}

// NewHTTPDownloader creates a downloader.
func NewHTTPDownloader(logger hclog.Logger, opts ...Option) (*HTTPDownloader, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	o, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}

	return &HTTPDownloader{
		logger:     logger.Named("download"),
		httpClient: o.httpClient,
		userAgent:  o.userAgent,
		attempts:   o.attempts,
		delay:      o.delay,
	}, nil
}

// Download implements Downloader.
// The body is streamed to a temporary file in the destination directory, which is renamed over destPath
// only once the transfer has completed.
func (d *HTTPDownloader) Download(ctx context.Context, rawURL string, destPath string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: invalid URL '%s': %w", errs.ErrDownload, rawURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		d.logger.Debug("Downloading", "url", rawURL, "path", destPath)
		return httputil.Retry(ctx, d.attempts, d.delay, func() error {
			return d.fetch(ctx, rawURL, destPath)
		})
	case "file":
		d.logger.Debug("Copying local file", "url", rawURL, "path", destPath)
		return d.copyLocal(u, destPath)
	default:
		return fmt.Errorf("%w: unsupported URL scheme '%s' in '%s'", errs.ErrDownload, u.Scheme, rawURL)
	}
}

func (d *HTTPDownloader) fetch(ctx context.Context, rawURL string, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrDownload, err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return &httputil.RetryableError{Err: fmt.Errorf("%w: %s: %w", errs.ErrDownload, rawURL, err)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s: %w", rawURL, httputil.NewStatusError(errs.ErrDownload, resp.StatusCode))
	}

	return writeAtomic(resp.Body, destPath)
}

func (d *HTTPDownloader) copyLocal(u *url.URL, destPath string) error {
	src := filepath.FromSlash(u.Path)

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrDownload, err)
	}
	defer func() {
		_ = f.Close()
	}()

	return writeAtomic(f, destPath)
}

// writeAtomic streams r into a temporary sibling of destPath and renames it into place.
func writeAtomic(r io.Reader, destPath string) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, perms.RegularDir); err != nil {
		return fmt.Errorf("%w: could not create directory '%s': %w", errs.ErrDownload, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(destPath)+".download-*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temporary file: %w", errs.ErrDownload, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath) // No-op after a successful rename.
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return &httputil.RetryableError{Err: fmt.Errorf("%w: failed to read body: %w", errs.ErrDownload, err)}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close temporary file: %w", errs.ErrDownload, err)
	}
	if err := os.Chmod(tmpPath, perms.RegularFile); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrDownload, err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("%w: failed to move download into '%s': %w", errs.ErrDownload, destPath, err)
	}

	return nil
}
