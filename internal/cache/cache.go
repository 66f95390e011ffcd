// Package cache keeps a user-wide copy of downloaded dependency files that are pinned to a commit.
//
// A raw GitHub URL that names a full commit SHA always serves the same bytes, so a project that
// depends on a file another project already fetched can be installed without touching the network.
// URLs without a commit pin are passed straight through to the wrapped downloader.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/nightconcept/almandine/internal/download"
	"github.com/nightconcept/almandine/internal/files"
	"github.com/nightconcept/almandine/internal/perms"
	"github.com/nightconcept/almandine/internal/source"
)

var _ download.Downloader = (*Cache)(nil)

// Cache wraps a download.Downloader with a content cache.
// NewCache should be used to create instances of Cache.
type Cache struct {
	// next performs the actual transfer on a cache miss.
	next download.Downloader

	// dir is the directory where cache files are stored.
	dir string

	// ttl is the time-to-live for cached entries.
	ttl time.Duration

	// enabled determines if caching is enabled.
	enabled bool

	// refresh forces cache refresh when true.
	refresh bool

	// logger is used for logging cache operations.
	logger hclog.Logger
}

// NewCache creates a caching downloader around next.
func NewCache(logger hclog.Logger, next download.Downloader, opts ...Option) (*Cache, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if next == nil {
		return nil, fmt.Errorf("downloader cannot be nil")
	}

	options, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}

	// Only create cache directory if caching is enabled.
	if options.enabled {
		if err := files.EnsureAtLeastRegularDir(options.dir); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	return &Cache{
		next:    next,
		dir:     options.dir,
		logger:  logger.Named("cache"),
		enabled: options.enabled,
		refresh: options.refreshCache,
		ttl:     options.ttl,
	}, nil
}

// Download implements download.Downloader.
// Cache failures are logged and the download falls back to the wrapped downloader.
func (c *Cache) Download(ctx context.Context, url string, destPath string) error {
	if !c.enabled || !Cacheable(url) {
		return c.next.Download(ctx, url, destPath)
	}

	cachePath := c.path(url)

	if c.refresh {
		c.logger.Debug("Cache refresh requested", "url", url)
		if err := c.next.Download(ctx, url, cachePath); err != nil {
			return err
		}
	} else if c.isExpired(cachePath) {
		c.logger.Debug("Cache expired or missing", "url", url, "path", cachePath)
		if err := c.next.Download(ctx, url, cachePath); err != nil {
			return err
		}
	} else {
		c.logger.Debug("Using cached file", "url", url, "path", cachePath)
	}

	if err := files.CopyFileAtomic(cachePath, destPath, perms.RegularFile); err != nil {
		c.logger.Warn(
			"Failed to copy from cache, downloading directly",
			"url", url,
			"path", cachePath,
			"error", err,
		)
		return c.next.Download(ctx, url, destPath)
	}

	return nil
}

// Cacheable reports whether url always serves the same bytes.
func Cacheable(url string) bool {
	info, err := source.Parse(url)
	if err != nil {
		return false
	}
	return info.IsCommitPinned() && info.RawURL == url
}

// path returns the cache file for url.
func (c *Cache) path(url string) string {
	hash := sha256.Sum256([]byte(url))
	return filepath.Join(c.dir, fmt.Sprintf("%x", hash))
}

// isExpired checks if a cache file is expired based on modification time.
func (c *Cache) isExpired(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true // Treat missing as expired.
	}
	return time.Since(info.ModTime()) > c.ttl
}
