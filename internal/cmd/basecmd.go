package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/nightconcept/almandine/internal/cache"
	"github.com/nightconcept/almandine/internal/download"
	"github.com/nightconcept/almandine/internal/flags"
	"github.com/nightconcept/almandine/internal/github"
	"github.com/nightconcept/almandine/internal/perms"
)

// GitHubAPI is the part of the GitHub REST API used by commands.
type GitHubAPI interface {
	LatestCommit(ctx context.Context, owner, repo, path, ref string) (string, error)
	Tags(ctx context.Context, owner, repo string) ([]string, error)
}

// ClientBuilder creates the network collaborators a command needs.
type ClientBuilder interface {
	GitHub() (GitHubAPI, error)
	Downloader(opts ...cache.Option) (download.Downloader, error)
}

var _ ClientBuilder = (*BaseCmd)(nil)

type BaseCmd struct {
	logger hclog.Logger
}

// SetLogger updates the command's logger
func (c *BaseCmd) SetLogger(logger hclog.Logger) {
	c.logger = logger
}

// Logger returns the current logger for the command
func (c *BaseCmd) Logger() hclog.Logger {
	if c.logger != nil {
		return c.logger
	}

	// Get log level from flags first, then environment, then default
	logLevel := flags.LogLevel
	if logLevel == "" {
		logLevel = strings.ToLower(os.Getenv(flags.EnvVarLogLevel))
		if logLevel == "" {
			logLevel = flags.DefaultLogLevel
		}
	}

	logPath := flags.LogPath
	if logPath == "" {
		logPath = strings.TrimSpace(os.Getenv(flags.EnvVarLogPath))
	}

	var output io.Writer = io.Discard
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, perms.RegularFile)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to open log file (%s): %v, using stderr\n", logPath, err)
			output = os.Stderr
		} else {
			output = f
		}
	}

	level := hclog.LevelFromString(logLevel)
	if flags.Verbose {
		if output == io.Discard {
			output = os.Stderr
		} else if output != os.Stderr {
			output = io.MultiWriter(output, os.Stderr)
		}
		if level == hclog.NoLevel || level > hclog.Debug {
			level = hclog.Debug
		}
	}

	c.logger = hclog.New(&hclog.LoggerOptions{
		Name:   "almd",
		Level:  level,
		Output: output,
	})

	return c.logger
}

// GitHub returns a GitHub API client configured from the global flags.
func (c *BaseCmd) GitHub() (GitHubAPI, error) {
	baseURL := flags.GitHubAPIURL
	if strings.TrimSpace(baseURL) == "" {
		baseURL = flags.DefaultGitHubAPIURL
	}

	return github.NewClient(
		c.Logger(),
		github.WithBaseURL(baseURL),
		github.WithToken(flags.GitHubToken()),
	)
}

// Downloader returns an HTTP downloader behind the commit-pinned content cache.
// opts are applied after the cache settings taken from the global flags.
func (c *BaseCmd) Downloader(opts ...cache.Option) (download.Downloader, error) {
	httpDL, err := download.NewHTTPDownloader(c.Logger())
	if err != nil {
		return nil, err
	}

	cacheOpts := []cache.Option{cache.WithCaching(!flags.NoCache)}
	if dir := strings.TrimSpace(flags.CacheDir); dir != "" {
		cacheOpts = append(cacheOpts, cache.WithDirectory(dir))
	}

	return cache.NewCache(c.Logger(), httpDL, append(cacheOpts, opts...)...)
}
