// Package github is a minimal GitHub REST client covering the two endpoints almd needs:
// the newest commit touching a path, and the list of repository tags.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"

	errs "github.com/nightconcept/almandine/internal/errors"
	"github.com/nightconcept/almandine/internal/httputil"
)

// ErrAPI indicates a failed GitHub API request.
var ErrAPI = errors.New("GitHub API request failed")

// Client talks to the GitHub REST API.
// NewClient should be used to create instances of Client.
type Client struct {
	logger     hclog.Logger
	httpClient *http.Client
	baseURL    string
	token      string
	attempts   int
	delay      time.Duration
}

type commitResponse struct {
	SHA string `json:"sha"`
}

type tagResponse struct {
	Name string `json:"name"`
}

// NewClient creates a GitHub API client.
func NewClient(logger hclog.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	o, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		logger:     logger.Named("github"),
		httpClient: o.httpClient,
		baseURL:    o.baseURL,
		token:      o.token,
		attempts:   o.attempts,
		delay:      o.delay,
	}, nil
}

// LatestCommit returns the SHA of the newest commit on ref that touches path.
// An empty ref queries the repository's default branch.
// Zero results, 404 and 422 responses return an error wrapping errs.ErrRefNotFound.
func (c *Client) LatestCommit(ctx context.Context, owner, repo, path, ref string) (string, error) {
	q := url.Values{}
	q.Set("path", path)
	q.Set("per_page", "1")
	if ref != "" {
		q.Set("sha", ref)
	}
	endpoint := fmt.Sprintf("%s/repos/%s/%s/commits?%s", c.baseURL, url.PathEscape(owner), url.PathEscape(repo), q.Encode())

	var commits []commitResponse
	if err := c.get(ctx, endpoint, &commits); err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("%w: %s/%s path '%s' at '%s': %w", errs.ErrRefNotFound, owner, repo, path, ref, err)
		}
		return "", err
	}

	if len(commits) == 0 || commits[0].SHA == "" {
		return "", fmt.Errorf("%w: no commits found for %s/%s path '%s' at '%s'", errs.ErrRefNotFound, owner, repo, path, ref)
	}

	c.logger.Debug("Resolved latest commit", "owner", owner, "repo", repo, "path", path, "ref", ref, "sha", commits[0].SHA)

	return commits[0].SHA, nil
}

// Tags returns the names of the repository's tags in the order the API lists them.
func (c *Client) Tags(ctx context.Context, owner, repo string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/tags?per_page=100", c.baseURL, url.PathEscape(owner), url.PathEscape(repo))

	var tags []tagResponse
	if err := c.get(ctx, endpoint, &tags); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(tags))
	for _, t := range tags {
		if t.Name != "" {
			names = append(names, t.Name)
		}
	}

	c.logger.Debug("Listed tags", "owner", owner, "repo", repo, "count", len(names))

	return names, nil
}

// get performs a GET with retries and decodes the JSON body into v.
func (c *Client) get(ctx context.Context, endpoint string, v any) error {
	return httputil.Retry(ctx, c.attempts, c.delay, func() error {
		return c.doGet(ctx, endpoint, v)
	})
}

func (c *Client) doGet(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAPI, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Trace("GET", "url", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &httputil.RetryableError{Err: fmt.Errorf("%w: %w", ErrAPI, err)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logger.Debug("Unexpected status", "url", endpoint, "status", resp.StatusCode)
		return httputil.NewStatusError(ErrAPI, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed response from %s: %w", ErrAPI, endpoint, err)
	}

	return nil
}

// isNotFound reports whether the API said the ref or path does not exist.
func isNotFound(err error) bool {
	code, ok := httputil.StatusCode(err)
	return ok && (code == http.StatusNotFound || code == http.StatusUnprocessableEntity)
}
