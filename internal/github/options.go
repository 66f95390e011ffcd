package github

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nightconcept/almandine/internal/httputil"
)

// DefaultBaseURL is the public GitHub REST API.
const DefaultBaseURL = "https://api.github.com"

// Option defines a functional option for configuring Client.
type Option func(*Options) error

// Options contains optional configuration for the GitHub client.
type Options struct {
	// baseURL is the API root, without a trailing slash.
	baseURL string

	// token is sent as a bearer token when non-empty.
	token string

	// httpClient performs the requests.
	httpClient *http.Client

	// attempts is the number of tries for retryable failures.
	attempts int

	// delay is the initial retry backoff.
	delay time.Duration
}

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) (Options, error) {
	o := Options{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		attempts:   httputil.DefaultAttempts,
		delay:      httputil.DefaultDelay,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&o); err != nil {
			return Options{}, err
		}
	}

	return o, nil
}

// WithBaseURL sets the API root, e.g. for GitHub Enterprise or tests.
func WithBaseURL(baseURL string) Option {
	return func(o *Options) error {
		baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
		if baseURL == "" {
			return fmt.Errorf("GitHub API base URL cannot be empty")
		}
		u, err := url.Parse(baseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid GitHub API base URL '%s'", baseURL)
		}
		o.baseURL = baseURL
		return nil
	}
}

// WithToken sets the bearer token. An empty token means unauthenticated requests.
func WithToken(token string) Option {
	return func(o *Options) error {
		o.token = strings.TrimSpace(token)
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) error {
		if c == nil {
			return fmt.Errorf("HTTP client cannot be nil")
		}
		o.httpClient = c
		return nil
	}
}

// WithRetry sets the number of attempts and the initial backoff for transient failures.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(o *Options) error {
		if attempts < 1 {
			return fmt.Errorf("retry attempts must be at least 1, got %d", attempts)
		}
		if delay < 0 {
			return fmt.Errorf("retry delay cannot be negative, got %v", delay)
		}
		o.attempts = attempts
		o.delay = delay
		return nil
	}
}
