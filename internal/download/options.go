package download

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nightconcept/almandine/internal/httputil"
)

// DefaultUserAgent identifies almd to servers.
const DefaultUserAgent = "almd"

// Option defines a functional option for configuring HTTPDownloader.
type Option func(*Options) error

// Options contains optional configuration for the downloader.
type Options struct {
	httpClient *http.Client
	userAgent  string
	attempts   int
	delay      time.Duration
}

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) (Options, error) {
	o := Options{
		httpClient: http.DefaultClient,
		userAgent:  DefaultUserAgent,
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

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *Options) error {
		o.userAgent = strings.TrimSpace(ua)
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
