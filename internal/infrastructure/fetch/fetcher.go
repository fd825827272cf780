package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ArticlesHarvester/internal/domain"
	"ArticlesHarvester/internal/ports"
)

const (
	defaultUserAgent = "ArticlesHarvester/1.0"
	defaultTimeout   = 30 * time.Second
	maxBodyBytes     = 8 << 20
)

// StatusError reports a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// Unwrap classifies status failures as transient fetch errors.
func (e *StatusError) Unwrap() error {
	return domain.ErrTransientFetch
}

// Fetcher performs GET requests and then waits delay on the calling goroutine,
// so consecutive requests from one worker are spaced while workers stay independent.
type Fetcher struct {
	client    *http.Client
	userAgent string
	delay     time.Duration
}

var _ ports.PageFetcher = (*Fetcher)(nil)

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if strings.TrimSpace(ua) != "" {
			f.userAgent = ua
		}
	}
}

// WithDelay sets the politeness delay applied after each request.
func WithDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		if d >= 0 {
			f.delay = d
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// New builds a fetcher with a 30s timeout and no delay.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads rawURL and returns its body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	defer f.pause(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request %s: %v", domain.ErrTransientFetch, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body of %s: %v", domain.ErrTransientFetch, rawURL, err)
	}
	return body, nil
}

func (f *Fetcher) pause(ctx context.Context) {
	if f.delay <= 0 {
		return
	}
	timer := time.NewTimer(f.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// PageURL builds the URL of listing page n. Page 1 is the base URL itself;
// later pages follow pattern, which receives the base (without trailing slash) and n.
func PageURL(base, pattern string, page int) (string, error) {
	if _, err := url.Parse(base); err != nil {
		return "", fmt.Errorf("%w: invalid base url %s: %v", domain.ErrConfiguration, base, err)
	}
	if page <= 1 {
		return base, nil
	}
	if pattern == "" {
		pattern = "%s/page/%d"
	}
	u := fmt.Sprintf(pattern, strings.TrimSuffix(base, "/"), page)
	if _, err := url.Parse(u); err != nil {
		return "", fmt.Errorf("%w: invalid page url %s: %v", domain.ErrConfiguration, u, err)
	}
	return u, nil
}
