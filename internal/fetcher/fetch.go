// Package fetcher performs outbound HTTP GETs for imports and the HLS proxy.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// ErrTimeout is returned when the upstream did not answer within the
// configured timeout.
var ErrTimeout = errors.New("fetcher: upstream timeout")

// UpstreamError is a non-2xx answer from the upstream.
type UpstreamError struct {
	StatusCode int
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: HTTP %d", e.URL, e.StatusCode)
}

// BrowserUserAgent is sent by the HLS proxy; some CDNs refuse anything else.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client fetches upstream resources. There are no retries: a failure is
// reported to the caller once.
type Client struct {
	http      *http.Client
	userAgent string
	maxBody   int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMaxBody caps how many bytes Fetch reads.
func WithMaxBody(n int64) Option {
	return func(c *Client) { c.maxBody = n }
}

// New returns a Client sending userAgent with every request.
func New(userAgent string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
		maxBody:   64 << 20,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open issues a GET and returns the response when it is 2xx. The caller
// closes the body. userAgent overrides the client default when non-empty.
func (c *Client) Open(ctx context.Context, url, userAgent string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("NewRequest: %w", err)
	}
	if userAgent == "" {
		userAgent = c.userAgent
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "*/*")
	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, url)
		}
		return nil, fmt.Errorf("Do: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &UpstreamError{StatusCode: resp.StatusCode, URL: url}
	}
	return resp, nil
}

// Fetch reads the whole body of a GET.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Open(ctx, url, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, url)
		}
		return nil, fmt.Errorf("ReadAll: %w", err)
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// StatusOf returns the upstream HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	return 0
}
