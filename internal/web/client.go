// Package web is the HTTP client shared by page, playlist and segment fetches. Every request is a plain GET, and
// anything other than 200 OK is an error.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	DefaultTimeout   = 60 * time.Second
	DefaultUserAgent = "elonet-dl/1.0"
)

type clientConfig struct {
	timeout   time.Duration
	userAgent string
	headers   map[string]string
	transport http.RoundTripper
	log       *zap.Logger
}

type ClientOption func(*clientConfig)

// WithTimeout sets the limit for a whole request, including reading the response body. Zero means no limit.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

func WithUserAgent(ua string) ClientOption {
	return func(c *clientConfig) {
		c.userAgent = ua
	}
}

// WithHeaders adds extra headers to every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *clientConfig) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *clientConfig) {
		c.transport = rt
	}
}

func WithLogger(log *zap.Logger) ClientOption {
	return func(c *clientConfig) {
		c.log = log
	}
}

type Client struct {
	http *http.Client
	log  *zap.Logger
}

func New(opts ...ClientOption) *Client {
	config := clientConfig{
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		headers:   make(map[string]string),
		transport: http.DefaultTransport,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	headers := make(map[string]string, len(config.headers)+1)
	if config.userAgent != "" {
		headers["User-Agent"] = config.userAgent
	}
	for k, v := range config.headers {
		headers[k] = v
	}
	return &Client{
		http: &http.Client{
			Timeout:   config.timeout,
			Transport: &headerTransport{Headers: headers, Base: config.transport},
		},
		log: config.log,
	}
}

// StatusError is returned for any response that is not 200 OK. Redirects are followed by the underlying client, so
// this only sees the final status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
}

// Get issues a GET request. On success the caller owns the response body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.log.Debug("GET", zap.String("url", url))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// Fetch copies the whole response body into w, returning the number of bytes copied.
func (c *Client) Fetch(ctx context.Context, url string, w io.Writer) (int64, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("GET %s: failed to read body: %w", url, err)
	}
	return n, nil
}

// GetText fetches a document as a string.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	var b strings.Builder
	if _, err := c.Fetch(ctx, url, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// GetDocument fetches and parses an HTML document.
func (c *Client) GetDocument(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", url, err)
	}
	return doc, nil
}
