// Package fetch provides the HTTP client used to retrieve remote request
// lists and to process crawl requests. It is plain transport: no retry or
// backoff policy lives here.
package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/crawlforge/frontier/internal/errors"
)

// maxBodySize caps response bodies at 10MB.
const maxBodySize = 10 * 1024 * 1024

// Config holds configuration for the HTTP client.
type Config struct {
	Timeout             time.Duration     `json:"timeout" yaml:"timeout"`
	MaxIdleConns        int               `json:"max_idle_conns" yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int               `json:"max_idle_conns_per_host" yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int               `json:"max_conns_per_host" yaml:"max_conns_per_host"`
	UserAgent           string            `json:"user_agent" yaml:"user_agent"`
	Headers             map[string]string `json:"headers" yaml:"headers"`
	SkipTLSVerify       bool              `json:"skip_tls_verify" yaml:"skip_tls_verify"`

	// RequestsPerSecond throttles outgoing requests; zero disables the
	// limiter.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:             30 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     20,
		UserAgent:           "frontier/1.0",
		RequestsPerSecond:   50,
		Burst:               10,
	}
}

// Client is an HTTP client tuned for crawl workloads.
type Client struct {
	client    *http.Client
	userAgent string
	headers   map[string]string
	limiter   *rate.Limiter
	mu        sync.RWMutex
}

// New creates a new client.
func New(config Config) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		MaxConnsPerHost:       config.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.SkipTLSVerify,
		},
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent: config.UserAgent,
		headers:   config.Headers,
		limiter:   limiter,
	}
}

// SetHeaders sets custom headers for all requests.
func (c *Client) SetHeaders(headers map[string]string) {
	c.mu.Lock()
	c.headers = headers
	c.mu.Unlock()
}

// Fetch performs a GET and returns the response body. Non-2xx statuses are
// errors: a remote list behind a 404 or 500 means the caller cannot know
// its work.
func (c *Client) Fetch(ctx context.Context, targetURL string) ([]byte, error) {
	result, err := c.Do(ctx, "GET", targetURL, nil)
	if err != nil {
		return nil, err
	}
	if result.StatusCode < 200 || result.StatusCode > 299 {
		return nil, errors.New(errors.Network, targetURL, "fetch",
			fmt.Sprintf("unexpected status %d", result.StatusCode), nil)
	}
	return result.Body, nil
}

// Result contains the outcome of one HTTP request.
type Result struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
	Duration    time.Duration
}

// Do performs a request with the given method and per-request headers,
// waiting on the rate limiter first.
func (c *Client) Do(ctx context.Context, method, targetURL string, headers map[string]string) (*Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Categorize(err, targetURL)
		}
	}

	start := time.Now()

	if method == "" {
		method = "GET"
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), targetURL, nil)
	if err != nil {
		return nil, errors.New(errors.Config, targetURL, "fetch", "failed to create request", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")

	c.mu.RLock()
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	c.mu.RUnlock()
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Categorize(err, targetURL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.NewNetworkError(targetURL, "body_read", err)
	}

	return &Result{
		URL:         targetURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Duration:    time.Since(start),
	}, nil
}

// Close closes idle connections.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}
