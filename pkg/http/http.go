// Package http provides a fluent, retry-aware JSON client for the menu
// backend.
//
// Usage:
//
//	c := http.NewClient("https://api.example.com/api", 5*time.Second, 2)
//	resp, err := c.Get("/public/categories").
//	    Query("business_id", id).
//	    WithContext(ctx).
//	    Send()
//
//	var env Envelope
//	err = resp.JSON(&env)
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	gohttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/menugr/menugr/pkg/logger"
)

// defaultTransport is the connection-pooled transport used in production.
// Tests can replace DefaultClient.Transport to inject mocks.
var defaultTransport = &gohttp.Transport{
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 20,
	IdleConnTimeout:     90 * time.Second,
}

// DefaultClient is the shared net/http client behind every Client.
//
//	http.DefaultClient.Transport = mock
//	defer http.ResetTransport()
var DefaultClient = &gohttp.Client{
	Transport: defaultTransport,
}

// ResetTransport restores the production transport on DefaultClient.
func ResetTransport() {
	DefaultClient.Transport = defaultTransport
}

// ErrStatus marks a non-2xx response returned by Throw.
var ErrStatus = errors.New("http: unexpected status")

// Client binds requests to a base URL with shared defaults.
type Client struct {
	BaseURL   string
	Timeout   time.Duration
	Retries   int
	RetryWait time.Duration
	Headers   map[string]string
}

// NewClient returns a client for baseURL. retries is the number of extra
// attempts after the first one.
func NewClient(baseURL string, timeout time.Duration, retries int) *Client {
	if retries < 0 {
		retries = 0
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Timeout:   timeout,
		Retries:   retries,
		RetryWait: 200 * time.Millisecond,
		Headers:   map[string]string{},
	}
}

// Get starts a GET to path, relative to the base URL.
func (c *Client) Get(path string) *Request { return c.newRequest(gohttp.MethodGet, path) }

// Post starts a POST to path, relative to the base URL.
func (c *Client) Post(path string) *Request { return c.newRequest(gohttp.MethodPost, path) }

func (c *Client) newRequest(method, path string) *Request {
	r := &Request{
		method:    method,
		url:       c.BaseURL + "/" + strings.TrimLeft(path, "/"),
		headers:   map[string]string{"Accept": "application/json"},
		query:     url.Values{},
		timeout:   c.Timeout,
		attempts:  c.Retries + 1,
		retryWait: c.RetryWait,
		ctx:       context.Background(),
	}
	for k, v := range c.Headers {
		r.headers[k] = v
	}
	if r.timeout <= 0 {
		r.timeout = 30 * time.Second
	}
	return r
}

// ------------------- Request -------------------

// Request is a fluent HTTP request builder.
type Request struct {
	method    string
	url       string
	headers   map[string]string
	query     url.Values
	body      any
	timeout   time.Duration
	attempts  int
	retryWait time.Duration
	ctx       context.Context
}

// Header sets a request header.
func (r *Request) Header(key, value string) *Request {
	r.headers[key] = value
	return r
}

// Query adds a query-string parameter.
func (r *Request) Query(key, value string) *Request {
	r.query.Add(key, value)
	return r
}

// Body sets the request body, marshalled to JSON.
func (r *Request) Body(v any) *Request {
	r.body = v
	return r
}

// Timeout sets the per-attempt timeout.
func (r *Request) Timeout(d time.Duration) *Request {
	r.timeout = d
	return r
}

// Retry sets the total number of attempts (1 = no retry) and the initial
// backoff, which doubles each attempt.
func (r *Request) Retry(n int, wait time.Duration) *Request {
	if n < 1 {
		n = 1
	}
	r.attempts = n
	r.retryWait = wait
	return r
}

// WithContext bounds the request, including retries, by ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	r.ctx = ctx
	return r
}

// URL is the full request URL including the query string.
func (r *Request) URL() string {
	if len(r.query) == 0 {
		return r.url
	}
	return r.url + "?" + r.query.Encode()
}

// ------------------- Send -------------------

// Send executes the request. Transport errors and 5xx responses are retried;
// a 4xx response is returned as-is on the first attempt. When every attempt
// ends in a 5xx the last response is returned without error.
func (r *Request) Send() (*Response, error) {
	var (
		lastErr  error
		lastResp *Response
	)

	for attempt := 1; attempt <= r.attempts; attempt++ {
		resp, err := r.do()
		switch {
		case err == nil && resp.StatusCode < 500:
			return resp, nil
		case err == nil:
			lastResp, lastErr = resp, nil
		default:
			lastResp, lastErr = nil, err
		}

		if r.ctx.Err() != nil {
			break
		}
		if attempt < r.attempts {
			backoff := time.Duration(float64(r.retryWait) * math.Pow(2, float64(attempt-1)))
			logger.WithCtx(r.ctx).Warn("http: request failed, retrying",
				"url", r.url, "attempt", attempt, "backoff", backoff, "error", err)
			select {
			case <-time.After(backoff):
			case <-r.ctx.Done():
			}
		}
	}

	if lastResp != nil {
		return lastResp, nil
	}
	return nil, fmt.Errorf("http: all %d attempts failed for %s %s: %w", r.attempts, r.method, r.url, lastErr)
}

func (r *Request) do() (*Response, error) {
	body, err := r.buildBody()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	req, err := gohttp.NewRequestWithContext(ctx, r.method, r.URL(), body)
	if err != nil {
		return nil, fmt.Errorf("http: build request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: send: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("http: read body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Raw: raw}, nil
}

func (r *Request) buildBody() (io.Reader, error) {
	if r.body == nil {
		return nil, nil
	}
	if b, ok := r.body.([]byte); ok {
		return bytes.NewReader(b), nil
	}
	b, err := json.Marshal(r.body)
	if err != nil {
		return nil, fmt.Errorf("http: marshal body: %w", err)
	}
	return bytes.NewReader(b), nil
}

// ------------------- Response -------------------

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Headers    gohttp.Header
	Raw        []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON decodes the body into dest.
func (r *Response) JSON(dest any) error {
	if err := json.Unmarshal(r.Raw, dest); err != nil {
		return fmt.Errorf("http: decode JSON: %w", err)
	}
	return nil
}

// Text returns the raw body.
func (r *Response) Text() string { return string(r.Raw) }

// Throw returns an ErrStatus-wrapped error when the status is not 2xx.
func (r *Response) Throw() error {
	if !r.OK() {
		return fmt.Errorf("%w %d: %s", ErrStatus, r.StatusCode, truncate(r.Raw, 200))
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "…"
}
