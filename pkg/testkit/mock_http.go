// Package testkit holds test doubles shared by menugr's package tests.
package testkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
)

// ─── MockTransport ────────────────────────────────────────────────────────────

// MockTransport implements http.RoundTripper. Outgoing requests are matched
// against registered routes (method + URL prefix, first match wins) and
// answered with synthetic responses instead of real network calls.
//
// Install it on the shared HTTP client before the test:
//
//	mt := testkit.NewMockTransport().
//	    On("GET", "http://api.test/public/categories", 200, body)
//	http.DefaultClient.Transport = mt
//	defer http.ResetTransport()
//	// ... run test ...
//	mt.AssertAllCalled(t)
type MockTransport struct {
	mu       sync.Mutex
	routes   []*route
	requests []Recorded
}

// Recorded is one intercepted request.
type Recorded struct {
	Method string
	URL    string
	Body   []byte
}

type route struct {
	method    string
	prefix    string
	status    int
	body      []byte
	err       error
	callCount int
}

// NewMockTransport returns a transport with no routes.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// On answers method requests whose URL starts with prefix. body may be a
// string, []byte or any JSON-marshalable value. An empty method matches any.
func (mt *MockTransport) On(method, prefix string, status int, body any) *MockTransport {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.routes = append(mt.routes, &route{method: method, prefix: prefix, status: status, body: encode(body)})
	return mt
}

// Fail makes matching requests return err from RoundTrip, as a network
// failure would.
func (mt *MockTransport) Fail(method, prefix string, err error) *MockTransport {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.routes = append(mt.routes, &route{method: method, prefix: prefix, err: err})
	return mt
}

// Reset drops every registered route. Recorded requests are kept.
func (mt *MockTransport) Reset() *MockTransport {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.routes = nil
	return mt
}

// RoundTrip intercepts the outgoing request and returns a synthetic response.
// Unmatched requests get a 404.
func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()

	u := req.URL.String()
	mt.requests = append(mt.requests, Recorded{Method: req.Method, URL: u, Body: body})

	for _, r := range mt.routes {
		if r.method != "" && !strings.EqualFold(r.method, req.Method) {
			continue
		}
		if !strings.HasPrefix(u, r.prefix) {
			continue
		}
		r.callCount++
		if r.err != nil {
			return nil, r.err
		}
		return buildHTTPResponse(req, r.status, r.body), nil
	}

	return buildHTTPResponse(req, http.StatusNotFound, []byte(`{"success":false,"message":"no mock configured"}`)), nil
}

// Requests returns every intercepted request in order.
func (mt *MockTransport) Requests() []Recorded {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]Recorded(nil), mt.requests...)
}

// Calls counts intercepted requests whose URL starts with prefix.
func (mt *MockTransport) Calls(prefix string) int {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	n := 0
	for _, r := range mt.requests {
		if strings.HasPrefix(r.URL, prefix) {
			n++
		}
	}
	return n
}

// AssertAllCalled fails t for every route that was never hit.
func (mt *MockTransport) AssertAllCalled(t testing.TB) {
	t.Helper()
	mt.mu.Lock()
	defer mt.mu.Unlock()
	for _, r := range mt.routes {
		if r.callCount == 0 {
			t.Errorf("testkit: mock %s %q was never called", r.method, r.prefix)
		}
	}
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func encode(body any) []byte {
	switch v := body.(type) {
	case nil:
		return nil
	case string:
		return []byte(v)
	case []byte:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			panic(fmt.Sprintf("testkit: marshal mock body: %v", err))
		}
		return b
	}
}

func buildHTTPResponse(req *http.Request, code int, body []byte) *http.Response {
	if code == 0 {
		code = http.StatusOK
	}
	header := make(http.Header)
	header.Set("Content-Type", "application/json")

	return &http.Response{
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}
}
