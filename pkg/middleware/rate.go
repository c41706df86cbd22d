// Package middleware provides the HTTP middleware of the menu server.
package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/menugr/menugr/pkg/response"
)

// window tracks a fixed-window request count for one client.
type window struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per client IP in fixed windows.
type Limiter struct {
	max    int
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*window
	sweepAt time.Time
}

// NewLimiter allows max requests per client per period.
func NewLimiter(max int, period time.Duration) *Limiter {
	return &Limiter{max: max, period: period, now: time.Now, clients: map[string]*window{}}
}

// Allow records one request for key and reports whether it is within budget.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.After(l.sweepAt) {
		for k, w := range l.clients {
			if now.After(w.resetAt) {
				delete(l.clients, k)
			}
		}
		l.sweepAt = now.Add(l.period)
	}

	w, ok := l.clients[key]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(l.period)}
		l.clients[key] = w
	}
	w.count++
	return w.count <= l.max
}

// RateLimit limits each client IP to max requests per period.
//
//	r.Use(middleware.RateLimit(200, time.Minute))
func RateLimit(max int, period time.Duration) func(http.Handler) http.Handler {
	l := NewLimiter(max, period)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(clientIP(r)) {
				response.TooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then RemoteAddr's host.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
