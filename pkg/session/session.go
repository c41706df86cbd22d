// Package session identifies a browser across requests with a cookie
// carrying a random UUID. The ID namespaces per-visitor state such as carts.
//
// Usage (middleware):
//
//	r.Use(session.Middleware(session.DefaultOptions()))
//
// Usage (handler):
//
//	sess := session.FromCtx(r.Context())
//	key := "session:" + sess.ID() + ":"
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CookieName is the default session cookie.
const CookieName = "menugr_session"

// Options configures the session cookie.
type Options struct {
	CookieName string
	TTL        time.Duration
	HTTPOnly   bool
	Secure     bool
	SameSite   http.SameSite
	Path       string
}

// DefaultOptions returns a 30-day, HTTP-only, Lax cookie.
func DefaultOptions() Options {
	return Options{
		CookieName: CookieName,
		TTL:        30 * 24 * time.Hour,
		HTTPOnly:   true,
		SameSite:   http.SameSiteLaxMode,
		Path:       "/",
	}
}

type ctxKey struct{}

// Session is the in-request session handle.
type Session struct {
	id    string
	isNew bool
}

// ID is the cookie value.
func (s *Session) ID() string { return s.id }

// IsNew reports whether the session was created by this request.
func (s *Session) IsNew() bool { return s.isNew }

// New returns a fresh session.
func New() *Session { return &Session{id: uuid.NewString(), isNew: true} }

// Middleware loads the session from the cookie, or creates one when the
// cookie is missing or not a UUID, and refreshes the cookie on every response.
func Middleware(opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := New()
			if c, err := r.Cookie(opts.CookieName); err == nil {
				if id, perr := uuid.Parse(c.Value); perr == nil {
					sess = &Session{id: id.String()}
				}
			}

			http.SetCookie(w, &http.Cookie{
				Name:     opts.CookieName,
				Value:    sess.id,
				Path:     opts.Path,
				MaxAge:   int(opts.TTL.Seconds()),
				HttpOnly: opts.HTTPOnly,
				Secure:   opts.Secure,
				SameSite: opts.SameSite,
			})

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// WithSession stores s in ctx, for tests and non-HTTP callers.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromCtx returns the request session, or a fresh unsaved one when the
// middleware did not run.
func FromCtx(ctx context.Context) *Session {
	if s, ok := ctx.Value(ctxKey{}).(*Session); ok {
		return s
	}
	return New()
}
