package server

import (
	"context"
	"sync"
	"time"

	"github.com/menugr/menugr/internal/access"
	"github.com/menugr/menugr/internal/menuview"
	"github.com/menugr/menugr/pkg/kvstore"
	"github.com/menugr/menugr/pkg/logger"
)

// DefaultIdleTTL is how long an untouched view is kept in memory. Its cart
// survives eviction in the store and is restored on the next mount.
const DefaultIdleTTL = 2 * time.Hour

// Hub keeps one menu view per browser session. Each view persists its carts
// under the session's own key namespace.
type Hub struct {
	backend access.Backend
	store   kvstore.Store
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	views map[string]*view
}

type view struct {
	ctrl     *menuview.Controller
	lastSeen time.Time
}

// NewHub builds a hub. A nil store keeps carts in memory only.
func NewHub(b access.Backend, store kvstore.Store, ttl time.Duration) *Hub {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &Hub{
		backend: b,
		store:   store,
		ttl:     ttl,
		now:     time.Now,
		views:   make(map[string]*view),
	}
}

// SessionPrefix is the key namespace of a session's carts.
func SessionPrefix(sessionID string) string { return "session:" + sessionID + ":" }

// SessionStore scopes store to one session, or returns nil for a nil store.
func SessionStore(store kvstore.Store, sessionID string) kvstore.Store {
	if store == nil {
		return nil
	}
	return kvstore.Prefixed(store, SessionPrefix(sessionID))
}

// Acquire returns the session's view, creating it on first use.
func (h *Hub) Acquire(sessionID, userAgent string) *menuview.Controller {
	h.mu.Lock()
	defer h.mu.Unlock()

	if v, ok := h.views[sessionID]; ok {
		v.lastSeen = h.now()
		return v.ctrl
	}
	ctrl := menuview.New(menuview.Options{
		Backend:   h.backend,
		Store:     SessionStore(h.store, sessionID),
		SessionID: sessionID,
		UserAgent: userAgent,
		Now:       h.now,
	})
	h.views[sessionID] = &view{ctrl: ctrl, lastSeen: h.now()}
	return ctrl
}

// Lookup returns the session's view without creating one.
func (h *Hub) Lookup(sessionID string) (*menuview.Controller, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	v, ok := h.views[sessionID]
	if !ok {
		return nil, false
	}
	v.lastSeen = h.now()
	return v.ctrl, true
}

// Len is the number of live views.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.views)
}

// Sweep evicts views idle for longer than the TTL and returns how many
// were dropped.
func (h *Hub) Sweep() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := h.now().Add(-h.ttl)
	n := 0
	for id, v := range h.views {
		if v.lastSeen.Before(cutoff) {
			delete(h.views, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (h *Hub) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := h.Sweep(); n > 0 {
				logger.Debug("server: evicted idle views", "count", n, "remaining", h.Len())
			}
		}
	}
}
