// Package router wraps chi with named routes and prefix groups.
//
//	r := router.New()
//	r.Use(reqid.Middleware())
//	api := r.Group("/cart")
//	api.Post("/items", "cart.add", h.addItem)
//	url, _ := r.URL("menu.show", map[string]string{"slug": "demo"})
package router

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// RouteInfo describes one named route.
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Router wraps chi and remembers every route by name.
type Router struct {
	mux chi.Router

	mu     sync.RWMutex
	routes map[string]RouteInfo
}

// Group registers routes under a shared prefix and middleware.
type Group struct {
	router      *Router
	prefix      string
	middlewares []Middleware
}

// New returns an empty router.
func New() *Router {
	return &Router{
		mux:    chi.NewRouter(),
		routes: make(map[string]RouteInfo),
	}
}

// Handler returns the router as an http.Handler.
func (r *Router) Handler() http.Handler { return r.mux }

// Use adds global middleware. It must be called before any route is added.
func (r *Router) Use(middlewares ...Middleware) {
	for _, mw := range middlewares {
		r.mux.Use(mw)
	}
}

// NotFound sets the handler for unmatched paths.
func (r *Router) NotFound(h http.HandlerFunc) { r.mux.NotFound(h) }

// Group starts a route group under prefix.
func (r *Router) Group(prefix string, middlewares ...Middleware) *Group {
	return &Group{
		router:      r,
		prefix:      normalizePath(prefix),
		middlewares: append([]Middleware(nil), middlewares...),
	}
}

// Get registers a named GET route.
func (r *Router) Get(path, name string, h http.HandlerFunc, mws ...Middleware) {
	r.handle(http.MethodGet, normalizePath(path), name, h, mws)
}

// Post registers a named POST route.
func (r *Router) Post(path, name string, h http.HandlerFunc, mws ...Middleware) {
	r.handle(http.MethodPost, normalizePath(path), name, h, mws)
}

// Patch registers a named PATCH route.
func (r *Router) Patch(path, name string, h http.HandlerFunc, mws ...Middleware) {
	r.handle(http.MethodPatch, normalizePath(path), name, h, mws)
}

// Delete registers a named DELETE route.
func (r *Router) Delete(path, name string, h http.HandlerFunc, mws ...Middleware) {
	r.handle(http.MethodDelete, normalizePath(path), name, h, mws)
}

// Path returns the pattern registered under name.
func (r *Router) Path(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ri, ok := r.routes[name]
	return ri.Path, ok
}

// URL fills the {param} placeholders of a named route.
func (r *Router) URL(name string, params map[string]string) (string, error) {
	path, ok := r.Path(name)
	if !ok {
		return "", fmt.Errorf("router: route %q not found", name)
	}
	for key, value := range params {
		path = strings.ReplaceAll(path, "{"+key+"}", value)
	}
	if strings.Contains(path, "{") {
		return "", fmt.Errorf("router: missing parameters for route %q", name)
	}
	return path, nil
}

// Routes lists named routes sorted by path, then method.
func (r *Router) Routes() []RouteInfo {
	r.mu.RLock()
	out := make([]RouteInfo, 0, len(r.routes))
	for _, ri := range r.routes {
		out = append(out, ri)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

func (r *Router) handle(method, path, name string, h http.Handler, mws []Middleware) {
	r.mux.Method(method, path, chain(h, mws...))
	if name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[name] = RouteInfo{Method: method, Path: path, Name: name}
}

// Group nests a group, inheriting the prefix and middleware.
func (g *Group) Group(prefix string, middlewares ...Middleware) *Group {
	return &Group{
		router:      g.router,
		prefix:      joinPath(g.prefix, prefix),
		middlewares: append(append([]Middleware(nil), g.middlewares...), middlewares...),
	}
}

// Get registers a named group GET route.
func (g *Group) Get(path, name string, h http.HandlerFunc, mws ...Middleware) {
	g.handle(http.MethodGet, path, name, h, mws)
}

// Post registers a named group POST route.
func (g *Group) Post(path, name string, h http.HandlerFunc, mws ...Middleware) {
	g.handle(http.MethodPost, path, name, h, mws)
}

// Patch registers a named group PATCH route.
func (g *Group) Patch(path, name string, h http.HandlerFunc, mws ...Middleware) {
	g.handle(http.MethodPatch, path, name, h, mws)
}

// Delete registers a named group DELETE route.
func (g *Group) Delete(path, name string, h http.HandlerFunc, mws ...Middleware) {
	g.handle(http.MethodDelete, path, name, h, mws)
}

func (g *Group) handle(method, path, name string, h http.HandlerFunc, mws []Middleware) {
	combined := append(append([]Middleware(nil), g.middlewares...), mws...)
	g.router.handle(method, joinPath(g.prefix, path), name, h, combined)
}

func chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

func joinPath(parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.Trim(part, "/"); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	if len(segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(segments, "/")
}

func normalizePath(path string) string { return joinPath(path) }
