package server

import (
	"net/http"
	"time"

	"github.com/menugr/menugr/config"
	"github.com/menugr/menugr/pkg/metrics"
	"github.com/menugr/menugr/pkg/middleware"
	"github.com/menugr/menugr/pkg/reqid"
	"github.com/menugr/menugr/pkg/response"
	"github.com/menugr/menugr/pkg/router"
	"github.com/menugr/menugr/pkg/session"
)

// Routes registers every endpoint on r.
func Routes(r *router.Router, h *Handler) {
	r.Get("/health", "health", h.Health)
	r.Get("/metrics", "metrics", metrics.Handler())

	r.Get("/menu", "menu.default", h.Mount)
	r.Get("/menu/{slug}", "menu.show", h.Mount)
	r.Get("/m/{slug}", "menu.qr", h.Mount)

	v := r.Group("/view")
	v.Get("/", "view.show", h.View)
	v.Post("/retry", "view.retry", h.Retry)
	v.Post("/category", "view.category", h.SelectCategory)
	v.Post("/search", "view.search", h.Search)
	v.Delete("/search", "view.search.clear", h.ClearSearch)
	v.Post("/cart/toggle", "view.cart.toggle", h.ToggleCart)
	v.Post("/categories/toggle", "view.categories.toggle", h.ToggleCategoryFilter)
	v.Get("/share", "view.share", h.Share)

	p := v.Group("/product")
	p.Post("/", "product.open", h.OpenProduct)
	p.Delete("/", "product.close", h.CloseProduct)
	p.Post("/quantity", "product.quantity", h.StepSelected)
	p.Post("/notes", "product.notes", h.SetNotes)
	p.Post("/add", "product.add", h.AddSelected)

	c := r.Group("/cart")
	c.Post("/items", "cart.add", h.AddItem)
	c.Patch("/items/{index}", "cart.update", h.UpdateItem)
	c.Delete("/items/{index}", "cart.remove", h.RemoveItem)
	c.Delete("/", "cart.clear", h.ClearCart)

	r.Post("/checkout", "checkout", h.Checkout)
}

// Kernel wraps the routes with the global middleware stack, outermost
// first: metrics, recovery, request id, access log, session, CORS and the
// rate limiter.
func Kernel(h *Handler) *router.Router {
	r := router.New()

	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(session.Middleware(session.DefaultOptions()))
	r.Use(middleware.CORS(middleware.DefaultCORSOptions(config.CORSOrigins()...)))
	if n := config.RateLimit(); n > 0 {
		r.Use(middleware.RateLimit(n, time.Minute))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w)
	})
	Routes(r, h)
	return r
}
