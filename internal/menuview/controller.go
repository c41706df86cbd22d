// Package menuview orchestrates one mounted public menu: it resolves the
// access path, feeds the catalog index, owns the visitor's cart and turns
// user intents into store calls. Everything the UI shows is derived on
// demand through Snapshot and the getters; nothing is cached separately.
//
// A Controller is safe for concurrent use. Its lock is released while the
// backend is being called, and results belonging to a superseded Mount are
// discarded.
package menuview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/menugr/menugr/internal/access"
	"github.com/menugr/menugr/internal/cart"
	"github.com/menugr/menugr/internal/catalog"
	"github.com/menugr/menugr/internal/menu"
	"github.com/menugr/menugr/pkg/kvstore"
	"github.com/menugr/menugr/pkg/logger"
)

// RedirectTarget is where a visitor is sent when no menu can be resolved.
const RedirectTarget = "/"

var (
	// ErrUnavailable is returned by Mount when every resolution path failed.
	ErrUnavailable = errors.New("menuview: menu unavailable")
	// ErrStale is returned when a newer Mount superseded the call.
	ErrStale = errors.New("menuview: superseded by a newer navigation")
	// ErrCatalog marks a retryable catalog load failure.
	ErrCatalog = errors.New("menuview: catalog load failed")

	ErrNotMounted     = errors.New("menuview: no menu mounted")
	ErrNoSelection    = errors.New("menuview: no product selected")
	ErrUnknownProduct = errors.New("menuview: unknown product")
	ErrEmptyCart      = errors.New("menuview: cart is empty")
)

// Options configures a Controller.
type Options struct {
	Backend access.Backend
	// Store persists carts. Nil keeps carts in memory.
	Store     kvstore.Store
	SessionID string
	UserAgent string
	Now       func() time.Time
}

// Controller is the state of one menu view.
type Controller struct {
	mu sync.Mutex

	resolver *access.Resolver
	source   access.CatalogSource
	kv       kvstore.Store
	now      func() time.Time

	sessionID string
	userAgent string

	seq        uint64
	route      access.Route
	mounted    bool
	access     access.Context
	business   *menu.Business
	businessID string

	index *catalog.Index
	cart  *cart.Store

	loading         bool
	loadErr         string
	redirect        string
	redirectMessage string

	selected    *menu.Product
	selectedQty int
	notes       string

	cartOpen   bool
	filterOpen bool

	notices []Notice
}

// New returns an unmounted controller.
func New(opts Options) *Controller {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		resolver:  access.NewResolver(opts.Backend),
		source:    opts.Backend,
		kv:        opts.Store,
		now:       now,
		sessionID: opts.SessionID,
		userAgent: opts.UserAgent,
		index:     catalog.New(),
		cart:      cart.New(nil),
	}
}

// ─────────────────────────────────────────────
// Lifecycle
// ─────────────────────────────────────────────

// Mount resolves path and loads its menu. On resolution failure the view
// carries a redirect and ErrUnavailable is returned. A catalog failure after
// a successful resolution leaves a retryable error state and returns an
// error wrapping ErrCatalog; the restored cart is kept.
func (c *Controller) Mount(ctx context.Context, path string) error {
	route := access.Classify(path)

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.route = route
	c.mounted = false
	c.loading = true
	c.loadErr = ""
	c.redirect, c.redirectMessage = "", ""
	c.access = access.Context{Mode: route.Mode, Slug: route.Slug}
	c.business = nil
	c.businessID = ""
	c.cart = cart.New(nil)
	c.selected = nil
	c.cartOpen, c.filterOpen = false, false
	c.index = catalog.New()
	md := access.NewScanMetadata(c.sessionID, c.userAgent, c.now())
	c.mu.Unlock()

	log := logger.WithCtx(ctx).With("path", path, "mode", route.Mode, "slug", route.Slug)

	res := c.resolver.Resolve(ctx, route, md)

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		log.Debug("menuview: discarding stale resolution")
		return ErrStale
	}

	if !res.OK() {
		c.loading = false
		c.redirect = RedirectTarget
		c.redirectMessage = res.Reason
		c.notify(LevelError, "", msgUnavailable)
		c.mu.Unlock()
		log.Warn("menuview: resolution failed, redirecting", "reason", res.Reason)
		return fmt.Errorf("%w: %s", ErrUnavailable, res.Reason)
	}

	c.mounted = true
	c.access = res.Access
	c.business = res.Business
	c.businessID = res.BusinessID()
	if c.business == nil && res.Menu != nil && res.Menu.Business != nil {
		b := *res.Menu.Business
		c.business = &b
	}

	c.cart = cart.New(c.kv)
	c.cart.Restore(ctx, res.CartSlug())

	if res.Menu != nil {
		c.index.Load(res.Menu.Categories, res.Menu.Products)
		c.loading = false
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	return c.loadCatalog(ctx, seq)
}

// Retry reloads the catalog of the mounted business. The cart is untouched.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return ErrNotMounted
	}
	seq := c.seq
	c.loading = true
	c.loadErr = ""
	c.mu.Unlock()

	return c.loadCatalog(ctx, seq)
}

func (c *Controller) loadCatalog(ctx context.Context, seq uint64) error {
	c.mu.Lock()
	id := c.businessID
	c.mu.Unlock()

	payload, err := access.LoadCatalog(ctx, c.source, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return ErrStale
	}
	c.loading = false
	if err != nil {
		c.loadErr = msgMenuLoadFailed
		c.notify(LevelError, "", msgMenuLoadFailed)
		logger.WithCtx(ctx).Warn("menuview: catalog load failed", "business_id", id, "error", err)
		return fmt.Errorf("%w: %w", ErrCatalog, err)
	}
	c.index.Load(payload.Categories, payload.Products)
	return nil
}

// ─────────────────────────────────────────────
// Browsing
// ─────────────────────────────────────────────

// SelectCategory restricts the list to one category; catalog.AllCategories
// lifts the restriction.
func (c *Controller) SelectCategory(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index.FilterByCategory(id)
}

// Search filters products by name, description or tag.
func (c *Controller) Search(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index.FilterBySearch(term)
}

// ClearSearch drops the search term.
func (c *Controller) ClearSearch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index.FilterBySearch("")
}

// ToggleCart flips the cart panel and returns whether it is open.
func (c *Controller) ToggleCart() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cartOpen = !c.cartOpen
	return c.cartOpen
}

// ToggleCategoryFilter flips the category list and returns whether it is open.
func (c *Controller) ToggleCategoryFilter() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filterOpen = !c.filterOpen
	return c.filterOpen
}

// ─────────────────────────────────────────────
// Product modal
// ─────────────────────────────────────────────

// OpenProduct selects a product with quantity 1 and no notes.
func (c *Controller) OpenProduct(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.index.Product(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownProduct, id)
	}
	c.selected = &p
	c.selectedQty = 1
	c.notes = ""
	return nil
}

// CloseProduct closes the product modal.
func (c *Controller) CloseProduct() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = nil
}

// IncrementSelected raises the modal quantity.
func (c *Controller) IncrementSelected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected != nil {
		c.selectedQty++
	}
}

// DecrementSelected lowers the modal quantity, never below 1.
func (c *Controller) DecrementSelected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected != nil && c.selectedQty > 1 {
		c.selectedQty--
	}
}

// SetNotes stores the modal notes as typed; they are trimmed on add.
func (c *Controller) SetNotes(notes string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = notes
}

// AddToCart adds the selected product with its quantity and trimmed notes,
// then closes the modal.
func (c *Controller) AddToCart(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected == nil {
		return ErrNoSelection
	}
	p := *c.selected
	if err := c.cart.Add(ctx, p, c.selectedQty, strings.TrimSpace(c.notes)); err != nil {
		return err
	}
	c.selected = nil
	c.notify(LevelSuccess, titlePerfect, addedMessage(p.Name))
	return nil
}

// ─────────────────────────────────────────────
// Cart
// ─────────────────────────────────────────────

// AddProduct adds a visible catalog product directly, without the modal.
func (c *Controller) AddProduct(ctx context.Context, id int64, quantity int, notes string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.index.Product(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownProduct, id)
	}
	if err := c.cart.Add(ctx, p, quantity, strings.TrimSpace(notes)); err != nil {
		return err
	}
	c.notify(LevelSuccess, titlePerfect, addedMessage(p.Name))
	return nil
}

// ChangeQuantity moves a line's quantity by delta. A result below 1 or an
// unknown line leaves the cart unchanged.
func (c *Controller) ChangeQuantity(ctx context.Context, line, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cart.UpdateQuantity(ctx, line, delta)
}

// RemoveLine drops a line; unknown lines are ignored.
func (c *Controller) RemoveLine(ctx context.Context, line int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cart.Remove(ctx, line)
}

// ClearCart empties the cart when confirmed is true and the cart has lines.
// It reports whether anything was cleared.
func (c *Controller) ClearCart(ctx context.Context, confirmed bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cart.IsEmpty() || !confirmed {
		return false
	}
	c.cart.Clear(ctx)
	c.notify(LevelInfo, "", msgCartCleared)
	return true
}

// Order is what Checkout hands over to the ordering flow.
type Order struct {
	BusinessSlug string          `json:"business_slug"`
	TableNumber  int             `json:"table_number,omitempty"`
	Location     string          `json:"location,omitempty"`
	Lines        []cart.Item     `json:"lines"`
	ItemCount    int             `json:"item_count"`
	Total        decimal.Decimal `json:"total"`
	TotalLabel   string          `json:"total_label"`
}

// Checkout blocks on an empty cart with a warning notice. Otherwise it
// returns the order to hand over; the cart is kept.
func (c *Controller) Checkout() (Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cart.IsEmpty() {
		c.notify(LevelWarning, "", msgCartEmpty)
		return Order{}, ErrEmptyCart
	}
	total := c.cart.Total()
	c.notify(LevelSuccess, titlePerfect, msgCheckout)
	return Order{
		BusinessSlug: c.cart.Slug(),
		TableNumber:  c.access.TableNumber,
		Location:     c.access.Location,
		Lines:        c.cart.Items(),
		ItemCount:    c.cart.ItemCount(),
		Total:        total,
		TotalLabel:   menu.FormatPrice(total, c.currency()),
	}, nil
}

// ─────────────────────────────────────────────
// Derived getters
// ─────────────────────────────────────────────

// ItemCount is the sum of cart quantities.
func (c *Controller) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.ItemCount()
}

// CartTotal is the cart total.
func (c *Controller) CartTotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.Total()
}

// CartItems returns a copy of the cart lines.
func (c *Controller) CartItems() []cart.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.Items()
}

// VisibleProducts applies the category and search filters.
func (c *Controller) VisibleProducts() []menu.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.VisibleProducts()
}

// CategoryName returns the name of category id, or "" when unknown.
func (c *Controller) CategoryName(id int64) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.CategoryName(id)
}

// Mounted reports whether the latest Mount resolved a business. It is false
// while a Mount is in flight and after a failed one.
func (c *Controller) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}

// Route is the route of the latest Mount.
func (c *Controller) Route() access.Route {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.route
}

// Share describes the menu for the share sheet.
type Share struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

// ShareInfo builds share details for pageURL.
func (c *Controller) ShareInfo(pageURL string) Share {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Share{Title: "Menú Digital", Text: "Mira el menú de este negocio", URL: pageURL}
	if c.business != nil && c.business.Name != "" {
		s.Title = c.business.Name
		s.Text = "Mira el menú de " + c.business.Name
	}
	return s
}

// currency picks the business currency, then the first product's, then the
// default. Callers hold mu.
func (c *Controller) currency() string {
	if c.business != nil && c.business.Currency != "" {
		return c.business.Currency
	}
	for _, p := range c.index.Products() {
		if p.Currency != "" {
			return p.Currency
		}
	}
	return menu.DefaultCurrency
}
