package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/menugr/menugr/internal/cart"
	"github.com/menugr/menugr/internal/menuview"
	"github.com/menugr/menugr/pkg/bind"
	"github.com/menugr/menugr/pkg/logger"
	"github.com/menugr/menugr/pkg/response"
	"github.com/menugr/menugr/pkg/session"
)

// Handler serves the public menu API on top of a Hub.
type Handler struct {
	hub       *Hub
	publicURL string
}

// NewHandler builds share links on publicURL.
func NewHandler(hub *Hub, publicURL string) *Handler {
	return &Handler{hub: hub, publicURL: strings.TrimRight(publicURL, "/")}
}

// render takes the snapshot and hands pending notices to this response.
func render(c *menuview.Controller) menuview.Snapshot {
	s := c.Snapshot()
	s.Notices = c.DrainNotices()
	return s
}

// current returns the session's view, answering 409 unless its latest
// mount resolved a menu.
func (h *Handler) current(w http.ResponseWriter, r *http.Request) (*menuview.Controller, bool) {
	c, ok := h.hub.Lookup(session.FromCtx(r.Context()).ID())
	if !ok || !c.Mounted() {
		response.Error(w, http.StatusConflict, "no menu mounted; open /menu/{slug} or /m/{slug} first")
		return nil, false
	}
	return c, true
}

// fail maps view errors onto HTTP responses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, c *menuview.Controller, err error) {
	switch {
	case errors.Is(err, menuview.ErrUnavailable):
		response.Redirect(w, http.StatusNotFound, menuview.RedirectTarget, c.Snapshot().RedirectMessage)
	case errors.Is(err, menuview.ErrCatalog):
		response.WithMessage(w, http.StatusBadGateway, "menu could not be loaded; retry with POST /view/retry", render(c))
	case errors.Is(err, menuview.ErrStale):
		response.Error(w, http.StatusConflict, "superseded by a newer navigation")
	case errors.Is(err, menuview.ErrNotMounted):
		response.Error(w, http.StatusConflict, "no menu mounted")
	case errors.Is(err, menuview.ErrUnknownProduct):
		response.Error(w, http.StatusNotFound, "product not found in this menu")
	case errors.Is(err, menuview.ErrNoSelection):
		response.Error(w, http.StatusConflict, "no product selected")
	case errors.Is(err, menuview.ErrEmptyCart):
		response.WithMessage(w, http.StatusUnprocessableEntity, "cart is empty", render(c))
	case errors.Is(err, cart.ErrInvalidQuantity):
		response.ValidationError(w, map[string]string{"quantity": "must be at least 1"})
	default:
		logger.WithCtx(r.Context()).Error("server: request failed", "error", err)
		response.ServerError(w)
	}
}

// ─────────────────────────────────────────────
// Mounting
// ─────────────────────────────────────────────

// Mount serves /menu, /menu/{slug} and /m/{slug}.
func (h *Handler) Mount(w http.ResponseWriter, r *http.Request) {
	sess := session.FromCtx(r.Context())
	c := h.hub.Acquire(sess.ID(), r.UserAgent())

	if err := c.Mount(r.Context(), r.URL.Path); err != nil {
		h.fail(w, r, c, err)
		return
	}
	response.Success(w, render(c))
}

// View returns the current snapshot.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	c, ok := h.current(w, r)
	if !ok {
		return
	}
	response.Success(w, render(c))
}

// Retry reloads the catalog after a load failure.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	c, ok := h.current(w, r)
	if !ok {
		return
	}
	if err := c.Retry(r.Context()); err != nil {
		h.fail(w, r, c, err)
		return
	}
	response.Success(w, render(c))
}

// ─────────────────────────────────────────────
// Browsing
// ─────────────────────────────────────────────

type categoryRequest struct {
	CategoryID int64 `json:"category_id" validate:"gte=0"`
}

// SelectCategory narrows the product list; category_id 0 shows all.
func (h *Handler) SelectCategory(w http.ResponseWriter, r *http.Request) {
	c, ok := h.current(w, r)
	if !ok {
		return
	}
	var in categoryRequest
	if !decode(w, r, &in) {
		return
	}
	c.SelectCategory(in.CategoryID)
	response.Success(w, render(c))
}

type searchRequest struct {
	Term string `json:"term" validate:"max=100"`
}

// Search filters the product list by term.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	c, ok := h.current(w, r)
	if !ok {
		return
	}
	var in searchRequest
	if !decode(w, r, &in) {
		return
	}
	c.Search(in.Term)
	response.Success(w, render(c))
}

// ClearSearch drops the search term.
func (h *Handler) ClearSearch(w http.ResponseWriter, r *http.Request) {
	c, ok := h.current(w, r)
	if !ok {
		return
	}
	c.ClearSearch()
	response.Success(w, render(c))
}

// ToggleCart opens or closes the cart panel.
func (h *Handler) ToggleCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.current(w, r)
	if !ok {
		return
	}
	c.ToggleCart()
	response.Success(w, render(c))
}

// ToggleCategoryFilter opens or closes the category list.
func (h *Handler) ToggleCategoryFilter(w http.ResponseWriter, r *http.Request) {
	c, ok := h.current(w, r)
	if !ok {
		return
	}
	c.ToggleCategoryFilter()
	response.Success(w, render(c))
}

// ─────────────────────────────────────────────
// Product modal
// ─────────────────────────────────────────────

type productRequest struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
}

// OpenProduct opens the product modal.
func (h *Handler) OpenProduct(w http.ResponseWriter, r *http.Request) {
	c, ok := h.current(w, r)
	if !ok {
		return
	}
	var in productRequest
	if !decode(w, r, &in) {
		return
	}
	if err := c.OpenProduct(in.ProductID); err != nil {
		h.fail(w, r, c, err)
		return
	}
	response.Success(w, render(c))
}

// CloseProduct closes the product modal.
func (h *Handler) CloseProduct(w http.ResponseWriter, r *http.Request) {
	c, ok := h.current(w, r)
	if !ok {
		return
	}
	c.CloseProduct()
	response.Success(w, render(c))
}

type stepRequest struct {
	Delta int `json:"delta" validate:"oneof=-1 1"`
}

// StepSelected moves the modal quantity by one in either direction.
func (h *Handler) StepSelected(w http.ResponseWriter, r *http.Request) {
	c, ok := h.current(w, r)
	if !ok {
		return
	}
	var in stepRequest
	if !decode(w, r, &in) {
		return
	}
	if in.Delta > 0 {
		c.IncrementSelected()
	} else {
		c.DecrementSelected()
	}
	response.Success(w, render(c))
}

type notesRequest struct {
	Notes string `json:"notes" validate:"max=280"`
}

// SetNotes sets the notes of the modal product.
func (h *Handler) SetNotes(w http.ResponseWriter, r *http.Request) {
	c, ok := h.current(w, r)
	if !ok {
		return
	}
	var in notesRequest
	if !decode(w, r, &in) {
		return
	}
	c.SetNotes(in.Notes)
	response.Success(w, render(c))
}

// AddSelected adds the modal product to the cart and closes the modal.
func (h *Handler) AddSelected(w http.ResponseWriter, r *http.Request) {
	c, ok := h.current(w, r)
	if !ok {
		return
	}
	if err := c.AddToCart(r.Context()); err != nil {
		h.fail(w, r, c, err)
		return
	}
	response.Success(w, render(c))
}

// ─────────────────────────────────────────────
// Cart
// ─────────────────────────────────────────────

type addItemRequest struct {
	ProductID int64  `json:"product_id" validate:"gt=0"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=99"`
	Notes     string `json:"notes" validate:"max=280"`
}

// AddItem adds a product straight from the list.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.current(w, r)
	if !ok {
		return
	}
	in := addItemRequest{Quantity: 1}
	if !decode(w, r, &in) {
		return
	}
	if err := c.AddProduct(r.Context(), in.ProductID, in.Quantity, in.Notes); err != nil {
		h.fail(w, r, c, err)
		return
	}
	response.Created(w, render(c))
}

type quantityRequest struct {
	Delta int `json:"delta" validate:"ne=0,gte=-99,lte=99"`
}

// UpdateItem moves a line's quantity by delta. Results below 1 are ignored.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.current(w, r)
	if !ok {
		return
	}
	index, ok := lineIndex(w, r)
	if !ok {
		return
	}
	var in quantityRequest
	if !decode(w, r, &in) {
		return
	}
	c.ChangeQuantity(r.Context(), index, in.Delta)
	response.Success(w, render(c))
}

// RemoveItem drops a cart line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.current(w, r)
	if !ok {
		return
	}
	index, ok := lineIndex(w, r)
	if !ok {
		return
	}
	c.RemoveLine(r.Context(), index)
	response.Success(w, render(c))
}

// ClearCart empties the cart only with ?confirm=true.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.current(w, r)
	if !ok {
		return
	}
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if !c.ClearCart(r.Context(), confirmed) {
		response.WithMessage(w, http.StatusOK, "nothing cleared", render(c))
		return
	}
	response.Success(w, render(c))
}

type checkoutResponse struct {
	Order menuview.Order    `json:"order"`
	View  menuview.Snapshot `json:"view"`
}

// Checkout summarizes the cart as an order. The cart is kept.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	c, ok := h.current(w, r)
	if !ok {
		return
	}
	order, err := c.Checkout()
	if err != nil {
		h.fail(w, r, c, err)
		return
	}
	logger.WithCtx(r.Context()).Info("server: checkout",
		"business", order.BusinessSlug, "items", order.ItemCount, "total", order.Total.String())
	response.Success(w, checkoutResponse{Order: order, View: render(c)})
}

// Share returns the share sheet for the mounted menu.
func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	c, ok := h.current(w, r)
	if !ok {
		return
	}
	response.Success(w, c.ShareInfo(h.publicURL+c.Route().Path))
}

// Health reports liveness and the number of live views.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]any{"status": "ok", "views": h.hub.Len()})
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

func decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	errs, err := bind.JSON(r, dest)
	if err != nil {
		response.BadRequest(w, err.Error())
		return false
	}
	if errs != nil {
		response.ValidationError(w, errs)
		return false
	}
	return true
}

func lineIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || i < 0 {
		response.BadRequest(w, "line index must be a non-negative integer")
		return 0, false
	}
	return i, true
}
