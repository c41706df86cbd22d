package menuview

import (
	"github.com/shopspring/decimal"

	"github.com/menugr/menugr/internal/access"
	"github.com/menugr/menugr/internal/catalog"
	"github.com/menugr/menugr/internal/menu"
)

// Snapshot is the view-ready state of a Controller at one instant.
type Snapshot struct {
	Path     string         `json:"path"`
	Slug     string         `json:"slug"`
	Business *menu.Business `json:"business,omitempty"`
	Access   access.Context `json:"access"`
	IsQR     bool           `json:"is_qr"`

	Loading         bool   `json:"loading"`
	Empty           bool   `json:"empty"`
	Error           string `json:"error,omitempty"`
	CanRetry        bool   `json:"can_retry"`
	Redirect        string `json:"redirect,omitempty"`
	RedirectMessage string `json:"redirect_message,omitempty"`

	AllCategoriesActive bool           `json:"all_categories_active"`
	ActiveCategory      int64          `json:"active_category"`
	Search              string         `json:"search"`
	CategoryFilterOpen  bool           `json:"category_filter_open"`
	Categories          []CategoryView `json:"categories"`
	Products            []ProductView  `json:"products"`

	Selected *SelectedView `json:"selected,omitempty"`
	Cart     CartView      `json:"cart"`
	Notices  []Notice      `json:"notices,omitempty"`
}

// CategoryView is one entry of the category list.
type CategoryView struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	CoverImageURL string `json:"cover_image_url,omitempty"`
	Active        bool   `json:"active"`
	ProductCount  int    `json:"product_count"`
}

// ProductView is a product card. Prices are decimal strings.
type ProductView struct {
	ID              int64    `json:"id"`
	CategoryID      int64    `json:"category_id"`
	CategoryName    string   `json:"category_name"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Tags            []string `json:"tags"`
	ImageURL        string   `json:"image_url"`
	Price           string   `json:"price"`
	ComparePrice    string   `json:"compare_price,omitempty"`
	DiscountPercent int      `json:"discount_percent,omitempty"`
}

// SelectedView is the open product modal.
type SelectedView struct {
	Product  ProductView `json:"product"`
	Quantity int         `json:"quantity"`
	Notes    string      `json:"notes"`
	Subtotal string      `json:"subtotal"`
}

// LineView is one cart line; Index addresses it in cart requests.
type LineView struct {
	Index     int    `json:"index"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes,omitempty"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

// CartView is the cart panel.
type CartView struct {
	Open      bool       `json:"open"`
	Lines     []LineView `json:"lines"`
	ItemCount int        `json:"item_count"`
	Total     string     `json:"total"`
	IsEmpty   bool       `json:"is_empty"`
}

// Snapshot derives the current view. Pending notices are included but not
// drained.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.currency()
	active := c.index.ActiveCategory()

	s := Snapshot{
		Path:                c.route.Path,
		Slug:                c.route.Slug,
		Access:              c.access,
		IsQR:                c.route.Mode == access.ModeQR,
		Loading:             c.loading,
		Error:               c.loadErr,
		CanRetry:            c.loadErr != "" && c.mounted,
		Redirect:            c.redirect,
		RedirectMessage:     c.redirectMessage,
		AllCategoriesActive: active == catalog.AllCategories,
		ActiveCategory:      active,
		Search:              c.index.SearchTerm(),
		CategoryFilterOpen:  c.filterOpen,
		Categories:          []CategoryView{},
		Products:            []ProductView{},
		Notices:             append([]Notice(nil), c.notices...),
	}
	if c.business != nil {
		b := *c.business
		s.Business = &b
	}

	counts := map[int64]int{}
	for _, p := range c.index.Products() {
		counts[p.CategoryID]++
	}
	for _, cat := range c.index.Categories() {
		s.Categories = append(s.Categories, CategoryView{
			ID:            cat.ID,
			Name:          cat.Name,
			Description:   cat.Description,
			CoverImageURL: cat.CoverImageURL,
			Active:        cat.ID == active,
			ProductCount:  counts[cat.ID],
		})
	}

	for _, p := range c.index.VisibleProducts() {
		s.Products = append(s.Products, c.productView(p, cur))
	}
	s.Empty = !s.Loading && s.Error == "" && s.Redirect == "" && len(s.Products) == 0

	if c.selected != nil {
		pv := c.productView(*c.selected, cur)
		sub := c.selected.BasePrice.Mul(decimal.NewFromInt(int64(c.selectedQty)))
		s.Selected = &SelectedView{
			Product:  pv,
			Quantity: c.selectedQty,
			Notes:    c.notes,
			Subtotal: menu.FormatPrice(sub, priceCurrency(*c.selected, cur)),
		}
	}

	items := c.cart.Items()
	s.Cart = CartView{
		Open:      c.cartOpen,
		Lines:     make([]LineView, 0, len(items)),
		ItemCount: c.cart.ItemCount(),
		Total:     menu.FormatPrice(c.cart.Total(), cur),
		IsEmpty:   len(items) == 0,
	}
	for i, it := range items {
		pc := priceCurrency(it.Product, cur)
		s.Cart.Lines = append(s.Cart.Lines, LineView{
			Index:     i,
			ProductID: it.Product.ID,
			Name:      it.Product.Name,
			ImageURL:  it.Product.ImageURL(),
			Quantity:  it.Quantity,
			Notes:     it.Notes,
			UnitPrice: menu.FormatPrice(it.Product.BasePrice, pc),
			LineTotal: menu.FormatPrice(it.Total(), pc),
		})
	}
	return s
}

func (c *Controller) productView(p menu.Product, fallback string) ProductView {
	cur := priceCurrency(p, fallback)
	pv := ProductView{
		ID:              p.ID,
		CategoryID:      p.CategoryID,
		CategoryName:    c.index.CategoryName(p.CategoryID),
		Name:            p.Name,
		Description:     p.Description,
		Tags:            p.Tags,
		ImageURL:        p.ImageURL(),
		Price:           menu.FormatPrice(p.BasePrice, cur),
		DiscountPercent: p.DiscountPercent(),
	}
	if pv.Tags == nil {
		pv.Tags = []string{}
	}
	if pv.DiscountPercent > 0 {
		pv.ComparePrice = menu.FormatPrice(*p.ComparePrice, cur)
	}
	return pv
}

func priceCurrency(p menu.Product, fallback string) string {
	if p.Currency != "" {
		return p.Currency
	}
	return fallback
}
