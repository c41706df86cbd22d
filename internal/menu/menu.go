// Package menu holds the typed domain model of a public digital menu:
// businesses, categories, products and the QR metadata that can accompany a
// scan. Values here have already been validated at the backend boundary.
package menu

import (
	"github.com/shopspring/decimal"
)

// PlaceholderImageURL is shown for products without images.
const PlaceholderImageURL = "https://images.unsplash.com/photo-1565958011703-44f9829ba187?auto=format&fit=crop&w=400&q=80"

// DefaultCurrency is used when neither the product nor the business carries one.
const DefaultCurrency = "EUR"

// Business is the tenant whose menu is being viewed.
type Business struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Currency string `json:"currency,omitempty"`
	LogoURL  string `json:"logo_url,omitempty"`
	CoverURL string `json:"cover_url,omitempty"`
	IsActive bool   `json:"is_active"`
}

// Category groups products. Lower DisplayOrder renders first.
type Category struct {
	ID            int64  `json:"id"`
	BusinessID    string `json:"business_id,omitempty"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	DisplayOrder  int    `json:"display_order"`
	CoverImageURL string `json:"cover_image_url,omitempty"`
	IsActive      bool   `json:"is_active"`
}

// ProductImage is one picture of a product.
type ProductImage struct {
	URL       string `json:"url"`
	AltText   string `json:"alt_text,omitempty"`
	SortOrder int    `json:"sort_order"`
	IsPrimary bool   `json:"is_primary"`
}

// Product is a sellable menu entry.
type Product struct {
	ID           int64            `json:"id"`
	BusinessID   string           `json:"business_id,omitempty"`
	CategoryID   int64            `json:"category_id"`
	Name         string           `json:"name"`
	Description  string           `json:"description,omitempty"`
	BasePrice    decimal.Decimal  `json:"base_price"`
	ComparePrice *decimal.Decimal `json:"compare_price,omitempty"`
	Currency     string           `json:"currency,omitempty"`
	IsAvailable  bool             `json:"is_available"`
	Tags         []string         `json:"tags"`
	SortOrder    int              `json:"sort_order"`
	Images       []ProductImage   `json:"images,omitempty"`
}

// PrimaryImage returns the image flagged primary, or the first image when none
// is flagged. ok is false when the product has no images.
func (p Product) PrimaryImage() (img ProductImage, ok bool) {
	if len(p.Images) == 0 {
		return ProductImage{}, false
	}
	for _, im := range p.Images {
		if im.IsPrimary {
			return im, true
		}
	}
	return p.Images[0], true
}

// ImageURL is the cover URL used for display.
func (p Product) ImageURL() string {
	if img, ok := p.PrimaryImage(); ok && img.URL != "" {
		return img.URL
	}
	return PlaceholderImageURL
}

// DiscountPercent is the rounded saving against ComparePrice, or 0 when the
// product is not discounted.
func (p Product) DiscountPercent() int {
	if p.ComparePrice == nil || !p.ComparePrice.GreaterThan(p.BasePrice) {
		return 0
	}
	cmp := *p.ComparePrice
	pct := cmp.Sub(p.BasePrice).Div(cmp).Mul(decimal.NewFromInt(100)).Round(0)
	return int(pct.IntPart())
}

// Clone returns a deep copy, so a cart snapshot never aliases catalog data.
func (p Product) Clone() Product {
	out := p
	if p.ComparePrice != nil {
		cp := *p.ComparePrice
		out.ComparePrice = &cp
	}
	if p.Tags != nil {
		out.Tags = append([]string(nil), p.Tags...)
	}
	if p.Images != nil {
		out.Images = append([]ProductImage(nil), p.Images...)
	}
	return out
}

// QRType distinguishes general QR codes from table-bound ones.
type QRType string

const (
	QRGeneral QRType = "general"
	QRTable   QRType = "table"
)

// QRInfo describes the QR code that was scanned.
type QRInfo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Type        QRType `json:"type,omitempty"`
	TableNumber int    `json:"table_number,omitempty"`
	Location    string `json:"location,omitempty"`
	BusinessID  string `json:"business_id,omitempty"`
}

// Payload is a complete menu: the business plus its categories and products.
// Business may be nil when the source only delivered the catalog.
type Payload struct {
	Business   *Business  `json:"business,omitempty"`
	Categories []Category `json:"categories"`
	Products   []Product  `json:"products"`
}
