package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/menugr/menugr/internal/menu"
)

var validate = validator.New()

// envelope is the common response wrapper of the backend API.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (e envelope) reason() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

type businessDTO struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Slug     string `json:"slug" validate:"required"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
	LogoURL  string `json:"logo_url"`
	CoverURL string `json:"cover_url"`
	IsActive *bool  `json:"is_active"`
}

func (d businessDTO) toMenu() menu.Business {
	return menu.Business{
		ID:       d.ID,
		Name:     d.Name,
		Slug:     d.Slug,
		Currency: strings.ToUpper(d.Currency),
		LogoURL:  d.LogoURL,
		CoverURL: d.CoverURL,
		IsActive: d.IsActive == nil || *d.IsActive,
	}
}

type categoryDTO struct {
	ID            int64  `json:"id" validate:"gt=0"`
	BusinessID    string `json:"business_id"`
	Name          string `json:"name" validate:"required"`
	Description   string `json:"description"`
	DisplayOrder  int    `json:"display_order"`
	CoverImageURL string `json:"cover_image_url"`
	IsActive      *bool  `json:"is_active"`
}

func (d categoryDTO) toMenu() menu.Category {
	return menu.Category{
		ID:            d.ID,
		BusinessID:    d.BusinessID,
		Name:          d.Name,
		Description:   d.Description,
		DisplayOrder:  d.DisplayOrder,
		CoverImageURL: d.CoverImageURL,
		IsActive:      d.IsActive == nil || *d.IsActive,
	}
}

type imageDTO struct {
	URL       string `json:"url" validate:"required"`
	AltText   string `json:"alt_text"`
	SortOrder int    `json:"sort_order"`
	IsPrimary bool   `json:"is_primary"`
}

type productDTO struct {
	ID           int64            `json:"id" validate:"gt=0"`
	BusinessID   string           `json:"business_id"`
	CategoryID   int64            `json:"category_id" validate:"gte=0"`
	Name         string           `json:"name" validate:"required"`
	Description  string           `json:"description"`
	BasePrice    decimal.Decimal  `json:"base_price"`
	ComparePrice *decimal.Decimal `json:"compare_price"`
	Currency     string           `json:"currency" validate:"omitempty,len=3"`
	IsAvailable  *bool            `json:"is_available"`
	Tags         []string         `json:"tags"`
	SortOrder    int              `json:"sort_order"`
	Images       []imageDTO       `json:"images" validate:"dive"`
}

func (d productDTO) check() error {
	if d.BasePrice.IsNegative() {
		return fmt.Errorf("product %d: negative base_price %s", d.ID, d.BasePrice)
	}
	return nil
}

func (d productDTO) toMenu() menu.Product {
	p := menu.Product{
		ID:           d.ID,
		BusinessID:   d.BusinessID,
		CategoryID:   d.CategoryID,
		Name:         d.Name,
		Description:  d.Description,
		BasePrice:    d.BasePrice,
		ComparePrice: d.ComparePrice,
		Currency:     strings.ToUpper(d.Currency),
		IsAvailable:  d.IsAvailable == nil || *d.IsAvailable,
		Tags:         d.Tags,
		SortOrder:    d.SortOrder,
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	for _, im := range d.Images {
		p.Images = append(p.Images, menu.ProductImage(im))
	}
	return p
}

type qrDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug" validate:"required"`
	Type        string `json:"type" validate:"omitempty,oneof=general table"`
	TableNumber int    `json:"table_number" validate:"gte=0"`
	Location    string `json:"location"`
	BusinessID  string `json:"business_id"`
}

func (d qrDTO) toMenu() menu.QRInfo {
	return menu.QRInfo{
		ID:          d.ID,
		Name:        d.Name,
		Slug:        d.Slug,
		Type:        menu.QRType(d.Type),
		TableNumber: d.TableNumber,
		Location:    d.Location,
		BusinessID:  d.BusinessID,
	}
}

type menuDataDTO struct {
	Business   *businessDTO  `json:"business"`
	Categories []categoryDTO `json:"categories" validate:"dive"`
	Products   []productDTO  `json:"products" validate:"dive"`
}

type scanDTO struct {
	QRInfo   qrDTO        `json:"qrInfo"`
	MenuData *menuDataDTO `json:"menuData"`
}

type scanRequest struct {
	QRSlug     string `json:"qr_slug"`
	UserAgent  string `json:"user_agent"`
	AccessedAt string `json:"accessed_at"`
	SessionID  string `json:"session_id"`
	DeviceType string `json:"device_type"`
}

type listRequest struct {
	BusinessID string `json:"business_id"`
}

type businessRequest struct {
	Slug string `json:"slug"`
}

func validateAll[T any](items []T) error {
	for i := range items {
		if err := validate.Struct(items[i]); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

func toCategories(dtos []categoryDTO) ([]menu.Category, error) {
	if err := validateAll(dtos); err != nil {
		return nil, err
	}
	out := make([]menu.Category, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toMenu())
	}
	return out, nil
}

func toProducts(dtos []productDTO) ([]menu.Product, error) {
	if err := validateAll(dtos); err != nil {
		return nil, err
	}
	out := make([]menu.Product, 0, len(dtos))
	for _, d := range dtos {
		if err := d.check(); err != nil {
			return nil, err
		}
		out = append(out, d.toMenu())
	}
	return out, nil
}

// toPayload converts an embedded menu. An embedded menu without products is
// treated as absent.
func (d *menuDataDTO) toPayload() (*menu.Payload, error) {
	if d == nil || len(d.Products) == 0 {
		return nil, nil
	}
	var errs []error
	p := &menu.Payload{}
	if d.Business != nil {
		if err := validate.Struct(d.Business); err != nil {
			errs = append(errs, fmt.Errorf("business: %w", err))
		} else {
			b := d.Business.toMenu()
			p.Business = &b
		}
	}
	cats, err := toCategories(d.Categories)
	if err != nil {
		errs = append(errs, fmt.Errorf("categories: %w", err))
	}
	prods, err := toProducts(d.Products)
	if err != nil {
		errs = append(errs, fmt.Errorf("products: %w", err))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	p.Categories, p.Products = cats, prods
	return p, nil
}
