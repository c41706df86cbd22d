package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/menugr/menugr/internal/menu"
	"github.com/menugr/menugr/pkg/logger"
	"github.com/menugr/menugr/pkg/metrics"
)

// BusinessResolver looks a business up by slug.
type BusinessResolver interface {
	ResolveBusiness(ctx context.Context, slug string) (menu.Business, error)
}

// ScanRegistrar records QR scans.
type ScanRegistrar interface {
	RegisterScan(ctx context.Context, slug string, md menu.ScanMetadata) (menu.ScanResult, error)
}

// CatalogSource lists the catalog of a business.
type CatalogSource interface {
	ListCategories(ctx context.Context, businessID string) ([]menu.Category, error)
	ListProducts(ctx context.Context, businessID string) ([]menu.Product, error)
}

// Backend is everything the resolver needs. *backend.Client satisfies it.
type Backend interface {
	BusinessResolver
	ScanRegistrar
	CatalogSource
}

// Source names the step that produced a resolution.
type Source string

const (
	SourceEmbedded   Source = "embedded"
	SourceBusinessID Source = "business_id"
	SourceSlug       Source = "slug"
	SourceNone       Source = "none"
)

// Resolution is the outcome of Resolve. Menu is set when the catalog came
// with the resolution; otherwise the caller loads it for Business.
type Resolution struct {
	Route    Route
	State    State
	Access   Context
	Source   Source
	Business *menu.Business
	Menu     *menu.Payload
	Reason   string
	Err      error
	Trail    []State
}

// OK reports whether the resolution succeeded.
func (r Resolution) OK() bool { return r.State == StateResolved }

// CartSlug is the slug a cart should be stored under: the business slug when
// known, else the route slug.
func (r Resolution) CartSlug() string {
	if r.Business != nil && r.Business.Slug != "" {
		return r.Business.Slug
	}
	return r.Route.Slug
}

// BusinessID is the resolved business id, or "" when unknown.
func (r Resolution) BusinessID() string {
	if r.Business != nil && r.Business.ID != "" {
		return r.Business.ID
	}
	return r.Access.BusinessID
}

func (r *Resolution) enter(s State) {
	r.State = s
	r.Trail = append(r.Trail, s)
}

// Resolver runs the resolution chain against a Backend.
type Resolver struct {
	backend Backend
}

// NewResolver returns a resolver backed by b.
func NewResolver(b Backend) *Resolver {
	return &Resolver{backend: b}
}

// Resolve runs the chain for a route produced by Classify. It never returns
// an error; failures end in StateFailed with Reason and Err set.
func (r *Resolver) Resolve(ctx context.Context, route Route, md menu.ScanMetadata) Resolution {
	res := Resolution{
		Route:  route,
		Access: Context{Mode: route.Mode, Slug: route.Slug},
		Source: SourceNone,
	}
	res.enter(StateUnresolved)

	log := logger.WithCtx(ctx).With("mode", route.Mode, "slug", route.Slug)

	var errs []error
	if route.Mode == ModeQR {
		res.enter(StateResolvingQR)
		if r.resolveQR(ctx, &res, md, &errs) {
			return r.finish(ctx, res)
		}
	} else {
		res.enter(StateResolvingDirect)
	}

	biz, err := r.backend.ResolveBusiness(ctx, route.Slug)
	if err == nil {
		res.Business = &biz
		res.Access.BusinessID = biz.ID
		res.Access.BusinessSlug = biz.Slug
		res.Source = SourceSlug
		res.enter(StateResolved)
		return r.finish(ctx, res)
	}
	errs = append(errs, fmt.Errorf("slug lookup: %w", err))
	log.Warn("access: slug lookup failed", "error", err)

	res.Err = errors.Join(errs...)
	res.Reason = failureReason(route, errs)
	res.enter(StateFailed)
	return r.finish(ctx, res)
}

// resolveQR runs the QR-only steps. It returns true when one of them resolved
// the menu; false means the caller continues with the slug lookup.
func (r *Resolver) resolveQR(ctx context.Context, res *Resolution, md menu.ScanMetadata, errs *[]error) bool {
	log := logger.WithCtx(ctx).With("slug", res.Route.Slug)

	scan, err := r.backend.RegisterScan(ctx, res.Route.Slug, md)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("scan registration: %w", err))
		log.Warn("access: scan registration failed, falling back to slug", "error", err)
		return false
	}

	qr := scan.QR
	res.Access.QRName = qr.Name
	res.Access.TableNumber = qr.TableNumber
	res.Access.Location = qr.Location
	res.Access.BusinessID = qr.BusinessID

	if scan.Menu != nil && len(scan.Menu.Products) > 0 {
		res.Menu = scan.Menu
		if scan.Menu.Business != nil {
			b := *scan.Menu.Business
			res.Business = &b
			res.Access.BusinessID = b.ID
			res.Access.BusinessSlug = b.Slug
		}
		res.Source = SourceEmbedded
		res.enter(StateResolved)
		return true
	}

	if qr.BusinessID == "" {
		*errs = append(*errs, errors.New("scan response carries no menu and no business id"))
		log.Info("access: scan response has no menu or business id")
		return false
	}

	payload, err := LoadCatalog(ctx, r.backend, qr.BusinessID)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("business id lookup: %w", err))
		log.Warn("access: business id lookup failed, falling back to slug", "business_id", qr.BusinessID, "error", err)
		return false
	}
	res.Menu = payload
	res.Source = SourceBusinessID
	r.attachBusiness(ctx, res, qr.BusinessID)
	res.enter(StateResolved)
	return true
}

// attachBusiness looks the QR slug up as a business slug, which is how QR
// codes are printed, so a QR visit and a direct visit share one cart key.
// The business is kept only when its id matches the scanned one.
func (r *Resolver) attachBusiness(ctx context.Context, res *Resolution, businessID string) {
	b, err := r.backend.ResolveBusiness(ctx, res.Route.Slug)
	if err != nil || b.ID != businessID {
		logger.WithCtx(ctx).Debug("access: QR slug is not the business slug, cart keyed by QR slug",
			"slug", res.Route.Slug, "business_id", businessID)
		return
	}
	res.Business = &b
	res.Access.BusinessSlug = b.Slug
}

func (r *Resolver) finish(ctx context.Context, res Resolution) Resolution {
	metrics.Resolutions.WithLabelValues(string(res.Route.Mode), string(res.Source)).Inc()
	if res.OK() {
		logger.WithCtx(ctx).Debug("access: resolved",
			"mode", res.Route.Mode, "slug", res.Route.Slug, "source", res.Source)
	}
	return res
}

// LoadCatalog fetches the categories and products of businessID.
func LoadCatalog(ctx context.Context, src CatalogSource, businessID string) (*menu.Payload, error) {
	cats, err := src.ListCategories(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	prods, err := src.ListProducts(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return &menu.Payload{Categories: cats, Products: prods}, nil
}

func failureReason(route Route, errs []error) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	what := "menu"
	if route.Mode == ModeQR {
		what = "QR code"
	}
	return fmt.Sprintf("%s %q could not be resolved: %s", what, route.Slug, strings.Join(parts, "; "))
}
