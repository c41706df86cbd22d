// Package backend is the typed client for the menu backend API. Responses
// use the {success, data, message} envelope; payloads are validated and
// converted into internal/menu types before they leave this package.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/menugr/menugr/config"
	"github.com/menugr/menugr/internal/menu"
	"github.com/menugr/menugr/pkg/http"
	"github.com/menugr/menugr/pkg/logger"
	"github.com/menugr/menugr/pkg/metrics"
)

// Endpoint paths, relative to the API base URL.
const (
	PathCategories = "/categories/list"
	PathProducts   = "/products/list"
	PathBusiness   = "/business/get"
	PathScan       = "/qr/qr-codes/scan"
)

// Client talks to the backend over pkg/http.
type Client struct {
	http *http.Client
}

// New wraps c, which carries the base URL, timeout and retries.
func New(c *http.Client) *Client {
	return &Client{http: c}
}

// NewFromConfig builds a client from API_BASE_URL, API_TIMEOUT and API_RETRIES.
func NewFromConfig() *Client {
	return New(http.NewClient(config.APIBaseURL(), config.APITimeout(), config.APIRetries()))
}

// ListCategories returns every category of businessID as reported by the
// backend, inactive ones included.
func (c *Client) ListCategories(ctx context.Context, businessID string) (out []menu.Category, err error) {
	const op = "list categories"
	defer metrics.ObserveBackend("list_categories", time.Now(), &err)

	var dtos []categoryDTO
	if err := c.call(ctx, op, PathCategories, listRequest{BusinessID: businessID}, &dtos); err != nil {
		return nil, err
	}
	out, err = toCategories(dtos)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindInvalid, Err: err}
	}
	return out, nil
}

// ListProducts returns every product of businessID, unavailable ones included.
func (c *Client) ListProducts(ctx context.Context, businessID string) (out []menu.Product, err error) {
	const op = "list products"
	defer metrics.ObserveBackend("list_products", time.Now(), &err)

	var dtos []productDTO
	if err := c.call(ctx, op, PathProducts, listRequest{BusinessID: businessID}, &dtos); err != nil {
		return nil, err
	}
	out, err = toProducts(dtos)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindInvalid, Err: err}
	}
	return out, nil
}

// ResolveBusiness looks a business up by slug. Inactive businesses are
// reported as not found.
func (c *Client) ResolveBusiness(ctx context.Context, slug string) (b menu.Business, err error) {
	const op = "resolve business"
	defer metrics.ObserveBackend("resolve_business", time.Now(), &err)

	var dto businessDTO
	if err := c.call(ctx, op, PathBusiness, businessRequest{Slug: slug}, &dto); err != nil {
		return menu.Business{}, err
	}
	if err := validate.Struct(dto); err != nil {
		return menu.Business{}, &Error{Op: op, Kind: KindInvalid, Err: err}
	}
	b = dto.toMenu()
	if !b.IsActive {
		return menu.Business{}, &Error{Op: op, Kind: KindNotFound, Message: fmt.Sprintf("business %q is inactive", slug)}
	}
	return b, nil
}

// RegisterScan records a QR scan and returns the QR metadata, plus the full
// menu when the backend embeds it.
func (c *Client) RegisterScan(ctx context.Context, slug string, md menu.ScanMetadata) (res menu.ScanResult, err error) {
	const op = "register scan"
	defer metrics.ObserveBackend("register_scan", time.Now(), &err)

	req := scanRequest{
		QRSlug:     slug,
		UserAgent:  md.UserAgent,
		SessionID:  md.SessionID,
		DeviceType: md.DeviceType,
	}
	if !md.AccessedAt.IsZero() {
		req.AccessedAt = md.AccessedAt.UTC().Format(time.RFC3339)
	}

	var dto scanDTO
	if err := c.call(ctx, op, PathScan, req, &dto); err != nil {
		return menu.ScanResult{}, err
	}
	if err := validate.Struct(dto.QRInfo); err != nil {
		return menu.ScanResult{}, &Error{Op: op, Kind: KindInvalid, Err: err}
	}

	res.QR = dto.QRInfo.toMenu()
	payload, perr := dto.MenuData.toPayload()
	if perr != nil {
		logger.WithCtx(ctx).Warn("backend: ignoring invalid embedded menu", "qr", slug, "error", perr)
		return res, nil
	}
	res.Menu = payload
	return res, nil
}

// call POSTs body to path and decodes the envelope's data into dest.
func (c *Client) call(ctx context.Context, op, path string, body, dest any) error {
	resp, err := c.http.Post(path).Body(body).WithContext(ctx).Send()
	if err != nil {
		return &Error{Op: op, Kind: KindNetwork, Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(resp.Raw, &env)

	if !resp.OK() {
		e := &Error{Op: op, Kind: kindForStatus(resp.StatusCode), Status: resp.StatusCode}
		if decodeErr == nil {
			e.Message = env.reason()
		}
		return e
	}
	if decodeErr != nil {
		return &Error{Op: op, Kind: KindInvalid, Status: resp.StatusCode, Err: decodeErr}
	}
	if !env.Success {
		return &Error{Op: op, Kind: KindNotFound, Status: resp.StatusCode, Message: env.reason()}
	}
	if len(env.Data) == 0 || strings.TrimSpace(string(env.Data)) == "null" {
		return &Error{Op: op, Kind: KindNotFound, Status: resp.StatusCode, Message: "empty data"}
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return &Error{Op: op, Kind: KindInvalid, Status: resp.StatusCode, Err: err}
	}
	return nil
}
