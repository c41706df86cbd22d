package backend_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menugr/menugr/internal/backend"
	"github.com/menugr/menugr/internal/menu"
	"github.com/menugr/menugr/pkg/http"
	"github.com/menugr/menugr/pkg/testkit"
)

const base = "http://api.test/api"

func setup(t *testing.T) (*backend.Client, *testkit.MockTransport) {
	t.Helper()
	mt := testkit.NewMockTransport()
	http.DefaultClient.Transport = mt
	t.Cleanup(http.ResetTransport)

	hc := http.NewClient(base, time.Second, 0)
	return backend.New(hc), mt
}

func TestListCategories(t *testing.T) {
	c, mt := setup(t)
	mt.On("POST", base+backend.PathCategories, 200, `{
		"success": true,
		"data": [
			{"id": 1, "business_id": "b-1", "name": "Entradas", "display_order": 1, "is_active": true},
			{"id": 2, "business_id": "b-1", "name": "Principales", "display_order": 2}
		]
	}`)

	cats, err := c.ListCategories(context.Background(), "b-1")
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Entradas", cats[0].Name)
	assert.True(t, cats[1].IsActive, "missing is_active defaults to active")

	reqs := mt.Requests()
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"business_id":"b-1"}`, string(reqs[0].Body))
}

func TestListProductsConvertsPrices(t *testing.T) {
	c, mt := setup(t)
	mt.On("POST", base+backend.PathProducts, 200, `{
		"success": true,
		"data": [{
			"id": 2, "category_id": 2, "name": "Hamburguesa Clásica",
			"base_price": 12.99, "compare_price": 14.99, "currency": "eur",
			"is_available": true, "tags": ["popular"], "sort_order": 1,
			"images": [{"url": "https://img/1.jpg", "is_primary": true}]
		}]
	}`)

	prods, err := c.ListProducts(context.Background(), "b-1")
	require.NoError(t, err)
	require.Len(t, prods, 1)
	p := prods[0]
	assert.True(t, decimal.RequireFromString("12.99").Equal(p.BasePrice))
	require.NotNil(t, p.ComparePrice)
	assert.Equal(t, 13, p.DiscountPercent())
	assert.Equal(t, "EUR", p.Currency)
	assert.Equal(t, "https://img/1.jpg", p.ImageURL())
}

func TestListProductsRejectsInvalidPayload(t *testing.T) {
	c, mt := setup(t)
	mt.On("POST", base+backend.PathProducts, 200, `{"success": true, "data": [{"id": 0, "name": ""}]}`)

	_, err := c.ListProducts(context.Background(), "b-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, backend.ErrInvalid))
}

func TestResolveBusiness(t *testing.T) {
	c, mt := setup(t)
	mt.On("POST", base+backend.PathBusiness, 200, `{
		"success": true,
		"data": {"id": "b-1", "name": "Burger Bar", "slug": "burger-bar", "currency": "EUR"}
	}`)

	b, err := c.ResolveBusiness(context.Background(), "burger-bar")
	require.NoError(t, err)
	assert.Equal(t, menu.Business{ID: "b-1", Name: "Burger Bar", Slug: "burger-bar", Currency: "EUR", IsActive: true}, b)
	assert.JSONEq(t, `{"slug":"burger-bar"}`, string(mt.Requests()[0].Body))
}

func TestResolveBusinessErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"http 404", 404, `{"success": false, "message": "No se encontró el negocio"}`, backend.ErrNotFound},
		{"success false", 200, `{"success": false, "message": "nope"}`, backend.ErrNotFound},
		{"null data", 200, `{"success": true, "data": null}`, backend.ErrNotFound},
		{"inactive", 200, `{"success": true, "data": {"id": "b", "name": "B", "slug": "b", "is_active": false}}`, backend.ErrNotFound},
		{"server", 500, `oops`, backend.ErrServer},
		{"bad json", 200, `<html>`, backend.ErrInvalid},
		{"bad request", 400, `{}`, backend.ErrInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, mt := setup(t)
			mt.On("POST", base+backend.PathBusiness, tc.status, tc.body)

			_, err := c.ResolveBusiness(context.Background(), "x")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestNetworkFailureIsTyped(t *testing.T) {
	c, mt := setup(t)
	mt.Fail("", base, errors.New("connection refused"))

	_, err := c.ListCategories(context.Background(), "b-1")
	assert.Equal(t, backend.KindNetwork, backend.KindOf(err))
}

func TestRegisterScanWithEmbeddedMenu(t *testing.T) {
	c, mt := setup(t)
	mt.On("POST", base+backend.PathScan, 200, `{
		"success": true,
		"data": {
			"qrInfo": {"id": 9, "name": "Mesa 5", "slug": "t5", "type": "table", "table_number": 5, "location": "Terraza", "business_id": "b-1"},
			"menuData": {
				"business": {"id": "b-1", "name": "Burger Bar", "slug": "burger-bar"},
				"categories": [{"id": 1, "name": "Burgers", "display_order": 1}],
				"products": [{"id": 1, "category_id": 1, "name": "Burger", "base_price": "10.00"}]
			}
		}
	}`)

	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	res, err := c.RegisterScan(context.Background(), "t5", menu.ScanMetadata{
		SessionID: "s-1", UserAgent: "ua", DeviceType: menu.DeviceMobile, AccessedAt: at,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.QR.TableNumber)
	assert.Equal(t, menu.QRTable, res.QR.Type)
	require.NotNil(t, res.Menu)
	require.NotNil(t, res.Menu.Business)
	assert.Equal(t, "burger-bar", res.Menu.Business.Slug)
	assert.Len(t, res.Menu.Products, 1)

	assert.JSONEq(t, `{
		"qr_slug": "t5", "user_agent": "ua", "accessed_at": "2026-10-18T12:00:00Z",
		"session_id": "s-1", "device_type": "mobile"
	}`, string(mt.Requests()[0].Body))
}

func TestRegisterScanIgnoresBrokenEmbeddedMenu(t *testing.T) {
	c, mt := setup(t)
	mt.On("POST", base+backend.PathScan, 200, `{
		"success": true,
		"data": {
			"qrInfo": {"slug": "t5", "business_id": "b-1"},
			"menuData": {"products": [{"id": 0}]}
		}
	}`)

	res, err := c.RegisterScan(context.Background(), "t5", menu.ScanMetadata{})
	require.NoError(t, err)
	assert.Nil(t, res.Menu)
	assert.Equal(t, "b-1", res.QR.BusinessID)
}
