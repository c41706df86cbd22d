package menuview_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menugr/menugr/internal/backend"
	"github.com/menugr/menugr/internal/cart"
	"github.com/menugr/menugr/internal/catalog"
	"github.com/menugr/menugr/internal/menu"
	"github.com/menugr/menugr/internal/menuview"
	"github.com/menugr/menugr/pkg/kvstore"
)

const (
	testTimeout = 2 * time.Second
	testTick    = 5 * time.Millisecond
)

type fakeBackend struct {
	mu         sync.Mutex
	businesses map[string]menu.Business
	scanErr    error
	scan       menu.ScanResult
	catalogErr error
	// gates blocks ResolveBusiness for a slug until the channel is closed.
	gates map[string]chan struct{}
}

func newBackend() *fakeBackend {
	return &fakeBackend{
		businesses: map[string]menu.Business{
			"burger-bar": {ID: "b-1", Name: "Burger Bar", Slug: "burger-bar", Currency: "EUR", IsActive: true},
			"pizza":      {ID: "b-2", Name: "Pizza", Slug: "pizza", Currency: "EUR", IsActive: true},
		},
		gates: map[string]chan struct{}{},
	}
}

func (f *fakeBackend) ResolveBusiness(_ context.Context, slug string) (menu.Business, error) {
	f.mu.Lock()
	gate := f.gates[slug]
	b, ok := f.businesses[slug]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if !ok {
		return menu.Business{}, &backend.Error{Op: "resolve business", Kind: backend.KindNotFound}
	}
	return b, nil
}

func (f *fakeBackend) RegisterScan(context.Context, string, menu.ScanMetadata) (menu.ScanResult, error) {
	return f.scan, f.scanErr
}

func (f *fakeBackend) ListCategories(_ context.Context, id string) ([]menu.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return []menu.Category{
		{ID: 30, BusinessID: id, Name: "Postres", DisplayOrder: 3, IsActive: true},
		{ID: 10, BusinessID: id, Name: "Entradas", DisplayOrder: 1, IsActive: true},
		{ID: 20, BusinessID: id, Name: "Principales", DisplayOrder: 2, IsActive: true},
	}, nil
}

func (f *fakeBackend) ListProducts(_ context.Context, id string) ([]menu.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	cmp := decimal.RequireFromString("14.99")
	return []menu.Product{
		{ID: 1, BusinessID: id, CategoryID: 20, Name: "Burger", BasePrice: decimal.NewFromInt(10), IsAvailable: true, Tags: []string{"carne"}, SortOrder: 1},
		{ID: 2, BusinessID: id, CategoryID: 20, Name: "Hamburguesa Clásica", BasePrice: decimal.RequireFromString("12.99"), ComparePrice: &cmp, IsAvailable: true, SortOrder: 2},
		{ID: 3, BusinessID: id, CategoryID: 10, Name: "Nachos", BasePrice: decimal.NewFromInt(6), IsAvailable: true, SortOrder: 3},
		{ID: 4, BusinessID: id, CategoryID: 30, Name: "Flan", BasePrice: decimal.NewFromInt(4), IsAvailable: false, SortOrder: 4},
	}, nil
}

func (f *fakeBackend) setCatalogErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalogErr = err
}

func mounted(t *testing.T, f *fakeBackend, kv kvstore.Store, path string) *menuview.Controller {
	t.Helper()
	c := menuview.New(menuview.Options{Backend: f, Store: kv, SessionID: "s-1"})
	require.NoError(t, c.Mount(context.Background(), path))
	return c
}

func TestMountDirect(t *testing.T) {
	c := mounted(t, newBackend(), kvstore.NewMemory(), "/menu/burger-bar")

	snap := c.Snapshot()
	assert.False(t, snap.Loading)
	assert.False(t, snap.IsQR)
	assert.Empty(t, snap.Redirect)
	require.NotNil(t, snap.Business)
	assert.Equal(t, "Burger Bar", snap.Business.Name)

	names := make([]string, 0, len(snap.Categories))
	for _, cat := range snap.Categories {
		names = append(names, cat.Name)
	}
	assert.Equal(t, []string{"Entradas", "Principales", "Postres"}, names, "ordered by display order")
	assert.True(t, snap.AllCategoriesActive)

	require.Len(t, snap.Products, 3, "unavailable products are dropped")
	assert.Equal(t, "10,00 €", snap.Products[0].Price)
	assert.Equal(t, 13, snap.Products[1].DiscountPercent)
	assert.Equal(t, "14,99 €", snap.Products[1].ComparePrice)
	assert.Equal(t, menu.PlaceholderImageURL, snap.Products[0].ImageURL)
	assert.Equal(t, "Principales", snap.Products[0].CategoryName)
}

func TestMountRedirectsWhenUnresolvable(t *testing.T) {
	c := menuview.New(menuview.Options{Backend: newBackend()})
	err := c.Mount(context.Background(), "/menu/ghost")

	require.Error(t, err)
	assert.True(t, errors.Is(err, menuview.ErrUnavailable))
	snap := c.Snapshot()
	assert.Equal(t, menuview.RedirectTarget, snap.Redirect)
	assert.NotEmpty(t, snap.RedirectMessage)
	assert.False(t, snap.Empty, "a redirect is not an empty menu")
	assert.Empty(t, snap.Products)
}

func TestFailedRemountDropsPreviousMenu(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	f := newBackend()
	f.scan = menu.ScanResult{QR: menu.QRInfo{Slug: "burger-bar", TableNumber: 4, BusinessID: "b-1"}}

	c := mounted(t, f, kv, "/m/burger-bar")
	require.NoError(t, c.AddProduct(ctx, 1, 2, ""))
	c.ToggleCart()
	require.True(t, c.Mounted())

	err := c.Mount(ctx, "/menu/ghost")
	require.True(t, errors.Is(err, menuview.ErrUnavailable))
	assert.False(t, c.Mounted())

	snap := c.Snapshot()
	assert.Equal(t, menuview.RedirectTarget, snap.Redirect)
	assert.Nil(t, snap.Business)
	assert.Equal(t, "ghost", snap.Access.Slug)
	assert.Empty(t, snap.Access.BusinessID)
	assert.Zero(t, snap.Access.TableNumber)
	assert.Empty(t, snap.Cart.Lines)
	assert.False(t, snap.Cart.Open)
	assert.Empty(t, snap.Products)

	assert.False(t, c.ClearCart(ctx, true))
	c.ChangeQuantity(ctx, 0, 5)
	c.RemoveLine(ctx, 0)
	_, err = c.Checkout()
	assert.True(t, errors.Is(err, menuview.ErrEmptyCart))
	assert.True(t, errors.Is(c.AddProduct(ctx, 1, 1, ""), menuview.ErrUnknownProduct))

	raw, ok, err := kv.Get(ctx, cart.Key("burger-bar"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, `"quantity":2`, "the previous business's saved cart is untouched")

	again := mounted(t, f, kv, "/menu/burger-bar")
	assert.Equal(t, 2, again.ItemCount())
}

func TestMountQRScanFailureStillRenders(t *testing.T) {
	f := newBackend()
	f.scanErr = &backend.Error{Op: "register scan", Kind: backend.KindNetwork}

	c := mounted(t, f, kvstore.NewMemory(), "/m/burger-bar")
	snap := c.Snapshot()
	assert.True(t, snap.IsQR)
	assert.Zero(t, snap.Access.TableNumber)
	assert.Empty(t, snap.Access.Location)
	assert.Len(t, snap.Products, 3)
}

func TestMountQRWithTable(t *testing.T) {
	f := newBackend()
	f.scan = menu.ScanResult{QR: menu.QRInfo{Slug: "t5", TableNumber: 5, Location: "Terraza", BusinessID: "b-1"}}

	c := mounted(t, f, kvstore.NewMemory(), "/m/t5")
	snap := c.Snapshot()
	assert.Equal(t, 5, snap.Access.TableNumber)
	assert.Equal(t, "Terraza", snap.Access.Location)
	assert.Len(t, snap.Products, 3)
}

func TestCatalogFailureKeepsCartAndRetries(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	f := newBackend()

	first := mounted(t, f, kv, "/menu/burger-bar")
	require.NoError(t, first.AddProduct(ctx, 1, 2, ""))

	f.setCatalogErr(&backend.Error{Kind: backend.KindServer})
	c := menuview.New(menuview.Options{Backend: f, Store: kv})
	err := c.Mount(ctx, "/menu/burger-bar")
	require.Error(t, err)
	assert.True(t, errors.Is(err, menuview.ErrCatalog))

	snap := c.Snapshot()
	assert.Equal(t, "Error al cargar el menú", snap.Error)
	assert.True(t, snap.CanRetry)
	assert.Empty(t, snap.Redirect)
	assert.Equal(t, 2, c.ItemCount(), "restored cart survives a catalog failure")

	f.setCatalogErr(nil)
	require.NoError(t, c.Retry(ctx))
	snap = c.Snapshot()
	assert.Empty(t, snap.Error)
	assert.Len(t, snap.Products, 3)
	assert.Equal(t, 2, c.ItemCount())
}

func TestRetryBeforeMount(t *testing.T) {
	c := menuview.New(menuview.Options{Backend: newBackend()})
	assert.True(t, errors.Is(c.Retry(context.Background()), menuview.ErrNotMounted))
}

func TestStaleResolutionIsDiscarded(t *testing.T) {
	ctx := context.Background()
	f := newBackend()
	gate := make(chan struct{})
	f.gates["burger-bar"] = gate

	c := menuview.New(menuview.Options{Backend: f, Store: kvstore.NewMemory()})

	done := make(chan error, 1)
	go func() { done <- c.Mount(ctx, "/menu/burger-bar") }()

	// Wait until the first Mount has registered its route.
	require.Eventually(t, func() bool { return c.Route().Slug == "burger-bar" }, testTimeout, testTick)

	require.NoError(t, c.Mount(ctx, "/menu/pizza"))
	close(gate)

	assert.True(t, errors.Is(<-done, menuview.ErrStale))
	snap := c.Snapshot()
	assert.Equal(t, "pizza", snap.Slug)
	require.NotNil(t, snap.Business)
	assert.Equal(t, "Pizza", snap.Business.Name)
}

func TestFiltersAndCategoryDisplayOrder(t *testing.T) {
	c := mounted(t, newBackend(), nil, "/menu/burger-bar")

	c.SelectCategory(20)
	snap := c.Snapshot()
	assert.Len(t, snap.Products, 2)
	assert.False(t, snap.AllCategoriesActive)
	for _, cat := range snap.Categories {
		assert.Equal(t, cat.ID == 20, cat.Active)
	}

	c.Search("HAMBUR")
	require.Len(t, c.VisibleProducts(), 1)
	assert.Equal(t, int64(2), c.VisibleProducts()[0].ID)

	c.ClearSearch()
	c.SelectCategory(999)
	snap = c.Snapshot()
	assert.Empty(t, snap.Products)
	assert.True(t, snap.Empty)

	c.SelectCategory(catalog.AllCategories)
	c.Search("carne")
	assert.Len(t, c.VisibleProducts(), 1)
	assert.Equal(t, "Principales", c.CategoryName(20))
	assert.Equal(t, catalog.UncategorizedLabel, c.CategoryName(999))
}

func TestProductModalFlow(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	c := mounted(t, newBackend(), kv, "/menu/burger-bar")

	assert.True(t, errors.Is(c.AddToCart(ctx), menuview.ErrNoSelection))
	assert.True(t, errors.Is(c.OpenProduct(4), menuview.ErrUnknownProduct), "unavailable products cannot be opened")

	require.NoError(t, c.OpenProduct(1))
	c.DecrementSelected()
	c.IncrementSelected()
	c.IncrementSelected()
	c.DecrementSelected()
	c.SetNotes("  no onions ")

	snap := c.Snapshot()
	require.NotNil(t, snap.Selected)
	assert.Equal(t, 2, snap.Selected.Quantity)
	assert.Equal(t, "20,00 €", snap.Selected.Subtotal)

	require.NoError(t, c.AddToCart(ctx))
	assert.Nil(t, c.Snapshot().Selected, "modal closes after adding")

	require.NoError(t, c.AddProduct(ctx, 1, 1, "no onions"))
	items := c.CartItems()
	require.Len(t, items, 1, "trimmed notes merge")
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "no onions", items[0].Notes)
	assert.True(t, decimal.NewFromInt(30).Equal(c.CartTotal()))

	notices := c.DrainNotices()
	require.Len(t, notices, 2)
	assert.Equal(t, menuview.LevelSuccess, notices[0].Level)
	assert.Equal(t, "Burger agregado al carrito", notices[0].Message)
	assert.Empty(t, c.DrainNotices())

	raw, ok, err := kv.Get(ctx, cart.Key("burger-bar"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, `"quantity":3`)
}

func TestCartIntents(t *testing.T) {
	ctx := context.Background()
	c := mounted(t, newBackend(), kvstore.NewMemory(), "/menu/burger-bar")

	assert.False(t, c.ClearCart(ctx, true), "clearing an empty cart is a no-op")

	require.NoError(t, c.AddProduct(ctx, 1, 1, ""))
	require.NoError(t, c.AddProduct(ctx, 3, 2, ""))
	c.ChangeQuantity(ctx, 0, -1)
	assert.Equal(t, 3, c.ItemCount())
	c.ChangeQuantity(ctx, 0, 2)
	assert.Equal(t, 5, c.ItemCount())

	snap := c.Snapshot()
	require.Len(t, snap.Cart.Lines, 2)
	assert.Equal(t, "30,00 €", snap.Cart.Lines[0].LineTotal)
	assert.Equal(t, "42,00 €", snap.Cart.Total)

	c.RemoveLine(ctx, 0)
	assert.Equal(t, 2, c.ItemCount())

	assert.False(t, c.ClearCart(ctx, false), "unconfirmed clear is ignored")
	assert.Equal(t, 2, c.ItemCount())
	assert.True(t, c.ClearCart(ctx, true))
	assert.Zero(t, c.ItemCount())

	assert.True(t, c.ToggleCart())
	assert.True(t, c.Snapshot().Cart.Open)
	assert.False(t, c.ToggleCart())
	assert.True(t, c.ToggleCategoryFilter())
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	c := mounted(t, newBackend(), kvstore.NewMemory(), "/menu/burger-bar")
	c.DrainNotices()

	_, err := c.Checkout()
	assert.True(t, errors.Is(err, menuview.ErrEmptyCart))
	notices := c.DrainNotices()
	require.Len(t, notices, 1)
	assert.Equal(t, menuview.LevelWarning, notices[0].Level)

	require.NoError(t, c.AddProduct(ctx, 2, 2, ""))
	order, err := c.Checkout()
	require.NoError(t, err)
	assert.Equal(t, "burger-bar", order.BusinessSlug)
	assert.Equal(t, 2, order.ItemCount)
	assert.Equal(t, "25,98 €", order.TotalLabel)
	assert.Equal(t, 2, c.ItemCount(), "checkout hands over without clearing")
}

func TestCartRestoredPerBusinessSlug(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	f := newBackend()

	a := mounted(t, f, kv, "/menu/burger-bar")
	require.NoError(t, a.AddProduct(ctx, 1, 2, "no onions"))

	b := mounted(t, f, kv, "/menu/burger-bar")
	assert.Equal(t, 2, b.ItemCount())

	other := mounted(t, f, kv, "/menu/pizza")
	assert.Zero(t, other.ItemCount())
}

func TestShareInfo(t *testing.T) {
	c := mounted(t, newBackend(), nil, "/menu/burger-bar")
	s := c.ShareInfo("https://menugr.pro/menu/burger-bar")
	assert.Equal(t, "Burger Bar", s.Title)
	assert.Equal(t, "Mira el menú de Burger Bar", s.Text)

	empty := menuview.New(menuview.Options{Backend: newBackend()})
	assert.Equal(t, "Menú Digital", empty.ShareInfo("x").Title)
}
