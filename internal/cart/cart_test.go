package cart_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menugr/menugr/internal/cart"
	"github.com/menugr/menugr/internal/menu"
	"github.com/menugr/menugr/pkg/kvstore"
)

func product(id int64, name, price string) menu.Product {
	return menu.Product{
		ID:          id,
		Name:        name,
		BasePrice:   decimal.RequireFromString(price),
		IsAvailable: true,
		Tags:        []string{"house"},
	}
}

func restored(t *testing.T, kv kvstore.Store, slug string) *cart.Store {
	t.Helper()
	s := cart.New(kv)
	s.Restore(context.Background(), slug)
	return s
}

func TestAddMergesSameProductAndNotes(t *testing.T) {
	ctx := context.Background()
	s := restored(t, kvstore.NewMemory(), "burger-bar")
	burger := product(1, "Burger", "10.00")

	require.NoError(t, s.Add(ctx, burger, 2, "no onions"))
	require.NoError(t, s.Add(ctx, burger, 1, "no onions"))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(30).Equal(s.Total()), "got %s", s.Total())
	assert.Equal(t, 3, s.ItemCount())
}

func TestAddDifferentNotesMakesNewLine(t *testing.T) {
	ctx := context.Background()
	s := restored(t, kvstore.NewMemory(), "demo")
	burger := product(1, "Burger", "10.00")

	require.NoError(t, s.Add(ctx, burger, 1, "no onions"))
	require.NoError(t, s.Add(ctx, burger, 1, "no onions "))
	require.NoError(t, s.Add(ctx, burger, 1, ""))

	assert.Len(t, s.Items(), 3, "notes are compared exactly")
	assert.True(t, decimal.NewFromInt(30).Equal(s.Total()))
}

func TestAddRejectsQuantityBelowOne(t *testing.T) {
	s := restored(t, kvstore.NewMemory(), "demo")

	err := s.Add(context.Background(), product(1, "Burger", "10"), 0, "")
	assert.True(t, errors.Is(err, cart.ErrInvalidQuantity))
	assert.True(t, s.IsEmpty())
}

func TestAddSnapshotsProduct(t *testing.T) {
	s := restored(t, kvstore.NewMemory(), "demo")
	p := product(1, "Burger", "10")
	require.NoError(t, s.Add(context.Background(), p, 1, ""))

	p.Tags[0] = "mutated"
	assert.Equal(t, "house", s.Items()[0].Product.Tags[0])
}

func TestUpdateQuantityFloor(t *testing.T) {
	ctx := context.Background()
	s := restored(t, kvstore.NewMemory(), "demo")
	require.NoError(t, s.Add(ctx, product(1, "Burger", "10"), 1, ""))

	s.UpdateQuantity(ctx, 0, -1)
	assert.Equal(t, 1, s.Items()[0].Quantity, "quantity never drops below 1")

	s.UpdateQuantity(ctx, 0, 4)
	assert.Equal(t, 5, s.Items()[0].Quantity)
	assert.True(t, decimal.NewFromInt(50).Equal(s.Total()))

	s.UpdateQuantity(ctx, 7, 1)
	s.UpdateQuantity(ctx, -1, 1)
	assert.Equal(t, 5, s.ItemCount())
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	s := restored(t, kvstore.NewMemory(), "demo")
	require.NoError(t, s.Add(ctx, product(1, "Burger", "10"), 1, ""))
	require.NoError(t, s.Add(ctx, product(2, "Fries", "3.50"), 2, ""))

	s.Remove(ctx, 5)
	assert.Len(t, s.Items(), 2)

	s.Remove(ctx, 0)
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Fries", items[0].Product.Name)
	assert.True(t, decimal.RequireFromString("7").Equal(s.Total()))
	assert.True(t, decimal.RequireFromString("7").Equal(s.LineTotal(0)))
	assert.True(t, decimal.Zero.Equal(s.LineTotal(3)))

	s.Clear(ctx)
	assert.True(t, s.IsEmpty())
	assert.True(t, decimal.Zero.Equal(s.Total()))
}

func TestPersistAndRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	s := restored(t, kv, "burger-bar")
	require.NoError(t, s.Add(ctx, product(1, "Burger", "10.00"), 2, "no onions"))

	raw, ok, err := kv.Get(ctx, "cart_burger-bar")
	require.NoError(t, err)
	require.True(t, ok)

	var doc struct {
		Items []struct {
			Quantity int    `json:"quantity"`
			Notes    string `json:"notes"`
		} `json:"items"`
		Total string `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	require.Len(t, doc.Items, 1)
	assert.Equal(t, 2, doc.Items[0].Quantity)
	assert.Equal(t, "no onions", doc.Items[0].Notes)
	assert.Equal(t, "20", doc.Total)

	again := restored(t, kv, "burger-bar")
	got := again.Items()
	require.Len(t, got, 1)
	assert.Equal(t, "Burger", got[0].Product.Name)
	assert.Equal(t, 2, got[0].Quantity)
	assert.Equal(t, "no onions", got[0].Notes)
	assert.True(t, decimal.NewFromInt(20).Equal(again.Total()))

	other := restored(t, kv, "pizza-place")
	assert.True(t, other.IsEmpty(), "carts are scoped per slug")
}

func TestRestoreCorruptDataYieldsEmptyCart(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	require.NoError(t, kv.Set(ctx, "cart_x", "{not json"))

	s := restored(t, kv, "x")
	assert.True(t, s.IsEmpty())
	assert.True(t, decimal.Zero.Equal(s.Total()))
}

func TestRestoreRejectsInvalidQuantity(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	require.NoError(t, kv.Set(ctx, "cart_x",
		`{"items":[{"product":{"id":1,"name":"A","base_price":"5"},"quantity":0,"notes":""}],"total":"0"}`))

	s := restored(t, kv, "x")
	assert.True(t, s.IsEmpty())
}

func TestRestoreRecomputesTotal(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	require.NoError(t, kv.Set(ctx, "cart_x",
		`{"items":[{"product":{"id":1,"name":"A","base_price":"5"},"quantity":3,"notes":""}],"total":"999"}`))

	s := restored(t, kv, "x")
	assert.True(t, decimal.NewFromInt(15).Equal(s.Total()), "stored totals are not trusted")
}

type failingStore struct{ kvstore.Store }

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("quota exceeded")
}

func (failingStore) Set(context.Context, string, string) error {
	return errors.New("quota exceeded")
}

func TestPersistFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	s := restored(t, failingStore{}, "demo")

	require.NoError(t, s.Add(ctx, product(1, "Burger", "10"), 1, ""))
	assert.Equal(t, 1, s.ItemCount())
	s.Persist(ctx)
	assert.True(t, decimal.NewFromInt(10).Equal(s.Total()))
}

func TestNilStoreIsMemoryOnly(t *testing.T) {
	s := restored(t, nil, "demo")
	require.NoError(t, s.Add(context.Background(), product(1, "Burger", "10"), 1, ""))
	assert.Equal(t, "demo", s.Slug())
	assert.Equal(t, 1, s.ItemCount())
}
