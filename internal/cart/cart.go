// Package cart holds the visitor's in-progress order for one business.
//
// Lines merge when the product id and the notes are identical. Every mutation
// recomputes the total and writes the cart through a kvstore.Store under
// "cart_<slug>". Storage failures never reach the caller: the in-memory cart
// stays authoritative and the failure is logged and counted.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/menugr/menugr/internal/menu"
	"github.com/menugr/menugr/pkg/kvstore"
	"github.com/menugr/menugr/pkg/logger"
	"github.com/menugr/menugr/pkg/metrics"
)

// KeyPrefix prefixes the business slug in the storage key.
const KeyPrefix = "cart_"

// ErrInvalidQuantity is returned by Add for quantities below 1.
var ErrInvalidQuantity = errors.New("cart: quantity must be at least 1")

// Item is one cart line. Product is a snapshot taken when the line was added.
type Item struct {
	Product  menu.Product `json:"product"`
	Quantity int          `json:"quantity"`
	Notes    string       `json:"notes"`
}

// Total is the line total: base price times quantity.
func (it Item) Total() decimal.Decimal {
	return it.Product.BasePrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type document struct {
	Items []Item          `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// Key returns the storage key for slug.
func Key(slug string) string { return KeyPrefix + slug }

// Store is a cart bound to one storage backend. The zero value is not usable;
// call New.
type Store struct {
	mu    sync.Mutex
	kv    kvstore.Store
	slug  string
	items []Item
	total decimal.Decimal
}

// New returns an empty cart that persists into kv. kv may be nil, in which
// case the cart lives in memory only.
func New(kv kvstore.Store) *Store {
	return &Store{kv: kv, total: decimal.Zero}
}

// Slug is the business slug the cart is bound to, empty before Restore.
func (s *Store) Slug() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slug
}

// Add appends product or merges it into an existing line with the same
// product id and identical notes.
func (s *Store) Add(ctx context.Context, product menu.Product, quantity int, notes string) error {
	if quantity < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	op := "add"
	merged := false
	for i := range s.items {
		if s.items[i].Product.ID == product.ID && s.items[i].Notes == notes {
			s.items[i].Quantity += quantity
			merged = true
			op = "merge"
			break
		}
	}
	if !merged {
		s.items = append(s.items, Item{Product: product.Clone(), Quantity: quantity, Notes: notes})
	}
	metrics.CartMutations.WithLabelValues(op).Inc()
	s.commit(ctx)
	return nil
}

// UpdateQuantity adds delta to line i. Results below 1 and out-of-range
// indices are ignored.
func (s *Store) UpdateQuantity(ctx context.Context, i, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.items) {
		return
	}
	next := s.items[i].Quantity + delta
	if next < 1 {
		return
	}
	s.items[i].Quantity = next
	metrics.CartMutations.WithLabelValues("update").Inc()
	s.commit(ctx)
}

// Remove deletes line i. Out-of-range indices are ignored.
func (s *Store) Remove(ctx context.Context, i int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.items) {
		return
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	metrics.CartMutations.WithLabelValues("remove").Inc()
	s.commit(ctx)
}

// Clear empties the cart. Callers are responsible for asking the user first.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	metrics.CartMutations.WithLabelValues("clear").Inc()
	s.commit(ctx)
}

// Total is the sum of line totals.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Items returns a copy of the lines in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, len(s.items))
	for i, it := range s.items {
		out[i] = Item{Product: it.Product.Clone(), Quantity: it.Quantity, Notes: it.Notes}
	}
	return out
}

// ItemCount is the sum of quantities.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// LineTotal returns the total of line i, or zero when out of range.
func (s *Store) LineTotal(i int) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.items) {
		return decimal.Zero
	}
	return s.items[i].Total()
}

// IsEmpty reports whether the cart has no lines.
func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) == 0
}

// Restore binds the cart to slug and loads its persisted state. Missing,
// unreadable or invalid data yields an empty cart; no error is returned.
func (s *Store) Restore(ctx context.Context, slug string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slug = slug
	s.items = nil
	s.total = decimal.Zero

	if s.kv == nil {
		metrics.CartRestores.WithLabelValues("missing").Inc()
		return
	}

	log := logger.WithCtx(ctx).With("key", Key(slug))

	raw, ok, err := s.kv.Get(ctx, Key(slug))
	if err != nil {
		log.Warn("cart: restore failed, starting empty", "error", err)
		metrics.CartRestores.WithLabelValues("error").Inc()
		return
	}
	if !ok {
		metrics.CartRestores.WithLabelValues("missing").Inc()
		return
	}

	items, err := decode(raw)
	if err != nil {
		log.Warn("cart: discarding corrupt cart", "error", err)
		metrics.CartRestores.WithLabelValues("corrupt").Inc()
		return
	}

	s.items = items
	s.recompute()
	metrics.CartRestores.WithLabelValues("restored").Inc()
	log.Debug("cart: restored", "lines", len(items))
}

// Persist writes the current state. Failures are logged and counted only.
func (s *Store) Persist(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persist(ctx)
}

// MarshalJSON renders the persisted document shape.
func (s *Store) MarshalJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Marshal(s.document())
}

// commit recomputes the total and persists. Callers hold mu.
func (s *Store) commit(ctx context.Context) {
	s.recompute()
	s.persist(ctx)
}

func (s *Store) recompute() {
	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.Total())
	}
	s.total = total
}

func (s *Store) document() document {
	items := s.items
	if items == nil {
		items = []Item{}
	}
	return document{Items: items, Total: s.total}
}

func (s *Store) persist(ctx context.Context) {
	if s.kv == nil || s.slug == "" {
		return
	}
	log := logger.WithCtx(ctx).With("key", Key(s.slug))

	raw, err := json.Marshal(s.document())
	if err != nil {
		log.Warn("cart: encode failed", "error", err)
		metrics.CartPersistFailures.Inc()
		return
	}
	if err := s.kv.Set(ctx, Key(s.slug), string(raw)); err != nil {
		log.Warn("cart: persist failed, keeping in memory", "error", err)
		metrics.CartPersistFailures.Inc()
	}
}

func decode(raw string) ([]Item, error) {
	var doc document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	for i, it := range doc.Items {
		if it.Quantity < 1 {
			return nil, fmt.Errorf("line %d: quantity %d", i, it.Quantity)
		}
	}
	return doc.Items, nil
}
