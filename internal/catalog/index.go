// Package catalog keeps the categories and products of the business being
// viewed and derives the filtered product list from the active category and
// search term.
//
// Inactive categories and unavailable products are dropped at Load time, so
// clearing filters can never bring them back. The index never fails: an
// unknown category id simply matches nothing.
package catalog

import (
	"strings"

	"github.com/menugr/menugr/internal/menu"
	"github.com/menugr/menugr/pkg/collection"
)

// AllCategories is the category filter that places no restriction.
// Backend category ids are positive, so zero is free to act as the sentinel.
const AllCategories int64 = 0

// UncategorizedLabel is returned by CategoryName for unknown ids.
const UncategorizedLabel = "Sin categoría"

// Index is the working set for one mounted menu view. It is not safe for
// concurrent use; the view controller serialises access.
type Index struct {
	categories []menu.Category
	products   []menu.Product

	activeCategory int64
	search         string
}

// New returns an empty index with no filters applied.
func New() *Index {
	return &Index{categories: []menu.Category{}, products: []menu.Product{}}
}

// Load replaces the working set. Categories are ordered by display order and
// products by sort order; ties keep their input order. Filters are kept.
func (x *Index) Load(categories []menu.Category, products []menu.Product) {
	active := collection.Filter(categories, func(c menu.Category) bool { return c.IsActive })
	x.categories = collection.SortStableBy(active, func(c menu.Category) int { return c.DisplayOrder })

	hidden := collection.KeyBy(
		collection.Filter(categories, func(c menu.Category) bool { return !c.IsActive }),
		func(c menu.Category) int64 { return c.ID },
	)
	available := collection.Filter(products, func(p menu.Product) bool {
		_, inHidden := hidden[p.CategoryID]
		return p.IsAvailable && !inHidden
	})
	x.products = collection.SortStableBy(available, func(p menu.Product) int { return p.SortOrder })
}

// FilterByCategory sets the active category. AllCategories clears it.
func (x *Index) FilterByCategory(id int64) { x.activeCategory = id }

// FilterBySearch sets the search term. Surrounding whitespace is ignored and
// an empty term clears the restriction.
func (x *Index) FilterBySearch(term string) { x.search = strings.TrimSpace(term) }

// ActiveCategory is the selected category, or AllCategories.
func (x *Index) ActiveCategory() int64 { return x.activeCategory }
// SearchTerm is the trimmed search term.
func (x *Index) SearchTerm() string    { return x.search }

// Categories returns the visible categories in render order.
func (x *Index) Categories() []menu.Category {
	return append([]menu.Category{}, x.categories...)
}

// Products returns every loaded product regardless of filters.
func (x *Index) Products() []menu.Product {
	return append([]menu.Product{}, x.products...)
}

// VisibleProducts returns the products matching both the category and the
// search filter, in sort order.
func (x *Index) VisibleProducts() []menu.Product {
	needle := strings.ToLower(x.search)
	return collection.Filter(x.products, func(p menu.Product) bool {
		if x.activeCategory != AllCategories && p.CategoryID != x.activeCategory {
			return false
		}
		return needle == "" || matches(p, needle)
	})
}

// ProductsByCategory narrows VisibleProducts to one category.
func (x *Index) ProductsByCategory(id int64) []menu.Product {
	return collection.Filter(x.VisibleProducts(), func(p menu.Product) bool { return p.CategoryID == id })
}

// Product looks up a loaded product by id.
func (x *Index) Product(id int64) (menu.Product, bool) {
	return collection.First(x.products, func(p menu.Product) bool { return p.ID == id })
}

// CategoryName returns the display name of a visible category.
func (x *Index) CategoryName(id int64) string {
	if c, ok := collection.First(x.categories, func(c menu.Category) bool { return c.ID == id }); ok {
		return c.Name
	}
	return UncategorizedLabel
}

// Len reports how many products were loaded.
func (x *Index) Len() int { return len(x.products) }

func matches(p menu.Product, needle string) bool {
	if strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle) {
		return true
	}
	return collection.Contains(p.Tags, func(tag string) bool {
		return strings.Contains(strings.ToLower(tag), needle)
	})
}
