// Package reconcile computes the delta between a server-side product list and
// a desired one. Used by the wishlist proxy to merge a guest list into the
// customer's list: fetch current state, diff, and execute only the necessary
// mutations.
package reconcile

// Product identifies a product in a list. VariationID is 0 for simple products.
type Product struct {
	ProductID   int `json:"product_id"`
	VariationID int `json:"variation_id,omitempty"`
}

// Entry is a product as currently stored upstream.
type Entry struct {
	Product
	ItemID int // upstream row id, needed for removal
}

// ProductDiff describes the mutations needed to reconcile a list.
// Apply removals before additions.
type ProductDiff struct {
	ToAdd    []Product // in desired but not current
	ToRemove []Entry   // in current but not desired
}

// IsEmpty returns true if no changes are needed.
func (d *ProductDiff) IsEmpty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// DiffProducts computes the delta between current and desired.
// Matching is by product and variation. Invalid ids are ignored, duplicates
// collapse, and results keep input order.
func DiffProducts(current []Entry, desired []Product) *ProductDiff {
	diff := &ProductDiff{}

	currentSet := make(map[Product]bool, len(current))
	for _, e := range current {
		if e.ProductID > 0 {
			currentSet[e.Product] = true
		}
	}

	desiredSet := make(map[Product]bool, len(desired))
	for _, p := range desired {
		if p.ProductID <= 0 || desiredSet[p] {
			continue
		}
		desiredSet[p] = true
		if !currentSet[p] {
			diff.ToAdd = append(diff.ToAdd, p)
		}
	}

	seen := make(map[Product]bool, len(current))
	for _, e := range current {
		if e.ProductID <= 0 || seen[e.Product] {
			continue
		}
		seen[e.Product] = true
		if !desiredSet[e.Product] {
			diff.ToRemove = append(diff.ToRemove, e)
		}
	}

	return diff
}

// Merge returns the products of desired missing from current. It never removes,
// so merging is safe to repeat: a second merge of the same lists is empty.
func Merge(current []Entry, desired []Product) []Product {
	return DiffProducts(current, desired).ToAdd
}
