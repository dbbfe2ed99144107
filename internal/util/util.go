// Package util holds small generic helpers shared across packages.
package util

import (
	"sort"
)

// SortBy returns a copy of items sorted by less. Items that compare equal
// keep their original order.
func SortBy[E any](items []E, less func(l, r E) bool) []E {
	sorted := make([]E, len(items))
	copy(sorted, items)

	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})

	return sorted
}
