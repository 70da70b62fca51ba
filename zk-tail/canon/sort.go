// Package canon puts side-effect arrays into the order the tail circuit
// expects and computes the hints that let the circuit find linked entries
// without searching.
package canon

import (
	"slices"

	"github.com/kysee/zkp-tail/zk-tail/types"
	"github.com/pkg/errors"
)

// Sortable is an element of a canonicalized array.
type Sortable interface {
	SortKey() types.Fr
	IsEmpty() bool
}

// less reports whether a sorts before b: ascending by key, empty entries last.
func less[T Sortable](a, b T) int {
	ae, be := a.IsEmpty(), b.IsEmpty()
	switch {
	case ae && be:
		return 0
	case ae:
		return 1
	case be:
		return -1
	}
	return a.SortKey().Cmp(b.SortKey())
}

// Canonicalize returns items sorted into canonical order, padded with empty
// entries up to capacity, and perm such that items[i] == sorted[perm[i]].
// Equal keys keep their original relative order. items is not modified.
func Canonicalize[T Sortable](items []T, capacity int) ([]T, []uint32, error) {
	if len(items) > capacity {
		return nil, nil, errors.Wrapf(types.ErrCapacityExceeded, "%d items for capacity %d", len(items), capacity)
	}
	used := 0
	for _, item := range items {
		if !item.IsEmpty() {
			used++
		}
	}
	if used > capacity {
		return nil, nil, errors.Wrapf(types.ErrCapacityExceeded, "%d non-empty items for capacity %d", used, capacity)
	}

	padded := make([]T, capacity)
	copy(padded, items)

	// order[k] is the original position of the k-th sorted element
	order := make([]int, capacity)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return less(padded[a], padded[b])
	})

	sorted := make([]T, capacity)
	perm := make([]uint32, capacity)
	for k, i := range order {
		sorted[k] = padded[i]
		perm[i] = uint32(k)
	}
	return sorted, perm, nil
}

// IsCanonical reports whether sorted is in canonical order.
func IsCanonical[T Sortable](sorted []T) bool {
	return slices.IsSortedFunc(sorted, less[T])
}

// IsPermutation reports whether perm is a permutation of [0, len(perm)).
func IsPermutation(perm []uint32) bool {
	seen := make([]bool, len(perm))
	for _, p := range perm {
		if int(p) >= len(perm) || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}
