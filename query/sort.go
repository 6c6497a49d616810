package query

import (
	"sort"

	"github.com/agubler/store/errors"
)

// Sort reorders items by a property path or a raw comparator. Sorting is
// stable; missing or null values order before defined ones; the descending
// flag negates the comparator's sign without altering tie-breaking.
type Sort[T any] struct {
	field      string
	descending bool
	cmp        func(a, b T) int
}

// SortBy builds a structured sort over a dot-separated property path
func SortBy[T any](field string, descending bool) Sort[T] {
	return Sort[T]{field: field, descending: descending}
}

// SortWith builds an opaque sort from a raw comparator. The resulting sort
// is not serializable.
func SortWith[T any](cmp func(a, b T) int, descending bool) Sort[T] {
	return Sort[T]{cmp: cmp, descending: descending}
}

// Compare orders two items per the sort's parameters, returning -1, 0 or 1
func (s Sort[T]) Compare(a, b T) int {
	var c int
	if s.cmp != nil {
		c = sign(s.cmp(a, b))
	} else {
		c = compareValues(fieldValue(a, s.field), fieldValue(b, s.field))
	}
	if s.descending {
		return -c
	}
	return c
}

// Apply returns a sorted copy of the items. The sort is stable, so chaining
// sorts makes the later sort primary and earlier order the tie-break.
func (s Sort[T]) Apply(items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return s.Compare(out[i], out[j]) < 0
	})
	return out
}

// Kind returns KindSort
func (s Sort[T]) Kind() Kind {
	return KindSort
}

// Serialize renders the sort through the serializer. Sorts built from a raw
// comparator fail with ErrNotSerializable.
func (s Sort[T]) Serialize(ser Serializer) (string, error) {
	if s.cmp != nil {
		return "", errors.WrapInvalid(errors.ErrNotSerializable, "Sort", "Serialize",
			"render opaque comparator")
	}
	return ser.Sort([]SortField{{Field: s.field, Descending: s.descending}})
}
