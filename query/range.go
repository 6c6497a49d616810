package query

// Range selects the window [Start, Start+Count) of a sequence, clamped to
// the available length. A Count of zero selects nothing.
type Range[T any] struct {
	Start int
	Count int
}

// NewRange builds a range query. Negative start or count clamp to zero.
func NewRange[T any](start, count int) Range[T] {
	if start < 0 {
		start = 0
	}
	if count < 0 {
		count = 0
	}
	return Range[T]{Start: start, Count: count}
}

// Apply returns a copy of the selected window
func (r Range[T]) Apply(items []T) []T {
	start := r.Start
	if start < 0 {
		start = 0
	}
	if start > len(items) {
		start = len(items)
	}
	count := r.Count
	if count < 0 {
		count = 0
	}
	end := start + count
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out
}

// Kind returns KindRange
func (r Range[T]) Kind() Kind {
	return KindRange
}

// Serialize renders the range through the serializer
func (r Range[T]) Serialize(s Serializer) (string, error) {
	return s.Range(r.Start, r.Count)
}
