package query

// Kind discriminates the query variants
type Kind string

const (
	// KindFilter selects the items matching a predicate
	KindFilter Kind = "filter"
	// KindSort reorders items by a comparator
	KindSort Kind = "sort"
	// KindRange selects a contiguous window of items
	KindRange Kind = "range"
)

// Query is a pure, immutable transform over an ordered sequence of items.
// Apply never mutates its input and is deterministic for equal input and
// equal query parameters.
type Query[T any] interface {
	// Apply returns the transformed sequence. The input slice is never
	// modified; the result may alias it only when the transform is the
	// identity.
	Apply(items []T) []T

	// Kind returns the variant discriminant
	Kind() Kind

	// Serialize renders the query through the given serializer. Queries
	// built from opaque Go functions fail with ErrNotSerializable.
	Serialize(s Serializer) (string, error)
}

// Serializer renders structured queries to a string form, typically a
// request query string for a remote-backed storage primitive.
type Serializer interface {
	// Condition renders a single field comparison
	Condition(field string, op CompareOp, value any) (string, error)
	// Combine renders a logical combination of already-rendered parts
	Combine(op LogicalOp, parts []string) (string, error)
	// Sort renders an ordered list of sort fields
	Sort(fields []SortField) (string, error)
	// Range renders a window selection
	Range(start, count int) (string, error)
}

// CompareOp enumerates the structured filter comparison operators
type CompareOp string

const (
	OpEq       CompareOp = "eq"
	OpNe       CompareOp = "ne"
	OpGt       CompareOp = "gt"
	OpGte      CompareOp = "gte"
	OpLt       CompareOp = "lt"
	OpLte      CompareOp = "lte"
	OpIn       CompareOp = "in"
	OpContains CompareOp = "contains"
)

// LogicalOp enumerates the boolean combinators for compound filters
type LogicalOp string

const (
	OpAnd LogicalOp = "and"
	OpOr  LogicalOp = "or"
	OpNot LogicalOp = "not"
)

// SortField is one field of a sort order
type SortField struct {
	Field      string
	Descending bool
}

// Serialize renders a query with the default serializer
func Serialize[T any](q Query[T]) (string, error) {
	return q.Serialize(DefaultSerializer{})
}

// All renders a list of queries with the default serializer, joined by "&".
// An empty list renders to the empty string.
func All[T any](queries []Query[T]) (string, error) {
	out := ""
	for i, q := range queries {
		part, err := Serialize(q)
		if err != nil {
			return "", err
		}
		if i > 0 {
			out += "&"
		}
		out += part
	}
	return out, nil
}
