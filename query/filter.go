package query

import (
	"strings"

	"github.com/agubler/store/errors"
	"github.com/agubler/store/patch"
)

// Filter selects the items matching a predicate. Structured filters are
// built from field conditions combined with And/Or/Not and serialize to a
// query string; opaque filters wrap an arbitrary Go function and do not.
type Filter[T any] struct {
	node filterNode[T]
}

// filterNode is the tagged predicate tree
type filterNode[T any] interface {
	test(item T) bool
	serialize(s Serializer) (string, error)
}

// Match builds a structured single-condition filter over a dot-separated
// property path. The comparison value is projected into the document model
// at construction time.
func Match[T any](field string, op CompareOp, value any) Filter[T] {
	normalized, err := patch.Normalize(value)
	if err != nil {
		// An unprojectable comparison value can never match anything
		return Filter[T]{node: neverNode[T]{}}
	}
	return Filter[T]{node: conditionNode[T]{field: field, op: op, value: normalized}}
}

// Eq is shorthand for Match(field, OpEq, value)
func Eq[T any](field string, value any) Filter[T] {
	return Match[T](field, OpEq, value)
}

// Custom builds an opaque filter from a Go predicate. The resulting filter
// is not serializable.
func Custom[T any](test func(T) bool) Filter[T] {
	return Filter[T]{node: customNode[T]{fn: test}}
}

// And combines this filter with others; all must match
func (f Filter[T]) And(others ...Filter[T]) Filter[T] {
	return combine(OpAnd, f, others)
}

// Or combines this filter with others; at least one must match
func (f Filter[T]) Or(others ...Filter[T]) Filter[T] {
	return combine(OpOr, f, others)
}

// Not negates a filter
func Not[T any](f Filter[T]) Filter[T] {
	return Filter[T]{node: logicalNode[T]{op: OpNot, children: []filterNode[T]{f.node}}}
}

func combine[T any](op LogicalOp, first Filter[T], rest []Filter[T]) Filter[T] {
	children := make([]filterNode[T], 0, len(rest)+1)
	children = append(children, first.node)
	for _, f := range rest {
		children = append(children, f.node)
	}
	return Filter[T]{node: logicalNode[T]{op: op, children: children}}
}

// Test reports whether a single item matches the filter
func (f Filter[T]) Test(item T) bool {
	if f.node == nil {
		return true
	}
	return f.node.test(item)
}

// Apply returns the items matching the filter, preserving input order
func (f Filter[T]) Apply(items []T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if f.Test(item) {
			out = append(out, item)
		}
	}
	return out
}

// Kind returns KindFilter
func (f Filter[T]) Kind() Kind {
	return KindFilter
}

// Serialize renders the filter through the serializer. Filters containing an
// opaque predicate fail with ErrNotSerializable.
func (f Filter[T]) Serialize(s Serializer) (string, error) {
	if f.node == nil {
		return "", nil
	}
	return f.node.serialize(s)
}

// conditionNode is a single structured field comparison
type conditionNode[T any] struct {
	field string
	op    CompareOp
	value any
}

func (n conditionNode[T]) test(item T) bool {
	actual := fieldValue(item, n.field)

	switch n.op {
	case OpEq:
		return equalValues(actual, n.value)
	case OpNe:
		return !equalValues(actual, n.value)
	case OpGt, OpGte, OpLt, OpLte:
		if actual == nil || typeRank(actual) != typeRank(n.value) {
			return false
		}
		c := compareValues(actual, n.value)
		switch n.op {
		case OpGt:
			return c > 0
		case OpGte:
			return c >= 0
		case OpLt:
			return c < 0
		default:
			return c <= 0
		}
	case OpIn:
		candidates, ok := n.value.([]any)
		if !ok {
			return false
		}
		for _, candidate := range candidates {
			if equalValues(actual, candidate) {
				return true
			}
		}
		return false
	case OpContains:
		if arr, ok := actual.([]any); ok {
			for _, element := range arr {
				if equalValues(element, n.value) {
					return true
				}
			}
			return false
		}
		if str, ok := actual.(string); ok {
			substr, ok := n.value.(string)
			return ok && strings.Contains(str, substr)
		}
		return false
	default:
		return false
	}
}

func (n conditionNode[T]) serialize(s Serializer) (string, error) {
	return s.Condition(n.field, n.op, n.value)
}

// logicalNode combines child predicates with a boolean operator
type logicalNode[T any] struct {
	op       LogicalOp
	children []filterNode[T]
}

func (n logicalNode[T]) test(item T) bool {
	switch n.op {
	case OpAnd:
		for _, child := range n.children {
			if !child.test(item) {
				return false
			}
		}
		return true
	case OpOr:
		for _, child := range n.children {
			if child.test(item) {
				return true
			}
		}
		return false
	case OpNot:
		return len(n.children) == 1 && !n.children[0].test(item)
	default:
		return false
	}
}

func (n logicalNode[T]) serialize(s Serializer) (string, error) {
	parts := make([]string, len(n.children))
	for i, child := range n.children {
		part, err := child.serialize(s)
		if err != nil {
			return "", err
		}
		parts[i] = part
	}
	return s.Combine(n.op, parts)
}

// customNode wraps an opaque Go predicate
type customNode[T any] struct {
	fn func(T) bool
}

func (n customNode[T]) test(item T) bool {
	return n.fn != nil && n.fn(item)
}

func (n customNode[T]) serialize(Serializer) (string, error) {
	return "", errors.WrapInvalid(errors.ErrNotSerializable, "Filter", "Serialize",
		"render opaque predicate")
}

// neverNode matches nothing; produced when a comparison value cannot be
// projected into the document model
type neverNode[T any] struct{}

func (neverNode[T]) test(T) bool { return false }

func (neverNode[T]) serialize(Serializer) (string, error) {
	return "", errors.WrapInvalid(errors.ErrInvalidQuery, "Filter", "Serialize",
		"render unprojectable condition")
}
