package patch

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/agubler/store/errors"
)

// OpKind identifies the kind of a patch operation
type OpKind string

const (
	// OpSet writes a value at a path, creating intermediate objects as needed
	OpSet OpKind = "set"
	// OpRemove deletes the value at a path
	OpRemove OpKind = "remove"
)

// Path addresses a location inside the document model as an ordered list of
// segments. Object fields are named segments, array elements are decimal
// index segments.
type Path []string

// ParsePath splits a dot-separated property path ("address.city", "tags.0")
// into its segments.
func ParsePath(path string) Path {
	if path == "" {
		return Path{}
	}
	return Path(strings.Split(path, "."))
}

// String renders the path in its dot-separated form
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Equal reports whether two paths address the same location
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// index interprets a segment as an array index
func index(segment string) (int, bool) {
	i, err := strconv.Atoi(segment)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// Operation is a single path-addressed patch operation. Value is only
// meaningful for OpSet and always holds a normalized document value.
type Operation struct {
	Kind  OpKind
	Path  Path
	Value any
}

// Set builds a set operation for a dot-separated property path
func Set(path string, value any) Operation {
	normalized, err := Normalize(value)
	if err != nil {
		// Unrepresentable values degrade to null rather than panicking;
		// Diff never produces them, only hand-built operations can.
		normalized = nil
	}
	return Operation{Kind: OpSet, Path: ParsePath(path), Value: normalized}
}

// Remove builds a remove operation for a dot-separated property path
func Remove(path string) Operation {
	return Operation{Kind: OpRemove, Path: ParsePath(path)}
}

// String renders the operation in a compact textual form
func (o Operation) String() string {
	switch o.Kind {
	case OpSet:
		encoded, err := json.Marshal(o.Value)
		if err != nil {
			encoded = []byte("null")
		}
		return "set(" + o.Path.String() + "," + string(encoded) + ")"
	case OpRemove:
		return "remove(" + o.Path.String() + ")"
	default:
		return string(o.Kind) + "(" + o.Path.String() + ")"
	}
}

// Patch is an ordered sequence of path-addressed operations transforming one
// document into another. Patches are immutable once built; Apply never
// mutates its input.
type Patch struct {
	ops []Operation
}

// New builds a patch from the given operations, in order
func New(ops ...Operation) *Patch {
	copied := make([]Operation, len(ops))
	copy(copied, ops)
	return &Patch{ops: copied}
}

// Operations returns a copy of the patch's operations in emission order
func (p *Patch) Operations() []Operation {
	if p == nil {
		return nil
	}
	out := make([]Operation, len(p.ops))
	copy(out, p.ops)
	return out
}

// Len returns the number of operations in the patch
func (p *Patch) Len() int {
	if p == nil {
		return 0
	}
	return len(p.ops)
}

// IsEmpty reports whether the patch contains no operations
func (p *Patch) IsEmpty() bool {
	return p.Len() == 0
}

// String renders the patch as its operations joined by ";"
func (p *Patch) String() string {
	if p == nil || len(p.ops) == 0 {
		return ""
	}
	parts := make([]string, len(p.ops))
	for i, op := range p.ops {
		parts[i] = op.String()
	}
	return strings.Join(parts, ";")
}

// Merge combines two patches into one. Applying a then b is equivalent to
// applying Merge(a, b): operations from b supersede operations from a on the
// same path, and operations on disjoint paths concatenate in emission order.
func Merge(a, b *Patch) *Patch {
	if a.IsEmpty() {
		return New(b.Operations()...)
	}
	if b.IsEmpty() {
		return New(a.Operations()...)
	}

	superseded := make(map[string]bool, b.Len())
	for _, op := range b.ops {
		superseded[op.Path.String()] = true
	}

	merged := make([]Operation, 0, len(a.ops)+len(b.ops))
	for _, op := range a.ops {
		if !superseded[op.Path.String()] {
			merged = append(merged, op)
		}
	}
	merged = append(merged, b.ops...)
	return &Patch{ops: merged}
}

// Apply produces a new document with the patch's operations applied in
// order. The input is normalized into the document model first and never
// mutated.
func (p *Patch) Apply(v any) (any, error) {
	doc, err := Normalize(v)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Patch", "Apply", "normalize input")
	}
	if p == nil {
		return doc, nil
	}
	for _, op := range p.ops {
		doc, err = applyOp(doc, op)
		if err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// applyOp applies a single operation, returning the (possibly replaced) root
func applyOp(doc any, op Operation) (any, error) {
	if len(op.Path) == 0 {
		// Root-level set replaces the whole document; root-level remove
		// empties it.
		if op.Kind == OpSet {
			return op.Value, nil
		}
		return nil, nil
	}
	return applyAt(doc, op.Path, op)
}

// applyAt walks the path recursively and performs the operation at the leaf
func applyAt(doc any, path Path, op Operation) (any, error) {
	segment := path[0]
	last := len(path) == 1

	switch container := doc.(type) {
	case map[string]any:
		out := make(map[string]any, len(container)+1)
		for k, v := range container {
			out[k] = v
		}
		if last {
			if op.Kind == OpRemove {
				delete(out, segment)
			} else {
				out[segment] = op.Value
			}
			return out, nil
		}
		child, ok := out[segment]
		if !ok {
			if op.Kind == OpRemove {
				// Removing below a missing branch is a no-op
				return container, nil
			}
			child = map[string]any{}
		}
		updated, err := applyAt(child, path[1:], op)
		if err != nil {
			return nil, err
		}
		out[segment] = updated
		return out, nil

	case []any:
		i, ok := index(segment)
		if !ok {
			return nil, errors.WrapInvalid(errors.ErrInvalidPath, "Patch", "Apply",
				"non-numeric segment "+segment+" for array")
		}
		if last && op.Kind == OpSet && i == len(container) {
			// Appending one past the end grows the array
			out := make([]any, len(container)+1)
			copy(out, container)
			out[i] = op.Value
			return out, nil
		}
		if i >= len(container) {
			if op.Kind == OpRemove {
				return container, nil
			}
			return nil, errors.WrapInvalid(errors.ErrInvalidPath, "Patch", "Apply",
				"index "+segment+" out of bounds")
		}
		if last {
			if op.Kind == OpRemove {
				out := make([]any, 0, len(container)-1)
				out = append(out, container[:i]...)
				out = append(out, container[i+1:]...)
				return out, nil
			}
			out := make([]any, len(container))
			copy(out, container)
			out[i] = op.Value
			return out, nil
		}
		updated, err := applyAt(container[i], path[1:], op)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(container))
		copy(out, container)
		out[i] = updated
		return out, nil

	default:
		if op.Kind == OpRemove {
			// Removing below a scalar is a no-op
			return doc, nil
		}
		// Setting below a scalar replaces it with a fresh object branch
		return applyAt(map[string]any{}, path, op)
	}
}
