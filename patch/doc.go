// Package patch implements the structural diff, apply and merge engine used
// for partial updates across the store hierarchy.
//
// # Document Model
//
// Patches operate on the JSON document projection of a value: nested
// map[string]any and []any containers over nil, bool, float64 and string
// leaves. Normalize projects any JSON-marshalable Go value into this model
// (and doubles as a deep copy); typed items round-trip through it when a
// store applies a patch.
//
// # Operations
//
// A Patch is an ordered sequence of path-addressed operations:
//
//	p := patch.New(
//	    patch.Set("address.city", "Berlin"),
//	    patch.Remove("nickname"),
//	)
//	updated, err := p.Apply(item) // pure: item is never mutated
//
// Paths are dot-separated property paths; array elements are addressed by
// decimal index segments ("tags.0").
//
// # Diff
//
// Diff computes the operations transforming one value into another:
//
//	p, _ := patch.Diff(oldItem, newItem)
//	restored, _ := p.Apply(oldItem) // structurally equal to newItem
//
// Object fields are compared recursively. Arrays are compared element-wise
// when lengths match and replaced wholesale when they differ, trading a
// larger operation for immunity to index-shift ambiguity.
//
// # Merge
//
// Applying patch a then patch b equals applying Merge(a, b): operations from
// b supersede a's operations on the same path, operations on disjoint paths
// concatenate in emission order.
package patch
