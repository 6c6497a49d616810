package patch

import (
	"encoding/json"
	"reflect"
	"sort"
	"strconv"

	"github.com/agubler/store/errors"
)

// Normalize projects an arbitrary Go value into the document model: nested
// map[string]any / []any containers over nil, bool, float64 and string
// leaves. Values already in the model pass through a JSON round-trip as well,
// which doubles as a deep copy.
func Normalize(v any) (any, error) {
	switch v.(type) {
	case nil, bool, float64, string:
		return v, nil
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Patch", "Normalize", "encode value")
	}
	var doc any
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return nil, errors.WrapInvalid(err, "Patch", "Normalize", "decode value")
	}
	return doc, nil
}

// Equal reports whether two values are structurally equal under the document
// model. Values that cannot be normalized are never equal.
func Equal(a, b any) bool {
	docA, errA := Normalize(a)
	docB, errB := Normalize(b)
	if errA != nil || errB != nil {
		return false
	}
	return reflect.DeepEqual(docA, docB)
}

// Diff computes the ordered set of path operations transforming old into
// new, such that Diff(old, new).Apply(old) is structurally equal to new.
// Object fields are compared recursively with removals emitted before sets
// at each level, keys in sorted order. Arrays are compared element-wise when
// their lengths match and replaced wholesale otherwise.
func Diff(oldV, newV any) (*Patch, error) {
	oldDoc, err := Normalize(oldV)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Patch", "Diff", "normalize old value")
	}
	newDoc, err := Normalize(newV)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Patch", "Diff", "normalize new value")
	}

	var ops []Operation
	diffValue(nil, oldDoc, newDoc, &ops)
	return &Patch{ops: ops}, nil
}

// diffValue appends the operations needed to turn oldDoc into newDoc at path
func diffValue(path Path, oldDoc, newDoc any, ops *[]Operation) {
	if reflect.DeepEqual(oldDoc, newDoc) {
		return
	}

	oldMap, oldIsMap := oldDoc.(map[string]any)
	newMap, newIsMap := newDoc.(map[string]any)
	if oldIsMap && newIsMap {
		diffObject(path, oldMap, newMap, ops)
		return
	}

	oldArr, oldIsArr := oldDoc.([]any)
	newArr, newIsArr := newDoc.([]any)
	if oldIsArr && newIsArr && len(oldArr) == len(newArr) {
		for i := range oldArr {
			diffValue(child(path, strconv.Itoa(i)), oldArr[i], newArr[i], ops)
		}
		return
	}

	// Type change, scalar change or array length change: replace the value
	*ops = append(*ops, Operation{Kind: OpSet, Path: clonePath(path), Value: newDoc})
}

// diffObject diffs two objects field by field, removals first, keys sorted
// for deterministic emission order
func diffObject(path Path, oldMap, newMap map[string]any, ops *[]Operation) {
	removed := make([]string, 0)
	changed := make([]string, 0)
	for k := range oldMap {
		if _, ok := newMap[k]; !ok {
			removed = append(removed, k)
		}
	}
	for k := range newMap {
		changed = append(changed, k)
	}
	sort.Strings(removed)
	sort.Strings(changed)

	for _, k := range removed {
		*ops = append(*ops, Operation{Kind: OpRemove, Path: child(path, k)})
	}
	for _, k := range changed {
		oldChild, existed := oldMap[k]
		if !existed {
			*ops = append(*ops, Operation{Kind: OpSet, Path: child(path, k), Value: newMap[k]})
			continue
		}
		diffValue(child(path, k), oldChild, newMap[k], ops)
	}
}

func child(path Path, segment string) Path {
	out := make(Path, len(path)+1)
	copy(out, path)
	out[len(path)] = segment
	return out
}

func clonePath(path Path) Path {
	out := make(Path, len(path))
	copy(out, path)
	return out
}
