package query

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/agubler/store/patch"
)

// fieldValue resolves a dot-separated property path against the document
// projection of an item. A missing path or an unprojectable item resolves to
// nil, which filters treat as "no value" and sorts order first.
func fieldValue[T any](item T, field string) any {
	doc, err := patch.Normalize(item)
	if err != nil {
		return nil
	}
	return lookupPath(doc, strings.Split(field, "."))
}

func lookupPath(doc any, path []string) any {
	current := doc
	for _, segment := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = obj[segment]
		if !ok {
			return nil
		}
	}
	return current
}

// typeRank imposes a deterministic total order across document value types:
// null < bool < number < string < array < object.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	case []any:
		return 4
	default:
		return 5
	}
}

// compareValues orders two document values, returning -1, 0 or 1. Values of
// different types order by type rank; nil (missing) orders before everything.
func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return sign(ra - rb)
	}
	switch va := a.(type) {
	case nil:
		return 0
	case bool:
		vb := b.(bool)
		switch {
		case va == vb:
			return 0
		case !va:
			return -1
		default:
			return 1
		}
	case float64:
		vb := b.(float64)
		switch {
		case va < vb:
			return -1
		case va > vb:
			return 1
		default:
			return 0
		}
	case string:
		return sign(strings.Compare(va, b.(string)))
	case []any:
		vb := b.([]any)
		for i := 0; i < len(va) && i < len(vb); i++ {
			if c := compareValues(va[i], vb[i]); c != 0 {
				return c
			}
		}
		return sign(len(va) - len(vb))
	default:
		// Objects have no intrinsic order; fall back to the canonical JSON
		// rendering (sorted keys) to keep the comparator symmetric
		if patch.Equal(a, b) {
			return 0
		}
		ja, _ := json.Marshal(a)
		jb, _ := json.Marshal(b)
		return sign(bytes.Compare(ja, jb))
	}
}

// equalValues reports document-model equality of two values
func equalValues(a, b any) bool {
	if typeRank(a) != typeRank(b) {
		return false
	}
	switch typeRank(a) {
	case 4, 5:
		return patch.Equal(a, b)
	default:
		return compareValues(a, b) == 0
	}
}

func sign(i int) int {
	switch {
	case i < 0:
		return -1
	case i > 0:
		return 1
	default:
		return 0
	}
}
