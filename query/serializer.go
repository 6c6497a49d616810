package query

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/agubler/store/errors"
)

// DefaultSerializer renders queries in an RQL-like textual form suitable for
// a request query string:
//
//	eq(name,"ann")
//	and(gt(age,21),ne(city,"Berlin"))
//	sort(-age)
//	limit(10,20)
type DefaultSerializer struct{}

// Condition renders a field comparison, with the value JSON-encoded
func (DefaultSerializer) Condition(field string, op CompareOp, value any) (string, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", errors.WrapInvalid(err, "DefaultSerializer", "Condition", "encode value")
	}
	return string(op) + "(" + field + "," + string(encoded) + ")", nil
}

// Combine renders a logical combination of rendered parts
func (DefaultSerializer) Combine(op LogicalOp, parts []string) (string, error) {
	return string(op) + "(" + strings.Join(parts, ",") + ")", nil
}

// Sort renders sort fields as sort(+field) / sort(-field)
func (DefaultSerializer) Sort(fields []SortField) (string, error) {
	rendered := make([]string, len(fields))
	for i, f := range fields {
		prefix := "+"
		if f.Descending {
			prefix = "-"
		}
		rendered[i] = prefix + f.Field
	}
	return "sort(" + strings.Join(rendered, ",") + ")", nil
}

// Range renders a window as limit(count,start)
func (DefaultSerializer) Range(start, count int) (string, error) {
	return "limit(" + strconv.Itoa(count) + "," + strconv.Itoa(start) + ")", nil
}
