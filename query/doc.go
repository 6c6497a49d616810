// Package query implements the composable query algebra over ordered item
// sequences: Filter, Sort and Range.
//
// # Queries
//
// Every query is an immutable value with a pure Apply transform:
//
//	adults := query.Match[Person]("age", query.OpGte, 18)
//	byAge := query.SortBy[Person]("age", false)
//	firstPage := query.NewRange[Person](0, 10)
//
//	page := firstPage.Apply(byAge.Apply(adults.Apply(people)))
//
// A derived store view accumulates queries and applies them left-to-right on
// every cache-miss recomputation; composition is associative in effect, so
// chaining view derivations equals applying the queries in sequence.
//
// # Structured vs Opaque
//
// Structured filters (field conditions combined with And/Or/Not) and sorts
// (property path + descending flag) serialize to an RQL-like query string
// through a Serializer, which remote-backed storage primitives use to build
// requests:
//
//	s, _ := query.Serialize(query.Eq[Person]("name", "ann").And(
//	    query.Match[Person]("age", query.OpGt, 21),
//	)) // and(eq(name,"ann"),gt(age,21))
//
// Opaque variants wrap arbitrary Go functions and always fail serialization
// with errors.ErrNotSerializable:
//
//	local := query.Custom(func(p Person) bool { return p.Age%2 == 0 })
//	_, err := query.Serialize(local) // ErrNotSerializable
//
// # Ordering Semantics
//
// Sorts are stable. Missing and null values order before defined values.
// The descending flag negates the comparator's sign without altering
// tie-breaking, so multi-key orders are built by chaining sorts with the
// most significant key applied last.
package query
