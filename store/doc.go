// Package store provides a versioned, queryable, in-process collection
// store with derived views, live update propagation and transactional
// batching.
//
// A root store executes mutations against a Storage primitive (Memory by
// default) and maintains an incrementally updated cache of the ordered
// data. Views derived with Filter, Sort and Range share the root's data
// and recompute their query pipelines lazily on Fetch. Tracked views go
// further: they subscribe to the root's mutation events, maintain a local
// mirror of the source data and never refetch from storage.
//
//	mem, _ := store.NewMemory(func(p Person) string { return p.ID })
//	root, _ := store.New[Person](mem, store.WithName[Person]("people"))
//	adults := root.Filter(query.Match[Person]("age", query.OpGte, 18)).SortBy("name", false)
//	live, _ := adults.Track(ctx)
//
// Every mutation produces typed events (Added, Updated, Deleted, Batch)
// carrying the item's position and, for updates, a lazily computed
// structural diff. Subscribers run synchronously inside the mutation call
// in registration order and must not mutate the store from their handler.
//
// Statistics are always collected; Prometheus export is optional via
// WithMetrics and a metric.Registry.
package store
