package store

import (
	"context"
	"slices"

	"github.com/agubler/store/errors"
	"github.com/agubler/store/event"
	"github.com/agubler/store/query"
)

// Filter derives a view that keeps only items matching the filter. Views
// are lazy: no data moves until the first Fetch.
func (s *Store[T]) Filter(f query.Filter[T]) *Store[T] {
	return s.derive(f)
}

// FilterFunc derives a view from a plain predicate. The resulting query
// list is not serializable.
func (s *Store[T]) FilterFunc(fn func(T) bool) *Store[T] {
	return s.derive(query.Custom(fn))
}

// Sort derives a view ordered by the given sort query
func (s *Store[T]) Sort(sq query.Sort[T]) *Store[T] {
	return s.derive(sq)
}

// SortBy derives a view ordered by a document field
func (s *Store[T]) SortBy(field string, descending bool) *Store[T] {
	return s.derive(query.SortBy[T](field, descending))
}

// SortWith derives a view ordered by a comparator. The resulting query
// list is not serializable.
func (s *Store[T]) SortWith(cmp func(a, b T) int, descending bool) *Store[T] {
	return s.derive(query.SortWith(cmp, descending))
}

// Range derives a view windowed to at most count items starting at start
func (s *Store[T]) Range(start, count int) *Store[T] {
	return s.derive(query.NewRange[T](start, count))
}

// RangeOf derives a view windowed by the given range query
func (s *Store[T]) RangeOf(r query.Range[T]) *Store[T] {
	return s.derive(r)
}

// Query derives a view with an arbitrary query appended
func (s *Store[T]) Query(q query.Query[T]) *Store[T] {
	return s.derive(q)
}

// Queries returns the view's query list in application order. Roots return
// nil.
func (s *Store[T]) Queries() []query.Query[T] {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return slices.Clone(s.queries)
}

// derive creates a view over this store's ultimate root. Deriving from a
// view concatenates query lists rather than chaining stores, so every view
// reads one hop from authoritative data.
func (s *Store[T]) derive(q query.Query[T]) *Store[T] {
	root := s
	if src := s.sourceStore(); src != nil {
		root = src
	}

	s.stateMu.Lock()
	qs := make([]query.Query[T], 0, len(s.queries)+1)
	qs = append(qs, s.queries...)
	qs = append(qs, q)
	s.stateMu.Unlock()

	return &Store[T]{
		name:     s.name,
		logger:   s.logger,
		stats:    NewStats(),
		notifier: event.NewNotifier[T](),
		source:   root,
		queries:  qs,
		idOf:     root.idOf,
	}
}

// armedBatch is a source event batch received while tracking setup is in
// flight, tagged with the source version in effect after the batch applied
type armedBatch[T any] struct {
	events  []event.Update[T]
	version uint64
}

// Track switches a derived view to live mode: the view takes one snapshot,
// then maintains a mirror of the source data from mutation events and marks
// its query results dirty instead of refetching. Tracked views republish
// the source's event batches to their own subscribers. Tracking an already
// live view is a no-op.
func (s *Store[T]) Track(ctx context.Context) (*Store[T], error) {
	src := s.sourceStore()
	if src == nil {
		return nil, s.detachedErr("Track", "track detached store")
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.isLive() {
		return s, nil
	}

	// Subscribe before taking the snapshot so no mutation can fall between
	// the two; batches arriving while the snapshot is in flight are buffered
	// and reconciled against it by source version.
	s.stateMu.Lock()
	s.arming = true
	s.armed = nil
	s.stateMu.Unlock()
	sub := src.SubscribeFunc(s.onSourceEvents)

	base, srcVersion, err := src.snapshot(ctx)
	if err != nil {
		src.Unsubscribe(sub)
		s.stateMu.Lock()
		s.arming = false
		s.armed = nil
		s.stateMu.Unlock()
		return nil, errors.Wrap(err, "Store", "Track", "fetch source data")
	}

	replayed := s.finishTracking(sub, base, srcVersion)
	for _, batch := range replayed {
		s.publish(batch)
	}
	s.logger.Debug("view tracking enabled", "store", s.name, "version", s.Version())
	return s, nil
}

// finishTracking installs the snapshot, replays any buffered batches that
// landed after it and switches the view live; opMu must be held. Batches
// the snapshot already reflects are dropped. Returns the replayed batches
// so Track can republish them.
func (s *Store[T]) finishTracking(sub event.Subscription, base []T, srcVersion uint64) [][]event.Update[T] {
	s.stateMu.Lock()
	s.mirror = base
	s.mirrorIndex = make(map[string]int, len(base))
	for i, item := range base {
		s.mirrorIndex[s.idOf(item)] = i
	}
	s.version = srcVersion

	var replayed [][]event.Update[T]
	for _, pending := range s.armed {
		if pending.version <= srcVersion {
			continue
		}
		for _, e := range event.Flatten(pending.events) {
			s.applyMirrorLocked(e)
		}
		s.version = pending.version
		replayed = append(replayed, pending.events)
	}
	s.armed = nil
	s.arming = false

	s.data = s.applyQueries(slices.Clone(s.mirror))
	s.rebuildIndexLocked()
	s.materialized = true
	s.live = true
	s.dirty = false
	s.sub = sub
	size := len(s.data)
	s.stateMu.Unlock()

	s.recordSize(size)
	return replayed
}

// onSourceEvents applies a source event batch to the tracked mirror and
// forwards the batch to the view's subscribers. Runs synchronously inside
// the source's mutation call, so the source version read here is exact for
// this batch.
func (s *Store[T]) onSourceEvents(events []event.Update[T]) {
	var srcVersion uint64
	if src := s.sourceStore(); src != nil {
		srcVersion = src.Version()
	}

	s.stateMu.Lock()
	if s.arming {
		s.armed = append(s.armed, armedBatch[T]{events: events, version: srcVersion})
		s.stateMu.Unlock()
		return
	}
	if !s.live {
		s.stateMu.Unlock()
		return
	}
	flat := event.Flatten(events)
	for _, e := range flat {
		s.applyMirrorLocked(e)
	}
	s.version += uint64(len(flat))
	s.dirty = true
	s.stateMu.Unlock()

	s.publish(events)
}

// detachedErr reports why a store has no source to track or release
func (s *Store[T]) detachedErr(method, action string) error {
	s.stateMu.Lock()
	released := s.released
	s.stateMu.Unlock()
	if released {
		return errors.WrapInvalid(errors.ErrReleased, "Store", method, action)
	}
	return errors.WrapInvalid(errors.ErrNoSource, "Store", method, action)
}

// applyMirrorLocked replays one source event against the mirror; stateMu
// must be held. Source indices are authoritative so the mirror stays in the
// source's insertion order.
func (s *Store[T]) applyMirrorLocked(e event.Update[T]) {
	id := e.ID()
	switch e.Type() {
	case event.Added:
		item, _ := e.Item()
		pos := e.Index()
		if pos < 0 || pos > len(s.mirror) {
			pos = len(s.mirror)
		}
		s.mirror = append(s.mirror, item)
		copy(s.mirror[pos+1:], s.mirror[pos:])
		s.mirror[pos] = item
		for other, idx := range s.mirrorIndex {
			if idx >= pos {
				s.mirrorIndex[other] = idx + 1
			}
		}
		s.mirrorIndex[id] = pos
	case event.Updated:
		if idx, ok := s.mirrorIndex[id]; ok {
			item, _ := e.Item()
			s.mirror[idx] = item
		}
	case event.Deleted:
		idx, ok := s.mirrorIndex[id]
		if !ok {
			return
		}
		s.mirror = append(s.mirror[:idx], s.mirror[idx+1:]...)
		delete(s.mirrorIndex, id)
		for other, pos := range s.mirrorIndex {
			if pos > idx {
				s.mirrorIndex[other] = pos - 1
			}
		}
	}
}

// fetchTracked serves a live view's data, recomputing the query pipeline
// from the mirror when events have arrived since the last fetch; opMu must
// be held
func (s *Store[T]) fetchTracked() ([]T, error) {
	s.stateMu.Lock()
	wasDirty := s.dirty
	if wasDirty {
		s.data = s.applyQueries(slices.Clone(s.mirror))
		s.rebuildIndexLocked()
		s.dirty = false
	}
	out := make([]T, len(s.data))
	copy(out, s.data)
	size := len(s.data)
	s.stateMu.Unlock()

	s.recordFetch(!wasDirty)
	s.recordSize(size)
	return out, nil
}

// Entry returns a tracked view's cached entry for an id, resolving against
// the last computed query results. Untracked stores report no entries.
func (s *Store[T]) Entry(id string) (Entry[T], bool) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	ent, ok := s.index[id]
	return ent, ok
}

// Release detaches a view from its source: the view takes a deep copy of
// its current query results, seeds a fresh in-memory storage with them and
// becomes an independent root. The source is untouched and stops feeding
// the released store.
func (s *Store[T]) Release(ctx context.Context) ([]T, error) {
	src := s.sourceStore()
	if src == nil {
		return nil, s.detachedErr("Release", "release detached store")
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	items, err := s.fetch(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "Store", "Release", "fetch final view data")
	}
	snapshot, err := copyItems(items)
	if err != nil {
		return nil, errors.Wrap(err, "Store", "Release", "copy view data")
	}

	idOf := s.idOf
	mem, err := NewMemory[T](idOf, WithSeed[T](snapshot...))
	if err != nil {
		return nil, errors.Wrap(err, "Store", "Release", "seed released storage")
	}

	s.stateMu.Lock()
	wasLive := s.live
	sub := s.sub
	s.storage = mem
	s.source = nil
	s.queries = nil
	s.released = true
	s.live = false
	s.dirty = false
	s.mirror = nil
	s.mirrorIndex = nil
	s.data = slices.Clone(snapshot)
	s.rebuildIndexLocked()
	s.materialized = true
	s.stateMu.Unlock()

	if wasLive {
		src.Unsubscribe(sub)
	}
	s.recordSize(len(snapshot))
	s.logger.Debug("view released", "store", s.name, "items", len(snapshot))

	out := make([]T, len(snapshot))
	copy(out, snapshot)
	return out, nil
}
