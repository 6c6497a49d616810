package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/agubler/store/errors"
	"github.com/agubler/store/event"
	"github.com/agubler/store/query"
)

// Entry binds an item to its current position in the store's ordered data
type Entry[T any] struct {
	Item  T
	Index int
}

// Store is a versioned, queryable collection of uniquely-identified items.
//
// A store is either a root (it executes against a Storage primitive) or a
// derived view (it holds a source reference plus an ordered query list and
// forwards every mutation to the root). Both roles share this one type and
// the same public contract.
//
// All methods are safe for concurrent use. Subscribers are invoked
// synchronously during mutation calls and must not mutate the store from
// inside OnUpdate.
type Store[T any] struct {
	name   string
	logger *slog.Logger

	stats    *Stats
	metrics  *storeMetrics
	notifier *event.Notifier[T]

	storage Storage[T] // root stores only
	source  *Store[T]  // derived views only
	queries []query.Query[T]
	idOf    func(T) string

	// opMu serializes operations, including event publication, so
	// subscribers observe event batches in completion order
	opMu sync.Mutex
	// txMu serializes transactions; a second Commit queues behind the
	// outstanding one
	txMu sync.Mutex

	// stateMu guards the fields below; never held across a call into
	// another store
	stateMu      sync.Mutex
	data         []T
	index        map[string]Entry[T]
	version      uint64
	materialized bool
	live         bool
	released     bool
	sub          event.Subscription
	mirror       []T // tracking views: event-maintained copy of source data
	mirrorIndex  map[string]int
	dirty        bool
	arming       bool // tracking setup in flight, buffer source batches
	armed        []armedBatch[T]
}

// New creates a root store over the given storage primitive
func New[T any](storage Storage[T], opts ...Option[T]) (*Store[T], error) {
	if storage == nil {
		return nil, errors.WrapInvalid(errors.New("storage cannot be nil"), "Store", "New", "validate configuration")
	}

	o := applyOptions(opts...)
	s := &Store[T]{
		name:     o.name,
		logger:   o.logger,
		stats:    NewStats(),
		notifier: event.NewNotifier[T](),
		storage:  storage,
		idOf:     storage.ID,
	}

	if o.metricsReg != nil {
		metrics, err := newStoreMetrics(o.metricsReg, o.name)
		if err != nil {
			return nil, errors.Wrap(err, "Store", "New", "metrics registration")
		}
		s.metrics = metrics
	}
	return s, nil
}

// Version returns the store's monotonic version counter. A derived view's
// version tracks the source version its cached data corresponds to.
func (s *Store[T]) Version() uint64 {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.version
}

// Name returns the store's configured name
func (s *Store[T]) Name() string {
	return s.name
}

// Stats returns the store's operation statistics
func (s *Store[T]) Stats() *Stats {
	return s.stats
}

// Subscribe registers a subscriber for this store's event batches
func (s *Store[T]) Subscribe(sub event.Subscriber[T]) event.Subscription {
	return s.notifier.Subscribe(sub)
}

// SubscribeFunc registers a plain function handler for event batches
func (s *Store[T]) SubscribeFunc(f func(events []event.Update[T])) event.Subscription {
	return s.notifier.SubscribeFunc(f)
}

// Unsubscribe removes a previously registered subscriber
func (s *Store[T]) Unsubscribe(id event.Subscription) bool {
	return s.notifier.Unsubscribe(id)
}

// Get resolves items by id. Derived views forward to their source: views
// never hold independent authoritative copies of unfetched items.
func (s *Store[T]) Get(ctx context.Context, ids ...string) ([]T, error) {
	if src := s.sourceStore(); src != nil {
		return src.Get(ctx, ids...)
	}

	s.stats.Get()
	return s.storage.Get(ctx, ids)
}

// Add inserts items at the end of the ordered data, emitting an Added event
// per item as one batch. An id already present fails with ErrDuplicateID;
// items added before the failing one remain applied and their events are
// still delivered.
func (s *Store[T]) Add(ctx context.Context, items ...T) ([]T, error) {
	if src := s.sourceStore(); src != nil {
		return src.Add(ctx, items...)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.ensureMaterialized(ctx); err != nil {
		return nil, err
	}

	added := make([]T, 0, len(items))
	events := make([]event.Update[T], 0, len(items))
	for _, item := range items {
		e, err := s.storage.Add(ctx, item)
		if err != nil {
			s.publish(events)
			return added, err
		}
		stored, _ := e.Item()
		added = append(added, stored)
		events = append(events, e)
		s.applyOwnEvent(e)
		s.stats.Add()
		if s.metrics != nil {
			s.metrics.recordMutation("add")
		}
	}

	s.publish(events)
	s.logger.Debug("items added", "store", s.name, "count", len(added), "version", s.Version())
	return added, nil
}

// Put applies full-item replacements and patch sets. Each request resolves
// to an update when it designates an existing id and to an add otherwise.
// A single request emits its events directly; multiple requests execute as
// an implicit transaction and surface one Batch event.
func (s *Store[T]) Put(ctx context.Context, reqs ...PutRequest[T]) ([]T, error) {
	if src := s.sourceStore(); src != nil {
		return src.Put(ctx, reqs...)
	}

	if len(reqs) == 0 {
		return nil, nil
	}
	if len(reqs) == 1 {
		s.opMu.Lock()
		defer s.opMu.Unlock()

		if err := s.ensureMaterialized(ctx); err != nil {
			return nil, err
		}
		items, events, err := s.putOne(ctx, reqs[0])
		if err != nil {
			return nil, err
		}
		s.publish(events)
		s.logger.Debug("items put", "store", s.name, "count", len(items), "version", s.Version())
		return items, nil
	}

	tx := s.Transaction()
	tx.Put(reqs...)
	res, err := tx.Commit(ctx)
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// putOne executes one put request; opMu must be held
func (s *Store[T]) putOne(ctx context.Context, req PutRequest[T]) ([]T, []event.Update[T], error) {
	if item, ok := req.Item(); ok && !s.storage.IsUpdate(item) {
		// New record: route to add, generating an id when absent
		e, err := s.storage.Add(ctx, item)
		if err != nil {
			return nil, nil, err
		}
		stored, _ := e.Item()
		s.applyOwnEvent(e)
		s.stats.Put()
		if s.metrics != nil {
			s.metrics.recordMutation("put")
		}
		return []T{stored}, []event.Update[T]{e}, nil
	}

	events, err := s.storage.Put(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	items := make([]T, 0, len(events))
	for _, e := range events {
		stored, _ := e.Item()
		items = append(items, stored)
		s.applyOwnEvent(e)
		s.stats.Put()
		if s.metrics != nil {
			s.metrics.recordMutation("put")
		}
	}
	return items, events, nil
}

// Delete removes items by id, emitting a Deleted event per id as one batch.
// A missing id fails with ErrNotFound; ids deleted before the failing one
// remain deleted and their events are still delivered.
func (s *Store[T]) Delete(ctx context.Context, ids ...string) ([]string, error) {
	if src := s.sourceStore(); src != nil {
		return src.Delete(ctx, ids...)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.ensureMaterialized(ctx); err != nil {
		return nil, err
	}

	deleted := make([]string, 0, len(ids))
	events := make([]event.Update[T], 0, len(ids))
	for _, id := range ids {
		e, err := s.storage.Delete(ctx, id)
		if err != nil {
			s.publish(events)
			return deleted, err
		}
		deleted = append(deleted, id)
		events = append(events, e)
		s.applyOwnEvent(e)
		s.stats.Delete()
		if s.metrics != nil {
			s.metrics.recordMutation("delete")
		}
	}

	s.publish(events)
	s.logger.Debug("items deleted", "store", s.name, "count", len(deleted), "version", s.Version())
	return deleted, nil
}

// Fetch returns the store's current materialized data. A root store serves
// its incrementally maintained cache; a derived view recomputes its query
// pipeline when its cached version is behind the source's and serves the
// cache directly otherwise.
func (s *Store[T]) Fetch(ctx context.Context) ([]T, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.fetch(ctx)
}

// Len returns the number of items currently visible through the store
func (s *Store[T]) Len(ctx context.Context) (int, error) {
	items, err := s.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// fetch implements Fetch; opMu must be held
func (s *Store[T]) fetch(ctx context.Context) ([]T, error) {
	s.stats.Fetch()

	src := s.sourceStore()
	if src == nil {
		if err := s.ensureMaterialized(ctx); err != nil {
			return nil, err
		}
		s.recordFetch(true)
		return s.snapshotData(), nil
	}

	if s.isLive() {
		return s.fetchTracked()
	}

	srcVersion := src.Version()
	s.stateMu.Lock()
	if s.materialized && s.version == srcVersion {
		out := make([]T, len(s.data))
		copy(out, s.data)
		s.stateMu.Unlock()
		s.recordFetch(true)
		return out, nil
	}
	s.stateMu.Unlock()

	base, baseVersion, err := src.snapshot(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "Store", "Fetch", "fetch source data")
	}
	out := s.applyQueries(base)

	s.stateMu.Lock()
	s.data = out
	s.version = baseVersion
	s.materialized = true
	s.stateMu.Unlock()
	s.recordFetch(false)
	s.recordSize(len(out))

	result := make([]T, len(out))
	copy(result, out)
	return result, nil
}

// Transaction returns a new transaction handle targeting this store's root
func (s *Store[T]) Transaction() *Transaction[T] {
	target := s
	if src := s.sourceStore(); src != nil {
		target = src
	}
	return &Transaction[T]{store: target}
}

// sourceStore returns the source of a derived view, nil for roots
func (s *Store[T]) sourceStore() *Store[T] {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.source
}

func (s *Store[T]) isLive() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.live
}

// ensureMaterialized populates a root store's cache from its storage on
// first use; opMu must be held
func (s *Store[T]) ensureMaterialized(ctx context.Context) error {
	s.stateMu.Lock()
	done := s.materialized
	s.stateMu.Unlock()
	if done {
		return nil
	}

	items, err := s.storage.Fetch(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "Store", "ensureMaterialized", "fetch storage data")
	}

	s.stateMu.Lock()
	s.data = items
	s.rebuildIndexLocked()
	s.materialized = true
	s.stateMu.Unlock()
	s.recordSize(len(items))
	return nil
}

// snapshot returns the root's cached data together with the version it
// corresponds to, as one atomic observation. Mutations hold opMu, so no
// event can fall between the copy and the version read.
func (s *Store[T]) snapshot(ctx context.Context) ([]T, uint64, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.ensureMaterialized(ctx); err != nil {
		return nil, 0, err
	}
	s.stateMu.Lock()
	out := make([]T, len(s.data))
	copy(out, s.data)
	v := s.version
	s.stateMu.Unlock()
	return out, v, nil
}

// snapshotData copies the cached data for handing out
func (s *Store[T]) snapshotData() []T {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	out := make([]T, len(s.data))
	copy(out, s.data)
	return out
}

// applyQueries runs the view's query list left-to-right
func (s *Store[T]) applyQueries(items []T) []T {
	for _, q := range s.queries {
		items = q.Apply(items)
	}
	return items
}

// rebuildIndexLocked rebuilds the id map from the cached data; stateMu must
// be held
func (s *Store[T]) rebuildIndexLocked() {
	s.index = make(map[string]Entry[T], len(s.data))
	for i, item := range s.data {
		s.index[s.idOf(item)] = Entry[T]{Item: item, Index: i}
	}
}

// applyOwnEvent applies one mutation event to a root store's cached
// data/map and bumps the version; opMu must be held
func (s *Store[T]) applyOwnEvent(e event.Update[T]) {
	s.stateMu.Lock()
	s.applyEventLocked(e)
	size := len(s.data)
	s.stateMu.Unlock()
	s.recordSize(size)
}

func (s *Store[T]) applyEventLocked(e event.Update[T]) {
	switch e.Type() {
	case event.Batch:
		for _, child := range e.Children() {
			s.applyEventLocked(child)
		}
		return
	case event.Added:
		item, _ := e.Item()
		s.data = append(s.data, item)
		s.index[e.ID()] = Entry[T]{Item: item, Index: len(s.data) - 1}
	case event.Updated:
		item, _ := e.Item()
		if ent, ok := s.index[e.ID()]; ok {
			s.data[ent.Index] = item
			s.index[e.ID()] = Entry[T]{Item: item, Index: ent.Index}
		}
	case event.Deleted:
		ent, ok := s.index[e.ID()]
		if !ok {
			return
		}
		s.data = append(s.data[:ent.Index], s.data[ent.Index+1:]...)
		delete(s.index, e.ID())
		for id, other := range s.index {
			if other.Index > ent.Index {
				s.index[id] = Entry[T]{Item: other.Item, Index: other.Index - 1}
			}
		}
	}
	s.version++
}

// publish delivers one ordered event batch to subscribers; opMu must be
// held so batches arrive in completion order
func (s *Store[T]) publish(events []event.Update[T]) {
	if len(events) == 0 {
		return
	}
	s.notifier.Publish(events)
	n := len(event.Flatten(events))
	s.stats.EventsPublished(n)
	if s.metrics != nil {
		s.metrics.recordEvents(n)
	}
}

func (s *Store[T]) recordFetch(hit bool) {
	if hit {
		s.stats.CacheHit()
	} else {
		s.stats.CacheMiss()
	}
	if s.metrics != nil {
		s.metrics.recordFetch(hit)
	}
}

func (s *Store[T]) recordSize(size int) {
	s.stats.UpdateSize(int64(size))
	if s.metrics != nil {
		s.metrics.updateSize(size)
	}
}
