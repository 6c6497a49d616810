package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/agubler/store/errors"
	"github.com/agubler/store/event"
)

type txKind int

const (
	txAdd txKind = iota
	txPut
	txDelete
)

type txRequest[T any] struct {
	kind txKind
	item T
	put  PutRequest[T]
	id   string
}

// Transaction batches add, put and delete operations against one store and
// applies them as a single unit of work. Operations execute sequentially in
// submission order; there is no rollback. Concurrent commits against the
// same store queue behind each other.
//
// A transaction handle is not safe for concurrent use while building; build
// it from one goroutine, then Commit.
type Transaction[T any] struct {
	store *Store[T]

	mu        sync.Mutex
	requests  []txRequest[T]
	committed bool
}

// Add queues items for insertion
func (tx *Transaction[T]) Add(items ...T) *Transaction[T] {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	for _, item := range items {
		tx.requests = append(tx.requests, txRequest[T]{kind: txAdd, item: item})
	}
	return tx
}

// Put queues put requests
func (tx *Transaction[T]) Put(reqs ...PutRequest[T]) *Transaction[T] {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	for _, req := range reqs {
		tx.requests = append(tx.requests, txRequest[T]{kind: txPut, put: req})
	}
	return tx
}

// Delete queues ids for removal
func (tx *Transaction[T]) Delete(ids ...string) *Transaction[T] {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	for _, id := range ids {
		tx.requests = append(tx.requests, txRequest[T]{kind: txDelete, id: id})
	}
	return tx
}

// Len returns the number of queued operations
func (tx *Transaction[T]) Len() int {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return len(tx.requests)
}

// Result reports what a committed transaction applied
type Result[T any] struct {
	// Items holds added and updated items in application order
	Items []T
	// Deleted holds removed ids in application order
	Deleted []string
	// Events holds the per-operation events wrapped into the published
	// Batch event
	Events []event.Update[T]
}

// Commit applies the queued operations in order and publishes their events
// as one Batch. On the first failure the remaining operations are skipped,
// the events of the applied prefix are still published as a Batch so
// subscribers and tracked views stay consistent with the store, and the
// returned error wraps both ErrTransactionFailed and the cause. A
// transaction commits at most once.
func (tx *Transaction[T]) Commit(ctx context.Context) (*Result[T], error) {
	tx.mu.Lock()
	if tx.committed {
		tx.mu.Unlock()
		return nil, errors.WrapInvalid(errors.ErrTransactionCommitted, "Transaction", "Commit", "reuse transaction")
	}
	if len(tx.requests) == 0 {
		tx.mu.Unlock()
		return nil, errors.WrapInvalid(errors.ErrTransactionEmpty, "Transaction", "Commit", "commit empty transaction")
	}
	tx.committed = true
	requests := tx.requests
	tx.mu.Unlock()

	s := tx.store
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.ensureMaterialized(ctx); err != nil {
		return nil, err
	}

	res := &Result[T]{}
	var children []event.Update[T]
	for i, req := range requests {
		var err error
		switch req.kind {
		case txAdd:
			var e event.Update[T]
			e, err = s.storage.Add(ctx, req.item)
			if err == nil {
				stored, _ := e.Item()
				res.Items = append(res.Items, stored)
				children = append(children, e)
				s.applyOwnEvent(e)
				s.stats.Add()
				if s.metrics != nil {
					s.metrics.recordMutation("add")
				}
			}
		case txPut:
			var items []T
			var events []event.Update[T]
			items, events, err = s.putOne(ctx, req.put)
			if err == nil {
				res.Items = append(res.Items, items...)
				children = append(children, events...)
			}
		case txDelete:
			var e event.Update[T]
			e, err = s.storage.Delete(ctx, req.id)
			if err == nil {
				res.Deleted = append(res.Deleted, req.id)
				children = append(children, e)
				s.applyOwnEvent(e)
				s.stats.Delete()
				if s.metrics != nil {
					s.metrics.recordMutation("delete")
				}
			}
		}
		if err != nil {
			res.Events = children
			s.publishBatch(children)
			s.logger.Warn("transaction failed", "store", s.name,
				"operation", i, "applied", len(children), "error", err)
			return res, fmt.Errorf("%w: operation %d: %w", errors.ErrTransactionFailed, i, err)
		}
	}

	res.Events = children
	s.publishBatch(children)
	s.stats.Transaction()
	if s.metrics != nil {
		s.metrics.recordMutation("transaction")
	}
	s.logger.Debug("transaction committed", "store", s.name,
		"operations", len(requests), "version", s.Version())
	return res, nil
}

// publishBatch wraps events into a single Batch event and publishes it;
// opMu must be held
func (s *Store[T]) publishBatch(children []event.Update[T]) {
	if len(children) == 0 {
		return
	}
	s.publish([]event.Update[T]{event.NewBatch(children)})
}
