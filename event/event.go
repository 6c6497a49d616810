package event

import (
	"sync"

	"github.com/agubler/store/patch"
)

// Type discriminates the update variants
type Type string

const (
	// Added signals a newly inserted item
	Added Type = "added"
	// Updated signals an existing item that changed
	Updated Type = "updated"
	// Deleted signals a removed item
	Deleted Type = "deleted"
	// Batch wraps an ordered sequence of updates dispatched as one event
	Batch Type = "batch"
)

// Update is a tagged mutation event. Added carries the new item and its
// resulting index; Updated additionally carries the previous index and a
// lazily computed structural diff; Deleted carries the id and its prior
// index; Batch wraps child updates.
type Update[T any] struct {
	typ           Type
	id            string
	item          T
	hasItem       bool
	index         int
	previousIndex int
	diff          *lazyDiff
	children      []Update[T]
}

// lazyDiff defers the structural diff of an update until first requested.
// The cell is shared by copies of the Update value, so the diff is computed
// at most once per logical event.
type lazyDiff struct {
	once   sync.Once
	before any
	after  any
	p      *patch.Patch
	err    error
}

func (l *lazyDiff) get() (*patch.Patch, error) {
	l.once.Do(func() {
		if l.p != nil {
			return
		}
		l.p, l.err = patch.Diff(l.before, l.after)
		l.before, l.after = nil, nil
	})
	return l.p, l.err
}

// NewAdded builds an Added update
func NewAdded[T any](id string, item T, index int) Update[T] {
	return Update[T]{typ: Added, id: id, item: item, hasItem: true, index: index, previousIndex: -1}
}

// NewUpdated builds an Updated update. The before and after values are
// retained until Diff is first called.
func NewUpdated[T any](id string, item T, index, previousIndex int, before, after any) Update[T] {
	return Update[T]{
		typ: Updated, id: id, item: item, hasItem: true,
		index: index, previousIndex: previousIndex,
		diff: &lazyDiff{before: before, after: after},
	}
}

// NewUpdatedWithDiff builds an Updated update from an already known patch,
// typically the caller-submitted patch of a partial update.
func NewUpdatedWithDiff[T any](id string, item T, index, previousIndex int, p *patch.Patch) Update[T] {
	return Update[T]{
		typ: Updated, id: id, item: item, hasItem: true,
		index: index, previousIndex: previousIndex,
		diff: &lazyDiff{p: p},
	}
}

// NewDeleted builds a Deleted update
func NewDeleted[T any](id string, previousIndex int) Update[T] {
	return Update[T]{typ: Deleted, id: id, index: -1, previousIndex: previousIndex}
}

// NewBatch builds a Batch update wrapping the given children in order
func NewBatch[T any](children []Update[T]) Update[T] {
	copied := make([]Update[T], len(children))
	copy(copied, children)
	return Update[T]{typ: Batch, index: -1, previousIndex: -1, children: copied}
}

// Type returns the variant discriminant
func (u Update[T]) Type() Type {
	return u.typ
}

// ID returns the id of the affected item; empty for Batch
func (u Update[T]) ID() string {
	return u.id
}

// Item returns the carried item, and whether one is present (Deleted and
// Batch updates carry none)
func (u Update[T]) Item() (T, bool) {
	return u.item, u.hasItem
}

// Index returns the item's resulting position, or -1 when it has none
// (Deleted, Batch)
func (u Update[T]) Index() int {
	return u.index
}

// PreviousIndex returns the item's position before the mutation, or -1 when
// it had none (Added, Batch)
func (u Update[T]) PreviousIndex() int {
	return u.previousIndex
}

// Diff returns the structural diff of an Updated event, computing it on
// first call. Non-update events return an empty patch.
func (u Update[T]) Diff() (*patch.Patch, error) {
	if u.diff == nil {
		return patch.New(), nil
	}
	return u.diff.get()
}

// Children returns the ordered child updates of a Batch event
func (u Update[T]) Children() []Update[T] {
	out := make([]Update[T], len(u.children))
	copy(out, u.children)
	return out
}

// Flatten expands Batch events into their children, recursively, preserving
// order. Non-batch events pass through unchanged.
func Flatten[T any](events []Update[T]) []Update[T] {
	out := make([]Update[T], 0, len(events))
	for _, e := range events {
		if e.typ == Batch {
			out = append(out, Flatten(e.children)...)
			continue
		}
		out = append(out, e)
	}
	return out
}
