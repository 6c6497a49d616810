package store

import (
	"context"
	"encoding/json"

	"github.com/agubler/store/errors"
	"github.com/agubler/store/event"
	"github.com/agubler/store/patch"
	"github.com/agubler/store/query"
)

// Storage is the primitive a root store executes against. Implementations
// own the authoritative ordered data; the in-process Memory implementation
// mutates a slice, a remote-backed one would issue requests, but the store
// core only depends on the result shape and event emission contract.
type Storage[T any] interface {
	// Get resolves items by id; a missing id fails with ErrNotFound
	Get(ctx context.Context, ids []string) ([]T, error)

	// Add inserts a new item at the end of the ordered data. An id already
	// present fails with ErrDuplicateID; an absent id is generated when the
	// implementation supports assignment, otherwise ErrEmptyID.
	Add(ctx context.Context, item T) (event.Update[T], error)

	// Put applies a full-item replacement or a patch set to existing items,
	// emitting one Updated event per affected id. Unresolvable ids fail
	// with ErrNotFound.
	Put(ctx context.Context, req PutRequest[T]) ([]event.Update[T], error)

	// Delete removes an item by id, re-indexing subsequent items. A missing
	// id fails with ErrNotFound.
	Delete(ctx context.Context, id string) (event.Update[T], error)

	// Fetch returns the ordered data with the queries applied left-to-right
	Fetch(ctx context.Context, queries []query.Query[T]) ([]T, error)

	// IsUpdate reports whether a put of this item designates an existing
	// record (update) rather than a new one (add)
	IsUpdate(item T) bool

	// ID extracts the item's id; empty when the item has none yet
	ID(item T) string

	// GenerateID produces a new unique id
	GenerateID() string
}

// PatchEntry addresses one item of a patch-set put
type PatchEntry struct {
	ID    string
	Patch *patch.Patch
}

// PutRequest is one element of a put call: either a full item or a set of
// per-id patches. Multiple patches for the same id in one request are merged
// before application.
type PutRequest[T any] struct {
	item    *T
	patches []PatchEntry
}

// PutItem builds a full-item put request
func PutItem[T any](item T) PutRequest[T] {
	return PutRequest[T]{item: &item}
}

// PutPatch builds a single-id patch put request from operations
func PutPatch[T any](id string, ops ...patch.Operation) PutRequest[T] {
	return PutRequest[T]{patches: []PatchEntry{{ID: id, Patch: patch.New(ops...)}}}
}

// PutPatchSet builds a multi-id patch put request
func PutPatchSet[T any](entries ...PatchEntry) PutRequest[T] {
	copied := make([]PatchEntry, len(entries))
	copy(copied, entries)
	return PutRequest[T]{patches: copied}
}

// IsPatch reports whether the request carries patches rather than a full item
func (r PutRequest[T]) IsPatch() bool {
	return r.item == nil
}

// Item returns the full item of a non-patch request
func (r PutRequest[T]) Item() (T, bool) {
	if r.item == nil {
		var zero T
		return zero, false
	}
	return *r.item, true
}

// Entries returns the patch entries of a patch request, merged per id in
// submission order
func (r PutRequest[T]) Entries() []PatchEntry {
	merged := make([]PatchEntry, 0, len(r.patches))
	position := make(map[string]int, len(r.patches))
	for _, entry := range r.patches {
		if pos, seen := position[entry.ID]; seen {
			merged[pos].Patch = patch.Merge(merged[pos].Patch, entry.Patch)
			continue
		}
		position[entry.ID] = len(merged)
		merged = append(merged, PatchEntry{ID: entry.ID, Patch: entry.Patch})
	}
	return merged
}

// decodeItem materializes a typed item from its document projection
func decodeItem[T any](doc any) (T, error) {
	var item T
	encoded, err := json.Marshal(doc)
	if err != nil {
		return item, errors.WrapInvalid(err, "Storage", "decodeItem", "encode document")
	}
	if err := json.Unmarshal(encoded, &item); err != nil {
		return item, errors.WrapInvalid(err, "Storage", "decodeItem", "decode document")
	}
	return item, nil
}

// copyItems deep-copies a slice of items through the document model
func copyItems[T any](items []T) ([]T, error) {
	encoded, err := json.Marshal(items)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Storage", "copyItems", "encode items")
	}
	out := make([]T, 0, len(items))
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, errors.WrapInvalid(err, "Storage", "copyItems", "decode items")
	}
	return out, nil
}
