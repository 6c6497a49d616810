package store

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/agubler/store/errors"
	"github.com/agubler/store/event"
	"github.com/agubler/store/query"
)

// Memory is the in-process storage primitive: an ordered slice of items with
// an id index. It implements Storage[T] with plain slice mutation, ULID id
// generation and optional pre-seeding.
type Memory[T any] struct {
	mu       sync.Mutex
	data     []T
	index    map[string]int
	getID    func(T) string
	assignID func(T, string) T
	newID    func() string
}

// MemoryOption configures a Memory storage primitive
type MemoryOption[T any] func(*Memory[T])

// WithSeed pre-populates the storage with items, in order. Seed ids must be
// present and unique; NewMemory fails otherwise.
func WithSeed[T any](items ...T) MemoryOption[T] {
	return func(m *Memory[T]) {
		m.data = append(m.data, items...)
	}
}

// WithIDAssigner enables id generation for added items that lack one. The
// assigner returns a copy of the item carrying the generated id.
func WithIDAssigner[T any](assign func(item T, id string) T) MemoryOption[T] {
	return func(m *Memory[T]) {
		m.assignID = assign
	}
}

// WithIDSource replaces the default ULID generator
func WithIDSource[T any](generate func() string) MemoryOption[T] {
	return func(m *Memory[T]) {
		m.newID = generate
	}
}

// NewMemory creates an in-process storage primitive. getID extracts an
// item's id and must not be nil.
func NewMemory[T any](getID func(T) string, opts ...MemoryOption[T]) (*Memory[T], error) {
	if getID == nil {
		return nil, errors.WrapInvalid(errors.New("id extractor cannot be nil"), "Memory", "NewMemory", "validate configuration")
	}

	m := &Memory[T]{
		getID: getID,
		newID: func() string { return ulid.Make().String() },
		index: make(map[string]int),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	for i, item := range m.data {
		id := m.getID(item)
		if id == "" {
			return nil, errors.WrapInvalid(errors.ErrEmptyID, "Memory", "NewMemory", "validate seed item")
		}
		if _, exists := m.index[id]; exists {
			return nil, errors.WrapInvalid(errors.ErrDuplicateID, "Memory", "NewMemory", "validate seed id "+id)
		}
		m.index[id] = i
	}
	return m, nil
}

// Get resolves items by id
func (m *Memory[T]) Get(ctx context.Context, ids []string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapTransient(err, "Memory", "Get", "check context")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		pos, ok := m.index[id]
		if !ok {
			return nil, errors.WrapInvalid(errors.ErrNotFound, "Memory", "Get", "resolve id "+id)
		}
		out = append(out, m.data[pos])
	}
	return out, nil
}

// Add inserts an item at the end of the ordered data
func (m *Memory[T]) Add(ctx context.Context, item T) (event.Update[T], error) {
	var zero event.Update[T]
	if err := ctx.Err(); err != nil {
		return zero, errors.WrapTransient(err, "Memory", "Add", "check context")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.getID(item)
	if id == "" {
		if m.assignID == nil {
			return zero, errors.WrapInvalid(errors.ErrEmptyID, "Memory", "Add", "extract id")
		}
		id = m.newID()
		item = m.assignID(item, id)
	}
	if _, exists := m.index[id]; exists {
		return zero, errors.WrapInvalid(errors.ErrDuplicateID, "Memory", "Add", "insert id "+id)
	}

	m.data = append(m.data, item)
	m.index[id] = len(m.data) - 1
	return event.NewAdded(id, item, len(m.data)-1), nil
}

// Put applies a full-item replacement or a patch set to existing items
func (m *Memory[T]) Put(ctx context.Context, req PutRequest[T]) ([]event.Update[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapTransient(err, "Memory", "Put", "check context")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if item, ok := req.Item(); ok {
		id := m.getID(item)
		if id == "" {
			return nil, errors.WrapInvalid(errors.ErrEmptyID, "Memory", "Put", "extract id")
		}
		pos, exists := m.index[id]
		if !exists {
			return nil, errors.WrapInvalid(errors.ErrNotFound, "Memory", "Put", "resolve id "+id)
		}
		before := m.data[pos]
		m.data[pos] = item
		return []event.Update[T]{event.NewUpdated(id, item, pos, pos, before, item)}, nil
	}

	entries := req.Entries()
	if len(entries) == 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidPatch, "Memory", "Put", "empty patch set")
	}

	// Resolve and apply everything before touching the stored data so a
	// failing entry leaves the storage unchanged
	type pending struct {
		pos  int
		item T
	}
	applied := make([]pending, 0, len(entries))
	for _, entry := range entries {
		pos, exists := m.index[entry.ID]
		if !exists {
			return nil, errors.WrapInvalid(errors.ErrNotFound, "Memory", "Put", "resolve id "+entry.ID)
		}
		doc, err := entry.Patch.Apply(m.data[pos])
		if err != nil {
			return nil, err
		}
		item, err := decodeItem[T](doc)
		if err != nil {
			return nil, err
		}
		if got := m.getID(item); got != entry.ID {
			return nil, errors.WrapInvalid(errors.ErrInvalidPatch, "Memory", "Put",
				"patch must not change id "+entry.ID)
		}
		applied = append(applied, pending{pos: pos, item: item})
	}

	events := make([]event.Update[T], 0, len(entries))
	for i, entry := range entries {
		m.data[applied[i].pos] = applied[i].item
		events = append(events, event.NewUpdatedWithDiff(entry.ID, applied[i].item, applied[i].pos, applied[i].pos, entry.Patch))
	}
	return events, nil
}

// Delete removes an item by id and re-indexes subsequent items
func (m *Memory[T]) Delete(ctx context.Context, id string) (event.Update[T], error) {
	var zero event.Update[T]
	if err := ctx.Err(); err != nil {
		return zero, errors.WrapTransient(err, "Memory", "Delete", "check context")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pos, exists := m.index[id]
	if !exists {
		return zero, errors.WrapInvalid(errors.ErrNotFound, "Memory", "Delete", "resolve id "+id)
	}

	m.data = append(m.data[:pos], m.data[pos+1:]...)
	delete(m.index, id)
	for otherID, otherPos := range m.index {
		if otherPos > pos {
			m.index[otherID] = otherPos - 1
		}
	}
	return event.NewDeleted[T](id, pos), nil
}

// Fetch returns the ordered data with the queries applied left-to-right
func (m *Memory[T]) Fetch(ctx context.Context, queries []query.Query[T]) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapTransient(err, "Memory", "Fetch", "check context")
	}

	m.mu.Lock()
	out := make([]T, len(m.data))
	copy(out, m.data)
	m.mu.Unlock()

	for _, q := range queries {
		out = q.Apply(out)
	}
	return out, nil
}

// IsUpdate reports whether a put of this item designates an existing record
func (m *Memory[T]) IsUpdate(item T) bool {
	id := m.getID(item)
	if id == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.index[id]
	return exists
}

// ID extracts the item's id
func (m *Memory[T]) ID(item T) string {
	return m.getID(item)
}

// GenerateID produces a new unique id
func (m *Memory[T]) GenerateID() string {
	return m.newID()
}

// Len returns the number of stored items
func (m *Memory[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// ensure Memory satisfies the Storage contract
var _ Storage[any] = (*Memory[any])(nil)
