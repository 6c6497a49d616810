package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agubler/store/errors"
	"github.com/agubler/store/event"
	"github.com/agubler/store/metric"
	"github.com/agubler/store/patch"
)

func newTaskStore(t *testing.T, seed ...task) *Store[task] {
	t.Helper()
	mem, err := NewMemory(taskID, WithSeed(seed...))
	require.NoError(t, err)
	s, err := New[task](mem, WithName[task]("tasks"))
	require.NoError(t, err)
	return s
}

// recorder collects every event batch a store publishes
type recorder struct {
	batches [][]event.Update[task]
}

func (r *recorder) observe(events []event.Update[task]) {
	r.batches = append(r.batches, events)
}

func (r *recorder) flat() []event.Update[task] {
	var out []event.Update[task]
	for _, batch := range r.batches {
		out = append(out, event.Flatten(batch)...)
	}
	return out
}

func TestNewValidation(t *testing.T) {
	_, err := New[task](nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestStoreAdd(t *testing.T) {
	s := newTaskStore(t)
	ctx := context.Background()

	rec := &recorder{}
	s.SubscribeFunc(rec.observe)

	added, err := s.Add(ctx, seedTasks()...)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, taskIDs(added))
	assert.Equal(t, uint64(3), s.Version())

	require.Len(t, rec.batches, 1)
	flat := rec.flat()
	require.Len(t, flat, 3)
	for i, e := range flat {
		assert.Equal(t, event.Added, e.Type())
		assert.Equal(t, i, e.Index())
	}

	items, err := s.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, taskIDs(items))
}

func TestStoreAddDuplicateKeepsPrefix(t *testing.T) {
	s := newTaskStore(t, seedTasks()...)
	ctx := context.Background()

	rec := &recorder{}
	s.SubscribeFunc(rec.observe)

	added, err := s.Add(ctx,
		task{ID: "4", Title: "new"},
		task{ID: "2", Title: "duplicate"},
		task{ID: "5", Title: "never reached"},
	)
	require.ErrorIs(t, err, errors.ErrDuplicateID)
	assert.Equal(t, []string{"4"}, taskIDs(added))

	// The applied prefix is still visible and its events delivered
	items, err := s.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4"}, taskIDs(items))
	require.Len(t, rec.flat(), 1)
	assert.Equal(t, "4", rec.flat()[0].ID())
}

func TestStoreGet(t *testing.T) {
	s := newTaskStore(t, seedTasks()...)

	items, err := s.Get(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "review code", items[0].Title)
	assert.Equal(t, int64(1), s.Stats().Gets())
}

func TestStorePutUpdatesOrAdds(t *testing.T) {
	s := newTaskStore(t, seedTasks()...)
	ctx := context.Background()

	rec := &recorder{}
	s.SubscribeFunc(rec.observe)

	// Existing id resolves to an update
	items, err := s.Put(ctx, PutItem(task{ID: "2", Title: "review code", Done: true}))
	require.NoError(t, err)
	assert.True(t, items[0].Done)
	assert.Equal(t, event.Updated, rec.flat()[0].Type())

	// Unknown id resolves to an add
	items, err = s.Put(ctx, PutItem(task{ID: "9", Title: "brand new"}))
	require.NoError(t, err)
	assert.Equal(t, "9", items[0].ID)
	assert.Equal(t, event.Added, rec.flat()[1].Type())
	assert.Equal(t, 3, rec.flat()[1].Index())

	assert.Equal(t, uint64(2), s.Version())
}

func TestStorePutPatch(t *testing.T) {
	s := newTaskStore(t, seedTasks()...)
	ctx := context.Background()

	rec := &recorder{}
	s.SubscribeFunc(rec.observe)

	_, err := s.Put(ctx, PutPatch[task]("1", patch.Set("priority", 9)))
	require.NoError(t, err)

	diff, err := rec.flat()[0].Diff()
	require.NoError(t, err)
	assert.Equal(t, "set(priority,9)", diff.String())

	items, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 9, items[0].Priority)
}

func TestStorePutMultipleIsBatch(t *testing.T) {
	s := newTaskStore(t, seedTasks()...)
	ctx := context.Background()

	rec := &recorder{}
	s.SubscribeFunc(rec.observe)

	items, err := s.Put(ctx,
		PutItem(task{ID: "1", Title: "write report", Done: true}),
		PutItem(task{ID: "4", Title: "plan sprint"}),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "4"}, taskIDs(items))

	require.Len(t, rec.batches, 1)
	require.Len(t, rec.batches[0], 1)
	batch := rec.batches[0][0]
	assert.Equal(t, event.Batch, batch.Type())
	require.Len(t, batch.Children(), 2)
	assert.Equal(t, event.Updated, batch.Children()[0].Type())
	assert.Equal(t, event.Added, batch.Children()[1].Type())
}

func TestStoreDelete(t *testing.T) {
	s := newTaskStore(t, seedTasks()...)
	ctx := context.Background()

	rec := &recorder{}
	s.SubscribeFunc(rec.observe)

	deleted, err := s.Delete(ctx, "1", "3")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, deleted)

	items, err := s.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, taskIDs(items))

	flat := rec.flat()
	require.Len(t, flat, 2)
	assert.Equal(t, 0, flat[0].PreviousIndex())
	// "3" moved up after "1" was removed
	assert.Equal(t, 1, flat[1].PreviousIndex())

	_, err = s.Delete(ctx, "nope")
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestStoreSubscriberOrderAndUnsubscribe(t *testing.T) {
	s := newTaskStore(t)
	ctx := context.Background()

	var order []string
	first := s.SubscribeFunc(func([]event.Update[task]) { order = append(order, "first") })
	s.SubscribeFunc(func([]event.Update[task]) { order = append(order, "second") })

	_, err := s.Add(ctx, task{ID: "1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)

	assert.True(t, s.Unsubscribe(first))
	assert.False(t, s.Unsubscribe(first))

	_, err = s.Add(ctx, task{ID: "2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "second"}, order)
}

func TestStoreStats(t *testing.T) {
	s := newTaskStore(t, seedTasks()...)
	ctx := context.Background()

	_, err := s.Fetch(ctx)
	require.NoError(t, err)
	_, err = s.Fetch(ctx)
	require.NoError(t, err)
	_, err = s.Add(ctx, task{ID: "4"})
	require.NoError(t, err)
	_, err = s.Delete(ctx, "4")
	require.NoError(t, err)

	stats := s.Stats()
	assert.Equal(t, int64(2), stats.Fetches())
	assert.Equal(t, int64(1), stats.Adds())
	assert.Equal(t, int64(1), stats.Deletes())
	assert.Equal(t, int64(2), stats.Events())
	assert.Equal(t, int64(3), stats.Size())
	assert.Equal(t, int64(4), stats.MaxSize())
}

func TestStoreWithMetrics(t *testing.T) {
	registry := metric.NewRegistry()
	mem, err := NewMemory(taskID)
	require.NoError(t, err)

	s, err := New[task](mem, WithName[task]("metered"), WithMetrics[task](registry))
	require.NoError(t, err)

	_, err = s.Add(context.Background(), task{ID: "1"})
	require.NoError(t, err)

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["store_core_mutations_total"])
	assert.True(t, names["store_core_size"])

	// A second store with the same name collides on registration
	_, err = New[task](mem, WithName[task]("metered"), WithMetrics[task](registry))
	require.Error(t, err)
}
