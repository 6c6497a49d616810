package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agubler/store/errors"
	"github.com/agubler/store/event"
	"github.com/agubler/store/patch"
	"github.com/agubler/store/query"
)

type task struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Priority int    `json:"priority"`
	Done     bool   `json:"done"`
}

func taskID(t task) string { return t.ID }

func taskIDs(items []task) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func seedTasks() []task {
	return []task{
		{ID: "1", Title: "write report", Priority: 2},
		{ID: "2", Title: "review code", Priority: 1},
		{ID: "3", Title: "ship release", Priority: 3},
	}
}

func TestNewMemoryValidation(t *testing.T) {
	t.Run("nil id extractor", func(t *testing.T) {
		_, err := NewMemory[task](nil)
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
	})

	t.Run("seed with empty id", func(t *testing.T) {
		_, err := NewMemory(taskID, WithSeed(task{Title: "no id"}))
		require.ErrorIs(t, err, errors.ErrEmptyID)
	})

	t.Run("seed with duplicate id", func(t *testing.T) {
		_, err := NewMemory(taskID, WithSeed(task{ID: "1"}, task{ID: "1"}))
		require.ErrorIs(t, err, errors.ErrDuplicateID)
	})

	t.Run("valid seed", func(t *testing.T) {
		mem, err := NewMemory(taskID, WithSeed(seedTasks()...))
		require.NoError(t, err)
		assert.Equal(t, 3, mem.Len())
	})
}

func TestMemoryAdd(t *testing.T) {
	mem, err := NewMemory(taskID)
	require.NoError(t, err)
	ctx := context.Background()

	e, err := mem.Add(ctx, task{ID: "1", Title: "first"})
	require.NoError(t, err)
	assert.Equal(t, event.Added, e.Type())
	assert.Equal(t, "1", e.ID())
	assert.Equal(t, 0, e.Index())

	_, err = mem.Add(ctx, task{ID: "1", Title: "again"})
	require.ErrorIs(t, err, errors.ErrDuplicateID)
	assert.Equal(t, 1, mem.Len())

	_, err = mem.Add(ctx, task{Title: "missing id"})
	require.ErrorIs(t, err, errors.ErrEmptyID)
}

func TestMemoryGeneratedIDs(t *testing.T) {
	next := 0
	mem, err := NewMemory(taskID,
		WithIDAssigner(func(item task, id string) task {
			item.ID = id
			return item
		}),
		WithIDSource[task](func() string {
			next++
			return map[int]string{1: "gen-1", 2: "gen-2"}[next]
		}))
	require.NoError(t, err)

	e, err := mem.Add(context.Background(), task{Title: "auto"})
	require.NoError(t, err)
	assert.Equal(t, "gen-1", e.ID())
	stored, _ := e.Item()
	assert.Equal(t, "gen-1", stored.ID)
}

func TestMemoryGet(t *testing.T) {
	mem, err := NewMemory(taskID, WithSeed(seedTasks()...))
	require.NoError(t, err)
	ctx := context.Background()

	items, err := mem.Get(ctx, []string{"3", "1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1"}, taskIDs(items))

	_, err = mem.Get(ctx, []string{"1", "nope"})
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestMemoryPutReplace(t *testing.T) {
	mem, err := NewMemory(taskID, WithSeed(seedTasks()...))
	require.NoError(t, err)
	ctx := context.Background()

	events, err := mem.Put(ctx, PutItem(task{ID: "2", Title: "review code", Done: true}))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.Updated, events[0].Type())
	assert.Equal(t, 1, events[0].Index())
	assert.Equal(t, 1, events[0].PreviousIndex())

	items, err := mem.Get(ctx, []string{"2"})
	require.NoError(t, err)
	assert.True(t, items[0].Done)

	_, err = mem.Put(ctx, PutItem(task{ID: "nope", Title: "x"}))
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestMemoryPutPatch(t *testing.T) {
	mem, err := NewMemory(taskID, WithSeed(seedTasks()...))
	require.NoError(t, err)
	ctx := context.Background()

	events, err := mem.Put(ctx, PutPatch[task]("1", patch.Set("priority", 9)))
	require.NoError(t, err)
	require.Len(t, events, 1)

	diff, err := events[0].Diff()
	require.NoError(t, err)
	assert.Equal(t, "set(priority,9)", diff.String())

	items, err := mem.Get(ctx, []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, 9, items[0].Priority)
	assert.Equal(t, "write report", items[0].Title)
}

func TestMemoryPutPatchAtomicPerRequest(t *testing.T) {
	mem, err := NewMemory(taskID, WithSeed(seedTasks()...))
	require.NoError(t, err)

	// Second entry fails to resolve, first entry must not apply
	req := PutPatchSet[task](
		PatchEntry{ID: "1", Patch: patch.New(patch.Set("priority", 9))},
		PatchEntry{ID: "nope", Patch: patch.New(patch.Set("priority", 1))},
	)
	_, err = mem.Put(context.Background(), req)
	require.ErrorIs(t, err, errors.ErrNotFound)

	items, err := mem.Get(context.Background(), []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, 2, items[0].Priority)
}

func TestMemoryPutPatchCannotChangeID(t *testing.T) {
	mem, err := NewMemory(taskID, WithSeed(seedTasks()...))
	require.NoError(t, err)

	_, err = mem.Put(context.Background(), PutPatch[task]("1", patch.Set("id", "7")))
	require.ErrorIs(t, err, errors.ErrInvalidPatch)
}

func TestMemoryDeleteReindexes(t *testing.T) {
	mem, err := NewMemory(taskID, WithSeed(seedTasks()...))
	require.NoError(t, err)
	ctx := context.Background()

	e, err := mem.Delete(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, event.Deleted, e.Type())
	assert.Equal(t, 0, e.PreviousIndex())

	items, err := mem.Fetch(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, taskIDs(items))

	// Remaining items occupy contiguous positions
	upd, err := mem.Put(ctx, PutItem(task{ID: "3", Title: "ship release", Done: true}))
	require.NoError(t, err)
	assert.Equal(t, 1, upd[0].Index())

	_, err = mem.Delete(ctx, "1")
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestMemoryFetchWithQueries(t *testing.T) {
	mem, err := NewMemory(taskID, WithSeed(seedTasks()...))
	require.NoError(t, err)

	items, err := mem.Fetch(context.Background(), []query.Query[task]{
		query.Match[task]("priority", query.OpGte, 2),
		query.SortBy[task]("priority", true),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1"}, taskIDs(items))
}

func TestMemoryContextCancelled(t *testing.T) {
	mem, err := NewMemory(taskID, WithSeed(seedTasks()...))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = mem.Fetch(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}
