package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agubler/store/patch"
)

type item struct {
	ID string `json:"id"`
	V  int    `json:"v"`
}

func TestUpdateAccessors(t *testing.T) {
	added := NewAdded("1", item{ID: "1", V: 1}, 0)
	assert.Equal(t, Added, added.Type())
	assert.Equal(t, "1", added.ID())
	assert.Equal(t, 0, added.Index())
	assert.Equal(t, -1, added.PreviousIndex())
	got, ok := added.Item()
	require.True(t, ok)
	assert.Equal(t, 1, got.V)

	deleted := NewDeleted[item]("2", 3)
	assert.Equal(t, Deleted, deleted.Type())
	assert.Equal(t, -1, deleted.Index())
	assert.Equal(t, 3, deleted.PreviousIndex())
	_, ok = deleted.Item()
	assert.False(t, ok)
}

func TestUpdatedLazyDiff(t *testing.T) {
	before := item{ID: "1", V: 1}
	after := item{ID: "1", V: 9}

	updated := NewUpdated("1", after, 0, 0, before, after)

	p, err := updated.Diff()
	require.NoError(t, err)
	assert.Equal(t, "set(v,9)", p.String())

	// A second call returns the cached patch
	again, err := updated.Diff()
	require.NoError(t, err)
	assert.Same(t, p, again)
}

func TestUpdatedDiffSharedAcrossCopies(t *testing.T) {
	updated := NewUpdated("1", item{ID: "1", V: 2}, 0, 0, item{ID: "1", V: 1}, item{ID: "1", V: 2})
	copied := updated

	var wg sync.WaitGroup
	results := make([]*patch.Patch, 2)
	for i, u := range []Update[item]{updated, copied} {
		wg.Add(1)
		go func(i int, u Update[item]) {
			defer wg.Done()
			results[i], _ = u.Diff()
		}(i, u)
	}
	wg.Wait()

	assert.Same(t, results[0], results[1], "copies share one lazily computed diff")
}

func TestUpdatedWithDiff(t *testing.T) {
	submitted := patch.New(patch.Set("v", 9))
	updated := NewUpdatedWithDiff("1", item{ID: "1", V: 9}, 0, 0, submitted)

	p, err := updated.Diff()
	require.NoError(t, err)
	assert.Same(t, submitted, p)
}

func TestDiffOnNonUpdate(t *testing.T) {
	p, err := NewAdded("1", item{ID: "1"}, 0).Diff()
	require.NoError(t, err)
	assert.True(t, p.IsEmpty())
}

func TestBatchAndFlatten(t *testing.T) {
	children := []Update[item]{
		NewAdded("1", item{ID: "1"}, 0),
		NewDeleted[item]("2", 1),
	}
	batch := NewBatch(children)
	assert.Equal(t, Batch, batch.Type())
	assert.Len(t, batch.Children(), 2)

	nested := NewBatch([]Update[item]{batch, NewAdded("3", item{ID: "3"}, 1)})
	flat := Flatten([]Update[item]{nested})
	require.Len(t, flat, 3)
	assert.Equal(t, Added, flat[0].Type())
	assert.Equal(t, Deleted, flat[1].Type())
	assert.Equal(t, "3", flat[2].ID())
}

func TestNotifierDeliveryOrder(t *testing.T) {
	n := NewNotifier[item]()

	var order []string
	n.SubscribeFunc(func(events []Update[item]) {
		order = append(order, "first")
	})
	n.SubscribeFunc(func(events []Update[item]) {
		order = append(order, "second")
	})

	n.Publish([]Update[item]{NewAdded("1", item{ID: "1"}, 0)})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestNotifierUnsubscribe(t *testing.T) {
	n := NewNotifier[item]()

	calls := 0
	sub := n.SubscribeFunc(func([]Update[item]) { calls++ })
	assert.Equal(t, 1, n.Len())

	n.Publish([]Update[item]{NewAdded("1", item{ID: "1"}, 0)})
	assert.Equal(t, 1, calls)

	assert.True(t, n.Unsubscribe(sub))
	assert.False(t, n.Unsubscribe(sub), "double unsubscribe reports false")
	assert.Equal(t, 0, n.Len())

	n.Publish([]Update[item]{NewAdded("2", item{ID: "2"}, 1)})
	assert.Equal(t, 1, calls)
}

func TestNotifierDropsEmptyBatches(t *testing.T) {
	n := NewNotifier[item]()
	calls := 0
	n.SubscribeFunc(func([]Update[item]) { calls++ })

	n.Publish(nil)
	n.Publish([]Update[item]{})
	assert.Equal(t, 0, calls)
}

func TestNotifierSubscriberObject(t *testing.T) {
	n := NewNotifier[item]()
	rec := &recordingSubscriber{}
	n.Subscribe(rec)

	batch := []Update[item]{NewAdded("1", item{ID: "1"}, 0), NewDeleted[item]("2", 1)}
	n.Publish(batch)

	require.Len(t, rec.batches, 1)
	assert.Len(t, rec.batches[0], 2)
}

type recordingSubscriber struct {
	batches [][]Update[item]
}

func (r *recordingSubscriber) OnUpdate(events []Update[item]) {
	r.batches = append(r.batches, events)
}
