package event

import (
	"sync"
)

// Subscriber receives the full ordered batch of updates produced by one
// logical store operation.
type Subscriber[T any] interface {
	OnUpdate(events []Update[T])
}

// SubscriberFunc adapts a plain function to the Subscriber interface
type SubscriberFunc[T any] func(events []Update[T])

// OnUpdate implements Subscriber
func (f SubscriberFunc[T]) OnUpdate(events []Update[T]) {
	f(events)
}

// Subscription identifies a registered subscriber for later removal
type Subscription uint64

// Notifier fans one store's mutation events out to its subscribers.
// Delivery is ordered: subscribers are invoked in registration order, one
// event batch at a time, and a batch is never interleaved with another
// batch from the same notifier.
type Notifier[T any] struct {
	mu          sync.Mutex
	subscribers []subscription[T]
	nextID      Subscription

	// deliverMu serializes Publish calls so subscribers observe event
	// batches in completion order
	deliverMu sync.Mutex
}

type subscription[T any] struct {
	id         Subscription
	subscriber Subscriber[T]
}

// NewNotifier creates an empty notifier
func NewNotifier[T any]() *Notifier[T] {
	return &Notifier[T]{}
}

// Subscribe registers a subscriber and returns its subscription handle
func (n *Notifier[T]) Subscribe(s Subscriber[T]) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	n.subscribers = append(n.subscribers, subscription[T]{id: n.nextID, subscriber: s})
	return n.nextID
}

// SubscribeFunc registers a plain function handler
func (n *Notifier[T]) SubscribeFunc(f func(events []Update[T])) Subscription {
	return n.Subscribe(SubscriberFunc[T](f))
}

// Unsubscribe removes a subscriber. Returns false if the subscription is
// unknown or already removed.
func (n *Notifier[T]) Unsubscribe(id Subscription) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, sub := range n.subscribers {
		if sub.id == id {
			n.subscribers = append(n.subscribers[:i], n.subscribers[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered subscribers
func (n *Notifier[T]) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subscribers)
}

// Publish delivers one ordered event batch to every subscriber. Empty
// batches are dropped.
func (n *Notifier[T]) Publish(events []Update[T]) {
	if len(events) == 0 {
		return
	}

	n.mu.Lock()
	snapshot := make([]subscription[T], len(n.subscribers))
	copy(snapshot, n.subscribers)
	n.mu.Unlock()

	n.deliverMu.Lock()
	defer n.deliverMu.Unlock()
	for _, sub := range snapshot {
		sub.subscriber.OnUpdate(events)
	}
}
