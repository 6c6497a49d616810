// Package event defines the typed mutation events of the store hierarchy
// and the notifier that delivers them.
//
// Every successful mutation on a store produces Update values: Added,
// Updated (with a lazily computed structural diff), Deleted, or Batch
// (an ordered group dispatched as a single notification). Subscribers
// receive the full ordered batch from one logical operation via OnUpdate;
// live-tracking derived views consume the same events to maintain their
// cached data incrementally.
//
// Delivery ordering: a Notifier invokes subscribers in registration order
// and serializes event batches, so a Batch is never observed interleaved
// with events from another operation on the same store.
package event
