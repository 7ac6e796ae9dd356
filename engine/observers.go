package engine

import (
	"sync"

	"github.com/google/uuid"

	"github.com/unitops/packml/packml"
)

// Observer is a state-change callback. Observers are invoked synchronously,
// in registration order, by whichever goroutine commits the transition —
// a command caller or the executor's worker. Callbacks must return promptly
// and must not issue engine commands synchronously; dispatch those from
// another goroutine instead.
type Observer func(state packml.State)

// ObserverHandle identifies a registered observer so func values can be
// removed again.
type ObserverHandle uuid.UUID

type observerEntry struct {
	id ObserverHandle
	fn Observer
}

// observerRegistry is an ordered list of observers with add/remove safe to
// call concurrently with an in-flight notify. Notification iterates a
// snapshot, so removing an observer mid-notify never skips or double-delivers
// to the others; the removed observer may still see the notification already
// in flight.
type observerRegistry struct {
	mu      sync.Mutex
	entries []observerEntry
}

func newObserverRegistry() *observerRegistry {
	return &observerRegistry{}
}

func (r *observerRegistry) add(fn Observer) ObserverHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := ObserverHandle(uuid.New())
	r.entries = append(r.entries, observerEntry{id: id, fn: fn})

	return id
}

func (r *observerRegistry) remove(id ObserverHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, entry := range r.entries {
		if entry.id == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)

			return true
		}
	}

	return false
}

func (r *observerRegistry) notify(state packml.State) {
	r.mu.Lock()
	snapshot := make([]observerEntry, len(r.entries))
	copy(snapshot, r.entries)
	r.mu.Unlock()

	for _, entry := range snapshot {
		entry.fn(state)
	}
}
