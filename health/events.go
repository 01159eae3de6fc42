package health

import "sync"

// EventType names a scheduler notification.
type EventType string

const (
	// EventHealth carries a batch of summaries (batch checks and poll rounds).
	EventHealth EventType = "health"
	// EventHealthy carries one summary of a single check that succeeded.
	EventHealthy EventType = "healthy"
	// EventUnhealthy carries one summary of a single check that failed.
	EventUnhealthy EventType = "unhealthy"
	// EventStopped is emitted once when a poll session ends.
	EventStopped EventType = "stopped"
)

// Event is delivered to listeners.
type Event struct {
	Type EventType

	// Health holds the summaries; a single summary for healthy/unhealthy,
	// nothing for stopped.
	Health []Summary

	// Session is the poll session ID for poll events, empty otherwise.
	Session string
}

// Listener receives events synchronously on the emitting goroutine.
// Listeners must not block for long.
type Listener func(Event)

type listenerEntry struct {
	id int
	fn Listener
}

type emitter struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[EventType][]listenerEntry
}

// on registers fn and returns a function that removes it.
func (e *emitter) on(t EventType, fn Listener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.listeners == nil {
		e.listeners = make(map[EventType][]listenerEntry)
	}
	e.nextID++
	id := e.nextID
	e.listeners[t] = append(e.listeners[t], listenerEntry{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		entries := e.listeners[t]
		for i, entry := range entries {
			if entry.id == id {
				e.listeners[t] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

func (e *emitter) emit(ev Event) {
	e.mu.RLock()
	entries := make([]listenerEntry, len(e.listeners[ev.Type]))
	copy(entries, e.listeners[ev.Type])
	e.mu.RUnlock()

	for _, entry := range entries {
		entry.fn(ev)
	}
}
