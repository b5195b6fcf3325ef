package joystore

import (
	"sync"
	"time"
)

// EventType represents lifecycle phases of a store and its tables
type EventType string

const (
	// EventTableChanged is emitted by a table after any mutation.
	// It carries no payload; the owning Database uses it to mark
	// itself dirty.
	EventTableChanged EventType = "table_changed"

	// EventReady is emitted by the Database once Start has hydrated
	// all tables and written the initial snapshot.
	EventReady EventType = "ready"

	// EventSaved is emitted after every successful save.
	EventSaved EventType = "saved"

	// EventClosing is emitted at the beginning of Close, before the
	// final flush.
	EventClosing EventType = "closing"
)

// Event represents a lifecycle event in the store
type Event struct {
	Type      EventType
	OpID      string    // ID of the lifecycle operation for tracing (empty for table events)
	Table     string    // Table name for table events (empty for database events)
	Timestamp time.Time // When the event occurred
}

// Observer interface for event subscribers
// Observers receive events at major lifecycle phases
type Observer interface {
	OnEvent(event Event)
}

// observerList holds registered observers and dispatches events to them.
// Registration and dispatch are safe for concurrent use; dispatch runs
// outside any table or database lock so observers may call back into
// the store.
type observerList struct {
	mu        sync.Mutex
	observers []Observer
}

func (l *observerList) add(observer Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, observer)
}

func (l *observerList) remove(observer Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, o := range l.observers {
		if o == observer {
			l.observers = append(l.observers[:i], l.observers[i+1:]...)
			return
		}
	}
}

func (l *observerList) notify(event Event) {
	event.Timestamp = time.Now()

	l.mu.Lock()
	targets := make([]Observer, len(l.observers))
	copy(targets, l.observers)
	l.mu.Unlock()

	for _, observer := range targets {
		observer.OnEvent(event)
	}
}
