package joystore

import (
	"testing"
)

// MockObserver is a test observer that records events
type MockObserver struct {
	Events []Event
}

func (m *MockObserver) OnEvent(event Event) {
	m.Events = append(m.Events, event)
}

func TestTableAddNotifiesObservers(t *testing.T) {
	table := newUsersTable()
	observer := &MockObserver{}
	table.AddObserver(observer)

	table.Add(user{Key: "1", Name: "a"})

	if len(observer.Events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(observer.Events))
	}
	if observer.Events[0].Type != EventTableChanged {
		t.Errorf("Expected EventTableChanged, got %v", observer.Events[0].Type)
	}
	if observer.Events[0].Timestamp.IsZero() {
		t.Error("Expected timestamp to be set, got zero value")
	}
}

func TestTableSetAndDeleteNotify(t *testing.T) {
	table := newUsersTable()
	observer := &MockObserver{}
	table.AddObserver(observer)

	table.Set("1", user{Key: "1"})
	table.Delete("1")

	if len(observer.Events) != 2 {
		t.Errorf("Expected 2 events, got %d", len(observer.Events))
	}
}

func TestDeleteMissingKeyDoesNotNotify(t *testing.T) {
	table := newUsersTable()
	observer := &MockObserver{}
	table.AddObserver(observer)

	table.Delete("missing")

	if len(observer.Events) != 0 {
		t.Errorf("Expected no events for a no-op delete, got %d", len(observer.Events))
	}
}

func TestRemoveObserver(t *testing.T) {
	table := newUsersTable()
	observer := &MockObserver{}

	table.AddObserver(observer)
	table.RemoveObserver(observer)
	table.Add(user{Key: "1"})

	if len(observer.Events) != 0 {
		t.Errorf("Expected no events after removal, got %d", len(observer.Events))
	}
}

func TestNotifyWithMultipleObservers(t *testing.T) {
	table := NewIndexedTable(JSONCodec[user]())
	observer1 := &MockObserver{}
	observer2 := &MockObserver{}

	table.AddObserver(observer1)
	table.AddObserver(observer2)

	table.Add(user{Key: "1"})

	if len(observer1.Events) != 1 {
		t.Errorf("Observer1: Expected 1 event, got %d", len(observer1.Events))
	}
	if len(observer2.Events) != 1 {
		t.Errorf("Observer2: Expected 1 event, got %d", len(observer2.Events))
	}
}

func TestNotifyWithNoObservers(t *testing.T) {
	table := newUsersTable()

	// Should not panic
	table.Add(user{Key: "1"})
}

func TestIngestNotifiesOnce(t *testing.T) {
	source := newUsersTable()
	source.Add(user{Key: "1"})
	source.Add(user{Key: "2"})
	data, err := source.Serialize()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	table := newUsersTable()
	observer := &MockObserver{}
	table.AddObserver(observer)

	if err := table.Ingest(data); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	if len(observer.Events) != 1 {
		t.Errorf("Expected a single event for a bulk ingest, got %d", len(observer.Events))
	}
}
