package joystore

import (
	"encoding/json"
	"fmt"
	"iter"
	"sync"
)

// IndexedTable holds records in insertion order, accessed by position.
type IndexedTable[T any] struct {
	mu      sync.RWMutex
	codec   Codec[T]
	records []T

	cached json.RawMessage
	valid  bool

	signals observerList
}

// NewIndexedTable creates an empty indexed table
func NewIndexedTable[T any](codec Codec[T]) *IndexedTable[T] {
	return &IndexedTable[T]{codec: codec}
}

// Mode returns ModeIndexed
func (t *IndexedTable[T]) Mode() Mode {
	return ModeIndexed
}

// Len returns the number of records in the table
func (t *IndexedTable[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Add appends the record to the sequence. Invalidates the
// serialization cache and notifies observers.
func (t *IndexedTable[T]) Add(record T) {
	t.mu.Lock()
	t.records = append(t.records, record)
	t.valid = false
	t.mu.Unlock()

	t.signals.notify(Event{Type: EventTableChanged})
}

// Get returns the record at position i, or false if i is out of range.
// Pure read, no side effect.
func (t *IndexedTable[T]) Get(i int) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i < 0 || i >= len(t.records) {
		var zero T
		return zero, false
	}
	return t.records[i], true
}

// Set overwrites the record at position i. Returns false without
// mutating anything if i is out of range.
func (t *IndexedTable[T]) Set(i int, record T) bool {
	t.mu.Lock()
	if i < 0 || i >= len(t.records) {
		t.mu.Unlock()
		return false
	}
	t.records[i] = record
	t.valid = false
	t.mu.Unlock()

	t.signals.notify(Event{Type: EventTableChanged})
	return true
}

// Delete removes the record at position i and shifts every later
// record one position down. Returns false if i is out of range.
func (t *IndexedTable[T]) Delete(i int) (T, bool) {
	t.mu.Lock()
	if i < 0 || i >= len(t.records) {
		t.mu.Unlock()
		var zero T
		return zero, false
	}
	record := t.records[i]
	t.records = append(t.records[:i], t.records[i+1:]...)
	t.valid = false
	t.mu.Unlock()

	t.signals.notify(Event{Type: EventTableChanged})
	return record, true
}

// All returns an iterator over position/record pairs in sequence order
func (t *IndexedTable[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		t.mu.RLock()
		defer t.mu.RUnlock()
		for i, record := range t.records {
			if !yield(i, record) {
				return
			}
		}
	}
}

// Serialize returns the table as a JSON array in sequence order. The
// result is cached; repeated calls without an intervening mutation
// return the same bytes without recomputation.
func (t *IndexedTable[T]) Serialize() (json.RawMessage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.valid {
		return t.cached, nil
	}

	out := make([]json.RawMessage, len(t.records))
	for i, record := range t.records {
		raw, err := t.codec.Encode(record)
		if err != nil {
			return nil, fmt.Errorf("failed to encode record at %d: %w", i, err)
		}
		out[i] = raw
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal indexed table: %w", err)
	}

	t.cached = data
	t.valid = true
	return t.cached, nil
}

// Ingest decodes a JSON array of record JSON and appends every entry
// to the table in order. A null or empty document ingests nothing.
func (t *IndexedTable[T]) Ingest(data json.RawMessage) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse indexed table data: %w", err)
	}

	t.mu.Lock()
	for i, raw := range entries {
		record, err := t.codec.Decode(raw)
		if err != nil {
			t.mu.Unlock()
			return fmt.Errorf("failed to decode record at %d: %w", i, err)
		}
		t.records = append(t.records, record)
	}
	t.valid = false
	t.mu.Unlock()

	if len(entries) > 0 {
		t.signals.notify(Event{Type: EventTableChanged})
	}
	return nil
}

// AddObserver registers an observer to receive mutation events
func (t *IndexedTable[T]) AddObserver(observer Observer) {
	t.signals.add(observer)
}

// RemoveObserver unregisters an observer
func (t *IndexedTable[T]) RemoveObserver(observer Observer) {
	t.signals.remove(observer)
}
