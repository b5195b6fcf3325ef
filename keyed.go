package joystore

import (
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"
)

// KeyedTable holds records in a string-keyed map. Each record supplies
// its own key through the extractor passed at construction; adding a
// second record with the same key overwrites the first.
type KeyedTable[T any] struct {
	mu      sync.RWMutex
	key     func(T) string
	codec   Codec[T]
	records map[string]T

	// memoized serialized snapshot, valid until the next mutation
	cached json.RawMessage
	valid  bool

	signals observerList
}

// NewKeyedTable creates an empty keyed table. The key extractor must
// return a stable key for every record the table will hold.
func NewKeyedTable[T any](key func(T) string, codec Codec[T]) *KeyedTable[T] {
	return &KeyedTable[T]{
		key:     key,
		codec:   codec,
		records: make(map[string]T),
	}
}

// Mode returns ModeKeyed
func (t *KeyedTable[T]) Mode() Mode {
	return ModeKeyed
}

// Len returns the number of records in the table
func (t *KeyedTable[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Add inserts the record under its own key, overwriting any record
// already stored there. Invalidates the serialization cache and
// notifies observers.
func (t *KeyedTable[T]) Add(record T) {
	t.mu.Lock()
	t.records[t.key(record)] = record
	t.valid = false
	t.mu.Unlock()

	t.signals.notify(Event{Type: EventTableChanged})
}

// Get returns the record stored under key. Pure read, no side effect.
func (t *KeyedTable[T]) Get(key string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	record, ok := t.records[key]
	return record, ok
}

// Set stores the record under the given key, regardless of what the
// key extractor would produce for it. Invalidates the cache and
// notifies observers.
func (t *KeyedTable[T]) Set(key string, record T) {
	t.mu.Lock()
	t.records[key] = record
	t.valid = false
	t.mu.Unlock()

	t.signals.notify(Event{Type: EventTableChanged})
}

// Delete removes the record stored under key and returns it. Returns
// false if no record was present; the cache stays valid in that case.
func (t *KeyedTable[T]) Delete(key string) (T, bool) {
	t.mu.Lock()
	record, ok := t.records[key]
	if ok {
		delete(t.records, key)
		t.valid = false
	}
	t.mu.Unlock()

	if ok {
		t.signals.notify(Event{Type: EventTableChanged})
	}
	return record, ok
}

// Keys returns all keys in sorted order
func (t *KeyedTable[T]) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Sorted(maps.Keys(t.records))
}

// All returns an iterator over key/record pairs in sorted key order
func (t *KeyedTable[T]) All() iter.Seq2[string, T] {
	return func(yield func(string, T) bool) {
		t.mu.RLock()
		defer t.mu.RUnlock()
		for _, key := range slices.Sorted(maps.Keys(t.records)) {
			if !yield(key, t.records[key]) {
				return
			}
		}
	}
}

// Serialize returns the table as a JSON object mapping key to record
// JSON. The result is cached; repeated calls without an intervening
// mutation return the same bytes without recomputation.
func (t *KeyedTable[T]) Serialize() (json.RawMessage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.valid {
		return t.cached, nil
	}

	out := make(map[string]json.RawMessage, len(t.records))
	for key, record := range t.records {
		raw, err := t.codec.Encode(record)
		if err != nil {
			return nil, fmt.Errorf("failed to encode record %q: %w", key, err)
		}
		out[key] = raw
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal keyed table: %w", err)
	}

	t.cached = data
	t.valid = true
	return t.cached, nil
}

// Ingest decodes a JSON object of key to record JSON and adds every
// entry to the table. A null or empty document ingests nothing.
func (t *KeyedTable[T]) Ingest(data json.RawMessage) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse keyed table data: %w", err)
	}

	t.mu.Lock()
	for key, raw := range entries {
		record, err := t.codec.Decode(raw)
		if err != nil {
			t.mu.Unlock()
			return fmt.Errorf("failed to decode record %q: %w", key, err)
		}
		t.records[key] = record
	}
	t.valid = false
	t.mu.Unlock()

	if len(entries) > 0 {
		t.signals.notify(Event{Type: EventTableChanged})
	}
	return nil
}

// AddObserver registers an observer to receive mutation events
func (t *KeyedTable[T]) AddObserver(observer Observer) {
	t.signals.add(observer)
}

// RemoveObserver unregisters an observer
func (t *KeyedTable[T]) RemoveObserver(observer Observer) {
	t.signals.remove(observer)
}
