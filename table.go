package joystore

import "encoding/json"

// Mode identifies how a table stores its records
type Mode string

const (
	// ModeKeyed tables hold records in a string-keyed map; each record
	// supplies its own key through the table's key extractor.
	ModeKeyed Mode = "keyed"

	// ModeIndexed tables hold records in insertion order and are
	// accessed by position.
	ModeIndexed Mode = "indexed"
)

// Table is the contract the Database needs from a table: the ability to
// produce its serialized form for a save, to ingest stored JSON during
// Start, and to signal mutations to observers.
//
// The concrete implementations are KeyedTable and IndexedTable.
type Table interface {
	// Mode returns the storage mode, fixed at construction.
	Mode() Mode

	// Len returns the number of records currently held.
	Len() int

	// Serialize returns the table's contents converted through the
	// codec's Encode: a JSON object for keyed tables, a JSON array for
	// indexed tables. The result is cached until the next mutation;
	// callers must not modify the returned bytes.
	Serialize() (json.RawMessage, error)

	// Ingest converts every entry of the given JSON collection through
	// the codec's Decode and adds it to the table. A null or empty
	// collection is accepted and ingests nothing. Used by
	// Database.Start to hydrate from disk.
	Ingest(data json.RawMessage) error

	// AddObserver registers an observer for mutation events
	AddObserver(observer Observer)

	// RemoveObserver unregisters an observer
	RemoveObserver(observer Observer)
}

// Codec converts between a table's record type and its JSON form.
// Both functions must be pure: no side effects, no retained references.
type Codec[T any] struct {
	Decode func(data json.RawMessage) (T, error)
	Encode func(record T) (json.RawMessage, error)
}

// JSONCodec returns a Codec backed by encoding/json. It is the right
// choice whenever the record type marshals the way it should be stored.
func JSONCodec[T any]() Codec[T] {
	return Codec[T]{
		Decode: func(data json.RawMessage) (T, error) {
			var record T
			err := json.Unmarshal(data, &record)
			return record, err
		},
		Encode: func(record T) (json.RawMessage, error) {
			return json.Marshal(record)
		},
	}
}
