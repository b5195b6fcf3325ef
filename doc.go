// Package joystore is an embeddable, in-process data store: a set of
// named tables, each holding either an ordered sequence of records or
// a string-keyed map of records, mirrored to a single JSON file on
// disk.
//
// A Database owns the backing file and a registry of tables. Tables
// are registered before Start, which opens (or creates) the file and
// hydrates every registered table from the stored document. Mutations
// mark the database dirty; dirty state is written back by explicit
// Save calls, by the autosave ticker when configured, and by the final
// flush in Close. The file is fully rewritten on every save and
// truncated to the new length.
//
// The store assumes a single owning process and a single logical flow
// of control; it is not a multi-writer database and offers no query
// language, transactions or schema migration.
package joystore
