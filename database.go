package joystore

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leengari/joystore/internal/fileutil"
)

// defaultDocument is the content written when the backing file is
// first created.
const defaultDocument = `{"tables":{}}`

// document is the on-disk shape of the whole store: one JSON object
// holding every table's serialized form under its registered name.
type document struct {
	Tables map[string]json.RawMessage `json:"tables"`
}

// Options configures a Database
type Options struct {
	// Path is the filesystem location of the single backing file.
	Path string

	// AutosaveInterval is the cadence at which dirty state is written
	// back to disk while the database is started. Zero disables
	// autosave; callers then rely on explicit Save and the flush in
	// Close.
	AutosaveInterval time.Duration

	// Logger receives structured lifecycle logs. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Database owns the backing file and a registry of named tables whose
// combined contents are mirrored to that file as a single JSON
// document. The table registry is mutable only before Start; Close is
// idempotent and flushes pending changes.
//
// All mutations are expected from a single logical flow of control;
// concurrent use is serialized internally but the store is not a
// multi-writer database.
type Database struct {
	path     string
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex // guards lifecycle flags, registry and file handle
	tables  map[string]Table
	markers map[string]*dirtyMarker
	file    *os.File
	dirty   bool
	started bool
	closed  bool
	stop    chan struct{}

	// saveMu is the save reentrancy guard: held for the whole
	// serialize+write+truncate sequence. Claimed with TryLock so a
	// save that finds one in flight is a no-op, and Close can wait
	// out an outstanding save by acquiring it.
	saveMu sync.Mutex

	signals observerList
}

// dirtyMarker is the observer a Database installs on each registered
// table at AddTable time. A table mutation marks the database dirty;
// nothing flows the other way. The event is re-emitted to database
// observers with the table's registered name filled in.
type dirtyMarker struct {
	db   *Database
	name string
}

func (m *dirtyMarker) OnEvent(event Event) {
	if event.Type != EventTableChanged {
		return
	}
	m.db.markDirty()
	m.db.signals.notify(Event{Type: EventTableChanged, Table: m.name})
}

// New creates a Database for the given options. No file is touched
// until Start.
func New(opts Options) *Database {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Database{
		path:     opts.Path,
		interval: opts.AutosaveInterval,
		logger:   logger,
		tables:   make(map[string]Table),
		markers:  make(map[string]*dirtyMarker),
	}
}

// Path returns the location of the backing file
func (db *Database) Path() string {
	return db.path
}

// AddTable registers a table under the given name and installs the
// dirty-marking observer on it. Re-adding a name replaces the previous
// table and detaches its observer. Fails once the database has been
// started or closed.
func (db *Database) AddTable(name string, table Table) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	if db.started {
		return ErrAlreadyStarted
	}

	if old, ok := db.tables[name]; ok {
		old.RemoveObserver(db.markers[name])
	}

	marker := &dirtyMarker{db: db, name: name}
	table.AddObserver(marker)
	db.tables[name] = table
	db.markers[name] = marker
	return nil
}

// DeleteTable removes the table registered under name, detaches its
// observer and returns it. The second return is false when no table
// was registered under that name. Fails once the database has been
// started or closed.
func (db *Database) DeleteTable(name string) (Table, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, false, ErrClosed
	}
	if db.started {
		return nil, false, ErrAlreadyStarted
	}

	table, ok := db.tables[name]
	if !ok {
		return nil, false, nil
	}

	table.RemoveObserver(db.markers[name])
	delete(db.tables, name)
	delete(db.markers, name)
	return table, true, nil
}

// GetTable returns the table registered under name. Pure lookup,
// permitted in every lifecycle state.
func (db *Database) GetTable(name string) (Table, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	table, ok := db.tables[name]
	return table, ok
}

// HasTable reports whether a table is registered under name
func (db *Database) HasTable(name string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.tables[name]
	return ok
}

// AddObserver registers an observer for database lifecycle events
// (ready, saved, closing)
func (db *Database) AddObserver(observer Observer) {
	db.signals.add(observer)
}

// RemoveObserver unregisters an observer
func (db *Database) RemoveObserver(observer Observer) {
	db.signals.remove(observer)
}

// Start opens the backing file, creating and seeding it when missing,
// hydrates every registered table from the stored document, writes an
// initial snapshot and begins autosave scheduling. Starting twice, or
// after Close, fails.
func (db *Database) Start() error {
	opID := uuid.New().String()

	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return ErrClosed
	}
	if db.started {
		db.mu.Unlock()
		return ErrAlreadyStarted
	}
	db.mu.Unlock()

	exists, err := fileutil.Exists(db.path)
	if err != nil {
		return err
	}
	if !exists {
		if err := db.bootstrap(); err != nil {
			_ = db.Close()
			return err
		}
	}

	if err := fileutil.Readable(db.path); err != nil {
		return &AccessError{Op: "read", Path: db.path, Err: err}
	}
	if err := fileutil.Writable(db.path); err != nil {
		return &AccessError{Op: "write", Path: db.path, Err: err}
	}

	file, err := os.OpenFile(db.path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open database file %s: %w", db.path, err)
	}

	db.mu.Lock()
	db.file = file
	db.started = true
	tables := make(map[string]Table, len(db.tables))
	for name, table := range db.tables {
		tables[name] = table
	}
	db.mu.Unlock()

	data, err := io.ReadAll(file)
	if err != nil {
		db.abortStart()
		return fmt.Errorf("failed to read database file %s: %w", db.path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		db.abortStart()
		return fmt.Errorf("failed to parse database file %s: %w", db.path, err)
	}

	// Table names present on disk but not registered stay on disk
	// only until the next save; registered tables absent on disk
	// simply start empty.
	for name, table := range tables {
		raw, ok := doc.Tables[name]
		if !ok {
			continue
		}
		if err := table.Ingest(raw); err != nil {
			db.abortStart()
			return fmt.Errorf("failed to hydrate table %s: %w", name, err)
		}
		db.logger.Debug("table hydrated",
			slog.String("table", name),
			slog.Int("records", table.Len()),
			slog.String("op_id", opID),
		)
	}

	// Rewrite the freshly hydrated document in canonical form
	db.markDirty()
	if err := db.Save(); err != nil {
		db.abortStart()
		return fmt.Errorf("initial save failed: %w", err)
	}

	db.signals.notify(Event{Type: EventReady, OpID: opID})

	db.mu.Lock()
	if db.interval > 0 && db.stop == nil {
		db.stop = make(chan struct{})
		go db.autosaveLoop(db.stop)
	}
	db.mu.Unlock()

	db.logger.Info("database started",
		slog.String("path", db.path),
		slog.Int("table_count", len(tables)),
		slog.String("op_id", opID),
	)
	return nil
}

// bootstrap creates the backing file with owner read/write permission
// and seeds it with the default empty document. Each stage fails with
// a distinct InitError.
func (db *Database) bootstrap() error {
	file, err := os.OpenFile(db.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return &InitError{Stage: InitStageCreate, Path: db.path, Err: err}
	}

	if err := file.Chmod(0600); err != nil {
		_ = file.Close()
		return &InitError{Stage: InitStagePermission, Path: db.path, Err: err}
	}

	if _, err := file.WriteString(defaultDocument); err != nil {
		_ = file.Close()
		return &InitError{Stage: InitStageSeed, Path: db.path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &InitError{Stage: InitStageSeed, Path: db.path, Err: err}
	}

	db.logger.Info("created database file", slog.String("path", db.path))
	return nil
}

// abortStart unwinds a partially completed Start without flushing, so
// a failed hydration never overwrites the on-disk document. The
// database returns to its pre-Start state and Start may be retried.
func (db *Database) abortStart() {
	db.mu.Lock()
	if db.file != nil {
		_ = db.file.Close()
		db.file = nil
	}
	db.started = false
	db.dirty = false
	db.mu.Unlock()
}

// Save writes the full document to the backing file when unsaved
// changes exist. A save that finds nothing dirty, or one already in
// flight, is a no-op. The write starts at offset zero and the file is
// truncated to the new length, so a shrinking document leaves no
// trailing bytes from the previous save.
func (db *Database) Save() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	if !db.started {
		db.mu.Unlock()
		return ErrNotStarted
	}
	db.mu.Unlock()

	if !db.saveMu.TryLock() {
		return nil
	}
	defer db.saveMu.Unlock()

	return db.flush()
}

// flush performs the serialize+write+truncate sequence. Caller must
// hold saveMu. On failure the dirty flag is restored so the data is
// not lost to a later save.
func (db *Database) flush() error {
	db.mu.Lock()
	if !db.dirty || db.file == nil {
		db.mu.Unlock()
		return nil
	}
	db.dirty = false
	file := db.file
	tables := make(map[string]Table, len(db.tables))
	for name, table := range db.tables {
		tables[name] = table
	}
	db.mu.Unlock()

	doc := document{Tables: make(map[string]json.RawMessage, len(tables))}
	for name, table := range tables {
		raw, err := table.Serialize()
		if err != nil {
			db.markDirty()
			return fmt.Errorf("failed to serialize table %s: %w", name, err)
		}
		doc.Tables[name] = raw
	}

	buf, err := json.Marshal(doc)
	if err != nil {
		db.markDirty()
		return fmt.Errorf("failed to marshal database document: %w", err)
	}

	if _, err := file.WriteAt(buf, 0); err != nil {
		db.markDirty()
		return fmt.Errorf("failed to write database file %s: %w", db.path, err)
	}
	if err := file.Truncate(int64(len(buf))); err != nil {
		db.markDirty()
		return fmt.Errorf("failed to truncate database file %s: %w", db.path, err)
	}

	db.logger.Debug("database saved",
		slog.String("path", db.path),
		slog.Int("bytes", len(buf)),
		slog.Int("table_count", len(doc.Tables)),
	)
	db.signals.notify(Event{Type: EventSaved})
	return nil
}

// Close stops autosave, flushes any pending dirty state with a final
// save, releases the file handle and marks the database closed. Safe
// to call multiple times; later calls are no-ops.
func (db *Database) Close() error {
	opID := uuid.New().String()

	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	db.closed = true
	wasStarted := db.started
	stop := db.stop
	db.stop = nil
	db.mu.Unlock()

	db.signals.notify(Event{Type: EventClosing, OpID: opID})

	if stop != nil {
		close(stop)
	}

	var firstErr error
	if wasStarted {
		// Acquiring saveMu waits out any in-flight save before the
		// final flush; the handle is only released after both.
		db.saveMu.Lock()
		if err := db.flush(); err != nil {
			firstErr = err
		}
		db.saveMu.Unlock()
	}

	db.mu.Lock()
	if db.file != nil {
		if err := db.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close database file %s: %w", db.path, err)
		}
		db.file = nil
	}
	db.started = false
	db.mu.Unlock()

	db.logger.Info("database closed",
		slog.String("path", db.path),
		slog.String("op_id", opID),
	)
	return firstErr
}

// markDirty records that unsaved changes exist
func (db *Database) markDirty() {
	db.mu.Lock()
	db.dirty = true
	db.mu.Unlock()
}

// autosaveLoop saves dirty state at the configured cadence until the
// stop channel is closed at Close.
func (db *Database) autosaveLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(db.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := db.Save(); err != nil {
				db.logger.Error("autosave failed",
					slog.String("path", db.path),
					slog.Any("error", err),
				)
			}
		case <-stop:
			return
		}
	}
}
