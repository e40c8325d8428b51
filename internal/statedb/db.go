package statedb

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/state"
)

//go:embed schema.sql
var schemaSQL string

// connPragmas are applied to every connection before the schema.
var connPragmas = []struct{ name, value string }{
	{"journal_mode", "WAL"},
	{"synchronous", "NORMAL"},
	{"busy_timeout", "5000"},
}

// migrations upgrade a records database one user_version at a time;
// migrations[i] moves version i to i+1.
var migrations = []func(*sql.Tx) error{
	// v1: per-type counts (CountByType, bpstate show --summary) read the
	// index instead of scanning payloads.
	func(tx *sql.Tx) error {
		_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_records_type ON records(type)`)
		return err
	},
}

// DB is a state.Persister backed by the records table.
//
// Thread-safety: the pool holds a single connection, so calls are
// serialized by database/sql.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens the records database at path, creating it when missing, and
// brings its schema up to date. Reopening an up-to-date database changes
// nothing.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open state database %s: %w", path, err)
	}
	// One writer: the game. A second connection would only contend for the lock.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	d := &DB{db: conn, path: path}
	if err := d.prepare(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open state database %s: %w", path, err)
	}
	return d, nil
}

func (d *DB) prepare() error {
	if err := d.db.Ping(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for _, p := range connPragmas {
		if _, err := d.db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("set %s: %w", p.name, err)
		}
	}
	if _, err := d.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}
	return d.migrate()
}

// migrate applies every migration past the stored user_version, each in its
// own transaction together with the version bump.
func (d *DB) migrate() error {
	version, err := d.SchemaVersion()
	if err != nil {
		return err
	}
	for v := version; v < len(migrations); v++ {
		tx, err := d.db.Begin()
		if err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if err := migrations[v](tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}
	return nil
}

// SchemaVersion returns the records schema version stored in user_version.
func (d *DB) SchemaVersion() (int, error) {
	var version int
	if err := d.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// Close closes the database.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Load reads every record, ordered by name.
func (d *DB) Load() (map[string]state.Record, error) {
	rows, err := d.db.Query(`SELECT name, payload, type FROM records ORDER BY name`)
	if err != nil {
		return nil, state.NewIOError("read", d.path, err)
	}
	defer rows.Close()

	records := make(map[string]state.Record)
	for rows.Next() {
		var rec state.Record
		var typ string
		if err := rows.Scan(&rec.Name, &rec.Payload, &typ); err != nil {
			return nil, state.NewMalformedError("scan record", err)
		}
		rec.Type = state.TypeName(typ)
		records[rec.Name] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, state.NewIOError("read", d.path, err)
	}
	return records, nil
}

// Save replaces the stored record set with records.
func (d *DB) Save(records map[string]state.Record) error {
	tx, err := d.db.Begin()
	if err != nil {
		return state.NewIOError("begin", d.path, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM records`); err != nil {
		return state.NewIOError("clear", d.path, err)
	}
	insert, err := tx.Prepare(`INSERT INTO records (name, payload, type) VALUES (?, ?, ?)`)
	if err != nil {
		return state.NewIOError("prepare", d.path, err)
	}
	defer insert.Close()

	for name, rec := range records {
		if _, err := insert.Exec(name, rec.Payload, string(rec.Type)); err != nil {
			return state.NewIOError("write", d.path, fmt.Errorf("record %q: %w", name, err))
		}
	}
	if err := tx.Commit(); err != nil {
		return state.NewIOError("commit", d.path, err)
	}
	return nil
}

// CountByType returns how many records carry each type tag.
func (d *DB) CountByType() (map[state.TypeName]int, error) {
	rows, err := d.db.Query(`SELECT type, COUNT(*) FROM records GROUP BY type`)
	if err != nil {
		return nil, state.NewIOError("count", d.path, err)
	}
	defer rows.Close()

	counts := make(map[state.TypeName]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, state.NewIOError("count", d.path, err)
		}
		counts[state.TypeName(typ)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, state.NewIOError("count", d.path, err)
	}
	return counts, nil
}

// pragma reads a single PRAGMA value.
func (d *DB) pragma(name string) (string, error) {
	var v string
	if err := d.db.QueryRow("PRAGMA " + name).Scan(&v); err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return v, nil
}
