// Package store is the SQLite representation of compiled translation units.
// A snapshot payload is one such database holding a single unit.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is bumped whenever schemaDDL changes incompatibly.
const SchemaVersion = 1

// Store is the SQLite data access layer for the unit tables.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	return open(dbPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
}

// OpenReadOnly opens an existing database that nothing else writes to.
func OpenReadOnly(dbPath string) (*Store, error) {
	return open("file:" + dbPath + "?mode=ro&immutable=1&_foreign_keys=ON")
}

func open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Checkpoint folds the write-ahead log into the main database file and
// leaves WAL mode, so the file alone holds every committed row and can be
// opened with OpenReadOnly.
func (s *Store) Checkpoint() error {
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if _, err := s.db.Exec("PRAGMA journal_mode=DELETE"); err != nil {
		return fmt.Errorf("checkpoint: journal mode: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS units (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  language        TEXT NOT NULL,
  standard        TEXT NOT NULL,
  fingerprint     TEXT,
  indexed_at      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS symbols (
  id              INTEGER PRIMARY KEY,
  unit_id         INTEGER NOT NULL REFERENCES units(id),
  name            TEXT NOT NULL,
  qualified_name  TEXT NOT NULL,
  kind            TEXT NOT NULL,
  visibility      TEXT,
  modifiers       TEXT,
  type_expr       TEXT,
  value_expr      TEXT,
  signature_hash  TEXT,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER,
  parent_symbol_id INTEGER REFERENCES symbols(id)
);

CREATE TABLE IF NOT EXISTS function_parameters (
  id              INTEGER PRIMARY KEY,
  symbol_id       INTEGER NOT NULL REFERENCES symbols(id),
  name            TEXT,
  ordinal         INTEGER NOT NULL,
  type_expr       TEXT,
  has_default     BOOLEAN DEFAULT FALSE,
  default_expr    TEXT,
  is_variadic     BOOLEAN DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS type_parameters (
  id              INTEGER PRIMARY KEY,
  symbol_id       INTEGER NOT NULL REFERENCES symbols(id),
  name            TEXT NOT NULL,
  ordinal         INTEGER NOT NULL,
  param_kind      TEXT DEFAULT 'type',
  default_expr    TEXT
);

CREATE TABLE IF NOT EXISTS bases (
  id              INTEGER PRIMARY KEY,
  symbol_id       INTEGER NOT NULL REFERENCES symbols(id),
  name            TEXT NOT NULL,
  ordinal         INTEGER NOT NULL,
  access          TEXT,
  is_virtual      BOOLEAN DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS includes (
  id              INTEGER PRIMARY KEY,
  unit_id         INTEGER NOT NULL REFERENCES units(id),
  path            TEXT NOT NULL,
  is_system       BOOLEAN DEFAULT FALSE,
  line            INTEGER
);

CREATE TABLE IF NOT EXISTS macros (
  id              INTEGER PRIMARY KEY,
  unit_id         INTEGER NOT NULL REFERENCES units(id),
  name            TEXT NOT NULL,
  value           TEXT,
  params          TEXT,
  function_like   BOOLEAN DEFAULT FALSE,
  origin          TEXT NOT NULL,
  line            INTEGER
);

CREATE INDEX IF NOT EXISTS idx_symbols_unit ON symbols(unit_id);
CREATE INDEX IF NOT EXISTS idx_symbols_qualified_name ON symbols(qualified_name);
CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols(kind);
CREATE INDEX IF NOT EXISTS idx_symbols_parent ON symbols(parent_symbol_id);
CREATE INDEX IF NOT EXISTS idx_function_params_symbol ON function_parameters(symbol_id);
CREATE INDEX IF NOT EXISTS idx_type_params_symbol ON type_parameters(symbol_id);
CREATE INDEX IF NOT EXISTS idx_bases_symbol ON bases(symbol_id);
CREATE INDEX IF NOT EXISTS idx_includes_unit ON includes(unit_id);
CREATE INDEX IF NOT EXISTS idx_macros_unit ON macros(unit_id);
`

// DeleteUnitData transactionally removes a unit and everything hanging off
// it. Deletes in reverse-dependency order to respect FK constraints.
func (s *Store) DeleteUnitData(unitID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	const bySymbol = "symbol_id IN (SELECT id FROM symbols WHERE unit_id = ?)"
	for _, q := range []string{
		"DELETE FROM bases WHERE " + bySymbol,
		"DELETE FROM type_parameters WHERE " + bySymbol,
		"DELETE FROM function_parameters WHERE " + bySymbol,
		"DELETE FROM includes WHERE unit_id = ?",
		"DELETE FROM macros WHERE unit_id = ?",
	} {
		if _, err := tx.Exec(q, unitID); err != nil {
			return fmt.Errorf("delete unit children: %w", err)
		}
	}
	// Children before parents.
	if _, err := tx.Exec("DELETE FROM symbols WHERE unit_id = ? AND parent_symbol_id IS NOT NULL", unitID); err != nil {
		return fmt.Errorf("delete nested symbols: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM symbols WHERE unit_id = ?", unitID); err != nil {
		return fmt.Errorf("delete symbols: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM units WHERE id = ?", unitID); err != nil {
		return fmt.Errorf("delete unit: %w", err)
	}
	return tx.Commit()
}
