package index

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - commands table
// 2 - chunks table, commands.chunk_id
const CurrentVersion = 2

// ErrVersion reports an index whose schema version cannot be used as is.
var ErrVersion = errors.New("unsupported index version")

// upgrade moves an index from Version-1 to Version.
type upgrade struct {
	Version int
	SQL     string
}

// upgrades must stay sorted by Version.
var upgrades = []upgrade{
	{Version: 2, SQL: `
		CREATE TABLE chunks (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			log_offset  INTEGER NOT NULL,
			length      INTEGER,
			ts_start    INTEGER,
			ts_end      INTEGER,
			digest      TEXT
		);
		CREATE UNIQUE INDEX idx_chunks_offset ON chunks(log_offset);
		ALTER TABLE commands ADD COLUMN chunk_id INTEGER REFERENCES chunks(id);
		CREATE INDEX idx_commands_chunk ON commands(chunk_id);
	`},
}

// Store is an open backup index.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the index at path for writing, creating it if needed. A fresh
// file is initialised from schema.sql; an older one is upgraded in place.
func Open(path string) (*Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	if err := initOrUpgrade(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare index %s: %w", path, err)
	}

	return &Store{db: db, path: path}, nil
}

// OpenExisting opens an index that must already exist at the current
// version. Nothing is created or upgraded.
func OpenExisting(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	version, err := userVersion(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if version != CurrentVersion {
		db.Close()
		return nil, fmt.Errorf("%w: %s is at version %d, want %d", ErrVersion, path, version, CurrentVersion)
	}

	return &Store{db: db, path: path}, nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to index: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the file the index lives in.
func (s *Store) Path() string {
	return s.path
}

// Version returns the schema version recorded in the file.
func (s *Store) Version(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

func userVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

// initOrUpgrade brings the schema to CurrentVersion inside one transaction.
func initOrUpgrade(db *sql.DB) error {
	version, err := userVersion(db)
	if err != nil {
		return err
	}
	if version == CurrentVersion {
		return nil
	}
	if version > CurrentVersion {
		return fmt.Errorf("%w: version %d is newer than %d", ErrVersion, version, CurrentVersion)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if version == 0 {
		if _, err := tx.Exec(schemaSQL); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
	} else {
		for _, u := range upgrades {
			if u.Version <= version {
				continue
			}
			if _, err := tx.Exec(u.SQL); err != nil {
				return fmt.Errorf("upgrade to v%d: %w", u.Version, err)
			}
		}
	}

	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", CurrentVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return tx.Commit()
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
