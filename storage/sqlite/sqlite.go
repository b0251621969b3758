// Package sqlite provides a SQLite-backed storage backend using the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/jmcleod/walicode/storage"
	_ "modernc.org/sqlite"
)

var namespacePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store implements storage.Backend on one table of a SQLite database.
type Store struct {
	db    *sql.DB
	table string
	owned bool
}

var _ storage.Backend = (*Store)(nil)

// Open opens the SQLite database at dsn. Use ":memory:" for a private
// in-memory database.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers, which SQLite requires anyway.
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewStore returns a Store keeping its entries in the table named after
// namespace. The caller keeps ownership of db.
func NewStore(db *sql.DB, namespace string) (*Store, error) {
	if !namespacePattern.MatchString(namespace) {
		return nil, fmt.Errorf("invalid namespace %q", namespace)
	}
	table := "kv_" + namespace
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS ` + table + ` (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("ensuring table %s: %w", table, err)
	}
	return &Store{db: db, table: table}, nil
}

// NewStoreFromFile opens the database at dsn and returns a Store over
// namespace that owns the database.
func NewStoreFromFile(dsn, namespace string) (*Store, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	s, err := NewStore(db, namespace)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// Close closes the underlying database if the Store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Put(key string, value []byte) error {
	_, err := s.db.Exec(`INSERT INTO `+s.table+` (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (s *Store) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM `+s.table+` WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Store) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM `+s.table+` WHERE key = ?`, key)
	return err
}

func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM ` + s.table)
	return err
}

func (s *Store) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM ` + s.table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
