// Package bbolt provides a BBolt-backed storage backend.
package bbolt

import (
	"fmt"

	"github.com/jmcleod/walicode/storage"
	"go.etcd.io/bbolt"
)

// Store implements storage.Backend on one bucket of a BBolt database.
// Several Stores may share a database, one per namespace.
type Store struct {
	db     *bbolt.DB
	bucket []byte
	owned  bool
}

var _ storage.Backend = (*Store)(nil)

// NewStore returns a Store over the named bucket of db. The caller keeps
// ownership of db.
func NewStore(db *bbolt.DB, bucket string) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating bucket %s: %w", bucket, err)
	}
	return &Store{db: db, bucket: []byte(bucket)}, nil
}

// Open opens a BBolt database at path for use by Stores. Pass nil options
// for the defaults.
func Open(path string, options *bbolt.Options) (*bbolt.DB, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return db, nil
}

// NewStoreFromFile opens a BBolt database at path and returns a Store over
// bucket that owns the database.
func NewStoreFromFile(path, bucket string, options *bbolt.Options) (*Store, error) {
	db, err := Open(path, options)
	if err != nil {
		return nil, err
	}
	s, err := NewStore(db, bucket)
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
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), value)
	})
}

func (s *Store) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(s.bucket).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%s: %w", key, storage.ErrNotFound)
		}
		// bbolt memory is only valid inside the transaction.
		value = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Store) Delete(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

func (s *Store) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(s.bucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(s.bucket)
		return err
	})
}

func (s *Store) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}
