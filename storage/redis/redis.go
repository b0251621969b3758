// Package redis provides a Redis-backed storage backend. Entries live under
// "<prefix><key>" so several clients can share one Redis database.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jmcleod/walicode/storage"
)

const defaultOpTimeout = 5 * time.Second

// Store implements storage.Backend using Redis.
type Store struct {
	client    *redis.Client
	prefix    string
	opTimeout time.Duration
}

var _ storage.Backend = (*Store)(nil)

// NewStore creates a Redis-based backend. prefix may be empty, in which case
// "walicode:" is used.
func NewStore(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "walicode:"
	}
	return &Store{client: client, prefix: prefix, opTimeout: defaultOpTimeout}
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.opTimeout)
}

func (s *Store) Put(key string, value []byte) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.Set(ctx, s.key(key), value, 0).Err()
}

func (s *Store) Get(key string) ([]byte, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	b, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
		}
		return nil, err
	}
	return b, nil
}

func (s *Store) Delete(key string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *Store) Clear() error {
	keys, err := s.scan()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) Keys() ([]string, error) {
	keys, err := s.scan()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, s.prefix))
	}
	return out, nil
}

// scan returns the full Redis keys under the prefix.
func (s *Store) scan() ([]string, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}
