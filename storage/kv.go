package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
)

// KV stores JSON-encoded values on top of a Backend.
//
// KV never returns medium errors to its callers: failures are logged and the
// operation degrades to its empty result. A KV without a backend is a valid
// value whose operations are all no-ops, which is how non-interactive runs
// disable persistence.
type KV struct {
	backend Backend
	logger  *slog.Logger
}

// KVOption configures a KV.
type KVOption func(*KV)

// WithLogger sets the logger used to report medium failures.
func WithLogger(logger *slog.Logger) KVOption {
	return func(kv *KV) {
		kv.logger = logger
	}
}

// NewKV returns a KV over backend. backend may be nil.
func NewKV(backend Backend, opts ...KVOption) *KV {
	kv := &KV{backend: backend, logger: slog.Default()}
	for _, opt := range opts {
		opt(kv)
	}
	return kv
}

// Available reports whether the KV has a medium to write to.
func (kv *KV) Available() bool {
	return kv != nil && kv.backend != nil
}

// Set serializes value and writes it under key.
func (kv *KV) Set(ctx context.Context, key string, value any) {
	if !kv.Available() {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		kv.logger.ErrorContext(ctx, "storage: encoding value failed", "key", key, "error", err)
		return
	}
	if err := kv.backend.Put(key, data); err != nil {
		kv.logger.ErrorContext(ctx, "storage: write failed", "key", key, "error", err)
	}
}

// Get reads key into a T. It returns def when the key is absent, when the
// medium fails, or when the stored text does not decode; in the last case the
// corrupted entry is removed.
func Get[T any](ctx context.Context, kv *KV, key string, def T) T {
	if v, ok := Lookup[T](ctx, kv, key); ok {
		return v
	}
	return def
}

// Lookup is Get with a presence flag instead of a default.
func Lookup[T any](ctx context.Context, kv *KV, key string) (T, bool) {
	var zero T
	if !kv.Available() {
		return zero, false
	}
	data, err := kv.backend.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			kv.logger.ErrorContext(ctx, "storage: read failed", "key", key, "error", err)
		}
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		kv.logger.ErrorContext(ctx, "storage: corrupted entry removed", "key", key, "error", err)
		kv.Remove(ctx, key)
		return zero, false
	}
	return v, true
}

// Remove deletes key.
func (kv *KV) Remove(ctx context.Context, key string) {
	if !kv.Available() {
		return
	}
	if err := kv.backend.Delete(key); err != nil {
		kv.logger.ErrorContext(ctx, "storage: delete failed", "key", key, "error", err)
	}
}

// Clear deletes every key.
func (kv *KV) Clear(ctx context.Context) {
	if !kv.Available() {
		return
	}
	if err := kv.backend.Clear(); err != nil {
		kv.logger.ErrorContext(ctx, "storage: clear failed", "error", err)
	}
}

// Has reports whether key holds a value.
func (kv *KV) Has(ctx context.Context, key string) bool {
	if !kv.Available() {
		return false
	}
	_, err := kv.backend.Get(key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		kv.logger.ErrorContext(ctx, "storage: read failed", "key", key, "error", err)
	}
	return err == nil
}

// Keys lists every stored key in lexical order.
func (kv *KV) Keys(ctx context.Context) []string {
	if !kv.Available() {
		return []string{}
	}
	keys, err := kv.backend.Keys()
	if err != nil {
		kv.logger.ErrorContext(ctx, "storage: listing keys failed", "error", err)
		return []string{}
	}
	sort.Strings(keys)
	return keys
}
