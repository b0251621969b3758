package storage_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/walicode/storage"
	"github.com/jmcleod/walicode/storage/memory"
)

type profile struct {
	ID       string   `json:"id"`
	UserName string   `json:"userName"`
	Tags     []string `json:"tags"`
}

// failingBackend simulates a medium that rejects every operation, such as a
// full disk or a revoked permission.
type failingBackend struct{}

var errDenied = errors.New("access denied")

func (failingBackend) Put(string, []byte) error   { return errDenied }
func (failingBackend) Get(string) ([]byte, error) { return nil, errDenied }
func (failingBackend) Delete(string) error        { return errDenied }
func (failingBackend) Clear() error               { return errDenied }
func (failingBackend) Keys() ([]string, error)    { return nil, errDenied }

func TestKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewKV(memory.NewStore())

	want := profile{ID: "3", UserName: "pub", Tags: []string{"a", "b"}}
	kv.Set(ctx, "user-info", want)

	got := storage.Get(ctx, kv, "user-info", profile{})
	assert.Equal(t, want, got)
	assert.True(t, kv.Has(ctx, "user-info"))

	n := storage.Get[int64](ctx, kv, "login-time", -1)
	assert.Equal(t, int64(-1), n, "absent key returns the default")
}

func TestKVCorruptedEntryIsRemoved(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	require.NoError(t, backend.Put("user-info", []byte("{not json")))

	var buf bytes.Buffer
	kv := storage.NewKV(backend, storage.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	def := profile{ID: "default"}
	got := storage.Get(ctx, kv, "user-info", def)
	assert.Equal(t, def, got)
	assert.False(t, kv.Has(ctx, "user-info"), "corrupted entry should be deleted")
	assert.Contains(t, buf.String(), "corrupted entry removed")
}

func TestKVLookup(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewKV(memory.NewStore())

	_, ok := storage.Lookup[profile](ctx, kv, "user-info")
	assert.False(t, ok)

	kv.Set(ctx, "user-info", profile{ID: "1"})
	p, ok := storage.Lookup[profile](ctx, kv, "user-info")
	require.True(t, ok)
	assert.Equal(t, "1", p.ID)
}

func TestKVRemoveClearKeys(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewKV(memory.NewStore())

	kv.Set(ctx, "b", 2)
	kv.Set(ctx, "a", 1)
	assert.Equal(t, []string{"a", "b"}, kv.Keys(ctx))

	kv.Remove(ctx, "a")
	kv.Remove(ctx, "a")
	assert.Equal(t, []string{"b"}, kv.Keys(ctx))

	kv.Clear(ctx)
	assert.Empty(t, kv.Keys(ctx))
}

func TestKVWithoutBackendIsNoop(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewKV(nil)

	assert.False(t, kv.Available())
	kv.Set(ctx, "k", "v")
	assert.Equal(t, "def", storage.Get(ctx, kv, "k", "def"))
	assert.False(t, kv.Has(ctx, "k"))
	assert.Empty(t, kv.Keys(ctx))
	kv.Remove(ctx, "k")
	kv.Clear(ctx)

	var nilKV *storage.KV
	assert.Equal(t, 7, storage.Get(ctx, nilKV, "k", 7))
}

func TestKVMediumErrorsDoNotPropagate(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	kv := storage.NewKV(failingBackend{}, storage.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	assert.NotPanics(t, func() {
		kv.Set(ctx, "k", "v")
		kv.Remove(ctx, "k")
		kv.Clear(ctx)
	})
	assert.Equal(t, "def", storage.Get(ctx, kv, "k", "def"))
	assert.False(t, kv.Has(ctx, "k"))
	assert.Empty(t, kv.Keys(ctx))
	assert.Contains(t, buf.String(), "access denied")
}
