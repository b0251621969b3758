package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/walicode/storage"
)

func newTestStore(t *testing.T, namespace string) *Store {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s, err := NewStore(db, namespace)
	require.NoError(t, err)
	return s
}

func TestSQLiteStore(t *testing.T) {
	s := newTestStore(t, "local")

	require.NoError(t, s.Put("user-info", []byte(`{"id":"1"}`)))
	require.NoError(t, s.Put("user-info", []byte(`{"id":"2"}`)))

	got, err := s.Get("user-info")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"2"}`, string(got))

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Put("login-time", []byte("1")))
	keys, err := s.Keys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user-info", "login-time"}, keys)

	require.NoError(t, s.Delete("login-time"))
	require.NoError(t, s.Delete("login-time"))

	require.NoError(t, s.Clear())
	keys, err = s.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSQLiteRejectsBadNamespace(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = NewStore(db, "local; DROP TABLE x")
	assert.Error(t, err)
}

func TestSQLiteStoreFromFilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.sqlite")

	s, err := NewStoreFromFile(path, "local")
	require.NoError(t, err)
	require.NoError(t, s.Put("k", []byte("v")))
	require.NoError(t, s.Close())

	s2, err := NewStoreFromFile(path, "local")
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}
