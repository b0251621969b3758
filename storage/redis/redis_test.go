package redis

import (
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/walicode/storage"
)

func newTestStore(t *testing.T, m *mr.Miniredis, prefix string) *Store {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client, prefix)
}

func TestRedisStore_PutGetDelete(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	s := newTestStore(t, m, "test:")

	require.NoError(t, s.Put("user-info", []byte(`{"id":"3"}`)))
	got, err := s.Get("user-info")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"3"}`, string(got))

	// stored under the prefix
	raw, err := m.Get("test:user-info")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"3"}`, raw)

	require.NoError(t, s.Delete("user-info"))
	_, err = s.Get("user-info")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRedisStore_KeysAndClearStayInPrefix(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	a := newTestStore(t, m, "a:")
	b := newTestStore(t, m, "b:")

	require.NoError(t, a.Put("k1", []byte("1")))
	require.NoError(t, a.Put("k2", []byte("2")))
	require.NoError(t, b.Put("k1", []byte("other")))

	keys, err := a.Keys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"k1", "k2"}, keys)

	require.NoError(t, a.Clear())
	keys, err = a.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	got, err := b.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, "other", string(got))
}

func TestRedisStore_DefaultPrefix(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	s := newTestStore(t, m, "")
	require.NoError(t, s.Put("k", []byte("v")))
	assert.True(t, m.Exists("walicode:k"))
}
