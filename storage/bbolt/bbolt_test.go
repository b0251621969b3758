package bbolt

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/jmcleod/walicode/storage"
	"go.etcd.io/bbolt"
)

func newTestDB(t *testing.T) (*bbolt.DB, func()) {
	t.Helper()
	f, err := os.CreateTemp("", "walicode-test-*.db")
	if err != nil {
		t.Fatalf("could not create temp file: %v", err)
	}
	path := f.Name()
	f.Close()

	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		os.Remove(path)
		t.Fatalf("could not open db: %v", err)
	}
	return db, func() {
		db.Close()
		os.Remove(path)
	}
}

func TestBBoltStorage(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()

	s, err := NewStore(db, "local")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	t.Run("PutAndGet", func(t *testing.T) {
		if err := s.Put("user-info", []byte(`{"id":"1"}`)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := s.Get("user-info")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != `{"id":"1"}` {
			t.Errorf("Get returned %q", got)
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		_, err := s.Get("missing")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Keys", func(t *testing.T) {
		if err := s.Put("login-time", []byte("1")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		keys, err := s.Keys()
		if err != nil {
			t.Fatalf("Keys failed: %v", err)
		}
		sort.Strings(keys)
		if len(keys) != 2 || keys[0] != "login-time" || keys[1] != "user-info" {
			t.Errorf("unexpected keys %v", keys)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := s.Delete("login-time"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := s.Delete("login-time"); err != nil {
			t.Errorf("deleting an absent key should succeed, got %v", err)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		if err := s.Clear(); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		keys, err := s.Keys()
		if err != nil {
			t.Fatalf("Keys failed: %v", err)
		}
		if len(keys) != 0 {
			t.Errorf("expected empty store, got %v", keys)
		}
	})
}

func TestBBoltNamespacesAreIsolated(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()

	local, err := NewStore(db, "local")
	if err != nil {
		t.Fatal(err)
	}
	cookies, err := NewStore(db, "cookies")
	if err != nil {
		t.Fatal(err)
	}

	if err := local.Put("k", []byte("local")); err != nil {
		t.Fatal(err)
	}
	if err := cookies.Put("k", []byte("cookie")); err != nil {
		t.Fatal(err)
	}
	if err := local.Clear(); err != nil {
		t.Fatal(err)
	}

	got, err := cookies.Get("k")
	if err != nil {
		t.Fatalf("clearing one namespace affected another: %v", err)
	}
	if string(got) != "cookie" {
		t.Errorf("unexpected value %q", got)
	}
}

func TestBBoltStoreFromFilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := NewStoreFromFile(path, "local", nil)
	if err != nil {
		t.Fatalf("NewStoreFromFile failed: %v", err)
	}
	if err := s.Put("login-time", []byte("42")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := NewStoreFromFile(path, "local", nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()
	got, err := s2.Get("login-time")
	if err != nil {
		t.Fatalf("value lost across reopen: %v", err)
	}
	if string(got) != "42" {
		t.Errorf("unexpected value %q", got)
	}
}
