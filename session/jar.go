// Package session holds the client-side session context: the token pair that
// signs requests, the header strategy derived from it, and the lifecycle
// object that ties them to the persistent store.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/walicode/storage"
)

// Cookie names under which the token pair is persisted.
const (
	CookieTokenValue = "authorized-token"
	CookieTokenName  = "token-name"
)

// TokenPair is the (name, value) credential the server expects on every
// request. Name may be empty, in which case the value is sent as a bearer
// token.
type TokenPair struct {
	Name  string
	Value string
}

// Jar holds the token pair. It is the only source of truth for whether the
// client is logged in. The token value is kept sealed in a memguard enclave
// while in memory.
//
// Every successful write bumps a generation counter; Await blocks until a
// given generation is durable in the backend.
type Jar struct {
	mu      sync.Mutex
	backend storage.Backend
	logger  *slog.Logger

	name  string
	value *memguard.Enclave

	gen  uint64
	wake chan struct{}
}

// JarOption configures a Jar.
type JarOption func(*Jar)

// WithJarLogger sets the logger.
func WithJarLogger(logger *slog.Logger) JarOption {
	return func(j *Jar) {
		j.logger = logger
	}
}

// NewJar returns a Jar persisted in backend, loading any pair already
// stored there. A nil backend keeps the pair in memory only.
func NewJar(backend storage.Backend, opts ...JarOption) (*Jar, error) {
	j := &Jar{
		backend: backend,
		logger:  slog.Default(),
		wake:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(j)
	}
	if backend == nil {
		return j, nil
	}

	name, err := readCookie(backend, CookieTokenName)
	if err != nil {
		return nil, err
	}
	value, err := readCookie(backend, CookieTokenValue)
	if err != nil {
		return nil, err
	}
	j.name = name
	if value != "" {
		j.value = memguard.NewEnclave([]byte(value))
	}
	return j, nil
}

func readCookie(backend storage.Backend, key string) (string, error) {
	b, err := backend.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading cookie %s: %w", key, err)
	}
	return string(b), nil
}

// Pair returns the current token pair. ok is false when no token value is
// present, whatever the name holds.
func (j *Jar) Pair() (pair TokenPair, ok bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	pair.Name = j.name
	if j.value == nil {
		return pair, false
	}
	buf, err := j.value.Open()
	if err != nil {
		j.logger.Error("session: opening token enclave failed", "error", err)
		return pair, false
	}
	defer buf.Destroy()
	// Copy out: the locked buffer is wiped on Destroy.
	pair.Value = string(buf.Bytes())
	return pair, pair.Value != ""
}

// HasToken reports whether a token value is present.
func (j *Jar) HasToken() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.value != nil
}

// Set stores pair and returns the generation of the write. The pair is
// replaced only once the backend has accepted it.
func (j *Jar) Set(pair TokenPair) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.persist(pair); err != nil {
		return j.gen, err
	}
	j.name = pair.Name
	j.value = nil
	if pair.Value != "" {
		j.value = memguard.NewEnclave([]byte(pair.Value))
	}
	return j.commitLocked(), nil
}

// Clear removes both cookies. The in-memory pair is dropped even when the
// backend fails; the returned error joins every failed delete. Clearing an
// empty jar still succeeds.
func (j *Jar) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.name = ""
	j.value = nil
	j.commitLocked()
	if j.backend == nil {
		return nil
	}
	return errors.Join(
		writeCookie(j.backend, CookieTokenName, ""),
		writeCookie(j.backend, CookieTokenValue, ""),
	)
}

// Generation returns the generation of the last durable write.
func (j *Jar) Generation() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.gen
}

// Await blocks until the jar has durably committed generation gen or ctx
// is done.
func (j *Jar) Await(ctx context.Context, gen uint64) error {
	for {
		j.mu.Lock()
		if j.gen >= gen {
			j.mu.Unlock()
			return nil
		}
		wake := j.wake
		j.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		}
	}
}

func (j *Jar) commitLocked() uint64 {
	j.gen++
	close(j.wake)
	j.wake = make(chan struct{})
	return j.gen
}

// persist writes both cookies of pair. When the value cookie fails the name
// cookie is restored, so the stored pair stays the one held in memory.
func (j *Jar) persist(pair TokenPair) error {
	if j.backend == nil {
		return nil
	}
	if err := writeCookie(j.backend, CookieTokenName, pair.Name); err != nil {
		return err
	}
	if err := writeCookie(j.backend, CookieTokenValue, pair.Value); err != nil {
		if rerr := writeCookie(j.backend, CookieTokenName, j.name); rerr != nil {
			j.logger.Error("session: restoring token name cookie failed", "error", rerr)
		}
		return err
	}
	return nil
}

func writeCookie(backend storage.Backend, key, value string) error {
	var err error
	if value == "" {
		err = backend.Delete(key)
	} else {
		err = backend.Put(key, []byte(value))
	}
	if err != nil {
		return fmt.Errorf("writing cookie %s: %w", key, err)
	}
	return nil
}
