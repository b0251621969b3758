package session

import (
	"errors"
	"io"
	"sync"

	"github.com/jmcleod/walicode/storage"
)

// Context is the per-application session context. It is created at start-up,
// handed to the API client and the auth manager, and closed at shutdown.
type Context struct {
	Tokens *Jar
	Store  *storage.KV

	closeOnce sync.Once
	closers   []io.Closer
	closeErr  error
}

// NewContext bundles the token jar and key-value store. closers are closed,
// in order, by Close.
func NewContext(tokens *Jar, store *storage.KV, closers ...io.Closer) *Context {
	if store == nil {
		store = storage.NewKV(nil)
	}
	return &Context{Tokens: tokens, Store: store, closers: closers}
}

// Close releases the backends. It is safe to call more than once.
func (c *Context) Close() error {
	c.closeOnce.Do(func() {
		var errs []error
		for _, cl := range c.closers {
			if err := cl.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}
