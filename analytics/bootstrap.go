package analytics

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrNotLoaded is returned by Bootstrap when no tracker was injected within
// the probing bound.
var ErrNotLoaded = errors.New("analytics tracker not loaded")

const (
	DefaultInitialDelay = 500 * time.Millisecond
	DefaultInterval     = time.Second
	DefaultMaxAttempts  = 30
)

type config struct {
	initialDelay time.Duration
	interval     time.Duration
	maxAttempts  int
	logger       *slog.Logger
}

// Option configures Bootstrap.
type Option func(*config)

// WithInitialDelay sets the wait before the first probe.
func WithInitialDelay(d time.Duration) Option {
	return func(c *config) { c.initialDelay = d }
}

// WithInterval sets the wait between probes.
func WithInterval(d time.Duration) Option {
	return func(c *config) { c.interval = d }
}

// WithMaxAttempts bounds the number of probes.
func WithMaxAttempts(n int) Option {
	return func(c *config) { c.maxAttempts = n }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// Bootstrap waits for a tracker to appear in reg, probing a bounded number
// of times. Once found, every navigation of router is forwarded as a page
// view and a page view for the current route is sent immediately.
//
// Bootstrap blocks until the tracker is found, the bound is exhausted
// (ErrNotLoaded) or ctx is done. Run it in its own goroutine to keep start-up
// unblocked.
func Bootstrap(ctx context.Context, reg *Registry, router *Router, opts ...Option) (*Analytics, error) {
	cfg := config{
		initialDelay: DefaultInitialDelay,
		interval:     DefaultInterval,
		maxAttempts:  DefaultMaxAttempts,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxAttempts < 1 {
		cfg.maxAttempts = 1
	}
	if cfg.interval <= 0 {
		cfg.interval = DefaultInterval
	}

	if cfg.initialDelay > 0 {
		t := time.NewTimer(cfg.initialDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(cfg.maxAttempts-1), retry.NewConstant(cfg.interval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if _, ok := reg.Lookup(); ok {
			return nil
		}
		cfg.logger.DebugContext(ctx, "analytics: tracker not loaded yet, retrying", "attempt", attempt)
		return retry.RetryableError(ErrNotLoaded)
	})
	if err != nil {
		if errors.Is(err, ErrNotLoaded) {
			cfg.logger.WarnContext(ctx, "analytics: tracker never loaded", "attempts", attempt)
		}
		return nil, err
	}

	a := New(reg, cfg.logger)
	cfg.logger.InfoContext(ctx, "analytics: tracker initialized", "attempts", attempt)
	router.AfterEach(func(ctx context.Context, to Route) {
		a.TrackPageView(ctx, to.Path, to.Title)
	})
	cur := router.Current()
	a.TrackPageView(ctx, cur.Path, cur.Title)
	return a, nil
}
