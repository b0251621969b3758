package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/jmcleod/walicode/analytics"
	"github.com/jmcleod/walicode/api"
	"github.com/jmcleod/walicode/appstate"
	"github.com/jmcleod/walicode/auth"
	"github.com/jmcleod/walicode/config"
	"github.com/jmcleod/walicode/session"
	"github.com/jmcleod/walicode/storage"
	bboltstorage "github.com/jmcleod/walicode/storage/bbolt"
	"github.com/jmcleod/walicode/storage/memory"
	redisstorage "github.com/jmcleod/walicode/storage/redis"
	sqlitestorage "github.com/jmcleod/walicode/storage/sqlite"
)

// Namespaces of the two stores. Cookies hold the token pair, local holds
// everything else.
const (
	namespaceCookies = "cookies"
	namespaceLocal   = "local"
)

// app is everything a command needs, built once per invocation.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	out       io.Writer
	errOut    io.Writer
	sess      *session.Context
	client    *api.Client
	auth      *auth.Manager
	courses   *api.CourseAPI
	state     *appstate.Store
	router    *analytics.Router
	analytics *analytics.Analytics
	registry  *prometheus.Registry
}

// openBackends opens the configured medium and returns one backend per
// namespace. closer releases the shared medium; it may be nil.
func openBackends(cfg *config.Config) (cookies, local storage.Backend, closer io.Closer, err error) {
	switch cfg.Store {
	case config.StoreNone:
		return nil, nil, nil, nil
	case config.StoreMemory:
		return memory.NewStore(), memory.NewStore(), nil, nil
	case config.StoreRedis:
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		return redisstorage.NewStore(client, "walicode:"+namespaceCookies+":"),
			redisstorage.NewStore(client, "walicode:"+namespaceLocal+":"),
			client, nil
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	switch cfg.Store {
	case config.StoreSQLite:
		db, err := sqlitestorage.Open(filepath.Join(cfg.DataDir, "walicode.sqlite"))
		if err != nil {
			return nil, nil, nil, err
		}
		c, err := sqlitestorage.NewStore(db, namespaceCookies)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		l, err := sqlitestorage.NewStore(db, namespaceLocal)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return c, l, db, nil
	default:
		db, err := bboltstorage.Open(filepath.Join(cfg.DataDir, "walicode.db"), nil)
		if err != nil {
			return nil, nil, nil, err
		}
		c, err := bboltstorage.NewStore(db, namespaceCookies)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		l, err := bboltstorage.NewStore(db, namespaceLocal)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return c, l, db, nil
	}
}

func newApp(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*app, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cookies, local, closer, err := openBackends(cfg)
	if err != nil {
		return nil, err
	}
	var closers []io.Closer
	if closer != nil {
		closers = append(closers, closer)
	}
	jar, err := session.NewJar(cookies, session.WithJarLogger(logger))
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("loading token pair: %w", err)
	}
	kv := storage.NewKV(local, storage.WithLogger(logger))
	sess := session.NewContext(jar, kv, closers...)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
		sess:     sess,
		registry: prometheus.NewRegistry(),
		router:   analytics.NewRouter(analytics.Route{Path: "/", Title: cfg.AppName}),
	}

	metrics, err := api.NewMetrics(a.registry)
	if err != nil {
		sess.Close()
		return nil, err
	}
	a.client, err = api.New(cfg.Client(), jar, api.WithLogger(logger), api.WithMetrics(metrics))
	if err != nil {
		sess.Close()
		return nil, err
	}
	a.auth = auth.NewManager(a.client, sess,
		auth.WithLogger(logger),
		auth.WithMemberTier(cfg.MemberTier),
		auth.WithNavigator(auth.NavigatorFunc(a.sessionEnded)),
	)
	a.courses = api.NewCourseAPI(a.client)
	a.state = appstate.New(ctx, kv, appstate.WithLogger(logger))

	reg := analytics.NewRegistry()
	if cfg.Analytics {
		reg.Inject(analytics.LogTracker{Logger: logger.With("component", "analytics")})
		a.analytics, err = analytics.Bootstrap(ctx, reg, a.router,
			analytics.WithInitialDelay(0),
			analytics.WithMaxAttempts(1),
			analytics.WithLogger(logger),
		)
		if err != nil {
			logger.WarnContext(ctx, "analytics disabled", "error", err)
		}
	}
	if a.analytics == nil {
		a.analytics = analytics.New(reg, logger)
	}

	a.auth.InitAuth(ctx)
	return a, nil
}

// sessionEnded runs when the server invalidates the session mid-command.
func (a *app) sessionEnded(ctx context.Context, path string) {
	fmt.Fprintf(a.errOut, "Your session has expired. Run `%s login` to sign in again.\n", rootName)
	a.router.Navigate(ctx, analytics.Route{Path: path, Title: "Login"})
}

// visit records the command as a navigation and in the recent actions.
func (a *app) visit(ctx context.Context, cmd *cobra.Command) {
	path := "/" + strings.ReplaceAll(strings.TrimSpace(strings.TrimPrefix(cmd.CommandPath(), cmd.Root().Name())), " ", "/")
	a.router.Navigate(ctx, analytics.Route{Path: path, Title: cmd.Short})
	a.state.AddRecentAction(ctx, appstate.RecentAction{
		Type: "command",
		Data: map[string]any{"command": cmd.CommandPath()},
	})
}

func (a *app) Close() error {
	if a.logger.Enabled(context.Background(), slog.LevelDebug) {
		a.logRequestCounts()
	}
	return a.sess.Close()
}

func (a *app) logRequestCounts() {
	families, err := a.registry.Gather()
	if err != nil {
		return
	}
	for _, mf := range families {
		if mf.GetName() != "walicode_client_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			attrs := []any{"count", m.GetCounter().GetValue()}
			for _, lp := range m.GetLabel() {
				attrs = append(attrs, lp.GetName(), lp.GetValue())
			}
			a.logger.Debug("api: requests", attrs...)
		}
	}
}

func formatDuration(d time.Duration) string {
	return d.Truncate(time.Second).String()
}
