// Package appstate persists application settings, user preferences and the
// recent actions history in the key-value store.
package appstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmcleod/walicode/storage"
)

const (
	KeySettings      = "app-settings"
	KeyPreferences   = "user-preferences"
	KeyRecentActions = "recent-actions"
)

const (
	// MaxRecentActions is the length of the recent actions history.
	MaxRecentActions = 50
	// DefaultRecentLimit is used by RecentActions for non-positive limits.
	DefaultRecentLimit = 10
)

var ErrInvalidTheme = errors.New("theme must be light or dark")

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type Settings struct {
	Theme            Theme  `json:"theme"`
	Language         string `json:"language"`
	SidebarCollapsed bool   `json:"sidebarCollapsed"`
	Notifications    bool   `json:"notifications"`
}

type Preferences struct {
	PageSize   int    `json:"pageSize"`
	DateFormat string `json:"dateFormat"`
	Timezone   string `json:"timezone"`
}

// RecentAction is one entry of the history. Timestamp is in epoch
// milliseconds.
type RecentAction struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func DefaultSettings() Settings {
	return Settings{Theme: ThemeLight, Language: "zh-CN", Notifications: true}
}

func DefaultPreferences() Preferences {
	return Preferences{PageSize: 10, DateFormat: "YYYY-MM-DD", Timezone: "Asia/Shanghai"}
}

// Store holds the current settings and preferences and writes every change
// through to the key-value store.
type Store struct {
	kv     *storage.KV
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	set   Settings
	prefs Preferences
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store and restores the persisted state.
func New(ctx context.Context, kv *storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		logger: slog.Default(),
		now:    time.Now,
		set:    DefaultSettings(),
		prefs:  DefaultPreferences(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Restore(ctx)
	return s
}

// Restore reloads settings and preferences. Stored fields override the
// defaults; missing fields keep them.
func (s *Store) Restore(ctx context.Context) {
	set := DefaultSettings()
	if err := s.merge(ctx, KeySettings, &set); err != nil {
		s.logger.WarnContext(ctx, "appstate: ignoring stored settings", "error", err)
		set = DefaultSettings()
	}
	prefs := DefaultPreferences()
	if err := s.merge(ctx, KeyPreferences, &prefs); err != nil {
		s.logger.WarnContext(ctx, "appstate: ignoring stored preferences", "error", err)
		prefs = DefaultPreferences()
	}
	s.mu.Lock()
	s.set, s.prefs = set, prefs
	s.mu.Unlock()
}

func (s *Store) merge(ctx context.Context, key string, into any) error {
	raw, ok := storage.Lookup[json.RawMessage](ctx, s.kv, key)
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

func (s *Store) Preferences() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

func (s *Store) SetTheme(ctx context.Context, theme Theme) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("%w: %q", ErrInvalidTheme, theme)
	}
	s.updateSettings(ctx, func(set *Settings) { set.Theme = theme })
	return nil
}

func (s *Store) SetLanguage(ctx context.Context, language string) {
	s.updateSettings(ctx, func(set *Settings) { set.Language = language })
}

// ToggleSidebar flips the sidebar state and returns the new value.
func (s *Store) ToggleSidebar(ctx context.Context) bool {
	var collapsed bool
	s.updateSettings(ctx, func(set *Settings) {
		set.SidebarCollapsed = !set.SidebarCollapsed
		collapsed = set.SidebarCollapsed
	})
	return collapsed
}

func (s *Store) updateSettings(ctx context.Context, f func(*Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(&s.set)
	s.kv.Set(ctx, KeySettings, s.set)
}

// SetPreferences replaces the preferences. Zero fields take the defaults.
func (s *Store) SetPreferences(ctx context.Context, p Preferences) {
	def := DefaultPreferences()
	if p.PageSize <= 0 {
		p.PageSize = def.PageSize
	}
	if p.DateFormat == "" {
		p.DateFormat = def.DateFormat
	}
	if p.Timezone == "" {
		p.Timezone = def.Timezone
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = p
	s.kv.Set(ctx, KeyPreferences, p)
}

// AddRecentAction prepends a to the history, stamping it with the current
// time if it has none, and drops entries beyond MaxRecentActions.
func (s *Store) AddRecentAction(ctx context.Context, a RecentAction) {
	if a.Timestamp == 0 {
		a.Timestamp = s.now().UnixMilli()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := storage.Get(ctx, s.kv, KeyRecentActions, []RecentAction{})
	actions = append([]RecentAction{a}, actions...)
	if len(actions) > MaxRecentActions {
		actions = actions[:MaxRecentActions]
	}
	s.kv.Set(ctx, KeyRecentActions, actions)
}

// RecentActions returns up to limit entries, newest first.
func (s *Store) RecentActions(ctx context.Context, limit int) []RecentAction {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	actions := storage.Get(ctx, s.kv, KeyRecentActions, []RecentAction{})
	if len(actions) > limit {
		actions = actions[:limit]
	}
	return actions
}

func (s *Store) ClearRecentActions(ctx context.Context) {
	s.kv.Remove(ctx, KeyRecentActions)
}
