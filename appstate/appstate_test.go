package appstate_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/walicode/appstate"
	"github.com/jmcleod/walicode/storage"
	"github.com/jmcleod/walicode/storage/memory"
)

func TestDefaults(t *testing.T) {
	s := appstate.New(context.Background(), storage.NewKV(memory.NewStore()))
	assert.Equal(t, appstate.Settings{Theme: appstate.ThemeLight, Language: "zh-CN", Notifications: true}, s.Settings())
	assert.Equal(t, appstate.Preferences{PageSize: 10, DateFormat: "YYYY-MM-DD", Timezone: "Asia/Shanghai"}, s.Preferences())
}

func TestSettingsPersist(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewKV(memory.NewStore())
	s := appstate.New(ctx, kv)

	require.NoError(t, s.SetTheme(ctx, appstate.ThemeDark))
	s.SetLanguage(ctx, "en-US")
	assert.True(t, s.ToggleSidebar(ctx))
	s.SetPreferences(ctx, appstate.Preferences{PageSize: 25})

	err := s.SetTheme(ctx, "neon")
	assert.ErrorIs(t, err, appstate.ErrInvalidTheme)
	assert.Equal(t, appstate.ThemeDark, s.Settings().Theme)

	reopened := appstate.New(ctx, kv)
	assert.Equal(t, appstate.Settings{Theme: appstate.ThemeDark, Language: "en-US", SidebarCollapsed: true, Notifications: true}, reopened.Settings())
	assert.Equal(t, appstate.Preferences{PageSize: 25, DateFormat: "YYYY-MM-DD", Timezone: "Asia/Shanghai"}, reopened.Preferences())
}

func TestRestoreMergesOverDefaults(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	require.NoError(t, backend.Put(appstate.KeySettings, []byte(`{"theme":"dark"}`)))
	require.NoError(t, backend.Put(appstate.KeyPreferences, []byte(`{"pageSize":"many"}`)))

	s := appstate.New(ctx, storage.NewKV(backend))
	assert.Equal(t, appstate.ThemeDark, s.Settings().Theme)
	assert.Equal(t, "zh-CN", s.Settings().Language)
	assert.True(t, s.Settings().Notifications)
	assert.Equal(t, appstate.DefaultPreferences(), s.Preferences(), "mistyped preferences fall back to defaults")
}

func TestRecentActions(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	s := appstate.New(ctx, storage.NewKV(memory.NewStore()), appstate.WithClock(func() time.Time { return now }))

	assert.Empty(t, s.RecentActions(ctx, 0))

	for i := 0; i < 60; i++ {
		s.AddRecentAction(ctx, appstate.RecentAction{Type: fmt.Sprintf("view-%d", i)})
	}
	s.AddRecentAction(ctx, appstate.RecentAction{Type: "stamped", Timestamp: 42})

	recent := s.RecentActions(ctx, 0)
	require.Len(t, recent, appstate.DefaultRecentLimit)
	assert.Equal(t, "stamped", recent[0].Type)
	assert.Equal(t, int64(42), recent[0].Timestamp)
	assert.Equal(t, "view-59", recent[1].Type)
	assert.Equal(t, now.UnixMilli(), recent[1].Timestamp)

	all := s.RecentActions(ctx, 1000)
	require.Len(t, all, appstate.MaxRecentActions)
	assert.Equal(t, "view-11", all[len(all)-1].Type)

	s.ClearRecentActions(ctx)
	assert.Empty(t, s.RecentActions(ctx, 5))
}

func TestWithoutBackend(t *testing.T) {
	ctx := context.Background()
	s := appstate.New(ctx, storage.NewKV(nil))
	require.NoError(t, s.SetTheme(ctx, appstate.ThemeDark))
	assert.Equal(t, appstate.ThemeDark, s.Settings().Theme, "in-memory state still changes")
	s.AddRecentAction(ctx, appstate.RecentAction{Type: "x"})
	assert.Empty(t, s.RecentActions(ctx, 0))
}
