package auth

import (
	"log/slog"
	"time"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithNavigator sets where the user is sent when the server ends the
// session. Defaults to a navigator that only logs.
func WithNavigator(n Navigator) Option {
	return func(m *Manager) {
		m.navigator = n
	}
}

// WithMemberTier sets the profile member value that denotes a paying
// member. Defaults to DefaultMemberTier.
func WithMemberTier(tier string) Option {
	return func(m *Manager) {
		if tier != "" {
			m.memberTier = tier
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}
