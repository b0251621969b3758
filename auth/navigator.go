package auth

import (
	"context"
	"log/slog"
)

// LoginPath is the route the user is sent to when the session ends.
const LoginPath = "/login"

// Navigator moves the user to another route of the application.
type Navigator interface {
	Navigate(ctx context.Context, path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, path string)

func (f NavigatorFunc) Navigate(ctx context.Context, path string) { f(ctx, path) }

type logNavigator struct {
	logger *slog.Logger
}

func (n logNavigator) Navigate(ctx context.Context, path string) {
	n.logger.InfoContext(ctx, "auth: navigation requested", "path", path)
}
