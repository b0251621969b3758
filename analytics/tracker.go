// Package analytics bootstraps a third-party page tracker that is injected
// at runtime, and forwards navigation events and custom events to it.
package analytics

import (
	"context"
	"log/slog"
	"sync"
)

// Tracker is the interface an injected analytics vendor exposes.
type Tracker interface {
	Track(eventType string, payload map[string]any) error
	SetUser(properties map[string]any) error
}

// Registry is the slot a tracker is injected into. It may be filled at any
// time, from any goroutine.
type Registry struct {
	mu      sync.RWMutex
	tracker Tracker
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Inject installs t, replacing any previous tracker. A nil t empties the slot.
func (r *Registry) Inject(t Tracker) {
	r.mu.Lock()
	r.tracker = t
	r.mu.Unlock()
}

// Lookup returns the injected tracker, if any.
func (r *Registry) Lookup() (Tracker, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tracker, r.tracker != nil
}

// LogTracker writes every event to a structured logger. It stands in for a
// vendor script during development.
type LogTracker struct {
	Logger *slog.Logger
}

func (t LogTracker) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.Default()
	}
	return t.Logger
}

func (t LogTracker) Track(eventType string, payload map[string]any) error {
	t.logger().LogAttrs(context.Background(), slog.LevelInfo, "analytics: track",
		slog.String("type", eventType), slog.Any("payload", payload))
	return nil
}

func (t LogTracker) SetUser(properties map[string]any) error {
	t.logger().LogAttrs(context.Background(), slog.LevelInfo, "analytics: set user",
		slog.Any("properties", properties))
	return nil
}
