package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
)

// Analytics sends events to whatever tracker the registry holds. Every call
// is best-effort: with no tracker it does nothing, and tracker errors or
// panics are logged and swallowed.
type Analytics struct {
	registry *Registry
	logger   *slog.Logger
}

func New(reg *Registry, logger *slog.Logger) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analytics{registry: reg, logger: logger}
}

// IsLoaded reports whether a tracker has been injected.
func (a *Analytics) IsLoaded() bool {
	_, ok := a.registry.Lookup()
	return ok
}

// TrackPageView records a visit to page.
func (a *Analytics) TrackPageView(ctx context.Context, page, title string) {
	a.track(ctx, "pageview", map[string]any{"page": page, "title": title})
}

// TrackEvent records a named custom event. data keys are merged into the
// payload next to event_name.
func (a *Analytics) TrackEvent(ctx context.Context, name string, data map[string]any) {
	payload := make(map[string]any, len(data)+1)
	maps.Copy(payload, data)
	payload["event_name"] = name
	a.track(ctx, "event", payload)
}

// Action is a user interaction. Empty fields are left out of the payload.
type Action struct {
	Name     string
	Category string
	Label    string
	Value    *float64
}

// TrackAction records a user interaction.
func (a *Analytics) TrackAction(ctx context.Context, act Action) {
	payload := map[string]any{"action": act.Name}
	if act.Category != "" {
		payload["category"] = act.Category
	}
	if act.Label != "" {
		payload["label"] = act.Label
	}
	if act.Value != nil {
		payload["value"] = *act.Value
	}
	a.track(ctx, "action", payload)
}

// SetUserProperties attaches properties to the tracked visitor.
func (a *Analytics) SetUserProperties(ctx context.Context, properties map[string]any) {
	a.call(ctx, "set user", func(t Tracker) error { return t.SetUser(properties) })
}

func (a *Analytics) track(ctx context.Context, eventType string, payload map[string]any) {
	a.call(ctx, eventType, func(t Tracker) error { return t.Track(eventType, payload) })
}

func (a *Analytics) call(ctx context.Context, op string, f func(Tracker) error) {
	t, ok := a.registry.Lookup()
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.ErrorContext(ctx, "analytics: tracker panicked", "op", op, "panic", fmt.Sprint(r))
		}
	}()
	if err := f(t); err != nil {
		a.logger.ErrorContext(ctx, "analytics: tracker call failed", "op", op, "error", err)
		return
	}
	a.logger.DebugContext(ctx, "analytics: tracked", "op", op)
}
