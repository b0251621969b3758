package analytics

import (
	"context"
	"slices"
	"sync"
)

// Route is a location in the application.
type Route struct {
	Path  string
	Title string
}

// Hook runs after each completed navigation.
type Hook func(ctx context.Context, to Route)

// Router is a minimal navigation event source: it records the current
// route and notifies hooks after every navigation.
type Router struct {
	mu      sync.Mutex
	current Route
	hooks   []registeredHook
	next    int
}

type registeredHook struct {
	id int
	h  Hook
}

func NewRouter(initial Route) *Router {
	return &Router{current: initial}
}

// Current returns the route of the last navigation.
func (r *Router) Current() Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// AfterEach registers h and returns a function removing it.
func (r *Router) AfterEach(h Hook) (remove func()) {
	r.mu.Lock()
	id := r.next
	r.next++
	r.hooks = append(r.hooks, registeredHook{id: id, h: h})
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.hooks = slices.DeleteFunc(r.hooks, func(rh registeredHook) bool { return rh.id == id })
		r.mu.Unlock()
	}
}

// Navigate moves to route and runs the hooks in registration order.
func (r *Router) Navigate(ctx context.Context, to Route) {
	r.mu.Lock()
	r.current = to
	hooks := slices.Clone(r.hooks)
	r.mu.Unlock()

	for _, rh := range hooks {
		rh.h(ctx, to)
	}
}
