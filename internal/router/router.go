// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

// Package router maps paths to screens and keeps exactly one screen mounted.
//
// A screen's guard is consulted before it becomes current and again on every
// session transition while it is mounted. Navigation requests are queued, so a
// screen or listener may navigate from inside a transition.
package router

import (
	"log/slog"
	"path"
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/plaide/plaide/internal/observability"
	"github.com/plaide/plaide/internal/screen"
	"github.com/plaide/plaide/internal/session"
)

// MaxRedirects bounds the guard redirects followed for one navigation.
const MaxRedirects = 8

// Factory creates a fresh screen for each mount.
type Factory func() screen.Screen

// Listener is called after a screen has been mounted.
type Listener func(path string, s screen.Screen)

type route struct {
	pattern string
	matcher glob.Glob
	factory Factory
}

type request struct {
	path    string
	flash   string
	reguard bool
}

// Router owns the mounted screen.
type Router struct {
	store    *session.Store
	logger   *slog.Logger
	metrics  *observability.Metrics
	fallback string

	mu        sync.Mutex
	routes    []route
	path      string
	current   screen.Screen
	queue     []request
	draining  bool
	closed    bool
	listeners map[uint64]Listener
	nextID    uint64

	unsubscribe func()
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(r *Router) {
		r.metrics = metrics
	}
}

// WithFallback sets where unknown paths go. The default is the welcome path.
func WithFallback(p string) Option {
	return func(r *Router) {
		if p != "" {
			r.fallback = p
		}
	}
}

// New creates a Router that re-checks the mounted screen's guard on every
// session transition. Nothing is mounted until the first Navigate.
func New(store *session.Store, opts ...Option) (*Router, error) {
	if store == nil {
		return nil, oops.Errorf("session store is required")
	}
	r := &Router{
		store:     store,
		logger:    slog.New(slog.DiscardHandler),
		fallback:  screen.PathWelcome,
		listeners: make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.unsubscribe = store.Subscribe(func(session.Session) {
		r.enqueue(request{reguard: true})
	})
	return r, nil
}

// Handle registers factory for paths matching pattern. Patterns use glob
// syntax with '/' as the separator. The first matching route wins.
func (r *Router) Handle(pattern string, factory Factory) error {
	if factory == nil {
		return oops.Code("ROUTER_NIL_FACTORY").With("pattern", pattern).Errorf("screen factory is required")
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return oops.Code("ROUTER_BAD_PATTERN").With("pattern", pattern).Wrap(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route{pattern: pattern, matcher: g, factory: factory})
	return nil
}

// Navigate mounts the screen for p and hands it flash, a one-shot notice.
// If the target's guard redirects, the flash is dropped. When called while
// another navigation is being processed, the request is queued behind it and
// Navigate returns before it is applied.
func (r *Router) Navigate(p, flash string) {
	r.enqueue(request{path: p, flash: flash})
}

// Current returns the mounted path and screen. Both are zero before the
// first navigation.
func (r *Router) Current() (string, screen.Screen) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path, r.current
}

// OnChange registers fn to be called after every mount. The returned
// function removes it.
func (r *Router) OnChange(fn Listener) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

// Close stops following the session and unmounts the current screen.
func (r *Router) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.queue = nil
	cur := r.current
	r.current = nil
	r.path = ""
	r.mu.Unlock()

	r.unsubscribe()
	if cur != nil {
		cur.Unmount()
	}
}

func (r *Router) enqueue(req request) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.queue = append(r.queue, req)
	if r.draining {
		r.mu.Unlock()
		return
	}
	r.draining = true
	r.mu.Unlock()

	for {
		r.mu.Lock()
		if len(r.queue) == 0 || r.closed {
			r.draining = false
			r.mu.Unlock()
			return
		}
		next := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()

		r.process(next)
	}
}

func (r *Router) process(req request) {
	if req.reguard {
		_, cur := r.Current()
		if cur == nil {
			return
		}
		target := cur.Guard(r.store.Current())
		if target == "" {
			return
		}
		r.logger.Debug("guard redirect after session change", "from", cur.Path(), "to", target)
		req = request{path: target}
	}

	p, flash := clean(req.path), req.flash
	for hops := 0; ; hops++ {
		if hops > MaxRedirects {
			r.logger.Error("too many redirects, staying on current screen",
				"requested", req.path, "last", p)
			return
		}

		factory, ok := r.match(p)
		if !ok {
			r.logger.Debug("unknown path", "path", p, "fallback", r.fallback)
			p, flash = r.fallback, ""
			continue
		}

		next := factory()
		if target := next.Guard(r.store.Current()); target != "" && clean(target) != p {
			r.logger.Debug("guard redirect", "from", p, "to", target)
			p, flash = clean(target), ""
			continue
		}

		r.mount(p, next, flash)
		return
	}
}

func (r *Router) mount(p string, next screen.Screen, flash string) {
	r.mu.Lock()
	prev := r.current
	r.mu.Unlock()

	if prev != nil {
		prev.Unmount()
	}
	next.Mount(flash)

	r.mu.Lock()
	r.current = next
	r.path = p
	listeners := make([]Listener, 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	r.mu.Unlock()

	r.metrics.RecordNavigation(p)
	r.logger.Debug("screen mounted", "path", p)
	for _, fn := range listeners {
		fn(p, next)
	}
}

func (r *Router) match(p string) (Factory, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rt := range r.routes {
		if rt.matcher.Match(p) {
			return rt.factory, true
		}
	}
	return nil, false
}

func clean(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean("/" + p)
}
