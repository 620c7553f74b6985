package weave

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Hook is the single capability a lifecycle callback needs: given the
// current context, do its work, possibly mutate the context, possibly
// call Context.Halt to short-circuit the rest of the pipeline.
type Hook interface {
	Handle(c *Context) error
}

// HookFunc adapts a plain function to the Hook interface.
type HookFunc func(c *Context) error

// Handle calls f.
func (f HookFunc) Handle(c *Context) error { return f(c) }

type hookEntry struct {
	priority int
	seq      int
	hook     Hook
}

// Hooks is the registry of lifecycle hooks and named route-scoped hooks.
//
// Lifecycle entries for an event are kept in registration order and
// stable-sorted by ascending priority the first time the event fires after
// a registration; the sorted list is cached until the next registration.
// Execution order is therefore deterministic: ascending priority, ties
// broken by registration order, every run.
type Hooks struct {
	mu       sync.Mutex
	entries  map[string][]hookEntry
	sorted   map[string][]hookEntry
	named    map[string]func() Hook
	resolved map[string]Hook
	seq      int
	router   *Router
}

func newHooks(r *Router) *Hooks {
	return &Hooks{
		entries:  make(map[string][]hookEntry),
		sorted:   make(map[string][]hookEntry),
		named:    make(map[string]func() Hook),
		resolved: make(map[string]Hook),
		router:   r,
	}
}

// On appends a hook for an event. A nil hook is rejected with a
// RegistrationError: the registration is skipped with a warning, nothing
// else changes.
func (h *Hooks) On(event string, hook Hook, priority int) error {
	if hook == nil {
		err := &RegistrationError{Event: event, Reason: "hook is nil"}
		h.logger().Warn("skipping hook registration", zap.Error(err))
		return err
	}
	if fn, ok := hook.(HookFunc); ok && fn == nil {
		err := &RegistrationError{Event: event, Reason: "hook func is nil"}
		h.logger().Warn("skipping hook registration", zap.Error(err))
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	h.entries[event] = append(h.entries[event], hookEntry{priority: priority, seq: h.seq, hook: hook})

	// Invalidate the cached sort for this event only.
	delete(h.sorted, event)

	return nil
}

// RegisterNamed registers a ready-made hook under a name for route-scoped
// use via RouteHandle.Hook.
func (h *Hooks) RegisterNamed(name string, hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.named[name] = func() Hook { return hook }
	delete(h.resolved, name)
}

// RegisterNamedFactory registers a named hook constructor. It runs once,
// on first use, and the instance is cached for every later dispatch. The
// cached instance is shared across requests, so hook types should not keep
// per-request state in fields.
func (h *Hooks) RegisterNamedFactory(name string, factory func() Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.named[name] = factory
	delete(h.resolved, name)
}

// resolveNamed returns the cached instance for a named hook, constructing
// it on first use.
func (h *Hooks) resolveNamed(name string) (Hook, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if hook, ok := h.resolved[name]; ok {
		return hook, true
	}
	factory, ok := h.named[name]
	if !ok {
		return nil, false
	}
	hook := factory()
	h.resolved[name] = hook
	return hook, true
}

// sortedFor returns the event's entries in execution order, computing and
// caching the stable sort on first use after a registration.
func (h *Hooks) sortedFor(event string) []hookEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.sorted[event]; ok {
		return s
	}

	entries := h.entries[event]
	s := make([]hookEntry, len(entries))
	copy(s, entries)
	sort.SliceStable(s, func(i, j int) bool { return s[i].priority < s[j].priority })
	h.sorted[event] = s
	return s
}

// Trigger runs the global hooks for an event in priority order. A halted
// context skips everything: halting persists for the remainder of the
// request across trigger calls, until a new request resets it.
//
// A hook error stops the chain and is returned wrapped in a HookError; the
// dispatcher forwards it to the on_error chain.
func (h *Hooks) Trigger(event string, c *Context) error {
	if c.Halted() {
		return nil
	}

	for _, e := range h.sortedFor(event) {
		if err := e.hook.Handle(c); err != nil {
			return &HookError{Event: event, Err: err}
		}
		if c.Halted() {
			return nil
		}
	}
	return nil
}

// TriggerNamed runs the route-scoped hooks listed on a route, in list
// order, at the given lifecycle point. Global hooks for the point have
// already run: global-first is the fixed order, so cross-cutting concerns
// apply before resource-specific ones.
//
// An unknown hook name is an error; a silently skipped auth hook is worse
// than a failed request.
func (h *Hooks) TriggerNamed(event string, names []string, c *Context) error {
	if c.Halted() {
		return nil
	}

	for _, name := range names {
		hook, ok := h.resolveNamed(name)
		if !ok {
			return &HookError{Event: event, Name: name, Err: &RegistrationError{Event: event, Reason: "named hook not registered: " + name}}
		}
		if err := hook.Handle(c); err != nil {
			return &HookError{Event: event, Name: name, Err: err}
		}
		if c.Halted() {
			return nil
		}
	}
	return nil
}

// Has reports whether any hook is registered for the event.
func (h *Hooks) Has(event string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries[event]) > 0
}

func (h *Hooks) logger() *zap.Logger {
	if h.router != nil {
		return h.router.logger
	}
	return zap.NewNop()
}
