package weave

import (
	"net/http"
	"path"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// MethodAny registers a route for every HTTP method.
const MethodAny = "ANY"

// Route is a registered (method, pattern, handler) binding. Routes are
// created during registration and immutable for the life of the process.
type Route struct {
	Method    string   `json:"method"`
	Pattern   string   `json:"pattern"`
	Handler   string   `json:"handler"` // "Controller@Action"
	HookNames []string `json:"hooks,omitempty"`

	compileOnce sync.Once
	compiled    *compiledPattern
	compileErr  error
}

// compile returns the cached matching form of the route pattern,
// compiling it on first use.
func (rt *Route) compile() (*compiledPattern, error) {
	rt.compileOnce.Do(func() {
		rt.compiled, rt.compileErr = compilePattern(rt.Pattern)
	})
	return rt.compiled, rt.compileErr
}

// RouteHandle is returned by route registration so hooks can be attached
// to the route after the fact.
type RouteHandle struct {
	route *Route
}

// Hook attaches one or more named hooks to the route. The named hooks run
// around the controller action, after global hooks for the same point.
func (h *RouteHandle) Hook(names ...string) *RouteHandle {
	h.route.HookNames = append(h.route.HookNames, names...)
	return h
}

// Router owns the route table, the hook registry, the controller registry
// and the lazy model loader. It is an http.Handler.
type Router struct {
	mu     sync.RWMutex
	routes []*Route

	hooks       *Hooks
	controllers *Controllers
	models      *Loader
	views       *viewCache
	logger      *zap.Logger
	metrics     *Metrics

	port            int
	cert            string
	key             string
	autoTLSDomains  []string
	autoTLSCache    string
	isDev           bool
	stopOnInt       bool
	metricsEndpoint string
	server          *http.Server
}

// NewRouter creates a new router with an empty route table, the built-in
// named hooks (cors, ratelimit) pre-registered, and a no-op logger.
func NewRouter() *Router {
	r := &Router{
		port:   8080,
		logger: zap.NewNop(),
	}
	r.hooks = newHooks(r)
	r.controllers = newControllers()
	r.models = NewLoader()
	r.models.trigger = r.systemTrigger
	r.views = newViewCache()

	r.hooks.RegisterNamed("cors", NewCORSHook(DefaultCORSConfig()))
	r.hooks.RegisterNamed("ratelimit", NewRateLimitHook(DefaultRateLimitConfig()))

	return r
}

// Logger returns the router's logger.
func (r *Router) Logger() *zap.Logger { return r.logger }

// Models returns the lazy model loader.
func (r *Router) Models() *Loader { return r.models }

// Hooks returns the hook registry.
func (r *Router) Hooks() *Hooks { return r.hooks }

// On registers a hook against a lifecycle event. Priority defaults to 10,
// lower runs first; equal priorities keep registration order.
// A nil hook is rejected and skipped with a warning.
func (r *Router) On(event string, hook Hook, priority ...int) error {
	p := 10
	if len(priority) > 0 {
		p = priority[0]
	}
	return r.hooks.On(event, hook, p)
}

// OnFunc registers a plain function as a lifecycle hook.
func (r *Router) OnFunc(event string, fn func(*Context) error, priority ...int) error {
	if fn == nil {
		return r.On(event, nil, priority...)
	}
	return r.On(event, HookFunc(fn), priority...)
}

// RegisterHook registers a named hook for use with RouteHandle.Hook.
func (r *Router) RegisterHook(name string, hook Hook) {
	r.hooks.RegisterNamed(name, hook)
}

// RegisterHookFactory registers a named hook constructor. The constructor
// runs once on first dispatch through the hook, and the instance is cached.
func (r *Router) RegisterHookFactory(name string, factory func() Hook) {
	r.hooks.RegisterNamedFactory(name, factory)
}

// Controller registers a controller factory under a name, for use in
// "Name@Action" handler strings.
func (r *Router) Controller(name string, factory func() interface{}) {
	r.controllers.Register(name, factory)
}

// Get registers a GET route.
func (r *Router) Get(pattern, handler string) *RouteHandle {
	return r.add(http.MethodGet, pattern, handler)
}

// Post registers a POST route.
func (r *Router) Post(pattern, handler string) *RouteHandle {
	return r.add(http.MethodPost, pattern, handler)
}

// Put registers a PUT route.
func (r *Router) Put(pattern, handler string) *RouteHandle {
	return r.add(http.MethodPut, pattern, handler)
}

// Patch registers a PATCH route.
func (r *Router) Patch(pattern, handler string) *RouteHandle {
	return r.add(http.MethodPatch, pattern, handler)
}

// Delete registers a DELETE route.
func (r *Router) Delete(pattern, handler string) *RouteHandle {
	return r.add(http.MethodDelete, pattern, handler)
}

// Any registers a route that matches every HTTP method.
func (r *Router) Any(pattern, handler string) *RouteHandle {
	return r.add(MethodAny, pattern, handler)
}

func (r *Router) add(method, pattern, handler string) *RouteHandle {
	rt := &Route{Method: method, Pattern: pattern, Handler: handler}

	// Surface bad patterns at registration, not on first request.
	if _, err := rt.compile(); err != nil {
		r.logger.Warn("route pattern rejected",
			zap.String("pattern", pattern), zap.Error(err))
	}

	r.mu.Lock()
	r.routes = append(r.routes, rt)
	r.mu.Unlock()

	return &RouteHandle{route: rt}
}

// Routes returns the route table in registration order.
func (r *Router) Routes() []*Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Route, len(r.routes))
	copy(out, r.routes)
	return out
}

// Match walks the route table in registration order and returns the first
// route whose method (or ANY) and pattern both match, along with the
// captured parameter values in placeholder order.
//
// Registration order is load-bearing: register /posts/recent before
// /posts/:id: or the placeholder route wins.
//
// When a pattern matches the path but no registered method does, Match
// returns ErrMethodNotAllowed so callers can distinguish 405 from 404.
// The dispatcher answers 404 for both.
func (r *Router) Match(method, urlpath string) (*Route, []string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pathMatched := false
	for _, rt := range r.routes {
		cp, err := rt.compile()
		if err != nil {
			continue
		}
		values, ok := cp.match(urlpath)
		if !ok {
			continue
		}
		if rt.Method == MethodAny || rt.Method == method {
			return rt, values, nil
		}
		pathMatched = true
	}

	if pathMatched {
		return nil, nil, ErrMethodNotAllowed
	}
	return nil, nil, ErrRouteNotFound
}

// matchPath returns the first route whose pattern matches the path,
// ignoring the method. The dispatcher uses it to answer OPTIONS
// preflights for routes registered under other methods.
func (r *Router) matchPath(urlpath string) (*Route, []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rt := range r.routes {
		cp, err := rt.compile()
		if err != nil {
			continue
		}
		if values, ok := cp.match(urlpath); ok {
			return rt, values
		}
	}
	return nil, nil
}

// GroupOptions configures a route group.
type GroupOptions struct {
	Prefix string
	Hooks  []string
}

// Group is a batch of routes sharing a path prefix and a hook set.
type Group struct {
	router *Router
	prefix string
	hooks  []string
}

// Group registers a batch of routes under a shared prefix and hook set.
//
//	r.Group(weave.GroupOptions{Prefix: "/api", Hooks: []string{"cors"}}, func(g *weave.Group) {
//		g.Get("/users", "Users@Index")
//	})
func (r *Router) Group(opt GroupOptions, fn func(*Group)) {
	g := &Group{router: r, prefix: opt.Prefix, hooks: opt.Hooks}
	fn(g)
}

// Group nests another group under this one.
func (g *Group) Group(opt GroupOptions, fn func(*Group)) {
	child := &Group{
		router: g.router,
		prefix: path.Join(g.prefix, opt.Prefix),
		hooks:  append(append([]string{}, g.hooks...), opt.Hooks...),
	}
	fn(child)
}

func (g *Group) add(method, pattern, handler string) *RouteHandle {
	full := path.Join(g.prefix, pattern)
	// path.Join strips trailing slashes; slashes are significant in patterns.
	if strings.HasSuffix(pattern, "/") && !strings.HasSuffix(full, "/") {
		full += "/"
	}
	h := g.router.add(method, full, handler)
	if len(g.hooks) > 0 {
		h.route.HookNames = append(append([]string{}, g.hooks...), h.route.HookNames...)
	}
	return h
}

// Get registers a GET route in the group.
func (g *Group) Get(pattern, handler string) *RouteHandle {
	return g.add(http.MethodGet, pattern, handler)
}

// Post registers a POST route in the group.
func (g *Group) Post(pattern, handler string) *RouteHandle {
	return g.add(http.MethodPost, pattern, handler)
}

// Put registers a PUT route in the group.
func (g *Group) Put(pattern, handler string) *RouteHandle {
	return g.add(http.MethodPut, pattern, handler)
}

// Patch registers a PATCH route in the group.
func (g *Group) Patch(pattern, handler string) *RouteHandle {
	return g.add(http.MethodPatch, pattern, handler)
}

// Delete registers a DELETE route in the group.
func (g *Group) Delete(pattern, handler string) *RouteHandle {
	return g.add(http.MethodDelete, pattern, handler)
}

// Any registers an any-method route in the group.
func (g *Group) Any(pattern, handler string) *RouteHandle {
	return g.add(MethodAny, pattern, handler)
}

// systemTrigger runs lifecycle hooks outside a request, for boot and
// shutdown events. Errors are logged, never fatal.
func (r *Router) systemTrigger(event string) {
	c := &Context{router: r, store: newStore()}
	if err := r.hooks.Trigger(event, c); err != nil {
		r.logger.Warn("lifecycle hook failed", zap.String("event", event), zap.Error(err))
	}
}
