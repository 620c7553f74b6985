package weave

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// methodOverrideField is the form field HTML forms use to reach PUT, PATCH
// and DELETE routes through a POST body.
const methodOverrideField = "_method"

// ServeHTTP runs the dispatch pipeline for one request:
//
//	before_route_match → match → after_route_match (or on_404)
//	→ before_controller_load → factory → after_controller_instantiate
//	→ before_action_execute (global, then route hooks) → action
//	→ after_action_execute
//
// Any hook may call Context.Halt to short-circuit the rest of the
// pipeline; errors and panics are routed through the on_error chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if r.metricsEndpoint != "" && req.URL.Path == r.metricsEndpoint {
		r.metrics.handler().ServeHTTP(w, req)
		return
	}

	start := time.Now()
	c := newContext(w, req, r)
	defer c.teardown()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic in dispatch",
				zap.Any("panic", rec),
				zap.String("path", req.URL.Path),
				zap.ByteString("stack", debug.Stack()))
			r.fail(c, errors.Errorf("panic: %v", rec))
		}
	}()

	applyMethodOverride(req)

	r.dispatch(c)

	if r.metrics != nil {
		r.metrics.observe(c, time.Since(start))
	}
	if r.isDev {
		r.logger.Debug("request",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", c.statusCode()),
			zap.Duration("took", time.Since(start)))
	}
}

func (r *Router) dispatch(c *Context) {
	if err := r.hooks.Trigger(EventBeforeRouteMatch, c); err != nil {
		r.fail(c, err)
		return
	}
	if c.Halted() {
		return
	}

	route, values, err := r.Match(c.Request.Method, c.Request.URL.Path)
	if err != nil {
		if err == ErrMethodNotAllowed && c.Request.Method == http.MethodOptions {
			r.preflight(c)
			return
		}
		// A path-only match is still answered 404; the distinct error
		// exists for callers of Match, not for clients.
		r.notFound(c)
		return
	}

	cp, err := route.compile()
	if err != nil {
		r.fail(c, err)
		return
	}

	c.route = route
	c.paramNames = cp.ParamNames()
	c.paramValues = values

	if err := r.hooks.Trigger(EventAfterRouteMatch, c); err != nil {
		r.fail(c, err)
		return
	}
	if c.Halted() {
		return
	}

	if err := r.hooks.Trigger(EventBeforeControllerLoad, c); err != nil {
		r.fail(c, err)
		return
	}
	if c.Halted() {
		return
	}

	instance, action, err := r.controllers.resolve(route.Handler)
	if err != nil {
		r.fail(c, err)
		return
	}

	if err := r.hooks.Trigger(EventAfterControllerInstantiate, c); err != nil {
		r.fail(c, err)
		return
	}

	// Global hooks first, then the route's named hooks, so cross-cutting
	// concerns always run before resource-specific ones.
	if err := r.hooks.Trigger(EventBeforeActionExecute, c); err != nil {
		r.fail(c, err)
		return
	}
	if err := r.hooks.TriggerNamed(EventBeforeActionExecute, route.HookNames, c); err != nil {
		r.fail(c, err)
		return
	}
	if c.Halted() {
		return
	}

	if err := invokeAction(instance, route.Handler, action, c); err != nil {
		r.fail(c, err)
		return
	}

	if err := r.hooks.Trigger(EventAfterActionExecute, c); err != nil {
		r.fail(c, err)
		return
	}
}

// preflight answers an OPTIONS request whose path matches a route
// registered under other methods. The route's named hooks run so a
// route-scoped cors hook can answer it; when no hook writes a response
// the request falls through to the 404 chain.
func (r *Router) preflight(c *Context) {
	route, values := r.matchPath(c.Request.URL.Path)
	if route == nil || len(route.HookNames) == 0 {
		r.notFound(c)
		return
	}

	cp, err := route.compile()
	if err != nil {
		r.fail(c, err)
		return
	}
	c.route = route
	c.paramNames = cp.ParamNames()
	c.paramValues = values

	if err := r.hooks.TriggerNamed(EventBeforeActionExecute, route.HookNames, c); err != nil {
		r.fail(c, err)
		return
	}
	if !c.Written() {
		r.notFound(c)
	}
}

// applyMethodOverride rewrites POST into PUT/PATCH/DELETE when the body
// carries a _method field.
func applyMethodOverride(req *http.Request) {
	if req.Method != http.MethodPost {
		return
	}
	switch req.PostFormValue(methodOverrideField) {
	case http.MethodPut:
		req.Method = http.MethodPut
	case http.MethodPatch:
		req.Method = http.MethodPatch
	case http.MethodDelete:
		req.Method = http.MethodDelete
	}
}

// notFound runs the on_404 chain; absent any hook or any written response,
// it answers a minimal 404 page.
func (r *Router) notFound(c *Context) {
	if err := r.hooks.Trigger(EventOn404, c); err != nil {
		r.fail(c, err)
		return
	}
	if !c.Written() {
		http.Error(c.ResponseWriter, "404 Not Found", http.StatusNotFound)
	}
}

// fail runs the on_error chain; absent any hook or any written response,
// it answers a minimal status page. Never a stack trace.
func (r *Router) fail(c *Context, err error) {
	r.logger.Error("dispatch failed",
		zap.String("path", c.Request.URL.Path), zap.Error(err))

	c.Set("error", err)

	// Errors raised by the on_error hooks themselves are logged and
	// swallowed here; there is nowhere further to propagate.
	c.halted = false
	if hookErr := r.hooks.Trigger(EventOnError, c); hookErr != nil {
		r.logger.Error("on_error hook failed", zap.Error(hookErr))
	}

	if !c.Written() {
		code := statusFor(err)
		http.Error(c.ResponseWriter, http.StatusText(code), code)
	}
}
