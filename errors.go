package weave

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// ErrRouteNotFound is returned by Match when no registered route fits the
// request. The dispatcher turns it into a 404 through the on_404 chain.
var ErrRouteNotFound = errors.New("weave: no route matched")

// ErrMethodNotAllowed is returned by Match when a pattern fits the path but
// no registered method does. The dispatcher still answers 404, the distinct
// error exists so callers can tell the two cases apart.
var ErrMethodNotAllowed = errors.New("weave: route matched path but not method")

// RegistrationError reports a hook registration that was rejected.
// The offending registration is skipped, it is never fatal.
type RegistrationError struct {
	Event  string
	Reason string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("weave: hook registration for %q rejected: %s", e.Event, e.Reason)
}

// HandlerMissingError reports a matched route whose controller or action
// does not exist. Surfaced as a 500 through the on_error chain.
type HandlerMissingError struct {
	Handler string
	Reason  string
}

func (e *HandlerMissingError) Error() string {
	return fmt.Sprintf("weave: handler %q unavailable: %s", e.Handler, e.Reason)
}

// HookError wraps an error raised inside a hook callback, carrying the
// event and hook name for the on_error chain.
type HookError struct {
	Event string
	Name  string
	Err   error
}

func (e *HookError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("weave: hook %q on %s: %v", e.Name, e.Event, e.Err)
	}
	return fmt.Sprintf("weave: hook on %s: %v", e.Event, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// ModelNotFoundError reports a model name the loader could not resolve.
type ModelNotFoundError struct {
	Name string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("weave: model %q not registered", e.Name)
}

// HTTPError carries a status code alongside an error, letting controllers
// and hooks pick the response status for the default error page.
type HTTPError struct {
	Code    int
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Message)
}

func (e *HTTPError) Unwrap() error { return e.Err }

// statusFor picks the response status for an error reaching the on_error
// chain. HandlerMissing and everything unknown is a 500.
func statusFor(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return http.StatusInternalServerError
}
