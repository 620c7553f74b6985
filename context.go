package weave

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// O is a convenience shape for JSON responses.
type O map[string]interface{}

// responseRecorder wraps the ResponseWriter so the dispatcher knows the
// final status and whether anything was written.
type responseRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *responseRecorder) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseRecorder) Write(b []byte) (int, error) {
	if !w.wrote {
		w.status = http.StatusOK
		w.wrote = true
	}
	return w.ResponseWriter.Write(b)
}

// Hijack passes through so websocket upgrades keep working behind the
// recorder.
func (w *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func (w *responseRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Context is the per-request record threaded through hooks and controller
// actions. It is created per request and discarded after the response.
type Context struct {
	ResponseWriter http.ResponseWriter
	Request        *http.Request

	// State is free for application use across hooks and the action.
	State interface{}

	router      *Router
	route       *Route
	paramNames  []string
	paramValues []string
	store       *store
	halted      bool
	rec         *responseRecorder
}

func newContext(w http.ResponseWriter, req *http.Request, r *Router) *Context {
	rec := &responseRecorder{ResponseWriter: w}
	return &Context{
		ResponseWriter: rec,
		Request:        req,
		router:         r,
		store:          newStore(),
		rec:            rec,
	}
}

// Halt signals that no further hooks or the controller action should run
// for this request. The hook that halts is expected to have written the
// response (a redirect, usually). Halting is cooperative, not an error.
func (c *Context) Halt() {
	c.halted = true
}

// Halted reports whether the request pipeline was halted.
func (c *Context) Halted() bool {
	return c.halted
}

// Route returns the matched route, nil before matching or on a 404.
func (c *Context) Route() *Route {
	return c.route
}

// Router returns the owning router.
func (c *Context) Router() *Router {
	return c.router
}

// Models returns the router's lazy model loader.
func (c *Context) Models() *Loader {
	return c.router.models
}

// Param returns a captured path parameter by placeholder name.
func (c *Context) Param(name string) string {
	for i, n := range c.paramNames {
		if n == name {
			return c.paramValues[i]
		}
	}
	return ""
}

// ParamAt returns the i-th captured path parameter, in the left-to-right
// order of the placeholders in the pattern.
func (c *Context) ParamAt(i int) string {
	if i < 0 || i >= len(c.paramValues) {
		return ""
	}
	return c.paramValues[i]
}

// Params returns the captured path parameters in placeholder order.
func (c *Context) Params() []string {
	out := make([]string, len(c.paramValues))
	copy(out, c.paramValues)
	return out
}

// Set stores a per-request value.
func (c *Context) Set(k string, v interface{}) {
	c.store.Set(k, v)
}

// Get reads a per-request value.
func (c *Context) Get(k string) interface{} {
	return c.store.Get(k)
}

// Del removes a per-request value.
func (c *Context) Del(k string) {
	c.store.Del(k)
}

// Body reads the request body.
func (c *Context) Body() ([]byte, error) {
	return io.ReadAll(c.Request.Body)
}

// ParseBody unmarshals a JSON request body into target.
func (c *Context) ParseBody(target interface{}) error {
	bts, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(bts, target)
}

// Query returns a query string value.
func (c *Context) Query(key string) string {
	return c.Request.URL.Query().Get(key)
}

// QueryInt returns a query string value parsed as an int.
func (c *Context) QueryInt(key string) (int, error) {
	v := c.Query(key)
	if len(v) == 0 {
		return 0, errors.Errorf("query key %q not found", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "query key %q is not an int", key)
	}
	return i, nil
}

// QueryBool returns a query string value parsed as a bool.
func (c *Context) QueryBool(key string) (bool, error) {
	v := c.Query(key)
	if len(v) == 0 {
		return false, errors.Errorf("query key %q not found", key)
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(err, "query key %q is not a bool", key)
	}
	return b, nil
}

// Form returns a form value.
func (c *Context) Form(key string) string {
	return c.Request.FormValue(key)
}

// Method returns the effective request method, after any _method override.
func (c *Context) Method() string {
	return c.Request.Method
}

// Header returns a request header.
func (c *Context) Header(key string) string {
	return c.Request.Header.Get(key)
}

// SetHeader sets a response header.
func (c *Context) SetHeader(key, value string) {
	c.ResponseWriter.Header().Set(key, value)
}

// ResponseHeader returns the response header map.
func (c *Context) ResponseHeader() http.Header {
	return c.ResponseWriter.Header()
}

// RemoteIP returns the peer address of the request.
func (c *Context) RemoteIP() string {
	return c.Request.RemoteAddr
}

// BasicAuth returns the request's basic auth credentials.
func (c *Context) BasicAuth() (string, string, bool) {
	return c.Request.BasicAuth()
}

// String writes a plain string response.
func (c *Context) String(str string) {
	fmt.Fprint(c.ResponseWriter, str)
}

// Status writes a response status code.
func (c *Context) Status(statusCode int) {
	c.ResponseWriter.WriteHeader(statusCode)
}

// StatusWithString writes a status code and a plain body.
func (c *Context) StatusWithString(statusCode int, status string) {
	c.ResponseWriter.WriteHeader(statusCode)
	c.String(status)
}

// Json writes data as a JSON response.
func (c *Context) Json(data interface{}) (int, error) {
	jsoned, err := json.Marshal(data)
	if err != nil {
		return 0, err
	}

	c.ResponseHeader().Set("content-type", "application/json")
	return c.ResponseWriter.Write(jsoned)
}

// View renders an html/template through the router's template cache,
// firing before_view_render and after_view_render around the render.
func (c *Context) View(filePath string, data interface{}) error {
	return c.router.renderView(c, filePath, data)
}

// Redirect sends an HTTP redirect.
func (c *Context) Redirect(url string, code int) {
	http.Redirect(c.ResponseWriter, c.Request, url, code)
}

// SetCookie sets an http-only cookie.
func (c *Context) SetCookie(name, value string, expireIn time.Duration) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		HttpOnly: true,
		Expires:  time.Now().Add(expireIn),
		Path:     "/",
	}
	http.SetCookie(c.ResponseWriter, cookie)
}

// GetCookie returns a request cookie value, empty when absent.
func (c *Context) GetCookie(name string) string {
	cookie, err := c.Request.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// RemoveCookie expires a cookie.
func (c *Context) RemoveCookie(name string) {
	c.SetCookie(name, "", -(time.Hour * 36))
}

// URL returns the request URL.
func (c *Context) URL() *url.URL {
	return c.Request.URL
}

// Path returns the request path.
func (c *Context) Path() string {
	return c.Request.URL.Path
}

// Host returns the request host.
func (c *Context) Host() string {
	return c.Request.Host
}

// HasPrefix reports whether the request path starts with prefix.
func (c *Context) HasPrefix(prefix string) bool {
	return strings.HasPrefix(c.Request.URL.Path, prefix)
}

// Written reports whether a response has been started.
func (c *Context) Written() bool {
	return c.rec != nil && c.rec.wrote
}

// Upgrade upgrades the request to a websocket connection.
func (c *Context) Upgrade() (*websocket.Conn, error) {
	upgrader := websocket.Upgrader{
		EnableCompression: true,
		HandshakeTimeout:  time.Second * 5,
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
	}
	upgrader.CheckOrigin = func(r *http.Request) bool { return true }

	return upgrader.Upgrade(c.ResponseWriter, c.Request, nil)
}

func (c *Context) statusCode() int {
	if c.rec == nil || !c.rec.wrote {
		return 0
	}
	return c.rec.status
}

// teardown drops per-request references so a leaked Context cannot keep
// the request alive.
func (c *Context) teardown() {
	if c.store != nil {
		c.store.Clear()
	}
	c.store = nil
	c.State = nil
	c.Request = nil
	c.ResponseWriter = nil
}
