package weave

import (
	"reflect"
	"strings"
	"sync"
)

// Controllers maps controller names to factories. Handler strings take the
// form "Posts@Show": the controller is built from its factory, the action
// is looked up as an exported method on the instance.
//
// Actions accept one of:
//
//	func (p *Posts) Show(c *weave.Context)
//	func (p *Posts) Show(c *weave.Context) error
//	func (p *Posts) Show(c *weave.Context, params ...string)
//	func (p *Posts) Show(c *weave.Context, params ...string) error
//
// The variadic forms receive the captured path parameters positionally, in
// placeholder order.
type Controllers struct {
	mu        sync.RWMutex
	factories map[string]func() interface{}
}

func newControllers() *Controllers {
	return &Controllers{
		factories: make(map[string]func() interface{}),
	}
}

// Register binds a controller factory to a name.
func (cs *Controllers) Register(name string, factory func() interface{}) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.factories[name] = factory
}

// splitHandler splits "Controller@Action" into its two halves.
func splitHandler(handler string) (string, string, bool) {
	at := strings.Index(handler, "@")
	if at <= 0 || at == len(handler)-1 {
		return "", "", false
	}
	return handler[:at], handler[at+1:], true
}

// resolve builds the controller instance for a handler string and returns
// it with the action name.
func (cs *Controllers) resolve(handler string) (interface{}, string, error) {
	name, action, ok := splitHandler(handler)
	if !ok {
		return nil, "", &HandlerMissingError{Handler: handler, Reason: "handler is not in Controller@Action form"}
	}

	cs.mu.RLock()
	factory, ok := cs.factories[name]
	cs.mu.RUnlock()
	if !ok {
		return nil, "", &HandlerMissingError{Handler: handler, Reason: "controller not registered: " + name}
	}

	instance := factory()
	if instance == nil {
		return nil, "", &HandlerMissingError{Handler: handler, Reason: "controller factory returned nil: " + name}
	}

	return instance, action, nil
}

var contextType = reflect.TypeOf((*Context)(nil))
var errorType = reflect.TypeOf((*error)(nil)).Elem()

// invokeAction calls the named action on the controller instance.
func invokeAction(instance interface{}, handler, action string, c *Context) error {
	m := reflect.ValueOf(instance).MethodByName(action)
	if !m.IsValid() {
		return &HandlerMissingError{Handler: handler, Reason: "action not found: " + action}
	}

	t := m.Type()
	if t.NumIn() < 1 || t.In(0) != contextType {
		return &HandlerMissingError{Handler: handler, Reason: "action must take *weave.Context first: " + action}
	}

	var args []reflect.Value
	switch {
	case t.NumIn() == 1:
		args = []reflect.Value{reflect.ValueOf(c)}
	case t.NumIn() == 2 && t.IsVariadic() && t.In(1).Elem().Kind() == reflect.String:
		args = make([]reflect.Value, 0, 1+len(c.paramValues))
		args = append(args, reflect.ValueOf(c))
		for _, v := range c.paramValues {
			args = append(args, reflect.ValueOf(v))
		}
	default:
		return &HandlerMissingError{Handler: handler, Reason: "unsupported action signature: " + action}
	}

	if t.NumOut() > 1 || (t.NumOut() == 1 && !t.Out(0).Implements(errorType)) {
		return &HandlerMissingError{Handler: handler, Reason: "action may return at most an error: " + action}
	}

	out := m.Call(args)
	if len(out) == 1 && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}
