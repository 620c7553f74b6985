package weave

import (
	"sort"
	"sync"
)

// ModelFactory builds a model instance. It runs at most once per name per
// process; its side effects (one-time setup queries, usually) are the
// reason construction is serialized.
type ModelFactory func(l *Loader) (interface{}, error)

// Loader is the lazy model loader: named data-access objects constructed
// on first use and cached for the life of the process.
//
// First-time construction per name is guarded by a per-name mutex. The
// original design used advisory file locks for this; confined to one
// process, a keyed mutex gives the same best-effort guarantee without the
// filesystem. There is no cross-process guarantee, and there never was.
type Loader struct {
	mu        sync.Mutex
	factories map[string]ModelFactory
	instances map[string]interface{}
	building  map[string]*sync.Mutex

	connect func() (interface{}, error)
	conn    interface{}
	connSet bool

	// trigger fires lifecycle events (before/after_db_connection); wired
	// by the Router, nil when the loader is used standalone.
	trigger func(event string)
}

// NewLoader creates an empty loader.
func NewLoader() *Loader {
	return &Loader{
		factories: make(map[string]ModelFactory),
		instances: make(map[string]interface{}),
		building:  make(map[string]*sync.Mutex),
	}
}

// Register binds a model factory to a name. Registration replaces any
// earlier factory but never an already-built instance.
func (l *Loader) Register(name string, factory ModelFactory) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.factories[name] = factory
}

// SetConnect installs the database connector. The connection is opened
// lazily by the first DB call, wrapped in the before_db_connection and
// after_db_connection events.
func (l *Loader) SetConnect(connect func() (interface{}, error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connect = connect
}

// DB returns the shared database handle, opening it on first use.
func (l *Loader) DB() (interface{}, error) {
	l.mu.Lock()
	if l.connSet {
		conn := l.conn
		l.mu.Unlock()
		return conn, nil
	}
	connect := l.connect
	trigger := l.trigger
	l.mu.Unlock()

	if connect == nil {
		return nil, nil
	}

	if trigger != nil {
		trigger(EventBeforeDBConnection)
	}
	conn, err := connect()
	if err != nil {
		return nil, err
	}
	if trigger != nil {
		trigger(EventAfterDBConnection)
	}

	l.mu.Lock()
	if !l.connSet {
		l.conn = conn
		l.connSet = true
	}
	conn = l.conn
	l.mu.Unlock()
	return conn, nil
}

// Get returns the cached instance for name, constructing it on first
// access. A cached hit has no side effects. An unknown name fails fast
// with a ModelNotFoundError naming the model.
func (l *Loader) Get(name string) (interface{}, error) {
	l.mu.Lock()
	if inst, ok := l.instances[name]; ok {
		l.mu.Unlock()
		return inst, nil
	}
	factory, ok := l.factories[name]
	if !ok {
		l.mu.Unlock()
		return nil, &ModelNotFoundError{Name: name}
	}
	lock, ok := l.building[name]
	if !ok {
		lock = &sync.Mutex{}
		l.building[name] = lock
	}
	l.mu.Unlock()

	// Serialize first-time construction per name so concurrent first
	// accesses trigger the factory's side effects once.
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	if inst, ok := l.instances[name]; ok {
		l.mu.Unlock()
		return inst, nil
	}
	l.mu.Unlock()

	inst, err := factory(l)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.instances[name] = inst
	delete(l.building, name)
	l.mu.Unlock()

	return inst, nil
}

// MustGet is Get for call sites that treat a missing model as programmer
// error.
func (l *Loader) MustGet(name string) interface{} {
	inst, err := l.Get(name)
	if err != nil {
		panic(err)
	}
	return inst
}

// Model is the typed access surface: a thin façade over Loader.Get that
// asserts the instance to T. Same cache, same single construction.
func Model[T any](l *Loader, name string) (T, error) {
	var zero T
	inst, err := l.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := inst.(T)
	if !ok {
		return zero, &ModelNotFoundError{Name: name}
	}
	return typed, nil
}

// ModelMap is the legacy map-subscript access surface. It holds no state
// of its own; indexing routes through the loader's cache.
type ModelMap struct {
	l *Loader
}

// Map returns the legacy map-style view of the loader.
func (l *Loader) Map() ModelMap {
	return ModelMap{l: l}
}

// Index returns the model for name, nil when unknown.
func (m ModelMap) Index(name string) interface{} {
	inst, err := m.l.Get(name)
	if err != nil {
		return nil
	}
	return inst
}

// Names returns the registered model names, sorted.
func (l *Loader) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.factories))
	for name := range l.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Loaded reports whether an instance for name has been constructed.
func (l *Loader) Loaded(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.instances[name]
	return ok
}
