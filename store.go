package weave

import "sync"

// store is the per-request key/value bag behind Context.Set/Get/Del.
// Hooks use it to pass values down the pipeline.
type store struct {
	m  map[string]interface{}
	mu sync.Mutex
}

func newStore() *store {
	return &store{
		m: make(map[string]interface{}),
	}
}

func (s *store) Set(k string, v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m[k] = v
}

func (s *store) Get(k string) interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.m[k]
}

func (s *store) Del(k string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.m, k)
}

func (s *store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	return keys
}

func (s *store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m = make(map[string]interface{})
}
