package weave

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// routeCacheFile is the serialized route table format. Compiled patterns
// are not persisted; they rebuild identically from the pattern strings.
type routeCacheFile struct {
	Version int      `json:"version"`
	Routes  []*Route `json:"routes"`
}

const routeCacheVersion = 1

// SaveRouteCache serializes the route table to path. The file is
// informational state: deleting it (or ClearRouteCache) invalidates it.
func (r *Router) SaveRouteCache(path string) error {
	file := routeCacheFile{Version: routeCacheVersion, Routes: r.Routes()}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return errors.Wrap(err, "serializing route cache")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "writing route cache")
	}
	return nil
}

// LoadRouteCache reads a serialized route table and registers its routes,
// in their original registration order, on this router. A route reloaded
// from cache matches exactly as it did before caching: same handler, same
// captured parameters.
func (r *Router) LoadRouteCache(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading route cache")
	}

	var file routeCacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return errors.Wrap(err, "parsing route cache")
	}
	if file.Version != routeCacheVersion {
		return errors.Errorf("route cache version %d not supported", file.Version)
	}

	for _, rt := range file.Routes {
		h := r.add(rt.Method, rt.Pattern, rt.Handler)
		h.route.HookNames = append(h.route.HookNames, rt.HookNames...)
	}
	return nil
}

// LoadRoutes parses a serialized route table without binding it to a
// router, for inspection tooling.
func LoadRoutes(path string) ([]*Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading route cache")
	}

	var file routeCacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "parsing route cache")
	}
	return file.Routes, nil
}

// ClearRouteCache removes the cache file. A missing file is not an error.
func ClearRouteCache(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "clearing route cache")
	}
	return nil
}
