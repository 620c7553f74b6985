package weave

import (
	"html/template"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// viewCache caches parsed templates by file path. In dev mode a watcher
// drops entries when the file changes on disk, so edits show up without a
// restart.
type viewCache struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
	watcher   *fsnotify.Watcher
	watched   map[string]bool
}

func newViewCache() *viewCache {
	return &viewCache{
		templates: make(map[string]*template.Template),
		watched:   make(map[string]bool),
	}
}

func (vc *viewCache) get(filePath string) (*template.Template, error) {
	vc.mu.RLock()
	tmpl, ok := vc.templates[filePath]
	vc.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	vc.mu.Lock()
	defer vc.mu.Unlock()

	// Re-check under the write lock.
	if tmpl, ok := vc.templates[filePath]; ok {
		return tmpl, nil
	}

	tmpl, err := template.ParseFiles(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing template %q", filePath)
	}
	vc.templates[filePath] = tmpl

	if vc.watcher != nil && !vc.watched[filePath] {
		// Watch the directory; editors replace files rather than write
		// them in place, which drops per-file watches.
		dir := filepath.Dir(filePath)
		if err := vc.watcher.Add(dir); err == nil {
			vc.watched[filePath] = true
		}
	}

	return tmpl, nil
}

func (vc *viewCache) invalidate(filePath string) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	delete(vc.templates, filePath)
}

// watch starts the dev-mode file watcher. Cached templates whose files
// change are re-parsed on next render.
func (vc *viewCache) watch(logger *zap.Logger) error {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	if vc.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "starting template watcher")
	}
	vc.watcher = watcher

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					vc.invalidate(ev.Name)
					logger.Debug("template cache invalidated", zap.String("file", ev.Name))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("template watcher error", zap.Error(err))
			}
		}
	}()

	return nil
}

func (vc *viewCache) close() {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	if vc.watcher != nil {
		vc.watcher.Close()
		vc.watcher = nil
	}
}

// renderView renders a template for the context, firing the view render
// events around the render.
func (r *Router) renderView(c *Context, filePath string, data interface{}) error {
	if err := r.hooks.Trigger(EventBeforeViewRender, c); err != nil {
		return err
	}
	if c.Halted() {
		return nil
	}

	tmpl, err := r.views.get(filePath)
	if err != nil {
		return err
	}

	c.ResponseHeader().Set("content-type", "text/html; charset=utf-8")
	if err := tmpl.Execute(c.ResponseWriter, data); err != nil {
		return errors.Wrapf(err, "rendering template %q", filePath)
	}

	return r.hooks.Trigger(EventAfterViewRender, c)
}
