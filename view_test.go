package weave

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pagesController struct {
	tmplPath string
}

func (p *pagesController) Home(c *Context) error {
	return c.View(p.tmplPath, O{"Name": c.Param("name")})
}

func writeTemplate(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "home.html")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestViewRendersThroughCacheWithEvents(t *testing.T) {
	tmpl := writeTemplate(t, "<h1>Hello {{.Name}}</h1>")

	r := NewRouter()
	r.Controller("Pages", func() interface{} { return &pagesController{tmplPath: tmpl} })
	r.Get("/hello/:name:", "Pages@Home")

	var events []string
	r.OnFunc(EventBeforeViewRender, func(c *Context) error {
		events = append(events, EventBeforeViewRender)
		return nil
	})
	r.OnFunc(EventAfterViewRender, func(c *Context) error {
		events = append(events, EventAfterViewRender)
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/hello/world", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<h1>Hello world</h1>", w.Body.String())
	assert.Equal(t, []string{EventBeforeViewRender, EventAfterViewRender}, events)
}

func TestViewCacheParsesOnce(t *testing.T) {
	tmpl := writeTemplate(t, "static")

	vc := newViewCache()
	first, err := vc.get(tmpl)
	require.NoError(t, err)
	second, err := vc.get(tmpl)
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestViewCacheInvalidate(t *testing.T) {
	tmpl := writeTemplate(t, "v1")

	vc := newViewCache()
	first, err := vc.get(tmpl)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(tmpl, []byte("v2"), 0644))
	vc.invalidate(tmpl)

	second, err := vc.get(tmpl)
	require.NoError(t, err)
	assert.NotSame(t, first, second, "invalidated entry re-parses")
}

func TestViewMissingTemplateFails(t *testing.T) {
	vc := newViewCache()
	_, err := vc.get(filepath.Join(t.TempDir(), "missing.html"))
	assert.Error(t, err)
}
