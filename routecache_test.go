package weave

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteCacheRoundTrip(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "routes.json")

	original := NewRouter()
	original.Get("/posts/recent", "Posts@Recent")
	original.Get("/user/:user_id:/post/:post_id:", "Posts@Show").Hook("auth")
	original.Any("/health", "System@Health")

	wantRoute, wantValues, err := original.Match(http.MethodGet, "/user/42/post/7")
	require.NoError(t, err)

	require.NoError(t, original.SaveRouteCache(cachePath))

	reloaded := NewRouter()
	require.NoError(t, reloaded.LoadRouteCache(cachePath))

	gotRoute, gotValues, err := reloaded.Match(http.MethodGet, "/user/42/post/7")
	require.NoError(t, err)

	assert.Equal(t, wantRoute.Handler, gotRoute.Handler)
	assert.Equal(t, wantRoute.Pattern, gotRoute.Pattern)
	assert.Equal(t, wantRoute.HookNames, gotRoute.HookNames)
	assert.Equal(t, wantValues, gotValues)

	// Registration order survives the round trip.
	require.Len(t, reloaded.Routes(), 3)
	assert.Equal(t, "Posts@Recent", reloaded.Routes()[0].Handler)
}

func TestRouteCachePreservesOrderPrecedence(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "routes.json")

	original := NewRouter()
	original.Get("/posts/recent", "Posts@Recent")
	original.Get("/posts/:id:", "Posts@Show")
	require.NoError(t, original.SaveRouteCache(cachePath))

	reloaded := NewRouter()
	require.NoError(t, reloaded.LoadRouteCache(cachePath))

	rt, _, err := reloaded.Match(http.MethodGet, "/posts/recent")
	require.NoError(t, err)
	assert.Equal(t, "Posts@Recent", rt.Handler)
}

func TestClearRouteCache(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "routes.json")

	r := NewRouter()
	r.Get("/a", "A@Index")
	require.NoError(t, r.SaveRouteCache(cachePath))

	require.NoError(t, ClearRouteCache(cachePath))
	_, err := os.Stat(cachePath)
	assert.True(t, os.IsNotExist(err))

	// Clearing an already-missing cache is fine.
	require.NoError(t, ClearRouteCache(cachePath))
}

func TestLoadRoutesForInspection(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "routes.json")

	r := NewRouter()
	r.Get("/posts/:id:", "Posts@Show").Hook("auth", "cors")
	require.NoError(t, r.SaveRouteCache(cachePath))

	routes, err := LoadRoutes(cachePath)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "Posts@Show", routes[0].Handler)
	assert.Equal(t, []string{"auth", "cors"}, routes[0].HookNames)
}

func TestLoadRouteCacheRejectsUnknownVersion(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "routes.json")
	require.NoError(t, os.WriteFile(cachePath, []byte(`{"version":99,"routes":[]}`), 0644))

	r := NewRouter()
	assert.Error(t, r.LoadRouteCache(cachePath))
}
