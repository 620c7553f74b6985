package weave

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchRegistrationOrderPrecedence(t *testing.T) {
	r := NewRouter()
	r.Get("/posts/recent", "Posts@Recent")
	r.Get("/posts/:id:", "Posts@Show")

	rt, values, err := r.Match(http.MethodGet, "/posts/recent")
	require.NoError(t, err)
	assert.Equal(t, "Posts@Recent", rt.Handler)
	assert.Empty(t, values)

	rt, values, err = r.Match(http.MethodGet, "/posts/99")
	require.NoError(t, err)
	assert.Equal(t, "Posts@Show", rt.Handler)
	assert.Equal(t, []string{"99"}, values)
}

func TestMatchAnyMethod(t *testing.T) {
	r := NewRouter()
	r.Any("/health", "System@Health")

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		rt, _, err := r.Match(method, "/health")
		require.NoError(t, err)
		assert.Equal(t, "System@Health", rt.Handler)
	}
}

func TestMatchDistinguishesMethodFromPathMiss(t *testing.T) {
	r := NewRouter()
	r.Get("/posts", "Posts@Index")

	_, _, err := r.Match(http.MethodPost, "/posts")
	assert.ErrorIs(t, err, ErrMethodNotAllowed)

	_, _, err = r.Match(http.MethodGet, "/missing")
	assert.ErrorIs(t, err, ErrRouteNotFound)
}

func TestGroupPrefixAndHooks(t *testing.T) {
	r := NewRouter()
	r.Group(GroupOptions{Prefix: "/api", Hooks: []string{"cors"}}, func(g *Group) {
		g.Get("/users", "Users@Index")
		g.Get("/users/:id:", "Users@Show").Hook("auth")
	})

	rt, _, err := r.Match(http.MethodGet, "/api/users")
	require.NoError(t, err)
	assert.Equal(t, "Users@Index", rt.Handler)
	assert.Equal(t, []string{"cors"}, rt.HookNames)

	rt, values, err := r.Match(http.MethodGet, "/api/users/7")
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, values)
	// Group hooks come before route hooks.
	assert.Equal(t, []string{"cors", "auth"}, rt.HookNames)
}

func TestGroupKeepsTrailingSlash(t *testing.T) {
	r := NewRouter()
	r.Group(GroupOptions{Prefix: "/api"}, func(g *Group) {
		g.Get("/users/", "Users@Index")
	})

	rt, _, err := r.Match(http.MethodGet, "/api/users/")
	require.NoError(t, err)
	assert.Equal(t, "/api/users/", rt.Pattern)

	_, _, err = r.Match(http.MethodGet, "/api/users")
	assert.ErrorIs(t, err, ErrRouteNotFound)
}

func TestNestedGroups(t *testing.T) {
	r := NewRouter()
	r.Group(GroupOptions{Prefix: "/api", Hooks: []string{"cors"}}, func(g *Group) {
		g.Group(GroupOptions{Prefix: "/v2", Hooks: []string{"auth"}}, func(v *Group) {
			v.Post("/posts", "Posts@Create")
		})
	})

	rt, _, err := r.Match(http.MethodPost, "/api/v2/posts")
	require.NoError(t, err)
	assert.Equal(t, "Posts@Create", rt.Handler)
	assert.Equal(t, []string{"cors", "auth"}, rt.HookNames)
}

func TestRouteHandleHookAccumulates(t *testing.T) {
	r := NewRouter()
	r.Get("/admin", "Admin@Index").Hook("auth").Hook("audit", "cors")

	rt := r.Routes()[0]
	assert.Equal(t, []string{"auth", "audit", "cors"}, rt.HookNames)
}

func TestRoutesReturnsRegistrationOrder(t *testing.T) {
	r := NewRouter()
	r.Get("/a", "A@Index")
	r.Post("/b", "B@Create")
	r.Delete("/c", "C@Destroy")

	routes := r.Routes()
	require.Len(t, routes, 3)
	assert.Equal(t, "A@Index", routes[0].Handler)
	assert.Equal(t, "B@Create", routes[1].Handler)
	assert.Equal(t, "C@Destroy", routes[2].Handler)
}
