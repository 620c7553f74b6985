package weave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitHandler(t *testing.T) {
	name, action, ok := splitHandler("Posts@Show")
	require.True(t, ok)
	assert.Equal(t, "Posts", name)
	assert.Equal(t, "Show", action)

	for _, bad := range []string{"", "Posts", "@Show", "Posts@", "@"} {
		_, _, ok := splitHandler(bad)
		assert.False(t, ok, "handler %q should be rejected", bad)
	}
}

type shapesController struct {
	calls []string
}

func (s *shapesController) Plain(c *Context)                      { s.calls = append(s.calls, "plain") }
func (s *shapesController) WithErr(c *Context) error              { s.calls = append(s.calls, "witherr"); return nil }
func (s *shapesController) Variadic(c *Context, params ...string) { s.calls = append(s.calls, params...) }
func (s *shapesController) BadSignature(n int)                    {}

func TestInvokeActionSignatures(t *testing.T) {
	ctrl := &shapesController{}
	c := &Context{store: newStore(), paramValues: []string{"1", "2"}}

	require.NoError(t, invokeAction(ctrl, "Shapes@Plain", "Plain", c))
	require.NoError(t, invokeAction(ctrl, "Shapes@WithErr", "WithErr", c))
	require.NoError(t, invokeAction(ctrl, "Shapes@Variadic", "Variadic", c))

	assert.Equal(t, []string{"plain", "witherr", "1", "2"}, ctrl.calls)
}

func TestInvokeActionRejectsBadShapes(t *testing.T) {
	ctrl := &shapesController{}
	c := &Context{store: newStore()}

	var missing *HandlerMissingError

	err := invokeAction(ctrl, "Shapes@Nope", "Nope", c)
	require.ErrorAs(t, err, &missing)

	err = invokeAction(ctrl, "Shapes@BadSignature", "BadSignature", c)
	require.ErrorAs(t, err, &missing)
}

func TestControllerResolve(t *testing.T) {
	cs := newControllers()
	cs.Register("Shapes", func() interface{} { return &shapesController{} })

	inst, action, err := cs.resolve("Shapes@Plain")
	require.NoError(t, err)
	assert.Equal(t, "Plain", action)
	assert.IsType(t, &shapesController{}, inst)

	var missing *HandlerMissingError
	_, _, err = cs.resolve("Ghost@Walk")
	require.ErrorAs(t, err, &missing)

	_, _, err = cs.resolve("not-a-handler")
	require.ErrorAs(t, err, &missing)
}
