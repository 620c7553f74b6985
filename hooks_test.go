package weave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(r *Router) *Context {
	return &Context{router: r, store: newStore()}
}

func TestHooksRunInPriorityOrder(t *testing.T) {
	r := NewRouter()
	var order []int

	record := func(n int) HookFunc {
		return func(c *Context) error {
			order = append(order, n)
			return nil
		}
	}

	require.NoError(t, r.On("before_action_execute", record(20), 20))
	require.NoError(t, r.On("before_action_execute", record(5), 5))
	require.NoError(t, r.On("before_action_execute", record(10), 10))

	err := r.hooks.Trigger("before_action_execute", testContext(r))
	require.NoError(t, err)
	assert.Equal(t, []int{5, 10, 20}, order)
}

func TestHooksStableTieBreakSurvivesLateRegistration(t *testing.T) {
	r := NewRouter()
	var order []string

	record := func(name string) HookFunc {
		return func(c *Context) error {
			order = append(order, name)
			return nil
		}
	}

	require.NoError(t, r.On("e", record("p20"), 20))
	require.NoError(t, r.On("e", record("p5"), 5))
	require.NoError(t, r.On("e", record("p10-first"), 10))

	require.NoError(t, r.hooks.Trigger("e", testContext(r)))
	assert.Equal(t, []string{"p5", "p10-first", "p20"}, order)

	// A fourth hook at priority 10 lands after the original priority-10
	// hook on the next trigger.
	require.NoError(t, r.On("e", record("p10-second"), 10))

	order = nil
	require.NoError(t, r.hooks.Trigger("e", testContext(r)))
	assert.Equal(t, []string{"p5", "p10-first", "p10-second", "p20"}, order)
}

func TestNilHookRegistrationRejected(t *testing.T) {
	r := NewRouter()

	err := r.On("on_404", nil)
	var regErr *RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "on_404", regErr.Event)

	err = r.OnFunc("on_404", nil)
	require.ErrorAs(t, err, &regErr)

	// The rejected registration leaves nothing behind.
	assert.False(t, r.hooks.Has("on_404"))
}

func TestHaltStopsRemainingHooksAcrossTriggers(t *testing.T) {
	r := NewRouter()
	var ran []string

	r.OnFunc("before_action_execute", func(c *Context) error {
		ran = append(ran, "halter")
		c.Halt()
		return nil
	}, 5)
	r.OnFunc("before_action_execute", func(c *Context) error {
		ran = append(ran, "skipped-same-event")
		return nil
	}, 10)
	r.OnFunc("after_action_execute", func(c *Context) error {
		ran = append(ran, "skipped-later-event")
		return nil
	})

	c := testContext(r)
	require.NoError(t, r.hooks.Trigger("before_action_execute", c))
	// Halting persists across trigger calls for the same request.
	require.NoError(t, r.hooks.Trigger("after_action_execute", c))

	assert.Equal(t, []string{"halter"}, ran)
	assert.True(t, c.Halted())

	// A fresh request (fresh context) is not halted.
	c2 := testContext(r)
	ran = nil
	require.NoError(t, r.hooks.Trigger("after_action_execute", c2))
	assert.Equal(t, []string{"skipped-later-event"}, ran)
}

func TestHookErrorStopsChainAndWraps(t *testing.T) {
	r := NewRouter()
	var ran []string

	r.OnFunc("e", func(c *Context) error {
		ran = append(ran, "boom")
		return assert.AnError
	}, 5)
	r.OnFunc("e", func(c *Context) error {
		ran = append(ran, "after")
		return nil
	}, 10)

	err := r.hooks.Trigger("e", testContext(r))
	var hookErr *HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, "e", hookErr.Event)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []string{"boom"}, ran)
}

type countingHook struct {
	handled int
}

func (h *countingHook) Handle(c *Context) error {
	h.handled++
	return nil
}

func TestNamedHookFactoryResolvedOnce(t *testing.T) {
	r := NewRouter()

	built := 0
	r.RegisterHookFactory("audit", func() Hook {
		built++
		return &countingHook{}
	})

	c := testContext(r)
	require.NoError(t, r.hooks.TriggerNamed("before_action_execute", []string{"audit"}, c))
	require.NoError(t, r.hooks.TriggerNamed("before_action_execute", []string{"audit"}, c))

	assert.Equal(t, 1, built, "factory must run once, instance cached")

	hook, ok := r.hooks.resolveNamed("audit")
	require.True(t, ok)
	assert.Equal(t, 2, hook.(*countingHook).handled)
}

func TestUnknownNamedHookIsAnError(t *testing.T) {
	r := NewRouter()

	err := r.hooks.TriggerNamed("before_action_execute", []string{"no-such-hook"}, testContext(r))
	var hookErr *HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, "no-such-hook", hookErr.Name)
}

func TestBuiltinNamedHooksRegistered(t *testing.T) {
	r := NewRouter()

	_, ok := r.hooks.resolveNamed("cors")
	assert.True(t, ok)
	_, ok = r.hooks.resolveNamed("ratelimit")
	assert.True(t, ok)
}
