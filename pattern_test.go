package weave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePatternCaptureOrder(t *testing.T) {
	cp, err := compilePattern("/user/:user_id:/post/:post_id:")
	require.NoError(t, err)

	assert.Equal(t, []string{"user_id", "post_id"}, cp.ParamNames())

	values, ok := cp.match("/user/42/post/7")
	require.True(t, ok)
	assert.Equal(t, []string{"42", "7"}, values)
}

func TestCompilePatternLiteralOnly(t *testing.T) {
	cp, err := compilePattern("/posts/recent")
	require.NoError(t, err)

	values, ok := cp.match("/posts/recent")
	require.True(t, ok)
	assert.Empty(t, values)

	_, ok = cp.match("/posts/recent/extra")
	assert.False(t, ok)
}

func TestPlaceholderRejectsEmptySegment(t *testing.T) {
	cp, err := compilePattern("/posts/:id:")
	require.NoError(t, err)

	_, ok := cp.match("/posts/")
	assert.False(t, ok, "placeholder must match at least one character")

	_, ok = cp.match("/posts")
	assert.False(t, ok)
}

func TestPlaceholderDoesNotCrossSlash(t *testing.T) {
	cp, err := compilePattern("/posts/:id:")
	require.NoError(t, err)

	_, ok := cp.match("/posts/1/comments")
	assert.False(t, ok)

	values, ok := cp.match("/posts/hello-world_42")
	require.True(t, ok)
	assert.Equal(t, []string{"hello-world_42"}, values)
}

func TestLiteralMatchingIsCaseSensitive(t *testing.T) {
	cp, err := compilePattern("/Posts/:id:")
	require.NoError(t, err)

	_, ok := cp.match("/posts/1")
	assert.False(t, ok)

	_, ok = cp.match("/Posts/1")
	assert.True(t, ok)
}

func TestTrailingSlashIsSignificant(t *testing.T) {
	cp, err := compilePattern("/posts/")
	require.NoError(t, err)

	_, ok := cp.match("/posts")
	assert.False(t, ok)

	_, ok = cp.match("/posts/")
	assert.True(t, ok)
}

func TestSamePatternCompilesIdentically(t *testing.T) {
	a, err := compilePattern("/a/:x:/b/:y:")
	require.NoError(t, err)
	b, err := compilePattern("/a/:x:/b/:y:")
	require.NoError(t, err)

	assert.Equal(t, a.ParamNames(), b.ParamNames())

	va, _ := a.match("/a/1/b/2")
	vb, _ := b.match("/a/1/b/2")
	assert.Equal(t, va, vb)
}

func TestLiteralColonIsNotAPlaceholder(t *testing.T) {
	// ":" without a valid identifier between colons stays literal.
	cp, err := compilePattern("/time/12:30")
	require.NoError(t, err)

	assert.Empty(t, cp.ParamNames())
	_, ok := cp.match("/time/12:30")
	assert.True(t, ok)
}
