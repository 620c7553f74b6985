package weave

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Pattern syntax:
//	/posts            - literal segments, matched exactly (case sensitive)
//	/posts/:id:       - named placeholder, matches one non-empty segment
//	/u/:uid:/p/:pid:  - captures in left-to-right placeholder order
//
// A placeholder never matches across a slash and never matches the empty
// string. Trailing slashes are significant on both sides.

var placeholderPattern = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*):`)

// compiledPattern is the cached matching form of a route pattern.
type compiledPattern struct {
	raw   string
	re    *regexp.Regexp
	names []string
}

// compilePattern translates a :name: route pattern into an anchored regexp.
// Compiling the same pattern always yields captures in the left-to-right
// order the placeholders appear in.
func compilePattern(pattern string) (*compiledPattern, error) {
	if pattern == "" {
		return nil, errors.New("empty route pattern")
	}

	var sb strings.Builder
	sb.WriteString("^")

	var names []string
	last := 0
	for _, loc := range placeholderPattern.FindAllStringSubmatchIndex(pattern, -1) {
		sb.WriteString(regexp.QuoteMeta(pattern[last:loc[0]]))
		names = append(names, pattern[loc[2]:loc[3]])
		sb.WriteString("([^/]+)")
		last = loc[1]
	}
	sb.WriteString(regexp.QuoteMeta(pattern[last:]))
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, errors.Wrapf(err, "compiling route pattern %q", pattern)
	}

	return &compiledPattern{raw: pattern, re: re, names: names}, nil
}

// match tests path against the compiled pattern. On success it returns one
// captured value per placeholder, in placeholder order.
func (p *compiledPattern) match(path string) ([]string, bool) {
	m := p.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	return m[1:], true
}

// ParamNames returns the placeholder names in the order they appear.
func (p *compiledPattern) ParamNames() []string {
	return p.names
}
