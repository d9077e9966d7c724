package graph

import (
	"fmt"
	"strconv"

	"github.com/gobwas/glob"
)

type verb int

const (
	verbEquals verb = iota
	verbMatches
	verbAbsent
	verbPresent
)

// Constraint restricts a query to objects whose properties satisfy it.
// Constraints passed to a query are AND'ed together.
type Constraint struct {
	key     string
	verb    verb
	value   string
	pattern glob.Glob
	source  string
}

// Equals matches objects whose property key is set to exactly value.
func Equals(key, value string) Constraint {
	return Constraint{key: key, verb: verbEquals, value: value}
}

// EqualsID matches objects whose property key holds the given object ID.
func EqualsID(key string, id uint32) Constraint {
	return Equals(key, strconv.FormatUint(uint64(id), 10))
}

// Matches matches objects whose property key is set and matches the glob
// pattern. Only '*' and '?' wildcards are meaningful; '*' also spans '/'.
// It returns an error if the pattern does not compile.
func Matches(key, pattern string) (Constraint, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return Constraint{}, fmt.Errorf("invalid pattern %q for %s: %w", pattern, key, err)
	}
	return Constraint{key: key, verb: verbMatches, pattern: g, source: pattern}, nil
}

// MustMatch is like Matches but panics if the pattern does not compile.
// It is intended for package-level constraints built from constant patterns.
func MustMatch(key, pattern string) Constraint {
	c, err := Matches(key, pattern)
	if err != nil {
		panic(err)
	}
	return c
}

// Absent matches objects that do not have property key set.
func Absent(key string) Constraint {
	return Constraint{key: key, verb: verbAbsent}
}

// Present matches objects that have property key set to any value.
func Present(key string) Constraint {
	return Constraint{key: key, verb: verbPresent}
}

// String renders the constraint for logs and diagnostics.
func (c Constraint) String() string {
	switch c.verb {
	case verbEquals:
		return fmt.Sprintf("%s == %q", c.key, c.value)
	case verbMatches:
		return fmt.Sprintf("%s ~ %q", c.key, c.source)
	case verbAbsent:
		return fmt.Sprintf("!%s", c.key)
	case verbPresent:
		return c.key
	default:
		return "?"
	}
}

// Match reports whether props satisfies the constraint.
func (c Constraint) Match(props Props) bool {
	v, ok := props.Get(c.key)
	switch c.verb {
	case verbEquals:
		return ok && v == c.value
	case verbMatches:
		return ok && c.pattern != nil && c.pattern.Match(v)
	case verbAbsent:
		return !ok
	case verbPresent:
		return ok
	default:
		return false
	}
}

func matchAll(props Props, cs []Constraint) bool {
	for _, c := range cs {
		if !c.Match(props) {
			return false
		}
	}
	return true
}
