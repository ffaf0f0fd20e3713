// Package route matches URL paths against ordered lists of path patterns.
//
// A pattern is a slash separated path template where a segment starting with a colon is a named
// parameter, e.g. "/devices/:device". Rules are evaluated in declaration order and the first
// matching rule wins.
package route

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// validIdentifierRegex matches valid parameter names.
var validIdentifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Params holds the values captured by named pattern segments.
type Params map[string]string

// PatternError is returned by Compile when a pattern cannot be parsed.
type PatternError struct {
	Pattern string
	Reason  string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid route pattern %q: %s", e.Pattern, e.Reason)
}

// Pattern is a compiled path template.
type Pattern struct {
	raw      string
	segments []segment
}

type segment struct {
	literal string
	param   string // set for ":name" segments
}

// Compile parses a path template. An empty template is the root path "/".
func Compile(pattern string) (Pattern, error) {
	p := Pattern{raw: pattern}
	if pattern == "" {
		p.raw = "/"
		return p, nil
	}
	if pattern[0] != '/' {
		return p, &PatternError{Pattern: pattern, Reason: "must begin with /"}
	}

	seen := map[string]struct{}{}
	for _, s := range splitPath(pattern) {
		if s[0] != ':' {
			p.segments = append(p.segments, segment{literal: pathUnescape(s)})
			continue
		}
		name := s[1:]
		if !validIdentifierRegex.MatchString(name) {
			return p, &PatternError{Pattern: pattern, Reason: fmt.Sprintf("invalid parameter name %q", name)}
		}
		if _, ok := seen[name]; ok {
			return p, &PatternError{Pattern: pattern, Reason: fmt.Sprintf("duplicate parameter %q", name)}
		}
		seen[name] = struct{}{}
		p.segments = append(p.segments, segment{param: name})
	}
	return p, nil
}

// MustCompile is like Compile but panics if the pattern cannot be parsed.
func MustCompile(pattern string) Pattern {
	p, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) String() string {
	return p.raw
}

// ParamNames returns the parameter names in the order they appear in the pattern.
func (p Pattern) ParamNames() []string {
	var names []string
	for _, s := range p.segments {
		if s.param != "" {
			names = append(names, s.param)
		}
	}
	return names
}

// Match is the result of matching a path against a Pattern.
type Match struct {
	// Pattern is the template that matched.
	Pattern string

	// URL is the portion of the path consumed by the pattern.
	URL string

	// IsExact reports whether the pattern consumed the whole path.
	IsExact bool

	Params Params
}

// Match matches urlPath against the pattern. Unless exact is set, the pattern matches any path
// that starts with it on a segment boundary. Literal segments are compared case-insensitively
// unless sensitive is set.
func (p Pattern) Match(urlPath string, exact, sensitive bool) (Match, bool) {
	segs := splitPath(cleanPath(urlPath))
	if len(segs) < len(p.segments) {
		return Match{}, false
	}
	if exact && len(segs) != len(p.segments) {
		return Match{}, false
	}

	params := Params{}
	for i, ps := range p.segments {
		seg := pathUnescape(segs[i])
		if ps.param != "" {
			params[ps.param] = seg
			continue
		}
		if !equalSegment(seg, ps.literal, sensitive) {
			return Match{}, false
		}
	}

	return Match{
		Pattern: p.raw,
		URL:     "/" + strings.Join(segs[:len(p.segments)], "/"),
		IsExact: len(segs) == len(p.segments),
		Params:  params,
	}, true
}

// Join joins two pattern fragments with a single slash between them.
func Join(base string, elems ...string) string {
	res := strings.TrimRight(base, "/")
	for _, e := range elems {
		e = strings.Trim(e, "/")
		if e == "" {
			continue
		}
		res += "/" + e
	}
	if res == "" {
		return "/"
	}
	return res
}

func equalSegment(a, b string, sensitive bool) bool {
	if sensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}

// splitPath returns the non-empty, still escaped segments of p.
func splitPath(p string) []string {
	var segs []string
	for p != "" {
		var seg string
		seg, p = firstSegment(p)
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

// firstSegment splits p into its first segment and the rest. Leading slashes are dropped.
func firstSegment(p string) (seg, rest string) {
	p = strings.TrimLeft(p, "/")
	i := strings.IndexByte(p, '/')
	if i < 0 {
		return p, ""
	}
	return p[:i], p[i:]
}

// cleanPath returns the canonical path for p, eliminating . and .. elements.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}

func pathUnescape(p string) string {
	u, err := url.PathUnescape(p)
	if err != nil {
		// Invalidly escaped path; use the original
		return p
	}
	return u
}
