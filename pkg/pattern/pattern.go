package pattern

import (
	"regexp"
	"strings"
)

// AllURLs is the pattern token matching every supported URL.
const AllURLs = "<all_urls>"

var syntax = regexp.MustCompile(`^(\*|ws|wss|http|https|file|ftp)://(\*|(?:\*\.)?[^/*]+)?/(.*)$`)

// Matcher is a compiled URL match pattern.
type Matcher interface {
	Match(url string) bool
	String() string
}

type matcher struct {
	pattern string
	regexp  *regexp.Regexp
}

var _ Matcher = (*matcher)(nil)

func (m *matcher) Match(url string) bool {
	return m.regexp.MatchString(url)
}

func (m *matcher) String() string {
	return m.pattern
}

// Compile parses a match pattern of the form
// scheme://host/path or the token <all_urls>.
//
// A scheme of * matches http and https, only. A host of * matches any
// host, a host *.suffix matches suffix and all its sub domains.
// Path wildcards (*) match any character sequence; an empty path
// matches the root with an optional trailing slash.
func Compile(pattern string) (Matcher, error) {
	expr, err := expression(pattern)
	if err != nil {
		return nil, err
	}
	r, err := regexp.Compile(expr)
	if err != nil {
		return nil, &InvalidPatternError{Pattern: pattern, Reason: err.Error()}
	}
	return &matcher{pattern: pattern, regexp: r}, nil
}

// MustCompile is like Compile but panics on invalid patterns.
func MustCompile(pattern string) Matcher {
	m, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// Match compiles the pattern and checks the given url.
func Match(pattern, url string) (bool, error) {
	m, err := Compile(pattern)
	if err != nil {
		return false, err
	}
	return m.Match(url), nil
}

// Validate checks a list of patterns and returns the first violation.
func Validate(patterns ...string) error {
	for _, p := range patterns {
		if _, err := expression(p); err != nil {
			return err
		}
	}
	return nil
}

func expression(pattern string) (string, error) {
	if pattern == AllURLs {
		return `^(ws|wss|http|https|ftp|file)://[^/]*/.*$`, nil
	}
	parts := syntax.FindStringSubmatch(pattern)
	if parts == nil {
		return "", &InvalidPatternError{Pattern: pattern, Reason: "expected <scheme>://<host>/<path> or " + AllURLs}
	}
	scheme, host, path := parts[1], parts[2], parts[3]

	var b strings.Builder
	b.WriteString("^")

	if scheme == "*" {
		b.WriteString("(http|https)")
	} else {
		b.WriteString(scheme)
	}
	b.WriteString("://")

	switch {
	case host == "*":
		b.WriteString("[^/]*")
	case strings.HasPrefix(host, "*."):
		b.WriteString(`([^/]*\.)?`)
		b.WriteString(regexp.QuoteMeta(host[2:]))
	default:
		b.WriteString(regexp.QuoteMeta(host))
	}

	if path == "" {
		b.WriteString("/?")
	} else {
		b.WriteString("/")
		b.WriteString(strings.ReplaceAll(regexp.QuoteMeta(path), `\*`, ".*"))
	}
	b.WriteString("$")
	return b.String(), nil
}
