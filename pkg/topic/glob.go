package topic

import (
	"regexp"
	"strings"
	"sync"
)

// matchGlob implements the wildcard semantics spec.md §4.2 requires:
// '*' matches any run of characters (including none, including '/'),
// '?' matches exactly one character, and an empty pattern matches
// anything. Topic names may themselves contain '/' (e.g. ROS-style
// namespaced topics), which rules out path/filepath.Match — its '*'
// refuses to cross path separators. A small regexp translation gives
// the exact semantics the spec asks for.
func matchGlob(pattern, s string) bool {
	if pattern == "" {
		return true
	}
	re, err := compileGlob(pattern)
	if err != nil {
		// A malformed pattern matches nothing rather than panicking or
		// silently matching everything.
		return false
	}
	return re.MatchString(s)
}

var globCache sync.Map // map[string]*regexp.Regexp

func compileGlob(pattern string) (*regexp.Regexp, error) {
	if cached, ok := globCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}

	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, err
	}
	globCache.Store(pattern, re)
	return re, nil
}
