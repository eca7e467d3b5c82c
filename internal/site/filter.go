package site

import (
	"path"
	"strings"
)

// FilterRoutes narrows routes by include and exclude patterns. Patterns use
// path.Match syntax against the route path; a pattern without wildcards is
// an exact path.
func FilterRoutes(routes []Route, include, exclude []string) []Route {
	var filtered []Route
	for _, r := range routes {
		if len(include) > 0 && !matchesAnyPattern(include, r.Path) {
			continue
		}
		if len(exclude) > 0 && matchesAnyPattern(exclude, r.Path) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

func matchesAnyPattern(patterns []string, routePath string) bool {
	for _, p := range patterns {
		if MatchPattern(p, routePath) {
			return true
		}
	}
	return false
}

// MatchPattern reports whether routePath matches a single path.Match pattern.
func MatchPattern(pattern, routePath string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}
	matched, _ := path.Match(pattern, routePath)
	return matched
}
