package textpolicy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultJargon is the denylist of technical terms benefit copy must avoid.
var DefaultJargon = []string{"dashboard", "api", "integration", "webhook", "json", "pdf", "rbac", "role-based"}

// JargonMatcher finds denylisted terms as case-insensitive whole words.
type JargonMatcher struct {
	terms []string
	re    *regexp.Regexp
}

// NewJargonMatcher compiles a matcher for the given terms. Blank terms are
// ignored; an empty list yields a matcher that never matches.
func NewJargonMatcher(terms []string) (*JargonMatcher, error) {
	m := &JargonMatcher{}
	var quoted []string
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		m.terms = append(m.terms, t)
		quoted = append(quoted, regexp.QuoteMeta(t))
	}
	if len(quoted) == 0 {
		return m, nil
	}
	re, err := regexp.Compile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
	if err != nil {
		return nil, fmt.Errorf("compile jargon pattern: %w", err)
	}
	m.re = re
	return m, nil
}

// Terms returns the normalized denylist.
func (m *JargonMatcher) Terms() []string {
	return append([]string(nil), m.terms...)
}

// Find returns the distinct denylisted terms present in text, lowercased and sorted.
func (m *JargonMatcher) Find(text string) []string {
	if m == nil || m.re == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, hit := range m.re.FindAllString(text, -1) {
		seen[strings.ToLower(hit)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
