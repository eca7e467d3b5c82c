package rules

import (
	"context"
	"fmt"
	"path"
	"strings"

	"sitecheck/internal/data"
	"sitecheck/internal/site"
)

const (
	optAllowRoutes   = "allow.routes"
	optAllowPatterns = "allow.patterns"

	// EvidenceWaivedBy names the option that turned a FAIL into a PASS.
	EvidenceWaivedBy = "waived_by"
)

// AllowList waives failures on listed routes, by exact path or path.Match
// pattern.
type AllowList struct {
	Routes   map[string]bool
	Patterns []string
}

func (a *AllowList) Options() []Option {
	return []Option{
		{Name: optAllowRoutes, Description: "Comma-separated route paths whose failures are waived (e.g. /thanks)."},
		{Name: optAllowPatterns, Description: "Comma-separated wildcard patterns for waived routes (e.g. /legal/*)."},
	}
}

// Configure replaces the allowlist with the values in opts.
func (a *AllowList) Configure(opts map[string]string) error {
	a.Routes = make(map[string]bool)
	a.Patterns = nil
	for _, p := range splitOption(opts[optAllowRoutes]) {
		a.Routes[p] = true
	}
	for _, p := range splitOption(opts[optAllowPatterns]) {
		if _, err := path.Match(p, "/"); err != nil {
			return fmt.Errorf("invalid %s entry %q: %w", optAllowPatterns, p, err)
		}
		a.Patterns = append(a.Patterns, p)
	}
	return nil
}

func splitOption(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IsAllowed reports whether route is waived and by which option.
func (a *AllowList) IsAllowed(route site.Route) (bool, string) {
	if route.Path == "" {
		return false, ""
	}
	if a.Routes[route.Path] {
		return true, optAllowRoutes
	}
	for _, p := range a.Patterns {
		if site.MatchPattern(p, route.Path) {
			return true, optAllowPatterns
		}
	}
	return false, ""
}

// CheckResult turns a FAIL on an allowed route into a PASS that keeps the
// original message, selector and evidence.
func (a *AllowList) CheckResult(route site.Route, result Result) Result {
	if result.Status != StatusFail {
		return result
	}
	allowed, by := a.IsAllowed(route)
	if !allowed {
		return result
	}
	waived := result
	waived.Status = StatusPass
	waived.Message = fmt.Sprintf("Allowed failure: %s (Allowed by policy: %s)", result.Message, by)
	waived.Evidence = make(map[string]string, len(result.Evidence)+1)
	for k, v := range result.Evidence {
		waived.Evidence[k] = v
	}
	waived.Evidence[EvidenceWaivedBy] = by
	return waived
}

// AllowListWrapper adds the allow.* options to a rule. Register wraps every
// rule with it.
type AllowListWrapper struct {
	Rule
	allowList AllowList
}

// Evaluate runs the inner rule, stamps its category and applies the allowlist.
func (w *AllowListWrapper) Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (Result, error) {
	result, err := w.Rule.Evaluate(ctx, route, dc)
	if err != nil {
		return result, err
	}
	if result.Category == "" {
		result.Category = w.Rule.Category()
	}
	return w.allowList.CheckResult(route, result), nil
}

func (w *AllowListWrapper) Options() []Option {
	opts := w.allowList.Options()
	if cr, ok := w.Rule.(ConfigurableRule); ok {
		opts = append(opts, cr.Options()...)
	}
	return opts
}

func (w *AllowListWrapper) Configure(opts map[string]string) error {
	if err := w.allowList.Configure(opts); err != nil {
		return err
	}
	if cr, ok := w.Rule.(ConfigurableRule); ok {
		return cr.Configure(opts)
	}
	return nil
}

// Unwrap returns the wrapped rule.
func (w *AllowListWrapper) Unwrap() Rule {
	return w.Rule
}
