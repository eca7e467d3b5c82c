package rules

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"sitecheck/internal/data"
	"sitecheck/internal/site"
)

// Rule is one route check. Rules are stateless between routes: everything
// they look at arrives through the DataContext.
type Rule interface {
	ID() string
	Title() string
	Description() string
	Category() Category

	// Dependencies declares the page data this rule needs for a route.
	Dependencies(ctx context.Context, route site.Route) ([]data.DependencyKey, error)

	// Evaluate judges the route from dc alone. It never renders pages or
	// makes requests, and reads only the keys Dependencies declared.
	Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (Result, error)
}

// Option is a named rule setting, typically a threshold.
type Option struct {
	Name        string
	Description string
	Default     string
}

// ConfigurableRule is a Rule with options. Configure is called once per run
// with every override for the rule; options missing from opts take their
// defaults.
type ConfigurableRule interface {
	Rule
	Options() []Option
	Configure(opts map[string]string) error
}

// CheckOptionNames reports the first name in opts that cr does not declare.
func CheckOptionNames(cr ConfigurableRule, opts map[string]string) error {
	known := make(map[string]struct{})
	for _, o := range cr.Options() {
		known[o.Name] = struct{}{}
	}
	names := make([]string, 0, len(opts))
	for name := range opts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := known[name]; !ok {
			valid := make([]string, 0, len(known))
			for k := range known {
				valid = append(valid, k)
			}
			sort.Strings(valid)
			return fmt.Errorf("unknown option %q for rule %q (valid: %s)", name, cr.ID(), strings.Join(valid, ", "))
		}
	}
	return nil
}
