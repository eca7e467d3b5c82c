package engine

import (
	"context"
	"fmt"
	"sort"

	"sitecheck/internal/data"
	"sitecheck/internal/rules"
	"sitecheck/internal/site"
)

// CheckPlan maps each route path to the rules and dependencies it needs.
type CheckPlan struct {
	RoutePlans map[string]*RoutePlan
}

// RoutePlan is the work for one route: the intersection of its assertion
// group with the selected rules, and the union of their dependencies.
type RoutePlan struct {
	Route        site.Route
	Dependencies map[data.DependencyKey]data.DependencyRequest
	Rules        []rules.Rule
}

func NewCheckPlan() *CheckPlan {
	return &CheckPlan{
		RoutePlans: make(map[string]*RoutePlan),
	}
}

// AddRoute plans the selected rules that belong to route's assertion group.
// A route whose group shares no rule with the selection is not planned and
// AddRoute reports false.
func (p *CheckPlan) AddRoute(ctx context.Context, route site.Route, selectedRules []rules.Rule) (bool, error) {
	if ctx == nil {
		return false, fmt.Errorf("context is nil")
	}
	if p == nil {
		return false, fmt.Errorf("check plan is nil")
	}
	if p.RoutePlans == nil {
		return false, fmt.Errorf("check plan is not initialized (RoutePlans is nil); use NewCheckPlan")
	}
	if route.Path == "" {
		return false, fmt.Errorf("route path is empty")
	}
	if _, dup := p.RoutePlans[route.Path]; dup {
		return false, fmt.Errorf("route %s planned twice", route.Path)
	}

	var routeRules []rules.Rule
	for _, r := range selectedRules {
		if route.HasCheck(r.ID()) {
			routeRules = append(routeRules, r)
		}
	}
	if len(routeRules) == 0 {
		return false, nil
	}
	sort.Slice(routeRules, func(i, j int) bool { return routeRules[i].ID() < routeRules[j].ID() })

	rp := &RoutePlan{
		Route:        route,
		Dependencies: make(map[data.DependencyKey]data.DependencyRequest),
		Rules:        routeRules,
	}
	for _, r := range routeRules {
		deps, err := r.Dependencies(ctx, route)
		if err != nil {
			return false, fmt.Errorf("failed to get dependencies for rule %s: %w", r.ID(), err)
		}
		for _, d := range deps {
			if _, exists := rp.Dependencies[d]; !exists {
				rp.Dependencies[d] = data.DependencyRequest{Key: d}
			}
		}
	}

	p.RoutePlans[route.Path] = rp
	return true, nil
}

// Paths returns the planned route paths in evaluation order.
func (p *CheckPlan) Paths() []string {
	paths := make([]string, 0, len(p.RoutePlans))
	for path := range p.RoutePlans {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// CheckCount returns the number of (route, rule) pairs in the plan.
func (p *CheckPlan) CheckCount() int {
	n := 0
	for _, rp := range p.RoutePlans {
		n += len(rp.Rules)
	}
	return n
}

// SortedDependencies returns the dependency keys sorted by priority (P0 first).
func (rp *RoutePlan) SortedDependencies() []data.DependencyKey {
	keys := make([]data.DependencyKey, 0, len(rp.Dependencies))
	for k := range rp.Dependencies {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		p1 := data.Priority(keys[i])
		p2 := data.Priority(keys[j])
		if p1 != p2 {
			return p1 < p2
		}
		return keys[i] < keys[j]
	})
	return keys
}
