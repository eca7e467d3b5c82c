package checks

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"sitecheck/internal/data"
	"sitecheck/internal/rules"
	"sitecheck/internal/site"
)

type RouteAvailableRule struct{}

func (r *RouteAvailableRule) ID() string {
	return site.CheckRouteAvailable
}

func (r *RouteAvailableRule) Title() string {
	return "Route Responds With Expected Status and Title"
}

func (r *RouteAvailableRule) Description() string {
	return "Verifies that navigating to the route returns its expected HTTP status (200 for declared pages, 404 for the not-found probe) " +
		"and, when the route declares a title pattern, that the rendered page title matches it."
}

func (r *RouteAvailableRule) Category() rules.Category {
	return rules.CategoryAvailability
}

func (r *RouteAvailableRule) Dependencies(ctx context.Context, route site.Route) ([]data.DependencyKey, error) {
	return snapshotDeps, nil
}

func (r *RouteAvailableRule) Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (rules.Result, error) {
	snap, problem := loadSnapshot(dc)
	if problem != "" {
		return rules.ErrorResult(route, r.ID(), problem), nil
	}

	want := route.ExpectedStatus()
	if snap.Status != want {
		res := rules.FailResult(route, r.ID(), fmt.Sprintf("expected HTTP %d, got %d", want, snap.Status))
		res = res.WithEvidence("status", strconv.Itoa(snap.Status), "url", snap.URL)
		return res, nil
	}

	if route.Title != "" {
		re, err := regexp.Compile(route.Title)
		if err != nil {
			return rules.ErrorResult(route, r.ID(), fmt.Sprintf("invalid title pattern %q: %v", route.Title, err)), nil
		}
		if !re.MatchString(snap.Title) {
			res := rules.FailAt(route, r.ID(), "title", fmt.Sprintf("title %q does not match /%s/", snap.Title, route.Title))
			res = res.WithEvidence("title", snap.Title)
			return res, nil
		}
	}

	return rules.PassResultWithMessage(route, r.ID(), fmt.Sprintf("HTTP %d", snap.Status)), nil
}

func init() {
	rules.Register(&RouteAvailableRule{})
}
