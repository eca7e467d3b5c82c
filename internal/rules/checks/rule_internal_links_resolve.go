package checks

import (
	"context"
	"fmt"
	"strings"

	"sitecheck/internal/data"
	"sitecheck/internal/data/models"
	"sitecheck/internal/rules"
	"sitecheck/internal/site"
)

type InternalLinksResolveRule struct{}

func (r *InternalLinksResolveRule) ID() string {
	return site.CheckInternalLinksResolve
}

func (r *InternalLinksResolveRule) Title() string {
	return "Internal Links Resolve"
}

func (r *InternalLinksResolveRule) Description() string {
	return "Verifies that every root-relative link (href starting with /) on the route answers HTTP 200. " +
		"Each distinct target is requested once per run and shared across routes."
}

func (r *InternalLinksResolveRule) Category() rules.Category {
	return rules.CategoryLinkIntegrity
}

func (r *InternalLinksResolveRule) Dependencies(ctx context.Context, route site.Route) ([]data.DependencyKey, error) {
	return []data.DependencyKey{data.DepPageLinkStatus}, nil
}

func (r *InternalLinksResolveRule) Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (rules.Result, error) {
	status, err := data.Lookup[*models.LinkStatus](dc, data.DepPageLinkStatus)
	if err != nil {
		return rules.ErrorResult(route, r.ID(), dependencyProblem(err)), nil
	}
	if status == nil {
		return rules.ErrorResult(route, r.ID(), "Invalid dependency type"), nil
	}

	if len(status.Probes) == 0 {
		return rules.PassResultWithMessage(route, r.ID(), "no internal links"), nil
	}

	broken := status.Broken()
	if len(broken) == 0 {
		return rules.PassResultWithMessage(route, r.ID(),
			fmt.Sprintf("%d internal %s resolve", len(status.Probes), plural(len(status.Probes), "link", "links"))), nil
	}

	descs := make([]string, 0, len(broken))
	hrefs := make([]string, 0, len(broken))
	for _, p := range broken {
		hrefs = append(hrefs, p.Href)
		if p.Err != "" {
			descs = append(descs, fmt.Sprintf("%s (%s)", p.Href, p.Err))
		} else {
			descs = append(descs, fmt.Sprintf("%s (%d)", p.Href, p.Status))
		}
	}
	res := rules.FailAt(route, r.ID(), fmt.Sprintf(`a[href="%s"]`, broken[0].Href),
		fmt.Sprintf("%d broken internal %s: %s", len(broken), plural(len(broken), "link", "links"), strings.Join(descs, ", ")))
	res.Metadata = map[string]any{"broken": hrefs}
	return res, nil
}

func init() {
	rules.Register(&InternalLinksResolveRule{})
}
