package checks

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"sitecheck/internal/data"
	"sitecheck/internal/rules"
	"sitecheck/internal/site"
)

const headerNavLinks = "header nav a"

type HeaderNavMinimalRule struct{}

func (r *HeaderNavMinimalRule) ID() string {
	return site.CheckHeaderNavMinimal
}

func (r *HeaderNavMinimalRule) Title() string {
	return "Header Navigation Is Logo Only"
}

func (r *HeaderNavMinimalRule) Description() string {
	return "Verifies that the header navigation contains exactly one link and that it points to the site root. " +
		"Marketing pages must not distract with multi-item navigation."
}

func (r *HeaderNavMinimalRule) Category() rules.Category {
	return rules.CategoryStructural
}

func (r *HeaderNavMinimalRule) Dependencies(ctx context.Context, route site.Route) ([]data.DependencyKey, error) {
	return snapshotDeps, nil
}

func (r *HeaderNavMinimalRule) Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (rules.Result, error) {
	snap, problem := loadSnapshot(dc)
	if problem != "" {
		return rules.ErrorResult(route, r.ID(), problem), nil
	}

	links := snap.Find(headerNavLinks)
	if links.Length() != 1 {
		res := rules.FailAt(route, r.ID(), headerNavLinks, fmt.Sprintf("expected exactly 1 header link, found %d", links.Length()))
		res.Metadata = map[string]any{"hrefs": links.Map(func(_ int, s *goquery.Selection) string { return s.AttrOr("href", "") })}
		return res, nil
	}

	href, _ := links.Attr("href")
	if href != "/" {
		return rules.FailAt(route, r.ID(), headerNavLinks, fmt.Sprintf("header link points to %q, expected \"/\"", href)), nil
	}
	return rules.PassResult(route, r.ID()), nil
}

func init() {
	rules.Register(&HeaderNavMinimalRule{})
}
