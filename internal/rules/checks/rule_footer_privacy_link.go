package checks

import (
	"context"
	"fmt"

	"sitecheck/internal/data"
	"sitecheck/internal/rules"
	"sitecheck/internal/site"
)

const footerPrivacyLink = `footer a[href="/privacy"]`

type FooterPrivacyLinkRule struct{}

func (r *FooterPrivacyLinkRule) ID() string {
	return site.CheckFooterPrivacyLink
}

func (r *FooterPrivacyLinkRule) Title() string {
	return "Footer Links to Privacy Policy"
}

func (r *FooterPrivacyLinkRule) Description() string {
	return "Verifies that the page footer contains exactly one visible link to /privacy."
}

func (r *FooterPrivacyLinkRule) Category() rules.Category {
	return rules.CategoryStructural
}

func (r *FooterPrivacyLinkRule) Dependencies(ctx context.Context, route site.Route) ([]data.DependencyKey, error) {
	return snapshotDeps, nil
}

func (r *FooterPrivacyLinkRule) Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (rules.Result, error) {
	snap, problem := loadSnapshot(dc)
	if problem != "" {
		return rules.ErrorResult(route, r.ID(), problem), nil
	}

	links := snap.Find(footerPrivacyLink)
	if links.Length() != 1 {
		return rules.FailAt(route, r.ID(), footerPrivacyLink, fmt.Sprintf("expected exactly 1 privacy link, found %d", links.Length())), nil
	}
	if !snap.Visible(links) {
		return rules.FailAt(route, r.ID(), footerPrivacyLink, "privacy link is not visible"), nil
	}
	return rules.PassResult(route, r.ID()), nil
}

func init() {
	rules.Register(&FooterPrivacyLinkRule{})
}
