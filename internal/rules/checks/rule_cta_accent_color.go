package checks

import (
	"context"
	"fmt"

	"sitecheck/internal/data"
	"sitecheck/internal/page"
	"sitecheck/internal/rules"
	"sitecheck/internal/site"
)

const (
	primaryButton = ".btn-primary"

	defaultAccentColor = "rgb(10, 153, 137)"
)

type CTAAccentColorRule struct {
	expected string
}

func (r *CTAAccentColorRule) ID() string {
	return site.CheckCTAAccentColor
}

func (r *CTAAccentColorRule) Title() string {
	return "Primary CTA Uses Accent Color"
}

func (r *CTAAccentColorRule) Description() string {
	return "Verifies that the page's first primary call-to-action has the brand accent as its computed background color, " +
		"so the accent is consistent across every route that displays one. Requires layout data."
}

func (r *CTAAccentColorRule) Category() rules.Category {
	return rules.CategoryVisualPolicy
}

func (r *CTAAccentColorRule) Options() []rules.Option {
	return []rules.Option{
		{
			Name:        "expected",
			Description: "Expected computed background-color, in rgb() notation.",
			Default:     defaultAccentColor,
		},
	}
}

func (r *CTAAccentColorRule) Configure(opts map[string]string) error {
	r.expected = defaultAccentColor
	if v, ok := optionValue(opts, "expected"); ok {
		r.expected = v
	}
	return nil
}

func (r *CTAAccentColorRule) want() string {
	if r.expected == "" {
		return page.NormalizeColor(defaultAccentColor)
	}
	return page.NormalizeColor(r.expected)
}

func (r *CTAAccentColorRule) Dependencies(ctx context.Context, route site.Route) ([]data.DependencyKey, error) {
	return snapshotDeps, nil
}

func (r *CTAAccentColorRule) Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (rules.Result, error) {
	snap, problem := loadSnapshot(dc)
	if problem != "" {
		return rules.ErrorResult(route, r.ID(), problem), nil
	}
	if !snap.Layout {
		return rules.SkippedResult(route, r.ID(), msgLayoutUnavailable), nil
	}

	btn := snap.Find(primaryButton).First()
	if btn.Length() == 0 {
		return rules.FailAt(route, r.ID(), primaryButton, "primary CTA not found"), nil
	}
	bg, ok := page.Background(btn)
	if !ok {
		return rules.FailAt(route, r.ID(), primaryButton, "primary CTA has no computed background"), nil
	}
	if bg != r.want() {
		res := rules.FailAt(route, r.ID(), primaryButton, fmt.Sprintf("background %s, expected %s", bg, r.want()))
		res = res.WithEvidence("background", bg)
		return res, nil
	}
	return rules.PassResultWithMessage(route, r.ID(), bg), nil
}

func init() {
	rules.Register(&CTAAccentColorRule{})
}
