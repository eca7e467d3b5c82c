package checks

import (
	"context"

	"sitecheck/internal/data"
	"sitecheck/internal/rules"
	"sitecheck/internal/site"
)

const largeButtonClass = "btn-lg"

type PrimaryCTALargeRule struct{}

func (r *PrimaryCTALargeRule) ID() string {
	return site.CheckPrimaryCTALarge
}

func (r *PrimaryCTALargeRule) Title() string {
	return "Hero Primary CTA Is Large"
}

func (r *PrimaryCTALargeRule) Description() string {
	return "Verifies that the hero's primary call-to-action carries the btn-lg size class, so it reads larger than any secondary action."
}

func (r *PrimaryCTALargeRule) Category() rules.Category {
	return rules.CategoryVisualPolicy
}

func (r *PrimaryCTALargeRule) Dependencies(ctx context.Context, route site.Route) ([]data.DependencyKey, error) {
	return snapshotDeps, nil
}

func (r *PrimaryCTALargeRule) Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (rules.Result, error) {
	snap, problem := loadSnapshot(dc)
	if problem != "" {
		return rules.ErrorResult(route, r.ID(), problem), nil
	}

	btn := snap.Find(heroPrimaryCTA).First()
	if btn.Length() == 0 {
		return rules.FailAt(route, r.ID(), heroPrimaryCTA, "hero primary CTA not found"), nil
	}
	if !btn.HasClass(largeButtonClass) {
		res := rules.FailAt(route, r.ID(), heroPrimaryCTA, "hero primary CTA lacks the btn-lg class")
		res = res.WithEvidence("class", btn.AttrOr("class", ""))
		return res, nil
	}
	return rules.PassResult(route, r.ID()), nil
}

func init() {
	rules.Register(&PrimaryCTALargeRule{})
}
