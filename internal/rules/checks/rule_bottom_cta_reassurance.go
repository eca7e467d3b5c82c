package checks

import (
	"context"

	"sitecheck/internal/data"
	"sitecheck/internal/rules"
	"sitecheck/internal/site"
)

const (
	bottomCTA         = ".waitlist-section .btn-primary"
	bottomReassurance = ".waitlist-section .form-reassurance"
)

type BottomCTAReassuranceRule struct{}

func (r *BottomCTAReassuranceRule) ID() string {
	return site.CheckBottomCTAReassurance
}

func (r *BottomCTAReassuranceRule) Title() string {
	return "Bottom CTA Is Large and Reassuring"
}

func (r *BottomCTAReassuranceRule) Description() string {
	return "Verifies that the waitlist section's primary button is visible and large, " +
		"and that a reassurance line is shown next to the form."
}

func (r *BottomCTAReassuranceRule) Category() rules.Category {
	return rules.CategoryStructural
}

func (r *BottomCTAReassuranceRule) Dependencies(ctx context.Context, route site.Route) ([]data.DependencyKey, error) {
	return snapshotDeps, nil
}

func (r *BottomCTAReassuranceRule) Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (rules.Result, error) {
	snap, problem := loadSnapshot(dc)
	if problem != "" {
		return rules.ErrorResult(route, r.ID(), problem), nil
	}

	btn := snap.Find(bottomCTA).First()
	if !snap.Visible(btn) {
		return rules.FailAt(route, r.ID(), bottomCTA, "waitlist CTA is missing or hidden"), nil
	}
	if !btn.HasClass(largeButtonClass) {
		return rules.FailAt(route, r.ID(), bottomCTA, "waitlist CTA is missing class "+largeButtonClass), nil
	}
	if !snap.Visible(snap.Find(bottomReassurance)) {
		return rules.FailAt(route, r.ID(), bottomReassurance, "reassurance text is missing or hidden"), nil
	}
	return rules.PassResult(route, r.ID()), nil
}

func init() {
	rules.Register(&BottomCTAReassuranceRule{})
}
