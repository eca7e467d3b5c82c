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
	trustSection    = ".trust-section"
	trustParagraphs = ".trust-section p"
	waitlistSection = ".waitlist-section"
)

// TrustAboveWaitlistRule needs layout for the vertical ordering.
type TrustAboveWaitlistRule struct{}

func (r *TrustAboveWaitlistRule) ID() string {
	return site.CheckTrustAboveWaitlist
}

func (r *TrustAboveWaitlistRule) Title() string {
	return "Trust Statement Precedes Waitlist"
}

func (r *TrustAboveWaitlistRule) Description() string {
	return "Verifies that a visible single-paragraph trust statement is rendered above the waitlist section."
}

func (r *TrustAboveWaitlistRule) Category() rules.Category {
	return rules.CategoryVisualPolicy
}

func (r *TrustAboveWaitlistRule) Dependencies(ctx context.Context, route site.Route) ([]data.DependencyKey, error) {
	return snapshotDeps, nil
}

func (r *TrustAboveWaitlistRule) Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (rules.Result, error) {
	snap, problem := loadSnapshot(dc)
	if problem != "" {
		return rules.ErrorResult(route, r.ID(), problem), nil
	}
	if !snap.Layout {
		return rules.SkippedResult(route, r.ID(), msgLayoutUnavailable), nil
	}

	trust := snap.Find(trustSection)
	if !snap.Visible(trust) {
		return rules.FailAt(route, r.ID(), trustSection, "trust section is missing or hidden"), nil
	}
	if n := snap.Find(trustParagraphs).Length(); n != 1 {
		return rules.FailAt(route, r.ID(), trustParagraphs, fmt.Sprintf("expected 1 trust paragraph, found %d", n)), nil
	}

	trustBox, ok := page.BoxOf(trust)
	if !ok {
		return rules.FailAt(route, r.ID(), trustSection, "trust section has no layout box"), nil
	}
	waitBox, ok := page.BoxOf(snap.Find(waitlistSection))
	if !ok {
		return rules.FailAt(route, r.ID(), waitlistSection, "waitlist section not found"), nil
	}
	if trustBox.Y >= waitBox.Y {
		res := rules.FailAt(route, r.ID(), trustSection,
			fmt.Sprintf("trust section at y=%s is not above waitlist at y=%s", formatPx(trustBox.Y), formatPx(waitBox.Y)))
		res = res.WithEvidence("trust_y", formatPx(trustBox.Y), "waitlist_y", formatPx(waitBox.Y))
		return res, nil
	}
	return rules.PassResult(route, r.ID()), nil
}

func init() {
	rules.Register(&TrustAboveWaitlistRule{})
}
