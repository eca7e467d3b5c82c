package checks

import (
	"context"
	"fmt"
	"strings"

	"sitecheck/internal/data"
	"sitecheck/internal/rules"
	"sitecheck/internal/site"
)

const heroPrimaryCTA = ".hero-cta .btn-primary"

type HeroCTATargetRule struct{}

func (r *HeroCTATargetRule) ID() string {
	return site.CheckHeroCTATarget
}

func (r *HeroCTATargetRule) Title() string {
	return "Hero CTA Matches Conversion Goal"
}

func (r *HeroCTATargetRule) Description() string {
	return "Verifies that the hero's primary call-to-action is visible and targets the route audience's conversion goal: " +
		"the in-page waitlist anchor for a waitlist goal, or the scheduling tool's host for a calendar goal."
}

func (r *HeroCTATargetRule) Category() rules.Category {
	return rules.CategoryStructural
}

func (r *HeroCTATargetRule) Dependencies(ctx context.Context, route site.Route) ([]data.DependencyKey, error) {
	return []data.DependencyKey{data.DepPageSnapshot, data.DepSiteProfile}, nil
}

func (r *HeroCTATargetRule) Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (rules.Result, error) {
	profile, problem := loadProfile(dc)
	if problem != "" {
		return rules.ErrorResult(route, r.ID(), problem), nil
	}
	goal, ok := profile.GoalFor(route.Audience)
	if !ok {
		return rules.SkippedResult(route, r.ID(), "route has no conversion goal"), nil
	}

	snap, problem := loadSnapshot(dc)
	if problem != "" {
		return rules.ErrorResult(route, r.ID(), problem), nil
	}

	btn := snap.Find(heroPrimaryCTA).First()
	if btn.Length() == 0 {
		return rules.FailAt(route, r.ID(), heroPrimaryCTA, "hero primary CTA not found"), nil
	}
	if !snap.Visible(btn) {
		return rules.FailAt(route, r.ID(), heroPrimaryCTA, "hero primary CTA is not visible"), nil
	}
	href := strings.TrimSpace(btn.AttrOr("href", ""))

	switch goal {
	case site.GoalWaitlist:
		if href != profile.WaitlistAnchor {
			return rules.FailAt(route, r.ID(), heroPrimaryCTA, fmt.Sprintf("goal %s: href %q, expected %q", goal, href, profile.WaitlistAnchor)), nil
		}
	case site.GoalCalendar:
		host := profile.CalendarHost()
		if host == "" {
			return rules.ErrorResult(route, r.ID(), "profile has no calendar URL"), nil
		}
		if !strings.Contains(href, host) {
			return rules.FailAt(route, r.ID(), heroPrimaryCTA, fmt.Sprintf("goal %s: href %q does not contain %q", goal, href, host)), nil
		}
	default:
		return rules.ErrorResult(route, r.ID(), fmt.Sprintf("unsupported conversion goal %q", goal)), nil
	}

	return rules.PassResultWithMessage(route, r.ID(), fmt.Sprintf("goal %s: %s", goal, href)), nil
}

func init() {
	rules.Register(&HeroCTATargetRule{})
}
