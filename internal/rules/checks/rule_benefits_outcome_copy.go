package checks

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"sitecheck/internal/data"
	"sitecheck/internal/page"
	"sitecheck/internal/rules"
	"sitecheck/internal/site"
	"sitecheck/internal/textpolicy"
)

const (
	benefitsSection = ".benefits-section"
	benefitsHeading = ".benefits-section h2"
	benefitsItems   = ".benefits-section .benefits-list li"

	defaultBenefitCount = 3
)

type BenefitsOutcomeCopyRule struct {
	count   int
	matcher *textpolicy.JargonMatcher
}

func (r *BenefitsOutcomeCopyRule) ID() string {
	return site.CheckBenefitsOutcomeCopy
}

func (r *BenefitsOutcomeCopyRule) Title() string {
	return "Benefits Speak in Outcomes"
}

func (r *BenefitsOutcomeCopyRule) Description() string {
	return "Verifies that the benefits section is visible with a heading and exactly `count` items, " +
		"and that its copy avoids technical jargon such as dashboard, API or webhook."
}

func (r *BenefitsOutcomeCopyRule) Category() rules.Category {
	return rules.CategoryContentPolicy
}

func (r *BenefitsOutcomeCopyRule) Options() []rules.Option {
	return []rules.Option{
		{
			Name:        "count",
			Description: "Exact number of benefit items required.",
			Default:     strconv.Itoa(defaultBenefitCount),
		},
		{
			Name:        "jargon",
			Description: "Comma-separated terms that must not appear in the section (whole words, case-insensitive).",
			Default:     strings.Join(textpolicy.DefaultJargon, ","),
		},
	}
}

func (r *BenefitsOutcomeCopyRule) Configure(opts map[string]string) error {
	count, err := intOption(opts, "count", defaultBenefitCount, 1)
	if err != nil {
		return err
	}
	terms := textpolicy.DefaultJargon
	if v, ok := optionValue(opts, "jargon"); ok {
		terms = nil
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				terms = append(terms, t)
			}
		}
	}
	m, err := textpolicy.NewJargonMatcher(terms)
	if err != nil {
		return fmt.Errorf("invalid value for jargon: %w", err)
	}
	r.count = count
	r.matcher = m
	return nil
}

func (r *BenefitsOutcomeCopyRule) wantCount() int {
	if r.count <= 0 {
		return defaultBenefitCount
	}
	return r.count
}

func (r *BenefitsOutcomeCopyRule) jargon() *textpolicy.JargonMatcher {
	if r.matcher == nil {
		m, _ := textpolicy.NewJargonMatcher(textpolicy.DefaultJargon)
		return m
	}
	return r.matcher
}

func (r *BenefitsOutcomeCopyRule) Dependencies(ctx context.Context, route site.Route) ([]data.DependencyKey, error) {
	return snapshotDeps, nil
}

func (r *BenefitsOutcomeCopyRule) Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (rules.Result, error) {
	snap, problem := loadSnapshot(dc)
	if problem != "" {
		return rules.ErrorResult(route, r.ID(), problem), nil
	}

	section := snap.Find(benefitsSection)
	if !snap.Visible(section) {
		return rules.FailAt(route, r.ID(), benefitsSection, "benefits section is missing or hidden"), nil
	}
	if !snap.Visible(snap.Find(benefitsHeading)) {
		return rules.FailAt(route, r.ID(), benefitsHeading, "benefits heading is missing or hidden"), nil
	}
	if n := snap.Find(benefitsItems).Length(); n != r.wantCount() {
		return rules.FailAt(route, r.ID(), benefitsItems, fmt.Sprintf("expected %d benefits, found %d", r.wantCount(), n)), nil
	}

	if found := r.jargon().Find(page.Text(section.First())); len(found) > 0 {
		res := rules.FailAt(route, r.ID(), benefitsSection, "benefits copy uses jargon: "+strings.Join(found, ", "))
		res.Metadata = map[string]any{"terms": found}
		return res, nil
	}
	return rules.PassResultWithMessage(route, r.ID(), fmt.Sprintf("%d outcome-focused benefits", r.wantCount())), nil
}

func init() {
	rules.Register(&BenefitsOutcomeCopyRule{})
}
