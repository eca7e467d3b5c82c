package checks

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sitecheck/internal/data"
	"sitecheck/internal/page"
	"sitecheck/internal/rules"
	"sitecheck/internal/site"
)

const (
	mainSections = "main > section"

	defaultMinPaddingPx = 48.0
	defaultMinSections  = 3
)

type SectionRhythmRule struct {
	minPaddingPx float64
	minSections  int
}

func (r *SectionRhythmRule) ID() string {
	return site.CheckSectionRhythm
}

func (r *SectionRhythmRule) Title() string {
	return "Sections Share a Vertical Rhythm"
}

func (r *SectionRhythmRule) Description() string {
	return "Verifies that the main content has at least min_sections top-level sections and that each has a computed " +
		"padding-top of at least min_padding_px. Requires layout data."
}

func (r *SectionRhythmRule) Category() rules.Category {
	return rules.CategoryVisualPolicy
}

func (r *SectionRhythmRule) Options() []rules.Option {
	return []rules.Option{
		{
			Name:        "min_padding_px",
			Description: "Minimum computed padding-top of each main > section, in CSS pixels.",
			Default:     "48",
		},
		{
			Name:        "min_sections",
			Description: "Minimum number of main > section elements.",
			Default:     strconv.Itoa(defaultMinSections),
		},
	}
}

func (r *SectionRhythmRule) Configure(opts map[string]string) error {
	pad, err := floatOption(opts, "min_padding_px", defaultMinPaddingPx)
	if err != nil {
		return err
	}
	n, err := intOption(opts, "min_sections", defaultMinSections, 1)
	if err != nil {
		return err
	}
	r.minPaddingPx = pad
	r.minSections = n
	return nil
}

func (r *SectionRhythmRule) padding() float64 {
	if r.minPaddingPx <= 0 {
		return defaultMinPaddingPx
	}
	return r.minPaddingPx
}

func (r *SectionRhythmRule) sections() int {
	if r.minSections <= 0 {
		return defaultMinSections
	}
	return r.minSections
}

func (r *SectionRhythmRule) Dependencies(ctx context.Context, route site.Route) ([]data.DependencyKey, error) {
	return snapshotDeps, nil
}

func (r *SectionRhythmRule) Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (rules.Result, error) {
	snap, problem := loadSnapshot(dc)
	if problem != "" {
		return rules.ErrorResult(route, r.ID(), problem), nil
	}
	if !snap.Layout {
		return rules.SkippedResult(route, r.ID(), msgLayoutUnavailable), nil
	}

	sections := snap.Find(mainSections)
	if sections.Length() < r.sections() {
		return rules.FailAt(route, r.ID(), mainSections, fmt.Sprintf("expected at least %d sections, found %d", r.sections(), sections.Length())), nil
	}

	var offenders []string
	sections.Each(func(i int, s *goquery.Selection) {
		pt, ok := page.PaddingTop(s)
		if !ok {
			offenders = append(offenders, sectionLabel(i, s)+" has no computed padding")
			return
		}
		if pt < r.padding() {
			offenders = append(offenders, fmt.Sprintf("%s padding-top %s", sectionLabel(i, s), formatPx(pt)))
		}
	})
	if len(offenders) > 0 {
		return rules.FailAt(route, r.ID(), mainSections,
			fmt.Sprintf("padding-top below %s: %s", formatPx(r.padding()), strings.Join(offenders, "; "))), nil
	}
	return rules.PassResultWithMessage(route, r.ID(), fmt.Sprintf("%d sections, each padded >= %s", sections.Length(), formatPx(r.padding()))), nil
}

// sectionLabel names a section by its first class, falling back to its position.
func sectionLabel(i int, s *goquery.Selection) string {
	if fields := strings.Fields(s.AttrOr("class", "")); len(fields) > 0 {
		return "section." + fields[0]
	}
	return fmt.Sprintf("section #%d", i+1)
}

func init() {
	rules.Register(&SectionRhythmRule{})
}
