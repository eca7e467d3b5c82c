package checks

import (
	"context"
	"fmt"
	"strings"

	"sitecheck/internal/data"
	"sitecheck/internal/page"
	"sitecheck/internal/rules"
	"sitecheck/internal/site"
)

const defaultReadableMaxPx = 640.0

type ReadableWidthRule struct {
	maxPx float64
}

func (r *ReadableWidthRule) ID() string {
	return site.CheckReadableWidth
}

func (r *ReadableWidthRule) Title() string {
	return "Text Sections Have Readable Width"
}

func (r *ReadableWidthRule) Description() string {
	return "Verifies that every text-heavy section declared for the route exists and renders no wider than max_px, " +
		"keeping line length readable. Requires layout data."
}

func (r *ReadableWidthRule) Category() rules.Category {
	return rules.CategoryVisualPolicy
}

func (r *ReadableWidthRule) Options() []rules.Option {
	return []rules.Option{
		{
			Name:        "max_px",
			Description: "Maximum rendered width of a readable section, in CSS pixels.",
			Default:     "640",
		},
	}
}

func (r *ReadableWidthRule) Configure(opts map[string]string) error {
	v, err := floatOption(opts, "max_px", defaultReadableMaxPx)
	if err != nil {
		return err
	}
	r.maxPx = v
	return nil
}

func (r *ReadableWidthRule) limit() float64 {
	if r.maxPx <= 0 {
		return defaultReadableMaxPx
	}
	return r.maxPx
}

func (r *ReadableWidthRule) Dependencies(ctx context.Context, route site.Route) ([]data.DependencyKey, error) {
	return snapshotDeps, nil
}

func (r *ReadableWidthRule) Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (rules.Result, error) {
	if len(route.Readable) == 0 {
		return rules.SkippedResult(route, r.ID(), "route declares no readable sections"), nil
	}
	snap, problem := loadSnapshot(dc)
	if problem != "" {
		return rules.ErrorResult(route, r.ID(), problem), nil
	}
	if !snap.Layout {
		return rules.SkippedResult(route, r.ID(), msgLayoutUnavailable), nil
	}

	var failures []string
	var first string
	widths := make(map[string]any, len(route.Readable))
	for _, sel := range route.Readable {
		el := snap.Find(sel).First()
		if el.Length() == 0 {
			failures = append(failures, sel+" not found")
		} else if box, ok := page.BoxOf(el); !ok || box.Width == 0 && box.Height == 0 {
			failures = append(failures, sel+" has no layout box")
		} else {
			widths[sel] = box.Width
			if box.Width <= r.limit() {
				continue
			}
			failures = append(failures, fmt.Sprintf("%s is %s wide (max %s)", sel, formatPx(box.Width), formatPx(r.limit())))
		}
		if first == "" {
			first = sel
		}
	}

	if len(failures) > 0 {
		res := rules.FailAt(route, r.ID(), first, strings.Join(failures, "; "))
		res.Metadata = map[string]any{"widths": widths}
		return res, nil
	}
	return rules.PassResultWithMetadata(route, r.ID(), fmt.Sprintf("%d %s within %s", len(route.Readable), plural(len(route.Readable), "section", "sections"), formatPx(r.limit())), map[string]any{"widths": widths}), nil
}

func init() {
	rules.Register(&ReadableWidthRule{})
}
