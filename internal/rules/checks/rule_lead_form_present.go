package checks

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sitecheck/internal/data"
	"sitecheck/internal/rules"
	"sitecheck/internal/site"
)

// Inputs that are not data-entry fields.
var nonFieldInputTypes = map[string]bool{
	"hidden": true,
	"submit": true,
	"button": true,
	"reset":  true,
	"image":  true,
}

type LeadFormPresentRule struct{}

func (r *LeadFormPresentRule) ID() string {
	return site.CheckLeadFormPresent
}

func (r *LeadFormPresentRule) Title() string {
	return "Lead Capture Form Present"
}

func (r *LeadFormPresentRule) Description() string {
	return "Verifies that the route's lead-capture form (identified by its name attribute) is visible, " +
		"contains exactly the required input fields, and has a visible submit control.\n\n" +
		"A required field \"email\" matches input[type=email] or input[name=email]; any other field matches by name."
}

func (r *LeadFormPresentRule) Category() rules.Category {
	return rules.CategoryStructural
}

func (r *LeadFormPresentRule) Dependencies(ctx context.Context, route site.Route) ([]data.DependencyKey, error) {
	return snapshotDeps, nil
}

func (r *LeadFormPresentRule) Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (rules.Result, error) {
	if route.Form == nil {
		return rules.SkippedResult(route, r.ID(), "route declares no lead form"), nil
	}
	snap, problem := loadSnapshot(dc)
	if problem != "" {
		return rules.ErrorResult(route, r.ID(), problem), nil
	}

	formSel := fmt.Sprintf(`form[name="%s"]`, route.Form.Name)
	form := snap.Find(formSel)
	if form.Length() == 0 {
		return rules.FailAt(route, r.ID(), formSel, "form not found"), nil
	}
	form = form.First()
	if !snap.Visible(form) {
		return rules.FailAt(route, r.ID(), formSel, "form is not visible"), nil
	}

	for _, field := range route.Form.Fields {
		sel := fieldSelector(field)
		matches := form.Find(sel)
		if matches.Length() != 1 {
			return rules.FailAt(route, r.ID(), formSel+" "+sel,
				fmt.Sprintf("expected exactly 1 %q input, found %d", field, matches.Length())), nil
		}
		if !snap.Visible(matches) {
			return rules.FailAt(route, r.ID(), formSel+" "+sel, fmt.Sprintf("%q input is not visible", field)), nil
		}
	}

	fields := dataEntryFields(form)
	if len(fields) != len(route.Form.Fields) {
		res := rules.FailAt(route, r.ID(), formSel,
			fmt.Sprintf("expected %d input %s, found %d (%s)", len(route.Form.Fields), plural(len(route.Form.Fields), "field", "fields"), len(fields), strings.Join(fields, ", ")))
		res = res.WithEvidence("fields", strings.Join(fields, ","))
		return res, nil
	}

	const submitSel = `button[type="submit"], input[type="submit"]`
	submit := form.Find(submitSel)
	if submit.Length() == 0 {
		return rules.FailAt(route, r.ID(), formSel+" "+`button[type="submit"]`, "submit control not found"), nil
	}
	if !snap.Visible(submit) {
		return rules.FailAt(route, r.ID(), formSel+" "+`button[type="submit"]`, "submit control is not visible"), nil
	}

	return rules.PassResultWithMessage(route, r.ID(), fmt.Sprintf("form %s has %s and a submit control", route.Form.Name, strings.Join(route.Form.Fields, "+"))), nil
}

func fieldSelector(field string) string {
	if field == "email" {
		return `input[type="email"], input[name="email"]`
	}
	return fmt.Sprintf(`input[name="%[1]s"], textarea[name="%[1]s"], select[name="%[1]s"]`, field)
}

// dataEntryFields lists the user-facing fields of a form by name (or type
// when unnamed), in document order.
func dataEntryFields(form *goquery.Selection) []string {
	var out []string
	form.Find("input, textarea, select").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "input" && nonFieldInputTypes[strings.ToLower(s.AttrOr("type", "text"))] {
			return
		}
		label := s.AttrOr("name", "")
		if label == "" {
			label = goquery.NodeName(s) + "[" + s.AttrOr("type", "") + "]"
		}
		out = append(out, label)
	})
	return out
}

func init() {
	rules.Register(&LeadFormPresentRule{})
}
