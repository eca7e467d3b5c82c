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
	"sitecheck/internal/textpolicy"
)

const (
	howSection = ".how-section"
	howSteps   = ".how-section .steps li"

	defaultStepCount        = 3
	defaultStepMaxSentences = 1
)

type HowItWorksStepsRule struct {
	count        int
	maxSentences int
}

func (r *HowItWorksStepsRule) ID() string {
	return site.CheckHowItWorksSteps
}

func (r *HowItWorksStepsRule) Title() string {
	return "How-It-Works Has Short Steps"
}

func (r *HowItWorksStepsRule) Description() string {
	return "Verifies that the how-it-works section is visible and lists exactly `count` steps, each with a visible " +
		"bold label and a description of at most max_sentences sentences."
}

func (r *HowItWorksStepsRule) Category() rules.Category {
	return rules.CategoryContentPolicy
}

func (r *HowItWorksStepsRule) Options() []rules.Option {
	return []rules.Option{
		{
			Name:        "count",
			Description: "Exact number of steps required.",
			Default:     strconv.Itoa(defaultStepCount),
		},
		{
			Name:        "max_sentences",
			Description: "Maximum sentences in each step description.",
			Default:     strconv.Itoa(defaultStepMaxSentences),
		},
	}
}

func (r *HowItWorksStepsRule) Configure(opts map[string]string) error {
	count, err := intOption(opts, "count", defaultStepCount, 1)
	if err != nil {
		return err
	}
	maxSentences, err := intOption(opts, "max_sentences", defaultStepMaxSentences, 1)
	if err != nil {
		return err
	}
	r.count = count
	r.maxSentences = maxSentences
	return nil
}

func (r *HowItWorksStepsRule) wantCount() int {
	if r.count <= 0 {
		return defaultStepCount
	}
	return r.count
}

func (r *HowItWorksStepsRule) sentenceLimit() int {
	if r.maxSentences <= 0 {
		return defaultStepMaxSentences
	}
	return r.maxSentences
}

func (r *HowItWorksStepsRule) Dependencies(ctx context.Context, route site.Route) ([]data.DependencyKey, error) {
	return snapshotDeps, nil
}

func (r *HowItWorksStepsRule) Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (rules.Result, error) {
	snap, problem := loadSnapshot(dc)
	if problem != "" {
		return rules.ErrorResult(route, r.ID(), problem), nil
	}

	if !snap.Visible(snap.Find(howSection)) {
		return rules.FailAt(route, r.ID(), howSection, "how-it-works section is missing or hidden"), nil
	}

	steps := snap.Find(howSteps)
	if steps.Length() != r.wantCount() {
		return rules.FailAt(route, r.ID(), howSteps, fmt.Sprintf("expected %d steps, found %d", r.wantCount(), steps.Length())), nil
	}

	var problems []string
	steps.Each(func(i int, step *goquery.Selection) {
		label := fmt.Sprintf("step %d", i+1)
		if !snap.Visible(step.Find("strong")) {
			problems = append(problems, label+" has no visible label")
		}
		desc := step.Find("p").First()
		if desc.Length() == 0 {
			problems = append(problems, label+" has no description")
			return
		}
		if n := textpolicy.CountSentences(page.Text(desc)); n > r.sentenceLimit() {
			problems = append(problems, fmt.Sprintf("%s description has %d sentences (max %d)", label, n, r.sentenceLimit()))
		}
	})
	if len(problems) > 0 {
		return rules.FailAt(route, r.ID(), howSteps, strings.Join(problems, "; ")), nil
	}
	return rules.PassResultWithMessage(route, r.ID(), fmt.Sprintf("%d steps", steps.Length())), nil
}

func init() {
	rules.Register(&HowItWorksStepsRule{})
}
