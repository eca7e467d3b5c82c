package checks

import (
	"context"
	"fmt"
	"strconv"

	"sitecheck/internal/data"
	"sitecheck/internal/page"
	"sitecheck/internal/rules"
	"sitecheck/internal/site"
	"sitecheck/internal/textpolicy"
)

const (
	heroAudience = ".hero .hero-audience"
	heroSub      = ".hero .hero-sub"

	defaultHeroMaxSentences = 2
)

type HeroCopyConciseRule struct {
	maxSentences int
}

func (r *HeroCopyConciseRule) ID() string {
	return site.CheckHeroCopyConcise
}

func (r *HeroCopyConciseRule) Title() string {
	return "Hero Has Audience Label and Concise Copy"
}

func (r *HeroCopyConciseRule) Description() string {
	return "Verifies that the hero shows an audience label and that the hero subheading is at most max_sentences sentences long.\n\n" +
		"Sentences are counted by splitting on runs of '.', '!' and '?' and dropping empty fragments."
}

func (r *HeroCopyConciseRule) Category() rules.Category {
	return rules.CategoryContentPolicy
}

func (r *HeroCopyConciseRule) Options() []rules.Option {
	return []rules.Option{
		{
			Name:        "max_sentences",
			Description: "Maximum number of sentences in the hero subheading.",
			Default:     strconv.Itoa(defaultHeroMaxSentences),
		},
	}
}

func (r *HeroCopyConciseRule) Configure(opts map[string]string) error {
	n, err := intOption(opts, "max_sentences", defaultHeroMaxSentences, 1)
	if err != nil {
		return err
	}
	r.maxSentences = n
	return nil
}

func (r *HeroCopyConciseRule) limit() int {
	if r.maxSentences <= 0 {
		return defaultHeroMaxSentences
	}
	return r.maxSentences
}

func (r *HeroCopyConciseRule) Dependencies(ctx context.Context, route site.Route) ([]data.DependencyKey, error) {
	return snapshotDeps, nil
}

func (r *HeroCopyConciseRule) Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (rules.Result, error) {
	snap, problem := loadSnapshot(dc)
	if problem != "" {
		return rules.ErrorResult(route, r.ID(), problem), nil
	}

	if !snap.Visible(snap.Find(heroAudience)) {
		return rules.FailAt(route, r.ID(), heroAudience, "hero audience label is missing or not visible"), nil
	}

	sub := snap.Find(heroSub).First()
	if sub.Length() == 0 {
		return rules.FailAt(route, r.ID(), heroSub, "hero subheading not found"), nil
	}
	text := page.Text(sub)
	n := textpolicy.CountSentences(text)
	if n > r.limit() {
		res := rules.FailAt(route, r.ID(), heroSub, fmt.Sprintf("hero subheading has %d sentences, max %d", n, r.limit()))
		res = res.WithEvidence("text", text)
		return res, nil
	}
	return rules.PassResultWithMessage(route, r.ID(), fmt.Sprintf("%d %s", n, plural(n, "sentence", "sentences"))), nil
}

func init() {
	rules.Register(&HeroCopyConciseRule{})
}
