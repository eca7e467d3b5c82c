package history

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"sitecheck/internal/rules"
)

// Change describes one (route, rule) pair whose status differs between runs.
// Before is empty for pairs only present in the newer run, After for pairs
// only present in the older run.
type Change struct {
	Route   string       `json:"route"`
	RuleID  string       `json:"rule_id"`
	Before  rules.Status `json:"before,omitempty"`
	After   rules.Status `json:"after,omitempty"`
	Message string       `json:"message,omitempty"`
}

// Comparison is the difference between two runs of the same site.
type Comparison struct {
	Older   Run      `json:"older"`
	Newer   Run      `json:"newer"`
	Changes []Change `json:"changes"`
}

// Identical reports whether both runs produced the same status for every pair.
func (c *Comparison) Identical() bool {
	return c != nil && len(c.Changes) == 0
}

// Regressions returns the changes that turned a PASS (or a new pair) into
// something else.
func (c *Comparison) Regressions() []Change {
	if c == nil {
		return nil
	}
	var out []Change
	for _, ch := range c.Changes {
		if ch.After != "" && ch.After != rules.StatusPass && (ch.Before == rules.StatusPass || ch.Before == "") {
			out = append(out, ch)
		}
	}
	return out
}

type pairKey struct {
	route  string
	ruleID string
}

// Compare diffs two result sets by (route, rule) pair.
func Compare(older, newer Run, olderResults, newerResults []rules.Result) *Comparison {
	before := make(map[pairKey]rules.Result, len(olderResults))
	for _, r := range olderResults {
		before[pairKey{r.Route, r.RuleID}] = r
	}
	after := make(map[pairKey]rules.Result, len(newerResults))
	for _, r := range newerResults {
		after[pairKey{r.Route, r.RuleID}] = r
	}

	var changes []Change
	for k, a := range after {
		b, ok := before[k]
		if ok && b.Status == a.Status {
			continue
		}
		ch := Change{Route: k.route, RuleID: k.ruleID, After: a.Status, Message: a.Message}
		if ok {
			ch.Before = b.Status
		}
		changes = append(changes, ch)
	}
	for k, b := range before {
		if _, ok := after[k]; ok {
			continue
		}
		changes = append(changes, Change{Route: k.route, RuleID: k.ruleID, Before: b.Status, Message: b.Message})
	}

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Route != changes[j].Route {
			return changes[i].Route < changes[j].Route
		}
		return changes[i].RuleID < changes[j].RuleID
	})
	return &Comparison{Older: older, Newer: newer, Changes: changes}
}

// CompareRuns compares a run with the previous run of the same site. A zero
// runID picks the latest run for baseURL (or overall when baseURL is empty).
func (s *Store) CompareRuns(ctx context.Context, baseURL string, runID int64) (*Comparison, error) {
	var newer *Run
	if runID > 0 {
		r, err := s.GetRun(ctx, runID)
		if err != nil {
			return nil, err
		}
		newer = r
	} else {
		runs, err := s.ListRuns(ctx, baseURL, 1)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, ErrNotEnoughRuns
		}
		newer = &runs[0]
	}

	older, err := s.previousRun(ctx, newer)
	if err != nil {
		if errors.Is(err, ErrNotEnoughRuns) {
			return nil, fmt.Errorf("%w: no earlier run for %s", ErrNotEnoughRuns, newer.BaseURL)
		}
		return nil, err
	}

	olderResults, err := s.Results(ctx, older.ID)
	if err != nil {
		return nil, err
	}
	newerResults, err := s.Results(ctx, newer.ID)
	if err != nil {
		return nil, err
	}
	return Compare(*older, *newer, olderResults, newerResults), nil
}
