package checks

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"sitecheck/internal/data"
	"sitecheck/internal/page"
	"sitecheck/internal/site"
)

// msgLayoutUnavailable is the skip reason for visual rules on snapshots
// captured without layout (e.g. --renderer http).
const msgLayoutUnavailable = "layout data unavailable"

var snapshotDeps = []data.DependencyKey{data.DepPageSnapshot}

// dependencyProblem turns a data.Lookup error into the ERROR message a
// rule reports.
func dependencyProblem(err error) string {
	switch {
	case errors.Is(err, data.ErrMissing):
		return "Dependency missing"
	case errors.Is(err, data.ErrNil):
		return "Dependency is nil"
	default:
		return "Invalid dependency type"
	}
}

// loadSnapshot reads the page snapshot dependency. A non-empty problem means
// the caller should report ERROR with it.
func loadSnapshot(dc data.DataContext) (*page.Snapshot, string) {
	snap, err := data.Lookup[*page.Snapshot](dc, data.DepPageSnapshot)
	if err != nil {
		return nil, dependencyProblem(err)
	}
	if snap == nil || snap.Doc == nil {
		return nil, "Invalid dependency type"
	}
	return snap, ""
}

func loadProfile(dc data.DataContext) (*site.Profile, string) {
	p, err := data.Lookup[*site.Profile](dc, data.DepSiteProfile)
	if err != nil {
		return nil, dependencyProblem(err)
	}
	if p == nil {
		return nil, "Invalid dependency type"
	}
	return p, ""
}

func optionValue(opts map[string]string, key string) (string, bool) {
	v, ok := opts[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

func intOption(opts map[string]string, key string, def int, min int) (int, error) {
	v, ok := optionValue(opts, key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min {
		return 0, fmt.Errorf("invalid value for %s: %s (must be an integer >= %d)", key, v, min)
	}
	return n, nil
}

func floatOption(opts map[string]string, key string, def float64) (float64, error) {
	v, ok := optionValue(opts, key)
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(v, "px"), 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid value for %s: %s (must be a positive number)", key, v)
	}
	return f, nil
}

func formatPx(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
