package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"sitecheck/internal/config"
	"sitecheck/internal/data"
	"sitecheck/internal/log"
	"sitecheck/internal/output"
	"sitecheck/internal/page"
	"sitecheck/internal/rules"
	_ "sitecheck/internal/rules/checks" // register the built-in rules
	"sitecheck/internal/site"
	"sitecheck/internal/sitefixture"
)

// Test-only rules. They only run on routes of profiles that list them.
const (
	ruleToggle     = "test-toggle"
	ruleSnapshot   = "test-needs-snapshot"
	ruleUndeclared = "test-undeclared-access"
	ruleNoDeps     = "test-no-deps"
)

func init() {
	rules.Register(&toggleRule{})
	rules.Register(&snapshotRule{})
	rules.Register(&undeclaredAccessRule{})
	rules.Register(&noDepsRule{})
}

// toggleRule passes when its "enabled" option is true.
type toggleRule struct {
	enabled bool
}

func (r *toggleRule) ID() string               { return ruleToggle }
func (r *toggleRule) Title() string            { return "Test configurable toggle" }
func (r *toggleRule) Description() string      { return "Test-only configurable rule" }
func (r *toggleRule) Category() rules.Category { return rules.CategoryStructural }
func (r *toggleRule) Dependencies(ctx context.Context, route site.Route) ([]data.DependencyKey, error) {
	return nil, nil
}
func (r *toggleRule) Options() []rules.Option {
	return []rules.Option{{
		Name:        "enabled",
		Description: "If true, the rule passes; if false, it fails.",
		Default:     "false",
	}}
}
func (r *toggleRule) Configure(opts map[string]string) error {
	v, ok := opts["enabled"]
	if !ok || strings.TrimSpace(v) == "" {
		r.enabled = false
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	r.enabled = b
	return nil
}
func (r *toggleRule) Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (rules.Result, error) {
	if r.enabled {
		return rules.PassResult(route, r.ID()), nil
	}
	return rules.FailResult(route, r.ID(), "disabled"), nil
}

// snapshotRule passes when the page snapshot dependency is present.
type snapshotRule struct{}

func (r *snapshotRule) ID() string               { return ruleSnapshot }
func (r *snapshotRule) Title() string            { return "Needs snapshot" }
func (r *snapshotRule) Description() string      { return "Passes when a snapshot was captured" }
func (r *snapshotRule) Category() rules.Category { return rules.CategoryAvailability }
func (r *snapshotRule) Dependencies(ctx context.Context, route site.Route) ([]data.DependencyKey, error) {
	return []data.DependencyKey{data.DepPageSnapshot}, nil
}
func (r *snapshotRule) Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (rules.Result, error) {
	if v, ok := dc.Get(data.DepPageSnapshot); ok && v != nil {
		return rules.PassResult(route, r.ID()), nil
	}
	return rules.FailResult(route, r.ID(), "no snapshot"), nil
}

// undeclaredAccessRule reads a dependency it never declared.
type undeclaredAccessRule struct{}

func (r *undeclaredAccessRule) ID() string    { return ruleUndeclared }
func (r *undeclaredAccessRule) Title() string { return "Undeclared access" }
func (r *undeclaredAccessRule) Description() string {
	return "Reads page.snapshot without declaring it"
}
func (r *undeclaredAccessRule) Category() rules.Category { return rules.CategoryStructural }
func (r *undeclaredAccessRule) Dependencies(ctx context.Context, route site.Route) ([]data.DependencyKey, error) {
	return nil, nil
}
func (r *undeclaredAccessRule) Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (rules.Result, error) {
	_, _ = dc.Get(data.DepPageSnapshot)
	return rules.PassResult(route, r.ID()), nil
}

// noDepsRule always passes and needs nothing fetched.
type noDepsRule struct{}

func (r *noDepsRule) ID() string               { return ruleNoDeps }
func (r *noDepsRule) Title() string            { return "No dependencies" }
func (r *noDepsRule) Description() string      { return "Always passes" }
func (r *noDepsRule) Category() rules.Category { return rules.CategoryStructural }
func (r *noDepsRule) Dependencies(ctx context.Context, route site.Route) ([]data.DependencyKey, error) {
	return nil, nil
}
func (r *noDepsRule) Evaluate(ctx context.Context, route site.Route, dc data.DataContext) (rules.Result, error) {
	return rules.PassResult(route, r.ID()), nil
}

func newFixtureServer(t *testing.T, opts sitefixture.Options) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(sitefixture.NewRouter(opts))
	t.Cleanup(srv.Close)
	return srv
}

// httpConfig returns a validated config that checks baseURL over plain HTTP
// with the console disabled.
func httpConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.Target.BaseURL = baseURL
	cfg.Runtime.Renderer = page.KindHTTP
	cfg.Runtime.Concurrency = 2
	cfg.Output.NoConsole = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	return cfg
}

func newTestEngine(stdout *bytes.Buffer) *Engine {
	e := NewEngine(log.Discard())
	e.stdout = stdout
	return e
}

// writeProfile stores a YAML site profile in a temp dir and returns its path.
func writeProfile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "site.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return p
}

func decodeEvents(t *testing.T, raw []byte) []output.Event {
	t.Helper()
	var events []output.Event
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev output.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			t.Fatalf("invalid NDJSON line %q: %v", line, err)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan NDJSON: %v", err)
	}
	return events
}

func resultsOf(events []output.Event) []rules.Result {
	var out []rules.Result
	for _, ev := range events {
		if ev.Type == output.EventRuleResult && ev.Result != nil {
			r := *ev.Result
			// The event's route shadows the embedded result's on decode.
			r.Route = ev.Route
			out = append(out, r)
		}
	}
	return out
}

func findResult(results []rules.Result, route, ruleID string) (rules.Result, bool) {
	for _, r := range results {
		if r.Route == route && r.RuleID == ruleID {
			return r, true
		}
	}
	return rules.Result{}, false
}

func countStatuses(results []rules.Result) map[rules.Status]int {
	out := make(map[rules.Status]int)
	for _, r := range results {
		out[r.Status]++
	}
	return out
}

// staticExecute replaces the scheduler with canned per-route results.
func staticExecute(byPath map[string]RouteExecutionResult) func(context.Context, *config.Config, *CheckPlan) (<-chan RouteExecutionResult, <-chan error) {
	return func(ctx context.Context, cfg *config.Config, plan *CheckPlan) (<-chan RouteExecutionResult, <-chan error) {
		resCh := make(chan RouteExecutionResult, len(plan.RoutePlans))
		errCh := make(chan error)
		for _, p := range plan.Paths() {
			res, ok := byPath[p]
			if !ok {
				res = RouteExecutionResult{Path: p}
			}
			resCh <- res
		}
		close(resCh)
		close(errCh)
		return resCh, errCh
	}
}

func testSnapshot(t *testing.T) *page.Snapshot {
	t.Helper()
	snap, err := page.NewSnapshot("/", "http://example.test/", 200, "<html><head><title>T</title></head><body></body></html>")
	if err != nil {
		t.Fatalf("NewSnapshot() error: %v", err)
	}
	return snap
}
