package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"

	"sitecheck/internal/config"
	"sitecheck/internal/data"
	"sitecheck/internal/history"
	"sitecheck/internal/output"
	"sitecheck/internal/rules"
	"sitecheck/internal/site"
	"sitecheck/internal/sitefixture"
)

// The reference profile plans 44 checks over 6 routes.
const (
	referenceRoutes = 6
	referenceChecks = 44
)

func TestEngine_Run_ReferenceSite_HTTPRendererSkipsVisualRules(t *testing.T) {
	srv := newFixtureServer(t, sitefixture.Options{})
	cfg := httpConfig(t, srv.URL)
	cfg.Output.Emit = []string{"ndjson"}

	var stdout bytes.Buffer
	code := newTestEngine(&stdout).Run(context.Background(), cfg)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d\n%s", code, stdout.String())
	}

	results := resultsOf(decodeEvents(t, stdout.Bytes()))
	if len(results) != referenceChecks {
		t.Fatalf("expected %d results, got %d", referenceChecks, len(results))
	}

	want := map[rules.Status]int{rules.StatusPass: 35, rules.StatusSkipped: 9}
	if diff := cmp.Diff(want, countStatuses(results)); diff != "" {
		t.Fatalf("status counts mismatch (-want +got):\n%s", diff)
	}
	for _, r := range results {
		if r.Status == rules.StatusSkipped && r.Message != "layout data unavailable" {
			t.Errorf("%s %s: unexpected skip reason %q", r.Route, r.RuleID, r.Message)
		}
		if r.Category == "" {
			t.Errorf("%s %s: missing category", r.Route, r.RuleID)
		}
	}
}

func TestEngine_Run_ReferenceSite_WithLayoutPassesEverything(t *testing.T) {
	srv := newFixtureServer(t, sitefixture.Options{Layout: true})
	cfg := httpConfig(t, srv.URL)
	cfg.Output.Emit = []string{"ndjson"}

	var stdout bytes.Buffer
	code := newTestEngine(&stdout).Run(context.Background(), cfg)

	results := resultsOf(decodeEvents(t, stdout.Bytes()))
	for _, r := range results {
		if r.Status != rules.StatusPass {
			t.Errorf("%s %s: %s %s", r.Route, r.RuleID, r.Status, r.Message)
		}
	}
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if len(results) != referenceChecks {
		t.Fatalf("expected %d results, got %d", referenceChecks, len(results))
	}
}

func TestEngine_Run_DetectsViolations(t *testing.T) {
	srv := newFixtureServer(t, sitefixture.Options{
		Layout: true,
		Mutate: func(path string, doc *goquery.Document) {
			switch path {
			case "/eu-merchant":
				doc.Find(".hero-cta .btn-primary").SetAttr("href", "#signup")
				doc.Find(".trust-section").SetAttr("data-sc-box", "0 9000 600 120")
			case "/privacy":
				doc.Find("footer").AppendHtml(`<a href="/old-terms">Terms</a>`)
			}
		},
	})
	cfg := httpConfig(t, srv.URL)
	cfg.Output.Emit = []string{"ndjson"}

	var stdout bytes.Buffer
	code := newTestEngine(&stdout).Run(context.Background(), cfg)
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}

	results := resultsOf(decodeEvents(t, stdout.Bytes()))
	tests := []struct {
		route, rule, contains string
	}{
		{route: "/eu-merchant", rule: "hero-cta-target", contains: `href "#signup", expected "#waitlist"`},
		{route: "/eu-merchant", rule: "trust-above-waitlist", contains: "is not above waitlist"},
		{route: "/privacy", rule: "internal-links-resolve", contains: "/old-terms (404)"},
	}
	for _, tt := range tests {
		r, ok := findResult(results, tt.route, tt.rule)
		if !ok {
			t.Errorf("%s %s: no result", tt.route, tt.rule)
			continue
		}
		if r.Status != rules.StatusFail || !strings.Contains(r.Message, tt.contains) {
			t.Errorf("%s %s: got %s %q, want FAIL containing %q", tt.route, tt.rule, r.Status, r.Message, tt.contains)
		}
	}
	if got := countStatuses(results)[rules.StatusFail]; got != len(tests) {
		t.Errorf("expected %d failures, got %d", len(tests), got)
	}
}

func TestEngine_Run_RepeatedRunsProduceIdenticalResults(t *testing.T) {
	srv := newFixtureServer(t, sitefixture.Options{
		Layout: true,
		Mutate: func(path string, doc *goquery.Document) {
			if path == "/mid-market" {
				doc.Find(".benefits-list li").First().SetText("One dashboard")
				doc.Find("footer").AppendHtml(`<a href="/gone">Gone</a>`)
			}
		},
	})

	run := func() (int, []rules.Result) {
		cfg := httpConfig(t, srv.URL)
		cfg.Runtime.Concurrency = 4
		cfg.Output.Emit = []string{"ndjson"}
		var stdout bytes.Buffer
		code := newTestEngine(&stdout).Run(context.Background(), cfg)
		return code, resultsOf(decodeEvents(t, stdout.Bytes()))
	}

	firstCode, first := run()
	secondCode, second := run()

	if firstCode != 1 || secondCode != 1 {
		t.Fatalf("expected exit code 1 twice, got %d and %d", firstCode, secondCode)
	}
	if len(first) != referenceChecks {
		t.Fatalf("expected %d results, got %d", referenceChecks, len(first))
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("results differ between runs (-first +second):\n%s", diff)
	}
}

func TestEngine_Run_FileOutput(t *testing.T) {
	srv := newFixtureServer(t, sitefixture.Options{})
	dir := t.TempDir()

	cfg := httpConfig(t, srv.URL)
	cfg.Output.Out = filepath.Join(dir, "nested", "results.json")
	cfg.Output.Report = filepath.Join(dir, "report.md")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	var stdout bytes.Buffer
	if code := newTestEngine(&stdout).Run(context.Background(), cfg); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected no stdout with console disabled, got:\n%s", stdout.String())
	}

	raw, err := os.ReadFile(cfg.Output.Out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var results []rules.Result
	if err := json.Unmarshal(raw, &results); err != nil {
		t.Fatalf("output is not a JSON array of results: %v", err)
	}
	if len(results) != referenceChecks {
		t.Fatalf("expected %d results, got %d", referenceChecks, len(results))
	}
	if results[0].Route != "/" {
		t.Fatalf("expected results to start with route /, got %q", results[0].Route)
	}

	report, err := os.ReadFile(cfg.Output.Report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	for _, want := range []string{"# Site Check Report", srv.URL, "threadmark", "No failures, but some checks were skipped."} {
		if !bytes.Contains(report, []byte(want)) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestEngine_Run_NDJSON_LifecycleEventOrdering(t *testing.T) {
	srv := newFixtureServer(t, sitefixture.Options{})
	cfg := httpConfig(t, srv.URL)
	cfg.Output.Emit = []string{"ndjson"}
	cfg.Runtime.Concurrency = 4

	var stdout bytes.Buffer
	if code := newTestEngine(&stdout).Run(context.Background(), cfg); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	events := decodeEvents(t, stdout.Bytes())
	if len(events) < 2 {
		t.Fatalf("expected lifecycle events, got %d", len(events))
	}

	first := events[0]
	if first.Type != output.EventRunStarted || first.BaseURL != srv.URL || first.Profile != "threadmark" || first.Routes != referenceRoutes {
		t.Fatalf("unexpected run.started: %+v", first)
	}
	if last := events[len(events)-1]; last.Type != output.EventRunFinished || last.ExitCode != 0 {
		t.Fatalf("unexpected last event: %+v", last)
	}

	var order []string
	current := ""
	for _, ev := range events[1 : len(events)-1] {
		switch ev.Type {
		case output.EventRouteStarted:
			if current != "" {
				t.Fatalf("route.started %s before route.finished %s", ev.Route, current)
			}
			current = ev.Route
			order = append(order, ev.Route)
		case output.EventRuleResult:
			if ev.Route != current {
				t.Fatalf("result for %s inside route %s", ev.Route, current)
			}
		case output.EventRouteFinished:
			if ev.Route != current {
				t.Fatalf("route.finished %s does not close %s", ev.Route, current)
			}
			current = ""
		default:
			t.Fatalf("unexpected event type %q", ev.Type)
		}
	}

	want := []string{"/", "/eu-merchant", "/mid-market", "/nonexistent-page", "/privacy", "/thanks"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Fatalf("route order mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_Run_DryRun_PrintsPlanAndCreatesNoArtifacts(t *testing.T) {
	dir := t.TempDir()
	cfg := httpConfig(t, "http://127.0.0.1:1")
	cfg.Target.DryRun = true
	cfg.Output.Out = filepath.Join(dir, "results.json")
	cfg.Output.Report = filepath.Join(dir, "report.md")
	cfg.History.DBPath = filepath.Join(dir, "history.db")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	var stdout bytes.Buffer
	if code := newTestEngine(&stdout).Run(context.Background(), cfg); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}

	out := stdout.String()
	header := fmt.Sprintf("Check plan for http://127.0.0.1:1 (%d routes, %d checks):\n", referenceRoutes, referenceChecks)
	if !strings.HasPrefix(out, header) {
		t.Fatalf("unexpected plan header:\n%s", out)
	}
	if !strings.Contains(out, "/nonexistent-page\troute-available\n") {
		t.Fatalf("expected probe route line, got:\n%s", out)
	}

	for _, p := range []string{cfg.Output.Out, cfg.Output.Report, cfg.History.DBPath} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("dry run created %s", p)
		}
	}
}

func TestEngine_Run_SetRuleOptions_ChangesBehavior(t *testing.T) {
	srv := newFixtureServer(t, sitefixture.Options{
		Mutate: func(path string, doc *goquery.Document) {
			doc.Find(".hero .hero-sub").SetText("One. Two. Three.")
		},
	})

	run := func(set []string) rules.Result {
		t.Helper()
		cfg := httpConfig(t, srv.URL)
		cfg.Target.Routes = []string{"/eu-merchant"}
		cfg.Rules.Selector = "hero-copy-concise"
		cfg.Rules.Set = set
		cfg.Output.Emit = []string{"ndjson"}

		var stdout bytes.Buffer
		_ = newTestEngine(&stdout).Run(context.Background(), cfg)
		results := resultsOf(decodeEvents(t, stdout.Bytes()))
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		return results[0]
	}

	if r := run(nil); r.Status != rules.StatusFail {
		t.Fatalf("expected FAIL with defaults, got %s %q", r.Status, r.Message)
	}
	if r := run([]string{"hero-copy-concise.max_sentences=3"}); r.Status != rules.StatusPass {
		t.Fatalf("expected PASS with max_sentences=3, got %s %q", r.Status, r.Message)
	}
	// Options do not leak into the next run.
	if r := run(nil); r.Status != rules.StatusFail {
		t.Fatalf("expected FAIL after reset, got %s %q", r.Status, r.Message)
	}
}

func TestEngine_Run_ProfileOptionsAndSetPrecedence(t *testing.T) {
	profile := writeProfile(t, `
name: toggles
baseURL: http://example.test
routes:
  - path: /a
    checks: [test-toggle]
options:
  test-toggle:
    enabled: "true"
`)
	e := newTestEngine(&bytes.Buffer{})
	e.schedulerExecute = staticExecute(map[string]RouteExecutionResult{"/a": {Path: "/a"}})

	cfg := httpConfig(t, "")
	cfg.Target.Profile = profile
	if code := e.Run(context.Background(), cfg); code != 0 {
		t.Fatalf("expected profile option to enable the rule, got exit %d", code)
	}

	cfg = httpConfig(t, "")
	cfg.Target.Profile = profile
	cfg.Rules.Set = []string{"test-toggle.enabled=false"}
	if code := e.Run(context.Background(), cfg); code != 1 {
		t.Fatalf("expected --set to override the profile, got exit %d", code)
	}
}

func TestEngine_Run_ExitCodeIs3OnFatalSetupErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
	}{
		{name: "missing profile", mutate: func(cfg *config.Config) { cfg.Target.Profile = "/does/not/exist.yaml" }},
		{name: "no routes match", mutate: func(cfg *config.Config) { cfg.Target.Routes = []string{"/blog/*"} }},
		{name: "unknown rule selector", mutate: func(cfg *config.Config) { cfg.Rules.Selector = "no-such-rule" }},
		{name: "unknown rule in --set", mutate: func(cfg *config.Config) { cfg.Rules.Set = []string{"no-such-rule.x=1"} }},
		{name: "unknown option in --set", mutate: func(cfg *config.Config) { cfg.Rules.Set = []string{"hero-copy-concise.nope=1"} }},
		{name: "invalid option value", mutate: func(cfg *config.Config) { cfg.Rules.Set = []string{"hero-copy-concise.max_sentences=zero"} }},
		{name: "selection has no route", mutate: func(cfg *config.Config) {
			cfg.Target.Routes = []string{"/nonexistent-page"}
			cfg.Rules.Selector = "visual-policy"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := httpConfig(t, "http://127.0.0.1:1")
			tt.mutate(cfg)
			var stdout bytes.Buffer
			if code := newTestEngine(&stdout).Run(context.Background(), cfg); code != 3 {
				t.Fatalf("expected exit code 3, got %d", code)
			}
		})
	}
}

func TestEngine_Run_PageCaptureFailureIsError(t *testing.T) {
	srv := newFixtureServer(t, sitefixture.Options{})
	baseURL := srv.URL
	srv.Close()

	cfg := httpConfig(t, baseURL)
	cfg.Target.Routes = []string{"/privacy"}
	cfg.Output.Emit = []string{"ndjson"}

	var stdout bytes.Buffer
	if code := newTestEngine(&stdout).Run(context.Background(), cfg); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	results := resultsOf(decodeEvents(t, stdout.Bytes()))
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Status != rules.StatusError {
			t.Errorf("%s: expected ERROR, got %s", r.RuleID, r.Status)
		}
		if !strings.Contains(r.Message, "failed: Get /privacy") {
			t.Errorf("%s: expected a path-only failure message, got %q", r.RuleID, r.Message)
		}
		if strings.Contains(r.Message, baseURL) {
			t.Errorf("%s: message leaks the base URL: %q", r.RuleID, r.Message)
		}
	}
}

func TestEngine_Run_PageTimeoutIsError(t *testing.T) {
	srv := newFixtureServer(t, sitefixture.Options{Delay: 2 * time.Second})
	cfg := httpConfig(t, srv.URL)
	cfg.Target.Routes = []string{"/"}
	cfg.Rules.Selector = "route-available"
	cfg.Runtime.PageTimeout = 50 * time.Millisecond
	cfg.Output.Emit = []string{"ndjson"}

	var stdout bytes.Buffer
	if code := newTestEngine(&stdout).Run(context.Background(), cfg); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	r, ok := findResult(resultsOf(decodeEvents(t, stdout.Bytes())), "/", "route-available")
	if !ok || r.Status != rules.StatusError {
		t.Fatalf("expected ERROR for route-available, got %+v", r)
	}
}

func TestEngine_Run_RecordsHistory(t *testing.T) {
	srv := newFixtureServer(t, sitefixture.Options{})
	dbPath := filepath.Join(t.TempDir(), "history.db")

	for i := 0; i < 2; i++ {
		cfg := httpConfig(t, srv.URL)
		cfg.History.DBPath = dbPath
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate() error: %v", err)
		}
		if code := newTestEngine(&bytes.Buffer{}).Run(context.Background(), cfg); code != 0 {
			t.Fatalf("run %d: expected exit code 0, got %d", i, code)
		}
	}

	store, err := history.Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	runs, err := store.ListRuns(ctx, srv.URL, 10)
	if err != nil {
		t.Fatalf("ListRuns() error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 recorded runs, got %d", len(runs))
	}
	if runs[0].Total() != referenceChecks || runs[0].Profile != "threadmark" {
		t.Fatalf("unexpected run: %+v", runs[0])
	}

	cmpRes, err := store.CompareRuns(ctx, srv.URL, 0)
	if err != nil {
		t.Fatalf("CompareRuns() error: %v", err)
	}
	if !cmpRes.Identical() {
		t.Fatalf("expected identical runs, got %d changes", len(cmpRes.Changes))
	}
}

func TestEngine_Run_UndeclaredDependencyAccessIsError(t *testing.T) {
	profile := writeProfile(t, `
name: undeclared
routes:
  - path: /a
    checks: [test-undeclared-access]
`)
	snap := testSnapshot(t)
	var stdout bytes.Buffer
	e := newTestEngine(&stdout)
	e.schedulerExecute = staticExecute(map[string]RouteExecutionResult{
		"/a": {Path: "/a", Data: data.NewMapDataContext(map[data.DependencyKey]any{data.DepPageSnapshot: snap})},
	})

	cfg := httpConfig(t, "")
	cfg.Target.Profile = profile
	cfg.Output.Emit = []string{"ndjson"}
	if code := e.Run(context.Background(), cfg); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}

	r, ok := findResult(resultsOf(decodeEvents(t, stdout.Bytes())), "/a", ruleUndeclared)
	if !ok || r.Status != rules.StatusError {
		t.Fatalf("expected ERROR, got %+v", r)
	}
	if !strings.Contains(r.Message, "Rule accessed undeclared dependencies: page.snapshot") {
		t.Fatalf("unexpected message %q", r.Message)
	}
}

func TestEngine_Run_DependencyFailurePropagation(t *testing.T) {
	profile := writeProfile(t, `
name: deps
routes:
  - path: /cancelled
    checks: [test-needs-snapshot]
  - path: /down
    checks: [test-needs-snapshot]
  - path: /ok
    checks: [test-needs-snapshot, test-no-deps]
`)
	var stdout bytes.Buffer
	e := newTestEngine(&stdout)
	e.schedulerExecute = staticExecute(map[string]RouteExecutionResult{
		"/cancelled": {Path: "/cancelled", DepErrs: map[data.DependencyKey]error{data.DepPageSnapshot: context.Canceled}},
		"/down": {Path: "/down", DepErrs: map[data.DependencyKey]error{
			data.DepPageSnapshot: &url.Error{Op: "Get", URL: "http://127.0.0.1:9/down", Err: errors.New("connection refused")},
		}},
		"/ok": {Path: "/ok", Data: data.NewMapDataContext(map[data.DependencyKey]any{data.DepPageSnapshot: testSnapshot(t)})},
	})

	cfg := httpConfig(t, "")
	cfg.Target.Profile = profile
	cfg.Output.Emit = []string{"ndjson"}
	if code := e.Run(context.Background(), cfg); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}

	got := make(map[string]string)
	for _, r := range resultsOf(decodeEvents(t, stdout.Bytes())) {
		got[r.Route+" "+r.RuleID] = fmt.Sprintf("%s %s", r.Status, r.Message)
	}
	want := map[string]string{
		"/cancelled test-needs-snapshot": "SKIPPED page capture cancelled",
		"/down test-needs-snapshot":      "ERROR page capture failed: Get /down: connection refused",
		"/ok test-needs-snapshot":        "PASS ",
		"/ok test-no-deps":               "PASS ",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_Run_SchedulerErrorMarksRunIncomplete(t *testing.T) {
	profile := writeProfile(t, `
name: aborted
routes:
  - path: /a
    checks: [test-no-deps]
  - path: /b
    checks: [test-no-deps]
`)
	var stdout bytes.Buffer
	e := newTestEngine(&stdout)
	e.schedulerExecute = func(ctx context.Context, cfg *config.Config, plan *CheckPlan) (<-chan RouteExecutionResult, <-chan error) {
		resCh := make(chan RouteExecutionResult, 1)
		errCh := make(chan error, 1)
		resCh <- RouteExecutionResult{Path: "/a"}
		errCh <- context.DeadlineExceeded
		close(resCh)
		close(errCh)
		return resCh, errCh
	}

	cfg := httpConfig(t, "")
	cfg.Target.Profile = profile
	cfg.Output.Emit = []string{"ndjson"}
	if code := e.Run(context.Background(), cfg); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	results := resultsOf(decodeEvents(t, stdout.Bytes()))
	if len(results) != 1 || results[0].Route != "/a" {
		t.Fatalf("expected only /a to be evaluated, got %+v", results)
	}
}

func TestEvaluateStreamingResults_WritesRoutesInPathOrder(t *testing.T) {
	profile := writeProfile(t, `
name: order
routes:
  - path: /c
    checks: [test-no-deps]
  - path: /a
    checks: [test-no-deps]
  - path: /b
    checks: [test-no-deps]
`)
	var stdout bytes.Buffer
	e := newTestEngine(&stdout)
	e.schedulerExecute = func(ctx context.Context, cfg *config.Config, plan *CheckPlan) (<-chan RouteExecutionResult, <-chan error) {
		resCh := make(chan RouteExecutionResult, 3)
		errCh := make(chan error)
		for _, p := range []string{"/c", "/b", "/a"} {
			resCh <- RouteExecutionResult{Path: p}
		}
		close(resCh)
		close(errCh)
		return resCh, errCh
	}

	cfg := httpConfig(t, "")
	cfg.Target.Profile = profile
	cfg.Output.Emit = []string{"ndjson"}
	if code := e.Run(context.Background(), cfg); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}

	var order []string
	for _, r := range resultsOf(decodeEvents(t, stdout.Bytes())) {
		order = append(order, r.Route)
	}
	if diff := cmp.Diff([]string{"/a", "/b", "/c"}, order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestRuleResultIfDependenciesMissingOrFailed(t *testing.T) {
	deps := []data.DependencyKey{data.DepPageSnapshot, data.DepPageLinkStatus}
	empty := data.NewMapDataContext(nil)

	tests := []struct {
		name       string
		dc         data.DataContext
		depErrs    map[data.DependencyKey]error
		wantStatus rules.Status
		wantMsg    string
		wantOK     bool
	}{
		{
			name:   "all present",
			dc:     data.NewMapDataContext(map[data.DependencyKey]any{data.DepPageSnapshot: 1, data.DepPageLinkStatus: 2}),
			wantOK: false,
		},
		{
			name:       "single failure drops key prefix",
			dc:         data.NewMapDataContext(map[data.DependencyKey]any{data.DepPageLinkStatus: 2}),
			depErrs:    map[data.DependencyKey]error{data.DepPageSnapshot: errors.New("boom")},
			wantStatus: rules.StatusError,
			wantMsg:    "page capture failed: boom",
			wantOK:     true,
		},
		{
			name: "multiple failures keep key prefixes",
			dc:   empty,
			depErrs: map[data.DependencyKey]error{
				data.DepPageSnapshot:   errors.New("boom"),
				data.DepPageLinkStatus: context.DeadlineExceeded,
			},
			wantStatus: rules.StatusError,
			wantMsg:    "page.snapshot: page capture failed: boom; page.link_status: link probe timed out",
			wantOK:     true,
		},
		{
			name: "only cancellations skip",
			dc:   empty,
			depErrs: map[data.DependencyKey]error{
				data.DepPageSnapshot:   context.Canceled,
				data.DepPageLinkStatus: context.Canceled,
			},
			wantStatus: rules.StatusSkipped,
			wantMsg:    "page.snapshot: page capture cancelled; page.link_status: link probe cancelled",
			wantOK:     true,
		},
		{
			name:       "missing without error",
			dc:         empty,
			wantStatus: rules.StatusError,
			wantMsg:    "Missing dependencies: [page.snapshot page.link_status]",
			wantOK:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg, ok := ruleResultIfDependenciesMissingOrFailed(tt.dc, deps, tt.depErrs, false)
			if ok != tt.wantOK || status != tt.wantStatus || msg != tt.wantMsg {
				t.Fatalf("got (%q, %q, %v), want (%q, %q, %v)", status, msg, ok, tt.wantStatus, tt.wantMsg, tt.wantOK)
			}
		})
	}
}

func TestResolveBaseURL_Precedence(t *testing.T) {
	cfg := config.New()
	if got := resolveBaseURL(cfg, nil); got != "http://localhost:4321" {
		t.Fatalf("default: got %q", got)
	}
	profile := site.Default()
	profile.BaseURL = "https://preview.example.com/"
	if got := resolveBaseURL(cfg, profile); got != "https://preview.example.com" {
		t.Fatalf("profile: got %q", got)
	}
	cfg.Target.BaseURL = "http://127.0.0.1:8080"
	if got := resolveBaseURL(cfg, profile); got != "http://127.0.0.1:8080" {
		t.Fatalf("flag: got %q", got)
	}
}
