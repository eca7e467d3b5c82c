package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"sitecheck/internal/config"
	"sitecheck/internal/data"
	"sitecheck/internal/fetcher"
	_ "sitecheck/internal/fetcher/providers" // register dependency providers
	"sitecheck/internal/history"
	"sitecheck/internal/httpclient"
	"sitecheck/internal/output"
	"sitecheck/internal/page"
	"sitecheck/internal/rules"
	"sitecheck/internal/site"
)

func exitCodeForRun(fatal, partial, wrongs bool) int {
	// 0 = every check passed or was skipped
	// 1 = at least one FAIL
	// 2 = at least one ERROR
	// 3 = fatal error (nothing ran)
	if fatal {
		return 3
	}
	if partial {
		return 2
	}
	if wrongs {
		return 1
	}
	return 0
}

type Engine struct {
	Logger *slog.Logger

	// stdout receives console and emit output and the dry-run plan.
	stdout io.Writer

	// newRenderer builds the page renderer for a run. If nil, Engine picks
	// the renderer named by cfg.Runtime.Renderer.
	newRenderer func(cfg *config.Config, client *http.Client, token string) (page.Renderer, error)

	// schedulerExecute is a test seam for streaming execution.
	// If nil, Engine uses the real fetcher + scheduler.
	schedulerExecute func(ctx context.Context, cfg *config.Config, plan *CheckPlan) (<-chan RouteExecutionResult, <-chan error)
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Logger: logger,
		stdout: os.Stdout,
	}
}

func (e *Engine) setupOutputManager(cfg *config.Config) (*output.Manager, *output.HistorySink, error) {
	outMgr := output.NewManager()
	fail := func(err error) (*output.Manager, *output.HistorySink, error) {
		_ = outMgr.Close()
		return nil, nil, err
	}

	if !cfg.Output.NoConsole {
		if err := outMgr.AddSink(output.NewConsoleSink(e.stdout, cfg.Output.ConsoleFormat, cfg.Output.ConsoleFilterStatus)); err != nil {
			return fail(err)
		}
	}

	for _, emit := range cfg.Output.Emit {
		es, err := output.NewEmitSink(e.stdout, emit)
		if err != nil {
			return fail(err)
		}
		if err := outMgr.AddSink(es); err != nil {
			return fail(err)
		}
	}

	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			return fail(err)
		}
		if err := outMgr.AddSink(fs); err != nil {
			return fail(err)
		}
	}

	if cfg.Output.Report != "" {
		rs, err := output.NewReportSink(cfg.Output.Report)
		if err != nil {
			return fail(err)
		}
		if err := outMgr.AddSink(rs); err != nil {
			return fail(err)
		}
	}

	var hist *output.HistorySink
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.DBPath)
		if err != nil {
			return fail(err)
		}
		hist, err = output.NewHistorySink(store)
		if err != nil {
			_ = store.Close()
			return fail(err)
		}
		// Close the store after the sink has flushed the run.
		if err := outMgr.AddSink(hist); err != nil {
			_ = store.Close()
			return fail(err)
		}
		if err := outMgr.AddSink(closerSink{store}); err != nil {
			_ = store.Close()
			return fail(err)
		}
	}

	return outMgr, hist, nil
}

// closerSink adapts an io.Closer so it is closed with the other sinks.
type closerSink struct{ io.Closer }

func (closerSink) Write(any) error { return nil }

// configureRules applies rule options: profile options first, then --set
// values, which win per option. Every selected configurable rule is
// configured, so rules without options fall back to their defaults.
func configureRules(selected []rules.Rule, profileOpts map[string]map[string]string, set []string) error {
	assignments, err := config.ParseRuleOptionAssignments(set)
	if err != nil {
		return err
	}

	merged := make(map[string]map[string]string)
	for _, src := range []map[string]map[string]string{profileOpts, assignments} {
		for ruleID, opts := range src {
			if merged[ruleID] == nil {
				merged[ruleID] = make(map[string]string)
			}
			for k, v := range opts {
				merged[ruleID][k] = v
			}
		}
	}

	for ruleID, opts := range merged {
		r, ok := rules.Lookup(ruleID)
		if !ok {
			return fmt.Errorf("unknown rule ID %q", ruleID)
		}
		cr, ok := r.(rules.ConfigurableRule)
		if !ok {
			return fmt.Errorf("rule %q does not support options", ruleID)
		}
		if err := rules.CheckOptionNames(cr, opts); err != nil {
			return err
		}
	}

	for _, r := range selected {
		cr, ok := r.(rules.ConfigurableRule)
		if !ok {
			continue
		}
		opts := merged[r.ID()]
		if opts == nil {
			opts = map[string]string{}
		}
		if err := cr.Configure(opts); err != nil {
			return fmt.Errorf("configure rule %q: %w", r.ID(), err)
		}
	}
	return nil
}

// ruleResultIfDependenciesMissingOrFailed returns a synthetic status and
// message when a rule's required dependencies are missing or failed to fetch.
//
// A dependency is a piece of page data identified by a data.DependencyKey,
// fetched ahead of evaluation into the route's data.DataContext.
func ruleResultIfDependenciesMissingOrFailed(dc data.DataContext, deps []data.DependencyKey, depErrs map[data.DependencyKey]error, verbose bool) (rules.Status, string, bool) {
	var missing []string
	var failedDepMessages []string
	hasSkippableFailure := false
	hasHardFailure := false

	for _, d := range deps {
		if _, ok := dc.Get(d); ok {
			continue
		}
		if depErr := depErrs[d]; depErr != nil {
			pres := presentDependencyError(d, depErr, verbose)
			failedDepMessages = append(failedDepMessages, fmt.Sprintf("%s: %s", d, pres.message))
			if pres.disposition == depErrDispositionSkip {
				hasSkippableFailure = true
			} else {
				hasHardFailure = true
			}
			continue
		}
		missing = append(missing, string(d))
	}

	if len(failedDepMessages) > 0 {
		status := rules.StatusError
		if hasSkippableFailure && !hasHardFailure {
			status = rules.StatusSkipped
		}
		msg := strings.Join(failedDepMessages, "; ")
		if len(failedDepMessages) == 1 {
			if _, after, ok := strings.Cut(failedDepMessages[0], ": "); ok {
				msg = after
			}
		}
		return status, msg, true
	}

	if len(missing) > 0 {
		return rules.StatusError, fmt.Sprintf("Missing dependencies: %v", missing), true
	}
	return "", "", false
}

// evaluateRoute runs every planned rule of one route and writes the results.
func evaluateRoute(ctx context.Context, cfg *config.Config, rp *RoutePlan, res RouteExecutionResult, outMgr *output.Manager) (hasErrors bool, hasFailures bool) {
	route := rp.Route
	_ = outMgr.Write(output.Event{Type: output.EventRouteStarted, Route: route.Path, Rules: len(rp.Rules)})

	dc := res.Data
	if dc == nil {
		dc = data.NewMapDataContext(nil)
	}

	emit := func(r rules.Result) {
		switch r.Status {
		case rules.StatusFail:
			hasFailures = true
		case rules.StatusError:
			hasErrors = true
		}
		_ = outMgr.Write(r)
	}
	synthetic := func(rule rules.Rule, status rules.Status, msg string) rules.Result {
		return rules.Result{Route: route.Path, RuleID: rule.ID(), Category: rule.Category(), Status: status, Message: msg}
	}

	for _, rule := range rp.Rules {
		deps, err := rule.Dependencies(ctx, route)
		if err != nil {
			emit(synthetic(rule, rules.StatusError, fmt.Sprintf("Failed to determine dependencies: %v", err)))
			continue
		}

		if status, msg, ok := ruleResultIfDependenciesMissingOrFailed(dc, deps, res.DepErrs, cfg.Runtime.Verbose); ok {
			emit(synthetic(rule, status, msg))
			continue
		}

		// A rule must not read dependency keys it did not declare.
		audit := data.NewAuditedDataContext(dc)
		ruleRes, err := rule.Evaluate(ctx, route, audit)
		if undeclared := audit.Undeclared(deps); len(undeclared) > 0 {
			msg := fmt.Sprintf("Rule accessed undeclared dependencies: %s. Declare them in Dependencies().", joinKeys(undeclared))
			if err != nil {
				msg = fmt.Sprintf("%s (evaluation error: %v)", msg, err)
			}
			emit(synthetic(rule, rules.StatusError, msg))
			continue
		}
		if err != nil {
			emit(synthetic(rule, rules.StatusError, fmt.Sprintf("Evaluation failed: %v", err)))
			continue
		}

		if ruleRes.Route == "" {
			ruleRes.Route = route.Path
		}
		if ruleRes.RuleID == "" {
			ruleRes.RuleID = rule.ID()
		}
		if ruleRes.Category == "" {
			ruleRes.Category = rule.Category()
		}
		emit(ruleRes)
	}

	_ = outMgr.Write(output.Event{Type: output.EventRouteFinished, Route: route.Path, DurationMs: res.Elapsed.Milliseconds()})
	return hasErrors, hasFailures
}

// evaluateStreamingResults consumes per-route execution results and
// evaluates them in route path order: a route that finishes early is held
// until every route sorted before it has been written.
func evaluateStreamingResults(ctx context.Context, cfg *config.Config, plan *CheckPlan, resCh <-chan RouteExecutionResult, outMgr *output.Manager) (hasErrors bool, hasFailures bool) {
	paths := plan.Paths()
	next := 0
	pending := make(map[string]RouteExecutionResult)

	flush := func(res RouteExecutionResult) {
		rp := plan.RoutePlans[res.Path]
		if rp == nil {
			hasErrors = true
			return
		}
		e, f := evaluateRoute(ctx, cfg, rp, res, outMgr)
		hasErrors = hasErrors || e
		hasFailures = hasFailures || f
	}

	for res := range resCh {
		if _, planned := plan.RoutePlans[res.Path]; !planned {
			hasErrors = true
			continue
		}
		pending[res.Path] = res
		for next < len(paths) {
			r, ok := pending[paths[next]]
			if !ok {
				break
			}
			delete(pending, paths[next])
			flush(r)
			next++
		}
	}

	// After cancellation some routes never arrive; write what did, in order.
	for ; next < len(paths); next++ {
		if r, ok := pending[paths[next]]; ok {
			flush(r)
		}
	}
	return hasErrors, hasFailures
}

func joinKeys(keys []data.DependencyKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}

// resolveBaseURL applies the precedence --base-url, profile baseURL, default.
func resolveBaseURL(cfg *config.Config, profile *site.Profile) string {
	if cfg.Target.BaseURL != "" {
		return cfg.Target.BaseURL
	}
	if profile != nil && profile.BaseURL != "" {
		return strings.TrimRight(profile.BaseURL, "/")
	}
	return site.DefaultBaseURL
}

func (e *Engine) resolveRoutes(cfg *config.Config, profile *site.Profile) ([]site.Route, bool) {
	routes := site.FilterRoutes(profile.SortedRoutes(), cfg.Target.Routes, cfg.Target.ExcludeRoutes)
	if len(routes) == 0 {
		e.Logger.Error("no routes match", "routes", cfg.Target.Routes, "exclude", cfg.Target.ExcludeRoutes)
		return nil, false
	}
	e.Logger.Info("resolved routes", "count", len(routes), "profile", profile.Name)
	return routes, true
}

func (e *Engine) resolveAndConfigureRules(cfg *config.Config, profile *site.Profile) ([]rules.Rule, bool) {
	selectedRules, err := rules.Resolve(cfg.Rules.Selector)
	if err != nil {
		e.Logger.Error("resolving rules", "error", err)
		return nil, false
	}
	if err := configureRules(selectedRules, profile.Options, cfg.Rules.Set); err != nil {
		e.Logger.Error("configuring rules", "error", err)
		return nil, false
	}
	e.Logger.Info("selected rules", "count", len(selectedRules))
	return selectedRules, true
}

func (e *Engine) buildPlan(ctx context.Context, routes []site.Route, selectedRules []rules.Rule) (*CheckPlan, bool) {
	plan := NewCheckPlan()
	for _, route := range routes {
		planned, err := plan.AddRoute(ctx, route, selectedRules)
		if err != nil {
			e.Logger.Error("planning route", "route", route.Path, "error", err)
			return nil, false
		}
		if !planned {
			e.Logger.Debug("route has no selected checks", "route", route.Path)
		}
	}
	if len(plan.RoutePlans) == 0 {
		e.Logger.Error("no selected rule applies to the resolved routes")
		return nil, false
	}
	return plan, true
}

func printPlan(w io.Writer, baseURL string, plan *CheckPlan) {
	fmt.Fprintf(w, "Check plan for %s (%d routes, %d checks):\n", baseURL, len(plan.RoutePlans), plan.CheckCount())
	for _, path := range plan.Paths() {
		rp := plan.RoutePlans[path]
		ids := make([]string, len(rp.Rules))
		for i, r := range rp.Rules {
			ids[i] = r.ID()
		}
		fmt.Fprintf(w, "%s\t%s\n", path, strings.Join(ids, ", "))
	}
}

func (e *Engine) buildRenderer(cfg *config.Config, client *http.Client, token string) (page.Renderer, error) {
	if e.newRenderer != nil {
		return e.newRenderer(cfg, client, token)
	}
	switch cfg.Runtime.Renderer {
	case page.KindHTTP:
		return page.NewHTTPRenderer(client), nil
	case page.KindBrowser, "":
		return page.NewBrowserRenderer(page.BrowserConfig{
			RemoteURL: cfg.Runtime.BrowserURL,
			Bin:       cfg.Runtime.BrowserBin,
			Viewport:  cfg.ViewportSize(),
			Headers:   httpclient.AuthHeaders(token),
			Logger:    e.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported renderer %q", cfg.Runtime.Renderer)
	}
}

func (e *Engine) executePlanStream(ctx context.Context, cfg *config.Config, f *fetcher.Fetcher, plan *CheckPlan) (<-chan RouteExecutionResult, <-chan error) {
	if e.schedulerExecute != nil {
		return e.schedulerExecute(ctx, cfg, plan)
	}
	scheduler, err := NewScheduler(f, cfg.Runtime.Concurrency)
	if err != nil {
		resCh := make(chan RouteExecutionResult)
		errCh := make(chan error, 1)
		close(resCh)
		errCh <- err
		close(errCh)
		return resCh, errCh
	}
	return scheduler.Execute(ctx, plan)
}

func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	if cfg.Runtime.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Runtime.Timeout)
		defer cancel()
	}

	profile, err := site.LoadProfile(cfg.Target.Profile)
	if err != nil {
		e.Logger.Error("loading site profile", "error", err)
		return exitCodeForRun(true, false, false)
	}
	baseURL := resolveBaseURL(cfg, profile)

	routes, ok := e.resolveRoutes(cfg, profile)
	if !ok {
		return exitCodeForRun(true, false, false)
	}
	selectedRules, ok := e.resolveAndConfigureRules(cfg, profile)
	if !ok {
		return exitCodeForRun(true, false, false)
	}
	plan, ok := e.buildPlan(ctx, routes, selectedRules)
	if !ok {
		return exitCodeForRun(true, false, false)
	}

	if cfg.Target.DryRun {
		printPlan(e.stdout, baseURL, plan)
		return 0
	}

	token, source := httpclient.ResolveToken(cfg.Runtime.Token)
	if token != "" {
		e.Logger.Debug("using bearer token", "source", string(source))
	}
	client, err := httpclient.NewClient(ctx, token,
		httpclient.WithVerbose(cfg.Runtime.Verbose, e.Logger),
		httpclient.WithTimeout(cfg.Runtime.PageTimeout),
	)
	if err != nil {
		e.Logger.Error("creating HTTP client", "error", err)
		return exitCodeForRun(true, false, false)
	}

	var f *fetcher.Fetcher
	if e.schedulerExecute == nil {
		renderer, err := e.buildRenderer(cfg, client, token)
		if err != nil {
			e.Logger.Error("starting renderer", "renderer", cfg.Runtime.Renderer, "error", err)
			return exitCodeForRun(true, false, false)
		}
		defer func() {
			if err := renderer.Close(); err != nil {
				e.Logger.Warn("closing renderer", "error", err)
			}
		}()
		f = fetcher.NewFetcher(renderer, client, baseURL)
		f.SetProfile(profile)
		f.SetPageTimeout(cfg.Runtime.PageTimeout)
	}

	outMgr, hist, err := e.setupOutputManager(cfg)
	if err != nil {
		e.Logger.Error("creating output sinks", "error", err)
		return exitCodeForRun(true, false, false)
	}

	e.Logger.Info("checking site", "base_url", baseURL, "routes", len(plan.RoutePlans), "checks", plan.CheckCount())
	_ = outMgr.Write(output.Event{
		Type:    output.EventRunStarted,
		BaseURL: baseURL,
		Profile: profile.Name,
		Routes:  len(plan.RoutePlans),
		Rules:   len(selectedRules),
	})

	resCh, errCh := e.executePlanStream(ctx, cfg, f, plan)
	hasErrors, hasFailures := evaluateStreamingResults(ctx, cfg, plan, resCh, outMgr)

	var schedErr error
	for err := range errCh {
		if err != nil {
			schedErr = err
		}
	}
	if schedErr != nil {
		e.Logger.Error("run aborted", "error", schedErr)
		// Routes that never ran leave the run incomplete.
		hasErrors = true
	}
	if f != nil {
		st := f.Stats()
		e.Logger.Debug("dependency cache", "entries", st.Entries, "fetches", st.Fetches, "hits", st.Hits, "shared", st.Shared)
	}

	code := exitCodeForRun(false, hasErrors, hasFailures)
	_ = outMgr.Write(output.Event{Type: output.EventRunFinished, ExitCode: code})

	if err := outMgr.Close(); err != nil {
		e.Logger.Error("closing output sinks", "error", err)
		code = exitCodeForRun(false, true, hasFailures)
	}
	if hist != nil && hist.RunID() > 0 {
		e.Logger.Info("recorded run", "id", hist.RunID())
	}
	return code
}
