package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"sitecheck/internal/data"
	"sitecheck/internal/fetcher"
	"sitecheck/internal/page"
	"sitecheck/internal/rules"
	"sitecheck/internal/site"
)

// fakeRenderer serves a canned page for every route, optionally failing or
// blocking until released.
type fakeRenderer struct {
	fail    map[string]error
	release chan struct{}
	started chan string

	mu        sync.Mutex
	active    int
	maxActive int
	calls     int
}

func (r *fakeRenderer) Render(ctx context.Context, route, pageURL string) (*page.Snapshot, error) {
	r.mu.Lock()
	r.calls++
	r.active++
	if r.active > r.maxActive {
		r.maxActive = r.active
	}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.active--
		r.mu.Unlock()
	}()

	if r.started != nil {
		select {
		case r.started <- route:
		default:
		}
	}
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := r.fail[route]; err != nil {
		return nil, err
	}
	return page.NewSnapshot(route, pageURL, http.StatusOK, "<html><head><title>"+route+"</title></head><body></body></html>")
}

func (r *fakeRenderer) Close() error { return nil }

func newTestScheduler(t *testing.T, r page.Renderer, concurrency int) *Scheduler {
	t.Helper()
	f := fetcher.NewFetcher(r, http.DefaultClient, "http://example.test")
	f.SetProfile(site.Default())
	scheduler, err := NewScheduler(f, concurrency)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return scheduler
}

func snapshotPlan(t *testing.T, paths ...string) *CheckPlan {
	t.Helper()
	plan := NewCheckPlan()
	selected := []rules.Rule{&snapshotRule{}}
	for _, p := range paths {
		route := site.Route{Path: p, Checks: []string{ruleSnapshot}}
		if _, err := plan.AddRoute(context.Background(), route, selected); err != nil {
			t.Fatalf("AddRoute(%s): %v", p, err)
		}
	}
	return plan
}

func drain(resCh <-chan RouteExecutionResult, errCh <-chan error) ([]RouteExecutionResult, error) {
	var results []RouteExecutionResult
	for r := range resCh {
		results = append(results, r)
	}
	var last error
	for err := range errCh {
		if err != nil {
			last = err
		}
	}
	return results, last
}

func TestNewScheduler_Validates(t *testing.T) {
	if _, err := NewScheduler(nil, 1); err == nil {
		t.Fatal("expected error for nil fetcher")
	}
	f := fetcher.NewFetcher(&fakeRenderer{}, http.DefaultClient, "http://example.test")
	if _, err := NewScheduler(f, 0); err == nil {
		t.Fatal("expected error for zero concurrency")
	}
}

func TestScheduler_Execute_Stream_SingleRouteSuccess(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	scheduler := newTestScheduler(t, &fakeRenderer{}, 2)
	results, err := drain(scheduler.Execute(context.Background(), snapshotPlan(t, "/")))
	if err != nil {
		t.Fatalf("Expected no fatal scheduler error, got %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected exactly 1 streamed result, got %d", len(results))
	}
	res := results[0]
	if res.Path != "/" {
		t.Fatalf("Expected result for /, got %s", res.Path)
	}
	v, ok := res.Data.Get(data.DepPageSnapshot)
	if !ok {
		t.Fatal("Missing page snapshot")
	}
	if snap := v.(*page.Snapshot); snap.URL != "http://example.test/" || snap.Title != "/" {
		t.Fatalf("unexpected snapshot: url=%s title=%s", snap.URL, snap.Title)
	}
	if got := len(res.DepErrs); got != 0 {
		t.Fatalf("Expected no dependency errors, got %d (%v)", got, res.DepErrs)
	}
}

func TestScheduler_Execute_Stream_SurfacesDependencyErrors(t *testing.T) {
	boom := errors.New("boom")
	scheduler := newTestScheduler(t, &fakeRenderer{fail: map[string]error{"/down": boom}}, 2)

	results, err := drain(scheduler.Execute(context.Background(), snapshotPlan(t, "/down", "/up")))
	if err != nil {
		t.Fatalf("Expected no fatal scheduler error, got %v", err)
	}
	byPath := make(map[string]RouteExecutionResult)
	for _, r := range results {
		byPath[r.Path] = r
	}
	if len(byPath) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	down := byPath["/down"]
	if !errors.Is(down.DepErrs[data.DepPageSnapshot], boom) {
		t.Fatalf("Expected snapshot error to wrap boom, got %v", down.DepErrs[data.DepPageSnapshot])
	}
	if _, ok := down.Data.Get(data.DepPageSnapshot); ok {
		t.Fatal("failed dependency must not be present in data")
	}
	if len(byPath["/up"].DepErrs) != 0 {
		t.Fatalf("unexpected errors for /up: %v", byPath["/up"].DepErrs)
	}
}

func TestScheduler_Execute_Stream_NRoutesExactlyNResults_AndBoundedConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	const n = 12
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("/p%02d", i)
	}

	release := make(chan struct{})
	r := &fakeRenderer{release: release, started: make(chan string, n)}
	scheduler := newTestScheduler(t, r, 3)

	resCh, errCh := scheduler.Execute(context.Background(), snapshotPlan(t, paths...))
	go func() {
		// Let the first wave saturate the semaphore before releasing everyone.
		for i := 0; i < 3; i++ {
			<-r.started
		}
		close(release)
	}()

	results, err := drain(resCh, errCh)
	if err != nil {
		t.Fatalf("Expected no fatal scheduler error, got %v", err)
	}
	if len(results) != n {
		t.Fatalf("Expected %d results, got %d", n, len(results))
	}
	seen := make(map[string]bool)
	for _, res := range results {
		if seen[res.Path] {
			t.Fatalf("duplicate result for %s", res.Path)
		}
		seen[res.Path] = true
	}
	if r.maxActive > 3 {
		t.Fatalf("expected at most 3 concurrent renders, saw %d", r.maxActive)
	}
}

func TestScheduler_Execute_Stream_CancellationStopsPromptly(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r := &fakeRenderer{release: make(chan struct{}), started: make(chan string, 1)}
	scheduler := newTestScheduler(t, r, 2)

	ctx, cancel := context.WithCancel(context.Background())
	resCh, errCh := scheduler.Execute(ctx, snapshotPlan(t, "/a", "/b", "/c", "/d"))

	<-r.started
	cancel()

	done := make(chan struct{})
	var results []RouteExecutionResult
	var err error
	go func() {
		results, err = drain(resCh, errCh)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results after cancellation, got %d", len(results))
	}
}

func TestScheduler_Execute_Stream_FatalNilRoutePlanDoesNotPanic(t *testing.T) {
	scheduler := newTestScheduler(t, &fakeRenderer{}, 1)

	plan := NewCheckPlan()
	plan.RoutePlans["/broken"] = nil
	_, err := drain(scheduler.Execute(context.Background(), plan))
	if err == nil {
		t.Fatal("expected fatal error for nil route plan")
	}

	_, err = drain(scheduler.Execute(context.Background(), &CheckPlan{}))
	if err == nil {
		t.Fatal("expected fatal error for uninitialized plan")
	}

	_, err = drain(scheduler.Execute(context.Background(), nil))
	if err == nil {
		t.Fatal("expected fatal error for nil plan")
	}
}
