package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"sitecheck/internal/data"
	"sitecheck/internal/fetcher"
)

// RouteExecutionResult is the outcome of fetching every planned dependency
// of one route. It is emitted by the scheduler and consumed by the engine.
type RouteExecutionResult struct {
	Path    string
	Data    data.DataContext
	DepErrs map[data.DependencyKey]error

	// Elapsed is the wall time spent fetching the route's dependencies.
	Elapsed time.Duration
}

// Scheduler fetches route dependencies with at most concurrency routes in
// flight. Each in-flight route holds one open page.
type Scheduler struct {
	fetcher     *fetcher.Fetcher
	concurrency int
}

func NewScheduler(f *fetcher.Fetcher, concurrency int) (*Scheduler, error) {
	if f == nil {
		return nil, errors.New("fetcher is nil")
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", concurrency)
	}
	return &Scheduler{fetcher: f, concurrency: concurrency}, nil
}

func (s *Scheduler) validate(ctx context.Context, plan *CheckPlan) error {
	switch {
	case ctx == nil:
		return errors.New("context is nil")
	case plan == nil:
		return errors.New("check plan is nil")
	case plan.RoutePlans == nil:
		return errors.New("check plan is not initialized (RoutePlans is nil); use NewCheckPlan")
	case s == nil:
		return errors.New("scheduler is nil")
	case s.fetcher == nil:
		return errors.New("scheduler fetcher is nil")
	case s.concurrency <= 0:
		return fmt.Errorf("scheduler concurrency must be >= 1, got %d", s.concurrency)
	}
	return nil
}

// Execute streams per-route dependency fetch results.
//
// Without cancellation exactly one result is sent per route; on cancellation
// fewer may arrive. Both channels are always closed. The error channel
// carries fatal errors and cancellation only: a failed dependency is
// recorded on RouteExecutionResult.DepErrs and the route still completes.
//
// Routes start in path order and results arrive in completion order.
func (s *Scheduler) Execute(ctx context.Context, plan *CheckPlan) (<-chan RouteExecutionResult, <-chan error) {
	resultsCh := make(chan RouteExecutionResult)
	errCh := make(chan error, 1)

	go func() {
		defer close(resultsCh)
		defer close(errCh)

		if err := s.validate(ctx, plan); err != nil {
			errCh <- err
			return
		}

		g, runCtx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)

		for _, path := range plan.Paths() {
			if runCtx.Err() != nil {
				break
			}
			rp := plan.RoutePlans[path]
			if rp == nil {
				err := fmt.Errorf("nil route plan for %s", path)
				g.Go(func() error { return err })
				break
			}
			g.Go(func() error {
				res, ok := s.fetchRoute(runCtx, rp)
				if !ok {
					return nil
				}
				select {
				case resultsCh <- res:
				case <-runCtx.Done():
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			errCh <- err
			return
		}
		if err := ctx.Err(); err != nil {
			errCh <- err
		}
	}()

	return resultsCh, errCh
}

// fetchRoute resolves the route's dependencies in priority order. It
// returns false when the run was cancelled before the route completed.
func (s *Scheduler) fetchRoute(ctx context.Context, rp *RoutePlan) (RouteExecutionResult, bool) {
	start := time.Now()
	values := make(map[data.DependencyKey]any)
	depErrs := make(map[data.DependencyKey]error)

	for _, key := range rp.SortedDependencies() {
		if ctx.Err() != nil {
			return RouteExecutionResult{}, false
		}
		req := rp.Dependencies[key]
		val, err := s.fetcher.Fetch(ctx, rp.Route, req.Key, req.Params)
		if err != nil {
			depErrs[req.Key] = err
			continue
		}
		values[req.Key] = val
	}
	if ctx.Err() != nil {
		return RouteExecutionResult{}, false
	}

	return RouteExecutionResult{
		Path:    rp.Route.Path,
		Data:    data.NewMapDataContext(values),
		DepErrs: depErrs,
		Elapsed: time.Since(start),
	}, true
}
