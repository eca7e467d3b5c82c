package providers

import (
	"context"
	"fmt"

	"sitecheck/internal/data"
	"sitecheck/internal/fetcher"
	"sitecheck/internal/page"
	"sitecheck/internal/site"
)

type pageSnapshotFetcher struct{}

func (p *pageSnapshotFetcher) Key() data.DependencyKey {
	return data.DepPageSnapshot
}

func (p *pageSnapshotFetcher) Scope() data.FetchScope {
	return data.ScopeRoute
}

func (p *pageSnapshotFetcher) Fetch(ctx context.Context, route site.Route, _ map[string]string, f *fetcher.Fetcher) (any, error) {
	pageURL, err := page.ResolveURL(f.BaseURL(), route.Path)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.PageTimeout())
	defer cancel()

	snap, err := f.Renderer().Render(ctx, route.Path, pageURL)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("capture %s: timed out after %s: %w", route.Path, f.PageTimeout(), err)
		}
		return nil, fmt.Errorf("capture %s: %w", route.Path, err)
	}
	return snap, nil
}

func init() {
	fetcher.RegisterDataFetcher(&pageSnapshotFetcher{})
}
