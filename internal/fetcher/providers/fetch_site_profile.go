package providers

import (
	"context"
	"errors"

	"sitecheck/internal/data"
	"sitecheck/internal/fetcher"
	"sitecheck/internal/site"
)

// siteProfileFetcher returns the profile injected by the engine (via
// SetProfile). It lets rules read site-wide constants through their data
// context instead of holding global state.
type siteProfileFetcher struct{}

func (s *siteProfileFetcher) Key() data.DependencyKey { return data.DepSiteProfile }

func (s *siteProfileFetcher) Scope() data.FetchScope { return data.ScopeSite }

func (s *siteProfileFetcher) Fetch(_ context.Context, _ site.Route, _ map[string]string, f *fetcher.Fetcher) (any, error) {
	p := f.Profile()
	if p == nil {
		return nil, errors.New("site profile not available: SetProfile was not called")
	}
	return p, nil
}

func init() {
	fetcher.RegisterDataFetcher(&siteProfileFetcher{})
}
