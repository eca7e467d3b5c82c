package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"sitecheck/internal/data"
	"sitecheck/internal/data/models"
	"sitecheck/internal/fetcher"
	"sitecheck/internal/page"
	"sitecheck/internal/site"
)

// Probes of one route run concurrently, bounded by this limit.
const linkProbeConcurrency = 8

type pageLinkStatusFetcher struct{}

func (p *pageLinkStatusFetcher) Key() data.DependencyKey {
	return data.DepPageLinkStatus
}

func (p *pageLinkStatusFetcher) Scope() data.FetchScope {
	return data.ScopeRoute
}

func (p *pageLinkStatusFetcher) Fetch(ctx context.Context, route site.Route, _ map[string]string, f *fetcher.Fetcher) (any, error) {
	val, err := f.Fetch(ctx, route, data.DepPageSnapshot, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve page snapshot: %w", err)
	}
	snap, ok := val.(*page.Snapshot)
	if !ok || snap == nil {
		return nil, fmt.Errorf("failed to resolve page snapshot: unexpected type %T for %s", val, data.DepPageSnapshot)
	}

	hrefs := InternalLinks(snap)
	out := &models.LinkStatus{Route: route.Path, Probes: make([]models.LinkProbe, len(hrefs))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(linkProbeConcurrency)
	for i, href := range hrefs {
		i, href := i, href
		g.Go(func() error {
			v, err := f.Fetch(gctx, route, data.DepSiteLinkProbe, map[string]string{"href": href})
			if err != nil {
				return fmt.Errorf("probe %s: %w", href, err)
			}
			probe, ok := v.(models.LinkProbe)
			if !ok {
				return fmt.Errorf("probe %s: unexpected type %T", href, v)
			}
			out.Probes[i] = probe
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// InternalLinks returns the distinct root-relative hrefs on the page, sorted,
// with fragments removed. Protocol-relative "//host" links are external.
func InternalLinks(snap *page.Snapshot) []string {
	seen := make(map[string]struct{})
	snap.Find(`a[href^="/"]`).Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if strings.HasPrefix(href, "//") {
			return
		}
		if i := strings.IndexByte(href, '#'); i >= 0 {
			href = href[:i]
		}
		if href == "" {
			return
		}
		seen[href] = struct{}{}
	})
	out := make([]string, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

func init() {
	fetcher.RegisterDataFetcher(&pageLinkStatusFetcher{})
}
