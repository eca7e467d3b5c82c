package providers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"sitecheck/internal/data"
	"sitecheck/internal/data/models"
	"sitecheck/internal/fetcher"
	"sitecheck/internal/page"
	"sitecheck/internal/site"
)

// linkProbeFetcher requests a single internal href. Transport failures and
// timeouts are recorded on the probe rather than returned, so one unreachable
// link reads as a broken link instead of an evaluation error.
type linkProbeFetcher struct{}

func (l *linkProbeFetcher) Key() data.DependencyKey { return data.DepSiteLinkProbe }

func (l *linkProbeFetcher) Scope() data.FetchScope { return data.ScopeSite }

func (l *linkProbeFetcher) Fetch(ctx context.Context, _ site.Route, params map[string]string, f *fetcher.Fetcher) (any, error) {
	href := strings.TrimSpace(params["href"])
	if !strings.HasPrefix(href, "/") {
		return nil, errors.New("link probe: href param must be root-relative")
	}

	target, err := page.ResolveURL(f.BaseURL(), href)
	if err != nil {
		return nil, err
	}
	probe := models.LinkProbe{Href: href, URL: target}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client().Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		probe.Err = err.Error()
		return probe, nil
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	probe.Status = resp.StatusCode
	return probe, nil
}

func init() {
	fetcher.RegisterDataFetcher(&linkProbeFetcher{})
}
