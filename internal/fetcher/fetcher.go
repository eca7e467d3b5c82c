package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"sitecheck/internal/data"
	"sitecheck/internal/page"
	"sitecheck/internal/site"
)

// DefaultPageTimeout bounds a single page capture.
const DefaultPageTimeout = 30 * time.Second

type Fetcher struct {
	renderer    page.Renderer
	client      *http.Client
	baseURL     string
	pageTimeout time.Duration
	profile     *site.Profile
	memo        *memo
}

type fetchChainKey struct{}

func NewFetcher(renderer page.Renderer, client *http.Client, baseURL string) *Fetcher {
	return &Fetcher{
		renderer:    renderer,
		client:      client,
		baseURL:     baseURL,
		pageTimeout: DefaultPageTimeout,
		memo:        &memo{},
	}
}

func (f *Fetcher) Renderer() page.Renderer {
	return f.renderer
}

func (f *Fetcher) Client() *http.Client {
	return f.client
}

func (f *Fetcher) BaseURL() string {
	return f.baseURL
}

// SetPageTimeout overrides DefaultPageTimeout. Non-positive values are ignored.
func (f *Fetcher) SetPageTimeout(d time.Duration) {
	if d > 0 {
		f.pageTimeout = d
	}
}

func (f *Fetcher) PageTimeout() time.Duration {
	return f.pageTimeout
}

// SetProfile injects the site profile for the current run.
// This must be called by the engine before rule evaluation begins.
func (f *Fetcher) SetProfile(p *site.Profile) {
	f.profile = p
}

// Profile returns the injected profile, or nil if SetProfile has not been called.
func (f *Fetcher) Profile() *site.Profile {
	return f.profile
}

func (f *Fetcher) Fetch(ctx context.Context, route site.Route, key data.DependencyKey, params map[string]string) (any, error) {
	if ctx == nil {
		return nil, fmt.Errorf("Fetch: nil context")
	}
	if f == nil {
		return nil, fmt.Errorf("Fetch: nil Fetcher")
	}
	if f.renderer == nil {
		return nil, fmt.Errorf("Fetch: nil renderer (use NewFetcher)")
	}
	if f.client == nil {
		return nil, fmt.Errorf("Fetch: nil HTTP client (use NewFetcher)")
	}
	if f.memo == nil {
		return nil, fmt.Errorf("Fetch: nil memo (use NewFetcher)")
	}
	if key == "" {
		return nil, fmt.Errorf("Fetch: empty dependency key")
	}
	if route.Path == "" {
		return nil, fmt.Errorf("Fetch: route path is required")
	}

	fetchImpl, ok := ResolveDataFetcher(key)
	if !ok {
		return nil, fmt.Errorf("unsupported dependency key: %s", key)
	}

	// Cache key (must be deterministic)
	flightKey, err := makeFlightKey(route, fetchImpl.Scope(), key, params)
	if err != nil {
		return nil, err
	}

	ctx, err = withFetchChain(ctx, flightKey)
	if err != nil {
		return nil, err
	}

	return f.memo.do(ctx, flightKey, func() (any, error) {
		fetchCtx := ctx
		if fetchImpl.Scope() == data.ScopeSite {
			// Site-scoped values are shared by every route: only the page
			// timeout bounds them, never the requesting route's cancellation.
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), f.pageTimeout)
			defer cancel()
		}
		return fetchImpl.Fetch(fetchCtx, route, params, f)
	})
}

// Stats reports how dependency requests have been served so far.
func (f *Fetcher) Stats() MemoStats {
	if f == nil || f.memo == nil {
		return MemoStats{}
	}
	return f.memo.stats()
}

func withFetchChain(ctx context.Context, flightKey string) (context.Context, error) {
	chain := getFetchChain(ctx)
	for _, existing := range chain {
		if existing == flightKey {
			return nil, fmt.Errorf("Fetch: dependency cycle detected: %s -> %s", strings.Join(chain, " -> "), flightKey)
		}
	}

	updated := make([]string, 0, len(chain)+1)
	updated = append(updated, chain...)
	updated = append(updated, flightKey)
	return context.WithValue(ctx, fetchChainKey{}, updated), nil
}

func getFetchChain(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	v := ctx.Value(fetchChainKey{})
	chain, ok := v.([]string)
	if !ok {
		return nil
	}
	return chain
}

func makeFlightKey(route site.Route, scope data.FetchScope, key data.DependencyKey, params map[string]string) (string, error) {
	var prefix string
	switch scope {
	case data.ScopeSite:
		prefix = "site"
	case data.ScopeRoute:
		if route.Path == "" {
			return "", fmt.Errorf("Fetch: route path is required for route-scoped dependency: %s", key)
		}
		prefix = "route " + route.Path
	default:
		return "", fmt.Errorf("Fetch: unknown fetch scope %q for dependency: %s", scope, key)
	}

	return prefix + ":" + string(key) + ":" + stableParamsKey(params), nil
}

func stableParamsKey(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, "&")
}
