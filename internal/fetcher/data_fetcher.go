package fetcher

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"sitecheck/internal/data"
	"sitecheck/internal/site"
)

// DataFetcher produces the value for one dependency key. Providers register
// themselves from init in the providers package.
type DataFetcher interface {
	Key() data.DependencyKey
	Scope() data.FetchScope

	// Fetch may call f.Fetch for the dependencies it builds on; the
	// fetcher rejects cycles.
	Fetch(ctx context.Context, route site.Route, params map[string]string, f *Fetcher) (any, error)
}

type providerRegistry struct {
	mu        sync.RWMutex
	providers map[data.DependencyKey]DataFetcher
}

var providers = &providerRegistry{providers: make(map[data.DependencyKey]DataFetcher)}

func (r *providerRegistry) register(df DataFetcher) error {
	if df == nil {
		return fmt.Errorf("data fetcher is nil")
	}
	key := df.Key()
	if key == "" {
		return fmt.Errorf("data fetcher key is empty")
	}
	if s := df.Scope(); s != data.ScopeRoute && s != data.ScopeSite {
		return fmt.Errorf("data fetcher %s has unknown scope %q", key, s)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[key]; exists {
		return fmt.Errorf("data fetcher %s already registered", key)
	}
	r.providers[key] = df
	return nil
}

func (r *providerRegistry) resolve(key data.DependencyKey) (DataFetcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	df, ok := r.providers[key]
	return df, ok
}

func (r *providerRegistry) keys() []data.DependencyKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]data.DependencyKey, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RegisterDataFetcher adds a provider. It panics on an invalid or duplicate
// provider, which is a programming error caught at init.
func RegisterDataFetcher(df DataFetcher) {
	if err := providers.register(df); err != nil {
		panic(err)
	}
}

func ResolveDataFetcher(key data.DependencyKey) (DataFetcher, bool) {
	return providers.resolve(key)
}

// RegisteredKeys returns the dependency keys that have a provider, sorted.
func RegisteredKeys() []data.DependencyKey {
	return providers.keys()
}
