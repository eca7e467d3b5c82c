package fetcher

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// MemoStats counts how dependency requests were served during a run.
type MemoStats struct {
	Entries int64 // values held
	Fetches int64 // provider calls that ran
	Hits    int64 // requests answered from a held value
	Shared  int64 // requests that joined an in-flight provider call
}

// memo holds successful dependency values for the lifetime of a run and
// collapses concurrent requests for the same key into one provider call.
// Failed calls are not held, so a later request retries. A caller whose ctx
// ends stops waiting, but the flight keeps running for the other callers.
type memo struct {
	flights singleflight.Group
	values  sync.Map

	entries atomic.Int64
	fetches atomic.Int64
	hits    atomic.Int64
	shared  atomic.Int64
}

func (m *memo) do(ctx context.Context, key string, fn func() (any, error)) (any, error) {
	if v, ok := m.values.Load(key); ok {
		m.hits.Add(1)
		return v, nil
	}

	ch := m.flights.DoChan(key, func() (any, error) {
		// A flight that finished between Load and DoChan has already stored its value.
		if v, ok := m.values.Load(key); ok {
			m.hits.Add(1)
			return v, nil
		}
		m.fetches.Add(1)
		v, err := fn()
		if err != nil {
			return nil, err
		}
		if _, loaded := m.values.LoadOrStore(key, v); !loaded {
			m.entries.Add(1)
		}
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			m.shared.Add(1)
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *memo) stats() MemoStats {
	return MemoStats{
		Entries: m.entries.Load(),
		Fetches: m.fetches.Load(),
		Hits:    m.hits.Load(),
		Shared:  m.shared.Load(),
	}
}
