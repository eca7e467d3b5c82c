package data

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DataContext provides fetched page data to rules.
type DataContext interface {
	Get(key DependencyKey) (any, bool)
}

var (
	ErrMissing     = errors.New("dependency missing")
	ErrNil         = errors.New("dependency is nil")
	ErrInvalidType = errors.New("invalid dependency type")
)

// Lookup reads key from dc and asserts its type.
func Lookup[T any](dc DataContext, key DependencyKey) (T, error) {
	var zero T
	if dc == nil {
		return zero, ErrMissing
	}
	val, ok := dc.Get(key)
	if !ok {
		return zero, ErrMissing
	}
	if val == nil {
		return zero, ErrNil
	}
	typed, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s holds %T", ErrInvalidType, key, val)
	}
	return typed, nil
}

// MapDataContext is a read-only DataContext over a map. A nil map is an
// empty context.
type MapDataContext struct {
	data map[DependencyKey]any
}

func NewMapDataContext(data map[DependencyKey]any) *MapDataContext {
	return &MapDataContext{data: data}
}

func (c *MapDataContext) Get(key DependencyKey) (any, bool) {
	if c == nil {
		return nil, false
	}
	val, ok := c.data[key]
	return val, ok
}

// AuditedDataContext records every key read through it, so the engine can
// reject rules that read data they never declared.
type AuditedDataContext struct {
	inner DataContext

	mu   sync.Mutex
	read map[DependencyKey]struct{}
}

func NewAuditedDataContext(inner DataContext) *AuditedDataContext {
	return &AuditedDataContext{inner: inner, read: make(map[DependencyKey]struct{})}
}

func (c *AuditedDataContext) Get(key DependencyKey) (any, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	c.read[key] = struct{}{}
	c.mu.Unlock()
	if c.inner == nil {
		return nil, false
	}
	return c.inner.Get(key)
}

// Accessed returns the keys read so far, sorted.
func (c *AuditedDataContext) Accessed() []DependencyKey {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]DependencyKey, 0, len(c.read))
	for k := range c.read {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Undeclared returns the accessed keys missing from declared, sorted.
func (c *AuditedDataContext) Undeclared(declared []DependencyKey) []DependencyKey {
	allowed := make(map[DependencyKey]struct{}, len(declared))
	for _, d := range declared {
		allowed[d] = struct{}{}
	}
	var out []DependencyKey
	for _, k := range c.Accessed() {
		if _, ok := allowed[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}
