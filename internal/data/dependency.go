package data

// DependencyKey uniquely identifies a page data dependency.
type DependencyKey string

// DependencyRequest represents a request for a specific dependency with optional parameters.
type DependencyRequest struct {
	Key    DependencyKey
	Params map[string]string
}

// FetchScope controls how widely a fetched value is shared.
type FetchScope string

const (
	// ScopeRoute values are cached per route (e.g. a page snapshot).
	ScopeRoute FetchScope = "route"

	// ScopeSite values are shared by every route of a run (e.g. the status of
	// one internal URL, however many pages link to it).
	ScopeSite FetchScope = "site"
)
