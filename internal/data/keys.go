package data

const (
	// DepPageSnapshot represents the rendered page for a route: status, title,
	// DOM and, when the renderer supports it, layout annotations.
	DepPageSnapshot DependencyKey = "page.snapshot"

	// DepPageLinkStatus represents the resolved HTTP status of every internal
	// link (href beginning with "/") found on the route's snapshot.
	DepPageLinkStatus DependencyKey = "page.link_status"

	// DepSiteLinkProbe represents a single independent GET of an internal href.
	//
	// It is site scoped and keyed by the "href" param, so a link shared by
	// several routes is requested once per run.
	DepSiteLinkProbe DependencyKey = "site.link_probe"

	// DepSiteProfile represents the site profile for the current run (conversion
	// goals, calendar URL, waitlist anchor).
	//
	// It is injected by the engine (via Fetcher.SetProfile) rather than fetched.
	DepSiteProfile DependencyKey = "site.profile"
)

// Priority returns the fetch priority for a dependency key (lower is higher priority).
func Priority(key DependencyKey) int {
	switch key {
	case DepSiteProfile, DepPageSnapshot:
		return 0
	case DepPageLinkStatus:
		return 1
	default:
		return 2
	}
}
