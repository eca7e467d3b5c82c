package site

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Goal is the call-to-action type a landing route converts to.
type Goal string

const (
	GoalWaitlist Goal = "waitlist"
	GoalCalendar Goal = "calendar"
)

// FormSpec describes a lead-capture form identified by its name attribute.
type FormSpec struct {
	Name string `yaml:"name"`

	// Fields lists the required input fields. "email" matches input[type=email]
	// or input[name=email]; any other value matches input[name=<field>].
	Fields []string `yaml:"fields"`
}

// Route is a declared route and the assertion group that applies to it.
type Route struct {
	Path string `yaml:"path"`

	// Title is a regular expression the rendered page title must match.
	// Empty means the title is not checked.
	Title string `yaml:"title,omitempty"`

	// Status is the expected HTTP status. Zero means 200.
	Status int `yaml:"status,omitempty"`

	// Audience keys into Profile.ConversionGoals.
	Audience string `yaml:"audience,omitempty"`

	Form *FormSpec `yaml:"form,omitempty"`

	// Readable lists selectors whose rendered width must stay within the
	// readable line-length threshold.
	Readable []string `yaml:"readable,omitempty"`

	// Checks is the assertion group: rule IDs evaluated on this route.
	Checks []string `yaml:"checks"`
}

// ExpectedStatus returns the status the route must answer with.
func (r Route) ExpectedStatus() int {
	if r.Status == 0 {
		return http.StatusOK
	}
	return r.Status
}

// IsProbe reports whether the route is a not-found probe rather than a page.
func (r Route) IsProbe() bool {
	return r.ExpectedStatus() == http.StatusNotFound
}

// HasCheck reports whether ruleID is part of the route's assertion group.
func (r Route) HasCheck(ruleID string) bool {
	for _, c := range r.Checks {
		if c == ruleID {
			return true
		}
	}
	return false
}

// Profile is the full static description of a site: its routes, the
// conversion goals, and the constants the design rules refer to.
type Profile struct {
	Name string `yaml:"name"`

	// BaseURL is used when no --base-url is given.
	BaseURL string `yaml:"baseURL,omitempty"`

	CalendarURL    string `yaml:"calendarURL"`
	WaitlistAnchor string `yaml:"waitlistAnchor"`

	ConversionGoals map[string]Goal `yaml:"conversionGoals"`

	Routes []Route `yaml:"routes"`

	// Options holds per-rule option overrides, keyed by rule ID then option
	// name. They are applied before any --set values.
	Options map[string]map[string]string `yaml:"options,omitempty"`
}

// GoalFor returns the conversion goal configured for an audience.
func (p *Profile) GoalFor(audience string) (Goal, bool) {
	if p == nil || audience == "" {
		return "", false
	}
	g, ok := p.ConversionGoals[audience]
	return g, ok
}

// CalendarHost returns the host part of CalendarURL (e.g. calendly.com).
func (p *Profile) CalendarHost() string {
	if p == nil || p.CalendarURL == "" {
		return ""
	}
	u, err := url.Parse(p.CalendarURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// Route returns the declared route with the given path.
func (p *Profile) Route(path string) (Route, bool) {
	if p == nil {
		return Route{}, false
	}
	for _, r := range p.Routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// SortedRoutes returns a copy of the routes ordered by path.
func (p *Profile) SortedRoutes() []Route {
	if p == nil {
		return nil
	}
	out := make([]Route, len(p.Routes))
	copy(out, p.Routes)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Validate checks the profile for internal consistency.
func (p *Profile) Validate() error {
	if p == nil {
		return fmt.Errorf("profile is nil")
	}
	if len(p.Routes) == 0 {
		return fmt.Errorf("profile %q declares no routes", p.Name)
	}
	seen := make(map[string]struct{}, len(p.Routes))
	for i, r := range p.Routes {
		if !strings.HasPrefix(r.Path, "/") {
			return fmt.Errorf("route %d: path %q must start with /", i, r.Path)
		}
		if _, dup := seen[r.Path]; dup {
			return fmt.Errorf("route %s declared more than once", r.Path)
		}
		seen[r.Path] = struct{}{}
		if r.Title != "" {
			if _, err := regexp.Compile(r.Title); err != nil {
				return fmt.Errorf("route %s: invalid title pattern: %w", r.Path, err)
			}
		}
		if r.Status != 0 && (r.Status < 100 || r.Status > 599) {
			return fmt.Errorf("route %s: invalid status %d", r.Path, r.Status)
		}
		if r.Audience != "" {
			g, ok := p.ConversionGoals[r.Audience]
			if !ok {
				return fmt.Errorf("route %s: audience %q has no conversion goal", r.Path, r.Audience)
			}
			if g != GoalWaitlist && g != GoalCalendar {
				return fmt.Errorf("route %s: unsupported conversion goal %q", r.Path, g)
			}
		}
		if r.Form != nil && (r.Form.Name == "" || len(r.Form.Fields) == 0) {
			return fmt.Errorf("route %s: form needs a name and at least one field", r.Path)
		}
	}
	return nil
}
