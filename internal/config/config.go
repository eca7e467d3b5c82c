package config

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"sitecheck/internal/page"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields that affect check
	// behavior, keep these in sync:
	// - CLI flags in internal/cli/check.go
	// - the run.started event fields in internal/engine/engine.go
	Target  Target
	Rules   Rules
	Output  Output
	Runtime Runtime
	History History
}

type Target struct {
	// BaseURL is where the site under test is served (see --base-url).
	// Must be an absolute http(s) URL. Empty falls back to the profile's baseURL.
	BaseURL string

	// Profile is a YAML site profile path (see --profile). Empty uses the
	// built-in reference profile.
	Profile string

	// Routes narrows the declared routes by path.Match pattern (see --routes).
	// Values may be provided as repeated flags and/or comma-separated lists.
	Routes []string

	// ExcludeRoutes drops declared routes by path.Match pattern (see --exclude-routes).
	ExcludeRoutes []string

	// DryRun resolves routes and rules and prints the check plan without
	// rendering anything (see --dry-run).
	DryRun bool
}

type Rules struct {
	// Selector selects which rules to run.
	// Empty means all rules; otherwise a comma-separated list of rule IDs or
	// categories (see --rules).
	Selector string

	// Set provides per-rule option overrides from the CLI.
	// Entries are of the form ruleID.option=value (repeatable; comma-separated accepted; see --set).
	Set []string
}

type Output struct {
	// ConsoleFormat controls the human-facing console sink format (see --console-format).
	// Allowed values: text, json, ndjson.
	ConsoleFormat string

	// ConsoleFilterStatus filters console output by result status (see --console-filter-status).
	// Allowed values: PASS, FAIL, SKIPPED, ERROR.
	ConsoleFilterStatus []string

	// Report writes a Markdown report to this path (see --report).
	Report string

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out file extension.
	OutFormat string

	// Emit writes an additional structured event stream to stdout (see --emit).
	// Allowed values: json, ndjson.
	Emit []string

	// NoConsole suppresses the console sink (see --no-console).
	// Use with --emit/--out/--report for machine-readable output.
	NoConsole bool
}

type Runtime struct {
	// Concurrency is the number of routes rendered and evaluated at once (see --concurrency).
	// Must be >= 1.
	Concurrency int

	// Timeout bounds the whole run (see --timeout). Must be > 0.
	Timeout time.Duration

	// PageTimeout bounds each page capture (see --page-timeout). Must be > 0.
	PageTimeout time.Duration

	// Renderer selects how pages are captured (see --renderer).
	// Allowed values: browser, http.
	Renderer string

	// BrowserURL connects to a running Chrome over DevTools instead of
	// launching one (see --browser-url).
	BrowserURL string

	// BrowserBin overrides the Chrome binary (see --browser-bin).
	BrowserBin string

	// Viewport is the emulated window size as WIDTHxHEIGHT (see --viewport).
	Viewport string

	// Token is sent as a bearer token to protected preview deployments (see --token).
	Token string

	// Verbose enables debug logging and full dependency error messages.
	Verbose bool
}

type History struct {
	// Enabled records the run in the history database (see --history).
	Enabled bool

	// DBPath overrides the history database location (see --history-db).
	DBPath string
}

func New() *Config {
	return &Config{
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Concurrency: 4,
			Timeout:     10 * time.Minute,
			PageTimeout: 30 * time.Second,
			Renderer:    page.KindBrowser,
			Viewport:    page.DefaultViewport.String(),
		},
	}
}

func (c *Config) Validate() error {
	// Normalize comma-delimited list inputs.
	c.Target.Routes = splitCommaList(c.Target.Routes)
	c.Target.ExcludeRoutes = splitCommaList(c.Target.ExcludeRoutes)
	c.Rules.Set = splitCommaList(c.Rules.Set)
	c.Output.ConsoleFilterStatus = splitCommaList(c.Output.ConsoleFilterStatus)

	// Target validation
	if c.Target.BaseURL != "" {
		u, err := normalizeBaseURL(c.Target.BaseURL)
		if err != nil {
			return fmt.Errorf("invalid --base-url value: %w", err)
		}
		c.Target.BaseURL = u
	}
	for _, p := range append(append([]string{}, c.Target.Routes...), c.Target.ExcludeRoutes...) {
		if _, err := path.Match(p, "/"); err != nil {
			return fmt.Errorf("invalid route pattern %q: %w", p, err)
		}
	}

	// Output validation
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		return errors.New("--console-format must be one of: text, json, ndjson")
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "json" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json, ndjson)", c.Output.ConsoleFormat)
	}

	for i, s := range c.Output.ConsoleFilterStatus {
		v := strings.ToUpper(strings.TrimSpace(s))
		if v != "PASS" && v != "FAIL" && v != "SKIPPED" && v != "ERROR" {
			return fmt.Errorf("unsupported --console-filter-status value: %s (must be one of: PASS, FAIL, SKIPPED, ERROR)", s)
		}
		c.Output.ConsoleFilterStatus[i] = v
	}

	for _, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v == "" {
			return errors.New("--emit must be one of: json, ndjson")
		}
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", v)
		}
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson":
				c.Output.OutFormat = "ndjson"
			default:
				if ext == "" {
					return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
				}
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else {
			if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
				return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
			}
		}
	}

	// Runtime validation
	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}
	if c.Runtime.PageTimeout <= 0 {
		return errors.New("--page-timeout must be > 0")
	}

	c.Runtime.Renderer = normalizeEnumValue(c.Runtime.Renderer)
	if c.Runtime.Renderer == "" {
		c.Runtime.Renderer = page.KindBrowser
	}
	if c.Runtime.Renderer != page.KindBrowser && c.Runtime.Renderer != page.KindHTTP {
		return fmt.Errorf("unsupported --renderer: %s (must be one of: browser, http)", c.Runtime.Renderer)
	}
	if c.Runtime.Renderer == page.KindHTTP && (c.Runtime.BrowserURL != "" || c.Runtime.BrowserBin != "") {
		return errors.New("--browser-url and --browser-bin require --renderer browser")
	}

	if c.Runtime.Viewport == "" {
		c.Runtime.Viewport = page.DefaultViewport.String()
	}
	vp, err := page.ParseViewport(c.Runtime.Viewport)
	if err != nil {
		return fmt.Errorf("invalid --viewport value: %w", err)
	}
	c.Runtime.Viewport = vp.String()

	// History validation
	if c.History.DBPath != "" && !c.History.Enabled {
		c.History.Enabled = true
	}

	// Ruleset option syntax validation (rule.option=value)
	if len(c.Rules.Set) > 0 {
		if _, err := ParseRuleOptionAssignments(c.Rules.Set); err != nil {
			return err
		}
	}

	return nil
}

// ViewportSize returns the parsed viewport. Validate must have succeeded.
func (c *Config) ViewportSize() page.Viewport {
	vp, err := page.ParseViewport(c.Runtime.Viewport)
	if err != nil {
		return page.DefaultViewport
	}
	return vp
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// normalizeBaseURL accepts "host:port" shorthands and strips trailing slashes.
func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%q: missing host", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("%q: must not carry a query or fragment", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// ParseRuleOptionAssignments parses values of the form "ruleID.option=value".
//
// Notes:
// - Entries may be provided via repeated flags and/or comma-delimited lists.
// - This validates syntax only (no validation of rule IDs or option names).
// - Empty values are allowed ("rule.option=").
// - The option name may itself contain dots ("rule.allow.routes=/thanks").
func ParseRuleOptionAssignments(values []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string)
	for _, raw := range splitCommaList(values) {
		left, value, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --set entry %q: expected rule.option=value", raw)
		}
		value = strings.TrimSpace(value)
		ruleID, opt, ok := strings.Cut(strings.TrimSpace(left), ".")
		if !ok {
			return nil, fmt.Errorf("invalid --set entry %q: expected rule.option=value", raw)
		}
		ruleID = strings.TrimSpace(ruleID)
		opt = strings.TrimSpace(opt)
		if ruleID == "" || opt == "" {
			return nil, fmt.Errorf("invalid --set entry %q: expected non-empty rule and option", raw)
		}
		if _, ok := out[ruleID]; !ok {
			out[ruleID] = make(map[string]string)
		}
		out[ruleID][opt] = value
	}
	return out, nil
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
