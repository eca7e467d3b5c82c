package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sitecheck/internal/rules"
)

func writeReport(t *testing.T, items ...any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.md")
	s, err := NewReportSink(path)
	if err != nil {
		t.Fatalf("NewReportSink() error: %v", err)
	}
	s.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	for _, it := range items {
		if err := s.Write(it); err != nil {
			t.Fatalf("Write() error: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	return string(b)
}

func TestMarkdownReportContract(t *testing.T) {
	out := writeReport(t,
		Event{Type: EventRunStarted, BaseURL: "http://localhost:4321", Profile: "threadmark"},
		Event{Type: EventRouteStarted, Route: "/"},
		Event{Type: EventRouteStarted, Route: "/eu-merchant"},
		rules.Result{Route: "/", RuleID: "route-available", Category: rules.CategoryAvailability, Status: rules.StatusPass},
		rules.Result{
			Route: "/eu-merchant", RuleID: "hero-cta-target", Category: rules.CategoryStructural,
			Status: rules.StatusFail, Message: "hero CTA points to #waitlist, want #calendar",
			Selector: ".hero .btn-primary", Evidence: map[string]string{"href": "#waitlist"},
		},
		rules.Result{Route: "/eu-merchant", RuleID: "readable-width", Category: rules.CategoryVisualPolicy, Status: rules.StatusSkipped, Message: "layout unavailable"},
		rules.Result{Route: "/", RuleID: "readable-width", Category: rules.CategoryVisualPolicy, Status: rules.StatusSkipped, Message: "layout unavailable"},
		rules.Result{Route: "/", RuleID: "internal-links-resolve", Category: rules.CategoryLinkIntegrity, Status: rules.StatusError, Message: "dependency failed"},
		Event{Type: EventRunFinished, ExitCode: 2},
	)

	required := []string{
		"# Site Check Report",
		"http://localhost:4321",
		"threadmark",
		"## Summary",
		"```mermaid",
		"pie",
		"## Results by Category",
		"link-integrity",
		"## Failures",
		"### /eu-merchant",
		"hero-cta-target",
		".hero .btn-primary",
		"href: #waitlist",
		"## Skipped",
		"**readable-width**: /, /eu-merchant (layout unavailable)",
		"## Errors",
		"**internal-links-resolve**: /",
		"## Rules Evaluated",
		"2026-10-19T09:00:00Z",
	}
	for _, want := range required {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
	if t.Failed() {
		t.Logf("report:\n%s", out)
	}

	if strings.Index(out, "## Failures") > strings.Index(out, "## Skipped") {
		t.Fatal("failures must come before skipped checks")
	}
}

func TestMarkdownReport_AllPassing(t *testing.T) {
	out := writeReport(t,
		rules.Result{Route: "/", RuleID: "route-available", Category: rules.CategoryAvailability, Status: rules.StatusPass},
		Event{Type: EventRunFinished},
	)
	for _, want := range []string{"All checks passed.", "No failures.", "No checks were skipped.", "No checks errored."} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}

func TestMarkdownReport_EmptyRun(t *testing.T) {
	out := writeReport(t)
	if !strings.Contains(out, "No checks were evaluated.") || strings.Contains(out, "```mermaid") {
		t.Fatalf("unexpected empty report:\n%s", out)
	}
}

func TestFormatRouteList(t *testing.T) {
	routes := []string{"/a", "/b", "/c", "/d", "/e", "/f", "/g"}
	if got := formatRouteList(routes, 5); got != "/a, /b, /c, /d, /e, +2 more" {
		t.Fatalf("formatRouteList() = %q", got)
	}
	if got := formatRouteList(routes[:2], 5); got != "/a, /b" {
		t.Fatalf("formatRouteList() = %q", got)
	}
}

func TestNewReportSink_RequiresPath(t *testing.T) {
	if _, err := NewReportSink(""); err == nil {
		t.Fatal("expected error")
	}
}
