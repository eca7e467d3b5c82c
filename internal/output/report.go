package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"sitecheck/internal/rules"
)

// ReportSink buffers a run and writes a Markdown report when closed.
type ReportSink struct {
	path string
	file *os.File
	now  func() time.Time

	mu           sync.Mutex
	results      []rules.Result
	routes       map[string]struct{}
	baseURL      string
	profile      string
	exitCode     int
	haveExitCode bool
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}
	f, err := createFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}
	return &ReportSink{
		path:   path,
		file:   f,
		now:    time.Now,
		routes: make(map[string]struct{}),
	}, nil
}

func (s *ReportSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch t := v.(type) {
	case rules.Result:
		s.results = append(s.results, t)
		if t.Route != "" {
			s.routes[t.Route] = struct{}{}
		}
	case Event:
		if t.Route != "" {
			s.routes[t.Route] = struct{}{}
		}
		switch t.Type {
		case EventRunStarted:
			s.baseURL = t.BaseURL
			s.profile = t.Profile
		case EventRunFinished:
			s.exitCode = t.ExitCode
			s.haveExitCode = true
		}
	}
	return nil
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.render(s.file)
	if closeErr := s.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// reportData is the aggregated view a report renders from.
type reportData struct {
	counts     rules.Counts
	byCategory map[rules.Category]*rules.Counts
	byRoute    map[string][]rules.Result
	routes     []string
	fails      []rules.Result
	skips      []rules.Result
	errs       []rules.Result
	ruleIDs    []string
}

func (s *ReportSink) aggregate() reportData {
	d := reportData{
		byCategory: make(map[rules.Category]*rules.Counts),
		byRoute:    make(map[string][]rules.Result),
	}
	seenRules := make(map[string]struct{})
	for _, r := range s.results {
		d.counts.Add(r.Status)
		c, ok := d.byCategory[r.Category]
		if !ok {
			c = &rules.Counts{}
			d.byCategory[r.Category] = c
		}
		c.Add(r.Status)
		if r.RuleID != "" {
			seenRules[r.RuleID] = struct{}{}
		}
		switch r.Status {
		case rules.StatusFail:
			d.fails = append(d.fails, r)
			d.byRoute[r.Route] = append(d.byRoute[r.Route], r)
		case rules.StatusSkipped:
			d.skips = append(d.skips, r)
		case rules.StatusError:
			d.errs = append(d.errs, r)
		}
	}
	for route := range s.routes {
		d.routes = append(d.routes, route)
	}
	sort.Strings(d.routes)
	for id := range seenRules {
		d.ruleIDs = append(d.ruleIDs, id)
	}
	sort.Strings(d.ruleIDs)
	for _, rs := range d.byRoute {
		sort.Slice(rs, func(i, j int) bool { return rs[i].RuleID < rs[j].RuleID })
	}
	return d
}

func (s *ReportSink) render(w io.Writer) error {
	d := s.aggregate()
	md := markdown.NewMarkdown(w)

	s.writeHeader(md, d)
	writeSummary(md, d)
	writeCategories(md, d)
	writeFailures(md, d)
	writeGrouped(md, "Skipped", "No checks were skipped.", d.skips)
	writeGrouped(md, "Errors", "No checks errored.", d.errs)

	md.H2("Rules Evaluated")
	md.PlainText("")
	if len(d.ruleIDs) == 0 {
		md.PlainText("None.")
	} else {
		md.BulletList(d.ruleIDs...)
	}
	md.PlainText("")

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by sitecheck at %s*", s.now().UTC().Format(time.RFC3339))
	return md.Build()
}

func (s *ReportSink) writeHeader(md *markdown.Markdown, d reportData) {
	md.H1("Site Check Report")
	md.PlainText("")

	exit := "-"
	if s.haveExitCode {
		exit = strconv.Itoa(s.exitCode)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Base URL", "Profile", "Routes", "Rules", "Exit Code"},
		Rows: [][]string{{
			orDash(s.baseURL),
			orDash(s.profile),
			strconv.Itoa(len(d.routes)),
			strconv.Itoa(len(d.ruleIDs)),
			exit,
		}},
	})
	md.PlainText("")
}

func writeSummary(md *markdown.Markdown, d reportData) {
	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows: [][]string{
			{string(rules.StatusPass), strconv.Itoa(d.counts.Pass)},
			{string(rules.StatusFail), strconv.Itoa(d.counts.Fail)},
			{string(rules.StatusSkipped), strconv.Itoa(d.counts.Skipped)},
			{string(rules.StatusError), strconv.Itoa(d.counts.Error)},
			{"Total", strconv.Itoa(d.counts.Total())},
		},
	})
	md.PlainText("")

	if d.counts.Total() > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Result Distribution"),
			piechart.WithShowData(true),
		)
		for _, sc := range []struct {
			label string
			n     int
		}{
			{"Pass", d.counts.Pass},
			{"Fail", d.counts.Fail},
			{"Skipped", d.counts.Skipped},
			{"Error", d.counts.Error},
		} {
			if sc.n > 0 {
				chart.LabelAndIntValue(sc.label, uint64(sc.n))
			}
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case d.counts.Error > 0:
		md.Cautionf("%d check(s) could not be evaluated. The run is incomplete.", d.counts.Error)
	case d.counts.Fail > 0:
		md.Warningf("%d check(s) failed across %d route(s).", d.counts.Fail, len(d.byRoute))
	case d.counts.Skipped > 0:
		md.Note("No failures, but some checks were skipped.")
	case d.counts.Total() == 0:
		md.Note("No checks were evaluated.")
	default:
		md.Tip("All checks passed.")
	}
	md.PlainText("")
}

func writeCategories(md *markdown.Markdown, d reportData) {
	md.H2("Results by Category")
	md.PlainText("")
	var rows [][]string
	for _, cat := range rules.Categories() {
		c, ok := d.byCategory[cat]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			string(cat),
			strconv.Itoa(c.Pass),
			strconv.Itoa(c.Fail),
			strconv.Itoa(c.Skipped),
			strconv.Itoa(c.Error),
		})
	}
	if len(rows) == 0 {
		md.PlainText("No results.")
		md.PlainText("")
		return
	}
	md.Table(markdown.TableSet{
		Header: []string{"Category", "Pass", "Fail", "Skipped", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeFailures(md *markdown.Markdown, d reportData) {
	md.H2("Failures")
	md.PlainText("")
	if len(d.fails) == 0 {
		md.PlainText("No failures.")
		md.PlainText("")
		return
	}

	var routes []string
	for route := range d.byRoute {
		routes = append(routes, route)
	}
	sort.Strings(routes)

	for _, route := range routes {
		rs := d.byRoute[route]
		md.H3(route)
		md.PlainText("")

		rows := make([][]string, len(rs))
		for i, r := range rs {
			rows[i] = []string{r.RuleID, escapeCell(orDash(r.Message)), escapeCell(orDash(r.Selector))}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Rule", "Message", "Selector"},
			Rows:   rows,
		})
		md.PlainText("")

		for _, r := range rs {
			if len(r.Evidence) > 0 {
				md.Details(r.RuleID+" evidence", formatEvidence(r.Evidence))
			}
		}
		md.PlainText("")
	}
}

// writeGrouped lists results by rule ID with the affected routes.
func writeGrouped(md *markdown.Markdown, title, empty string, rs []rules.Result) {
	md.H2(title)
	md.PlainText("")
	if len(rs) == 0 {
		md.PlainText(empty)
		md.PlainText("")
		return
	}

	byRule := make(map[string][]string)
	reason := make(map[string]string)
	for _, r := range rs {
		byRule[r.RuleID] = append(byRule[r.RuleID], r.Route)
		if _, ok := reason[r.RuleID]; !ok && r.Message != "" {
			reason[r.RuleID] = r.Message
		}
	}
	ids := make([]string, 0, len(byRule))
	for id := range byRule {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items := make([]string, 0, len(ids))
	for _, id := range ids {
		routes := byRule[id]
		sort.Strings(routes)
		item := fmt.Sprintf("**%s**: %s", id, formatRouteList(routes, 5))
		if msg := reason[id]; msg != "" {
			item += " (" + msg + ")"
		}
		items = append(items, item)
	}
	md.BulletList(items...)
	md.PlainText("")
}

func formatRouteList(routes []string, max int) string {
	if len(routes) <= max {
		return strings.Join(routes, ", ")
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(routes[:max], ", "), len(routes)-max)
}

func formatEvidence(ev map[string]string) string {
	keys := make([]string, 0, len(ev))
	for k := range ev {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = fmt.Sprintf("- %s: %s", k, ev[k])
	}
	return strings.Join(lines, "\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
