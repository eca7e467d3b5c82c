package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"sitecheck/internal/rules"
)

// Console formats.
const (
	ConsoleText   = "text"
	ConsoleJSON   = FormatJSON
	ConsoleNDJSON = FormatNDJSON
)

var statusColors = map[rules.Status]*color.Color{
	rules.StatusPass:    color.New(color.FgGreen),
	rules.StatusFail:    color.New(color.FgRed, color.Bold),
	rules.StatusSkipped: color.New(color.FgYellow),
	rules.StatusError:   color.New(color.FgMagenta, color.Bold),
}

func colorStatus(s rules.Status) string {
	label := "[" + string(s) + "]"
	if c, ok := statusColors[s]; ok {
		return c.Sprint(label)
	}
	return label
}

// ConsoleSink prints results for a human (text) or a pipe (json, ndjson).
// Text mode ends with a one-line summary.
type ConsoleSink struct {
	writer          io.Writer
	format          string
	mu              sync.Mutex
	results         []rules.Result
	counts          rules.Counts
	allowedStatuses map[string]bool
}

func NewConsoleSink(w io.Writer, format string, filterStatuses []string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = ConsoleText
	}

	s := &ConsoleSink{
		writer: w,
		format: format,
	}
	if len(filterStatuses) > 0 {
		s.allowedStatuses = make(map[string]bool)
		for _, st := range filterStatuses {
			s.allowedStatuses[strings.ToUpper(st)] = true
		}
	}
	return s
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(v)
}

func (s *ConsoleSink) writeLocked(v any) error {
	if r, ok := v.(rules.Result); ok {
		s.counts.Add(r.Status)
		if len(s.allowedStatuses) > 0 && !s.allowedStatuses[string(r.Status)] {
			return nil
		}
	}

	switch s.format {
	case ConsoleJSON:
		if r, ok := v.(rules.Result); ok {
			s.results = append(s.results, r)
		}
		return nil
	case ConsoleNDJSON:
		return encodeStreamLine(s.writer, v)
	case ConsoleText:
		r, ok := v.(rules.Result)
		if !ok {
			return nil
		}
		if _, err := fmt.Fprintln(s.writer, formatTextLine(r)); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

// formatTextLine renders "[STATUS] route: rule - message (selector)".
func formatTextLine(r rules.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s", colorStatus(r.Status), r.Route, r.RuleID)
	if r.Message != "" {
		fmt.Fprintf(&b, " - %s", r.Message)
	}
	if r.Selector != "" && r.Status != rules.StatusPass {
		fmt.Fprintf(&b, " (%s)", r.Selector)
	}
	return b.String()
}

// SummaryLine renders the closing tally printed in text mode.
func SummaryLine(c rules.Counts) string {
	return fmt.Sprintf("%d results: %d passed, %d failed, %d skipped, %d errors",
		c.Total(), c.Pass, c.Fail, c.Skipped, c.Error)
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case ConsoleJSON:
		return encodeAggregate(s.writer, s.results)
	case ConsoleText:
		if s.counts.Total() == 0 {
			return nil
		}
		_, err := fmt.Fprintf(s.writer, "\n%s\n", SummaryLine(s.counts))
		return err
	case ConsoleNDJSON:
		return nil
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}
