package output

import (
	"encoding/json"
	"io"

	"sitecheck/internal/rules"
)

// Lifecycle event types streamed in NDJSON mode.
const (
	EventRunStarted    = "run.started"
	EventRouteStarted  = "route.started"
	EventRuleResult    = "rule.result"
	EventRouteFinished = "route.finished"
	EventRunFinished   = "run.finished"
)

// Event is a lifecycle record for NDJSON streaming output.
//
// JSON mode remains an aggregate of rules.Result values; NDJSON sinks write
// one Event per line.
type Event struct {
	Type  string `json:"type"`
	Route string `json:"route,omitempty"`
	*rules.Result
	BaseURL  string `json:"base_url,omitempty"`
	Profile  string `json:"profile,omitempty"`
	Routes   int    `json:"routes,omitempty"`
	Rules    int    `json:"rules,omitempty"`
	ExitCode int    `json:"exit_code,omitempty"`

	// DurationMs is the dependency fetch time of a finished route.
	DurationMs int64 `json:"duration_ms,omitempty"`
}

func eventFromResult(r rules.Result) Event {
	return Event{Type: EventRuleResult, Route: r.Route, Result: &r}
}

type flusher interface {
	Flush() error
}

func flushIfPossible(w io.Writer) error {
	f, ok := w.(flusher)
	if !ok {
		return nil
	}
	return f.Flush()
}

// encodeStreamLine writes v as one NDJSON line. Results are wrapped as
// rule.result events; anything else is ignored.
func encodeStreamLine(w io.Writer, v any) error {
	var e Event
	switch t := v.(type) {
	case Event:
		e = t
	case rules.Result:
		e = eventFromResult(t)
	default:
		return nil
	}
	if err := json.NewEncoder(w).Encode(e); err != nil {
		return err
	}
	return flushIfPossible(w)
}

// encodeAggregate writes results as one indented JSON array.
func encodeAggregate(w io.Writer, results []rules.Result) error {
	if results == nil {
		results = []rules.Result{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		return err
	}
	return flushIfPossible(w)
}
