package output

import (
	"fmt"
	"io"
	"sync"

	"sitecheck/internal/rules"
)

// Structured output formats shared by the emit and file sinks.
const (
	FormatJSON   = "json"
	FormatNDJSON = "ndjson"
)

// EmitSink writes structured output to a stream (usually stderr when the
// console is busy with text).
//
//   - json: aggregates results and writes a single JSON array on Close
//   - ndjson: streams Event values, one object per line
type EmitSink struct {
	writer  io.Writer
	format  string
	mu      sync.Mutex
	results []rules.Result
}

func NewEmitSink(w io.Writer, format string) (*EmitSink, error) {
	if w == nil {
		return nil, fmt.Errorf("emit sink writer must not be nil")
	}
	if format != FormatJSON && format != FormatNDJSON {
		return nil, fmt.Errorf("unsupported emit format: %s", format)
	}
	return &EmitSink{writer: w, format: format}, nil
}

func (s *EmitSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == FormatNDJSON {
		return encodeStreamLine(s.writer, v)
	}
	if r, ok := v.(rules.Result); ok {
		s.results = append(s.results, r)
	}
	return nil
}

func (s *EmitSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == FormatJSON {
		return encodeAggregate(s.writer, s.results)
	}
	return nil
}
