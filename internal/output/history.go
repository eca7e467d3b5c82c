package output

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sitecheck/internal/history"
	"sitecheck/internal/rules"
)

// RunRecorder persists a finished run.
type RunRecorder interface {
	SaveRun(ctx context.Context, run *history.Run, results []rules.Result) (int64, error)
}

// HistorySink buffers a run and records it when closed. Runs that never
// reach run.finished (fatal setup errors) are not recorded.
type HistorySink struct {
	recorder RunRecorder
	timeout  time.Duration

	mu       sync.Mutex
	run      history.Run
	results  []rules.Result
	finished bool
	runID    int64
}

func NewHistorySink(recorder RunRecorder) (*HistorySink, error) {
	if recorder == nil {
		return nil, fmt.Errorf("history recorder must not be nil")
	}
	return &HistorySink{recorder: recorder, timeout: 30 * time.Second}, nil
}

func (s *HistorySink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch t := v.(type) {
	case rules.Result:
		s.results = append(s.results, t)
	case Event:
		switch t.Type {
		case EventRunStarted:
			s.run.BaseURL = t.BaseURL
			s.run.Profile = t.Profile
			s.run.StartedAt = time.Now().UTC()
		case EventRunFinished:
			s.run.ExitCode = t.ExitCode
			s.run.FinishedAt = time.Now().UTC()
			s.finished = true
		}
	}
	return nil
}

// RunID returns the ID assigned on Close, or 0 when nothing was recorded.
func (s *HistorySink) RunID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

func (s *HistorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.finished {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	id, err := s.recorder.SaveRun(ctx, &s.run, s.results)
	if err != nil {
		return fmt.Errorf("record run history: %w", err)
	}
	s.runID = id
	return nil
}
