package output

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"sitecheck/internal/rules"
)

type recordingSink struct {
	mu       sync.Mutex
	writes   []any
	closed   bool
	writeErr error
	closeErr error
}

func (s *recordingSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, v)
	return s.writeErr
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.closeErr
}

func TestManager(t *testing.T) {
	t.Run("writes to all sinks", func(t *testing.T) {
		m := NewManager()
		a, b := &recordingSink{}, &recordingSink{}
		_ = m.AddSink(a)
		_ = m.AddSink(b)

		if err := m.Write(Event{Type: EventRunStarted}); err != nil {
			t.Fatalf("Write() error: %v", err)
		}
		if len(a.writes) != 1 || len(b.writes) != 1 {
			t.Fatalf("expected both sinks written, got %d and %d", len(a.writes), len(b.writes))
		}
		if m.Len() != 2 {
			t.Fatalf("Len() = %d", m.Len())
		}
	})

	t.Run("rejects nil sink", func(t *testing.T) {
		if err := NewManager().AddSink(nil); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("joins write errors and keeps writing", func(t *testing.T) {
		m := NewManager()
		a := &recordingSink{writeErr: errors.New("disk full")}
		b := &recordingSink{}
		_ = m.AddSink(a)
		_ = m.AddSink(b)

		err := m.Write(rules.Result{Status: rules.StatusPass})
		if err == nil || !strings.Contains(err.Error(), "disk full") {
			t.Fatalf("expected joined error, got %v", err)
		}
		if len(b.writes) != 1 {
			t.Fatal("expected second sink to still be written")
		}
	})

	t.Run("closes every sink and joins errors", func(t *testing.T) {
		m := NewManager()
		a := &recordingSink{closeErr: errors.New("boom")}
		b := &recordingSink{}
		_ = m.AddSink(a)
		_ = m.AddSink(b)

		if err := m.Close(); err == nil || !strings.Contains(err.Error(), "boom") {
			t.Fatalf("expected close error, got %v", err)
		}
		if !a.closed || !b.closed {
			t.Fatal("expected both sinks closed")
		}
	})

	t.Run("nil manager", func(t *testing.T) {
		var m *Manager
		if err := m.Write(nil); err == nil {
			t.Fatal("expected error")
		}
		if err := m.Close(); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestManager_Counts(t *testing.T) {
	m := NewManager()
	for _, s := range []rules.Status{rules.StatusPass, rules.StatusPass, rules.StatusFail, rules.StatusSkipped, rules.StatusError} {
		_ = m.Write(rules.Result{Status: s})
	}
	_ = m.Write(Event{Type: EventRunFinished})

	c := m.Counts()
	if c != (rules.Counts{Pass: 2, Fail: 1, Skipped: 1, Error: 1}) || c.Total() != 5 {
		t.Fatalf("Counts() = %+v", c)
	}
}
