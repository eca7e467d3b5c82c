package output

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// readFirstLine reads one line from r in the background.
func readFirstLine(r io.Reader) (<-chan string, <-chan error) {
	lineCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(r).ReadString('\n')
		if err != nil {
			errCh <- err
			return
		}
		lineCh <- line
	}()
	return lineCh, errCh
}

func expectLine(t *testing.T, lineCh <-chan string, errCh <-chan error, want ...string) {
	t.Helper()
	select {
	case line := <-lineCh:
		for _, w := range want {
			if !strings.Contains(line, w) {
				t.Fatalf("expected %s in line, got %q", w, line)
			}
		}
	case err := <-errCh:
		t.Fatalf("read error: %v", err)
	case <-time.After(250 * time.Millisecond):
		t.Fatalf("timed out waiting for ndjson line; writer likely not flushing")
	}
}

func TestEmitSink_NDJSON_FlushesPerWrite(t *testing.T) {
	pr, pw := io.Pipe()
	defer pr.Close()
	defer pw.Close()

	s, err := NewEmitSink(bufio.NewWriterSize(pw, 64*1024), FormatNDJSON)
	if err != nil {
		t.Fatalf("NewEmitSink returned error: %v", err)
	}
	lineCh, errCh := readFirstLine(pr)

	if err := s.Write(Event{Type: EventRunStarted}); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	expectLine(t, lineCh, errCh, `"type":"run.started"`)
}

func TestConsoleSink_NDJSON_FlushesPerWrite(t *testing.T) {
	pr, pw := io.Pipe()
	defer pr.Close()
	defer pw.Close()

	s := NewConsoleSink(bufio.NewWriterSize(pw, 64*1024), ConsoleNDJSON, nil)
	lineCh, errCh := readFirstLine(pr)

	if err := s.Write(Event{Type: EventRouteStarted, Route: "/eu-merchant"}); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	expectLine(t, lineCh, errCh, `"type":"route.started"`, `"route":"/eu-merchant"`)
}

func TestFileSink_NDJSON_WritesIncrementally(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ndjson")

	s, err := NewFileSink(path, FormatNDJSON)
	if err != nil {
		t.Fatalf("NewFileSink returned error: %v", err)
	}
	defer func() { _ = s.Close() }()

	if err := s.Write(Event{Type: EventRunStarted}); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	b1, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(b1), `"type":"run.started"`) || !strings.HasSuffix(string(b1), "\n") {
		t.Fatalf("expected a complete run.started line after first Write, got %q", string(b1))
	}

	if err := s.Write(Event{Type: EventRunFinished}); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	b2, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(b2)), "\n"); len(lines) != 2 {
		t.Fatalf("expected 2 ndjson lines after two Writes, got %d: %q", len(lines), string(b2))
	}
}
