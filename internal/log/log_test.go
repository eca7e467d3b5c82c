package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_Levels(t *testing.T) {
	var quiet bytes.Buffer
	New(&quiet, false).Debug("hidden")
	New(&quiet, false).Info("shown")
	if strings.Contains(quiet.String(), "hidden") || !strings.Contains(quiet.String(), "shown") {
		t.Fatalf("unexpected non-verbose output: %q", quiet.String())
	}

	var loud bytes.Buffer
	New(&loud, true).Debug("detail", "route", "/")
	if !strings.Contains(loud.String(), "detail") || !strings.Contains(loud.String(), "route=/") {
		t.Fatalf("unexpected verbose output: %q", loud.String())
	}
}
