package logging

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestFormatValueQuotesMultiline(t *testing.T) {
	got := formatValue(slog.StringValue("ERROR: one\nERROR: two"))
	if got != `"ERROR: one\nERROR: two"` {
		t.Fatalf("unexpected %q", got)
	}
	if got := attrString(slog.StringValue("")); got != "" {
		t.Fatalf("header values are not quoted, got %q", got)
	}
	if got := formatValue(slog.AnyValue(errors.New("exit status 1"))); got != "exit status 1" {
		t.Fatalf("unexpected error rendering %q", got)
	}
}

func TestFormatValueClipsLongOutput(t *testing.T) {
	long := strings.Repeat("x", maxConsoleValue+25)
	got := formatValue(slog.StringValue(long))
	if !strings.HasSuffix(got, "… (25 more chars)") {
		t.Fatalf("expected clipped value, got suffix %q", got[len(got)-30:])
	}
}
