package util

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestMonitorLogf(t *testing.T) {
	var buf bytes.Buffer
	original := GetMonitorLoggerForTest()
	SetMonitorLoggerForTest(log.New(&buf, "[MONITOR] ", 0))
	defer SetMonitorLoggerForTest(original)

	MonitorLogf("fingerprint failed for %s", "10.0.0.1")

	out := buf.String()
	if !strings.Contains(out, "[MONITOR] ") || !strings.Contains(out, "fingerprint failed for 10.0.0.1") {
		t.Fatalf("unexpected log output: %q", out)
	}
}

func TestSanitizeLogValue_StripsControlCharacters(t *testing.T) {
	got := SanitizeLogValue("line1\nline2\rtab\there")
	if strings.ContainsAny(got, "\n\r\t") {
		t.Fatalf("expected control characters removed, got %q", got)
	}
}

func TestSanitizeLogValue_TruncatesLongValues(t *testing.T) {
	long := strings.Repeat("a", 500)
	got := SanitizeLogValue(long)
	if len(got) != 203 || !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncated value with ellipsis, got len=%d", len(got))
	}
}

func TestSanitizeLogValue_ShortValueUntouched(t *testing.T) {
	if got := SanitizeLogValue("short"); got != "short" {
		t.Fatalf("expected %q, got %q", "short", got)
	}
}
