package logutil

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestIsSensitiveLogField(t *testing.T) {
	t.Parallel()
	for _, key := range []string{"password", "TEST_ADMIN_PASSWORD", "csrf-token", "Cookie", "storage_state"} {
		if !IsSensitiveLogField(key) {
			t.Errorf("expected %q to be sensitive", key)
		}
	}
	for _, key := range []string{"email", "title", "amount", "description", "case_id"} {
		if IsSensitiveLogField(key) {
			t.Errorf("expected %q to be loggable", key)
		}
	}
}

func TestFormatFieldsForLog_RedactsAndSorts(t *testing.T) {
	t.Parallel()
	got := FormatFieldsForLog(map[string]string{
		"password": "hunter2",
		"email":    "lawyer@example.com",
	})
	want := `email="lawyer@example.com"; password="[REDACTED]"`
	if got != want {
		t.Fatalf("FormatFieldsForLog mismatch:\n got=%s\nwant=%s", got, want)
	}
	if FormatFieldsForLog(nil) != "{}" {
		t.Fatal("empty fields should render as {}")
	}
}

func testTruncateForLog_Bounded(t *rapid.T) {
	value := rapid.StringMatching(`[a-z \n]{0,300}`).Draw(t, "value")
	maxChars := rapid.IntRange(1, 120).Draw(t, "max")

	got := TruncateForLog(value, maxChars)
	if strings.Contains(got, "\n") {
		t.Fatalf("output must be single-line: %q", got)
	}
	limit := maxChars + len("... [truncated]")
	if len(got) > limit {
		t.Fatalf("output too long: len=%d limit=%d", len(got), limit)
	}
}

func TestTruncateForLog_Bounded(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testTruncateForLog_Bounded)
}
