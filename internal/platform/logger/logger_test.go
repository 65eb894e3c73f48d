package logger

import (
	"strings"
	"testing"
)

func TestSanitizeValue(t *testing.T) {
	if got := sanitizeValue("openai_api_key", "sk-123"); got != "[REDACTED]" {
		t.Fatalf("api key not redacted: %v", got)
	}
	if got := sanitizeValue("email", "a@b.com"); got != "[REDACTED]" {
		t.Fatalf("email not redacted: %v", got)
	}
	got, ok := sanitizeValue("phone", "+15551230000").(string)
	if !ok || !strings.HasPrefix(got, "hash:") || len(got) != len("hash:")+12 {
		t.Fatalf("phone not hashed: %v", got)
	}
	if again := sanitizeValue("phone", "+15551230000"); again != got {
		t.Fatalf("hash not stable: %v vs %v", again, got)
	}
	if got := sanitizeValue("status", "consented"); got != "consented" {
		t.Fatalf("plain value altered: %v", got)
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"intro_id", "x", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected output: %#v", out)
	}
}
