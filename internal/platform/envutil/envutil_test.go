package envutil

import (
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("ENVUTIL_INT", "42")
	t.Setenv("ENVUTIL_BAD", "x")
	t.Setenv("ENVUTIL_BOOL", "yes")
	t.Setenv("ENVUTIL_SECS", "3")
	t.Setenv("ENVUTIL_FLOAT", "0.25")

	if got := Int("ENVUTIL_INT", 1); got != 42 {
		t.Fatalf("Int=%d", got)
	}
	if got := Int("ENVUTIL_BAD", 7); got != 7 {
		t.Fatalf("Int fallback=%d", got)
	}
	if got := Float("ENVUTIL_FLOAT", 1); got != 0.25 {
		t.Fatalf("Float=%v", got)
	}
	if got := Float("ENVUTIL_BAD", 0.5); got != 0.5 {
		t.Fatalf("Float fallback=%v", got)
	}
	if !Bool("ENVUTIL_BOOL", false) {
		t.Fatalf("Bool should be true")
	}
	if got := String("ENVUTIL_MISSING", "def"); got != "def" {
		t.Fatalf("String=%q", got)
	}
	if got := Seconds("ENVUTIL_SECS", time.Minute); got != 3*time.Second {
		t.Fatalf("Seconds=%v", got)
	}
	if got := Seconds("ENVUTIL_MISSING", time.Minute); got != time.Minute {
		t.Fatalf("Seconds default=%v", got)
	}
}
