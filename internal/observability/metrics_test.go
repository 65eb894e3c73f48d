package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/healthz", "200", time.Millisecond)
	m.IncDispatch("whatsapp", "sent")
	m.IncIntroTransition("completed")
	m.AddDeferredProcessed(3)
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil metrics write: %v", err)
	}
}

func TestMetricsExposition(t *testing.T) {
	m := newMetrics()
	m.ObserveAPI("POST", "/webhook/whatsapp", "500", 10*time.Millisecond)
	m.IncDispatch("whatsapp", "sent")
	m.IncDispatch("whatsapp", "sent")
	m.IncCompletionFallback("")
	m.IncIntroTransition("consented")

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`sc_api_requests_total{method="POST",route="/webhook/whatsapp",status="500"} 1.000000`,
		`sc_api_requests_error_total 1.000000`,
		`sc_dispatch_total{channel="whatsapp",status="sent"} 2.000000`,
		`sc_completion_fallback_total{purpose="unknown"} 1.000000`,
		`sc_intro_transitions_total{status="consented"} 1.000000`,
		`sc_api_request_duration_seconds_bucket{method="POST",route="/webhook/whatsapp",status="500",le="+Inf"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}
