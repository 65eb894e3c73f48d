package observability

import (
	"context"
	"reflect"
	"testing"

	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

func TestParseOTLPHeaders(t *testing.T) {
	cases := []struct {
		raw  string
		want map[string]string
	}{
		{"", nil},
		{" , =x, k= ", nil},
		{"a=1", map[string]string{"a": "1"}},
		{"a=1, b = 2 ,c", map[string]string{"a": "1", "b": "2"}},
		{"auth=Basic abc==", map[string]string{"auth": "Basic abc=="}},
	}
	for _, tc := range cases {
		if got := ParseOTLPHeaders(tc.raw); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("ParseOTLPHeaders(%q): want=%v got=%v", tc.raw, tc.want, got)
		}
	}
}

func TestOtelConfigDefaults(t *testing.T) {
	cases := []struct {
		in        OtelConfig
		wantName  string
		wantRatio float64
	}{
		{OtelConfig{}, defaultServiceName, 0},
		{OtelConfig{ServiceName: " api ", SampleRatio: 2}, "api", 1},
		{OtelConfig{SampleRatio: -0.5}, defaultServiceName, 0},
		{OtelConfig{SampleRatio: 0.25}, defaultServiceName, 0.25},
	}
	for _, tc := range cases {
		got := tc.in.withDefaults()
		if got.ServiceName != tc.wantName || got.SampleRatio != tc.wantRatio {
			t.Fatalf("withDefaults(%+v): name=%q ratio=%v", tc.in, got.ServiceName, got.SampleRatio)
		}
	}
}

func TestNewTracerProviderWithEndpoint(t *testing.T) {
	ctx := context.Background()
	cfg := OtelConfig{
		Enabled:     true,
		Endpoint:    "127.0.0.1:4318",
		Insecure:    true,
		Headers:     map[string]string{"x-api-key": "abc"},
		SampleRatio: 1,
	}.withDefaults()

	tp := newTracerProvider(ctx, logger.Nop(), cfg)
	_, span := tp.Tracer("test").Start(ctx, "op")
	if !span.SpanContext().IsSampled() {
		t.Fatalf("expected span to be sampled at ratio 1")
	}
	span.End()
	shutdownCtx, cancel := context.WithCancel(ctx)
	cancel()
	_ = tp.Shutdown(shutdownCtx)
}

func TestInitOTelDisabledIsNoop(t *testing.T) {
	if shutdown := InitOTel(context.Background(), logger.Nop(), OtelConfig{}); shutdown != nil {
		t.Fatalf("expected nil shutdown when tracing is disabled")
	}
}
