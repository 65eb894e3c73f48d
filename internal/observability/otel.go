package observability

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

const (
	defaultServiceName = "superconnector"
	defaultSampleRatio = 0.1
)

// OtelConfig is filled by the app config loader. Tracing stays off unless
// Enabled is set. Spans go to Endpoint over OTLP/HTTP, or to stdout when no
// endpoint is configured.
type OtelConfig struct {
	Enabled     bool
	ServiceName string
	Environment string
	Version     string
	Endpoint    string
	Insecure    bool
	Headers     map[string]string
	SampleRatio float64
}

func (c OtelConfig) withDefaults() OtelConfig {
	c.ServiceName = strings.TrimSpace(c.ServiceName)
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	c.Environment = strings.TrimSpace(c.Environment)
	c.Version = strings.TrimSpace(c.Version)
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	switch {
	case c.SampleRatio < 0:
		c.SampleRatio = 0
	case c.SampleRatio > 1:
		c.SampleRatio = 1
	}
	return c
}

// ParseOTLPHeaders reads "k1=v1,k2=v2". Malformed pairs are skipped.
func ParseOTLPHeaders(raw string) map[string]string {
	headers := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok || key == "" || val == "" {
			continue
		}
		headers[key] = val
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

var (
	otelOnce     sync.Once
	otelShutdown func(context.Context) error
)

// InitOTel installs the global tracer provider once. It returns nil when
// tracing is disabled.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	otelOnce.Do(func() {
		if !cfg.Enabled {
			return
		}
		cfg = cfg.withDefaults()
		tp := newTracerProvider(ctx, log, cfg)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		otelShutdown = tp.Shutdown
		if log != nil {
			log.Info("Tracing initialized",
				"service", cfg.ServiceName,
				"endpoint", cfg.Endpoint,
				"sample_ratio", cfg.SampleRatio,
			)
		}
	})
	return otelShutdown
}

// newTracerProvider never fails; a broken resource or exporter leaves a
// provider that samples but does not export.
func newTracerProvider(ctx context.Context, log *logger.Logger, cfg OtelConfig) *sdktrace.TracerProvider {
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(cfg.Version),
		attribute.String("deployment.environment", cfg.Environment),
	))
	if err != nil && log != nil {
		log.Warn("Tracing resource incomplete", "error", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
	}
	exporter, err := newSpanExporter(ctx, cfg)
	switch {
	case err != nil:
		if log != nil {
			log.Warn("Span exporter unavailable, spans will not be exported", "endpoint", cfg.Endpoint, "error", err)
		}
	case cfg.Endpoint == "" && log != nil:
		log.Warn("No OTLP endpoint configured, exporting spans to stdout")
		fallthrough
	default:
		opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
	}
	return sdktrace.NewTracerProvider(opts...)
}

func newSpanExporter(ctx context.Context, cfg OtelConfig) (sdktrace.SpanExporter, error) {
	if cfg.Endpoint == "" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	return otlptracehttp.New(ctx, opts...)
}
