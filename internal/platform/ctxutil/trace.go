package ctxutil

import "context"

type traceDataKey struct{}

// Surface names the entry point a request arrived on.
type Surface string

const (
	SurfacePublic  Surface = "public"
	SurfaceWebhook Surface = "webhook"
	SurfaceAdmin   Surface = "admin"
)

type TraceData struct {
	TraceID   string
	RequestID string
	Surface   Surface
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// LogFields returns the trace identifiers as logger key/value pairs.
func LogFields(ctx context.Context) []interface{} {
	td := GetTraceData(ctx)
	if td == nil {
		return nil
	}
	var out []interface{}
	if td.TraceID != "" {
		out = append(out, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		out = append(out, "request_id", td.RequestID)
	}
	if td.Surface != "" {
		out = append(out, "surface", string(td.Surface))
	}
	return out
}
