package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/superconnector-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
	// Twilio sets this on every webhook delivery, retries included.
	headerTwilioIdempotency = "I-Twilio-Idempotency-Token"
)

// TraceContext tags each request with a trace id, a request id and the
// surface it arrived on, and echoes the ids back as response headers.
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := firstHeader(c, headerRequestID, headerTwilioIdempotency)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		traceID := firstHeader(c, headerTraceID)
		if traceID == "" {
			if spanCtx := trace.SpanContextFromContext(c.Request.Context()); spanCtx.HasTraceID() {
				traceID = spanCtx.TraceID().String()
			}
		}
		if traceID == "" {
			traceID = uuid.New().String()
		}
		ctx := ctxutil.WithTraceData(c.Request.Context(), &ctxutil.TraceData{
			TraceID:   traceID,
			RequestID: reqID,
			Surface:   surfaceFor(c.Request.URL.Path),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}

func surfaceFor(path string) ctxutil.Surface {
	switch {
	case strings.HasPrefix(path, "/webhook/"):
		return ctxutil.SurfaceWebhook
	case path == "/admin" || strings.HasPrefix(path, "/admin/"):
		return ctxutil.SurfaceAdmin
	default:
		return ctxutil.SurfacePublic
	}
}

func firstHeader(c *gin.Context, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(c.GetHeader(n)); v != "" {
			return v
		}
	}
	return ""
}
