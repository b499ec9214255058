package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lumenlms/lms-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"

	maxClientIDLen = 128
)

// AttachTraceContext stamps every request with a request id and a trace id.
// An active span's trace id wins over a client supplied X-Trace-Id.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)

		tr := ctxutil.Trace{RequestID: clientID(c.GetHeader(headerRequestID))}
		if tr.RequestID == "" {
			tr.RequestID = uuid.NewString()
		}
		if sc := span.SpanContext(); sc.HasTraceID() {
			tr.TraceID = sc.TraceID().String()
		} else if tr.TraceID = clientID(c.GetHeader(headerTraceID)); tr.TraceID == "" {
			tr.TraceID = uuid.NewString()
		}
		span.SetAttributes(attribute.String("lms.request_id", tr.RequestID))

		c.Request = c.Request.WithContext(ctxutil.WithTrace(ctx, tr))
		c.Set("trace_id", tr.TraceID)
		c.Set("request_id", tr.RequestID)
		c.Header(headerTraceID, tr.TraceID)
		c.Header(headerRequestID, tr.RequestID)
		c.Next()
	}
}

// clientID accepts a caller supplied id only when it is short and made of
// header-safe token characters.
func clientID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxClientIDLen {
		return ""
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == ':':
		default:
			return ""
		}
	}
	return id
}
