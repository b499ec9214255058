package ctxutil

import "context"

type traceKey struct{}

// Trace identifies one inbound request across logs and responses.
type Trace struct {
	TraceID   string
	RequestID string
}

func (t Trace) IsZero() bool { return t.TraceID == "" && t.RequestID == "" }

// Fields renders the non-empty ids as alternating key/value log fields.
func (t Trace) Fields() []interface{} {
	out := make([]interface{}, 0, 4)
	if t.TraceID != "" {
		out = append(out, "trace_id", t.TraceID)
	}
	if t.RequestID != "" {
		out = append(out, "request_id", t.RequestID)
	}
	return out
}

func WithTrace(ctx context.Context, t Trace) context.Context {
	return context.WithValue(Default(ctx), traceKey{}, t)
}

func TraceFrom(ctx context.Context) (Trace, bool) {
	if ctx == nil {
		return Trace{}, false
	}
	t, ok := ctx.Value(traceKey{}).(Trace)
	return t, ok
}
