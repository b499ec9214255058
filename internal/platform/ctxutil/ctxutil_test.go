package ctxutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestRequestDataRoundTrip(t *testing.T) {
	id := uuid.New()
	ctx := WithRequestData(context.Background(), &RequestData{StudentID: id})
	if got := StudentID(ctx); got != id {
		t.Fatalf("expected %s, got %s", id, got)
	}
	if got := StudentID(context.Background()); got != uuid.Nil {
		t.Fatalf("expected nil id without request data, got %s", got)
	}
}

func TestTraceFrom(t *testing.T) {
	if _, ok := TraceFrom(context.Background()); ok {
		t.Fatalf("expected no trace on a bare context")
	}
	ctx := WithTrace(nil, Trace{TraceID: "t", RequestID: "r"})
	got, ok := TraceFrom(ctx)
	if !ok || got.TraceID != "t" || got.RequestID != "r" {
		t.Fatalf("unexpected trace: %+v", got)
	}
	fields := got.Fields()
	if len(fields) != 4 || fields[0] != "trace_id" || fields[3] != "r" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if f := (Trace{RequestID: "r"}).Fields(); len(f) != 2 || f[0] != "request_id" {
		t.Fatalf("expected only request_id, got %v", f)
	}
	if !(Trace{}).IsZero() {
		t.Fatalf("empty trace should be zero")
	}
}
