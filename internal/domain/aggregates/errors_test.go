package aggregates

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormattingAndCodes(t *testing.T) {
	err := Conflict("progress.uncomplete_lesson", "nothing to undo")
	if got := err.Error(); got != "progress.uncomplete_lesson: nothing to undo (conflict)" {
		t.Fatalf("unexpected message %q", got)
	}
	wrapped := fmt.Errorf("handler: %w", err)
	if !IsCode(wrapped, CodeConflict) {
		t.Fatalf("expected conflict code through wrapping")
	}
	if MessageOf(wrapped) != "nothing to undo" {
		t.Fatalf("unexpected MessageOf %q", MessageOf(wrapped))
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatalf("expected empty code for plain error")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("db down")
	err := Wrap(CodeRetryable, "enrollment.enroll", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be preserved")
	}
	if Wrap(CodeInternal, "op", nil) != nil {
		t.Fatalf("expected nil wrap of nil error")
	}
}

func TestWrapPassesThroughCodedErrors(t *testing.T) {
	inner := NotFound("enrollment.get", "enrollment not found")
	outer := Wrap(CodeInternal, "service.progress", fmt.Errorf("load: %w", inner))
	if CodeOf(outer) != CodeNotFound {
		t.Fatalf("expected not_found to survive Wrap, got %q", CodeOf(outer))
	}
}

func TestErrorRenderingWithMissingParts(t *testing.T) {
	cases := []struct {
		err  *Error
		want string
	}{
		{&Error{Code: CodeConflict, Op: "op"}, "op (conflict)"},
		{&Error{Code: CodeConflict, Message: "msg"}, "msg (conflict)"},
		{&Error{Code: CodeInternal}, "internal"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("want %q got %q", tc.want, got)
		}
	}
}
