package aggregates

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/lumenlms/lms-backend/internal/domain/aggregates"
	"github.com/lumenlms/lms-backend/internal/platform/locks"
)

func TestMapErrorKeepsExistingCode(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeRetryable, "op", "retry", errors.New("boom"))
	out := MapError("other", in)
	if out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
	wrapped := fmt.Errorf("outer: %w", in)
	if got := MapError("other", wrapped); !domainagg.IsCode(got, domainagg.CodeRetryable) {
		t.Fatalf("expected wrapped aggregate error to keep its code, got %v", got)
	}
}

func TestMapErrorClassifies(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want domainagg.ErrorCode
	}{
		{"body validation", ValidationError("bad input"), domainagg.CodeValidation},
		{"body conflict", ConflictError("nothing to undo"), domainagg.CodeConflict},
		{"missing row", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), domainagg.CodeNotFound},
		{"pg lock_not_available", &pgconn.PgError{Code: "55P03"}, domainagg.CodeRetryable},
		{"pg other", &pgconn.PgError{Code: "22001"}, domainagg.CodeInternal},
		{"sqlite fk", errors.New("FOREIGN KEY constraint failed"), domainagg.CodePreconditionFailed},
		{"lock timeout", fmt.Errorf("acquire: %w", locks.ErrLockTimeout), domainagg.CodeRetryable},
		{"canceled", context.Canceled, domainagg.CodeRetryable},
		{"pg unique", &pgconn.PgError{Code: "23505"}, domainagg.CodeConflict},
		{"pg fk", &pgconn.PgError{Code: "23503"}, domainagg.CodePreconditionFailed},
		{"pg deadlock", &pgconn.PgError{Code: "40P01"}, domainagg.CodeRetryable},
		{"sqlite unique", errors.New("UNIQUE constraint failed: enrollment.student_id, enrollment.course_id"), domainagg.CodeConflict},
		{"sqlite busy", errors.New("database is locked"), domainagg.CodeRetryable},
		{"unknown", errors.New("boom"), domainagg.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := domainagg.CodeOf(MapError("op", tc.err)); got != tc.want {
				t.Fatalf("want %s got %s", tc.want, got)
			}
		})
	}
}
