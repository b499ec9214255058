package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/lumenlms/lms-backend/internal/domain/aggregates"
	"github.com/lumenlms/lms-backend/internal/platform/locks"
)

// Shorthands for failures raised inside a write body. MapError keeps their
// code and stamps the operation name on the way out.
func ValidationError(msg string) error { return coded(domainagg.CodeValidation, msg) }
func InvariantError(msg string) error { return coded(domainagg.CodeInvariantViolation, msg) }
func ConflictError(msg string) error { return coded(domainagg.CodeConflict, msg) }
func RetryableError(msg string) error { return coded(domainagg.CodeRetryable, msg) }

func coded(code domainagg.ErrorCode, msg string) error {
	return domainagg.NewError(code, "", msg, nil)
}

var sentinelCodes = []struct {
	target error
	code   domainagg.ErrorCode
}{
	{gorm.ErrRecordNotFound, domainagg.CodeNotFound},
	{locks.ErrLockTimeout, domainagg.CodeRetryable},
	{context.Canceled, domainagg.CodeRetryable},
	{context.DeadlineExceeded, domainagg.CodeRetryable},
}

var pgCodes = map[string]domainagg.ErrorCode{
	"23505": domainagg.CodeConflict,           // unique_violation
	"23503": domainagg.CodePreconditionFailed, // foreign_key_violation
	"40001": domainagg.CodeRetryable,          // serialization_failure
	"40P01": domainagg.CodeRetryable,          // deadlock_detected
	"55P03": domainagg.CodeRetryable,          // lock_not_available
}

// sqlite has no typed errors; match on message fragments.
var textCodes = []struct {
	fragments []string
	code      domainagg.ErrorCode
}{
	{[]string{"duplicate key", "unique constraint failed", "already exists"}, domainagg.CodeConflict},
	{[]string{"foreign key constraint failed"}, domainagg.CodePreconditionFailed},
	{[]string{"deadlock", "serialization", "database is locked", "timeout", "temporar"}, domainagg.CodeRetryable},
}

// MapError classifies err into an aggregate error for op. Errors that already
// carry a code keep it.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		if aggErr.Op == "" && err == error(aggErr) {
			aggErr.Op = strings.TrimSpace(op)
		}
		return err
	}
	return domainagg.Wrap(classify(err), op, err)
}

func classify(err error) domainagg.ErrorCode {
	for _, s := range sentinelCodes {
		if errors.Is(err, s.target) {
			return s.code
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := pgCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return code
		}
	}
	msg := strings.ToLower(err.Error())
	for _, rule := range textCodes {
		for _, frag := range rule.fragments {
			if strings.Contains(msg, frag) {
				return rule.code
			}
		}
	}
	return domainagg.CodeInternal
}
