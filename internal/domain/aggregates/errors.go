package aggregates

import (
	"errors"
	"strings"
)

// ErrorCode classifies a failed enrollment or progress operation. Transports
// map codes to their own status space.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

// Error carries a code, the operation that failed ("progress.complete_lesson")
// and a caller-facing message.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

// Error renders "op: message (code)", dropping whichever parts are empty.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Message != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Message)
	}
	if b.Len() == 0 {
		return string(e.Code)
	}
	b.WriteString(" (" + string(e.Code) + ")")
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{Code: code, Op: strings.TrimSpace(op), Message: strings.TrimSpace(message), Cause: cause}
}

// Wrap annotates err with code. An err that already carries a code is
// returned as is.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := as(err); ok {
		return err
	}
	return NewError(code, op, err.Error(), err)
}

func NotFound(op, message string) error           { return NewError(CodeNotFound, op, message, nil) }
func Conflict(op, message string) error           { return NewError(CodeConflict, op, message, nil) }
func PreconditionFailed(op, message string) error { return NewError(CodePreconditionFailed, op, message, nil) }
func Validation(op, message string) error         { return NewError(CodeValidation, op, message, nil) }

func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// CodeOf returns the code of the outermost *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	if e, ok := as(err); ok {
		return e.Code
	}
	return ""
}

// MessageOf returns the message without op/code decoration.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := as(err); ok && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

func as(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
