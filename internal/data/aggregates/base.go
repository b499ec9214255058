package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/lumenlms/lms-backend/internal/domain/aggregates"
	"github.com/lumenlms/lms-backend/internal/platform/dbctx"
	"github.com/lumenlms/lms-backend/internal/platform/locks"
	"github.com/lumenlms/lms-backend/internal/platform/logger"
)

type BaseDeps struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks
	Locker locks.Locker
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Locker == nil {
		d.Locker = locks.NewLocal()
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return d
}

// enrollmentLockKey is shared by both aggregates so enroll/unenroll and
// progress writes on one enrollment never interleave.
func enrollmentLockKey(key domainagg.EnrollmentKey) string {
	return domainagg.EnrollmentAggregateContract.LockKey(key)
}

func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	w := newWrite(deps, op)
	return w.finish(w.deps.Runner.InTx(ctx, fn))
}

// executeLockedWrite holds the lock for key across the whole transaction,
// commit included.
func executeLockedWrite(ctx context.Context, deps BaseDeps, op, key string, fn func(dbc dbctx.Context) error) error {
	w := newWrite(deps, op)
	release, err := w.deps.Locker.Acquire(ctx, key)
	if err != nil {
		w.deps.Log.Warn("aggregate lock not acquired", "op", w.op, "lock_key", key, "error", err)
		return w.finish(err)
	}
	defer release()
	return w.finish(w.deps.Runner.InTx(ctx, fn))
}

type write struct {
	deps  BaseDeps
	op    string
	start time.Time
}

func newWrite(deps BaseDeps, op string) write {
	if op = strings.TrimSpace(op); op == "" {
		op = "aggregate.write"
	}
	return write{deps: deps.withDefaults(), op: op, start: time.Now()}
}

// finish classifies err, feeds the hooks and returns the coded error.
func (w write) finish(err error) error {
	mapped := MapError(w.op, err)
	switch domainagg.CodeOf(mapped) {
	case domainagg.CodeConflict:
		w.deps.Hooks.IncConflict(w.op)
	case domainagg.CodeRetryable:
		w.deps.Hooks.IncRetry(w.op)
	case domainagg.CodeInternal:
		w.deps.Log.Error("aggregate write failed", "op", w.op, "error", err)
	}
	w.deps.Hooks.ObserveOperation(w.op, aggregateErrorStatus(mapped), time.Since(w.start))
	return mapped
}

// aggregateErrorStatus is the status label recorded for a finished write.
func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	if code := domainagg.CodeOf(MapError("", err)); code != "" {
		return string(code)
	}
	return "failure"
}

func nowOr(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now().UTC()
	}
	return at.UTC()
}
