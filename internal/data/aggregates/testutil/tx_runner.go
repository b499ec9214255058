package testutil

import (
	"context"
	"sync"

	"github.com/lumenlms/lms-backend/internal/data/aggregates"
	"github.com/lumenlms/lms-backend/internal/platform/dbctx"
)

// InjectedTxRunner wraps an optional real runner and injects failures at
// begin, before the body, or at commit. With no Inner it runs fn without a
// transaction.
type InjectedTxRunner struct {
	mu sync.Mutex

	Inner aggregates.TxRunner

	FailBegin      error
	FailBeforeBody error
	FailCommit     error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin := r.FailBegin
	failBeforeBody := r.FailBeforeBody
	failCommit := r.FailCommit
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	if failBeforeBody != nil {
		r.mu.Lock()
		r.RollbackCalls++
		r.mu.Unlock()
		return failBeforeBody
	}
	if fn == nil {
		r.mu.Lock()
		r.CommitCalls++
		r.mu.Unlock()
		return nil
	}
	if err := r.run(ctx, fn, failCommit); err != nil {
		r.mu.Lock()
		r.RollbackCalls++
		r.mu.Unlock()
		return err
	}
	r.mu.Lock()
	r.CommitCalls++
	r.mu.Unlock()
	return nil
}

// run executes fn, inside Inner when set. A commit failure is returned from
// within the transaction so Inner rolls back the body's writes.
func (r *InjectedTxRunner) run(ctx context.Context, fn func(dbc dbctx.Context) error, failCommit error) error {
	body := func(dbc dbctx.Context) error {
		if err := fn(dbc); err != nil {
			return err
		}
		return failCommit
	}
	if r.Inner != nil {
		return r.Inner.InTx(ctx, body)
	}
	return body(dbctx.Context{Ctx: ctx})
}
