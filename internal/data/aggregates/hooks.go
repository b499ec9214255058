package aggregates

import (
	"strings"
	"time"

	"github.com/lumenlms/lms-backend/internal/observability"
)

// Hooks captures aggregate-level observability events. Domain events are
// emitted only after the surrounding transaction committed.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)

	IncLessonToggle(direction string)
	IncEnrollmentChange(change string)
	IncProgressRecompute(scope, outcome string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}
func (noopHooks) IncLessonToggle(string)                         {}
func (noopHooks) IncEnrollmentChange(string)                     {}
func (noopHooks) IncProgressRecompute(string, string)            {}

type observabilityHooks struct {
	metrics *observability.Metrics
}

// NewObservabilityHooks creates aggregate hooks backed by observability metrics.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return &observabilityHooks{metrics: metrics}
}

func (h *observabilityHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.metrics.ObserveAggregateOperation(strings.TrimSpace(name), strings.TrimSpace(status), dur)
}

func (h *observabilityHooks) IncConflict(name string) {
	h.metrics.IncAggregateConflict(strings.TrimSpace(name))
}

func (h *observabilityHooks) IncRetry(name string) {
	h.metrics.IncAggregateRetry(strings.TrimSpace(name))
}

func (h *observabilityHooks) IncLessonToggle(direction string) {
	h.metrics.IncLessonToggle(direction)
}

func (h *observabilityHooks) IncEnrollmentChange(change string) {
	h.metrics.IncEnrollmentChange(change)
}

func (h *observabilityHooks) IncProgressRecompute(scope, outcome string) {
	h.metrics.IncProgressRecompute(scope, outcome)
}

// events buffers domain hook calls made inside a transaction so they can be
// flushed once it commits.
type events struct {
	fns []func(Hooks)
}

func (e *events) add(fn func(Hooks)) { e.fns = append(e.fns, fn) }

func (e *events) reset() { e.fns = e.fns[:0] }

func (e *events) flush(h Hooks) {
	for _, fn := range e.fns {
		fn(h)
	}
	e.fns = nil
}
