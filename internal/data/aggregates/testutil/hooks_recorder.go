package testutil

import (
	"sync"
	"time"

	"github.com/lumenlms/lms-backend/internal/data/aggregates"
)

// HooksRecorder keeps every hook call an aggregate makes so tests can assert
// on metrics without a registry. Safe for concurrent writers.
type HooksRecorder struct {
	mu sync.Mutex

	Operations        []OperationEvent
	Conflicts         []string
	Retries           []string
	LessonToggles     []string
	EnrollmentChanges []string
	Recomputes        []RecomputeEvent
}

type OperationEvent struct {
	Name     string
	Status   string
	Duration time.Duration
}

type RecomputeEvent struct{ Scope, Outcome string }

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) locked(fn func()) {
	h.mu.Lock()
	fn()
	h.mu.Unlock()
}

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.locked(func() { h.Operations = append(h.Operations, OperationEvent{name, status, dur}) })
}

func (h *HooksRecorder) IncConflict(op string) {
	h.locked(func() { h.Conflicts = append(h.Conflicts, op) })
}

func (h *HooksRecorder) IncRetry(op string) {
	h.locked(func() { h.Retries = append(h.Retries, op) })
}

func (h *HooksRecorder) IncLessonToggle(direction string) {
	h.locked(func() { h.LessonToggles = append(h.LessonToggles, direction) })
}

func (h *HooksRecorder) IncEnrollmentChange(change string) {
	h.locked(func() { h.EnrollmentChanges = append(h.EnrollmentChanges, change) })
}

func (h *HooksRecorder) IncProgressRecompute(scope, outcome string) {
	h.locked(func() { h.Recomputes = append(h.Recomputes, RecomputeEvent{scope, outcome}) })
}

func (h *HooksRecorder) CountRecomputes(scope, outcome string) (n int) {
	h.locked(func() {
		for _, ev := range h.Recomputes {
			if ev == (RecomputeEvent{scope, outcome}) {
				n++
			}
		}
	})
	return n
}

func (h *HooksRecorder) LastOperation() (ev OperationEvent, ok bool) {
	h.locked(func() {
		if n := len(h.Operations); n > 0 {
			ev, ok = h.Operations[n-1], true
		}
	})
	return ev, ok
}
