package testutil

import (
	"sync"
	"testing"
	"time"
)

func TestHooksRecorderCollectsEveryKind(t *testing.T) {
	h := &HooksRecorder{}
	if _, ok := h.LastOperation(); ok {
		t.Fatalf("fresh recorder has no operations")
	}

	h.ObserveOperation("progress.complete_lesson", "conflict", 5*time.Millisecond)
	h.ObserveOperation("progress.complete_lesson", "success", 3*time.Millisecond)
	h.IncConflict("progress.complete_lesson")
	h.IncRetry("enrollment.enroll")
	h.IncLessonToggle("complete")
	h.IncEnrollmentChange("reactivated")
	for _, outcome := range []string{"updated", "skipped_empty", "updated"} {
		h.IncProgressRecompute("module", outcome)
	}

	last, ok := h.LastOperation()
	if !ok || last.Status != "success" || last.Duration != 3*time.Millisecond {
		t.Fatalf("unexpected last operation: %+v", last)
	}
	if len(h.Conflicts) != 1 || len(h.Retries) != 1 || h.Retries[0] != "enrollment.enroll" {
		t.Fatalf("conflicts=%v retries=%v", h.Conflicts, h.Retries)
	}
	if h.LessonToggles[0] != "complete" || h.EnrollmentChanges[0] != "reactivated" {
		t.Fatalf("toggles=%v changes=%v", h.LessonToggles, h.EnrollmentChanges)
	}
	if got := h.CountRecomputes("module", "updated"); got != 2 {
		t.Fatalf("module/updated: want 2 got %d", got)
	}
	if got := h.CountRecomputes("enrollment", "updated"); got != 0 {
		t.Fatalf("enrollment/updated: want 0 got %d", got)
	}
}

func TestHooksRecorderConcurrentWriters(t *testing.T) {
	h := &HooksRecorder{}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.IncLessonToggle("complete")
			h.IncProgressRecompute("enrollment", "updated")
		}()
	}
	wg.Wait()
	if len(h.LessonToggles) != 16 || h.CountRecomputes("enrollment", "updated") != 16 {
		t.Fatalf("lost events: toggles=%d", len(h.LessonToggles))
	}
}
