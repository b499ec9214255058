package aggregates_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lumenlms/lms-backend/internal/data/aggregates"
	aggtest "github.com/lumenlms/lms-backend/internal/data/aggregates/testutil"
	"github.com/lumenlms/lms-backend/internal/data/repos/testutil"
	domainagg "github.com/lumenlms/lms-backend/internal/domain/aggregates"
	"github.com/lumenlms/lms-backend/internal/domain/learning"
	"github.com/lumenlms/lms-backend/internal/platform/dbctx"
)

func pct(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCompleteLessonsAcrossTwoModules(t *testing.T) {
	h := newHarness(t)
	f := testutil.SeedPublishedCourse(t, h.ctx, h.db, 2, 2)
	student := uuid.New()
	e := h.enroll(t, student, f.Course.ID)
	a1, a2 := f.Lessons[0][0], f.Lessons[0][1]
	b1, b2 := f.Lessons[1][0], f.Lessons[1][1]
	dbc := dbctx.Context{Ctx: h.ctx}

	res := h.complete(t, student, f.Course.ID, a1.ID)
	if !res.Changed {
		t.Fatalf("first completion must report a change")
	}
	if res.Snapshot.Progress != 25 || res.Snapshot.Status != learning.EnrollmentInProgress {
		t.Fatalf("after A1: progress=%v status=%s", res.Snapshot.Progress, res.Snapshot.Status)
	}
	if len(res.Snapshot.CompletedLessons) != 1 || res.Snapshot.CompletedLessons[0] != a1.ID {
		t.Fatalf("after A1 completed lessons: %v", res.Snapshot.CompletedLessons)
	}
	if len(res.Snapshot.CompletedModules) != 0 {
		t.Fatalf("after A1 completed modules: %v", res.Snapshot.CompletedModules)
	}
	mp, err := h.moduleProgress.Get(dbc, e.ID, f.Modules[0].ID)
	if err != nil || mp == nil {
		t.Fatalf("module A progress: mp=%v err=%v", mp, err)
	}
	if !mp.ProgressPercent.Equal(pct("50")) || mp.IsCompleted || mp.CompletedAt != nil {
		t.Fatalf("module A after A1: %+v", mp)
	}
	if res.Snapshot.CompletedAt != nil {
		t.Fatalf("completed_at must stay empty before completion")
	}

	h.complete(t, student, f.Course.ID, a2.ID)
	mp, _ = h.moduleProgress.Get(dbc, e.ID, f.Modules[0].ID)
	if mp == nil || !mp.IsCompleted || mp.CompletedAt == nil || !mp.ProgressPercent.Equal(pct("100")) {
		t.Fatalf("module A after A2: %+v", mp)
	}
	moduleDoneAt := *mp.CompletedAt

	h.complete(t, student, f.Course.ID, b1.ID)
	res = h.complete(t, student, f.Course.ID, b2.ID)
	if res.Snapshot.Progress != 100 || res.Snapshot.Status != learning.EnrollmentCompleted {
		t.Fatalf("after all: progress=%v status=%s", res.Snapshot.Progress, res.Snapshot.Status)
	}
	if res.Snapshot.CompletedAt == nil {
		t.Fatalf("completed_at must be set at 100%%")
	}
	if len(res.Snapshot.CompletedLessons) != 4 || len(res.Snapshot.CompletedModules) != 2 {
		t.Fatalf("final snapshot: %+v", res.Snapshot)
	}

	mp, _ = h.moduleProgress.Get(dbc, e.ID, f.Modules[0].ID)
	if mp.CompletedAt == nil || !mp.CompletedAt.Equal(moduleDoneAt) {
		t.Fatalf("module completed_at must be preserved while completion holds")
	}

	stored := h.reload(t, e.ID)
	if !stored.ProgressPercent.Equal(pct("100")) || stored.Status != learning.EnrollmentCompleted {
		t.Fatalf("stored enrollment: percent=%s status=%s", stored.ProgressPercent, stored.Status)
	}
	if got := len(h.hooks.LessonToggles); got != 4 {
		t.Fatalf("lesson toggle events: want=4 got=%d", got)
	}
}

func TestCompleteLessonIsIdempotent(t *testing.T) {
	h := newHarness(t)
	f := testutil.SeedPublishedCourse(t, h.ctx, h.db, 3)
	student := uuid.New()
	e := h.enroll(t, student, f.Course.ID)
	lesson := f.Lessons[0][0]

	first := h.complete(t, student, f.Course.ID, lesson.ID)
	before := h.reload(t, e.ID)
	recomputes := len(h.hooks.Recomputes)

	second := h.complete(t, student, f.Course.ID, lesson.ID)
	if second.Changed {
		t.Fatalf("repeat completion must not report a change")
	}
	after := h.reload(t, e.ID)

	if !after.ProgressPercent.Equal(before.ProgressPercent) || after.Status != before.Status {
		t.Fatalf("stored progress changed on repeat: %s/%s -> %s/%s",
			before.ProgressPercent, before.Status, after.ProgressPercent, after.Status)
	}
	if !after.LastAccessedAt.Equal(*before.LastAccessedAt) {
		t.Fatalf("last_accessed_at moved on repeat completion")
	}
	if len(h.hooks.Recomputes) != recomputes {
		t.Fatalf("repeat completion must not recompute")
	}
	if first.Snapshot.Progress != second.Snapshot.Progress ||
		first.Snapshot.Status != second.Snapshot.Status ||
		len(first.Snapshot.CompletedLessons) != len(second.Snapshot.CompletedLessons) ||
		len(first.Snapshot.CompletedModules) != len(second.Snapshot.CompletedModules) {
		t.Fatalf("snapshots differ: %+v vs %+v", first.Snapshot, second.Snapshot)
	}
	if !after.ProgressPercent.Equal(pct("33.33")) {
		t.Fatalf("expected 33.33, got %s", after.ProgressPercent)
	}
}

func TestUncompleteNeverCompletedIsConflict(t *testing.T) {
	h := newHarness(t)
	f := testutil.SeedPublishedCourse(t, h.ctx, h.db, 2)
	student := uuid.New()
	e := h.enroll(t, student, f.Course.ID)
	h.complete(t, student, f.Course.ID, f.Lessons[0][0].ID)
	before := h.reload(t, e.ID)

	_, err := h.progress.UncompleteLesson(h.ctx, domainagg.LessonToggleInput{
		StudentID: student,
		CourseID:  f.Course.ID,
		LessonID:  f.Lessons[0][1].ID,
	})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	after := h.reload(t, e.ID)
	if !after.ProgressPercent.Equal(before.ProgressPercent) {
		t.Fatalf("progress changed: %s -> %s", before.ProgressPercent, after.ProgressPercent)
	}
	if !after.LastAccessedAt.Equal(*before.LastAccessedAt) {
		t.Fatalf("last_accessed_at changed on failed un-complete")
	}
	if len(h.hooks.Conflicts) != 1 {
		t.Fatalf("expected one conflict event, got %v", h.hooks.Conflicts)
	}
}

func TestUncompleteRevertsProgress(t *testing.T) {
	h := newHarness(t)
	f := testutil.SeedPublishedCourse(t, h.ctx, h.db, 2)
	student := uuid.New()
	e := h.enroll(t, student, f.Course.ID)
	h.complete(t, student, f.Course.ID, f.Lessons[0][0].ID)
	h.complete(t, student, f.Course.ID, f.Lessons[0][1].ID)
	if got := h.reload(t, e.ID); got.Status != learning.EnrollmentCompleted || got.CompletedAt == nil {
		t.Fatalf("expected completed enrollment, got %s", got.Status)
	}

	res, err := h.progress.UncompleteLesson(h.ctx, domainagg.LessonToggleInput{
		StudentID: student,
		CourseID:  f.Course.ID,
		LessonID:  f.Lessons[0][1].ID,
	})
	if err != nil {
		t.Fatalf("UncompleteLesson: %v", err)
	}
	if res.Snapshot.Progress != 50 || res.Snapshot.Status != learning.EnrollmentInProgress || res.Snapshot.CompletedAt != nil {
		t.Fatalf("after un-complete: %+v", res.Snapshot)
	}
	if len(res.Snapshot.CompletedModules) != 0 {
		t.Fatalf("module must no longer be complete: %v", res.Snapshot.CompletedModules)
	}
	mp, err := h.moduleProgress.Get(dbctx.Context{Ctx: h.ctx}, e.ID, f.Modules[0].ID)
	if err != nil || mp == nil || mp.IsCompleted || mp.CompletedAt != nil {
		t.Fatalf("module progress after un-complete: %+v err=%v", mp, err)
	}
	lp, err := h.lessonProgress.Get(dbctx.Context{Ctx: h.ctx}, e.ID, f.Lessons[0][1].ID)
	if err != nil || lp == nil || lp.IsCompleted || lp.CompletedAt != nil {
		t.Fatalf("lesson progress after un-complete: %+v err=%v", lp, err)
	}
}

func TestCompleteLessonOutsideCourseWritesNothing(t *testing.T) {
	h := newHarness(t)
	f := testutil.SeedPublishedCourse(t, h.ctx, h.db, 1)
	other := testutil.SeedPublishedCourse(t, h.ctx, h.db, 1)
	student := uuid.New()
	e := h.enroll(t, student, f.Course.ID)

	_, err := h.progress.CompleteLesson(h.ctx, domainagg.LessonToggleInput{
		StudentID: student,
		CourseID:  f.Course.ID,
		LessonID:  other.Lessons[0][0].ID,
	})
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("expected precondition_failed, got %v", err)
	}
	lp, err := h.lessonProgress.Get(dbctx.Context{Ctx: h.ctx}, e.ID, other.Lessons[0][0].ID)
	if err != nil || lp != nil {
		t.Fatalf("no lesson progress row expected: %+v err=%v", lp, err)
	}
	if got := h.reload(t, e.ID); got.LastAccessedAt != nil {
		t.Fatalf("enrollment must be untouched")
	}
}

func TestCompleteLessonWithoutEnrollment(t *testing.T) {
	h := newHarness(t)
	f := testutil.SeedPublishedCourse(t, h.ctx, h.db, 1)
	_, err := h.progress.CompleteLesson(h.ctx, domainagg.LessonToggleInput{
		StudentID: uuid.New(),
		CourseID:  f.Course.ID,
		LessonID:  f.Lessons[0][0].ID,
	})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
	_, err = h.progress.Snapshot(h.ctx, domainagg.EnrollmentKey{StudentID: uuid.New(), CourseID: f.Course.ID})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found snapshot, got %v", err)
	}
}

func TestModuleWithoutPublishedLessonsGetsNoRow(t *testing.T) {
	h := newHarness(t)
	f := testutil.SeedPublishedCourse(t, h.ctx, h.db, 2)
	draftModule := testutil.SeedModule(t, h.ctx, h.db, f.Course.ID, 1, true)
	draftLesson := testutil.SeedLesson(t, h.ctx, h.db, draftModule.ID, 0, false)
	student := uuid.New()
	e := h.enroll(t, student, f.Course.ID)

	res := h.complete(t, student, f.Course.ID, draftLesson.ID)
	if !res.Changed {
		t.Fatalf("lesson row should still flip")
	}
	mp, err := h.moduleProgress.Get(dbctx.Context{Ctx: h.ctx}, e.ID, draftModule.ID)
	if err != nil || mp != nil {
		t.Fatalf("module without published lessons must have no progress row: %+v err=%v", mp, err)
	}
	if h.hooks.CountRecomputes("module", "skipped_empty") != 1 {
		t.Fatalf("expected skipped module recompute, got %+v", h.hooks.Recomputes)
	}
	// unpublished lessons do not count toward the course percentage
	if res.Snapshot.Progress != 0 || res.Snapshot.Status != learning.EnrollmentStarted {
		t.Fatalf("unexpected snapshot: %+v", res.Snapshot)
	}
}

func TestCourseWithoutPublishedLessonsSkipsEnrollmentRecompute(t *testing.T) {
	h := newHarness(t)
	course := testutil.SeedCourse(t, h.ctx, h.db, true)
	m := testutil.SeedModule(t, h.ctx, h.db, course.ID, 0, false)
	l := testutil.SeedLesson(t, h.ctx, h.db, m.ID, 0, true)
	student := uuid.New()
	e := h.enroll(t, student, course.ID)

	h.complete(t, student, course.ID, l.ID)
	got := h.reload(t, e.ID)
	if !got.ProgressPercent.IsZero() || got.Status != learning.EnrollmentStarted || got.LastAccessedAt != nil {
		t.Fatalf("enrollment must be untouched: %+v", got)
	}
	if h.hooks.CountRecomputes("enrollment", "skipped_empty") != 1 {
		t.Fatalf("expected skipped enrollment recompute, got %+v", h.hooks.Recomputes)
	}
}

func TestProgressStaysWithinBounds(t *testing.T) {
	h := newHarness(t)
	f := testutil.SeedPublishedCourse(t, h.ctx, h.db, 3, 4)
	student := uuid.New()
	e := h.enroll(t, student, f.Course.ID)
	hundred := decimal.NewFromInt(100)

	for _, module := range f.Lessons {
		for _, l := range module {
			h.complete(t, student, f.Course.ID, l.ID)
			got := h.reload(t, e.ID)
			if got.ProgressPercent.IsNegative() || got.ProgressPercent.GreaterThan(hundred) {
				t.Fatalf("progress out of bounds: %s", got.ProgressPercent)
			}
			if got.ProgressPercent.Equal(hundred) != (got.Status == learning.EnrollmentCompleted) {
				t.Fatalf("percent/status mismatch: %s %s", got.ProgressPercent, got.Status)
			}
		}
	}
}

func TestConcurrentCompletionsAreSerialized(t *testing.T) {
	h := newHarness(t)
	f := testutil.SeedPublishedCourse(t, h.ctx, h.db, 4, 4)
	student := uuid.New()
	e := h.enroll(t, student, f.Course.ID)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for _, module := range f.Lessons {
		for _, l := range module {
			// each lesson twice to exercise the duplicate path
			for i := 0; i < 2; i++ {
				wg.Add(1)
				go func(lessonID uuid.UUID) {
					defer wg.Done()
					_, err := h.progress.CompleteLesson(h.ctx, domainagg.LessonToggleInput{
						StudentID: student,
						CourseID:  f.Course.ID,
						LessonID:  lessonID,
					})
					if err != nil {
						errs <- err
					}
				}(l.ID)
			}
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent CompleteLesson: %v", err)
	}

	got := h.reload(t, e.ID)
	if !got.ProgressPercent.Equal(decimal.NewFromInt(100)) || got.Status != learning.EnrollmentCompleted {
		t.Fatalf("final enrollment: %s %s", got.ProgressPercent, got.Status)
	}
	ids, err := h.lessonProgress.CompletedLessonIDs(dbctx.Context{Ctx: h.ctx}, e.ID)
	if err != nil || len(ids) != 8 {
		t.Fatalf("completed lessons: n=%d err=%v", len(ids), err)
	}
}

func TestCommitFailureRollsBackCompletion(t *testing.T) {
	commitErr := errors.New("commit failed")
	var runner *aggtest.InjectedTxRunner
	h := newHarnessWithRunner(t, func(db *gorm.DB) aggregates.TxRunner {
		runner = &aggtest.InjectedTxRunner{Inner: aggregates.NewGormTxRunner(db)}
		return runner
	})
	f := testutil.SeedPublishedCourse(t, h.ctx, h.db, 2)
	student := uuid.New()
	e := h.enroll(t, student, f.Course.ID)
	if runner.CommitCalls != 1 {
		t.Fatalf("enroll should have committed once, got %d", runner.CommitCalls)
	}

	runner.FailCommit = commitErr
	_, err := h.progress.CompleteLesson(h.ctx, domainagg.LessonToggleInput{
		StudentID: student,
		CourseID:  f.Course.ID,
		LessonID:  f.Lessons[0][0].ID,
	})
	if !errors.Is(err, commitErr) {
		t.Fatalf("expected commit failure, got %v", err)
	}
	if runner.RollbackCalls != 1 || runner.CommitCalls != 1 {
		t.Fatalf("runner counters: commit=%d rollback=%d", runner.CommitCalls, runner.RollbackCalls)
	}
	got := h.reload(t, e.ID)
	if !got.ProgressPercent.IsZero() || got.LastAccessedAt != nil {
		t.Fatalf("enrollment must be unchanged after rollback: %+v", got)
	}
	lp, err := h.lessonProgress.Get(dbctx.Context{Ctx: h.ctx}, e.ID, f.Lessons[0][0].ID)
	if err != nil || lp != nil {
		t.Fatalf("lesson progress must be rolled back: %+v err=%v", lp, err)
	}
	if len(h.hooks.LessonToggles) != 0 {
		t.Fatalf("hooks must not see events from a rolled back transaction")
	}
}

func TestRecalculateRepairsCachedProgress(t *testing.T) {
	h := newHarness(t)
	f := testutil.SeedPublishedCourse(t, h.ctx, h.db, 2, 2)
	student := uuid.New()
	e := h.enroll(t, student, f.Course.ID)
	h.complete(t, student, f.Course.ID, f.Lessons[0][0].ID)
	h.complete(t, student, f.Course.ID, f.Lessons[0][1].ID)

	// publish a new lesson behind the cache's back
	testutil.SeedLesson(t, h.ctx, h.db, f.Modules[1].ID, 2, true)
	// and corrupt the cached value
	if err := h.enrollments.UpdateFields(dbctx.Context{Ctx: h.ctx}, e.ID, map[string]interface{}{
		"progress_percent": pct("10"),
	}); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	before := h.reload(t, e.ID)

	preview, err := h.progress.Recalculate(h.ctx, domainagg.RecalculateInput{EnrollmentID: e.ID, DryRun: true})
	if err != nil {
		t.Fatalf("Recalculate dry run: %v", err)
	}
	if !preview.NewPercent.Equal(pct("40")) || !preview.Changed() {
		t.Fatalf("dry run result: %+v", preview)
	}
	if got := h.reload(t, e.ID); !got.ProgressPercent.Equal(pct("10")) {
		t.Fatalf("dry run must not write, got %s", got.ProgressPercent)
	}

	res, err := h.progress.Recalculate(h.ctx, domainagg.RecalculateInput{EnrollmentID: e.ID})
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if !res.OldPercent.Equal(pct("10")) || !res.NewPercent.Equal(pct("40")) || res.NewStatus != learning.EnrollmentInProgress {
		t.Fatalf("recalculate result: %+v", res)
	}
	after := h.reload(t, e.ID)
	if !after.ProgressPercent.Equal(pct("40")) {
		t.Fatalf("stored percent: %s", after.ProgressPercent)
	}
	if !after.LastAccessedAt.Equal(*before.LastAccessedAt) {
		t.Fatalf("recalculate must not stamp last_accessed_at")
	}
	again, err := h.progress.Recalculate(h.ctx, domainagg.RecalculateInput{EnrollmentID: e.ID})
	if err != nil || again.Changed() {
		t.Fatalf("second recalculate should be a no-op: %+v err=%v", again, err)
	}
}

func TestRecalculateLeavesUntouchedModulesWithoutRows(t *testing.T) {
	h := newHarness(t)
	f := testutil.SeedPublishedCourse(t, h.ctx, h.db, 2, 2)
	student := uuid.New()
	e := h.enroll(t, student, f.Course.ID)
	h.complete(t, student, f.Course.ID, f.Lessons[0][0].ID)

	dbc := dbctx.Context{Ctx: h.ctx}
	before, err := h.moduleProgress.GetByEnrollmentID(dbc, e.ID)
	if err != nil || len(before) != 1 {
		t.Fatalf("module rows before: n=%d err=%v", len(before), err)
	}
	if _, err := h.progress.Recalculate(h.ctx, domainagg.RecalculateInput{EnrollmentID: e.ID}); err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	after, err := h.moduleProgress.GetByEnrollmentID(dbc, e.ID)
	if err != nil || len(after) != 1 {
		t.Fatalf("module rows after: n=%d err=%v", len(after), err)
	}
	if after[0].ModuleID != f.Modules[0].ID || !after[0].ProgressPercent.Equal(pct("50")) {
		t.Fatalf("module row: %+v", after[0])
	}
	if row, err := h.moduleProgress.Get(dbc, e.ID, f.Modules[1].ID); err != nil || row != nil {
		t.Fatalf("untouched module got a row: %+v err=%v", row, err)
	}
}

func TestRecalculateUnknownEnrollment(t *testing.T) {
	h := newHarness(t)
	_, err := h.progress.Recalculate(h.ctx, domainagg.RecalculateInput{EnrollmentID: uuid.New()})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}
