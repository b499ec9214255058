package aggregates_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumenlms/lms-backend/internal/data/repos/testutil"
	domainagg "github.com/lumenlms/lms-backend/internal/domain/aggregates"
	"github.com/lumenlms/lms-backend/internal/domain/learning"
	"github.com/lumenlms/lms-backend/internal/platform/dbctx"
)

func TestEnrollTwiceKeepsOneRow(t *testing.T) {
	h := newHarness(t)
	course := testutil.SeedPublishedCourse(t, h.ctx, h.db, 1).Course
	student := uuid.New()

	first, err := h.store.Enroll(h.ctx, domainagg.EnrollInput{StudentID: student, CourseID: course.ID})
	if err != nil {
		t.Fatalf("first Enroll: %v", err)
	}
	if !first.Created || first.Reactivated {
		t.Fatalf("first enroll flags: %+v", first)
	}
	if first.Enrollment.Status != learning.EnrollmentStarted || !first.Enrollment.IsActive {
		t.Fatalf("unexpected new enrollment: %+v", first.Enrollment)
	}

	second, err := h.store.Enroll(h.ctx, domainagg.EnrollInput{StudentID: student, CourseID: course.ID})
	if err != nil {
		t.Fatalf("second Enroll: %v", err)
	}
	if second.Created || second.Reactivated {
		t.Fatalf("second enroll must be a no-op: %+v", second)
	}
	if second.Enrollment.ID != first.Enrollment.ID {
		t.Fatalf("expected same row, got %s vs %s", second.Enrollment.ID, first.Enrollment.ID)
	}
	if !second.Enrollment.EnrolledAt.Equal(h.reload(t, first.Enrollment.ID).EnrolledAt) {
		t.Fatalf("enrolled_at changed on repeat enroll")
	}
	if n := h.countEnrollments(t, student, course.ID); n != 1 {
		t.Fatalf("expected 1 enrollment row, got %d", n)
	}
	if len(h.hooks.EnrollmentChanges) != 1 || h.hooks.EnrollmentChanges[0] != "created" {
		t.Fatalf("unexpected enrollment change events: %v", h.hooks.EnrollmentChanges)
	}
}

func TestUnenrollThenEnrollReactivatesSameRow(t *testing.T) {
	h := newHarness(t)
	course := testutil.SeedPublishedCourse(t, h.ctx, h.db, 2).Course
	student := uuid.New()
	key := domainagg.EnrollmentKey{StudentID: student, CourseID: course.ID}

	original := h.enroll(t, student, course.ID)

	ok, err := h.store.Unenroll(h.ctx, key, time.Time{})
	if err != nil || !ok {
		t.Fatalf("Unenroll: ok=%v err=%v", ok, err)
	}
	if got, err := h.store.GetActive(h.ctx, key); err != nil || got != nil {
		t.Fatalf("GetActive after unenroll: got=%v err=%v", got, err)
	}
	if e := h.reload(t, original.ID); e.IsActive {
		t.Fatalf("row should be kept but inactive")
	}

	ok, err = h.store.Unenroll(h.ctx, key, time.Time{})
	if err != nil || ok {
		t.Fatalf("second Unenroll must report no-op: ok=%v err=%v", ok, err)
	}

	res, err := h.store.Enroll(h.ctx, domainagg.EnrollInput{StudentID: student, CourseID: course.ID})
	if err != nil {
		t.Fatalf("re-Enroll: %v", err)
	}
	if !res.Reactivated || res.Created {
		t.Fatalf("expected reactivation: %+v", res)
	}
	if res.Enrollment.ID != original.ID {
		t.Fatalf("expected same row after reactivation")
	}
	got := h.reload(t, original.ID)
	if !got.IsActive || got.Status != learning.EnrollmentStarted {
		t.Fatalf("reactivated row: active=%v status=%s", got.IsActive, got.Status)
	}
	if n := h.countEnrollments(t, student, course.ID); n != 1 {
		t.Fatalf("expected 1 enrollment row, got %d", n)
	}
}

func TestReactivationResetsStatusAndKeepsProgress(t *testing.T) {
	h := newHarness(t)
	f := testutil.SeedPublishedCourse(t, h.ctx, h.db, 2)
	student := uuid.New()
	key := domainagg.EnrollmentKey{StudentID: student, CourseID: f.Course.ID}

	h.enroll(t, student, f.Course.ID)
	h.complete(t, student, f.Course.ID, f.Lessons[0][0].ID)

	if _, err := h.store.Unenroll(h.ctx, key, time.Time{}); err != nil {
		t.Fatalf("Unenroll: %v", err)
	}
	res, err := h.store.Enroll(h.ctx, domainagg.EnrollInput{StudentID: student, CourseID: f.Course.ID})
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if !res.Reactivated {
		t.Fatalf("expected reactivation: %+v", res)
	}
	if res.Enrollment.Status != learning.EnrollmentStarted || !res.Enrollment.ProgressPercent.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("reactivated: percent=%s status=%s", res.Enrollment.ProgressPercent, res.Enrollment.Status)
	}
	got := h.reload(t, res.Enrollment.ID)
	if got.Status != learning.EnrollmentStarted || !got.ProgressPercent.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("stored: percent=%s status=%s", got.ProgressPercent, got.Status)
	}
}

func TestEnrollValidation(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.Enroll(h.ctx, domainagg.EnrollInput{StudentID: uuid.New()})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err = h.store.ListActive(h.ctx, uuid.New(), learning.EnrollmentFilter("bogus"))
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation error for filter, got %v", err)
	}
}

func TestListActiveFilters(t *testing.T) {
	h := newHarness(t)
	student := uuid.New()
	done := testutil.SeedPublishedCourse(t, h.ctx, h.db, 1)
	ongoing := testutil.SeedPublishedCourse(t, h.ctx, h.db, 2)
	dropped := testutil.SeedPublishedCourse(t, h.ctx, h.db, 1)

	h.enroll(t, student, done.Course.ID)
	h.complete(t, student, done.Course.ID, done.Lessons[0][0].ID)
	h.enroll(t, student, ongoing.Course.ID)
	h.enroll(t, student, dropped.Course.ID)
	if _, err := h.store.Unenroll(h.ctx, domainagg.EnrollmentKey{StudentID: student, CourseID: dropped.Course.ID}, time.Time{}); err != nil {
		t.Fatalf("Unenroll: %v", err)
	}

	all, err := h.store.ListActive(h.ctx, student, learning.FilterAll)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListActive all: n=%d err=%v", len(all), err)
	}
	for _, e := range all {
		if e.Course == nil {
			t.Fatalf("expected course preloaded")
		}
	}
	completed, err := h.store.ListActive(h.ctx, student, learning.FilterCompleted)
	if err != nil || len(completed) != 1 || completed[0].CourseID != done.Course.ID {
		t.Fatalf("ListActive completed: %v err=%v", completed, err)
	}
	open, err := h.store.ListActive(h.ctx, student, learning.FilterOngoing)
	if err != nil || len(open) != 1 || open[0].CourseID != ongoing.Course.ID {
		t.Fatalf("ListActive ongoing: %v err=%v", open, err)
	}
}

func TestTouchLastAccessed(t *testing.T) {
	h := newHarness(t)
	course := testutil.SeedPublishedCourse(t, h.ctx, h.db, 1).Course
	student := uuid.New()
	key := domainagg.EnrollmentKey{StudentID: student, CourseID: course.ID}

	if _, err := h.store.TouchLastAccessed(h.ctx, key, time.Time{}); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found before enrolling, got %v", err)
	}
	e := h.enroll(t, student, course.ID)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got, err := h.store.TouchLastAccessed(h.ctx, key, at)
	if err != nil {
		t.Fatalf("TouchLastAccessed: %v", err)
	}
	if got.LastAccessedAt == nil || !got.LastAccessedAt.Equal(at) {
		t.Fatalf("returned last_accessed_at: %v", got.LastAccessedAt)
	}
	stored := h.reload(t, e.ID)
	if stored.LastAccessedAt == nil || !stored.LastAccessedAt.Equal(at) {
		t.Fatalf("stored last_accessed_at: %v", stored.LastAccessedAt)
	}
}

func TestDeleteRemovesProgressRows(t *testing.T) {
	h := newHarness(t)
	f := testutil.SeedPublishedCourse(t, h.ctx, h.db, 2)
	student := uuid.New()
	e := h.enroll(t, student, f.Course.ID)
	h.complete(t, student, f.Course.ID, f.Lessons[0][0].ID)

	if err := h.store.Delete(h.ctx, []uuid.UUID{e.ID, uuid.Nil}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	dbc := dbctx.Context{Ctx: h.ctx}
	if got, err := h.enrollments.GetByID(dbc, e.ID); err != nil || got != nil {
		t.Fatalf("enrollment should be gone: got=%v err=%v", got, err)
	}
	if ids, err := h.lessonProgress.CompletedLessonIDs(dbc, e.ID); err != nil || len(ids) != 0 {
		t.Fatalf("lesson progress should be gone: ids=%v err=%v", ids, err)
	}
	if rows, err := h.moduleProgress.GetByEnrollmentID(dbc, e.ID); err != nil || len(rows) != 0 {
		t.Fatalf("module progress should be gone: rows=%v err=%v", rows, err)
	}
	if err := h.store.Delete(h.ctx, nil); err != nil {
		t.Fatalf("Delete empty: %v", err)
	}
}
