package aggregates_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlms/lms-backend/internal/data/aggregates"
	aggtest "github.com/lumenlms/lms-backend/internal/data/aggregates/testutil"
	"github.com/lumenlms/lms-backend/internal/data/catalog"
	repos "github.com/lumenlms/lms-backend/internal/data/repos/learning"
	"github.com/lumenlms/lms-backend/internal/data/repos/testutil"
	domainagg "github.com/lumenlms/lms-backend/internal/domain/aggregates"
	"github.com/lumenlms/lms-backend/internal/domain/learning"
	"github.com/lumenlms/lms-backend/internal/platform/dbctx"
	"github.com/lumenlms/lms-backend/internal/platform/locks"
)

type harness struct {
	ctx   context.Context
	db    *gorm.DB
	hooks *aggtest.HooksRecorder

	enrollments    repos.EnrollmentRepo
	lessonProgress repos.LessonProgressRepo
	moduleProgress repos.ModuleProgressRepo

	store    domainagg.EnrollmentStore
	progress domainagg.ProgressAggregator
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithRunner(t, nil)
}

// newHarnessWithRunner lets a test wrap the real transaction runner.
func newHarnessWithRunner(t *testing.T, wrap func(db *gorm.DB) aggregates.TxRunner) *harness {
	t.Helper()
	db := testutil.DB(t)
	var runner aggregates.TxRunner
	if wrap != nil {
		runner = wrap(db)
	}
	log := testutil.Logger(t)
	h := &harness{
		ctx:            context.Background(),
		db:             db,
		hooks:          &aggtest.HooksRecorder{},
		enrollments:    repos.NewEnrollmentRepo(db, log),
		lessonProgress: repos.NewLessonProgressRepo(db, log),
		moduleProgress: repos.NewModuleProgressRepo(db, log),
	}
	base := aggregates.BaseDeps{
		DB:     db,
		Log:    log,
		Runner: runner,
		Hooks:  h.hooks,
		Locker: locks.NewLocal(),
	}
	h.store = aggregates.NewEnrollmentStore(aggregates.EnrollmentStoreDeps{
		Base:           base,
		Enrollments:    h.enrollments,
		LessonProgress: h.lessonProgress,
		ModuleProgress: h.moduleProgress,
	})
	h.progress = aggregates.NewProgressAggregator(aggregates.ProgressAggregatorDeps{
		Base:           base,
		Catalog:        catalog.New(db, log),
		Enrollments:    h.enrollments,
		LessonProgress: h.lessonProgress,
		ModuleProgress: h.moduleProgress,
	})
	return h
}

func (h *harness) enroll(t *testing.T, studentID, courseID uuid.UUID) *learning.Enrollment {
	t.Helper()
	res, err := h.store.Enroll(h.ctx, domainagg.EnrollInput{StudentID: studentID, CourseID: courseID})
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	return res.Enrollment
}

func (h *harness) reload(t *testing.T, id uuid.UUID) *learning.Enrollment {
	t.Helper()
	e, err := h.enrollments.GetByID(dbctx.Context{Ctx: h.ctx}, id)
	if err != nil || e == nil {
		t.Fatalf("reload enrollment: e=%v err=%v", e, err)
	}
	return e
}

func (h *harness) complete(t *testing.T, studentID, courseID, lessonID uuid.UUID) domainagg.LessonToggleResult {
	t.Helper()
	res, err := h.progress.CompleteLesson(h.ctx, domainagg.LessonToggleInput{
		StudentID: studentID,
		CourseID:  courseID,
		LessonID:  lessonID,
	})
	if err != nil {
		t.Fatalf("CompleteLesson: %v", err)
	}
	return res
}

func (h *harness) countEnrollments(t *testing.T, studentID, courseID uuid.UUID) int64 {
	t.Helper()
	var n int64
	if err := h.db.Model(&learning.Enrollment{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Count(&n).Error; err != nil {
		t.Fatalf("count enrollments: %v", err)
	}
	return n
}
