package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	repos "github.com/lumenlms/lms-backend/internal/data/repos/learning"
	domainagg "github.com/lumenlms/lms-backend/internal/domain/aggregates"
	"github.com/lumenlms/lms-backend/internal/domain/learning"
	"github.com/lumenlms/lms-backend/internal/platform/dbctx"
)

type EnrollmentStoreDeps struct {
	Base BaseDeps

	Enrollments    repos.EnrollmentRepo
	LessonProgress repos.LessonProgressRepo
	ModuleProgress repos.ModuleProgressRepo
}

type enrollmentStore struct {
	deps EnrollmentStoreDeps
}

func NewEnrollmentStore(deps EnrollmentStoreDeps) domainagg.EnrollmentStore {
	deps.Base = deps.Base.withDefaults()
	if deps.LessonProgress == nil {
		deps.LessonProgress = repos.NewLessonProgressRepo(deps.Base.DB, deps.Base.Log)
	}
	if deps.ModuleProgress == nil {
		deps.ModuleProgress = repos.NewModuleProgressRepo(deps.Base.DB, deps.Base.Log)
	}
	return &enrollmentStore{deps: deps}
}

func (s *enrollmentStore) Contract() domainagg.Contract {
	return domainagg.EnrollmentAggregateContract
}

func validateKey(op string, key domainagg.EnrollmentKey) error {
	if key.StudentID == uuid.Nil {
		return domainagg.Validation(op, "missing student_id")
	}
	if key.CourseID == uuid.Nil {
		return domainagg.Validation(op, "missing course_id")
	}
	return nil
}

func (s *enrollmentStore) Enroll(ctx context.Context, in domainagg.EnrollInput) (domainagg.EnrollResult, error) {
	const op = "Learning.Enrollment.Enroll"
	var out domainagg.EnrollResult
	key := domainagg.EnrollmentKey{StudentID: in.StudentID, CourseID: in.CourseID}
	if err := validateKey(op, key); err != nil {
		return out, err
	}
	at := nowOr(in.At)

	var ev events
	err := executeLockedWrite(ctx, s.deps.Base, op, enrollmentLockKey(key), func(dbc dbctx.Context) error {
		ev.reset()
		out = domainagg.EnrollResult{}

		existing, err := s.deps.Enrollments.GetByStudentAndCourse(dbc, key.StudentID, key.CourseID)
		if err != nil {
			return err
		}
		if existing == nil {
			row := &learning.Enrollment{
				ID:              uuid.New(),
				StudentID:       key.StudentID,
				CourseID:        key.CourseID,
				Status:          learning.EnrollmentStarted,
				ProgressPercent: decimal.Zero,
				IsActive:        true,
				EnrolledAt:      at,
			}
			inserted, err := s.deps.Enrollments.CreateIgnoreDuplicates(dbc, row)
			if err != nil {
				return err
			}
			if inserted {
				out.Enrollment = row
				out.Created = true
				ev.add(func(h Hooks) { h.IncEnrollmentChange("created") })
				return nil
			}
			// another writer won the insert; fall through with its row
			existing, err = s.deps.Enrollments.GetByStudentAndCourse(dbc, key.StudentID, key.CourseID)
			if err != nil {
				return err
			}
			if existing == nil {
				return RetryableError("enrollment vanished after conflicting insert")
			}
		}

		if !existing.IsActive {
			status := learning.EnrollmentStarted
			if err := s.deps.Enrollments.UpdateFields(dbc, existing.ID, map[string]interface{}{
				"is_active":  true,
				"status":     status,
				"updated_at": at,
			}); err != nil {
				return err
			}
			existing.IsActive = true
			existing.Status = status
			existing.UpdatedAt = at
			out.Reactivated = true
			ev.add(func(h Hooks) { h.IncEnrollmentChange("reactivated") })
		}
		out.Enrollment = existing
		return nil
	})
	if err != nil {
		return domainagg.EnrollResult{}, err
	}
	ev.flush(s.deps.Base.Hooks)
	return out, nil
}

func (s *enrollmentStore) Unenroll(ctx context.Context, key domainagg.EnrollmentKey, at time.Time) (bool, error) {
	const op = "Learning.Enrollment.Unenroll"
	if err := validateKey(op, key); err != nil {
		return false, err
	}
	at = nowOr(at)
	var deactivated bool
	err := executeLockedWrite(ctx, s.deps.Base, op, enrollmentLockKey(key), func(dbc dbctx.Context) error {
		ok, err := s.deps.Enrollments.Deactivate(dbc, key.StudentID, key.CourseID, at)
		deactivated = ok
		return err
	})
	if err != nil {
		return false, err
	}
	if deactivated {
		s.deps.Base.Hooks.IncEnrollmentChange("deactivated")
	}
	return deactivated, nil
}

func (s *enrollmentStore) GetActive(ctx context.Context, key domainagg.EnrollmentKey) (*learning.Enrollment, error) {
	const op = "Learning.Enrollment.GetActive"
	if err := validateKey(op, key); err != nil {
		return nil, err
	}
	e, err := s.deps.Enrollments.GetActive(dbctx.Context{Ctx: ctx}, key.StudentID, key.CourseID)
	return e, MapError(op, err)
}

func (s *enrollmentStore) ListActive(ctx context.Context, studentID uuid.UUID, filter learning.EnrollmentFilter) ([]*learning.Enrollment, error) {
	const op = "Learning.Enrollment.ListActive"
	if studentID == uuid.Nil {
		return nil, domainagg.Validation(op, "missing student_id")
	}
	if _, err := learning.ParseEnrollmentFilter(string(filter)); err != nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
	}
	rows, err := s.deps.Enrollments.ListActiveByStudent(dbctx.Context{Ctx: ctx}, studentID, filter)
	return rows, MapError(op, err)
}

func (s *enrollmentStore) TouchLastAccessed(ctx context.Context, key domainagg.EnrollmentKey, at time.Time) (*learning.Enrollment, error) {
	const op = "Learning.Enrollment.TouchLastAccessed"
	if err := validateKey(op, key); err != nil {
		return nil, err
	}
	at = nowOr(at)
	var out *learning.Enrollment
	err := executeLockedWrite(ctx, s.deps.Base, op, enrollmentLockKey(key), func(dbc dbctx.Context) error {
		e, err := s.deps.Enrollments.GetActive(dbc, key.StudentID, key.CourseID)
		if err != nil {
			return err
		}
		if e == nil {
			return domainagg.NotFound(op, "Not enrolled in this course")
		}
		if err := s.deps.Enrollments.TouchLastAccessed(dbc, e.ID, at); err != nil {
			return err
		}
		e.LastAccessedAt = &at
		e.UpdatedAt = at
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *enrollmentStore) Delete(ctx context.Context, enrollmentIDs []uuid.UUID) error {
	const op = "Learning.Enrollment.Delete"
	ids := make([]uuid.UUID, 0, len(enrollmentIDs))
	for _, id := range enrollmentIDs {
		if id != uuid.Nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return executeWrite(ctx, s.deps.Base, op, func(dbc dbctx.Context) error {
		if err := s.deps.LessonProgress.FullDeleteByEnrollmentIDs(dbc, ids); err != nil {
			return err
		}
		if err := s.deps.ModuleProgress.FullDeleteByEnrollmentIDs(dbc, ids); err != nil {
			return err
		}
		return s.deps.Enrollments.FullDeleteByIDs(dbc, ids)
	})
}
