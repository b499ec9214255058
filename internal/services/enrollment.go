package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainagg "github.com/lumenlms/lms-backend/internal/domain/aggregates"
	"github.com/lumenlms/lms-backend/internal/domain/learning"
	"github.com/lumenlms/lms-backend/internal/platform/dbctx"
	"github.com/lumenlms/lms-backend/internal/platform/logger"
)

// CourseLookup is the slice of the content catalog the enrollment façade needs.
type CourseLookup interface {
	CourseExists(dbc dbctx.Context, courseID uuid.UUID) (bool, error)
	PublishedCourseExists(dbc dbctx.Context, courseID uuid.UUID) (bool, error)
}

type EnrollmentService interface {
	Enroll(ctx context.Context, courseID uuid.UUID) (domainagg.EnrollResult, error)
	Unenroll(ctx context.Context, courseID uuid.UUID) error
	EnrollmentStatus(ctx context.Context, courseID uuid.UUID) (*EnrollmentStatusView, error)
	ListMyEnrollments(ctx context.Context, statusFilter string) ([]*learning.Enrollment, error)
	RecordAccess(ctx context.Context, courseID uuid.UUID) (*learning.Enrollment, error)
}

type EnrollmentStatusView struct {
	IsEnrolled bool
	Enrollment *learning.Enrollment
}

type enrollmentService struct {
	log     *logger.Logger
	store   domainagg.EnrollmentStore
	courses CourseLookup
}

func NewEnrollmentService(baseLog *logger.Logger, store domainagg.EnrollmentStore, courses CourseLookup) EnrollmentService {
	return &enrollmentService{
		log:     baseLog.With("service", "EnrollmentService"),
		store:   store,
		courses: courses,
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, courseID uuid.UUID) (domainagg.EnrollResult, error) {
	const op = "EnrollmentService.Enroll"
	studentID, err := studentFrom(ctx)
	if err != nil {
		return domainagg.EnrollResult{}, err
	}
	ok, err := s.courses.PublishedCourseExists(dbctx.Context{Ctx: ctx}, courseID)
	if err != nil {
		return domainagg.EnrollResult{}, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if !ok {
		return domainagg.EnrollResult{}, domainagg.NotFound(op, "Course not found")
	}
	res, err := s.store.Enroll(ctx, domainagg.EnrollInput{StudentID: studentID, CourseID: courseID})
	if err != nil {
		return domainagg.EnrollResult{}, err
	}
	if res.Created || res.Reactivated {
		s.log.Info("student enrolled",
			"student_id", studentID,
			"course_id", courseID,
			"enrollment_id", res.Enrollment.ID,
			"reactivated", res.Reactivated,
		)
	}
	return res, nil
}

func (s *enrollmentService) Unenroll(ctx context.Context, courseID uuid.UUID) error {
	const op = "EnrollmentService.Unenroll"
	studentID, err := studentFrom(ctx)
	if err != nil {
		return err
	}
	if err := s.requireCourse(ctx, op, courseID); err != nil {
		return err
	}
	ok, err := s.store.Unenroll(ctx, domainagg.EnrollmentKey{StudentID: studentID, CourseID: courseID}, time.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return domainagg.Conflict(op, "Not enrolled in this course")
	}
	s.log.Info("student unenrolled", "student_id", studentID, "course_id", courseID)
	return nil
}

func (s *enrollmentService) EnrollmentStatus(ctx context.Context, courseID uuid.UUID) (*EnrollmentStatusView, error) {
	const op = "EnrollmentService.EnrollmentStatus"
	studentID, err := studentFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.requireCourse(ctx, op, courseID); err != nil {
		return nil, err
	}
	e, err := s.store.GetActive(ctx, domainagg.EnrollmentKey{StudentID: studentID, CourseID: courseID})
	if err != nil {
		return nil, err
	}
	return &EnrollmentStatusView{IsEnrolled: e != nil, Enrollment: e}, nil
}

func (s *enrollmentService) ListMyEnrollments(ctx context.Context, statusFilter string) ([]*learning.Enrollment, error) {
	const op = "EnrollmentService.ListMyEnrollments"
	studentID, err := studentFrom(ctx)
	if err != nil {
		return nil, err
	}
	filter, err := learning.ParseEnrollmentFilter(statusFilter)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
	}
	return s.store.ListActive(ctx, studentID, filter)
}

func (s *enrollmentService) RecordAccess(ctx context.Context, courseID uuid.UUID) (*learning.Enrollment, error) {
	studentID, err := studentFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.TouchLastAccessed(ctx, domainagg.EnrollmentKey{StudentID: studentID, CourseID: courseID}, time.Now().UTC())
}

func (s *enrollmentService) requireCourse(ctx context.Context, op string, courseID uuid.UUID) error {
	exists, err := s.courses.CourseExists(dbctx.Context{Ctx: ctx}, courseID)
	if err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if !exists {
		return domainagg.NotFound(op, "Course not found")
	}
	return nil
}
