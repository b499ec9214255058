package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lumenlms/lms-backend/internal/domain/learning"
)

var EnrollmentAggregateContract = Contract{
	Name:      "Learning.EnrollmentStore",
	Tables:    []string{"enrollment"},
	Derived:   []string{"enrollment.status"},
	LockScope: "enrollment:{student_id}:{course_id}",
	Notes:     "One enrollment row per (student, course); unenroll deactivates, enroll reactivates.",
}

// EnrollmentKey identifies an enrollment by its natural key.
type EnrollmentKey struct {
	StudentID uuid.UUID
	CourseID  uuid.UUID
}

// EnrollmentStore owns the enrollment lifecycle. It does not check that the
// course exists or is published; callers do that first.
//
// Failures are *aggregates.Error with CodeValidation, CodeNotFound,
// CodeConflict, CodeRetryable or CodeInternal.
type EnrollmentStore interface {
	Aggregate

	// Enroll gets or creates the enrollment for key. An inactive row is
	// reactivated in place; an active row is returned unchanged.
	Enroll(ctx context.Context, in EnrollInput) (EnrollResult, error)

	// Unenroll deactivates the active enrollment at at. false means none was
	// active.
	Unenroll(ctx context.Context, key EnrollmentKey, at time.Time) (bool, error)

	// GetActive returns nil when the student has no active enrollment.
	GetActive(ctx context.Context, key EnrollmentKey) (*learning.Enrollment, error)
	ListActive(ctx context.Context, studentID uuid.UUID, filter learning.EnrollmentFilter) ([]*learning.Enrollment, error)

	// TouchLastAccessed stamps last_accessed_at on the active enrollment.
	TouchLastAccessed(ctx context.Context, key EnrollmentKey, at time.Time) (*learning.Enrollment, error)

	// Delete removes enrollments together with their progress rows.
	Delete(ctx context.Context, enrollmentIDs []uuid.UUID) error
}

type EnrollInput struct {
	StudentID uuid.UUID
	CourseID  uuid.UUID
	At        time.Time
}

type EnrollResult struct {
	Enrollment  *learning.Enrollment
	Created     bool
	Reactivated bool
}
