package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumenlms/lms-backend/internal/domain/learning"
)

var ProgressAggregateContract = Contract{
	Name:   "Learning.ProgressAggregator",
	Tables: []string{"lesson_progress", "module_progress", "enrollment"},
	Derived: []string{
		"module_progress.progress_percent",
		"module_progress.is_completed",
		"enrollment.progress_percent",
		"enrollment.status",
		"enrollment.completed_at",
	},
	LockScope: EnrollmentAggregateContract.LockScope,
	Notes:     "Lesson completion, module progress and cached enrollment progress change in one transaction.",
}

// ProgressAggregator owns lesson completion and the cached module and
// enrollment percentages derived from it.
//
// Failures are *aggregates.Error. A lesson outside the enrollment's course is
// CodePreconditionFailed; an un-complete with nothing to undo is CodeConflict;
// a missing active enrollment is CodeNotFound.
type ProgressAggregator interface {
	Aggregate

	// CompleteLesson marks the lesson complete and recomputes progress.
	// Completing an already complete lesson changes nothing.
	CompleteLesson(ctx context.Context, in LessonToggleInput) (LessonToggleResult, error)

	// UncompleteLesson reverts a completed lesson and recomputes progress.
	UncompleteLesson(ctx context.Context, in LessonToggleInput) (LessonToggleResult, error)

	// Snapshot reads the current progress of the active enrollment.
	Snapshot(ctx context.Context, key EnrollmentKey) (learning.ProgressSnapshot, error)

	// Recalculate rebuilds module and enrollment progress for one enrollment
	// from its lesson progress rows. It does not stamp last_accessed_at.
	Recalculate(ctx context.Context, in RecalculateInput) (RecalculateResult, error)
}

type LessonToggleInput struct {
	StudentID uuid.UUID
	CourseID  uuid.UUID
	LessonID  uuid.UUID
	At        time.Time
}

type LessonToggleResult struct {
	Snapshot learning.ProgressSnapshot
	// Changed is false when the lesson was already in the requested state.
	Changed bool
}

type RecalculateInput struct {
	EnrollmentID uuid.UUID
	// DryRun computes the new percentage without writing anything.
	DryRun bool
	At     time.Time
}

type RecalculateResult struct {
	EnrollmentID uuid.UUID
	CourseID     uuid.UUID
	StudentID    uuid.UUID
	OldPercent   decimal.Decimal
	NewPercent   decimal.Decimal
	OldStatus    learning.EnrollmentStatus
	NewStatus    learning.EnrollmentStatus
	// Skipped is true when the course has no published lessons.
	Skipped bool
}

func (r RecalculateResult) Changed() bool {
	return !r.OldPercent.Equal(r.NewPercent) || r.OldStatus != r.NewStatus
}
