package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	repos "github.com/lumenlms/lms-backend/internal/data/repos/learning"
	domainagg "github.com/lumenlms/lms-backend/internal/domain/aggregates"
	"github.com/lumenlms/lms-backend/internal/domain/learning"
	"github.com/lumenlms/lms-backend/internal/platform/dbctx"
)

type ProgressAggregatorDeps struct {
	Base BaseDeps

	Catalog        ContentCatalog
	Enrollments    repos.EnrollmentRepo
	LessonProgress repos.LessonProgressRepo
	ModuleProgress repos.ModuleProgressRepo
}

type progressAggregator struct {
	deps ProgressAggregatorDeps
}

func NewProgressAggregator(deps ProgressAggregatorDeps) domainagg.ProgressAggregator {
	deps.Base = deps.Base.withDefaults()
	return &progressAggregator{deps: deps}
}

func (a *progressAggregator) Contract() domainagg.Contract {
	return domainagg.ProgressAggregateContract
}

func validateToggle(op string, in domainagg.LessonToggleInput) error {
	if err := validateKey(op, domainagg.EnrollmentKey{StudentID: in.StudentID, CourseID: in.CourseID}); err != nil {
		return err
	}
	if in.LessonID == uuid.Nil {
		return domainagg.Validation(op, "missing lesson_id")
	}
	return nil
}

func (a *progressAggregator) CompleteLesson(ctx context.Context, in domainagg.LessonToggleInput) (domainagg.LessonToggleResult, error) {
	const op = "Learning.Progress.CompleteLesson"
	return a.toggle(ctx, op, in, true)
}

func (a *progressAggregator) UncompleteLesson(ctx context.Context, in domainagg.LessonToggleInput) (domainagg.LessonToggleResult, error) {
	const op = "Learning.Progress.UncompleteLesson"
	return a.toggle(ctx, op, in, false)
}

// toggle runs validate -> transition -> module recompute -> enrollment
// recompute -> snapshot. Nothing is written unless the transition changed
// the lesson row.
func (a *progressAggregator) toggle(ctx context.Context, op string, in domainagg.LessonToggleInput, complete bool) (domainagg.LessonToggleResult, error) {
	var out domainagg.LessonToggleResult
	if err := validateToggle(op, in); err != nil {
		return out, err
	}
	key := domainagg.EnrollmentKey{StudentID: in.StudentID, CourseID: in.CourseID}
	at := nowOr(in.At)

	var ev events
	err := executeLockedWrite(ctx, a.deps.Base, op, enrollmentLockKey(key), func(dbc dbctx.Context) error {
		ev.reset()
		out = domainagg.LessonToggleResult{}

		e, err := a.lockActive(dbc, op, key)
		if err != nil {
			return err
		}
		inCourse, err := a.deps.Catalog.LessonExistsInCourse(dbc, in.LessonID, in.CourseID)
		if err != nil {
			return err
		}
		if !inCourse {
			return domainagg.PreconditionFailed(op, "Lesson does not belong to this course")
		}

		var changed bool
		if complete {
			changed, err = a.markComplete(dbc, e.ID, in.LessonID, at)
		} else {
			changed, err = a.deps.LessonProgress.MarkIncomplete(dbc, e.ID, in.LessonID, at)
		}
		if err != nil {
			return err
		}
		if !changed && !complete {
			return domainagg.Conflict(op, "Lesson is not completed; nothing to undo")
		}

		if changed {
			direction := "uncomplete"
			if complete {
				direction = "complete"
			}
			ev.add(func(h Hooks) { h.IncLessonToggle(direction) })

			moduleID, err := a.deps.Catalog.ModuleIDForLesson(dbc, in.LessonID)
			if err != nil {
				return err
			}
			if moduleID != nil {
				if err := a.recomputeModule(dbc, &ev, e.ID, *moduleID, at, true); err != nil {
					return err
				}
			}
			if err := a.recomputeEnrollment(dbc, &ev, e, at, true); err != nil {
				return err
			}
		}

		snap, err := a.snapshot(dbc, e)
		if err != nil {
			return err
		}
		out.Snapshot = snap
		out.Changed = changed
		return nil
	})
	if err != nil {
		return domainagg.LessonToggleResult{}, err
	}
	ev.flush(a.deps.Base.Hooks)
	return out, nil
}

func (a *progressAggregator) lockActive(dbc dbctx.Context, op string, key domainagg.EnrollmentKey) (*learning.Enrollment, error) {
	e, err := a.deps.Enrollments.GetActive(dbc, key.StudentID, key.CourseID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, domainagg.NotFound(op, "Not enrolled in this course")
	}
	locked, err := a.deps.Enrollments.LockByID(dbc, e.ID)
	if err != nil {
		return nil, err
	}
	if locked == nil || !locked.IsActive {
		return nil, domainagg.NotFound(op, "Not enrolled in this course")
	}
	return locked, nil
}

// markComplete is get-or-create followed by an incomplete -> complete flip.
func (a *progressAggregator) markComplete(dbc dbctx.Context, enrollmentID, lessonID uuid.UUID, at time.Time) (bool, error) {
	completedAt := at
	inserted, err := a.deps.LessonProgress.CreateIgnoreDuplicates(dbc, &learning.LessonProgress{
		ID:             uuid.New(),
		EnrollmentID:   enrollmentID,
		LessonID:       lessonID,
		IsCompleted:    true,
		CompletedAt:    &completedAt,
		LastAccessedAt: at,
	})
	if err != nil || inserted {
		return inserted, err
	}
	return a.deps.LessonProgress.MarkCompleted(dbc, enrollmentID, lessonID, at)
}

// recomputeModule upserts module progress from the module's published
// lessons. A module without published lessons never gets a row. With create
// unset, a module that has no row and no completed lessons is left alone.
func (a *progressAggregator) recomputeModule(dbc dbctx.Context, ev *events, enrollmentID, moduleID uuid.UUID, at time.Time, create bool) error {
	total, err := a.deps.Catalog.CountPublishedLessonsInModule(dbc, moduleID)
	if err != nil {
		return err
	}
	if total == 0 {
		ev.add(func(h Hooks) { h.IncProgressRecompute("module", "skipped_empty") })
		return nil
	}
	ids, err := a.deps.Catalog.PublishedLessonIDsInModule(dbc, moduleID)
	if err != nil {
		return err
	}
	completed, err := a.deps.LessonProgress.CountCompletedIn(dbc, enrollmentID, ids)
	if err != nil {
		return err
	}
	existing, err := a.deps.ModuleProgress.Get(dbc, enrollmentID, moduleID)
	if err != nil {
		return err
	}
	if existing == nil && completed == 0 && !create {
		ev.add(func(h Hooks) { h.IncProgressRecompute("module", "skipped_untouched") })
		return nil
	}

	isCompleted := completed >= total
	var completedAt *time.Time
	if isCompleted {
		if existing != nil && existing.IsCompleted && existing.CompletedAt != nil {
			completedAt = existing.CompletedAt
		} else {
			stamp := at
			completedAt = &stamp
		}
	}
	row := &learning.ModuleProgress{
		ID:              uuid.New(),
		EnrollmentID:    enrollmentID,
		ModuleID:        moduleID,
		IsCompleted:     isCompleted,
		CompletedAt:     completedAt,
		ProgressPercent: learning.Percent(completed, total),
		UpdatedAt:       at,
	}
	if existing != nil {
		row.ID = existing.ID
	}
	if err := a.deps.ModuleProgress.Upsert(dbc, row); err != nil {
		return err
	}
	ev.add(func(h Hooks) { h.IncProgressRecompute("module", "updated") })
	return nil
}

// recomputeEnrollment refreshes the cached percentage, status and
// completed_at with a partial update. e is updated in place.
func (a *progressAggregator) recomputeEnrollment(dbc dbctx.Context, ev *events, e *learning.Enrollment, at time.Time, touch bool) error {
	total, err := a.deps.Catalog.CountPublishedLessonsInCourse(dbc, e.CourseID)
	if err != nil {
		return err
	}
	if total == 0 {
		ev.add(func(h Hooks) { h.IncProgressRecompute("enrollment", "skipped_empty") })
		return nil
	}
	ids, err := a.deps.Catalog.PublishedLessonIDsInCourse(dbc, e.CourseID)
	if err != nil {
		return err
	}
	completed, err := a.deps.LessonProgress.CountCompletedIn(dbc, e.ID, ids)
	if err != nil {
		return err
	}

	percent := learning.Percent(completed, total)
	status := learning.StatusFor(percent)
	completedAt := e.CompletedAt
	switch {
	case status != learning.EnrollmentCompleted:
		completedAt = nil
	case completedAt == nil:
		stamp := at
		completedAt = &stamp
	}

	updates := map[string]interface{}{
		"status":           status,
		"progress_percent": percent,
		"completed_at":     completedAt,
		"updated_at":       at,
	}
	if touch {
		updates["last_accessed_at"] = at
	}
	if err := a.deps.Enrollments.UpdateFields(dbc, e.ID, updates); err != nil {
		return err
	}
	e.Status = status
	e.ProgressPercent = percent
	e.CompletedAt = completedAt
	e.UpdatedAt = at
	if touch {
		stamp := at
		e.LastAccessedAt = &stamp
	}
	ev.add(func(h Hooks) { h.IncProgressRecompute("enrollment", "updated") })
	return nil
}

func (a *progressAggregator) snapshot(dbc dbctx.Context, e *learning.Enrollment) (learning.ProgressSnapshot, error) {
	lessons, err := a.deps.LessonProgress.CompletedLessonIDs(dbc, e.ID)
	if err != nil {
		return learning.ProgressSnapshot{}, err
	}
	modules, err := a.deps.ModuleProgress.CompletedModuleIDs(dbc, e.ID)
	if err != nil {
		return learning.ProgressSnapshot{}, err
	}
	return learning.NewProgressSnapshot(e, lessons, modules), nil
}

func (a *progressAggregator) Snapshot(ctx context.Context, key domainagg.EnrollmentKey) (learning.ProgressSnapshot, error) {
	const op = "Learning.Progress.Snapshot"
	if err := validateKey(op, key); err != nil {
		return learning.ProgressSnapshot{}, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	e, err := a.deps.Enrollments.GetActive(dbc, key.StudentID, key.CourseID)
	if err != nil {
		return learning.ProgressSnapshot{}, MapError(op, err)
	}
	if e == nil {
		return learning.ProgressSnapshot{}, domainagg.NotFound(op, "Not enrolled in this course")
	}
	snap, err := a.snapshot(dbc, e)
	return snap, MapError(op, err)
}

func (a *progressAggregator) Recalculate(ctx context.Context, in domainagg.RecalculateInput) (domainagg.RecalculateResult, error) {
	const op = "Learning.Progress.Recalculate"
	var out domainagg.RecalculateResult
	if in.EnrollmentID == uuid.Nil {
		return out, domainagg.Validation(op, "missing enrollment_id")
	}
	at := nowOr(in.At)

	current, err := a.deps.Enrollments.GetByID(dbctx.Context{Ctx: ctx}, in.EnrollmentID)
	if err != nil {
		return out, MapError(op, err)
	}
	if current == nil {
		return out, domainagg.NotFound(op, "enrollment not found")
	}
	if in.DryRun {
		return a.previewRecalculate(ctx, op, current)
	}

	key := domainagg.EnrollmentKey{StudentID: current.StudentID, CourseID: current.CourseID}
	var ev events
	err = executeLockedWrite(ctx, a.deps.Base, op, enrollmentLockKey(key), func(dbc dbctx.Context) error {
		ev.reset()
		e, err := a.deps.Enrollments.LockByID(dbc, in.EnrollmentID)
		if err != nil {
			return err
		}
		if e == nil {
			return domainagg.NotFound(op, "enrollment not found")
		}
		out = domainagg.RecalculateResult{
			EnrollmentID: e.ID,
			CourseID:     e.CourseID,
			StudentID:    e.StudentID,
			OldPercent:   e.ProgressPercent,
			NewPercent:   e.ProgressPercent,
			OldStatus:    e.Status,
			NewStatus:    e.Status,
		}

		moduleIDs, err := a.deps.Catalog.ModuleIDsInCourse(dbc, e.CourseID)
		if err != nil {
			return err
		}
		for _, moduleID := range moduleIDs {
			if err := a.recomputeModule(dbc, &ev, e.ID, moduleID, at, false); err != nil {
				return err
			}
		}

		total, err := a.deps.Catalog.CountPublishedLessonsInCourse(dbc, e.CourseID)
		if err != nil {
			return err
		}
		if total == 0 {
			out.Skipped = true
			return nil
		}
		if err := a.recomputeEnrollment(dbc, &ev, e, at, false); err != nil {
			return err
		}
		out.NewPercent = e.ProgressPercent
		out.NewStatus = e.Status
		return nil
	})
	if err != nil {
		return domainagg.RecalculateResult{}, err
	}
	ev.flush(a.deps.Base.Hooks)
	return out, nil
}

func (a *progressAggregator) previewRecalculate(ctx context.Context, op string, e *learning.Enrollment) (domainagg.RecalculateResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	out := domainagg.RecalculateResult{
		EnrollmentID: e.ID,
		CourseID:     e.CourseID,
		StudentID:    e.StudentID,
		OldPercent:   e.ProgressPercent,
		NewPercent:   e.ProgressPercent,
		OldStatus:    e.Status,
		NewStatus:    e.Status,
	}
	ids, err := a.deps.Catalog.PublishedLessonIDsInCourse(dbc, e.CourseID)
	if err != nil {
		return out, MapError(op, err)
	}
	if len(ids) == 0 {
		out.Skipped = true
		return out, nil
	}
	completed, err := a.deps.LessonProgress.CountCompletedIn(dbc, e.ID, ids)
	if err != nil {
		return out, MapError(op, err)
	}
	out.NewPercent = learning.Percent(completed, int64(len(ids)))
	out.NewStatus = learning.StatusFor(out.NewPercent)
	return out, nil
}
