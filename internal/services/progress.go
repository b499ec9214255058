package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	repos "github.com/lumenlms/lms-backend/internal/data/repos/learning"
	domainagg "github.com/lumenlms/lms-backend/internal/domain/aggregates"
	"github.com/lumenlms/lms-backend/internal/domain/learning"
	"github.com/lumenlms/lms-backend/internal/platform/dbctx"
	"github.com/lumenlms/lms-backend/internal/platform/logger"
)

type ProgressService interface {
	GetCourseProgress(ctx context.Context, courseID uuid.UUID) (learning.ProgressSnapshot, error)
	CompleteLesson(ctx context.Context, courseID, lessonID uuid.UUID) (domainagg.LessonToggleResult, error)
	UncompleteLesson(ctx context.Context, courseID, lessonID uuid.UUID) (domainagg.LessonToggleResult, error)
	// RecalculateAll rebuilds cached progress for active enrollments. It is
	// meant for maintenance tooling and does not read a caller from ctx.
	RecalculateAll(ctx context.Context, opts RecalculateOptions) (RecalculateSummary, error)
}

type RecalculateOptions struct {
	CourseID    *uuid.UUID
	DryRun      bool
	Concurrency int
	Limit       int
	// OnStart is called once with the number of enrollments selected.
	OnStart func(total int)
	// OnResult is called once per processed enrollment, never concurrently.
	OnResult func(index, total int, res domainagg.RecalculateResult)
}

type RecalculateSummary struct {
	Total   int
	Changed int
	Skipped int
	Failed  int
}

type progressService struct {
	log         *logger.Logger
	aggregator  domainagg.ProgressAggregator
	enrollments repos.EnrollmentRepo
}

func NewProgressService(baseLog *logger.Logger, aggregator domainagg.ProgressAggregator, enrollments repos.EnrollmentRepo) ProgressService {
	return &progressService{
		log:         baseLog.With("service", "ProgressService"),
		aggregator:  aggregator,
		enrollments: enrollments,
	}
}

func (s *progressService) GetCourseProgress(ctx context.Context, courseID uuid.UUID) (learning.ProgressSnapshot, error) {
	studentID, err := studentFrom(ctx)
	if err != nil {
		return learning.ProgressSnapshot{}, err
	}
	return s.aggregator.Snapshot(ctx, domainagg.EnrollmentKey{StudentID: studentID, CourseID: courseID})
}

func (s *progressService) CompleteLesson(ctx context.Context, courseID, lessonID uuid.UUID) (domainagg.LessonToggleResult, error) {
	studentID, err := studentFrom(ctx)
	if err != nil {
		return domainagg.LessonToggleResult{}, err
	}
	res, err := s.aggregator.CompleteLesson(ctx, domainagg.LessonToggleInput{
		StudentID: studentID,
		CourseID:  courseID,
		LessonID:  lessonID,
	})
	if err != nil {
		return res, err
	}
	if res.Changed && res.Snapshot.Status == learning.EnrollmentCompleted {
		s.log.Info("course completed", "student_id", studentID, "course_id", courseID)
	}
	return res, nil
}

func (s *progressService) UncompleteLesson(ctx context.Context, courseID, lessonID uuid.UUID) (domainagg.LessonToggleResult, error) {
	studentID, err := studentFrom(ctx)
	if err != nil {
		return domainagg.LessonToggleResult{}, err
	}
	return s.aggregator.UncompleteLesson(ctx, domainagg.LessonToggleInput{
		StudentID: studentID,
		CourseID:  courseID,
		LessonID:  lessonID,
	})
}

func (s *progressService) RecalculateAll(ctx context.Context, opts RecalculateOptions) (RecalculateSummary, error) {
	var summary RecalculateSummary
	ids, err := s.enrollments.ListActiveIDs(dbctx.Context{Ctx: ctx}, opts.CourseID, opts.Limit)
	if err != nil {
		return summary, err
	}
	summary.Total = len(ids)
	if opts.OnStart != nil {
		opts.OnStart(summary.Total)
	}
	if len(ids) == 0 {
		return summary, nil
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = 1
	}
	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			res, err := s.aggregator.Recalculate(gctx, domainagg.RecalculateInput{EnrollmentID: id, DryRun: opts.DryRun})
			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				// an enrollment deleted mid-run is not a failure of the batch
				if domainagg.IsCode(err, domainagg.CodeNotFound) {
					summary.Skipped++
					return nil
				}
				summary.Failed++
				s.log.Warn("recalculate failed", "enrollment_id", id, "error", err)
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return nil
			}
			switch {
			case res.Skipped:
				summary.Skipped++
			case res.Changed():
				summary.Changed++
			}
			if opts.OnResult != nil {
				opts.OnResult(done, summary.Total, res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	s.log.Info("recalculate finished",
		"total", summary.Total,
		"changed", summary.Changed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"dry_run", opts.DryRun,
	)
	return summary, nil
}
