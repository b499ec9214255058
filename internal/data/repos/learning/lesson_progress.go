package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumenlms/lms-backend/internal/domain/learning"
	"github.com/lumenlms/lms-backend/internal/platform/dbctx"
	"github.com/lumenlms/lms-backend/internal/platform/logger"
)

type LessonProgressRepo interface {
	Get(dbc dbctx.Context, enrollmentID, lessonID uuid.UUID) (*learning.LessonProgress, error)
	// CreateIgnoreDuplicates inserts row unless (enrollment, lesson) exists.
	CreateIgnoreDuplicates(dbc dbctx.Context, row *learning.LessonProgress) (bool, error)
	// MarkCompleted flips an incomplete row to complete. false means the row
	// is missing or already complete.
	MarkCompleted(dbc dbctx.Context, enrollmentID, lessonID uuid.UUID, at time.Time) (bool, error)
	// MarkIncomplete flips a complete row back. false means nothing to undo.
	MarkIncomplete(dbc dbctx.Context, enrollmentID, lessonID uuid.UUID, at time.Time) (bool, error)

	CompletedLessonIDs(dbc dbctx.Context, enrollmentID uuid.UUID) ([]uuid.UUID, error)
	CountCompletedIn(dbc dbctx.Context, enrollmentID uuid.UUID, lessonIDs []uuid.UUID) (int64, error)

	FullDeleteByEnrollmentIDs(dbc dbctx.Context, enrollmentIDs []uuid.UUID) error
}

type lessonProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonProgressRepo(db *gorm.DB, baseLog *logger.Logger) LessonProgressRepo {
	return &lessonProgressRepo{db: db, log: baseLog.With("repo", "LessonProgressRepo")}
}

func (r *lessonProgressRepo) Get(dbc dbctx.Context, enrollmentID, lessonID uuid.UUID) (*learning.LessonProgress, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*learning.LessonProgress
	if err := t.WithContext(dbc.Ctx).
		Where("enrollment_id = ? AND lesson_id = ?", enrollmentID, lessonID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *lessonProgressRepo) CreateIgnoreDuplicates(dbc dbctx.Context, row *learning.LessonProgress) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return false, nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "enrollment_id"}, {Name: "lesson_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *lessonProgressRepo) MarkCompleted(dbc dbctx.Context, enrollmentID, lessonID uuid.UUID, at time.Time) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Model(&learning.LessonProgress{}).
		Where("enrollment_id = ? AND lesson_id = ? AND is_completed = ?", enrollmentID, lessonID, false).
		Updates(map[string]interface{}{
			"is_completed":     true,
			"completed_at":     at,
			"last_accessed_at": at,
			"updated_at":       at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *lessonProgressRepo) MarkIncomplete(dbc dbctx.Context, enrollmentID, lessonID uuid.UUID, at time.Time) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Model(&learning.LessonProgress{}).
		Where("enrollment_id = ? AND lesson_id = ? AND is_completed = ?", enrollmentID, lessonID, true).
		Updates(map[string]interface{}{
			"is_completed":     false,
			"completed_at":     nil,
			"last_accessed_at": at,
			"updated_at":       at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *lessonProgressRepo) CompletedLessonIDs(dbc dbctx.Context, enrollmentID uuid.UUID) ([]uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	ids := []uuid.UUID{}
	if err := t.WithContext(dbc.Ctx).
		Model(&learning.LessonProgress{}).
		Where("enrollment_id = ? AND is_completed = ?", enrollmentID, true).
		Order("completed_at ASC").
		Pluck("lesson_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *lessonProgressRepo) CountCompletedIn(dbc dbctx.Context, enrollmentID uuid.UUID, lessonIDs []uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(lessonIDs) == 0 {
		return 0, nil
	}
	var n int64
	if err := t.WithContext(dbc.Ctx).
		Model(&learning.LessonProgress{}).
		Where("enrollment_id = ? AND is_completed = ? AND lesson_id IN ?", enrollmentID, true, lessonIDs).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *lessonProgressRepo) FullDeleteByEnrollmentIDs(dbc dbctx.Context, enrollmentIDs []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(enrollmentIDs) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).Where("enrollment_id IN ?", enrollmentIDs).Delete(&learning.LessonProgress{}).Error
}
