package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/lumenlms/lms-backend/internal/data/db"
	"github.com/lumenlms/lms-backend/internal/domain/learning"
	"github.com/lumenlms/lms-backend/internal/platform/dbctx"
	"github.com/lumenlms/lms-backend/internal/platform/logger"
)

type EnrollmentRepo interface {
	// CreateIgnoreDuplicates inserts row unless (student, course) already
	// exists. It reports whether a row was inserted.
	CreateIgnoreDuplicates(dbc dbctx.Context, row *learning.Enrollment) (bool, error)

	GetByID(dbc dbctx.Context, id uuid.UUID) (*learning.Enrollment, error)
	GetByStudentAndCourse(dbc dbctx.Context, studentID, courseID uuid.UUID) (*learning.Enrollment, error)
	GetActive(dbc dbctx.Context, studentID, courseID uuid.UUID) (*learning.Enrollment, error)
	// LockByID re-reads the row with FOR UPDATE when the dialect supports it.
	LockByID(dbc dbctx.Context, id uuid.UUID) (*learning.Enrollment, error)

	ListActiveByStudent(dbc dbctx.Context, studentID uuid.UUID, filter learning.EnrollmentFilter) ([]*learning.Enrollment, error)
	ListActiveIDs(dbc dbctx.Context, courseID *uuid.UUID, limit int) ([]uuid.UUID, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// Deactivate flips the active row for (student, course) to inactive and
	// reports whether one existed.
	Deactivate(dbc dbctx.Context, studentID, courseID uuid.UUID, at time.Time) (bool, error)
	TouchLastAccessed(dbc dbctx.Context, id uuid.UUID, at time.Time) error

	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return &enrollmentRepo{db: db, log: baseLog.With("repo", "EnrollmentRepo")}
}

func (r *enrollmentRepo) CreateIgnoreDuplicates(dbc dbctx.Context, row *learning.Enrollment) (bool, error) {
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
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *enrollmentRepo) first(q *gorm.DB) (*learning.Enrollment, error) {
	var out []*learning.Enrollment
	if err := q.Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *enrollmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*learning.Enrollment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	return r.first(t.WithContext(dbc.Ctx).Where("id = ?", id))
}

func (r *enrollmentRepo) GetByStudentAndCourse(dbc dbctx.Context, studentID, courseID uuid.UUID) (*learning.Enrollment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return r.first(t.WithContext(dbc.Ctx).Where("student_id = ? AND course_id = ?", studentID, courseID))
}

func (r *enrollmentRepo) GetActive(dbc dbctx.Context, studentID, courseID uuid.UUID) (*learning.Enrollment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return r.first(t.WithContext(dbc.Ctx).
		Where("student_id = ? AND course_id = ? AND is_active = ?", studentID, courseID, true))
}

func (r *enrollmentRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*learning.Enrollment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).Where("id = ?", id)
	if dbpkg.IsPostgres(t) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.first(q)
}

func (r *enrollmentRepo) ListActiveByStudent(dbc dbctx.Context, studentID uuid.UUID, filter learning.EnrollmentFilter) ([]*learning.Enrollment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).
		Preload("Course").
		Where("student_id = ? AND is_active = ?", studentID, true)
	switch filter {
	case learning.FilterOngoing:
		q = q.Where("status <> ?", learning.EnrollmentCompleted).
			Order(clause.OrderByColumn{Column: clause.Column{Name: "last_accessed_at"}, Desc: true}).
			Order("enrolled_at DESC")
	case learning.FilterCompleted:
		q = q.Where("status = ?", learning.EnrollmentCompleted).Order("completed_at DESC")
	default:
		q = q.Order("enrolled_at DESC")
	}
	var out []*learning.Enrollment
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *enrollmentRepo) ListActiveIDs(dbc dbctx.Context, courseID *uuid.UUID, limit int) ([]uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).Model(&learning.Enrollment{}).Where("is_active = ?", true)
	if courseID != nil && *courseID != uuid.Nil {
		q = q.Where("course_id = ?", *courseID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var ids []uuid.UUID
	if err := q.Order("enrolled_at ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *enrollmentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).Model(&learning.Enrollment{}).Where("id = ?", id).Updates(updates).Error
}

func (r *enrollmentRepo) Deactivate(dbc dbctx.Context, studentID, courseID uuid.UUID, at time.Time) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Model(&learning.Enrollment{}).
		Where("student_id = ? AND course_id = ? AND is_active = ?", studentID, courseID, true).
		Updates(map[string]interface{}{"is_active": false, "updated_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *enrollmentRepo) TouchLastAccessed(dbc dbctx.Context, id uuid.UUID, at time.Time) error {
	return r.UpdateFields(dbc, id, map[string]interface{}{"last_accessed_at": at, "updated_at": at})
}

// FullDeleteByIDs hard-deletes enrollment rows. Progress rows reference
// them, so callers clear those first.
func (r *enrollmentRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).Unscoped().Where("id IN ?", ids).Delete(&learning.Enrollment{}).Error
}
