package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumenlms/lms-backend/internal/domain/learning"
	"github.com/lumenlms/lms-backend/internal/platform/dbctx"
	"github.com/lumenlms/lms-backend/internal/platform/logger"
)

type ModuleProgressRepo interface {
	Get(dbc dbctx.Context, enrollmentID, moduleID uuid.UUID) (*learning.ModuleProgress, error)
	GetByEnrollmentID(dbc dbctx.Context, enrollmentID uuid.UUID) ([]*learning.ModuleProgress, error)
	// Upsert writes completion fields keyed by (enrollment, module).
	Upsert(dbc dbctx.Context, row *learning.ModuleProgress) error
	CompletedModuleIDs(dbc dbctx.Context, enrollmentID uuid.UUID) ([]uuid.UUID, error)
	FullDeleteByEnrollmentIDs(dbc dbctx.Context, enrollmentIDs []uuid.UUID) error
}

type moduleProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModuleProgressRepo(db *gorm.DB, baseLog *logger.Logger) ModuleProgressRepo {
	return &moduleProgressRepo{db: db, log: baseLog.With("repo", "ModuleProgressRepo")}
}

func (r *moduleProgressRepo) Get(dbc dbctx.Context, enrollmentID, moduleID uuid.UUID) (*learning.ModuleProgress, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*learning.ModuleProgress
	if err := t.WithContext(dbc.Ctx).
		Where("enrollment_id = ? AND module_id = ?", enrollmentID, moduleID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *moduleProgressRepo) GetByEnrollmentID(dbc dbctx.Context, enrollmentID uuid.UUID) ([]*learning.ModuleProgress, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*learning.ModuleProgress
	if err := t.WithContext(dbc.Ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *moduleProgressRepo) Upsert(dbc dbctx.Context, row *learning.ModuleProgress) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "enrollment_id"}, {Name: "module_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"is_completed",
				"completed_at",
				"progress_percent",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *moduleProgressRepo) CompletedModuleIDs(dbc dbctx.Context, enrollmentID uuid.UUID) ([]uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	ids := []uuid.UUID{}
	if err := t.WithContext(dbc.Ctx).
		Model(&learning.ModuleProgress{}).
		Where("enrollment_id = ? AND is_completed = ?", enrollmentID, true).
		Order("completed_at ASC").
		Pluck("module_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *moduleProgressRepo) FullDeleteByEnrollmentIDs(dbc dbctx.Context, enrollmentIDs []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(enrollmentIDs) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).Where("enrollment_id IN ?", enrollmentIDs).Delete(&learning.ModuleProgress{}).Error
}
