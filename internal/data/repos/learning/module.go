package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlms/lms-backend/internal/domain/learning"
	"github.com/lumenlms/lms-backend/internal/platform/dbctx"
	"github.com/lumenlms/lms-backend/internal/platform/logger"
)

type ModuleRepo interface {
	Create(dbc dbctx.Context, rows []*learning.Module) ([]*learning.Module, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*learning.Module, error)
	GetByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*learning.Module, error)
	GetByCourseAndOrder(dbc dbctx.Context, courseID uuid.UUID, order int) (*learning.Module, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type moduleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModuleRepo(db *gorm.DB, baseLog *logger.Logger) ModuleRepo {
	return &moduleRepo{db: db, log: baseLog.With("repo", "ModuleRepo")}
}

func (r *moduleRepo) Create(dbc dbctx.Context, rows []*learning.Module) ([]*learning.Module, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*learning.Module{}, nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *moduleRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*learning.Module, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*learning.Module
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *moduleRepo) GetByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*learning.Module, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*learning.Module
	if len(courseIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("course_id IN ?", courseIDs).
		Order("course_id ASC, sort_order ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *moduleRepo) GetByCourseAndOrder(dbc dbctx.Context, courseID uuid.UUID, order int) (*learning.Module, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*learning.Module
	if err := t.WithContext(dbc.Ctx).
		Where("course_id = ? AND sort_order = ?", courseID, order).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *moduleRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).Model(&learning.Module{}).Where("id = ?", id).Updates(updates).Error
}
