package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlms/lms-backend/internal/domain/learning"
	"github.com/lumenlms/lms-backend/internal/platform/dbctx"
	"github.com/lumenlms/lms-backend/internal/platform/logger"
)

type LessonRepo interface {
	Create(dbc dbctx.Context, rows []*learning.Lesson) ([]*learning.Lesson, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*learning.Lesson, error)
	GetByModuleIDs(dbc dbctx.Context, moduleIDs []uuid.UUID) ([]*learning.Lesson, error)
	GetByModuleAndOrder(dbc dbctx.Context, moduleID uuid.UUID, order int) (*learning.Lesson, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{db: db, log: baseLog.With("repo", "LessonRepo")}
}

func (r *lessonRepo) Create(dbc dbctx.Context, rows []*learning.Lesson) ([]*learning.Lesson, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*learning.Lesson{}, nil
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

func (r *lessonRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*learning.Lesson, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*learning.Lesson
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *lessonRepo) GetByModuleIDs(dbc dbctx.Context, moduleIDs []uuid.UUID) ([]*learning.Lesson, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*learning.Lesson
	if len(moduleIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("module_id IN ?", moduleIDs).
		Order("module_id ASC, sort_order ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *lessonRepo) GetByModuleAndOrder(dbc dbctx.Context, moduleID uuid.UUID, order int) (*learning.Lesson, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*learning.Lesson
	if err := t.WithContext(dbc.Ctx).
		Where("module_id = ? AND sort_order = ?", moduleID, order).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *lessonRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).Model(&learning.Lesson{}).Where("id = ?", id).Updates(updates).Error
}
