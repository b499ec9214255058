package learning

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumenlms/lms-backend/internal/domain/learning"
	"github.com/lumenlms/lms-backend/internal/platform/dbctx"
	"github.com/lumenlms/lms-backend/internal/platform/logger"
)

type CategoryRepo interface {
	Create(dbc dbctx.Context, rows []*learning.Category) ([]*learning.Category, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*learning.Category, error)
	GetByName(dbc dbctx.Context, name string) (*learning.Category, error)
	EnsureByName(dbc dbctx.Context, name, description string) (*learning.Category, error)
	List(dbc dbctx.Context) ([]*learning.Category, error)
}

type categoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCategoryRepo(db *gorm.DB, baseLog *logger.Logger) CategoryRepo {
	return &categoryRepo{db: db, log: baseLog.With("repo", "CategoryRepo")}
}

func (r *categoryRepo) Create(dbc dbctx.Context, rows []*learning.Category) ([]*learning.Category, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*learning.Category{}, nil
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

func (r *categoryRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*learning.Category, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*learning.Category
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *categoryRepo) GetByName(dbc dbctx.Context, name string) (*learning.Category, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var out []*learning.Category
	if err := t.WithContext(dbc.Ctx).Where("name = ?", name).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// EnsureByName inserts the category if its name is new and returns the stored row.
func (r *categoryRepo) EnsureByName(dbc dbctx.Context, name, description string) (*learning.Category, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	row := &learning.Category{ID: uuid.New(), Name: strings.TrimSpace(name), Description: description}
	if err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return r.GetByName(dbc, row.Name)
}

func (r *categoryRepo) List(dbc dbctx.Context) ([]*learning.Category, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*learning.Category
	if err := t.WithContext(dbc.Ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
