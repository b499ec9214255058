// Package catalog answers the questions enrollment and progress bookkeeping
// ask of the course/module/lesson hierarchy. It owns no progress data.
package catalog

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlms/lms-backend/internal/domain/learning"
	"github.com/lumenlms/lms-backend/internal/platform/dbctx"
	"github.com/lumenlms/lms-backend/internal/platform/logger"
)

const joinModule = "JOIN course_module ON course_module.id = lesson.module_id AND course_module.deleted_at IS NULL"

type Catalog struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(db *gorm.DB, baseLog *logger.Logger) *Catalog {
	return &Catalog{db: db, log: baseLog.With("component", "ContentCatalog")}
}

func (c *Catalog) base(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = c.db
	}
	return t.WithContext(dbc.Ctx)
}

func (c *Catalog) CourseExists(dbc dbctx.Context, courseID uuid.UUID) (bool, error) {
	var n int64
	err := c.base(dbc).Model(&learning.Course{}).Where("id = ?", courseID).Count(&n).Error
	return n > 0, err
}

func (c *Catalog) PublishedCourseExists(dbc dbctx.Context, courseID uuid.UUID) (bool, error) {
	var n int64
	err := c.base(dbc).Model(&learning.Course{}).
		Where("id = ? AND is_published = ?", courseID, true).
		Count(&n).Error
	return n > 0, err
}

// LessonExistsInCourse ignores publish flags; it only checks ownership.
func (c *Catalog) LessonExistsInCourse(dbc dbctx.Context, lessonID, courseID uuid.UUID) (bool, error) {
	var n int64
	err := c.base(dbc).Model(&learning.Lesson{}).
		Joins(joinModule).
		Where("lesson.id = ? AND course_module.course_id = ?", lessonID, courseID).
		Count(&n).Error
	return n > 0, err
}

// ModuleIDForLesson returns nil when the lesson is unknown.
func (c *Catalog) ModuleIDForLesson(dbc dbctx.Context, lessonID uuid.UUID) (*uuid.UUID, error) {
	var rows []learning.Lesson
	if err := c.base(dbc).Select("id", "module_id").Where("id = ?", lessonID).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	id := rows[0].ModuleID
	return &id, nil
}

// CountPublishedLessonsInCourse counts lessons that are published inside a
// published module.
func (c *Catalog) CountPublishedLessonsInCourse(dbc dbctx.Context, courseID uuid.UUID) (int64, error) {
	var n int64
	err := c.publishedInCourse(dbc, courseID).Count(&n).Error
	return n, err
}

func (c *Catalog) PublishedLessonIDsInCourse(dbc dbctx.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := c.publishedInCourse(dbc, courseID).Order("lesson.id ASC").Pluck("lesson.id", &ids).Error
	return ids, err
}

func (c *Catalog) publishedInCourse(dbc dbctx.Context, courseID uuid.UUID) *gorm.DB {
	return c.base(dbc).Model(&learning.Lesson{}).
		Joins(joinModule).
		Where("course_module.course_id = ? AND course_module.is_published = ? AND lesson.is_published = ?", courseID, true, true)
}

// Module-scoped counts only look at the lesson's own publish flag.
func (c *Catalog) CountPublishedLessonsInModule(dbc dbctx.Context, moduleID uuid.UUID) (int64, error) {
	var n int64
	err := c.base(dbc).Model(&learning.Lesson{}).
		Where("module_id = ? AND is_published = ?", moduleID, true).
		Count(&n).Error
	return n, err
}

func (c *Catalog) PublishedLessonIDsInModule(dbc dbctx.Context, moduleID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := c.base(dbc).Model(&learning.Lesson{}).
		Where("module_id = ? AND is_published = ?", moduleID, true).
		Order("sort_order ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// ModuleIDsInCourse lists every module of the course regardless of publish
// state, in display order.
func (c *Catalog) ModuleIDsInCourse(dbc dbctx.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := c.base(dbc).Model(&learning.Module{}).
		Where("course_id = ?", courseID).
		Order("sort_order ASC").
		Pluck("id", &ids).Error
	return ids, err
}
