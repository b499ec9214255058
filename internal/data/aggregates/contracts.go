package aggregates

import (
	"github.com/google/uuid"

	"github.com/lumenlms/lms-backend/internal/platform/dbctx"
)

// ContentCatalog is the read-only view of the course hierarchy that progress
// bookkeeping needs. internal/data/catalog.Catalog implements it.
type ContentCatalog interface {
	CourseExists(dbc dbctx.Context, courseID uuid.UUID) (bool, error)
	PublishedCourseExists(dbc dbctx.Context, courseID uuid.UUID) (bool, error)
	LessonExistsInCourse(dbc dbctx.Context, lessonID, courseID uuid.UUID) (bool, error)
	ModuleIDForLesson(dbc dbctx.Context, lessonID uuid.UUID) (*uuid.UUID, error)
	ModuleIDsInCourse(dbc dbctx.Context, courseID uuid.UUID) ([]uuid.UUID, error)

	CountPublishedLessonsInCourse(dbc dbctx.Context, courseID uuid.UUID) (int64, error)
	PublishedLessonIDsInCourse(dbc dbctx.Context, courseID uuid.UUID) ([]uuid.UUID, error)
	CountPublishedLessonsInModule(dbc dbctx.Context, moduleID uuid.UUID) (int64, error)
	PublishedLessonIDsInModule(dbc dbctx.Context, moduleID uuid.UUID) ([]uuid.UUID, error)
}
