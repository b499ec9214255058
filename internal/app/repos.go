package app

import (
	"gorm.io/gorm"

	"github.com/lumenlms/lms-backend/internal/data/catalog"
	repos "github.com/lumenlms/lms-backend/internal/data/repos/learning"
	"github.com/lumenlms/lms-backend/internal/platform/logger"
)

type Repos struct {
	Category repos.CategoryRepo
	Course   repos.CourseRepo
	Module   repos.ModuleRepo
	Lesson   repos.LessonRepo

	Enrollment     repos.EnrollmentRepo
	LessonProgress repos.LessonProgressRepo
	ModuleProgress repos.ModuleProgressRepo

	Catalog *catalog.Catalog
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Category:       repos.NewCategoryRepo(db, log),
		Course:         repos.NewCourseRepo(db, log),
		Module:         repos.NewModuleRepo(db, log),
		Lesson:         repos.NewLessonRepo(db, log),
		Enrollment:     repos.NewEnrollmentRepo(db, log),
		LessonProgress: repos.NewLessonProgressRepo(db, log),
		ModuleProgress: repos.NewModuleProgressRepo(db, log),
		Catalog:        catalog.New(db, log),
	}
}
