package db

import (
	"fmt"

	"github.com/lumenlms/lms-backend/internal/domain/learning"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// catalog
		&learning.Category{},
		&learning.Course{},
		&learning.Module{},
		&learning.Lesson{},

		// enrollment + progress
		&learning.Enrollment{},
		&learning.ModuleProgress{},
		&learning.LessonProgress{},
	); err != nil {
		return err
	}
	return EnsureProgressIndexes(db)
}

func EnsureProgressIndexes(db *gorm.DB) error {
	// "my enrollments" listing, ordered by recency of access
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_enrollment_student_active_access
		ON enrollment (student_id, is_active, last_accessed_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_enrollment_student_active_access: %w", err)
	}
	// completed-lesson counts per enrollment
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_lesson_progress_enrollment_completed
		ON lesson_progress (enrollment_id, is_completed);
	`).Error; err != nil {
		return fmt.Errorf("create idx_lesson_progress_enrollment_completed: %w", err)
	}
	// published lesson lookups per module
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_lesson_module_published
		ON lesson (module_id, is_published);
	`).Error; err != nil {
		return fmt.Errorf("create idx_lesson_module_published: %w", err)
	}
	return nil
}
