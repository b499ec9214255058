package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lumenlms/lms-backend/internal/domain/learning"
)

func SeedCategory(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *learning.Category {
	tb.Helper()
	c := &learning.Category{ID: uuid.New(), Name: name, Description: "category"}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed category: %v", err)
	}
	return c
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, published bool) *learning.Course {
	tb.Helper()
	c := &learning.Course{
		ID:          uuid.New(),
		Title:       "course " + uuid.NewString()[:8],
		Description: "desc",
		Level:       "beginner",
		IsPublished: published,
		Metadata:    datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedModule(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, order int, published bool) *learning.Module {
	tb.Helper()
	m := &learning.Module{
		ID:          uuid.New(),
		CourseID:    courseID,
		Title:       fmt.Sprintf("module %d", order),
		SortOrder:   order,
		IsPublished: published,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed module: %v", err)
	}
	return m
}

func SeedLesson(tb testing.TB, ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, order int, published bool) *learning.Lesson {
	tb.Helper()
	l := &learning.Lesson{
		ID:          uuid.New(),
		ModuleID:    moduleID,
		Title:       fmt.Sprintf("lesson %d", order),
		Type:        learning.LessonTypeText,
		SortOrder:   order,
		IsPublished: published,
		Content:     datatypes.JSON([]byte(`{"body":"x"}`)),
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

func SeedEnrollment(tb testing.TB, ctx context.Context, tx *gorm.DB, studentID, courseID uuid.UUID) *learning.Enrollment {
	tb.Helper()
	e := &learning.Enrollment{
		ID:              uuid.New(),
		StudentID:       studentID,
		CourseID:        courseID,
		Status:          learning.EnrollmentStarted,
		ProgressPercent: decimal.Zero,
		IsActive:        true,
		EnrolledAt:      time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed enrollment: %v", err)
	}
	return e
}

// CourseFixture is a published course with published modules and lessons.
type CourseFixture struct {
	Course  *learning.Course
	Modules []*learning.Module
	// Lessons[i] are the lessons of Modules[i].
	Lessons [][]*learning.Lesson
}

// SeedPublishedCourse builds a published course with the given number of
// published lessons per module.
func SeedPublishedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, lessonsPerModule ...int) *CourseFixture {
	tb.Helper()
	f := &CourseFixture{Course: SeedCourse(tb, ctx, tx, true)}
	for mi, n := range lessonsPerModule {
		m := SeedModule(tb, ctx, tx, f.Course.ID, mi, true)
		f.Modules = append(f.Modules, m)
		var ls []*learning.Lesson
		for li := 0; li < n; li++ {
			ls = append(ls, SeedLesson(tb, ctx, tx, m.ID, li, true))
		}
		f.Lessons = append(f.Lessons, ls)
	}
	return f
}
