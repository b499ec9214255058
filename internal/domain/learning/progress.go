package learning

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ModuleProgress struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	EnrollmentID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_module_progress_enrollment_module,priority:1" json:"enrollment_id"`
	Enrollment   *Enrollment `gorm:"constraint:OnDelete:CASCADE;foreignKey:EnrollmentID;references:ID" json:"-"`
	ModuleID     uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_module_progress_enrollment_module,priority:2;index" json:"module_id"`
	Module       *Module     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ModuleID;references:ID" json:"-"`

	IsCompleted     bool            `gorm:"column:is_completed;not null" json:"is_completed"`
	CompletedAt     *time.Time      `gorm:"column:completed_at" json:"completed_at,omitempty"`
	ProgressPercent decimal.Decimal `gorm:"column:progress_percent;type:numeric(5,2);not null;default:0" json:"progress_percent"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (ModuleProgress) TableName() string { return "module_progress" }

type LessonProgress struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	EnrollmentID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_progress_enrollment_lesson,priority:1" json:"enrollment_id"`
	Enrollment   *Enrollment `gorm:"constraint:OnDelete:CASCADE;foreignKey:EnrollmentID;references:ID" json:"-"`
	LessonID     uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_progress_enrollment_lesson,priority:2;index" json:"lesson_id"`
	Lesson       *Lesson     `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"-"`

	IsCompleted    bool       `gorm:"column:is_completed;not null;index" json:"is_completed"`
	CompletedAt    *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	LastAccessedAt time.Time  `gorm:"column:last_accessed_at;not null" json:"last_accessed_at"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (LessonProgress) TableName() string { return "lesson_progress" }

// ProgressSnapshot is the outward view of an enrollment's completion state.
// Progress is the only float in the model and is derived from the stored
// fixed-point percentage when the snapshot is built.
type ProgressSnapshot struct {
	EnrollmentID     uuid.UUID        `json:"enrollment_id"`
	CourseID         uuid.UUID        `json:"course_id"`
	Progress         float64          `json:"progress"`
	Status           EnrollmentStatus `json:"status"`
	CompletedLessons []uuid.UUID      `json:"completedLessons"`
	CompletedModules []uuid.UUID      `json:"completedModules"`
	LastAccessedAt   *time.Time       `json:"last_accessed_at"`
	CompletedAt      *time.Time       `json:"completed_at"`
}

// NewProgressSnapshot builds the snapshot for e. Nil id slices become empty.
func NewProgressSnapshot(e *Enrollment, lessons, modules []uuid.UUID) ProgressSnapshot {
	if lessons == nil {
		lessons = []uuid.UUID{}
	}
	if modules == nil {
		modules = []uuid.UUID{}
	}
	return ProgressSnapshot{
		EnrollmentID:     e.ID,
		CourseID:         e.CourseID,
		Progress:         e.ProgressPercent.InexactFloat64(),
		Status:           e.Status,
		CompletedLessons: lessons,
		CompletedModules: modules,
		LastAccessedAt:   e.LastAccessedAt,
		CompletedAt:      e.CompletedAt,
	}
}
