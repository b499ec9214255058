package learning

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EnrollmentStatus string

const (
	EnrollmentStarted    EnrollmentStatus = "started"
	EnrollmentInProgress EnrollmentStatus = "in_progress"
	EnrollmentCompleted  EnrollmentStatus = "completed"
)

// Enrollment is one student's registration in one course. ProgressPercent is a
// cache of the student's completed published lessons and is only written by
// progress recomputation.
type Enrollment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_student_course,priority:1" json:"student_id"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_student_course,priority:2;index" json:"course_id"`
	Course    *Course   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`

	Status          EnrollmentStatus `gorm:"column:status;not null;default:'started';index" json:"status"`
	ProgressPercent decimal.Decimal  `gorm:"column:progress_percent;type:numeric(5,2);not null;default:0" json:"progress_percent"`
	IsActive        bool             `gorm:"column:is_active;not null;index" json:"is_active"`

	EnrolledAt     time.Time  `gorm:"column:enrolled_at;not null;index" json:"enrolled_at"`
	CompletedAt    *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	LastAccessedAt *time.Time `gorm:"column:last_accessed_at;index" json:"last_accessed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Enrollment) TableName() string { return "enrollment" }

// EnrollmentFilter narrows a student's active enrollment listing.
type EnrollmentFilter string

const (
	FilterAll       EnrollmentFilter = ""
	FilterOngoing   EnrollmentFilter = "ongoing"
	FilterCompleted EnrollmentFilter = "completed"
)

func ParseEnrollmentFilter(raw string) (EnrollmentFilter, error) {
	switch f := EnrollmentFilter(strings.ToLower(strings.TrimSpace(raw))); f {
	case FilterAll, FilterOngoing, FilterCompleted:
		return f, nil
	default:
		return FilterAll, fmt.Errorf("unknown status filter %q", raw)
	}
}
