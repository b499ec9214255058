package handlers

import (
	"time"

	"github.com/google/uuid"

	"github.com/lumenlms/lms-backend/internal/domain/learning"
)

type courseSummaryView struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Level           string    `json:"level"`
	DurationMinutes int       `json:"duration_minutes"`
	ThumbnailURL    string    `json:"thumbnail_url,omitempty"`
}

// enrollmentView renders progress_percent as a two-decimal string so clients
// never see binary float noise.
type enrollmentView struct {
	ID              uuid.UUID                 `json:"id"`
	CourseID        uuid.UUID                 `json:"course_id"`
	Course          *courseSummaryView        `json:"course,omitempty"`
	Status          learning.EnrollmentStatus `json:"status"`
	ProgressPercent string                    `json:"progress_percent"`
	IsActive        bool                      `json:"is_active"`
	EnrolledAt      time.Time                 `json:"enrolled_at"`
	CompletedAt     *time.Time                `json:"completed_at"`
	LastAccessedAt  *time.Time                `json:"last_accessed_at"`
}

func newEnrollmentView(e *learning.Enrollment) *enrollmentView {
	if e == nil {
		return nil
	}
	v := &enrollmentView{
		ID:              e.ID,
		CourseID:        e.CourseID,
		Status:          e.Status,
		ProgressPercent: learning.FormatPercent(e.ProgressPercent),
		IsActive:        e.IsActive,
		EnrolledAt:      e.EnrolledAt,
		CompletedAt:     e.CompletedAt,
		LastAccessedAt:  e.LastAccessedAt,
	}
	if c := e.Course; c != nil {
		v.Course = &courseSummaryView{
			ID:              c.ID,
			Title:           c.Title,
			Level:           c.Level,
			DurationMinutes: c.DurationMinutes,
			ThumbnailURL:    c.ThumbnailURL,
		}
	}
	return v
}

func newEnrollmentViews(rows []*learning.Enrollment) []*enrollmentView {
	out := make([]*enrollmentView, 0, len(rows))
	for _, e := range rows {
		if e != nil {
			out = append(out, newEnrollmentView(e))
		}
	}
	return out
}
