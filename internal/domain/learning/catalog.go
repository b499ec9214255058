package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LessonType string

const (
	LessonTypeVideo       LessonType = "video"
	LessonTypeText        LessonType = "text"
	LessonTypeQuiz        LessonType = "quiz"
	LessonTypeInteractive LessonType = "interactive"
)

func (t LessonType) Valid() bool {
	switch t {
	case LessonTypeVideo, LessonTypeText, LessonTypeQuiz, LessonTypeInteractive:
		return true
	}
	return false
}

type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"column:description;type:text" json:"description"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Category) TableName() string { return "category" }

type Course struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	InstructorID *uuid.UUID `gorm:"type:uuid;index" json:"instructor_id,omitempty"`
	CategoryID   *uuid.UUID `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Category     *Category  `gorm:"constraint:OnDelete:SET NULL;foreignKey:CategoryID;references:ID" json:"category,omitempty"`

	Title           string `gorm:"column:title;not null" json:"title"`
	Description     string `gorm:"column:description;type:text" json:"description"`
	Level           string `gorm:"column:level;not null;default:'beginner'" json:"level"`
	DurationMinutes int    `gorm:"column:duration_minutes;not null;default:0" json:"duration_minutes"`
	ThumbnailURL    string `gorm:"column:thumbnail_url" json:"thumbnail_url,omitempty"`
	IsPublished     bool   `gorm:"column:is_published;not null;index" json:"is_published"`

	Metadata datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }

type Module struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_module_course_order,priority:1" json:"course_id"`
	Course   *Course   `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`

	Title       string `gorm:"column:title;not null" json:"title"`
	Description string `gorm:"column:description;type:text" json:"description"`
	SortOrder   int    `gorm:"column:sort_order;not null;uniqueIndex:idx_module_course_order,priority:2" json:"order"`
	IsPublished bool   `gorm:"column:is_published;not null;index" json:"is_published"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Module) TableName() string { return "course_module" }

type Lesson struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_module_order,priority:1" json:"module_id"`
	Module   *Module   `gorm:"constraint:OnDelete:CASCADE;foreignKey:ModuleID;references:ID" json:"module,omitempty"`

	Title           string     `gorm:"column:title;not null" json:"title"`
	Type            LessonType `gorm:"column:type;not null;default:'text'" json:"type"`
	DurationMinutes int        `gorm:"column:duration_minutes;not null;default:0" json:"duration_minutes"`
	SortOrder       int        `gorm:"column:sort_order;not null;uniqueIndex:idx_lesson_module_order,priority:2" json:"order"`
	IsPublished     bool       `gorm:"column:is_published;not null;index" json:"is_published"`

	Content datatypes.JSON `gorm:"column:content" json:"content,omitempty"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lesson) TableName() string { return "lesson" }
