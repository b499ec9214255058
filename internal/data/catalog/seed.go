package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	repos "github.com/lumenlms/lms-backend/internal/data/repos/learning"
	"github.com/lumenlms/lms-backend/internal/domain/learning"
	"github.com/lumenlms/lms-backend/internal/platform/dbctx"
	"github.com/lumenlms/lms-backend/internal/platform/logger"
)

// SeedFile is the YAML layout accepted by the catalog seeder. Module and
// lesson order is their position in the file.
type SeedFile struct {
	Categories []SeedCategory `yaml:"categories"`
	Courses    []SeedCourse   `yaml:"courses"`
}

type SeedCategory struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type SeedCourse struct {
	Title           string         `yaml:"title"`
	Description     string         `yaml:"description"`
	Category        string         `yaml:"category"`
	Level           string         `yaml:"level"`
	DurationMinutes int            `yaml:"duration_minutes"`
	ThumbnailURL    string         `yaml:"thumbnail_url"`
	Published       bool           `yaml:"published"`
	Metadata        map[string]any `yaml:"metadata"`
	Modules         []SeedModule   `yaml:"modules"`
}

type SeedModule struct {
	Title       string       `yaml:"title"`
	Description string       `yaml:"description"`
	Published   bool         `yaml:"published"`
	Lessons     []SeedLesson `yaml:"lessons"`
}

type SeedLesson struct {
	Title           string         `yaml:"title"`
	Type            string         `yaml:"type"`
	DurationMinutes int            `yaml:"duration_minutes"`
	Published       bool           `yaml:"published"`
	Content         map[string]any `yaml:"content"`
}

type SeedStats struct {
	Categories     int
	CoursesCreated int
	CoursesUpdated int
	ModulesCreated int
	ModulesUpdated int
	LessonsCreated int
	LessonsUpdated int
	ModulesRetired int
	LessonsRetired int
}

func LoadSeedFile(path string) (*SeedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSeed(f)
}

func ParseSeed(r io.Reader) (*SeedFile, error) {
	var out SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return &out, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SeedFile) Validate() error {
	for i, c := range s.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("categories[%d]: missing name", i)
		}
	}
	for ci, c := range s.Courses {
		if strings.TrimSpace(c.Title) == "" {
			return fmt.Errorf("courses[%d]: missing title", ci)
		}
		for mi, m := range c.Modules {
			if strings.TrimSpace(m.Title) == "" {
				return fmt.Errorf("course %q modules[%d]: missing title", c.Title, mi)
			}
			for li, l := range m.Lessons {
				if strings.TrimSpace(l.Title) == "" {
					return fmt.Errorf("module %q lessons[%d]: missing title", m.Title, li)
				}
				if l.Type != "" && !learning.LessonType(l.Type).Valid() {
					return fmt.Errorf("lesson %q: unknown type %q", l.Title, l.Type)
				}
			}
		}
	}
	return nil
}

type Seeder struct {
	db         *gorm.DB
	log        *logger.Logger
	categories repos.CategoryRepo
	courses    repos.CourseRepo
	modules    repos.ModuleRepo
	lessons    repos.LessonRepo
}

func NewSeeder(db *gorm.DB, baseLog *logger.Logger) *Seeder {
	return &Seeder{
		db:         db,
		log:        baseLog.With("component", "CatalogSeeder"),
		categories: repos.NewCategoryRepo(db, baseLog),
		courses:    repos.NewCourseRepo(db, baseLog),
		modules:    repos.NewModuleRepo(db, baseLog),
		lessons:    repos.NewLessonRepo(db, baseLog),
	}
}

// Apply upserts the whole file in one transaction. Courses match by title,
// modules by (course, position) and lessons by (module, position), so
// re-running the same file changes nothing. Modules and lessons the file no
// longer lists are unpublished.
func (s *Seeder) Apply(ctx context.Context, file *SeedFile) (SeedStats, error) {
	var stats SeedStats
	if file == nil {
		return stats, nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stats = SeedStats{}
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		byName := map[string]*learning.Category{}
		for _, c := range file.Categories {
			row, err := s.categories.EnsureByName(dbc, c.Name, c.Description)
			if err != nil {
				return fmt.Errorf("category %q: %w", c.Name, err)
			}
			byName[row.Name] = row
			stats.Categories++
		}
		for _, c := range file.Courses {
			if err := s.applyCourse(dbc, c, byName, &stats); err != nil {
				return fmt.Errorf("course %q: %w", c.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		return SeedStats{}, err
	}
	s.log.Info("catalog seeded",
		"categories", stats.Categories,
		"courses_created", stats.CoursesCreated,
		"modules_created", stats.ModulesCreated,
		"lessons_created", stats.LessonsCreated,
		"modules_retired", stats.ModulesRetired,
		"lessons_retired", stats.LessonsRetired,
	)
	return stats, nil
}

func (s *Seeder) applyCourse(dbc dbctx.Context, c SeedCourse, categories map[string]*learning.Category, stats *SeedStats) error {
	var category *learning.Category
	if name := strings.TrimSpace(c.Category); name != "" {
		category = categories[name]
		if category == nil {
			row, err := s.categories.EnsureByName(dbc, name, "")
			if err != nil {
				return err
			}
			categories[name] = row
			category = row
		}
	}
	metadata, err := toJSON(c.Metadata)
	if err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	level := strings.TrimSpace(c.Level)
	if level == "" {
		level = "beginner"
	}

	existing, err := s.courses.GetByTitle(dbc, c.Title)
	if err != nil {
		return err
	}
	var course *learning.Course
	if existing == nil {
		row := &learning.Course{
			Title:           strings.TrimSpace(c.Title),
			Description:     c.Description,
			Level:           level,
			DurationMinutes: c.DurationMinutes,
			ThumbnailURL:    c.ThumbnailURL,
			IsPublished:     c.Published,
			Metadata:        metadata,
		}
		if category != nil {
			row.CategoryID = &category.ID
		}
		created, err := s.courses.Create(dbc, []*learning.Course{row})
		if err != nil {
			return err
		}
		course = created[0]
		stats.CoursesCreated++
	} else {
		updates := map[string]interface{}{
			"description":      c.Description,
			"level":            level,
			"duration_minutes": c.DurationMinutes,
			"thumbnail_url":    c.ThumbnailURL,
			"is_published":     c.Published,
			"metadata":         metadata,
		}
		if category != nil {
			updates["category_id"] = category.ID
		}
		if err := s.courses.UpdateFields(dbc, existing.ID, updates); err != nil {
			return err
		}
		course = existing
		stats.CoursesUpdated++
	}

	lessonCounts := map[uuid.UUID]int{}
	for mi, m := range c.Modules {
		module, err := s.applyModule(dbc, course, mi, m, stats)
		if err != nil {
			return fmt.Errorf("module %q: %w", m.Title, err)
		}
		for li, l := range m.Lessons {
			if err := s.applyLesson(dbc, module, li, l, stats); err != nil {
				return fmt.Errorf("lesson %q: %w", l.Title, err)
			}
		}
		lessonCounts[module.ID] = len(m.Lessons)
	}
	return s.retireStale(dbc, course.ID, len(c.Modules), lessonCounts, stats)
}

// retireStale unpublishes modules and lessons positioned past the end of the
// seed file. Rows are kept because progress may reference them.
func (s *Seeder) retireStale(dbc dbctx.Context, courseID uuid.UUID, moduleCount int, lessonCounts map[uuid.UUID]int, stats *SeedStats) error {
	modules, err := s.modules.GetByCourseIDs(dbc, []uuid.UUID{courseID})
	if err != nil {
		return err
	}
	kept := make([]uuid.UUID, 0, len(lessonCounts))
	for _, m := range modules {
		if m.SortOrder < moduleCount {
			kept = append(kept, m.ID)
			continue
		}
		if !m.IsPublished {
			continue
		}
		if err := s.modules.UpdateFields(dbc, m.ID, map[string]interface{}{"is_published": false}); err != nil {
			return err
		}
		stats.ModulesRetired++
	}
	lessons, err := s.lessons.GetByModuleIDs(dbc, kept)
	if err != nil {
		return err
	}
	for _, l := range lessons {
		if l.SortOrder < lessonCounts[l.ModuleID] || !l.IsPublished {
			continue
		}
		if err := s.lessons.UpdateFields(dbc, l.ID, map[string]interface{}{"is_published": false}); err != nil {
			return err
		}
		stats.LessonsRetired++
	}
	return nil
}

func (s *Seeder) applyModule(dbc dbctx.Context, course *learning.Course, order int, m SeedModule, stats *SeedStats) (*learning.Module, error) {
	existing, err := s.modules.GetByCourseAndOrder(dbc, course.ID, order)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		err := s.modules.UpdateFields(dbc, existing.ID, map[string]interface{}{
			"title":        strings.TrimSpace(m.Title),
			"description":  m.Description,
			"is_published": m.Published,
		})
		if err != nil {
			return nil, err
		}
		stats.ModulesUpdated++
		return existing, nil
	}
	created, err := s.modules.Create(dbc, []*learning.Module{{
		CourseID:    course.ID,
		Title:       strings.TrimSpace(m.Title),
		Description: m.Description,
		SortOrder:   order,
		IsPublished: m.Published,
	}})
	if err != nil {
		return nil, err
	}
	stats.ModulesCreated++
	return created[0], nil
}

func (s *Seeder) applyLesson(dbc dbctx.Context, module *learning.Module, order int, l SeedLesson, stats *SeedStats) error {
	content, err := toJSON(l.Content)
	if err != nil {
		return fmt.Errorf("content: %w", err)
	}
	typ := learning.LessonType(l.Type)
	if typ == "" {
		typ = learning.LessonTypeText
	}
	existing, err := s.lessons.GetByModuleAndOrder(dbc, module.ID, order)
	if err != nil {
		return err
	}
	if existing != nil {
		err := s.lessons.UpdateFields(dbc, existing.ID, map[string]interface{}{
			"title":            strings.TrimSpace(l.Title),
			"type":             string(typ),
			"duration_minutes": l.DurationMinutes,
			"is_published":     l.Published,
			"content":          content,
		})
		if err == nil {
			stats.LessonsUpdated++
		}
		return err
	}
	_, err = s.lessons.Create(dbc, []*learning.Lesson{{
		ModuleID:        module.ID,
		Title:           strings.TrimSpace(l.Title),
		Type:            typ,
		DurationMinutes: l.DurationMinutes,
		SortOrder:       order,
		IsPublished:     l.Published,
		Content:         content,
	}})
	if err == nil {
		stats.LessonsCreated++
	}
	return err
}

func toJSON(v map[string]any) (datatypes.JSON, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
