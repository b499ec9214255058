package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/lumenlms/lms-backend/internal/data/repos/testutil"
	"github.com/lumenlms/lms-backend/internal/domain/learning"
	"github.com/lumenlms/lms-backend/internal/platform/dbctx"
)

const seedYAML = `
categories:
  - name: Programming
    description: Writing software
courses:
  - title: Go Fundamentals
    category: Programming
    level: beginner
    duration_minutes: 90
    published: true
    metadata:
      tags: [go, backend]
    modules:
      - title: Getting Started
        published: true
        lessons:
          - title: Installing Go
            type: video
            duration_minutes: 10
            published: true
            content:
              url: https://example.com/install.mp4
          - title: Hello World
            type: text
            published: true
      - title: Drafts
        published: false
        lessons:
          - title: Generics
            type: quiz
`

func TestParseSeed(t *testing.T) {
	f, err := ParseSeed(strings.NewReader(seedYAML))
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}
	if len(f.Categories) != 1 || len(f.Courses) != 1 {
		t.Fatalf("unexpected seed shape: %+v", f)
	}
	c := f.Courses[0]
	if len(c.Modules) != 2 || len(c.Modules[0].Lessons) != 2 || c.Modules[1].Published {
		t.Fatalf("unexpected modules: %+v", c.Modules)
	}

	bad := []string{
		"courses:\n  - title: \"\"\n",
		"courses:\n  - title: X\n    modules:\n      - title: M\n        lessons:\n          - title: L\n            type: podcast\n",
		"courses:\n  - title: X\n    unknown_field: 1\n",
		"categories:\n  - description: nameless\n",
	}
	for _, doc := range bad {
		if _, err := ParseSeed(strings.NewReader(doc)); err == nil {
			t.Fatalf("expected error for %q", doc)
		}
	}

	empty, err := ParseSeed(strings.NewReader(""))
	if err != nil || len(empty.Courses) != 0 {
		t.Fatalf("empty seed: %+v err=%v", empty, err)
	}
}

func TestSeederApplyIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	file, err := ParseSeed(strings.NewReader(seedYAML))
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}

	s := NewSeeder(db, log)
	first, err := s.Apply(ctx, file)
	if err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	if first.CoursesCreated != 1 || first.ModulesCreated != 2 || first.LessonsCreated != 3 {
		t.Fatalf("unexpected first stats: %+v", first)
	}

	second, err := s.Apply(ctx, file)
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if second.CoursesCreated != 0 || second.ModulesCreated != 0 || second.LessonsCreated != 0 {
		t.Fatalf("second run created rows: %+v", second)
	}
	if second.CoursesUpdated != 1 || second.ModulesUpdated != 2 || second.LessonsUpdated != 3 {
		t.Fatalf("unexpected second stats: %+v", second)
	}

	var courses []learning.Course
	if err := db.Where("title = ?", "Go Fundamentals").Find(&courses).Error; err != nil {
		t.Fatalf("load courses: %v", err)
	}
	if len(courses) != 1 || courses[0].CategoryID == nil || !courses[0].IsPublished {
		t.Fatalf("unexpected courses: %+v", courses)
	}

	c := New(db, log)
	dbc := dbctx.Context{Ctx: ctx}
	n, err := c.CountPublishedLessonsInCourse(dbc, courses[0].ID)
	if err != nil || n != 2 {
		t.Fatalf("published lessons: want=2 got=%d err=%v", n, err)
	}
}

func TestSeederUnpublishesDroppedEntries(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	full, err := ParseSeed(strings.NewReader(seedYAML))
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}
	s := NewSeeder(db, log)
	if _, err := s.Apply(ctx, full); err != nil {
		t.Fatalf("Apply full: %v", err)
	}

	trimmed, err := ParseSeed(strings.NewReader(seedYAML))
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}
	course := &trimmed.Courses[0]
	course.Modules[0].Lessons = course.Modules[0].Lessons[:1]
	course.Modules = course.Modules[:1]

	stats, err := s.Apply(ctx, trimmed)
	if err != nil {
		t.Fatalf("Apply trimmed: %v", err)
	}
	// the dropped module was never published, so only the lesson is retired
	if stats.LessonsRetired != 1 || stats.ModulesRetired != 0 {
		t.Fatalf("unexpected retire stats: %+v", stats)
	}

	var row learning.Course
	if err := db.Where("title = ?", "Go Fundamentals").First(&row).Error; err != nil {
		t.Fatalf("load course: %v", err)
	}
	n, err := New(db, log).CountPublishedLessonsInCourse(dbctx.Context{Ctx: ctx}, row.ID)
	if err != nil || n != 1 {
		t.Fatalf("published lessons after trim: want=1 got=%d err=%v", n, err)
	}

	again, err := s.Apply(ctx, trimmed)
	if err != nil || again.LessonsRetired != 0 {
		t.Fatalf("retire should be idempotent: %+v err=%v", again, err)
	}
}
