package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/lumenlms/lms-backend/internal/domain/aggregates"
)

type courseURI struct {
	CourseID string `uri:"course_id" binding:"required,uuid"`
}

type lessonURI struct {
	CourseID string `uri:"course_id" binding:"required,uuid"`
	LessonID string `uri:"lesson_id" binding:"required,uuid"`
}

func bindCourseID(c *gin.Context) (uuid.UUID, error) {
	var p courseURI
	if err := c.ShouldBindUri(&p); err != nil {
		return uuid.Nil, domainagg.Validation("http.bindCourseID", "invalid course id")
	}
	return parseID("course", p.CourseID)
}

func bindLessonIDs(c *gin.Context) (uuid.UUID, uuid.UUID, error) {
	var p lessonURI
	if err := c.ShouldBindUri(&p); err != nil {
		return uuid.Nil, uuid.Nil, domainagg.Validation("http.bindLessonIDs", "invalid course or lesson id")
	}
	courseID, err := parseID("course", p.CourseID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	lessonID, err := parseID("lesson", p.LessonID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return courseID, lessonID, nil
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, domainagg.Validation("http.parseID", fmt.Sprintf("invalid %s id", kind))
	}
	return id, nil
}
